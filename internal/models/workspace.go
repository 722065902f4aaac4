package models

import "time"

// Workspace is a registered git repository. The repository itself lives
// at <git_root>/<id>; only the metadata row is stored in the database.
type Workspace struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"-"`
}

// DescriptionOrEmpty returns the description, or "" when none is set.
func (w *Workspace) DescriptionOrEmpty() string {
	if w == nil || w.Description == nil {
		return ""
	}
	return *w.Description
}

// WorkspaceRecords is the listing envelope served at /api/workspace/.
type WorkspaceRecords struct {
	Workspaces []Workspace `json:"workspaces"`
}

// WorkspaceRecord pairs a workspace with the commit its default branch
// points at. HeadCommit is nil for an empty or unavailable repository.
type WorkspaceRecord struct {
	Workspace  Workspace `json:"workspace"`
	HeadCommit *string   `json:"head_commit"`
}
