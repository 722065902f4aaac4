package service

import (
	"github.com/odvcencio/pmrhub/internal/gitstore"
	"github.com/odvcencio/pmrhub/internal/models"
)

type TreeEntryInfo struct {
	Name string             `json:"name"`
	Kind gitstore.EntryKind `json:"kind"`
}

type TreeInfo struct {
	Entries []TreeEntryInfo `json:"entries"`
}

// FileInfo describes a blob without its content.
type FileInfo struct {
	ID   string `json:"id"`
	Size int64  `json:"size"`
}

// PathObject is the bare view of a resolved path. Exactly one field is set.
type PathObject struct {
	TreeInfo *TreeInfo        `json:"tree_info,omitempty"`
	FileInfo *FileInfo        `json:"file_info,omitempty"`
	SubRepo  *SubRepoBoundary `json:"subrepo,omitempty"`
}

// WorkspacePathInfo is the merged view shared by the JSON API and the
// server-rendered page state.
type WorkspacePathInfo struct {
	WorkspaceID          int64       `json:"workspace_id"`
	WorkspaceDescription *string     `json:"workspace_description"`
	WorkspaceURL         string      `json:"workspace_url"`
	CommitID             *string     `json:"commit_id"`
	Path                 string      `json:"path"`
	Object               *PathObject `json:"object"`
}

// ObjectInfo projects a resolution to its bare view.
func ObjectInfo(res *PathResolution) *PathObject {
	switch t := res.Target.(type) {
	case *ObjectTarget:
		if blob, ok := gitstore.AsBlob(t.Object); ok {
			return &PathObject{FileInfo: &FileInfo{ID: blob.Hash.String(), Size: blob.Size}}
		}
		entries := make([]TreeEntryInfo, len(t.Entries))
		for i, e := range t.Entries {
			entries[i] = TreeEntryInfo{Name: e.Name, Kind: e.Kind}
		}
		return &PathObject{TreeInfo: &TreeInfo{Entries: entries}}
	case *SubRepoBoundary:
		b := *t
		return &PathObject{SubRepo: &b}
	default:
		return nil
	}
}

// PathInfo projects a resolution in ws to the merged view.
func PathInfo(ws *models.Workspace, res *PathResolution) *WorkspacePathInfo {
	return &WorkspacePathInfo{
		WorkspaceID:          ws.ID,
		WorkspaceDescription: ws.Description,
		WorkspaceURL:         ws.URL,
		CommitID:             res.CommitID(),
		Path:                 res.Path,
		Object:               ObjectInfo(res),
	}
}
