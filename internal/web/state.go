package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
)

// Resource kinds named in the embedded page state.
const (
	ResourceHomepage          = "homepage"
	ResourceWorkspaceListing  = "workspace_listing"
	ResourceWorkspaceTop      = "workspace_top"
	ResourceWorkspacePathInfo = "workspace_path_info"
)

// Resource identifies what a page shows, so a client can re-fetch the same
// content from the JSON API.
type Resource struct {
	Kind        string `json:"kind"`
	WorkspaceID int64  `json:"workspace_id,omitempty"`
	Commit      string `json:"commit,omitempty"`
	Path        string `json:"path,omitempty"`
}

// AppState is the initial state embedded into every page. Content holds the
// exact JSON API body for the resource, or null.
type AppState struct {
	Resource Resource        `json:"resource"`
	Content  json.RawMessage `json:"content"`
}

const (
	stateOpen  = `<script type="application/json" id="app-state">`
	stateClose = `</script>`
)

// EncodeState serializes the page state for embedding. content must be a
// compact JSON document (as produced by encoding/json) or empty.
func EncodeState(resource Resource, content []byte) (template.JS, error) {
	state := AppState{Resource: resource}
	if len(content) > 0 {
		state.Content = json.RawMessage(bytes.TrimRight(content, "\n"))
	}
	out, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encode page state: %w", err)
	}
	return template.JS(out), nil
}

// ExtractState finds and decodes the state embedded in a rendered page.
func ExtractState(page []byte) (*AppState, error) {
	start := bytes.Index(page, []byte(stateOpen))
	if start < 0 {
		return nil, errors.New("page has no embedded state")
	}
	rest := page[start+len(stateOpen):]
	end := bytes.Index(rest, []byte(stateClose))
	if end < 0 {
		return nil, errors.New("unterminated embedded state")
	}
	var state AppState
	if err := json.Unmarshal(rest[:end], &state); err != nil {
		return nil, fmt.Errorf("decode embedded state: %w", err)
	}
	return &state, nil
}
