package gitstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const gitModulesFile = ".gitmodules"

// Submodules parses the .gitmodules file at the root of tree and returns the
// declared submodules keyed by their repository path. A tree without a
// .gitmodules file yields an empty map.
func Submodules(root *object.Tree) (map[string]*config.Submodule, error) {
	out := map[string]*config.Submodule{}
	if root == nil {
		return out, nil
	}
	file, err := root.File(gitModulesFile)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
			return out, nil
		}
		return nil, fmt.Errorf("read %s: %w", gitModulesFile, err)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", gitModulesFile, err)
	}
	modules := config.NewModules()
	if err := modules.Unmarshal([]byte(content)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", gitModulesFile, err)
	}
	for _, sm := range modules.Submodules {
		path := strings.Trim(sm.Path, "/")
		if path == "" {
			continue
		}
		out[path] = sm
	}
	return out, nil
}
