// Package project maps changed paths onto the projects that own them.
package project

import (
	"fmt"
	"path/filepath"

	"timetrack/internal/errors"
	"timetrack/internal/paths"
)

// Attribution is the project a path belongs to.
type Attribution struct {
	Project string
	Root    string
	// Dir is Root joined with Project.
	Dir string
}

// Attributor resolves paths against the configured roots. A project is the
// first path component below a root.
type Attributor struct {
	roots    []string
	excluded map[string]struct{}
}

// NewAttributor creates an attributor. Excluded paths, typically the tracker's
// own data files, are never attributed.
func NewAttributor(roots []string, excluded ...string) *Attributor {
	a := &Attributor{
		roots:    make([]string, 0, len(roots)),
		excluded: make(map[string]struct{}, len(excluded)),
	}
	for _, r := range roots {
		a.roots = append(a.roots, filepath.Clean(r))
	}
	for _, e := range excluded {
		if e != "" {
			a.excluded[filepath.Clean(e)] = struct{}{}
		}
	}
	return a
}

// Roots returns the configured roots.
func (a *Attributor) Roots() []string {
	out := make([]string, len(a.roots))
	copy(out, a.roots)
	return out
}

// Attribute returns the project owning path. It reports false for excluded
// paths and for a root itself. A path under no configured root means the
// watcher and the configuration disagree, which is reported as an error.
func (a *Attributor) Attribute(path string) (Attribution, bool, error) {
	clean := filepath.Clean(path)
	if _, ok := a.excluded[clean]; ok {
		return Attribution{}, false, nil
	}

	for _, root := range a.roots {
		rel, ok := paths.RelativeTo(clean, root)
		if !ok {
			continue
		}
		if rel == "." {
			return Attribution{}, false, nil
		}
		name := paths.FirstComponent(rel)
		return Attribution{
			Project: name,
			Root:    root,
			Dir:     filepath.Join(root, name),
		}, true, nil
	}

	return Attribution{}, false, errors.New(
		errors.ConfigInvariantViolation,
		fmt.Sprintf("path %s is not under any tracked root", path),
	).WithDetails(map[string]interface{}{
		"path":  path,
		"roots": a.roots,
	})
}
