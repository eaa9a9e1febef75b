package types

import (
	"path/filepath"
	"strings"
)

// ResolvePackagePath maps a user-supplied package reference to the key of a
// workspace package. It accepts absolute directory paths, paths relative to
// the workspace root, full import paths, and bare package names (the last
// only when unambiguous). Unresolvable input is returned unchanged so the
// caller can report it.
func ResolvePackagePath(workspace *Workspace, userPath string) string {
	if userPath == "" || userPath == "." {
		if _, ok := workspace.Packages[workspace.RootPath]; ok {
			return workspace.RootPath
		}
		return userPath
	}

	if _, ok := workspace.Packages[userPath]; ok {
		return userPath
	}

	if key, ok := workspace.ImportToPath[userPath]; ok {
		return key
	}

	rel := filepath.Join(workspace.RootPath, filepath.FromSlash(userPath))
	if _, ok := workspace.Packages[rel]; ok {
		return rel
	}

	// Bare package name, e.g. "analysis" for ".../pkg/analysis". Ambiguous
	// names stay unresolved rather than guessing.
	if !strings.ContainsAny(userPath, "/\\") {
		var matched string
		count := 0
		for key, pkg := range workspace.Packages {
			if pkg.Name == userPath {
				matched = key
				count++
			}
		}
		if count == 1 {
			return matched
		}
	}

	return userPath
}
