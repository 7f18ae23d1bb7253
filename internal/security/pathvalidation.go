// Package security guards filesystem paths derived from untrusted inputs,
// such as model references in asset descriptors.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// WithinRoot verifies that path resolves inside root. Relative components
// and symlinks are resolved first, so a link pointing outside root fails
// even when the textual path looks contained. Root must exist; path may
// not exist yet, in which case its nearest existing ancestor anchors the
// check.
func WithinRoot(path, root string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	canonicalRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return fmt.Errorf("resolve root symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonicalRoot, canonicalize(absPath))
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path %s escapes %s", path, root)
	}
	return nil
}

// canonicalize resolves symlinks along absPath. When the path does not
// exist, the nearest existing ancestor is resolved and the remaining
// components rejoined, so a symlinked parent cannot smuggle the path
// outside.
func canonicalize(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}
	for dir := filepath.Dir(absPath); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, err := filepath.Rel(dir, absPath)
			if err != nil {
				return absPath
			}
			return filepath.Join(resolved, rel)
		}
		if dir == filepath.Dir(dir) {
			return absPath
		}
	}
}
