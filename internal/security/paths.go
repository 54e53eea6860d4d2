// Package security keeps file access driven by stored or user supplied names
// inside the directories it belongs to.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned when a path resolves outside its base
// directory, whether through ".." components or a symlink.
var ErrOutsideDirectory = errors.New("path escapes directory")

// ResolveWithin joins name onto dir and returns the joined path when it stays
// inside dir. Absolute names are rejected. Neither dir nor the file needs to
// exist yet.
func ResolveWithin(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty file name")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s is absolute", ErrOutsideDirectory, name)
	}
	path := filepath.Join(dir, name)
	if err := ValidateWithin(path, dir); err != nil {
		return "", err
	}
	return path, nil
}

// ValidateWithin checks that path, with symlinks resolved, lies inside dir.
func ValidateWithin(path, dir string) error {
	canonPath, err := canonical(path)
	if err != nil {
		return err
	}
	canonDir, err := canonical(dir)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(canonDir, canonPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutsideDirectory, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s is outside %s", ErrOutsideDirectory, path, dir)
	}
	return nil
}

// canonical resolves symlinks in the deepest existing ancestor of p and
// appends the part that does not exist yet.
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	rest := ""
	for cur := abs; ; {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(resolved, rest), nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}
