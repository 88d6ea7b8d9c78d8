// Package project reads and writes the files a shader project is made of:
// shader sources referenced by pipeline items and the YAML manifest that
// describes the pipeline itself.
//
// Paths stored in a project are relative to the project directory.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrReadOnly is returned when saving through a loader without a directory.
var ErrReadOnly = errors.New("project: loader is read-only")

// Loader resolves project-relative paths.
type Loader struct {
	dir  string
	fsys fs.FS
}

// Open returns a loader for the project rooted at dir.
func Open(dir string) (*Loader, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("project: resolve %s: %w", dir, err)
	}
	return &Loader{dir: abs, fsys: os.DirFS(abs)}, nil
}

// FromFS returns a read-only loader over fsys.
func FromFS(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// Dir returns the project directory, or "" for FromFS loaders.
func (l *Loader) Dir() string { return l.dir }

// ReadFile reads a project-relative file.
func (l *Loader) ReadFile(rel string) ([]byte, error) {
	name, err := l.fsName(rel)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("project: read %s: %w", rel, err)
	}
	return data, nil
}

// LoadProjectFile returns the text of a project-relative file. Any failure
// yields the empty string; compiling empty text then fails naturally.
func (l *Loader) LoadProjectFile(rel string) string {
	data, err := l.ReadFile(rel)
	if err != nil {
		return ""
	}
	return string(data)
}

// SaveProjectFile writes text to a project-relative file, creating parent
// directories as needed.
func (l *Loader) SaveProjectFile(rel, text string) error {
	if l.dir == "" {
		return ErrReadOnly
	}
	p := l.ProjectPath(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("project: save %s: %w", rel, err)
	}
	if err := os.WriteFile(p, []byte(text), 0o644); err != nil { //nolint:gosec // project sources are user files
		return fmt.Errorf("project: save %s: %w", rel, err)
	}
	return nil
}

// ProjectPath returns the absolute path of a project-relative path.
func (l *Loader) ProjectPath(rel string) string {
	if filepath.IsAbs(rel) || l.dir == "" {
		return rel
	}
	return filepath.Join(l.dir, filepath.FromSlash(rel))
}

// RelativePath converts an absolute path to a project-relative one using
// forward slashes. Paths outside the project are returned unchanged.
func (l *Loader) RelativePath(abs string) string {
	if l.dir == "" {
		return filepath.ToSlash(abs)
	}
	rel, err := filepath.Rel(l.dir, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return filepath.ToSlash(rel)
}

func (l *Loader) fsName(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		r := l.RelativePath(rel)
		if filepath.IsAbs(r) {
			return "", fmt.Errorf("project: %s is outside the project", rel)
		}
		rel = r
	}
	name := path.Clean(filepath.ToSlash(rel))
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("project: invalid path %q", rel)
	}
	return name, nil
}
