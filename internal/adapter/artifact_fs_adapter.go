// Package adapter contains filesystem and process adapters for the SignFinder CLI.
package adapter

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	m "signfinder.dev/pkg/signfinder/internal/model"
)

// ArtifactFSAdapter abstracts the filesystem operations the lineage store
// needs for backups and output artifacts, so store logic can be tested
// against a temporary directory or a fake.
//
//nolint:interfacebloat // Keeps the store free of direct os access.
type ArtifactFSAdapter interface {
	// ReadFile loads a file from disk and returns its contents.
	ReadFile(ctx context.Context, path m.Path) ([]byte, error)

	// WriteFile writes content to a file, creating parent directories.
	WriteFile(ctx context.Context, path m.Path, content []byte, perm os.FileMode) error

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(ctx context.Context, path m.Path) error

	// FileInfo returns metadata for a path.
	FileInfo(ctx context.Context, path m.Path) (os.FileInfo, error)

	// Remove deletes a single file. A missing file is not an error.
	Remove(ctx context.Context, path m.Path) error

	// RemoveEmptyDir deletes a directory only when it is empty. It reports
	// whether the directory was removed.
	RemoveEmptyDir(ctx context.Context, path m.Path) (bool, error)

	// AbsPath resolves path to an absolute, cleaned form with ~ and
	// environment variables expanded.
	AbsPath(ctx context.Context, path string) (m.Path, error)

	// JoinPath joins path elements into a single path.
	JoinPath(ctx context.Context, elem ...string) m.Path
}

// LocalArtifactFSAdapter is the os backed ArtifactFSAdapter.
type LocalArtifactFSAdapter struct{}

// NewLocalArtifactFSAdapter constructs a LocalArtifactFSAdapter.
func NewLocalArtifactFSAdapter() *LocalArtifactFSAdapter {
	return &LocalArtifactFSAdapter{}
}

// ReadFile loads file contents from disk.
func (a *LocalArtifactFSAdapter) ReadFile(ctx context.Context, path m.Path) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// #nosec G304 - reading operator selected files is the point of the tool
	return os.ReadFile(string(path))
}

// WriteFile writes content to a file with the given permissions.
func (a *LocalArtifactFSAdapter) WriteFile(ctx context.Context, path m.Path, content []byte, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return os.WriteFile(string(path), content, perm)
}

// MkdirAll creates a directory tree.
func (a *LocalArtifactFSAdapter) MkdirAll(ctx context.Context, path m.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return os.MkdirAll(string(path), 0o750)
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalArtifactFSAdapter) FileInfo(ctx context.Context, path m.Path) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return os.Stat(string(path))
}

// Remove deletes a file, ignoring files that are already gone.
func (a *LocalArtifactFSAdapter) Remove(_ context.Context, path m.Path) error {
	info, err := os.Lstat(string(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}

	if info.IsDir() {
		return &fs.PathError{Op: "remove", Path: string(path), Err: errors.New("is a directory")}
	}

	return os.Remove(string(path))
}

// RemoveEmptyDir removes path if it is an empty directory.
func (a *LocalArtifactFSAdapter) RemoveEmptyDir(_ context.Context, path m.Path) (bool, error) {
	entries, err := os.ReadDir(string(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	if len(entries) > 0 {
		return false, nil
	}

	if err := os.Remove(string(path)); err != nil {
		return false, err
	}

	return true, nil
}

// AbsPath expands ~ and $VARS, strips quotes and returns an absolute path.
func (a *LocalArtifactFSAdapter) AbsPath(_ context.Context, path string) (m.Path, error) {
	path = strings.Trim(path, `"'`)
	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return m.Path(abs), nil
}

// JoinPath joins path elements into a single path.
func (a *LocalArtifactFSAdapter) JoinPath(_ context.Context, elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
