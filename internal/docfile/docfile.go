// Package docfile writes the generated context document.
package docfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Mode is the permission given to written documents.
const Mode os.FileMode = 0644

// Write replaces path with content. The content goes to a temp file in the
// same directory first and is renamed into place, so a reader never sees a
// partial document. Missing parent directories are created.
func Write(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create document directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp document: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Chmod(Mode); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to set document mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp document: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to rename temp document: %w", err)
	}
	return nil
}
