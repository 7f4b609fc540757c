package docstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Replaceable for testing error paths.
var (
	osCreateTemp = os.CreateTemp
	osChmod      = os.Chmod
	osRename     = os.Rename
	fileClose    = func(f *os.File) error { return f.Close() }
)

// atomicWrite writes data to path via a temp file in the same directory
// followed by a rename.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp, err := osCreateTemp(filepath.Dir(path), ".cockpit-tmp-*")
	if err != nil {
		return fmt.Errorf("atomic write: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpName)
		}
	}()

	_, writeErr := tmp.Write(data)
	closeErr := fileClose(tmp)
	if writeErr != nil {
		return fmt.Errorf("atomic write: write: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("atomic write: close: %w", closeErr)
	}

	if err := osChmod(tmpName, perm); err != nil {
		return fmt.Errorf("atomic write: chmod: %w", err)
	}
	if err := osRename(tmpName, path); err != nil {
		return fmt.Errorf("atomic write: rename: %w", err)
	}

	success = true
	return nil
}
