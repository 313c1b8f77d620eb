package intake

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Discover lists every regular file under root, recursively. Returned
// paths are root joined with the file's relative path, in lexical walk
// order. Symlinks are neither followed nor listed.
func Discover(root string) ([]string, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat target: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("target is not a directory: %s", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk target %s: %w", root, err)
	}
	return files, nil
}
