package file

import (
	"os"
	"path/filepath"
	"time"
)

// FindOlderThan returns all regular files under dir whose modification
// time is before cutoff.
func FindOlderThan(dir string, cutoff time.Time) ([]string, error) {
	var stale []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo,
		err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && info.ModTime().Before(cutoff) {
			stale = append(stale, path)
		}
		return nil
	})

	return stale, err
}

// RemoveAll deletes the given files and returns how many were actually
// removed. Missing files are not counted as failures.
func RemoveAll(paths []string) int {
	removed := 0
	for _, path := range paths {
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed
}
