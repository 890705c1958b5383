package file

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// FindRecentAfter walks dir and returns files modified after startTime
// whose extension matches ext (case-insensitive). An empty ext matches all.
func FindRecentAfter(dir string, startTime time.Time, ext string) ([]string, error) {
	var recentFiles []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !HasExt(path, ext) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(startTime) {
			recentFiles = append(recentFiles, path)
		}
		return nil
	})

	return recentFiles, err
}

// HasExt reports whether path ends with ext, ignoring case.
func HasExt(path, ext string) bool {
	if ext == "" {
		return true
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.EqualFold(filepath.Ext(path), ext)
}
