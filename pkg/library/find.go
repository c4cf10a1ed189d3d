package library

import (
	"os"
	"path/filepath"
)

// FindArchive locates what static-php-cli (or a manual download) left in
// downloadsDir for s. It checks, in order, the known archive names, the glob
// patterns, and finally a directory named after the library. The returned
// path may be a directory.
func FindArchive(downloadsDir string, s Spec) (string, bool) {
	for _, name := range s.Files {
		p := filepath.Join(downloadsDir, name)
		if info, err := os.Stat(p); err == nil && (info.IsDir() || info.Size() > 0) {
			return p, true
		}
	}

	for _, pattern := range s.Patterns {
		matches, err := filepath.Glob(filepath.Join(downloadsDir, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
				return m, true
			}
		}
	}

	dir := filepath.Join(downloadsDir, s.Name)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, true
	}
	return "", false
}
