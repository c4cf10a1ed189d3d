package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Abdallah-Tah/phpBuilder/pkg/fsops"
)

// SourceRoot picks the directory inside an extraction root that holds the
// library sources:
//   - a subdirectory named lib, or starting with "lib-" (case-insensitive)
//   - otherwise the sole entry, when that entry is a directory
//   - otherwise root itself
func SourceRoot(root, lib string) string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return root
	}

	want := strings.ToLower(lib)
	if want != "" {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			name := strings.ToLower(e.Name())
			if name == want || strings.HasPrefix(name, want+"-") {
				return filepath.Join(root, e.Name())
			}
		}
	}

	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(root, entries[0].Name())
	}
	return root
}

// Flatten collapses a single wrapping directory: when dir holds exactly one
// entry and it is a directory, that directory's contents move up into dir and
// the emptied wrapper is removed. It reports whether anything moved.
func Flatten(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return false, nil
	}

	wrapper := filepath.Join(dir, entries[0].Name())
	// The wrapper may contain an entry with its own name; park it first so the
	// move cannot collide.
	parked := wrapper + ".flatten"
	if err := os.Rename(wrapper, parked); err != nil {
		return false, fmt.Errorf("flatten %s: %w", dir, err)
	}
	if err := moveContents(parked, dir); err != nil {
		return false, fmt.Errorf("flatten %s: %w", dir, err)
	}
	if err := os.Remove(parked); err != nil {
		return true, fmt.Errorf("flatten %s: %w", dir, err)
	}
	return true, nil
}

// moveContents moves every entry of src into dst, replacing existing entries
// of the same name.
func moveContents(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		to := filepath.Join(dst, e.Name())
		if err := os.RemoveAll(to); err != nil {
			return err
		}
		if err := fsops.Move(filepath.Join(src, e.Name()), to); err != nil {
			return err
		}
	}
	return nil
}
