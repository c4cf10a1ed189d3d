package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxPasses bounds ExpandNested for archives that unpack into themselves.
const maxPasses = 16

// ExpandNested extracts every archive found at the top level of dir into dir
// itself, deleting each archive once its contents are in place. Archives that
// appear as a result are handled in the next pass. It stops when no archives
// remain or a pass makes no progress, and returns how many were expanded.
// When anything was expanded, dir is flattened afterwards.
//
// Archives that fail to expand are left in place and reported in the error.
func (x *Extractor) ExpandNested(ctx context.Context, dir string) (int, error) {
	expanded := 0
	failed := map[string]error{}

	for pass := 0; pass < maxPasses; pass++ {
		pending, err := listArchives(dir, failed)
		if err != nil {
			return expanded, err
		}
		if len(pending) == 0 {
			break
		}

		progress := false
		for _, name := range pending {
			if err := ctx.Err(); err != nil {
				return expanded, err
			}
			path := filepath.Join(dir, name)
			x.Logger.Info("expanding nested archive", "archive", name, "dir", dir)
			if err := x.expandInPlace(ctx, path, dir); err != nil {
				x.Logger.Warn("nested archive not expanded", "archive", name, "err", err)
				failed[name] = err
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				failed[name] = err
				continue
			}
			expanded++
			progress = true
		}
		if !progress {
			break
		}
	}

	if expanded > 0 {
		if _, err := Flatten(dir); err != nil {
			return expanded, err
		}
	}
	if len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for n := range failed {
			names = append(names, n)
		}
		sort.Strings(names)
		return expanded, fmt.Errorf("could not expand %s: %w", strings.Join(names, ", "), failed[names[0]])
	}
	return expanded, nil
}

func (x *Extractor) expandInPlace(ctx context.Context, path, dir string) error {
	scratch, err := os.MkdirTemp(dir, ".expand-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	if _, err := Unpack(ctx, path, scratch); err != nil {
		return err
	}
	root := scratch
	entries, err := os.ReadDir(scratch)
	if err != nil {
		return err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		root = filepath.Join(scratch, entries[0].Name())
	}
	return moveContents(root, dir)
}

func listArchives(dir string, skip map[string]error) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsArchive(e.Name()) {
			continue
		}
		if _, bad := skip[e.Name()]; bad {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// Repair walks every library directory under sourceDir and makes sure it
// holds sources: nested archives are expanded, and a directory left with
// nothing but archives (or nothing at all) is re-extracted from the first
// file in downloadsDir whose name starts with the library name. micro is
// skipped; static-php-cli's doctor manages it.
//
// It returns the libraries re-extracted from downloads.
func (x *Extractor) Repair(ctx context.Context, sourceDir, downloadsDir string) ([]string, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, err
	}

	var restored []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "micro" || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		lib := e.Name()
		dir := filepath.Join(sourceDir, lib)

		if _, err := x.ExpandNested(ctx, dir); err != nil {
			x.Logger.Warn("nested expansion incomplete", "lib", lib, "err", err)
		}
		if _, err := Flatten(dir); err != nil {
			return restored, err
		}
		if hasSources(dir) {
			continue
		}

		archive := matchDownload(downloadsDir, lib)
		if archive == "" {
			x.Logger.Warn("no archive in downloads", "lib", lib)
			continue
		}
		out := x.Extract(ctx, archive, dir, lib)
		if !out.OK {
			return restored, out.Err
		}
		if _, err := x.ExpandNested(ctx, dir); err != nil {
			x.Logger.Warn("nested expansion incomplete", "lib", lib, "err", err)
		}
		restored = append(restored, lib)
	}
	return restored, nil
}

// hasSources reports whether dir contains anything besides archives.
func hasSources(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !IsArchive(e.Name()) {
			return true
		}
	}
	return false
}

func matchDownload(downloadsDir, lib string) string {
	entries, err := os.ReadDir(downloadsDir)
	if err != nil {
		return ""
	}
	prefix := strings.ToLower(lib)
	for _, e := range entries {
		if e.IsDir() || e.Name() == "micro" || !IsArchive(e.Name()) {
			continue
		}
		if strings.HasPrefix(strings.ToLower(e.Name()), prefix) {
			return filepath.Join(downloadsDir, e.Name())
		}
	}
	return ""
}
