package archive

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"

	"github.com/Abdallah-Tah/phpBuilder/pkg/fsops"
)

// ErrUnsafePath is returned for archive entries that would land outside the
// destination directory.
var ErrUnsafePath = errors.New("entry escapes destination")

// Unpack extracts the archive at path into dest, which is created if needed.
// It returns the number of regular files written.
func Unpack(ctx context.Context, path, dest string) (int, error) {
	kind := Classify(path)
	if kind == Unknown {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, err
	}
	if kind == Zip {
		return unpackZip(ctx, path, dest)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var r io.Reader
	switch kind {
	case TarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return 0, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	case TarXz:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return 0, fmt.Errorf("xz reader: %w", err)
		}
		r = xzr
	case TarBz2:
		r = bzip2.NewReader(f)
	default:
		r = f
	}
	return unpackTar(ctx, r, dest)
}

func unpackTar(ctx context.Context, r io.Reader, dest string) (int, error) {
	tr := tar.NewReader(r)
	files := 0
	var dirs []dirTime

	for {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return files, fmt.Errorf("tar read: %w", err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return files, err
		}
		if target == dest {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, hdr.FileInfo().Mode().Perm()|0o700); err != nil {
				return files, err
			}
			dirs = append(dirs, dirTime{target, hdr.ModTime})
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm(), hdr.ModTime); err != nil {
				return files, err
			}
			files++
		case tar.TypeSymlink:
			if err := checkLink(dest, target, hdr.Linkname); err != nil {
				return files, err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return files, err
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return files, fmt.Errorf("symlink %s: %w", hdr.Name, err)
			}
		case tar.TypeLink:
			src, err := safeJoin(dest, hdr.Linkname)
			if err != nil {
				return files, err
			}
			if err := fsops.CopyFile(src, target, nil); err != nil {
				return files, fmt.Errorf("hardlink %s: %w", hdr.Name, err)
			}
			files++
		default:
			// PAX global headers, devices and fifos carry nothing a source
			// tree needs.
		}
	}

	// Directory mtimes are restored last since writing children bumps them.
	for _, d := range dirs {
		_ = os.Chtimes(d.path, d.mtime, d.mtime)
	}
	return files, nil
}

func unpackZip(ctx context.Context, path, dest string) (int, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("zip reader: %w", err)
	}
	defer zr.Close()

	files := 0
	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		target, err := safeJoin(dest, zf.Name)
		if err != nil {
			return files, err
		}
		if target == dest {
			continue
		}

		mode := zf.Mode()
		switch {
		case zf.FileInfo().IsDir():
			if err := os.MkdirAll(target, mode.Perm()|0o700); err != nil {
				return files, err
			}
		case mode&fs.ModeSymlink != 0:
			link, err := readZipString(zf)
			if err != nil {
				return files, err
			}
			if err := checkLink(dest, target, link); err != nil {
				return files, err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return files, err
			}
			_ = os.Remove(target)
			if err := os.Symlink(link, target); err != nil {
				return files, fmt.Errorf("symlink %s: %w", zf.Name, err)
			}
		default:
			perm := mode.Perm()
			if perm == 0 {
				perm = 0o644
			}
			rc, err := zf.Open()
			if err != nil {
				return files, fmt.Errorf("open %s: %w", zf.Name, err)
			}
			err = writeFile(target, rc, perm, zf.Modified)
			rc.Close()
			if err != nil {
				return files, err
			}
			files++
		}
	}
	return files, nil
}

func readZipString(zf *zip.File) (string, error) {
	rc, err := zf.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, 4096))
	return string(b), err
}

type dirTime struct {
	path  string
	mtime time.Time
}

func writeFile(target string, r io.Reader, perm fs.FileMode, mtime time.Time) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	_ = os.Remove(target)
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(target), err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	if !mtime.IsZero() {
		_ = os.Chtimes(target, mtime, mtime)
	}
	return nil
}

// safeJoin resolves an archive entry name below root. Absolute names and
// names climbing out of root are rejected.
func safeJoin(root, name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

// checkLink rejects symlinks whose target is absolute or resolves outside root.
func checkLink(root, target, link string) error {
	if filepath.IsAbs(link) || strings.HasPrefix(link, "/") {
		return fmt.Errorf("%w: link %s -> %s", ErrUnsafePath, filepath.Base(target), link)
	}
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(link))
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: link %s -> %s", ErrUnsafePath, filepath.Base(target), link)
	}
	return nil
}
