// Package fsops provides the filesystem primitives the build pipeline relies
// on: recursive removal and copying that survive read-only files and, on
// Windows, fall back to PowerShell when the Go implementation gives up.
//
// Every operation tries, in order:
//  1. the plain Go implementation
//  2. the same operation after clearing read-only bits (RemoveAll only)
//  3. an OS-native command (PowerShell Remove-Item / Copy-Item on Windows)
//
// Only after all three fail is a FILESYSTEM_ERROR returned.
package fsops

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/Abdallah-Tah/phpBuilder/pkg/command"
	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
)

// Ops performs filesystem operations with fallbacks.
type Ops struct {
	Runner command.Runner
	Logger *log.Logger

	goos      string
	removeAll func(string) error
	copyTree  func(src, dst string) error
}

// New creates an Ops. runner is only used for the OS-native fallback and may
// be nil, which disables it.
func New(runner command.Runner, logger *log.Logger) *Ops {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Ops{
		Runner:    runner,
		Logger:    logger,
		goos:      runtime.GOOS,
		removeAll: os.RemoveAll,
		copyTree:  CopyTree,
	}
}

// RemoveAll removes path and everything below it. A missing path is not an
// error.
func (o *Ops) RemoveAll(ctx context.Context, path string) error {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return nil
	}

	err := o.removeAll(path)
	if err == nil {
		return nil
	}
	o.Logger.Warn("remove failed, clearing read-only bits", "path", path, "err", err)

	makeWritable(path)
	if err = o.removeAll(path); err == nil {
		return nil
	}

	if o.native() {
		o.Logger.Info("removing with PowerShell", "path", path)
		abs, _ := filepath.Abs(path)
		ps := "Remove-Item -LiteralPath '" + PSQuote(abs) + "' -Recurse -Force -ErrorAction Stop"
		res, runErr := o.Runner.Run(ctx, PowerShell(ps))
		if runErr == nil && res.OK() && !exists(path) {
			return nil
		}
	}
	return perrors.Wrap(perrors.ErrCodeFileSystem, err, "remove directory %s", path)
}

// CopyDir replaces dst with a recursive copy of src.
func (o *Ops) CopyDir(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeFileSystem, err, "source directory does not exist: %s", src)
	}
	if !info.IsDir() {
		return perrors.New(perrors.ErrCodeFileSystem, "source is not a directory: %s", src)
	}

	if err := o.RemoveAll(ctx, dst); err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return perrors.Wrap(perrors.ErrCodeFileSystem, err, "create %s", dst)
	}

	err = o.copyTree(src, dst)
	if err == nil {
		return nil
	}
	o.Logger.Warn("copy failed", "src", src, "dst", dst, "err", err)

	if o.native() {
		o.Logger.Info("copying with PowerShell", "src", src, "dst", dst)
		absSrc, _ := filepath.Abs(src)
		absDst, _ := filepath.Abs(dst)
		ps := "Copy-Item -Path '" + PSQuote(filepath.Join(absSrc, "*")) + "' -Destination '" + PSQuote(absDst) + "' -Recurse -Force -ErrorAction Stop"
		res, runErr := o.Runner.Run(ctx, PowerShell(ps))
		if runErr == nil && res.OK() {
			return nil
		}
	}
	return perrors.Wrap(perrors.ErrCodeFileSystem, err, "copy %s to %s", src, dst)
}

func (o *Ops) native() bool {
	if o.goos != "windows" || o.Runner == nil {
		return false
	}
	_, ok := o.Runner.LookPath("powershell")
	return ok
}

// PowerShell runs script non-interactively without loading a profile.
func PowerShell(script string) command.Command {
	return command.New("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
}

// PSQuote escapes s for a single-quoted PowerShell string.
func PSQuote(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\'' {
			out = append(out, '\'')
		}
		out = append(out, r)
	}
	return string(out)
}

func makeWritable(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		mode := os.FileMode(0o600)
		if d.IsDir() {
			mode = 0o700
		}
		_ = os.Chmod(path, mode)
		return nil
	})
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// EnsureDir creates path and any missing parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return perrors.Wrap(perrors.ErrCodeFileSystem, err, "create directory %s", path)
	}
	return nil
}

// IsEmptyDir reports whether path is a directory with no entries. A missing
// path counts as empty.
func IsEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
