// Package archive turns downloaded library archives into normalized source
// trees.
//
// Extraction always goes through a scratch directory created next to the
// target: the archive is unpacked there in full, the directory holding the
// sources is located, and only then is the target replaced. A target left
// holding a single wrapping directory is then flattened. A failed
// extraction therefore never leaves a half-written target behind.
//
// Supported formats are .tar.gz/.tgz, .tar.xz, .tar.bz2, .tar and .zip/.jar,
// all read in-process. An optional 7-Zip executable can be configured as a
// fallback for archives the in-process readers reject.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Abdallah-Tah/phpBuilder/pkg/command"
	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
	"github.com/Abdallah-Tah/phpBuilder/pkg/fsops"
	"github.com/Abdallah-Tah/phpBuilder/pkg/observability"
)

// ErrUnsupportedFormat is returned for files whose suffix is not a known
// archive format.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// Outcome is the result of one extraction.
type Outcome struct {
	OK    bool   // Extraction succeeded and Dir is populated
	Dir   string // Final source directory
	Files int    // Regular files in Dir
	Err   error  // Failure detail when !OK
}

// Extractor extracts archives into library source directories.
type Extractor struct {
	Logger *log.Logger
	Ops    *fsops.Ops

	// SevenZip is the path of a 7z executable used when in-process extraction
	// fails. Empty disables the fallback.
	SevenZip string
	// Runner runs SevenZip.
	Runner command.Runner
}

// NewExtractor creates an Extractor. A nil ops or logger gets a default.
func NewExtractor(ops *fsops.Ops, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if ops == nil {
		ops = fsops.New(nil, logger)
	}
	return &Extractor{Logger: logger, Ops: ops}
}

// Extract unpacks archivePath and makes targetDir hold exactly the library
// sources. lib is used to pick the source directory when the archive
// contains several top-level directories.
//
// On an unsupported format the target is left untouched. Failures are
// reported through Outcome.Err; Extract never panics on bad input.
func (x *Extractor) Extract(ctx context.Context, archivePath, targetDir, lib string) Outcome {
	name := filepath.Base(archivePath)
	start := time.Now()
	observability.Extract().OnExtractStart(ctx, lib, name)

	out := x.extract(ctx, archivePath, targetDir, lib)

	observability.Extract().OnExtractComplete(ctx, lib, name, out.Files, time.Since(start), out.Err)
	if out.Err != nil {
		x.Logger.Error("extraction failed", "lib", lib, "archive", name, "err", out.Err)
	} else {
		x.Logger.Info("extracted", "lib", lib, "archive", name, "files", out.Files, "dir", out.Dir)
	}
	return out
}

func (x *Extractor) extract(ctx context.Context, archivePath, targetDir, lib string) Outcome {
	name := filepath.Base(archivePath)
	kind := Classify(name)
	if kind == Unknown {
		return failed(fmt.Errorf("%w: %s", ErrUnsupportedFormat, name))
	}
	if _, err := os.Stat(archivePath); err != nil {
		return failed(perrors.Wrap(perrors.ErrCodeNotFound, err, "archive %s", name))
	}

	parent := filepath.Dir(targetDir)
	if err := fsops.EnsureDir(parent); err != nil {
		return failed(err)
	}
	scratch, err := os.MkdirTemp(parent, "."+filepath.Base(targetDir)+".extract-")
	if err != nil {
		return failed(perrors.Wrap(perrors.ErrCodeFileSystem, err, "create scratch directory"))
	}
	defer func() {
		if err := x.Ops.RemoveAll(context.WithoutCancel(ctx), scratch); err != nil {
			x.Logger.Warn("scratch directory left behind", "dir", scratch, "err", err)
		}
	}()

	x.Logger.Debug("unpacking", "archive", name, "kind", kind, "scratch", scratch)
	if _, err := Unpack(ctx, archivePath, scratch); err != nil {
		if x.SevenZip == "" || x.Runner == nil || ctx.Err() != nil {
			return failed(perrors.Wrap(perrors.ErrCodeBuild, err, "extract %s", name))
		}
		x.Logger.Warn("in-process extraction failed, trying 7-Zip", "archive", name, "err", err)
		if err := resetDir(scratch); err != nil {
			return failed(perrors.Wrap(perrors.ErrCodeFileSystem, err, "reset scratch directory"))
		}
		if err := x.sevenZip(ctx, archivePath, scratch, kind); err != nil {
			return failed(err)
		}
	}

	root := SourceRoot(scratch, lib)
	if err := x.Ops.RemoveAll(ctx, targetDir); err != nil {
		return failed(err)
	}
	if err := fsops.EnsureDir(targetDir); err != nil {
		return failed(err)
	}
	if err := moveContents(root, targetDir); err != nil {
		return failed(perrors.Wrap(perrors.ErrCodeFileSystem, err, "populate %s", targetDir))
	}
	if _, err := Flatten(targetDir); err != nil {
		return failed(perrors.Wrap(perrors.ErrCodeFileSystem, err, "normalize %s", targetDir))
	}

	return Outcome{OK: true, Dir: targetDir, Files: countFiles(targetDir)}
}

func failed(err error) Outcome {
	return Outcome{Err: err}
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

func countFiles(dir string) int {
	n := 0
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err == nil && d.Type().IsRegular() {
			n++
		}
		return nil
	})
	return n
}

// sevenZip extracts with the external 7z binary. Compressed tarballs take
// two stages: the outer layer yields a .tar which is then unpacked in place.
func (x *Extractor) sevenZip(ctx context.Context, archivePath, scratch string, kind Kind) error {
	name := filepath.Base(archivePath)
	if err := x.run7z(ctx, archivePath, scratch); err != nil {
		return perrors.Wrap(perrors.ErrCodeBuild, err, "7-Zip extract %s", name)
	}
	if !kind.IsTar() || kind == Tar {
		return nil
	}

	inner, err := filepath.Glob(filepath.Join(scratch, "*.tar"))
	if err != nil || len(inner) != 1 {
		return perrors.Build("7-Zip extract %s: expected one inner tar, found %d", name, len(inner))
	}
	if err := x.run7z(ctx, inner[0], scratch); err != nil {
		return perrors.Wrap(perrors.ErrCodeBuild, err, "7-Zip extract %s", filepath.Base(inner[0]))
	}
	return os.Remove(inner[0])
}

func (x *Extractor) run7z(ctx context.Context, archivePath, dest string) error {
	res, err := x.Runner.Run(ctx, command.New(x.SevenZip, "x", archivePath, "-o"+dest, "-y"))
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("7z exited with code %d", res.ExitCode)
	}
	return nil
}
