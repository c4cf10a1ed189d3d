// Package download acquires library archives.
//
// [Downloader] fetches one URL to one file with bounded retries, using the
// curl CLI when it is available and net/http otherwise. A transfer that
// leaves a missing or empty file counts as a failure regardless of what the
// tool reported.
//
// On top of it sit the fetch strategies. Each [Strategy] tries to get one
// library into the downloads directory:
//
//   - [ToolStrategy] asks static-php-cli (php bin/spc download <lib>)
//   - [ManualStrategy] walks the candidate URLs from the library table,
//     trying the mirror that worked last time first
//
// [Chain] runs strategies in order and stops at the first success.
// [Prefetch] fans a strategy out over many libraries with bounded
// concurrency.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Abdallah-Tah/phpBuilder/pkg/command"
	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
	"github.com/Abdallah-Tah/phpBuilder/pkg/httputil"
	"github.com/Abdallah-Tah/phpBuilder/pkg/observability"
)

// Transfer methods reported in Result.Method.
const (
	MethodCurl = "curl"
	MethodHTTP = "http"
)

// Result describes a finished acquisition.
type Result struct {
	OK       bool
	Path     string // Archive file, or a directory for pre-populated libraries
	Size     int64
	Source   string // URL or strategy that produced the file
	Method   string
	Attempts int
	// InPlace is set when the library's source directory was populated
	// directly and there is nothing left to extract.
	InPlace bool
	Err     error
}

func failure(err error) Result { return Result{Err: err} }

// Downloader fetches URLs to local files.
type Downloader struct {
	Runner     command.Runner
	Client     *http.Client
	Logger     *log.Logger
	Policy     httputil.Policy
	PreferHTTP bool // Skip curl even when it is on PATH
}

// NewDownloader creates a downloader that uses runner for curl.
// If logger is nil, output is discarded.
func NewDownloader(runner command.Runner, logger *log.Logger) *Downloader {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Downloader{
		Runner: runner,
		Client: httputil.NewClient(0),
		Logger: logger,
		Policy: httputil.DefaultPolicy,
	}
}

// Fetch downloads url to dest. Per-attempt failures are logged as warnings;
// the returned Result fails only after every attempt has.
func (d *Downloader) Fetch(ctx context.Context, url, dest string) Result {
	start := time.Now()
	method, curl := d.method()
	res := Result{Path: dest, Source: url, Method: method}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		res.Err = perrors.Wrap(perrors.ErrCodeFileSystem, err, "create %s", filepath.Dir(dest))
		return res
	}

	d.Logger.Info("downloading", "url", url, "dest", filepath.Base(dest), "method", method)
	err := httputil.Retry(ctx, d.Policy, func(attempt int) error {
		res.Attempts = attempt
		observability.Download().OnDownloadAttempt(ctx, url, attempt)

		var err error
		if curl != "" {
			err = d.curl(ctx, curl, url, dest)
		} else {
			err = d.http(ctx, url, dest)
		}
		if err == nil {
			res.Size, err = checkFile(dest)
		}
		if err == nil {
			return nil
		}

		_ = os.Remove(dest)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.Logger.Warn("download attempt failed", "url", url, "attempt", attempt, "of", max(d.Policy.Attempts, 1), "err", err)
		return httputil.Retryable(err)
	})

	if err != nil {
		res.Size = 0
		res.Err = perrors.Wrap(perrors.ErrCodeNetwork, err, "download %s", url)
	} else {
		res.OK = true
		d.Logger.Info("downloaded", "file", filepath.Base(dest), "size", res.Size, "attempts", res.Attempts)
	}
	observability.Download().OnDownloadComplete(ctx, url, res.Size, res.Attempts, time.Since(start), err)
	return res
}

func (d *Downloader) method() (string, string) {
	if d.PreferHTTP || d.Runner == nil {
		return MethodHTTP, ""
	}
	if path, ok := d.Runner.LookPath("curl"); ok {
		return MethodCurl, path
	}
	return MethodHTTP, ""
}

func (d *Downloader) curl(ctx context.Context, curl, url, dest string) error {
	res, err := d.Runner.Run(ctx, command.New(curl, "-L", "--fail", "-o", dest, url))
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("curl exited with status %d", res.ExitCode)
	}
	return nil
}

func (d *Downloader) http(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := d.Client
	if client == nil {
		client = httputil.NewClient(0)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(part)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return err
	}
	return os.Rename(part, dest)
}

func checkFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("no file written")
	}
	if err != nil {
		return 0, err
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("downloaded file is empty")
	}
	return info.Size(), nil
}
