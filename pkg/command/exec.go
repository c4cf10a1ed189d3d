package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
)

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Logger *log.Logger
}

// NewExecRunner creates a runner that logs to logger.
// If logger is nil, output is discarded.
func NewExecRunner(logger *log.Logger) *ExecRunner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ExecRunner{Logger: logger}
}

// Run starts cmd, streams its output to the logger and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	r.Logger.Info("running command", "cmd", cmd.String(), "dir", cmd.Dir)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = cmd.Env.Environ(os.Environ())
	}

	stdout := &lineWriter{emit: func(line string) { r.Logger.Info(line) }}
	stderr := &lineWriter{emit: func(line string) { r.Logger.Warn(line) }}
	c.Stdout = stdout
	c.Stderr = stderr

	start := time.Now()
	err := c.Run()
	stdout.Flush()
	stderr.Flush()

	res := Result{
		Stdout:   stdout.Lines(),
		Stderr:   stderr.Lines(),
		Duration: time.Since(start),
	}

	if err == nil {
		r.Logger.Debug("command finished", "cmd", cmd.Name, "duration", res.Duration.Round(time.Millisecond))
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		r.Logger.Warn("command failed", "cmd", cmd.Name, "exit", res.ExitCode)
		return res, nil
	}
	res.ExitCode = -1
	return res, perrors.Wrap(perrors.ErrCodeCommand, err, "start %s", cmd.Name)
}

// LookPath reports whether name resolves to an executable on PATH.
func (r *ExecRunner) LookPath(name string) (string, bool) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return p, true
}

var _ Runner = (*ExecRunner)(nil)

// lineWriter splits written bytes into lines, emitting each complete line
// immediately and retaining all of them. It is safe for the concurrent
// writes exec performs when Stdout and Stderr share a pipe.
type lineWriter struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	lines []string
	emit  func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		data := w.buf.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		w.push(string(data[:i]))
		w.buf.Next(i + 1)
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.push(w.buf.String())
		w.buf.Reset()
	}
}

func (w *lineWriter) push(line string) {
	line = strings.TrimRight(line, "\r")
	w.lines = append(w.lines, line)
	if w.emit != nil && line != "" {
		w.emit(line)
	}
}

// Lines returns the captured lines.
func (w *lineWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lines...)
}
