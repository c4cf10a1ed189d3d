// Package command runs external tools (git, composer, curl, php, 7z) on
// behalf of the build pipeline.
//
// Commands never read configuration from, or write it to, the process
// environment. Every [Command] carries an explicit [Env] that is layered on
// top of the inherited environment only for that child process. This is
// how the concurrency hint (SPC_CONCURRENCY), the perl location (SPC_PERL)
// and the PATH entry for the perl shim reach static-php-cli.
//
// Output is captured line by line. Each line is forwarded to the logger as
// it arrives and is also kept in [Result] for callers that inspect it.
package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Env is a set of environment overrides for a single command.
// A nil Env is valid and adds nothing.
type Env map[string]string

// pathKey is the variable PrependPath edits.
const pathKey = "PATH"

// Clone returns an independent copy of e.
func (e Env) Clone() Env {
	out := make(Env, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// With returns a copy of e with key set to value.
func (e Env) With(key, value string) Env {
	out := e.Clone()
	out[key] = value
	return out
}

// PrependPath puts dir at the front of the PATH override, seeding it from the
// inherited PATH when no override exists yet. It reports whether dir was
// added; a dir already on the list is left alone so repeated calls never
// grow PATH.
func (e Env) PrependPath(dir string) bool {
	current, ok := e[pathKey]
	if !ok {
		current = os.Getenv(pathKey)
	}
	for _, p := range filepath.SplitList(current) {
		if samePath(p, dir) {
			e[pathKey] = current
			return false
		}
	}
	if current == "" {
		e[pathKey] = dir
	} else {
		e[pathKey] = dir + string(os.PathListSeparator) + current
	}
	return true
}

// Environ merges e over base (normally os.Environ()) and returns the result
// in KEY=VALUE form. Keys in e replace matching keys in base; on Windows the
// match is case-insensitive.
func (e Env) Environ(base []string) []string {
	out := make([]string, 0, len(base)+len(e))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if e.has(key) {
			continue
		}
		out = append(out, kv)
	}
	for k, v := range e {
		out = append(out, k+"="+v)
	}
	return out
}

func (e Env) has(key string) bool {
	if _, ok := e[key]; ok {
		return true
	}
	if runtime.GOOS != "windows" {
		return false
	}
	for k := range e {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

func samePath(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// Command describes one external process invocation.
type Command struct {
	Name string   // Executable name or path
	Args []string // Arguments, not shell-interpreted
	Dir  string   // Working directory (empty = current)
	Env  Env      // Overrides layered over the inherited environment
}

// New is a convenience constructor for a command without overrides.
func New(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// In returns a copy of c that runs in dir.
func (c Command) In(dir string) Command {
	c.Dir = dir
	return c
}

// WithEnv returns a copy of c that uses env.
func (c Command) WithEnv(env Env) Command {
	c.Env = env
	return c
}

// String renders the command for log output, quoting arguments with spaces.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// Result is the outcome of a finished command.
type Result struct {
	ExitCode int
	Stdout   []string
	Stderr   []string
	Duration time.Duration
}

// OK reports whether the command exited with status zero.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Runner executes commands.
//
// Run returns an error only when the process could not be started or was
// cancelled; a non-zero exit status is reported through Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
	LookPath(name string) (string, bool)
}
