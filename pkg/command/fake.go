package command

import (
	"context"
	"slices"
	"sync"
)

// Fake is a Runner for tests. It records every command and answers through
// Handler; with no Handler every command succeeds with no output.
type Fake struct {
	mu      sync.Mutex
	Calls   []Command
	Handler func(cmd Command) (Result, error)
	// Paths maps tool names to the path LookPath reports. Names absent from
	// Paths are not found.
	Paths map[string]string
}

// Run records cmd and delegates to Handler.
func (f *Fake) Run(ctx context.Context, cmd Command) (Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	h := f.Handler
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, err
	}
	if h == nil {
		return Result{}, nil
	}
	return h(cmd)
}

// LookPath consults Paths.
func (f *Fake) LookPath(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Paths[name]
	return p, ok
}

// Commands returns the recorded commands rendered with String.
func (f *Fake) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = c.String()
	}
	return out
}

// Ran reports whether a command with the given name and leading args ran.
func (f *Fake) Ran(name string, args ...string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if c.Name == name && len(c.Args) >= len(args) && slices.Equal(c.Args[:len(args)], args) {
			return true
		}
	}
	return false
}

var _ Runner = (*Fake)(nil)
