package pipeline

import (
	"context"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
	"github.com/Abdallah-Tah/phpBuilder/pkg/observability"
)

// State is where one library is in the acquisition lifecycle.
type State string

const (
	Pending        State = "PENDING"
	Downloading    State = "DOWNLOADING"
	Downloaded     State = "DOWNLOADED"
	DownloadFailed State = "DOWNLOAD_FAILED"
	Extracting     State = "EXTRACTING"
	Ready          State = "READY"
	ExtractFailed  State = "EXTRACT_FAILED"
	Skipped        State = "SKIPPED"
)

var transitions = map[State][]State{
	Pending:        {Downloading, Skipped},
	Downloading:    {Downloaded, DownloadFailed},
	DownloadFailed: {Downloading},
	Downloaded:     {Extracting, Ready},
	Extracting:     {Ready, ExtractFailed},
}

// CanTransition reports whether s may move to next.
func (s State) CanTransition(next State) bool {
	return slices.Contains(transitions[s], next)
}

// Library is the outcome for one library.
type Library struct {
	Name    string
	State   State
	Archive string  // What was extracted, or the populated directory
	Source  string  // Strategy or URL that produced Archive
	History []State // Every state entered, in order
	Err     error
}

// tracker owns the state of every library in a run.
type tracker struct {
	mu     sync.Mutex
	runID  string
	logger *log.Logger
	libs   map[string]*Library
	order  []string
}

func newTracker(runID string, logger *log.Logger, names []string) *tracker {
	t := &tracker{runID: runID, logger: logger, libs: make(map[string]*Library, len(names))}
	for _, n := range names {
		t.libs[n] = &Library{Name: n, State: Pending, History: []State{Pending}}
		t.order = append(t.order, n)
	}
	return t
}

// move transitions lib to next, logging it and notifying the pipeline hooks.
func (t *tracker) move(ctx context.Context, lib string, next State) error {
	t.mu.Lock()
	l, ok := t.libs[lib]
	if !ok {
		t.mu.Unlock()
		return perrors.Build("unknown library %s", lib)
	}
	from := l.State
	if !from.CanTransition(next) {
		t.mu.Unlock()
		return perrors.Build("invalid state transition for %s: %s -> %s", lib, from, next)
	}
	l.State = next
	l.History = append(l.History, next)
	t.mu.Unlock()

	t.logger.Debug("library state", "lib", lib, "from", from, "to", next)
	observability.Pipeline().OnLibraryState(ctx, t.runID, lib, string(from), string(next))
	return nil
}

func (t *tracker) update(lib string, fn func(l *Library)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok := t.libs[lib]; ok {
		fn(l)
	}
}

func (t *tracker) snapshot() []Library {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Library, 0, len(t.order))
	for _, n := range t.order {
		l := *t.libs[n]
		l.History = slices.Clone(l.History)
		out = append(out, l)
	}
	return out
}
