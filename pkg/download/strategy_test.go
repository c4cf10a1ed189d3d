package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abdallah-Tah/phpBuilder/pkg/cache"
	"github.com/Abdallah-Tah/phpBuilder/pkg/command"
	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
	"github.com/Abdallah-Tah/phpBuilder/pkg/httputil"
	"github.com/Abdallah-Tah/phpBuilder/pkg/layout"
	"github.com/Abdallah-Tah/phpBuilder/pkg/library"
)

func resolver(t *testing.T, php string) *library.Resolver {
	t.Helper()
	r, err := library.NewResolver(php)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// curlFake answers curl commands, succeeding only for URLs ok accepts.
type curlFake struct {
	mu   sync.Mutex
	urls []string
}

func (c *curlFake) runner(ok func(url string) bool) *command.Fake {
	return &command.Fake{
		Paths: map[string]string{"curl": "curl"},
		Handler: func(cmd command.Command) (command.Result, error) {
			url := cmd.Args[4]
			c.mu.Lock()
			c.urls = append(c.urls, url)
			c.mu.Unlock()
			if !ok(url) {
				return command.Result{ExitCode: 22}, nil
			}
			return command.Result{}, os.WriteFile(cmd.Args[3], []byte(url), 0o644)
		},
	}
}

func manual(t *testing.T, runner command.Runner, tree layout.Tree, mirrors cache.Cache) *ManualStrategy {
	d := NewDownloader(runner, nil)
	d.Policy = httputil.Policy{Attempts: 1}
	return &ManualStrategy{
		Downloader: d,
		Resolver:   resolver(t, "8.4.7"),
		Tree:       tree,
		Mirrors:    mirrors,
	}
}

func TestManualStrategyMirrorOrderAndMemory(t *testing.T) {
	tree := layout.New(t.TempDir())
	mirrors, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	first := &curlFake{}
	s := manual(t, first.runner(func(u string) bool { return strings.Contains(u, "museum") }), tree, mirrors)
	res := s.AttemptFetch(context.Background(), library.PHPSource)
	if !res.OK {
		t.Fatalf("AttemptFetch() failed: %v", res.Err)
	}
	want := []string{
		"https://www.php.net/distributions/php-8.4.7.tar.xz",
		"https://www.php.net/distributions/php-8.4.7.tar.gz",
		"https://museum.php.net/php8/php-8.4.7.tar.xz",
	}
	if !slices.Equal(first.urls, want) {
		t.Errorf("tried %v, want %v", first.urls, want)
	}
	if res.Attempts != 3 || res.Path != tree.Downloads("php-8.4.7.tar.xz") {
		t.Errorf("Result = %+v", res)
	}

	second := &curlFake{}
	s = manual(t, second.runner(func(string) bool { return true }), tree, mirrors)
	if res := s.AttemptFetch(context.Background(), library.PHPSource); !res.OK {
		t.Fatalf("second AttemptFetch() failed: %v", res.Err)
	}
	if len(second.urls) != 1 || second.urls[0] != want[2] {
		t.Errorf("second run tried %v, want remembered mirror first", second.urls)
	}
}

func TestManualStrategyAllFail(t *testing.T) {
	fake := &curlFake{}
	s := manual(t, fake.runner(func(string) bool { return false }), layout.New(t.TempDir()), nil)
	res := s.AttemptFetch(context.Background(), library.PHPSource)
	if res.OK {
		t.Fatal("AttemptFetch() succeeded")
	}
	if len(fake.urls) != 4 || res.Attempts != 4 {
		t.Errorf("tried %d URLs, Attempts = %d", len(fake.urls), res.Attempts)
	}
	if !strings.Contains(res.Err.Error(), "all 4 candidates failed") {
		t.Errorf("Err = %v", res.Err)
	}
}

func TestManualStrategyUnknownLibrary(t *testing.T) {
	s := manual(t, &command.Fake{}, layout.New(t.TempDir()), nil)
	res := s.AttemptFetch(context.Background(), "libavif")
	if res.OK || !perrors.Is(res.Err, perrors.ErrCodeNotFound) {
		t.Errorf("AttemptFetch() = %+v, want NOT_FOUND", res)
	}
}

func TestToolStrategy(t *testing.T) {
	tests := []struct {
		name     string
		lib      string
		exit     int
		produce  func(tree layout.Tree)
		wantOK   bool
		inPlace  bool
		wantCode perrors.Code
	}{
		{
			name: "archive found", lib: "zlib",
			produce: func(tree layout.Tree) {
				os.WriteFile(tree.Downloads("zlib-1.3.1.tar.gz"), []byte("gz"), 0o644)
			},
			wantOK: true,
		},
		{
			name: "directory library", lib: "libpng",
			produce: func(tree layout.Tree) { os.MkdirAll(tree.Downloads("libpng"), 0o755) },
			wantOK:  true,
		},
		{
			name: "php-src populated in place", lib: library.PHPSource,
			produce: func(tree layout.Tree) {
				os.MkdirAll(tree.Library("php-src"), 0o755)
				os.WriteFile(tree.Source("php-src", "configure"), []byte("#!"), 0o755)
			},
			wantOK: true, inPlace: true,
		},
		{name: "nothing produced", lib: "curl", wantCode: perrors.ErrCodeNotFound},
		{name: "spc fails", lib: "curl", exit: 1, wantCode: perrors.ErrCodeBuild},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := layout.New(t.TempDir())
			tree.Ensure()
			fake := &command.Fake{Handler: func(cmd command.Command) (command.Result, error) {
				if tt.produce != nil {
					tt.produce(tree)
				}
				return command.Result{ExitCode: tt.exit}, nil
			}}
			s := &ToolStrategy{
				Runner:   fake,
				Tree:     tree,
				Resolver: resolver(t, "8.4.7"),
				Env:      command.Env{"SPC_CONCURRENCY": "4"},
			}

			res := s.AttemptFetch(context.Background(), tt.lib)
			if res.OK != tt.wantOK || res.InPlace != tt.inPlace {
				t.Errorf("AttemptFetch() = %+v", res)
			}
			if tt.wantCode != "" && !perrors.Is(res.Err, tt.wantCode) {
				t.Errorf("Err = %v, want %s", res.Err, tt.wantCode)
			}
			call := fake.Calls[0]
			if call.Dir != tree.Root || call.Env["SPC_CONCURRENCY"] != "4" {
				t.Errorf("command = %+v", call)
			}
			if !fake.Ran("php", "bin/spc", "download", tt.lib) {
				t.Errorf("commands = %v", fake.Commands())
			}
		})
	}
}

// stub is a Strategy with a canned answer.
type stub struct {
	name  string
	ok    bool
	calls atomic.Int32
	fail  map[string]bool
}

func (s *stub) Name() string { return s.name }

func (s *stub) AttemptFetch(ctx context.Context, lib string) Result {
	s.calls.Add(1)
	if !s.ok || s.fail[lib] {
		return failure(errors.New(s.name + " failed"))
	}
	return Result{OK: true, Source: s.name, Path: filepath.Join("downloads", lib)}
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	a := &stub{name: "a"}
	b := &stub{name: "b", ok: true}
	c := &stub{name: "c", ok: true}

	res := NewChain(nil, a, b, c).AttemptFetch(context.Background(), "zlib")
	if !res.OK || res.Source != "b" {
		t.Errorf("AttemptFetch() = %+v", res)
	}
	if a.calls.Load() != 1 || b.calls.Load() != 1 || c.calls.Load() != 0 {
		t.Errorf("calls a=%d b=%d c=%d", a.calls.Load(), b.calls.Load(), c.calls.Load())
	}
}

func TestChainAllFail(t *testing.T) {
	res := NewChain(nil, &stub{name: "a"}, &stub{name: "b"}).AttemptFetch(context.Background(), "zlib")
	if res.OK {
		t.Fatal("AttemptFetch() succeeded")
	}
	for _, want := range []string{"a failed", "b failed", "zlib"} {
		if !strings.Contains(res.Err.Error(), want) {
			t.Errorf("Err = %v, missing %q", res.Err, want)
		}
	}
	if res := NewChain(nil).AttemptFetch(context.Background(), "zlib"); res.OK || res.Err == nil {
		t.Error("empty chain should fail")
	}
}

func TestChainOnAttempt(t *testing.T) {
	var events []string
	chain := NewChain(nil, &stub{name: "a"}, &stub{name: "b", ok: true})
	chain.OnAttempt = func(_ context.Context, lib string, s Strategy, res *Result) error {
		switch {
		case res == nil:
			events = append(events, s.Name()+" start")
		case res.OK:
			events = append(events, s.Name()+" ok")
		default:
			events = append(events, s.Name()+" failed")
		}
		return nil
	}
	if res := chain.AttemptFetch(context.Background(), "zlib"); !res.OK {
		t.Fatalf("AttemptFetch() = %+v", res)
	}
	want := []string{"a start", "a failed", "b start", "b ok"}
	if !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}

	abort := errors.New("stop")
	chain.OnAttempt = func(context.Context, string, Strategy, *Result) error { return abort }
	if res := chain.AttemptFetch(context.Background(), "zlib"); !errors.Is(res.Err, abort) {
		t.Errorf("Err = %v, want abort", res.Err)
	}
}

type limitProbe struct {
	cur, peak atomic.Int32
}

func (p *limitProbe) Name() string { return "probe" }

func (p *limitProbe) AttemptFetch(ctx context.Context, lib string) Result {
	n := p.cur.Add(1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	p.cur.Add(-1)
	return Result{OK: true}
}

func TestPrefetch(t *testing.T) {
	libs := []string{"zlib", "openssl", "curl", "xz", "libzip", "bzip2"}

	probe := &limitProbe{}
	results, err := Prefetch(context.Background(), probe, libs, 2)
	if err != nil {
		t.Fatalf("Prefetch() error = %v", err)
	}
	if len(results) != len(libs) {
		t.Errorf("results = %d", len(results))
	}
	if p := probe.peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}

	s := &stub{name: "s", ok: true, fail: map[string]bool{"xz": true, "curl": true}}
	results, err = Prefetch(context.Background(), s, libs, 3)
	if err == nil || !strings.Contains(err.Error(), "failed to fetch curl, xz") {
		t.Errorf("Prefetch() error = %v", err)
	}
	if !results["zlib"].OK || results["xz"].OK {
		t.Errorf("results = %+v", results)
	}
	if s.calls.Load() != int32(len(libs)) {
		t.Errorf("one failure stopped the others: %d calls", s.calls.Load())
	}
}
