package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Abdallah-Tah/phpBuilder/pkg/archive"
	"github.com/Abdallah-Tah/phpBuilder/pkg/cache"
	"github.com/Abdallah-Tah/phpBuilder/pkg/command"
	"github.com/Abdallah-Tah/phpBuilder/pkg/config"
	"github.com/Abdallah-Tah/phpBuilder/pkg/deps"
	"github.com/Abdallah-Tah/phpBuilder/pkg/download"
	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
	"github.com/Abdallah-Tah/phpBuilder/pkg/fsops"
	"github.com/Abdallah-Tah/phpBuilder/pkg/httputil"
	"github.com/Abdallah-Tah/phpBuilder/pkg/layout"
	"github.com/Abdallah-Tah/phpBuilder/pkg/library"
	"github.com/Abdallah-Tah/phpBuilder/pkg/observability"
	"github.com/Abdallah-Tah/phpBuilder/pkg/patch"
	"github.com/Abdallah-Tah/phpBuilder/pkg/spc"
)

// Runner executes builds. It holds no per-build state, so one Runner can
// serve several builds one after another.
type Runner struct {
	Runner  command.Runner
	Mirrors cache.Cache // Remembers working download mirrors; may be nil
	Logger  *log.Logger

	// StopAfter ends the run successfully after the named phase.
	StopAfter string
	// Policy overrides the download retry policy when Attempts > 0.
	Policy httputil.Policy
	// Clone overrides the in-process clone of static-php-cli.
	Clone spc.CloneFunc
	// Getenv is consulted when looking for perl. Defaults to os.Getenv.
	Getenv func(string) string
	// NewID generates run ids. Defaults to random UUIDs.
	NewID func() string

	goos string
}

// NewRunner creates a runner. A nil logger discards output; a nil mirrors
// cache disables mirror memory.
func NewRunner(runner command.Runner, mirrors cache.Cache, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if mirrors == nil {
		mirrors = cache.NewNullCache()
	}
	return &Runner{
		Runner:  runner,
		Mirrors: mirrors,
		Logger:  logger,
		NewID:   uuid.NewString,
		goos:    runtime.GOOS,
	}
}

// Run performs one build. The returned report is never nil.
func (r *Runner) Run(ctx context.Context, req config.BuildRequest) (*Report, error) {
	start := time.Now()
	id := r.NewID()
	b := &build{
		Runner: r,
		req:    req.WithDefaults(),
		runID:  id,
		logger: r.Logger.With("run", id),
		report: &Report{RunID: id},
	}

	b.logger.Info("build started", "php", req.PHPVersion, "target", req.TargetDirectory)
	err := b.run(ctx)

	b.report.Duration = time.Since(start)
	if b.tracker != nil {
		b.report.Libraries = b.tracker.snapshot()
	}
	if err != nil {
		b.logger.Error("build failed", "duration", b.report.Duration.Round(time.Millisecond), "err", err)
		return b.report, err
	}
	b.logger.Info("build finished", "duration", b.report.Duration.Round(time.Millisecond), "binary", b.report.Binary)
	return b.report, nil
}

// build is the state of one run.
type build struct {
	*Runner
	req    config.BuildRequest
	runID  string
	logger *log.Logger
	report *Report

	tree     layout.Tree
	env      command.Env
	ops      *fsops.Ops
	tc       *spc.Toolchain
	resolver *library.Resolver
	tracker  *tracker
}

type step struct {
	name string
	fn   func(context.Context) error
}

func (b *build) steps() []step {
	return []step{
		{PhaseValidate, b.validate},
		{PhaseTools, b.tools},
		{PhaseMaterialize, b.materialize},
		{PhasePatch, b.patch},
		{PhaseComposer, b.composer},
		{PhaseDependencies, b.dependencies},
		{PhaseMicro, b.micro},
		{PhaseBuild, b.compile},
		{PhaseVerify, b.verify},
	}
}

func (b *build) run(ctx context.Context) error {
	for _, s := range b.steps() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.phase(ctx, s.name, s.fn); err != nil {
			return err
		}
		if s.name == b.StopAfter {
			b.logger.Info("stopping early", "after", s.name)
			return nil
		}
	}
	return nil
}

func (b *build) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	hooks := observability.Pipeline()
	hooks.OnPhaseStart(ctx, b.runID, name)
	b.logger.Info("phase started", "phase", name)

	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)

	hooks.OnPhaseComplete(ctx, b.runID, name, d, err)
	b.report.Phases = append(b.report.Phases, PhaseTiming{Name: name, Duration: d, Err: err})
	if err != nil {
		b.logger.Error("phase failed", "phase", name, "duration", d.Round(time.Millisecond), "err", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	b.logger.Info("phase complete", "phase", name, "duration", d.Round(time.Millisecond))
	return nil
}

func (b *build) validate(ctx context.Context) error {
	if err := b.req.Validate(); err != nil {
		return err
	}
	if err := ValidatePhase(b.StopAfter); err != nil {
		return err
	}
	target, err := filepath.Abs(b.req.TargetDirectory)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeValidation, err, "target directory %s", b.req.TargetDirectory)
	}
	resolver, err := library.NewResolver(b.req.PHPVersion)
	if err != nil {
		return err
	}

	b.resolver = resolver
	b.tree = layout.ForTarget(target)
	b.env = command.Env{spc.EnvConcurrency: strconv.Itoa(b.req.Jobs)}
	b.ops = fsops.New(b.Runner.Runner, b.logger)
	b.tc = spc.New(b.Runner.Runner, b.ops, b.tree, b.env, b.logger)
	if b.Clone != nil {
		b.tc.Clone = b.Clone
	}
	b.report.Target = b.tree.Root
	return nil
}

func (b *build) tools(ctx context.Context) error {
	var missing []string
	for _, tool := range []string{"php", "composer"} {
		path, ok := b.Runner.Runner.LookPath(tool)
		if !ok {
			missing = append(missing, tool)
			continue
		}
		b.logger.Debug("tool found", "tool", tool, "path", path)
	}
	if _, ok := b.Runner.Runner.LookPath("git"); !ok {
		b.logger.Warn("git not found; static-php-cli can only be cloned in-process")
	}
	if len(missing) > 0 {
		return perrors.Build("required tools not found in PATH: %v", missing)
	}
	return nil
}

func (b *build) materialize(ctx context.Context) error {
	cloned, err := b.tc.Materialize(ctx)
	if err != nil {
		return err
	}
	if cloned {
		b.logger.Info("static-php-cli ready", "dir", b.tree.Root)
	}
	return nil
}

func (b *build) patch(ctx context.Context) error {
	finder := patch.PerlFinder{Runner: b.Runner.Runner, Getenv: b.Getenv}
	perl, err := finder.Find(b.req.PerlPath)
	switch {
	case err == nil:
		if b.goos == "windows" {
			shim, err := patch.ApplyPerlShim(b.tree.Root, perl, b.env)
			if err != nil {
				return err
			}
			b.logger.Info("perl shim installed", "perl", perl, "shim", shim)
		} else {
			b.env[patch.EnvPerl] = perl
			b.logger.Debug("using perl", "perl", perl)
		}
	case perrors.Is(err, perrors.ErrCodeNotFound):
		b.logger.Warn("perl not found; libraries that need it will fail to build", "err", err)
	default:
		return err
	}

	changed, err := patch.PatchFunctions(b.tree.Functions())
	switch {
	case perrors.Is(err, perrors.ErrCodeNotFound):
		b.logger.Warn("functions.php not found, skipping the passthru patch", "path", b.tree.Functions())
	case err != nil:
		return err
	case changed:
		b.logger.Info("patched passthru quoting", "path", b.tree.Functions())
	}
	return nil
}

func (b *build) micro(ctx context.Context) error {
	copied, err := patch.CopyMicro(ctx, b.ops, b.tree)
	if err != nil {
		return err
	}
	if copied {
		b.logger.Info("micro SAPI copied into php-src")
	}
	return nil
}

func (b *build) composer(ctx context.Context) error {
	return b.tc.Composer(ctx)
}

func (b *build) dependencies(ctx context.Context) error {
	order, err := b.order()
	if err != nil {
		return err
	}
	b.report.Order = order
	b.tracker = newTracker(b.runID, b.logger, order)

	chain := b.chain()
	x := archive.NewExtractor(b.ops, b.logger)
	x.SevenZip = b.req.SevenZip
	x.Runner = b.Runner.Runner

	for _, lib := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.acquire(ctx, lib, chain, x); err != nil {
			return err
		}
	}
	return nil
}

// order returns the libraries to acquire. With spc's configuration present
// they are sorted so every library follows its dependencies; otherwise the
// fixed build order is used.
func (b *build) order() ([]string, error) {
	wanted := library.Libraries(b.req.Flags())
	cfg, err := config.Load(b.tree.Root)
	if err != nil {
		return nil, err
	}
	if !cfg.Available() {
		b.logger.Debug("spc configuration not found, using the fixed library order")
		return wanted, nil
	}

	g := deps.New(cfg)
	for _, lib := range wanted {
		if err := g.Register(lib); err != nil {
			return nil, err
		}
	}
	resolved, err := g.Resolve(wanted, false)
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(wanted))
	for _, lib := range wanted {
		want[lib] = true
	}
	out := make([]string, 0, len(wanted))
	for _, lib := range deps.Libraries(resolved) {
		if want[lib] {
			out = append(out, lib)
			delete(want, lib)
		}
	}
	for _, lib := range wanted {
		if want[lib] {
			out = append(out, lib)
		}
	}
	b.logger.Info("resolved library order", "libs", len(out), "config", cfg.String())
	return out, nil
}

func (b *build) chain() *download.Chain {
	d := download.NewDownloader(b.Runner.Runner, b.logger)
	d.PreferHTTP = b.req.PreferHTTP
	if b.Policy.Attempts > 0 {
		d.Policy = b.Policy
	}
	return download.NewChain(b.logger,
		&download.ToolStrategy{
			Runner:   b.Runner.Runner,
			Tree:     b.tree,
			Resolver: b.resolver,
			Env:      b.env,
			Logger:   b.logger,
		},
		&download.ManualStrategy{
			Downloader: d,
			Resolver:   b.resolver,
			Tree:       b.tree,
			Mirrors:    b.Mirrors,
			Logger:     b.logger,
		},
	)
}

// acquire drives one library from PENDING to a terminal state.
func (b *build) acquire(ctx context.Context, lib string, chain *download.Chain, x *archive.Extractor) error {
	t := b.tracker
	if library.IsDirectoryLibrary(lib) {
		if empty, err := fsops.IsEmptyDir(b.tree.Library(lib)); err == nil && !empty {
			b.logger.Info("source directory already populated", "lib", lib)
			return t.move(ctx, lib, Skipped)
		}
	}

	res, err := b.fetch(ctx, lib, chain)
	if err != nil {
		return err
	}
	t.update(lib, func(l *Library) {
		l.Archive = res.Path
		l.Source = res.Source
	})
	if err := t.move(ctx, lib, Downloaded); err != nil {
		return err
	}
	if res.InPlace {
		return t.move(ctx, lib, Ready)
	}

	if err := t.move(ctx, lib, Extracting); err != nil {
		return err
	}
	if err := b.extract(ctx, lib, res.Path, x); err != nil {
		t.update(lib, func(l *Library) { l.Err = err })
		if merr := t.move(ctx, lib, ExtractFailed); merr != nil {
			return merr
		}
		return err
	}
	return t.move(ctx, lib, Ready)
}

// fetch runs the strategy chain. Every attempt re-enters DOWNLOADING and
// every failed one moves to DOWNLOAD_FAILED.
func (b *build) fetch(ctx context.Context, lib string, chain *download.Chain) (download.Result, error) {
	t := b.tracker
	chain.OnAttempt = func(ctx context.Context, lib string, s download.Strategy, res *download.Result) error {
		if res == nil {
			return t.move(ctx, lib, Downloading)
		}
		if !res.OK {
			return t.move(ctx, lib, DownloadFailed)
		}
		return nil
	}
	res := chain.AttemptFetch(ctx, lib)
	if !res.OK {
		t.update(lib, func(l *Library) { l.Err = res.Err })
		return res, res.Err
	}
	return res, nil
}

// extract populates the library's source directory from path, which is
// either an archive or a directory delivered by static-php-cli.
func (b *build) extract(ctx context.Context, lib, path string, x *archive.Extractor) error {
	dir := b.tree.Library(lib)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if filepath.Clean(path) == filepath.Clean(dir) {
			return nil
		}
		return b.ops.CopyDir(ctx, path, dir)
	}

	out := x.Extract(ctx, path, dir, lib)
	if !out.OK {
		return fmt.Errorf("extract %s: %w", lib, out.Err)
	}
	n, err := x.ExpandNested(ctx, dir)
	if err != nil {
		b.logger.Warn("nested archives left in place", "lib", lib, "err", err)
	} else if n > 0 {
		b.logger.Info("expanded nested archives", "lib", lib, "count", n)
	}
	return nil
}

func (b *build) compile(ctx context.Context) error {
	exts := library.ExtensionList(b.req.Flags())
	b.logger.Info("building php", "extensions", exts, "jobs", b.req.Jobs)
	return b.tc.Build(ctx, exts, b.req.Debug)
}

func (b *build) verify(ctx context.Context) error {
	modules, err := b.tc.Verify(ctx)
	if err != nil {
		return err
	}
	b.report.Binary = b.tree.Binary()
	b.report.Modules = modules
	b.logger.Info("php binary ready", "path", b.report.Binary, "modules", len(modules))
	return nil
}
