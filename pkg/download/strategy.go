package download

import (
	"context"
	"errors"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/Abdallah-Tah/phpBuilder/pkg/cache"
	"github.com/Abdallah-Tah/phpBuilder/pkg/command"
	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
	"github.com/Abdallah-Tah/phpBuilder/pkg/fsops"
	"github.com/Abdallah-Tah/phpBuilder/pkg/layout"
	"github.com/Abdallah-Tah/phpBuilder/pkg/library"
)

// Strategy is one way of getting a library's archive into downloads/.
type Strategy interface {
	Name() string
	AttemptFetch(ctx context.Context, lib string) Result
}

// ToolStrategy delegates to `php bin/spc download <lib>`.
type ToolStrategy struct {
	Runner   command.Runner
	Tree     layout.Tree
	Resolver *library.Resolver
	Env      command.Env
	Logger   *log.Logger
}

// Name implements Strategy.
func (s *ToolStrategy) Name() string { return "spc" }

// AttemptFetch runs the spc downloader and then looks for what it left.
// For php-src a populated source directory also counts.
func (s *ToolStrategy) AttemptFetch(ctx context.Context, lib string) Result {
	logger := s.logger()
	cmd := command.New("php", "bin/spc", "download", lib).In(s.Tree.Root).WithEnv(s.Env)
	res, err := s.Runner.Run(ctx, cmd)
	if err != nil {
		return failure(perrors.Wrap(perrors.ErrCodeCommand, err, "spc download %s", lib))
	}
	if !res.OK() {
		return failure(perrors.Build("spc download %s exited with status %d", lib, res.ExitCode))
	}

	if path, ok := library.FindArchive(s.Tree.Downloads(), s.Resolver.ResolveCandidates(lib)); ok {
		logger.Debug("spc download produced", "lib", lib, "path", path)
		return Result{OK: true, Path: path, Source: s.Name(), Attempts: 1, Size: size(path)}
	}
	if lib == library.PHPSource {
		if empty, err := fsops.IsEmptyDir(s.Tree.Library(lib)); err == nil && !empty {
			logger.Info("php-src already populated by spc", "dir", s.Tree.Library(lib))
			return Result{OK: true, Path: s.Tree.Library(lib), Source: s.Name(), Attempts: 1, InPlace: true}
		}
	}
	return failure(perrors.New(perrors.ErrCodeNotFound, "spc download %s succeeded but no archive was found in %s", lib, s.Tree.Downloads()))
}

func (s *ToolStrategy) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard)
	}
	return s.Logger
}

// ManualStrategy downloads candidate URLs from the library table.
type ManualStrategy struct {
	Downloader *Downloader
	Resolver   *library.Resolver
	Tree       layout.Tree
	// Mirrors remembers the URL that last worked per library. Nil disables
	// remembering.
	Mirrors cache.Cache
	Logger  *log.Logger
}

// Name implements Strategy.
func (s *ManualStrategy) Name() string { return "manual" }

// AttemptFetch tries each candidate in order, the remembered winner first.
func (s *ManualStrategy) AttemptFetch(ctx context.Context, lib string) Result {
	spec := s.Resolver.ResolveCandidates(lib)
	if spec.Empty() {
		return failure(perrors.New(perrors.ErrCodeNotFound, "no download candidates for %s", lib))
	}

	mirrors := cache.NewScoped(s.Mirrors, cache.MirrorPrefix)
	candidates := s.ordered(ctx, mirrors, lib, spec.Candidates)

	var (
		attempts int
		errs     []error
	)
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return failure(err)
		}
		res := s.Downloader.Fetch(ctx, c.URL, s.Tree.Downloads(c.File))
		attempts += res.Attempts
		if res.OK {
			if err := mirrors.Set(ctx, lib, []byte(c.URL), 0); err != nil {
				s.logger().Warn("could not remember mirror", "lib", lib, "err", err)
			}
			res.Attempts = attempts
			return res
		}
		s.logger().Warn("candidate failed", "lib", lib, "kind", c.Kind, "url", c.URL)
		errs = append(errs, res.Err)
	}

	res := failure(perrors.Wrap(perrors.ErrCodeNetwork, errors.Join(errs...), "all %d candidates failed for %s", len(candidates), lib))
	res.Attempts = attempts
	return res
}

func (s *ManualStrategy) ordered(ctx context.Context, mirrors cache.Cache, lib string, in []library.Candidate) []library.Candidate {
	data, ok, err := mirrors.Get(ctx, lib)
	if err != nil || !ok {
		return in
	}
	i := slices.IndexFunc(in, func(c library.Candidate) bool { return c.URL == string(data) })
	if i <= 0 {
		return in
	}
	s.logger().Debug("trying remembered mirror first", "lib", lib, "url", in[i].URL)
	out := make([]library.Candidate, 0, len(in))
	out = append(out, in[i])
	out = append(out, in[:i]...)
	return append(out, in[i+1:]...)
}

func (s *ManualStrategy) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard)
	}
	return s.Logger
}

// Chain runs strategies in order until one succeeds.
type Chain struct {
	Strategies []Strategy
	Logger     *log.Logger
	// OnAttempt is called before each strategy runs, with a nil result, and
	// again with its result. A non-nil error aborts the chain.
	OnAttempt func(ctx context.Context, lib string, s Strategy, res *Result) error
}

// NewChain creates a chain of the given strategies.
func NewChain(logger *log.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Chain{Strategies: strategies, Logger: logger}
}

// Name implements Strategy.
func (c *Chain) Name() string { return "chain" }

// AttemptFetch returns the first successful result, or a failure joining
// every strategy's error.
func (c *Chain) AttemptFetch(ctx context.Context, lib string) Result {
	var errs []error
	for i, s := range c.Strategies {
		if err := ctx.Err(); err != nil {
			return failure(err)
		}
		if err := c.notify(ctx, lib, s, nil); err != nil {
			return failure(err)
		}
		res := s.AttemptFetch(ctx, lib)
		if err := c.notify(ctx, lib, s, &res); err != nil {
			return failure(err)
		}
		if res.OK {
			if i > 0 {
				c.Logger.Info("fetched with fallback", "lib", lib, "strategy", s.Name())
			}
			return res
		}
		c.Logger.Warn("strategy failed", "lib", lib, "strategy", s.Name(), "err", res.Err)
		errs = append(errs, res.Err)
	}
	if len(errs) == 0 {
		return failure(perrors.New(perrors.ErrCodeConfiguration, "no fetch strategies configured"))
	}
	return failure(perrors.Wrap(perrors.ErrCodeNetwork, errors.Join(errs...), "could not fetch %s", lib))
}

func (c *Chain) notify(ctx context.Context, lib string, s Strategy, res *Result) error {
	if c.OnAttempt == nil {
		return nil
	}
	return c.OnAttempt(ctx, lib, s, res)
}

var (
	_ Strategy = (*ToolStrategy)(nil)
	_ Strategy = (*ManualStrategy)(nil)
	_ Strategy = (*Chain)(nil)
)
