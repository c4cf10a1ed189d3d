package download

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
)

// Prefetch fetches every lib with s, at most jobs at a time. It returns all
// results, keyed by library, and an error naming the libraries that failed.
// One failure does not cancel the others.
func Prefetch(ctx context.Context, s Strategy, libs []string, jobs int) (map[string]Result, error) {
	var (
		mu      sync.Mutex
		results = make(map[string]Result, len(libs))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for _, lib := range libs {
		g.Go(func() error {
			res := s.AttemptFetch(ctx, lib)
			mu.Lock()
			results[lib] = res
			mu.Unlock()
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	var failed []string
	for lib, res := range results {
		if !res.OK {
			failed = append(failed, lib)
		}
	}
	if len(failed) > 0 {
		slices.Sort(failed)
		return results, perrors.New(perrors.ErrCodeNetwork, "failed to fetch %s", strings.Join(failed, ", "))
	}
	return results, nil
}

func size(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}
