package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Abdallah-Tah/phpBuilder/pkg/cache"
	"github.com/Abdallah-Tah/phpBuilder/pkg/command"
	"github.com/Abdallah-Tah/phpBuilder/pkg/config"
	"github.com/Abdallah-Tah/phpBuilder/pkg/download"
	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
	"github.com/Abdallah-Tah/phpBuilder/pkg/layout"
	"github.com/Abdallah-Tah/phpBuilder/pkg/library"
	"github.com/Abdallah-Tah/phpBuilder/pkg/spc"
)

// fetchOpts holds the command-line flags for the fetch command.
type fetchOpts struct {
	dir        string
	phpVersion string
	jobs       int
	preferHTTP bool
	noCache    bool
	flags      library.Flags
}

// fetchCommand creates the fetch command.
func (c *CLI) fetchCommand() *cobra.Command {
	opts := fetchOpts{jobs: config.DefaultJobs}

	cmd := &cobra.Command{
		Use:   "fetch [lib...]",
		Short: "Download library archives without building",
		Long: `Download library archives into <dir>/static-php-cli/downloads.

With no arguments every library of the selected feature set is fetched.
When static-php-cli is already checked out its downloader is tried first;
otherwise, and when it fails, the pinned mirrors are used. Downloads run
concurrently.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.dir == "" {
				return perrors.ValidateRequired(map[string]string{"dir": opts.dir}, "dir")
			}
			libs := args
			if len(libs) == 0 {
				libs = library.Libraries(opts.flags)
			}
			for _, lib := range libs {
				if err := perrors.ValidateLibraryName(lib); err != nil {
					return err
				}
			}
			return c.runFetch(cmd.Context(), libs, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "target directory")
	cmd.Flags().StringVarP(&opts.phpVersion, "php-version", "p", "", "PHP version for php-src (default: pinned)")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", opts.jobs, "concurrent downloads")
	cmd.Flags().BoolVar(&opts.preferHTTP, "prefer-http", false, "download with the built-in HTTP client instead of curl")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "do not read or remember working mirrors")
	cmd.Flags().BoolVar(&opts.flags.MySQL, "mysql", false, "include MySQL libraries")
	cmd.Flags().BoolVar(&opts.flags.SQLServer, "sqlsrv", false, "include SQL Server libraries")
	cmd.Flags().BoolVar(&opts.flags.Postgres, "postgres", false, "include PostgreSQL libraries")

	return cmd
}

func (c *CLI) runFetch(ctx context.Context, libs []string, opts fetchOpts) error {
	if opts.phpVersion != "" {
		if err := perrors.ValidatePHPVersion(opts.phpVersion); err != nil {
			return err
		}
	}
	target, err := filepath.Abs(opts.dir)
	if err != nil {
		return err
	}
	tree := layout.ForTarget(target)
	if err := tree.Ensure(); err != nil {
		return err
	}
	resolver, err := library.NewResolver(opts.phpVersion)
	if err != nil {
		return err
	}
	mirrors, err := newMirrorCache(target, opts.noCache)
	if err != nil {
		return fmt.Errorf("open mirror cache: %w", err)
	}
	defer mirrors.Close()

	chain := c.fetchChain(tree, resolver, mirrors, opts)

	prog := newProgress(c.Logger)
	results, err := download.Prefetch(ctx, chain, libs, opts.jobs)
	prog.done(fmt.Sprintf("Fetched %d of %d libraries", countOK(results), len(libs)))

	rows := make([][]string, 0, len(libs))
	for _, lib := range libs {
		res := results[lib]
		status := "ok"
		if !res.OK {
			status = "failed"
		}
		rows = append(rows, []string{lib, status, shortSource(res.Source), fmt.Sprintf("%d", res.Attempts)})
	}
	fmt.Println(renderTable([]string{"Library", "Status", "Source", "Attempts"}, rows, nil))

	if err != nil {
		for _, lib := range libs {
			if res := results[lib]; !res.OK && res.Err != nil {
				printWarning("%s: %s", lib, perrors.UserMessage(res.Err))
			}
		}
		return err
	}
	printSuccess("All %d libraries fetched", len(libs))
	printDetail("Directory: %s", tree.Downloads())
	return nil
}

// fetchChain uses spc's downloader only when a checkout with bin/spc exists.
func (c *CLI) fetchChain(tree layout.Tree, resolver *library.Resolver, mirrors cache.Cache, opts fetchOpts) *download.Chain {
	runner := c.runner()
	d := download.NewDownloader(runner, c.Logger)
	d.PreferHTTP = opts.preferHTTP
	manual := &download.ManualStrategy{
		Downloader: d,
		Resolver:   resolver,
		Tree:       tree,
		Mirrors:    mirrors,
		Logger:     c.Logger,
	}
	if _, err := os.Stat(tree.SPC()); err != nil {
		c.Logger.Debug("static-php-cli not checked out, using mirrors only", "dir", tree.Root)
		return download.NewChain(c.Logger, manual)
	}
	tool := &download.ToolStrategy{
		Runner:   runner,
		Tree:     tree,
		Resolver: resolver,
		Env:      command.Env{spc.EnvConcurrency: strconv.Itoa(opts.jobs)},
		Logger:   c.Logger,
	}
	return download.NewChain(c.Logger, tool, manual)
}

func countOK(results map[string]download.Result) int {
	n := 0
	for _, r := range results {
		if r.OK {
			n++
		}
	}
	return n
}

