// Package cli implements the phpbuilder command-line interface.
//
// # Commands
//
//   - build: clone static-php-cli, fetch every library and compile PHP
//   - fetch: download library archives without building
//   - extract, expand, repair: work on archives and source trees directly
//   - deps: print or render the library and extension dependency order
//   - libs: show the pinned library table
//   - cache: inspect or clear the mirror cache
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Abdallah-Tah/phpBuilder/pkg/buildinfo"
	"github.com/Abdallah-Tah/phpBuilder/pkg/cache"
	"github.com/Abdallah-Tah/phpBuilder/pkg/command"
	"github.com/Abdallah-Tah/phpBuilder/pkg/layout"
)

// appName is the application name used for directories and display.
const appName = "phpbuilder"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	// Runner executes external commands. Nil means the real system.
	Runner command.Runner
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	versionTemplate := buildinfo.Template()
	root := &cobra.Command{
		Use:   appName,
		Short: "phpbuilder builds static PHP binaries with static-php-cli",
		Long: `phpbuilder drives static-php-cli to produce a self-contained PHP binary.

It clones static-php-cli into <dir>/static-php-cli, patches it for the host,
fetches every native library (falling back to known mirrors when spc's own
downloader fails), extracts them into normalized source trees and runs the
build.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(versionTemplate)

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.extractCommand())
	root.AddCommand(c.expandCommand())
	root.AddCommand(c.repairCommand())
	root.AddCommand(c.depsCommand())
	root.AddCommand(c.libsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// runner returns the command runner for external tools.
func (c *CLI) runner() command.Runner {
	if c.Runner != nil {
		return c.Runner
	}
	return command.NewExecRunner(c.Logger)
}

// newMirrorCache opens the mirror cache for a target directory.
func newMirrorCache(target string, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir(target)
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the mirror cache directory. With a target it lives inside
// the build tree; otherwise it follows XDG (~/.cache/phpbuilder/).
func cacheDir(target string) (string, error) {
	if target != "" {
		abs, err := filepath.Abs(target)
		if err != nil {
			return "", err
		}
		return cache.Dir(layout.ForTarget(abs).Root)
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return cache.Dir("")
	}
	return filepath.Join(home, ".cache", appName), nil
}
