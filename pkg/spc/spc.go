// Package spc drives static-php-cli: cloning it, installing its composer
// dependencies, building PHP and checking the result.
//
// All commands run inside the checkout with the toolchain's [command.Env],
// which carries SPC_CONCURRENCY, SPC_PERL and the PATH entry for the perl
// shim.
package spc

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"

	"github.com/Abdallah-Tah/phpBuilder/pkg/command"
	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
	"github.com/Abdallah-Tah/phpBuilder/pkg/fsops"
	"github.com/Abdallah-Tah/phpBuilder/pkg/layout"
)

// RepoURL is the static-php-cli repository.
const RepoURL = "https://github.com/crazywhalecc/static-php-cli.git"

// EnvConcurrency is read by spc as its parallel job count.
const EnvConcurrency = "SPC_CONCURRENCY"

// CloneFunc clones url into dir.
type CloneFunc func(ctx context.Context, dir, url string, progress io.Writer) error

// Toolchain runs spc and its prerequisites for one tree.
type Toolchain struct {
	Runner command.Runner
	Ops    *fsops.Ops
	Tree   layout.Tree
	Env    command.Env
	Logger *log.Logger
	// Clone performs the in-process clone. Defaults to go-git.
	Clone CloneFunc
	goos  string
}

// New creates a toolchain. If logger is nil, output is discarded.
func New(runner command.Runner, ops *fsops.Ops, tree layout.Tree, env command.Env, logger *log.Logger) *Toolchain {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if env == nil {
		env = command.Env{}
	}
	return &Toolchain{
		Runner: runner,
		Ops:    ops,
		Tree:   tree,
		Env:    env,
		Logger: logger,
		Clone:  GoGitClone,
		goos:   runtime.GOOS,
	}
}

// GoGitClone clones with go-git.
func GoGitClone(ctx context.Context, dir, url string, progress io.Writer) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:      url,
		Depth:    1,
		Progress: progress,
	})
	return err
}

// Materialize makes sure the checkout exists. An existing checkout is kept
// and only its working directories are created. It reports whether a clone
// happened.
func (t *Toolchain) Materialize(ctx context.Context) (bool, error) {
	if empty, err := fsops.IsEmptyDir(t.Tree.Root); err == nil && !empty {
		t.Logger.Info("static-php-cli already exists", "dir", t.Tree.Root)
		return false, t.Tree.Ensure()
	}

	if err := fsops.EnsureDir(filepath.Dir(t.Tree.Root)); err != nil {
		return false, err
	}

	t.Logger.Info("cloning static-php-cli", "url", RepoURL, "dir", t.Tree.Root)
	err := t.Clone(ctx, t.Tree.Root, RepoURL, nil)
	if err != nil {
		t.Logger.Warn("in-process clone failed, trying git", "err", err)
		if rmErr := t.Ops.RemoveAll(ctx, t.Tree.Root); rmErr != nil {
			return false, rmErr
		}
		err = t.gitClone(ctx)
	}
	if err != nil {
		if empty, _ := fsops.IsEmptyDir(t.Tree.Root); empty {
			return false, perrors.Wrap(perrors.ErrCodeBuild, err, "failed to clone static-php-cli; the target directory is empty, check the network connection and git installation")
		}
		return false, perrors.Wrap(perrors.ErrCodeBuild, err, "failed to clone static-php-cli; %s may hold an incomplete clone, remove it and retry", t.Tree.Root)
	}
	return true, t.Tree.Ensure()
}

func (t *Toolchain) gitClone(ctx context.Context) error {
	gitPath, ok := t.Runner.LookPath("git")
	if !ok {
		return perrors.New(perrors.ErrCodeBuild, "git is not installed or not found in PATH")
	}
	cmd := command.New(gitPath, "clone", RepoURL, filepath.Base(t.Tree.Root)).In(filepath.Dir(t.Tree.Root))
	res, err := t.Runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if !res.OK() {
		return perrors.Build("git clone exited with status %d", res.ExitCode)
	}
	return nil
}

// ComposerArgs returns the composer arguments for the checkout: install when
// composer.lock exists, update otherwise.
func (t *Toolchain) ComposerArgs() []string {
	if _, err := os.Stat(filepath.Join(t.Tree.Root, "composer.lock")); err == nil {
		return []string{"install", "--ignore-platform-reqs"}
	}
	return []string{"update", "--no-dev", "--prefer-dist"}
}

// Composer installs spc's PHP dependencies, retrying once elevated.
func (t *Toolchain) Composer(ctx context.Context) error {
	composer, ok := t.Runner.LookPath("composer")
	if !ok {
		return perrors.Build("composer is not installed or not found in PATH")
	}
	args := t.ComposerArgs()
	if t.run(ctx, command.New(composer, args...)) == nil {
		return nil
	}

	t.Logger.Warn("composer failed, retrying elevated", "args", strings.Join(args, " "))
	if err := t.run(ctx, t.elevated(composer, args)); err != nil {
		return perrors.Wrap(perrors.ErrCodeBuild, err, "composer %s failed", args[0])
	}
	return nil
}

func (t *Toolchain) elevated(name string, args []string) command.Command {
	if t.goos != "windows" {
		return command.New("sudo", append([]string{"-n", name}, args...)...)
	}
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = "'" + fsops.PSQuote(a) + "'"
	}
	script := "Start-Process -FilePath '" + fsops.PSQuote(name) + "'" +
		" -ArgumentList " + strings.Join(quoted, ",") +
		" -WorkingDirectory '" + fsops.PSQuote(t.Tree.Root) + "'" +
		" -Verb RunAs -Wait"
	return fsops.PowerShell(script)
}

// Build compiles PHP with extensions (a comma-separated list). On failure it
// runs doctor --auto-fix once and retries with --debug.
func (t *Toolchain) Build(ctx context.Context, extensions string, debug bool) error {
	args := []string{"bin/spc", "build", extensions, "--build-cli"}
	if debug {
		args = append(args, "--debug")
	}
	err := t.run(ctx, command.New("php", args...))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	t.Logger.Error("build failed", "err", err)

	if derr := t.Doctor(ctx); derr != nil {
		t.Logger.Warn("doctor could not fix the environment", "err", derr)
	}
	t.Logger.Info("retrying build with debug output")
	if !debug {
		args = append(args, "--debug")
	}
	if err := t.run(ctx, command.New("php", args...)); err != nil {
		return perrors.Wrap(perrors.ErrCodeBuild, err, "spc build failed")
	}
	return nil
}

// Doctor runs `php bin/spc doctor --auto-fix`.
func (t *Toolchain) Doctor(ctx context.Context) error {
	return t.run(ctx, command.New("php", "bin/spc", "doctor", "--auto-fix"))
}

// Verify checks that the binary exists and returns the modules it reports
// with -m.
func (t *Toolchain) Verify(ctx context.Context) ([]string, error) {
	bin := t.Tree.Binary()
	if info, err := os.Stat(bin); err != nil || info.IsDir() {
		return nil, perrors.Build("build failed: %s not found", bin)
	}
	res, err := t.Runner.Run(ctx, command.New(bin, "-m").In(t.Tree.Root).WithEnv(t.Env))
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeCommand, err, "run %s -m", bin)
	}
	if !res.OK() {
		return nil, perrors.Build("%s -m exited with status %d", bin, res.ExitCode)
	}
	return parseModules(res.Stdout), nil
}

// parseModules keeps module names from `php -m`, dropping section headers.
func parseModules(lines []string) []string {
	var out []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "[") {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (t *Toolchain) run(ctx context.Context, cmd command.Command) error {
	cmd = cmd.In(t.Tree.Root).WithEnv(t.Env)
	res, err := t.Runner.Run(ctx, cmd)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeCommand, err, "run %s", cmd.Name)
	}
	if !res.OK() {
		return perrors.Build("%s exited with status %d", cmd.String(), res.ExitCode)
	}
	return nil
}
