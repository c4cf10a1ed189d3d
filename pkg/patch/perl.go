package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Abdallah-Tah/phpBuilder/pkg/command"
	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
)

// ShimName is the file the perl shim is written to.
const ShimName = "perl.bat"

// EnvPerl is read by spc to locate perl.
const EnvPerl = "SPC_PERL"

// PerlFinder locates a perl executable.
type PerlFinder struct {
	Runner command.Runner
	// Getenv reads install-location variables (ProgramFiles, LocalAppData).
	// Defaults to os.Getenv.
	Getenv func(string) string
	goos   string
}

// Candidates lists the Git for Windows perl locations checked before PATH.
// It is empty off Windows.
func (f PerlFinder) Candidates() []string {
	if f.os() != "windows" {
		return nil
	}
	getenv := f.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	or := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}
	var out []string
	out = append(out, filepath.Join(or("ProgramFiles", `C:\Program Files`), "Git", "usr", "bin", "perl.exe"))
	out = append(out, filepath.Join(or("ProgramFiles(x86)", `C:\Program Files (x86)`), "Git", "usr", "bin", "perl.exe"))
	if local := getenv("LocalAppData"); local != "" {
		out = append(out, filepath.Join(local, "Programs", "Git", "usr", "bin", "perl.exe"))
	}
	return out
}

// Find returns override when set, else the first existing candidate, else
// perl from PATH.
func (f PerlFinder) Find(override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", perrors.Wrap(perrors.ErrCodeConfiguration, err, "perl %s", override)
		}
		return override, nil
	}
	for _, p := range f.Candidates() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	if f.Runner != nil {
		if p, ok := f.Runner.LookPath("perl"); ok {
			return p, nil
		}
	}
	return "", perrors.New(perrors.ErrCodeNotFound, "perl not found in Git for Windows locations or PATH")
}

func (f PerlFinder) os() string {
	if f.goos != "" {
		return f.goos
	}
	return runtime.GOOS
}

// ApplyPerlShim writes dir/perl.bat forwarding to perl, puts dir on env's
// PATH once and sets SPC_PERL. It returns the shim path.
func ApplyPerlShim(dir, perl string, env command.Env) (string, error) {
	shim := filepath.Join(dir, ShimName)
	content := fmt.Sprintf("@\"%s\" %%*\r\n", perl)
	if err := os.WriteFile(shim, []byte(content), 0o755); err != nil {
		return "", perrors.Wrap(perrors.ErrCodeFileSystem, err, "write %s", shim)
	}
	env.PrependPath(dir)
	env[EnvPerl] = perl
	return shim, nil
}
