package patch

import (
	"os"
	"strings"

	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
)

// QuoteLine wraps $cmd in double quotes before f_passthru hands it to passthru.
const QuoteLine = `    $cmd = '"' . str_replace('"', '\"', $cmd) . '"';`

// brokenQuoteLine is a mangled form written by older tooling; it is removed.
const brokenQuoteLine = `$cmd = '' . str_replace('', '\\', $cmd) . '';`

// lookahead bounds how far after the function header passthru is searched.
const lookahead = 10

// PatchFunctions inserts QuoteLine before the passthru($cmd call inside
// f_passthru in the file at path. It reports whether the file changed.
func PatchFunctions(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, perrors.New(perrors.ErrCodeNotFound, "functions.php not found at %s", path)
	}
	if err != nil {
		return false, perrors.Wrap(perrors.ErrCodeFileSystem, err, "read %s", path)
	}

	patched, changed := quotePassthru(string(data))
	if !changed {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, perrors.Wrap(perrors.ErrCodeFileSystem, err, "stat %s", path)
	}
	if err := os.WriteFile(path, []byte(patched), info.Mode().Perm()); err != nil {
		return false, perrors.Wrap(perrors.ErrCodeFileSystem, err, "write %s", path)
	}
	return true, nil
}

func quotePassthru(src string) (string, bool) {
	nl := "\n"
	if strings.Contains(src, "\r\n") {
		nl = "\r\n"
	}
	lines := strings.Split(src, nl)

	out := make([]string, 0, len(lines)+1)
	changed := false
	inFunc, done := false, false
	seen := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == brokenQuoteLine {
			changed = true
			continue
		}
		if trimmed == strings.TrimSpace(QuoteLine) {
			if done || !inFunc {
				changed = true
				continue
			}
			done = true
			out = append(out, line)
			continue
		}
		if strings.Contains(line, "function f_passthru") {
			inFunc, seen = true, 0
			out = append(out, line)
			continue
		}
		if inFunc && !done {
			seen++
			if strings.Contains(line, "passthru($cmd") {
				out = append(out, QuoteLine)
				changed, done = true, true
			} else if seen >= lookahead {
				inFunc = false
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, nl), changed
}
