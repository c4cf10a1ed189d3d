package errors

import (
	"os"
	"regexp"
	"slices"
	"strings"
	"unicode"
)

var (
	phpVersionRegex    = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	extensionNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	libraryNameRegex   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidatePHPVersion checks that version has the X.Y.Z form.
func ValidatePHPVersion(version string) error {
	if !phpVersionRegex.MatchString(version) {
		return New(ErrCodeValidation, "invalid PHP version format: %q", version)
	}
	return nil
}

// ValidateExtensionName validates a PHP extension identifier.
func ValidateExtensionName(name string) error {
	if !extensionNameRegex.MatchString(name) {
		return New(ErrCodeValidation, "invalid extension name: %q", name)
	}
	return nil
}

// ValidateLibraryName validates a native library identifier.
// Library names may contain dashes (libiconv-win, php-src), extensions may not.
func ValidateLibraryName(name string) error {
	if !libraryNameRegex.MatchString(name) {
		return New(ErrCodeValidation, "invalid library name: %q", name)
	}
	return nil
}

// ValidateRequired reports every field of required that is absent or empty
// in fields. Missing names are listed sorted so the message is stable.
func ValidateRequired(fields map[string]string, required ...string) error {
	var missing []string
	for _, name := range required {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return New(ErrCodeValidation, "missing required fields: %s", strings.Join(missing, ", "))
}

// ValidatePath validates that path exists and can be stat'ed.
//
// Validation rules:
//   - Path cannot be empty
//   - No null bytes or control characters
//   - Path must exist
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeValidation, "path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeValidation, "path contains invalid characters")
		}
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return New(ErrCodeValidation, "path does not exist: %s", path)
		}
		return Wrap(ErrCodeValidation, err, "path is not accessible: %s", path)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeValidation, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeValidation, "URL must use http or https scheme")
	}

	return nil
}
