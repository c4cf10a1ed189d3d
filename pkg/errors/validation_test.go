package errors

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePHPVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "8.3.21", false},
		{"valid long", "10.12.100", false},

		{"empty", "", true},
		{"two parts", "8.3", true},
		{"four parts", "8.3.21.1", true},
		{"suffix", "8.3.21-dev", true},
		{"prefix v", "v8.3.21", true},
		{"letters", "a.b.c", true},
		{"trailing newline", "8.3.21\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePHPVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePHPVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeValidation) {
				t.Errorf("ValidatePHPVersion(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeValidation)
			}
		})
	}
}

func TestValidateExtensionName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"pdo_mysql", false},
		{"sqlite3", false},
		{"Zip", false},
		{"pdo-mysql", true},
		{"", true},
		{"ext@curl", true},
		{"a b", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateExtensionName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateExtensionName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLibraryName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"php-src", false},
		{"libiconv-win", false},
		{"pdo_sqlsrv", false},
		{"", true},
		{"../etc", true},
		{"lib/x", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateLibraryName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLibraryName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRequired(t *testing.T) {
	t.Run("all present", func(t *testing.T) {
		fields := map[string]string{"clone_dir": "C:/build", "php_version": "8.3.21"}
		if err := ValidateRequired(fields, "clone_dir", "php_version"); err != nil {
			t.Errorf("ValidateRequired() error = %v", err)
		}
	})

	t.Run("missing listed sorted", func(t *testing.T) {
		fields := map[string]string{"other": "x", "php_version": "  "}
		err := ValidateRequired(fields, "php_version", "clone_dir")
		if err == nil {
			t.Fatal("ValidateRequired() error = nil, want error")
		}
		if !strings.Contains(err.Error(), "missing required fields: clone_dir, php_version") {
			t.Errorf("ValidateRequired() error = %q", err.Error())
		}
	})
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"existing dir", dir, false},
		{"empty", "", true},
		{"missing", filepath.Join(dir, "nope"), true},
		{"null byte", "foo\x00bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"https://www.php.net/distributions/php-8.3.21.tar.xz", false},
		{"http://example.com", false},
		{"", true},
		{"ftp://example.com", true},
		{"file:///etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
