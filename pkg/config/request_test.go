package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadRequest(t *testing.T) {
	dir := t.TempDir()
	want := BuildRequest{
		TargetDirectory: "/opt/php",
		PHPVersion:      "8.3.4",
		SQLServer:       true,
		Jobs:            8,
		PerlPath:        `C:\Strawberry\perl\bin\perl.exe`,
	}

	tests := []struct {
		name, file, content string
	}{
		{"toml", "build.toml", `
target_directory = "/opt/php"
php_version = "8.3.4"
sqlsrv = true
jobs = 8
perl = 'C:\Strawberry\perl\bin\perl.exe'
`},
		{"yaml", "build.yaml", `
target_directory: /opt/php
php_version: "8.3.4"
sqlsrv: true
jobs: 8
perl: 'C:\Strawberry\perl\bin\perl.exe'
`},
		{"yml", "build.YML", `
target_directory: /opt/php
php_version: "8.3.4"
sqlsrv: true
jobs: 8
perl: 'C:\Strawberry\perl\bin\perl.exe'
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadRequest(writeFile(t, dir, tt.file, tt.content))
			if err != nil {
				t.Fatalf("LoadRequest() error = %v", err)
			}
			if got != want {
				t.Errorf("LoadRequest() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestLoadRequestErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name, path string
	}{
		{"unsupported extension", writeFile(t, dir, "build.json", "{}")},
		{"bad toml", writeFile(t, dir, "bad.toml", "php_version = ")},
		{"bad yaml", writeFile(t, dir, "bad.yaml", "jobs: [")},
		{"missing", filepath.Join(dir, "nope.yaml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadRequest(tt.path); !perrors.Is(err, perrors.ErrCodeConfiguration) {
				t.Errorf("LoadRequest() error = %v, want CONFIGURATION_ERROR", err)
			}
		})
	}
}

func TestApplyEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "PHPBUILDER_PERL=/usr/bin/perl\nPHPBUILDER_JOBS=12\nPHPBUILDER_SEVENZIP=/usr/bin/7z\n")

	t.Run("fills unset", func(t *testing.T) {
		var req BuildRequest
		if err := ApplyEnvFile(&req, path); err != nil {
			t.Fatalf("ApplyEnvFile() error = %v", err)
		}
		if req.PerlPath != "/usr/bin/perl" || req.Jobs != 12 || req.SevenZip != "/usr/bin/7z" {
			t.Errorf("req = %+v", req)
		}
	})

	t.Run("keeps set", func(t *testing.T) {
		req := BuildRequest{PerlPath: "/opt/perl", Jobs: 2}
		if err := ApplyEnvFile(&req, path); err != nil {
			t.Fatal(err)
		}
		if req.PerlPath != "/opt/perl" || req.Jobs != 2 {
			t.Errorf("req = %+v", req)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		var req BuildRequest
		if err := ApplyEnvFile(&req, filepath.Join(dir, "absent.env")); err != nil {
			t.Errorf("ApplyEnvFile() error = %v", err)
		}
	})

	t.Run("bad jobs", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.env", "PHPBUILDER_JOBS=many\n")
		var req BuildRequest
		if err := ApplyEnvFile(&req, bad); !perrors.Is(err, perrors.ErrCodeConfiguration) {
			t.Errorf("ApplyEnvFile() error = %v", err)
		}
	})

	if _, set := os.LookupEnv(EnvPerl); set {
		t.Errorf("%s leaked into the process environment", EnvPerl)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     BuildRequest
		wantErr string
	}{
		{"ok", BuildRequest{TargetDirectory: "/x", PHPVersion: "8.4.7"}, ""},
		{"missing both", BuildRequest{}, "missing required fields: php_version, target_directory"},
		{"missing dir", BuildRequest{PHPVersion: "8.4.7"}, "missing required fields: target_directory"},
		{"bad version", BuildRequest{TargetDirectory: "/x", PHPVersion: "8.4"}, "invalid PHP version format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !perrors.Is(err, perrors.ErrCodeValidation) || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestMergeAndDefaults(t *testing.T) {
	file := BuildRequest{TargetDirectory: "/from/file", PHPVersion: "8.2.0", MySQL: true, Jobs: 6}
	flags := BuildRequest{PHPVersion: "8.3.4", Postgres: true}

	got := file.Merge(flags).WithDefaults()
	if got.TargetDirectory != "/from/file" || got.PHPVersion != "8.3.4" || got.Jobs != 6 {
		t.Errorf("Merge() = %+v", got)
	}
	if f := got.Flags(); !f.MySQL || !f.Postgres || f.SQLServer {
		t.Errorf("Flags() = %+v", f)
	}
	if j := (BuildRequest{}).WithDefaults().Jobs; j != DefaultJobs {
		t.Errorf("default Jobs = %d", j)
	}
}
