package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
	"github.com/Abdallah-Tah/phpBuilder/pkg/library"
)

// DefaultJobs is the SPC_CONCURRENCY value used when none is given.
const DefaultJobs = 4

// Keys read from a .env file.
const (
	EnvPerl     = "PHPBUILDER_PERL"
	EnvJobs     = "PHPBUILDER_JOBS"
	EnvSevenZip = "PHPBUILDER_SEVENZIP"
)

// BuildRequest describes one build.
type BuildRequest struct {
	TargetDirectory string `toml:"target_directory" yaml:"target_directory"`
	PHPVersion      string `toml:"php_version" yaml:"php_version"`
	MySQL           bool   `toml:"mysql" yaml:"mysql"`
	SQLServer       bool   `toml:"sqlsrv" yaml:"sqlsrv"`
	Postgres        bool   `toml:"pgsql" yaml:"pgsql"`

	Jobs       int    `toml:"jobs" yaml:"jobs"`
	PerlPath   string `toml:"perl" yaml:"perl"`
	SevenZip   string `toml:"sevenzip" yaml:"sevenzip"`
	Debug      bool   `toml:"debug" yaml:"debug"`
	PreferHTTP bool   `toml:"prefer_http" yaml:"prefer_http"`
}

// LoadRequest reads a request file. The format follows the extension:
// .toml, or .yaml/.yml.
func LoadRequest(path string) (BuildRequest, error) {
	var req BuildRequest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &req); err != nil {
			return req, perrors.Wrap(perrors.ErrCodeConfiguration, err, "load %s", path)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return req, perrors.Wrap(perrors.ErrCodeConfiguration, err, "load %s", path)
		}
		if err := yaml.Unmarshal(data, &req); err != nil {
			return req, perrors.Wrap(perrors.ErrCodeConfiguration, err, "parse %s", path)
		}
	default:
		return req, perrors.New(perrors.ErrCodeConfiguration, "unsupported request file %s: want .toml, .yaml or .yml", path)
	}
	return req, nil
}

// ApplyEnvFile fills unset fields of req from a .env file. A missing file is
// not an error. The process environment is not consulted or modified.
func ApplyEnvFile(req *BuildRequest, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeConfiguration, err, "read %s", path)
	}

	if req.PerlPath == "" {
		req.PerlPath = env[EnvPerl]
	}
	if req.SevenZip == "" {
		req.SevenZip = env[EnvSevenZip]
	}
	if v := env[EnvJobs]; v != "" && req.Jobs == 0 {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return perrors.New(perrors.ErrCodeConfiguration, "%s must be a positive integer, got %q", EnvJobs, v)
		}
		req.Jobs = n
	}
	return nil
}

// Merge overlays the non-zero fields of o onto r and returns the result.
// Booleans are ORed so a flag can only add a feature.
func (r BuildRequest) Merge(o BuildRequest) BuildRequest {
	if o.TargetDirectory != "" {
		r.TargetDirectory = o.TargetDirectory
	}
	if o.PHPVersion != "" {
		r.PHPVersion = o.PHPVersion
	}
	if o.Jobs != 0 {
		r.Jobs = o.Jobs
	}
	if o.PerlPath != "" {
		r.PerlPath = o.PerlPath
	}
	if o.SevenZip != "" {
		r.SevenZip = o.SevenZip
	}
	r.MySQL = r.MySQL || o.MySQL
	r.SQLServer = r.SQLServer || o.SQLServer
	r.Postgres = r.Postgres || o.Postgres
	r.Debug = r.Debug || o.Debug
	r.PreferHTTP = r.PreferHTTP || o.PreferHTTP
	return r
}

// WithDefaults returns r with unset optional fields filled in.
func (r BuildRequest) WithDefaults() BuildRequest {
	if r.Jobs <= 0 {
		r.Jobs = DefaultJobs
	}
	return r
}

// Validate checks the required fields and the version format.
func (r BuildRequest) Validate() error {
	if err := perrors.ValidateRequired(map[string]string{
		"target_directory": r.TargetDirectory,
		"php_version":      r.PHPVersion,
	}, "target_directory", "php_version"); err != nil {
		return err
	}
	return perrors.ValidatePHPVersion(r.PHPVersion)
}

// Flags returns the feature flags of the request.
func (r BuildRequest) Flags() library.Flags {
	return library.Flags{MySQL: r.MySQL, SQLServer: r.SQLServer, Postgres: r.Postgres}
}
