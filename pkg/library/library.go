// Package library knows which native libraries a PHP build needs, which
// versions are pinned, and where their archives can be fetched from.
//
// The pinned table ships inside the binary (libraries.toml). Each entry maps
// a library name to a version, the archive names static-php-cli is known to
// produce for it, and an ordered list of candidate URLs tagged main, backup
// or archive. URL templates may use {version}, {majorMinorVersion} and
// {major}.
//
// php-src is special: its version always comes from the build request.
package library

import (
	_ "embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
)

// PHPSource is the library id of the PHP interpreter sources.
const PHPSource = "php-src"

//go:embed libraries.toml
var defaultTable []byte

// URLKind tags a candidate URL.
type URLKind string

const (
	KindMain    URLKind = "main"
	KindBackup  URLKind = "backup"
	KindArchive URLKind = "archive"
)

// Candidate is one place a library archive can be downloaded from.
type Candidate struct {
	Kind URLKind
	URL  string
	File string // Name to save the download under
}

// Spec describes how to obtain one library. The zero Spec (no candidates)
// is returned for unknown libraries.
type Spec struct {
	Name       string
	Version    string
	Candidates []Candidate
	Files      []string // Archive names static-php-cli is known to produce
	Patterns   []string // Glob fallbacks for FindArchive
	Directory  bool     // Delivered as a pre-populated directory
}

// Empty reports whether s has no way to obtain the library.
func (s Spec) Empty() bool {
	return len(s.Candidates) == 0
}

type urlEntry struct {
	Kind URLKind `toml:"kind"`
	URL  string  `toml:"url"`
	File string  `toml:"file"`
}

type entry struct {
	Version   string     `toml:"version"`
	Directory bool       `toml:"directory"`
	Files     []string   `toml:"files"`
	URLs      []urlEntry `toml:"urls"`
}

// Resolver looks up library specs.
type Resolver struct {
	// PHPVersion replaces the pinned php-src version when set.
	PHPVersion string

	table map[string]entry
}

// NewResolver returns a resolver over the built-in table.
func NewResolver(phpVersion string) (*Resolver, error) {
	r, err := ParseTable(defaultTable)
	if err != nil {
		return nil, err
	}
	r.PHPVersion = phpVersion
	return r, nil
}

// ParseTable builds a resolver from TOML in the libraries.toml format.
func ParseTable(data []byte) (*Resolver, error) {
	table := map[string]entry{}
	if _, err := toml.Decode(string(data), &table); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeConfiguration, err, "parse library table")
	}
	for name, e := range table {
		for _, u := range e.URLs {
			switch u.Kind {
			case KindMain, KindBackup, KindArchive:
			default:
				return nil, perrors.New(perrors.ErrCodeConfiguration, "library %s: unknown url kind %q", name, u.Kind)
			}
		}
	}
	return &Resolver{table: table}, nil
}

// Names returns every library in the table, sorted.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.table))
	for n := range r.table {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ResolveCandidates returns the spec for lib with templates expanded.
// Unknown libraries yield an empty Spec carrying only the name and the
// default glob patterns.
func (r *Resolver) ResolveCandidates(lib string) Spec {
	e, ok := r.table[lib]
	if !ok {
		return Spec{Name: lib, Patterns: defaultPatterns(lib)}
	}

	version := e.Version
	if lib == PHPSource && r.PHPVersion != "" {
		version = r.PHPVersion
	}

	s := Spec{
		Name:      lib,
		Version:   version,
		Directory: e.Directory,
		Patterns:  defaultPatterns(lib),
	}
	for _, f := range e.Files {
		s.Files = append(s.Files, expand(f, version))
	}
	for _, u := range e.URLs {
		c := Candidate{Kind: u.Kind, URL: expand(u.URL, version)}
		if u.File != "" {
			c.File = expand(u.File, version)
		} else {
			c.File = path.Base(c.URL)
		}
		s.Candidates = append(s.Candidates, c)
	}
	return s
}

// defaultPatterns only match names starting with lib. Bare tag archives such
// as v2.12.5.tar.gz are found through an entry's exact files instead.
func defaultPatterns(lib string) []string {
	return []string{
		lib + "*.tar.gz",
		lib + "*.tar.xz",
		lib + "*.tgz",
	}
}

// expand substitutes version placeholders in tmpl.
func expand(tmpl, version string) string {
	major, minor := splitVersion(version)
	mm := major
	if minor != "" {
		mm = major + "." + minor
	}
	return strings.NewReplacer(
		"{version}", version,
		"{majorMinorVersion}", mm,
		"{major}", major,
	).Replace(tmpl)
}

func splitVersion(v string) (major, minor string) {
	parts := strings.SplitN(v, ".", 3)
	major = parts[0]
	if len(parts) > 1 {
		minor = parts[1]
	}
	return major, minor
}

// String renders a spec for log output.
func (s Spec) String() string {
	if s.Version == "" {
		return s.Name
	}
	return fmt.Sprintf("%s %s", s.Name, s.Version)
}
