// Package config reads the configuration a build depends on.
//
// Two kinds of input are handled here:
//
//   - [Manager] loads static-php-cli's own JSON configuration
//     (config/source.json, lib.json, ext.json, pkg.json, pre-built.json)
//     from a checked-out spc tree. It implements [deps.Source] so the
//     dependency graph can read lib-depends and ext-depends lists.
//   - [BuildRequest] describes what to build. It comes from CLI flags, an
//     optional TOML or YAML request file, and an optional .env file.
//
// Nothing in this package reads or writes the process environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/Abdallah-Tah/phpBuilder/pkg/deps"
	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
)

// Section names, matching the file names under config/.
const (
	SectionSource   = "source"
	SectionLib      = "lib"
	SectionExt      = "ext"
	SectionPkg      = "pkg"
	SectionPreBuilt = "pre-built"
)

// Sections lists every section Load reads, in load order.
var Sections = []string{SectionSource, SectionLib, SectionExt, SectionPkg, SectionPreBuilt}

// Manager holds the parsed spc configuration of one working directory.
// A missing file yields an empty section.
type Manager struct {
	dir      string
	goos     string
	sections map[string]map[string]any
}

// Load reads every section from <dir>/config.
func Load(dir string) (*Manager, error) {
	m := &Manager{
		dir:      dir,
		goos:     runtime.GOOS,
		sections: make(map[string]map[string]any, len(Sections)),
	}
	for _, name := range Sections {
		section, err := readSection(filepath.Join(dir, "config", name+".json"))
		if err != nil {
			return nil, err
		}
		m.sections[name] = section
	}
	return m, nil
}

func readSection(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeConfiguration, err, "read %s", filepath.Base(path))
	}
	section := map[string]any{}
	if err := json.Unmarshal(data, &section); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeConfiguration, err, "parse %s", filepath.Base(path))
	}
	return section, nil
}

// Dir returns the working directory the configuration was loaded from.
func (m *Manager) Dir() string { return m.dir }

// Available reports whether lib.json or ext.json had any entries.
func (m *Manager) Available() bool {
	return len(m.sections[SectionLib]) > 0 || len(m.sections[SectionExt]) > 0
}

// Section returns a whole section. Unknown sections are empty.
func (m *Manager) Section(name string) map[string]any {
	if s, ok := m.sections[name]; ok {
		return s
	}
	return map[string]any{}
}

// Get returns one top-level key of a section.
func (m *Manager) Get(section, key string) (any, bool) {
	v, ok := m.sections[section][key]
	return v, ok
}

// Library returns the lib.json entry for name, or an empty map.
func (m *Manager) Library(name string) map[string]any {
	return entry(m.sections[SectionLib], name)
}

// Extension returns the ext.json entry for name, or an empty map.
func (m *Manager) Extension(name string) map[string]any {
	return entry(m.sections[SectionExt], name)
}

// LibraryValue returns one key of a library entry.
func (m *Manager) LibraryValue(name, key string) (any, bool) {
	v, ok := m.Library(name)[key]
	return v, ok
}

// Names returns the sorted keys of a section.
func (m *Manager) Names(section string) []string {
	s := m.sections[section]
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// LibraryList implements deps.Source.
func (m *Manager) LibraryList(name, key string) []string {
	return m.list(m.Library(name), key)
}

// ExtensionList implements deps.Source.
func (m *Manager) ExtensionList(name, key string) []string {
	return m.list(m.Extension(name), key)
}

// list reads a string list, preferring the platform-specific variant of key
// (lib-depends-windows, lib-depends-linux, lib-depends-unix) over the plain
// one.
func (m *Manager) list(e map[string]any, key string) []string {
	for _, k := range m.platformKeys(key) {
		if v, ok := e[k]; ok {
			return stringList(v)
		}
	}
	return nil
}

func (m *Manager) platformKeys(key string) []string {
	switch m.goos {
	case "windows":
		return []string{key + "-windows", key}
	case "darwin":
		return []string{key + "-macos", key + "-unix", key}
	default:
		return []string{key + "-" + m.goos, key + "-unix", key}
	}
}

func entry(section map[string]any, name string) map[string]any {
	if e, ok := section[name].(map[string]any); ok {
		return e
	}
	return map[string]any{}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok && s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// String describes the loaded configuration for log output.
func (m *Manager) String() string {
	return fmt.Sprintf("spc config %s (%d libs, %d exts)", m.dir, len(m.sections[SectionLib]), len(m.sections[SectionExt]))
}

var _ deps.Source = (*Manager)(nil)
