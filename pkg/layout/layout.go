// Package layout names the directories of a static-php-cli build tree.
//
//	<target>/static-php-cli/
//	    downloads/          archives and pre-populated library folders
//	    source/<lib>/       one normalized source tree per library
//	    build/              spc's intermediate objects
//	    buildroot/bin/php   the finished binary (php.exe on Windows)
package layout

import (
	"path/filepath"
	"runtime"

	"github.com/Abdallah-Tah/phpBuilder/pkg/fsops"
)

// CloneDir is the directory static-php-cli is cloned into.
const CloneDir = "static-php-cli"

// Tree resolves paths inside one spc checkout.
type Tree struct {
	Root string
	goos string
}

// New returns the tree rooted at root.
func New(root string) Tree {
	return Tree{Root: root, goos: runtime.GOOS}
}

// ForTarget returns the tree for a build request's target directory.
func ForTarget(target string) Tree {
	return New(filepath.Join(target, CloneDir))
}

// Downloads returns downloads/, joined with parts.
func (t Tree) Downloads(parts ...string) string { return t.join("downloads", parts) }

// Source returns source/, joined with parts.
func (t Tree) Source(parts ...string) string { return t.join("source", parts) }

// Library returns source/<lib>.
func (t Tree) Library(lib string) string { return t.Source(lib) }

// Build returns build/, joined with parts.
func (t Tree) Build(parts ...string) string { return t.join("build", parts) }

// BuildRoot returns buildroot/, joined with parts.
func (t Tree) BuildRoot(parts ...string) string { return t.join("buildroot", parts) }

// Config returns config/, joined with parts.
func (t Tree) Config(parts ...string) string { return t.join("config", parts) }

// Binary returns the path of the built PHP CLI binary.
func (t Tree) Binary() string {
	name := "php"
	if t.goos == "windows" {
		name = "php.exe"
	}
	return t.BuildRoot("bin", name)
}

// SPC returns bin/spc, the entry script run with php.
func (t Tree) SPC() string { return filepath.Join(t.Root, "bin", "spc") }

// Functions returns src/globals/functions.php.
func (t Tree) Functions() string { return t.join("src", []string{"globals", "functions.php"}) }

// Ensure creates downloads/, source/, build/ and buildroot/.
func (t Tree) Ensure() error {
	for _, dir := range []string{t.Downloads(), t.Source(), t.Build(), t.BuildRoot()} {
		if err := fsops.EnsureDir(dir); err != nil {
			return err
		}
	}
	return nil
}

func (t Tree) join(dir string, parts []string) string {
	return filepath.Join(append([]string{t.Root, dir}, parts...)...)
}
