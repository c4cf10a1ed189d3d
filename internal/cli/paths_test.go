package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir("")
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	expected := filepath.Join(home, ".cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	customCache := filepath.Join(t.TempDir(), "custom-cache")
	t.Setenv("XDG_CACHE_HOME", customCache)

	dir, err := cacheDir("")
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	expected := filepath.Join(customCache, appName)
	if dir != expected {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, expected)
	}
}

func TestCacheDirTarget(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	target := t.TempDir()

	dir, err := cacheDir(target)
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	expected := filepath.Join(target, "static-php-cli", ".phpbuilder", "cache")
	if dir != expected {
		t.Errorf("cacheDir(target) = %q, want %q", dir, expected)
	}
	if !strings.HasPrefix(dir, target) {
		t.Errorf("cacheDir(target) = %q, should be inside %q", dir, target)
	}
}

func TestNewMirrorCacheDisabled(t *testing.T) {
	target := t.TempDir()
	c, err := newMirrorCache(target, true)
	if err != nil {
		t.Fatalf("newMirrorCache() error: %v", err)
	}
	if _, ok, _ := c.Get(t.Context(), "anything"); ok {
		t.Error("disabled cache returned a hit")
	}
	if _, err := os.Stat(filepath.Join(target, "static-php-cli")); !os.IsNotExist(err) {
		t.Error("disabled cache touched the target directory")
	}
}
