package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"

	"github.com/Abdallah-Tah/phpBuilder/pkg/command"
)

// testLibBz2 is a .tar.bz2 holding test_lib-1.0/data.txt ("hello world").
// The standard library has no bzip2 writer, so it is stored pre-built.
const testLibBz2 = "QlpoOTFBWSZTWb04NhUAAJ7/gMqAAgBAA/+AAAgIAPZknsAICCAAdBKKm2ojEyDTPU0mCeUElIAaAaAAA+6mbWwgSAziSQiq3kdI0KHMGkohDAGLnU+GjGCgmJUdAQfOgCpSDil2TJ49NZS2dPYHFFTHY3juxOBHY4oJORgSJzGUlZrMe/ARA/i7kinChIXpwbCo"

type entry struct {
	name string
	body string // empty with dir=true for directories
	dir  bool
	link string // symlink target
}

func tarBytes(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body))}
		switch {
		case e.dir:
			hdr.Typeflag, hdr.Mode, hdr.Size = tar.TypeDir, 0o755, 0
		case e.link != "":
			hdr.Typeflag, hdr.Linkname, hdr.Size = tar.TypeSymlink, e.link, 0
		default:
			hdr.Typeflag = tar.TypeReg
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if hdr.Size > 0 {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zipBytes(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		name := e.name
		if e.dir && !strings.HasSuffix(name, "/") {
			name += "/"
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// writeArchive creates an archive of the kind implied by name's suffix.
func writeArchive(t *testing.T, path string, entries []entry) {
	t.Helper()
	var data []byte
	switch Classify(path) {
	case Zip:
		data = zipBytes(t, entries)
	case Tar:
		data = tarBytes(t, entries)
	case TarGz:
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		gw.Write(tarBytes(t, entries))
		gw.Close()
		data = buf.Bytes()
	case TarXz:
		var buf bytes.Buffer
		xw, err := xz.NewWriter(&buf)
		if err != nil {
			t.Fatal(err)
		}
		xw.Write(tarBytes(t, entries))
		xw.Close()
		data = buf.Bytes()
	default:
		t.Fatalf("cannot build %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"php-8.4.7.tar.xz", TarXz},
		{"zlib-1.3.1.tar.gz", TarGz},
		{"sqlsrv.tgz", TarGz},
		{"bzip2-1.0.8.TAR.BZ2", TarBz2},
		{"source.tar", Tar},
		{"libiconv-win.ZIP", Zip},
		{"composer.jar", Zip},
		{"notes.txt", Unknown},
		{"archive.gz", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.name); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestTrimSuffix(t *testing.T) {
	if got := TrimSuffix("php-8.4.7.tar.xz"); got != "php-8.4.7" {
		t.Errorf("TrimSuffix() = %q", got)
	}
	if got := TrimSuffix("README"); got != "README" {
		t.Errorf("TrimSuffix() = %q", got)
	}
}

func TestExtractFormats(t *testing.T) {
	ctx := context.Background()
	wrapped := []entry{
		{name: "test_lib-1.0/", dir: true},
		{name: "test_lib-1.0/data.txt", body: "hello world"},
		{name: "test_lib-1.0/src/a.c", body: "int a;"},
	}
	flat := []entry{
		{name: "data.txt", body: "hello world"},
		{name: "src/a.c", body: "int a;"},
	}

	for _, suffix := range []string{".tar.gz", ".tgz", ".tar.xz", ".tar", ".zip", ".jar"} {
		for _, layout := range []struct {
			name    string
			entries []entry
		}{{"wrapped", wrapped}, {"flat", flat}} {
			t.Run(suffix+"/"+layout.name, func(t *testing.T) {
				root := t.TempDir()
				arc := filepath.Join(root, "downloads", "test_lib-1.0"+suffix)
				writeArchive(t, arc, layout.entries)
				target := filepath.Join(root, "source", "test_lib")

				out := NewExtractor(nil, nil).Extract(ctx, arc, target, "test_lib")
				if !out.OK {
					t.Fatalf("Extract() failed: %v", out.Err)
				}
				if out.Dir != target {
					t.Errorf("Dir = %q, want %q", out.Dir, target)
				}
				if got := readFile(t, filepath.Join(target, "data.txt")); got != "hello world" {
					t.Errorf("data.txt = %q", got)
				}
				if got := readFile(t, filepath.Join(target, "src", "a.c")); got != "int a;" {
					t.Errorf("src/a.c = %q", got)
				}
				if out.Files != 2 {
					t.Errorf("Files = %d, want 2", out.Files)
				}
			})
		}
	}
}

func TestExtractTarBz2(t *testing.T) {
	data, err := base64.StdEncoding.DecodeString(testLibBz2)
	if err != nil {
		t.Fatal(err)
	}
	root := t.TempDir()
	arc := filepath.Join(root, "test_lib-1.0.tar.bz2")
	if err := os.WriteFile(arc, data, 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(root, "source", "test_lib")

	out := NewExtractor(nil, nil).Extract(context.Background(), arc, target, "test_lib")
	if !out.OK {
		t.Fatalf("Extract() failed: %v", out.Err)
	}
	if got := readFile(t, filepath.Join(target, "data.txt")); got != "hello world" {
		t.Errorf("data.txt = %q", got)
	}
}

func TestExtractUnsupportedLeavesTarget(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "unsupported.txt")
	os.WriteFile(file, []byte("This is not an archive."), 0o644)
	target := filepath.Join(root, "source", "unsupported_lib")
	os.MkdirAll(target, 0o755)
	os.WriteFile(filepath.Join(target, "keep.h"), []byte("x"), 0o644)

	out := NewExtractor(nil, nil).Extract(context.Background(), file, target, "unsupported_lib")
	if out.OK {
		t.Fatal("Extract() succeeded for .txt")
	}
	if !errors.Is(out.Err, ErrUnsupportedFormat) {
		t.Errorf("Err = %v, want ErrUnsupportedFormat", out.Err)
	}
	if out.Err.Error() != "unsupported archive format: unsupported.txt" {
		t.Errorf("Err = %q", out.Err.Error())
	}
	if _, err := os.Stat(filepath.Join(target, "keep.h")); err != nil {
		t.Error("target was modified")
	}
}

func TestExtractCorruptArchive(t *testing.T) {
	root := t.TempDir()
	arc := filepath.Join(root, "zlib-1.3.1.tar.gz")
	os.WriteFile(arc, []byte("<html>404 Not Found</html>"), 0o644)
	target := filepath.Join(root, "source", "zlib")
	os.MkdirAll(target, 0o755)
	os.WriteFile(filepath.Join(target, "zlib.h"), []byte("old"), 0o644)

	out := NewExtractor(nil, nil).Extract(context.Background(), arc, target, "zlib")
	if out.OK || out.Err == nil {
		t.Fatal("Extract() succeeded for a corrupt archive")
	}
	if got := readFile(t, filepath.Join(target, "zlib.h")); got != "old" {
		t.Errorf("target changed: zlib.h = %q", got)
	}
	assertNoScratch(t, filepath.Join(root, "source"))
}

func TestExtractReplacesStaleTarget(t *testing.T) {
	root := t.TempDir()
	arc := filepath.Join(root, "openssl-3.5.0.tar.gz")
	writeArchive(t, arc, []entry{{name: "openssl-3.5.0/Configure", body: "perl"}})
	target := filepath.Join(root, "source", "openssl")
	os.MkdirAll(target, 0o755)
	os.WriteFile(filepath.Join(target, "stale.o"), []byte("x"), 0o644)

	out := NewExtractor(nil, nil).Extract(context.Background(), arc, target, "openssl")
	if !out.OK {
		t.Fatalf("Extract() failed: %v", out.Err)
	}
	if _, err := os.Stat(filepath.Join(target, "stale.o")); !os.IsNotExist(err) {
		t.Error("stale file survived extraction")
	}
	if readFile(t, filepath.Join(target, "Configure")) != "perl" {
		t.Error("Configure not extracted")
	}
	assertNoScratch(t, filepath.Join(root, "source"))
}

func TestExtractPicksNamedRoot(t *testing.T) {
	root := t.TempDir()
	arc := filepath.Join(root, "libxml2.tar.gz")
	writeArchive(t, arc, []entry{
		{name: "pax_extra/", dir: true},
		{name: "pax_extra/ignored", body: "x"},
		{name: "libxml2-2.12.5/xmlversion.h", body: "2.12.5"},
	})
	target := filepath.Join(root, "source", "libxml2")

	out := NewExtractor(nil, nil).Extract(context.Background(), arc, target, "libxml2")
	if !out.OK {
		t.Fatalf("Extract() failed: %v", out.Err)
	}
	if readFile(t, filepath.Join(target, "xmlversion.h")) != "2.12.5" {
		t.Error("named directory not chosen as source root")
	}
}

func TestExtractFlattensDoubleWrapper(t *testing.T) {
	for _, suffix := range []string{".tar.gz", ".zip"} {
		t.Run(suffix, func(t *testing.T) {
			root := t.TempDir()
			arc := filepath.Join(root, "test_lib-1.0"+suffix)
			writeArchive(t, arc, []entry{
				{name: "test_lib/", dir: true},
				{name: "test_lib/test_lib-1.0/", dir: true},
				{name: "test_lib/test_lib-1.0/configure", body: "#!/bin/sh"},
				{name: "test_lib/test_lib-1.0/data.txt", body: "hello world"},
			})
			target := filepath.Join(root, "source", "test_lib")

			out := NewExtractor(nil, nil).Extract(context.Background(), arc, target, "test_lib")
			if !out.OK {
				t.Fatalf("Extract() failed: %v", out.Err)
			}
			if got := readFile(t, filepath.Join(target, "configure")); got != "#!/bin/sh" {
				t.Errorf("configure = %q", got)
			}
			if got := readFile(t, filepath.Join(target, "data.txt")); got != "hello world" {
				t.Errorf("data.txt = %q", got)
			}
			if _, err := os.Stat(filepath.Join(target, "test_lib-1.0")); !os.IsNotExist(err) {
				t.Error("wrapper directory left in target")
			}
		})
	}
}

func TestExtractScratchIsHidden(t *testing.T) {
	root := t.TempDir()
	arc := filepath.Join(root, "zlib-1.3.1.zip")
	os.WriteFile(arc, []byte("not a zip"), 0o644)

	var scratch string
	fake := &command.Fake{Handler: func(cmd command.Command) (command.Result, error) {
		dest := strings.TrimPrefix(cmd.Args[2], "-o")
		scratch = filepath.Base(dest)
		return command.Result{}, os.WriteFile(filepath.Join(dest, "zlib.h"), []byte("zlib"), 0o644)
	}}
	x := NewExtractor(nil, nil)
	x.SevenZip = "7z"
	x.Runner = fake

	if out := x.Extract(context.Background(), arc, filepath.Join(root, "source", "zlib"), "zlib"); !out.OK {
		t.Fatalf("Extract() failed: %v", out.Err)
	}
	if !strings.HasPrefix(scratch, ".zlib.extract-") {
		t.Errorf("scratch directory = %q, want a .zlib.extract- prefix", scratch)
	}
}

func TestRepairSkipsLeftoverScratch(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source")
	downloads := filepath.Join(root, "downloads")
	os.MkdirAll(filepath.Join(source, ".zlib.extract-123"), 0o755)
	writeArchive(t, filepath.Join(downloads, "zlib-1.3.1.tar.gz"), []entry{{name: "zlib-1.3.1/zlib.h", body: "zlib"}})

	restored, err := NewExtractor(nil, nil).Repair(context.Background(), source, downloads)
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if len(restored) != 0 {
		t.Errorf("restored = %v, want none", restored)
	}
}

func TestRepairFlattensWrappedLibrary(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source")
	os.MkdirAll(filepath.Join(source, "xz", "xz-5.6.3"), 0o755)
	os.WriteFile(filepath.Join(source, "xz", "xz-5.6.3", "configure"), []byte("sh"), 0o644)

	if _, err := NewExtractor(nil, nil).Repair(context.Background(), source, filepath.Join(root, "downloads")); err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if readFile(t, filepath.Join(source, "xz", "configure")) != "sh" {
		t.Error("wrapped library not flattened")
	}
}

func TestExpandNestedFlattensResult(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, filepath.Join(dir, "pdo_sqlsrv.zip"), []entry{
		{name: "outer/pdo_sqlsrv-5.12/config.m4", body: "PHP_ARG"},
	})

	n, err := NewExtractor(nil, nil).ExpandNested(context.Background(), dir)
	if err != nil {
		t.Fatalf("ExpandNested() error = %v", err)
	}
	if n != 1 {
		t.Errorf("expanded %d, want 1", n)
	}
	if readFile(t, filepath.Join(dir, "config.m4")) != "PHP_ARG" {
		t.Error("expanded tree not flattened")
	}
}

func assertNoScratch(t *testing.T, dir string) {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".extract-") {
			t.Errorf("scratch directory %s left behind", e.Name())
		}
	}
}

func TestUnpackRejectsTraversal(t *testing.T) {
	tests := []struct {
		name    string
		entries []entry
	}{
		{"parent escape", []entry{{name: "../evil.sh", body: "rm -rf /"}}},
		{"nested escape", []entry{{name: "lib/../../evil.sh", body: "x"}}},
		{"absolute", []entry{{name: "/etc/evil", body: "x"}}},
		{"absolute symlink", []entry{{name: "lib/passwd", link: "/etc/passwd"}}},
		{"escaping symlink", []entry{{name: "lib/up", link: "../../outside"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			arc := filepath.Join(root, "bad.tar")
			writeArchive(t, arc, tt.entries)

			_, err := Unpack(context.Background(), arc, filepath.Join(root, "out"))
			if !errors.Is(err, ErrUnsafePath) {
				t.Errorf("Unpack() error = %v, want ErrUnsafePath", err)
			}
			if _, err := os.Stat(filepath.Join(root, "evil.sh")); err == nil {
				t.Error("file written outside destination")
			}
		})
	}
}

func TestUnpackKeepsRelativeSymlink(t *testing.T) {
	root := t.TempDir()
	arc := filepath.Join(root, "links.tar")
	writeArchive(t, arc, []entry{
		{name: "lib/libz.so.1.3.1", body: "elf"},
		{name: "lib/libz.so", link: "libz.so.1.3.1"},
	})
	dest := filepath.Join(root, "out")
	if _, err := Unpack(context.Background(), arc, dest); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	link, err := os.Readlink(filepath.Join(dest, "lib", "libz.so"))
	if err != nil {
		t.Skip("symlinks unsupported:", err)
	}
	if link != "libz.so.1.3.1" {
		t.Errorf("link = %q", link)
	}
}

func TestSourceRoot(t *testing.T) {
	tests := []struct {
		name string
		dirs []string
		file string
		lib  string
		want string // "" means the root itself
	}{
		{"direct match", []string{"my_library", "another_dir"}, "", "my_library", "my_library"},
		{"versioned match", []string{"my_library-1.2.3", "another_dir"}, "", "my_library", "my_library-1.2.3"},
		{"case-insensitive", []string{"LibPNG-1.6", "docs"}, "", "libpng", "LibPNG-1.6"},
		{"single dir fallback", []string{"source_code_pkg"}, "", "my_library", "source_code_pkg"},
		{"multiple non-matching", []string{"src", "libfiles", "docs"}, "", "my_library", ""},
		{"dir beside file", []string{"src"}, "README", "my_library", ""},
		{"prefix without dash", []string{"my_library_extra", "other"}, "", "my_library", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for _, d := range tt.dirs {
				os.Mkdir(filepath.Join(root, d), 0o755)
			}
			if tt.file != "" {
				os.WriteFile(filepath.Join(root, tt.file), nil, 0o644)
			}
			want := root
			if tt.want != "" {
				want = filepath.Join(root, tt.want)
			}
			if got := SourceRoot(root, tt.lib); got != want {
				t.Errorf("SourceRoot() = %q, want %q", got, want)
			}
		})
	}
}

func TestFlatten(t *testing.T) {
	t.Run("single wrapper", func(t *testing.T) {
		dir := t.TempDir()
		os.MkdirAll(filepath.Join(dir, "curl-8.13.0", "lib"), 0o755)
		os.WriteFile(filepath.Join(dir, "curl-8.13.0", "configure"), []byte("sh"), 0o755)

		moved, err := Flatten(dir)
		if err != nil || !moved {
			t.Fatalf("Flatten() = %v, %v", moved, err)
		}
		if _, err := os.Stat(filepath.Join(dir, "configure")); err != nil {
			t.Error("configure not moved up")
		}
		if _, err := os.Stat(filepath.Join(dir, "lib")); err != nil {
			t.Error("lib/ not moved up")
		}
		if _, err := os.Stat(filepath.Join(dir, "curl-8.13.0")); !os.IsNotExist(err) {
			t.Error("wrapper not removed")
		}

		moved, err = Flatten(dir)
		if err != nil || moved {
			t.Errorf("second Flatten() = %v, %v, want no-op", moved, err)
		}
	})

	t.Run("wrapper holding same name", func(t *testing.T) {
		dir := t.TempDir()
		os.MkdirAll(filepath.Join(dir, "src", "src"), 0o755)
		os.WriteFile(filepath.Join(dir, "src", "src", "main.c"), nil, 0o644)
		os.WriteFile(filepath.Join(dir, "src", "Makefile"), nil, 0o644)

		if _, err := Flatten(dir); err != nil {
			t.Fatalf("Flatten() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "src", "main.c")); err != nil {
			t.Error("inner src/main.c lost")
		}
		if _, err := os.Stat(filepath.Join(dir, "Makefile")); err != nil {
			t.Error("Makefile not moved up")
		}
	})

	t.Run("multiple entries", func(t *testing.T) {
		dir := t.TempDir()
		os.Mkdir(filepath.Join(dir, "a"), 0o755)
		os.Mkdir(filepath.Join(dir, "b"), 0o755)
		if moved, err := Flatten(dir); err != nil || moved {
			t.Errorf("Flatten() = %v, %v, want no-op", moved, err)
		}
	})

	t.Run("single file", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, "only.h"), nil, 0o644)
		if moved, err := Flatten(dir); err != nil || moved {
			t.Errorf("Flatten() = %v, %v, want no-op", moved, err)
		}
	})
}

func TestExpandNested(t *testing.T) {
	dir := t.TempDir()

	// The outer archive carries a second archive of its own.
	var inner bytes.Buffer
	gw := gzip.NewWriter(&inner)
	gw.Write(tarBytes(t, []entry{{name: "pdo_sqlsrv-5.12/config.w32", body: "ARG_WITH"}}))
	gw.Close()
	writeArchive(t, filepath.Join(dir, "sqlsrv.tgz"), []entry{
		{name: "sqlsrv-5.12/config.m4", body: "PHP_ARG"},
		{name: "sqlsrv-5.12/pdo_sqlsrv.tar.gz", body: inner.String()},
	})

	n, err := NewExtractor(nil, nil).ExpandNested(context.Background(), dir)
	if err != nil {
		t.Fatalf("ExpandNested() error = %v", err)
	}
	if n != 2 {
		t.Errorf("expanded %d archives, want 2", n)
	}
	for _, rel := range []string{"config.m4", "config.w32"} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("%s missing after expansion", rel)
		}
	}
	for _, gone := range []string{"sqlsrv.tgz", "pdo_sqlsrv.tar.gz"} {
		if _, err := os.Stat(filepath.Join(dir, gone)); !os.IsNotExist(err) {
			t.Errorf("%s not removed", gone)
		}
	}
}

func TestExpandNestedStopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "broken.tar.xz"), []byte("garbage"), 0o644)
	writeArchive(t, filepath.Join(dir, "good.zip"), []entry{{name: "ok.txt", body: "ok"}})

	n, err := NewExtractor(nil, nil).ExpandNested(context.Background(), dir)
	if err == nil || !strings.Contains(err.Error(), "broken.tar.xz") {
		t.Errorf("ExpandNested() error = %v, want mention of broken.tar.xz", err)
	}
	if n != 1 {
		t.Errorf("expanded %d, want 1", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "broken.tar.xz")); err != nil {
		t.Error("failed archive should stay in place")
	}
	if _, err := os.Stat(filepath.Join(dir, "ok.txt")); err != nil {
		t.Error("good archive not expanded")
	}
}

func TestRepair(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source")
	downloads := filepath.Join(root, "downloads")

	os.MkdirAll(filepath.Join(source, "libzip"), 0o755)
	os.MkdirAll(filepath.Join(source, "micro"), 0o755)
	os.MkdirAll(filepath.Join(source, "zlib"), 0o755)
	os.WriteFile(filepath.Join(source, "zlib", "zlib.h"), []byte("ok"), 0o644)
	writeArchive(t, filepath.Join(downloads, "LIBZIP-1.11.3.tar.xz"), []entry{
		{name: "libzip-1.11.3/CMakeLists.txt", body: "project(libzip)"},
	})

	restored, err := NewExtractor(nil, nil).Repair(context.Background(), source, downloads)
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if len(restored) != 1 || restored[0] != "libzip" {
		t.Errorf("restored = %v, want [libzip]", restored)
	}
	if readFile(t, filepath.Join(source, "libzip", "CMakeLists.txt")) != "project(libzip)" {
		t.Error("libzip not re-extracted")
	}
	if readFile(t, filepath.Join(source, "zlib", "zlib.h")) != "ok" {
		t.Error("populated library was touched")
	}
}

func TestSevenZipFallback(t *testing.T) {
	root := t.TempDir()
	arc := filepath.Join(root, "php-8.4.7.tar.xz")
	os.WriteFile(arc, []byte("not really xz"), 0o644)
	target := filepath.Join(root, "source", "php-src")
	innerTar := tarBytes(t, []entry{{name: "php-8.4.7/main/php.h", body: "PHP_VERSION"}})

	fake := &command.Fake{Handler: func(cmd command.Command) (command.Result, error) {
		src, dest := cmd.Args[1], strings.TrimPrefix(cmd.Args[2], "-o")
		if strings.HasSuffix(src, ".tar.xz") {
			return command.Result{}, os.WriteFile(filepath.Join(dest, "php-8.4.7.tar"), innerTar, 0o644)
		}
		_, err := Unpack(context.Background(), src, dest)
		return command.Result{}, err
	}}

	x := NewExtractor(nil, nil)
	x.SevenZip = "7z"
	x.Runner = fake

	out := x.Extract(context.Background(), arc, target, "php-src")
	if !out.OK {
		t.Fatalf("Extract() failed: %v", out.Err)
	}
	if len(fake.Calls) != 2 {
		t.Errorf("7z ran %d times, want 2", len(fake.Calls))
	}
	if readFile(t, filepath.Join(target, "main", "php.h")) != "PHP_VERSION" {
		t.Error("php.h not extracted via 7-Zip")
	}
	if _, err := os.Stat(filepath.Join(target, "php-8.4.7.tar")); !os.IsNotExist(err) {
		t.Error("intermediate tar leaked into target")
	}
}
