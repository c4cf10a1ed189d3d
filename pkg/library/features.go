package library

import (
	"slices"
	"strings"
)

// Flags are the optional database features of a build.
type Flags struct {
	MySQL     bool
	SQLServer bool
	Postgres  bool
}

var baseExtensions = []string{
	"bcmath", "bz2", "ctype", "curl", "dom", "fileinfo", "filter",
	"gd", "iconv", "mbstring", "opcache", "openssl", "pdo",
	"pdo_sqlite", "phar", "session", "simplexml", "sockets",
	"sqlite3", "tokenizer", "xml", "zip", "zlib", "soap",
}

var baseLibraries = []string{
	PHPSource, "zlib", "libxml2", "openssl", "sqlite", "unixodbc",
	"micro", "libpng", "bzip2", "libssh2", "nghttp2", "curl", "xz",
	"libzip", "libiconv-win", "libjpeg", "freetype", "libwebp",
}

// directoryLibraries arrive from static-php-cli as source directories.
var directoryLibraries = []string{"micro", "libpng", "freetype", "libiconv-win"}

// Extensions returns the PHP extensions to compile, defaults first.
func Extensions(f Flags) []string {
	out := slices.Clone(baseExtensions)
	if f.MySQL {
		out = append(out, "pdo_mysql", "mysqli", "mysqlnd")
	}
	if f.SQLServer {
		out = append(out, "sqlsrv", "pdo_sqlsrv")
	}
	if f.Postgres {
		out = append(out, "pgsql", "pdo_pgsql")
	}
	return dedupe(out)
}

// Libraries returns the native libraries to fetch, in build order.
func Libraries(f Flags) []string {
	out := slices.Clone(baseLibraries)
	if f.SQLServer {
		out = append(out, "sqlsrv", "pdo_sqlsrv")
	}
	if f.Postgres {
		out = append(out, "postgresql")
	}
	return dedupe(out)
}

// ExtensionList is the sorted, comma-joined extension argument for spc build.
func ExtensionList(f Flags) string {
	exts := Extensions(f)
	slices.Sort(exts)
	return strings.Join(slices.Compact(exts), ",")
}

// IsDirectoryLibrary reports whether lib is delivered as a directory rather
// than an archive.
func IsDirectoryLibrary(lib string) bool {
	return slices.Contains(directoryLibraries, lib)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
