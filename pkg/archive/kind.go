package archive

import "strings"

// Kind is the archive format detected from a file name.
type Kind int

const (
	Unknown Kind = iota
	TarGz
	TarXz
	TarBz2
	Tar
	Zip
)

var kindNames = [...]string{
	Unknown: "unknown",
	TarGz:   "tar.gz",
	TarXz:   "tar.xz",
	TarBz2:  "tar.bz2",
	Tar:     "tar",
	Zip:     "zip",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsTar reports whether k is a tar stream, compressed or not.
func (k Kind) IsTar() bool {
	return k == TarGz || k == TarXz || k == TarBz2 || k == Tar
}

// suffixes is checked in order, so compound suffixes must precede ".tar".
var suffixes = []struct {
	suffix string
	kind   Kind
}{
	{".tar.gz", TarGz},
	{".tgz", TarGz},
	{".tar.xz", TarXz},
	{".txz", TarXz},
	{".tar.bz2", TarBz2},
	{".tbz2", TarBz2},
	{".tar", Tar},
	{".zip", Zip},
	{".jar", Zip},
}

// Classify maps a file name to its Kind by suffix, ignoring case.
func Classify(name string) Kind {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.kind
		}
	}
	return Unknown
}

// IsArchive reports whether name has a recognized archive suffix.
func IsArchive(name string) bool {
	return Classify(name) != Unknown
}

// TrimSuffix removes the archive suffix from name, if any.
func TrimSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return name[:len(name)-len(s.suffix)]
		}
	}
	return name
}
