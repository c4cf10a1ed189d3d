package cli

import (
	"errors"
	"strings"
	"testing"

	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
	"github.com/Abdallah-Tah/phpBuilder/pkg/pipeline"
)

func TestShortSource(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://github.com/madler/zlib/releases/download/v1.3.1/zlib-1.3.1.tar.gz", "github.com/…/zlib-1.3.1.tar.gz"},
		{"https://zlib.net/zlib-1.3.1.tar.gz", "zlib.net/zlib-1.3.1.tar.gz"},
		{"https://zlib.net", "zlib.net"},
		{"https://zlib.net/", "zlib.net"},
		{"spc", "spc"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := shortSource(tt.in); got != tt.want {
				t.Errorf("shortSource(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLibraryTable(t *testing.T) {
	out := libraryTable([]pipeline.Library{
		{Name: "zlib", State: pipeline.Ready, Source: "https://zlib.net/zlib-1.3.1.tar.gz"},
		{Name: "libpng", State: pipeline.Skipped},
		{Name: "openssl", State: pipeline.DownloadFailed},
	})
	for _, want := range []string{"Library", "State", "zlib", "READY", "zlib.net/zlib-1.3.1.tar.gz", "SKIPPED", "DOWNLOAD_FAILED"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestPrintError(t *testing.T) {
	var b strings.Builder
	PrintError(&b, perrors.New(perrors.ErrCodeValidation, "invalid PHP version format: 8.4"))
	if !strings.Contains(b.String(), "invalid PHP version format: 8.4") {
		t.Errorf("PrintError() = %q", b.String())
	}

	b.Reset()
	PrintError(&b, errors.New("plain failure"))
	if !strings.Contains(b.String(), "plain failure") {
		t.Errorf("PrintError() = %q", b.String())
	}
}
