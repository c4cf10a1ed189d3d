package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestReportWriteJSON(t *testing.T) {
	r := &Report{
		RunID:  "run-1",
		Target: "/opt/php/static-php-cli",
		Order:  []string{"zlib", "openssl"},
		Libraries: []Library{
			{Name: "zlib", State: Ready, Source: "https://zlib.net/zlib-1.3.1.tar.gz", History: []State{Pending, Downloading, Downloaded, Extracting, Ready}},
			{Name: "openssl", State: DownloadFailed, History: []State{Pending, Downloading, DownloadFailed}, Err: errors.New("all mirrors failed")},
		},
		Phases:   []PhaseTiming{{Name: PhaseValidate, Duration: 3 * time.Millisecond}, {Name: PhaseDependencies, Err: errors.New("fetch openssl")}},
		Duration: 1500 * time.Millisecond,
	}

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if got["run_id"] != "run-1" || got["duration_ms"] != float64(1500) {
		t.Errorf("header = %v", got)
	}
	if failed, _ := got["failed"].([]any); len(failed) != 1 || failed[0] != "openssl" {
		t.Errorf("failed = %v", got["failed"])
	}
	for _, want := range []string{`"state": "DOWNLOAD_FAILED"`, `"error": "all mirrors failed"`, `"error": "fetch openssl"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %s:\n%s", want, buf.String())
		}
	}
}

func TestEmptyReportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := (&Report{}).WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"order": []`) {
		t.Errorf("empty order should encode as []:\n%s", buf.String())
	}
}
