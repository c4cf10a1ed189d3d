package deps

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	g := New(spcLike())
	if err := g.RegisterExtension("curl"); err != nil {
		t.Fatal(err)
	}
	order, err := g.Resolve([]string{"ext@curl"}, true)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := g.WriteJSON(&buf, order, true); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var got jsonGraph
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(got.Nodes) != len(order) {
		t.Errorf("nodes = %d, want %d", len(got.Nodes), len(order))
	}
	last := got.Nodes[len(got.Nodes)-1]
	if last.ID != "ext@curl" || last.Kind != "extension" || last.Rank != len(order) {
		t.Errorf("last node = %+v", last)
	}

	var required, suggested bool
	for _, e := range got.Edges {
		if e.From == "curl" && e.To == "openssl" && !e.Suggested {
			required = true
		}
		if e.From == "curl" && e.To == "libssh2" && e.Suggested {
			suggested = true
		}
	}
	if !required || !suggested {
		t.Errorf("edges = %+v", got.Edges)
	}
}

func TestExportJSONWithoutSuggested(t *testing.T) {
	g := New(spcLike())
	g.Register("curl")
	order, _ := g.Resolve([]string{"curl"}, false)

	path := filepath.Join(t.TempDir(), "deps.json")
	if err := g.ExportJSON(path, order, false); err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got jsonGraph
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	for _, e := range got.Edges {
		if e.Suggested {
			t.Errorf("suggested edge written: %+v", e)
		}
	}
}
