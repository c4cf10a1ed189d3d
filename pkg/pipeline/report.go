package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type reportJSON struct {
	RunID      string        `json:"run_id"`
	Target     string        `json:"target"`
	Binary     string        `json:"binary,omitempty"`
	Order      []string      `json:"order"`
	Libraries  []libraryJSON `json:"libraries"`
	Modules    []string      `json:"modules,omitempty"`
	Phases     []phaseJSON   `json:"phases"`
	DurationMS int64         `json:"duration_ms"`
	Failed     []string      `json:"failed,omitempty"`
}

type libraryJSON struct {
	Name    string  `json:"name"`
	State   State   `json:"state"`
	Archive string  `json:"archive,omitempty"`
	Source  string  `json:"source,omitempty"`
	History []State `json:"history"`
	Error   string  `json:"error,omitempty"`
}

type phaseJSON struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// WriteJSON encodes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	out := reportJSON{
		RunID:      r.RunID,
		Target:     r.Target,
		Binary:     r.Binary,
		Order:      r.Order,
		Libraries:  make([]libraryJSON, 0, len(r.Libraries)),
		Modules:    r.Modules,
		Phases:     make([]phaseJSON, 0, len(r.Phases)),
		DurationMS: r.Duration.Milliseconds(),
		Failed:     r.Failed(),
	}
	if out.Order == nil {
		out.Order = []string{}
	}
	for _, l := range r.Libraries {
		lj := libraryJSON{Name: l.Name, State: l.State, Archive: l.Archive, Source: l.Source, History: l.History}
		if l.Err != nil {
			lj.Error = l.Err.Error()
		}
		out.Libraries = append(out.Libraries, lj)
	}
	for _, p := range r.Phases {
		pj := phaseJSON{Name: p.Name, DurationMS: p.Duration.Milliseconds()}
		if p.Err != nil {
			pj.Error = p.Err.Error()
		}
		out.Phases = append(out.Phases, pj)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// ExportJSON writes the report to a JSON file at path.
func (r *Report) ExportJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return r.WriteJSON(f)
}
