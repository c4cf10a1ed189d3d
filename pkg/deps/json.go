package deps

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type jsonGraph struct {
	Order []string   `json:"order"`
	Nodes []jsonNode `json:"nodes"`
	Edges []jsonEdge `json:"edges"`
}

type jsonNode struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Rank int    `json:"rank"`
}

type jsonEdge struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Suggested bool   `json:"suggested,omitempty"`
}

// WriteJSON encodes the nodes in order and the edges between them as JSON.
// Rank is the position in order, starting at 1. Suggested edges are only
// written when includeSuggested is set.
func (g *Graph) WriteJSON(w io.Writer, order []string, includeSuggested bool) error {
	in := make(map[string]bool, len(order))
	for _, n := range order {
		in[n] = true
	}

	out := jsonGraph{
		Order: order,
		Nodes: make([]jsonNode, 0, len(order)),
		Edges: []jsonEdge{},
	}
	for i, key := range order {
		kind := "library"
		if IsExtension(key) {
			kind = "extension"
		}
		out.Nodes = append(out.Nodes, jsonNode{ID: key, Kind: kind, Rank: i + 1})

		n := g.lookup(key)
		if n == nil {
			continue
		}
		for _, d := range n.Depends {
			if in[d] {
				out.Edges = append(out.Edges, jsonEdge{From: key, To: d})
			}
		}
		if !includeSuggested {
			continue
		}
		for _, s := range n.Suggests {
			if in[s] {
				out.Edges = append(out.Edges, jsonEdge{From: key, To: s, Suggested: true})
			}
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes the graph to a JSON file at path.
func (g *Graph) ExportJSON(path string, order []string, includeSuggested bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return g.WriteJSON(f, order, includeSuggested)
}
