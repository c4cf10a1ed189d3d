package deps

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// ToDOT renders the nodes in order and their edges as a Graphviz digraph.
// Extensions are drawn as ellipses and suggested edges dashed. Edges to
// nodes outside order are omitted.
func (g *Graph) ToDOT(order []string, includeSuggested bool) string {
	in := make(map[string]bool, len(order))
	for _, n := range order {
		in[n] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("\n")

	for _, key := range order {
		if IsExtension(key) {
			fmt.Fprintf(&buf, "  %q [shape=ellipse, fillcolor=\"#e8f0fe\"];\n", key)
		} else {
			fmt.Fprintf(&buf, "  %q;\n", key)
		}
	}

	buf.WriteString("\n")
	for _, key := range order {
		n := g.lookup(key)
		if n == nil {
			continue
		}
		for _, d := range n.Depends {
			if in[d] {
				fmt.Fprintf(&buf, "  %q -> %q;\n", key, d)
			}
		}
		if !includeSuggested {
			continue
		}
		for _, s := range n.Suggests {
			if in[s] {
				fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", key, s)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
