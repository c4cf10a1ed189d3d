// Package deps orders libraries and extensions so that every dependency is
// built before the things that need it.
//
// # Overview
//
// static-php-cli describes dependencies in its config/lib.json and
// config/ext.json files. A [Graph] reads those through a [Source] and keeps
// two registries: one for libraries and one for extensions. Extension
// names carry the [ExtPrefix] ("ext@") wherever they appear as a dependency,
// so "ext@openssl" (the extension) and "openssl" (the library) never clash.
//
// # Usage
//
//	g := deps.New(cfg)
//	if err := g.RegisterExtension("curl"); err != nil {
//	    return err
//	}
//	order, err := g.Resolve([]string{"ext@curl"}, false)
//	// order: [zlib openssl libssh2 nghttp2 curl ext@curl]
//
// # Cycles
//
// Registration and resolution both track the chain of names they are
// currently inside. Meeting a name that is already on that chain through a
// required edge fails with a DEPENDENCY_ERROR naming the cycle. Suggested
// edges are soft: when a cycle runs through one, that edge is skipped and
// the required graph is kept.
package deps

import (
	"errors"
	"slices"
	"strings"

	perrors "github.com/Abdallah-Tah/phpBuilder/pkg/errors"
)

// ExtPrefix marks extension names in dependency lists.
const ExtPrefix = "ext@"

// Config keys read from the Source.
const (
	KeyLibDepends  = "lib-depends"
	KeyLibSuggests = "lib-suggests"
	KeyExtDepends  = "ext-depends"
	KeyExtSuggests = "ext-suggests"
)

// Source supplies dependency lists. A missing entry or key yields nil.
type Source interface {
	LibraryList(name, key string) []string
	ExtensionList(name, key string) []string
}

// Node is one registered library or extension.
type Node struct {
	Name     string   // Library name, or ExtPrefix + extension name
	Depends  []string // Required, in declaration order
	Suggests []string // Optional, in declaration order
}

// Graph holds registered nodes.
type Graph struct {
	src   Source
	libs  map[string]*Node
	exts  map[string]*Node
	stack []string
	soft  []bool // soft[i]: stack[i] was reached through a suggested edge
}

// New creates an empty graph reading from src.
func New(src Source) *Graph {
	return &Graph{
		src:  src,
		libs: make(map[string]*Node),
		exts: make(map[string]*Node),
	}
}

// IsExtension reports whether key names an extension.
func IsExtension(key string) bool {
	return strings.HasPrefix(key, ExtPrefix)
}

// Register adds library name and everything it depends on or suggests.
func (g *Graph) Register(name string) error {
	return g.register(name, false)
}

// RegisterExtension adds extension name (without prefix) and its dependencies.
func (g *Graph) RegisterExtension(name string) error {
	return g.register(ExtPrefix+strings.TrimPrefix(name, ExtPrefix), false)
}

func (g *Graph) register(key string, soft bool) error {
	if g.lookup(key) != nil {
		return nil
	}
	if i := slices.Index(g.stack, key); i >= 0 {
		return closeCycle(g.stack, g.soft, i, soft, key)
	}

	g.stack = append(g.stack, key)
	g.soft = append(g.soft, soft)
	defer func() {
		g.stack = g.stack[:len(g.stack)-1]
		g.soft = g.soft[:len(g.soft)-1]
	}()

	n := g.read(key)
	for _, dep := range n.Depends {
		if err := g.register(dep, false); err != nil {
			return err
		}
	}
	// A cycle anywhere below a suggestion drops the suggestion.
	for _, s := range n.Suggests {
		err := g.register(s, true)
		if err != nil && !dropped(err, len(g.stack)) && !perrors.Is(err, perrors.ErrCodeDependency) {
			return err
		}
	}

	if IsExtension(key) {
		g.exts[strings.TrimPrefix(key, ExtPrefix)] = n
	} else {
		g.libs[key] = n
	}
	return nil
}

func (g *Graph) read(key string) *Node {
	n := &Node{Name: key}
	if !IsExtension(key) {
		n.Depends = unique(g.src.LibraryList(key, KeyLibDepends))
		n.Suggests = unique(g.src.LibraryList(key, KeyLibSuggests))
		return n
	}

	name := strings.TrimPrefix(key, ExtPrefix)
	var depends, suggests []string
	for _, d := range g.src.ExtensionList(name, KeyExtDepends) {
		depends = append(depends, ExtPrefix+d)
	}
	depends = append(depends, g.src.ExtensionList(name, KeyLibDepends)...)
	for _, s := range g.src.ExtensionList(name, KeyExtSuggests) {
		suggests = append(suggests, ExtPrefix+s)
	}
	suggests = append(suggests, g.src.ExtensionList(name, KeyLibSuggests)...)

	n.Depends = unique(depends)
	n.Suggests = unique(suggests)
	return n
}

func (g *Graph) lookup(key string) *Node {
	if IsExtension(key) {
		return g.exts[strings.TrimPrefix(key, ExtPrefix)]
	}
	return g.libs[key]
}

// Node returns the registered node for key (a library name or "ext@" name).
func (g *Graph) Node(key string) (Node, bool) {
	n := g.lookup(key)
	if n == nil {
		return Node{}, false
	}
	return *n, true
}

// Len reports how many nodes are registered.
func (g *Graph) Len() int {
	return len(g.libs) + len(g.exts)
}

// Resolve returns names and their transitive dependencies in build order:
// every dependency appears before anything that depends on it. With
// includeSuggested, suggested dependencies are pulled in as well.
func (g *Graph) Resolve(names []string, includeSuggested bool) ([]string, error) {
	var (
		order   []string
		visited = map[string]bool{}
		path    []string
		soft    []bool
	)

	var visit func(key string, viaSuggest bool) error
	visit = func(key string, viaSuggest bool) error {
		if visited[key] {
			return nil
		}
		if i := slices.Index(path, key); i >= 0 {
			return closeCycle(path, soft, i, viaSuggest, key)
		}
		n := g.lookup(key)
		if n == nil {
			if viaSuggest {
				return nil
			}
			return perrors.Dependency("dependency %s not found", key)
		}

		path = append(path, key)
		soft = append(soft, viaSuggest)
		err := g.visitEdges(n, includeSuggested, len(path), visit)
		path = path[:len(path)-1]
		soft = soft[:len(soft)-1]
		if err != nil {
			return err
		}
		visited[key] = true
		order = append(order, key)
		return nil
	}

	for _, name := range names {
		if err := visit(name, false); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (g *Graph) visitEdges(n *Node, includeSuggested bool, depth int, visit func(string, bool) error) error {
	for _, dep := range n.Depends {
		if err := visit(dep, false); err != nil {
			return err
		}
	}
	if !includeSuggested {
		return nil
	}
	for _, s := range n.Suggests {
		if err := visit(s, true); err != nil && !dropped(err, depth) {
			return err
		}
	}
	return nil
}

// All returns the set of names Resolve would produce.
func (g *Graph) All(names []string, includeSuggested bool) (map[string]struct{}, error) {
	order, err := g.Resolve(names, includeSuggested)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(order))
	for _, n := range order {
		set[n] = struct{}{}
	}
	return set, nil
}

// Libraries filters an order down to library names.
func Libraries(order []string) []string {
	var out []string
	for _, n := range order {
		if !IsExtension(n) {
			out = append(out, n)
		}
	}
	return out
}

// softCycle unwinds to the suggested edge that closes a cycle. The edge is
// dropped by the node whose walk is at depth.
type softCycle struct{ depth int }

func (softCycle) Error() string { return "cycle through a suggested dependency" }

// closeCycle handles meeting key again at path[i]. The cycle runs through
// the edges into path[i+1:] and the closing edge. When any of them is
// suggested, the deepest such edge is dropped; otherwise the cycle is an
// error.
func closeCycle(path []string, soft []bool, i int, closing bool, key string) error {
	if closing {
		return softCycle{depth: len(path)}
	}
	for k := len(path) - 1; k > i; k-- {
		if soft[k] {
			return softCycle{depth: k}
		}
	}
	return cycleError(append(slices.Clone(path[i:]), key))
}

// dropped reports whether err is a soft cycle to be absorbed at depth.
func dropped(err error, depth int) bool {
	var sc softCycle
	return errors.As(err, &sc) && sc.depth == depth
}

func cycleError(path []string) error {
	return perrors.Dependency("dependency cycle detected: %s", strings.Join(path, " -> "))
}

func unique(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
