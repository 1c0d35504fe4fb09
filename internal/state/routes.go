package state

import "sort"

// RouteGraph is an undirected adjacency-list graph of cities. Every b in
// a's list is matched by an a in b's list, and empty lists are removed.
type RouteGraph struct {
	adj map[string][]string
}

// NewRouteGraph returns an empty graph.
func NewRouteGraph() *RouteGraph {
	return &RouteGraph{adj: make(map[string][]string)}
}

// AddRoute links a and b in both directions. A self-loop appends a to its
// own list twice.
func (g *RouteGraph) AddRoute(a, b string) {
	g.adj[a] = append(g.adj[a], b)
	g.adj[b] = append(g.adj[b], a)
}

// DeleteRoute removes one b from a's list and one a from b's list. Missing
// routes are a no-op.
func (g *RouteGraph) DeleteRoute(a, b string) {
	g.removeFirst(a, b)
	g.removeFirst(b, a)
}

func (g *RouteGraph) removeFirst(from, to string) {
	list, ok := g.adj[from]
	if !ok {
		return
	}
	i := indexOf(list, to)
	if i < 0 {
		return
	}
	list = append(list[:i:i], list[i+1:]...)
	if len(list) == 0 {
		delete(g.adj, from)
		return
	}
	g.adj[from] = list
}

// View returns a copy of the adjacency mapping.
func (g *RouteGraph) View() map[string][]string {
	out := make(map[string][]string, len(g.adj))
	for city, list := range g.adj {
		out[city] = cloneStrings(list)
	}
	return out
}

// Cities returns the city names in sorted order.
func (g *RouteGraph) Cities() []string {
	out := make([]string, 0, len(g.adj))
	for city := range g.adj {
		out = append(out, city)
	}
	sort.Strings(out)
	return out
}

// Len reports the number of cities with at least one route.
func (g *RouteGraph) Len() int {
	return len(g.adj)
}

// merge overlays persisted adjacency lists key by key. Empty lists are
// skipped so no empty entry is ever held.
func (g *RouteGraph) merge(graph map[string][]string) {
	for city, list := range graph {
		if len(list) == 0 {
			continue
		}
		g.adj[city] = cloneStrings(list)
	}
}
