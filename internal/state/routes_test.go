package state

import (
	"reflect"
	"testing"
)

func TestRouteGraphDeleteKeepsSymmetry(t *testing.T) {
	g := NewRouteGraph()
	g.AddRoute("A", "B")
	g.AddRoute("A", "C")
	g.DeleteRoute("A", "B")
	want := map[string][]string{"A": {"C"}, "C": {"A"}}
	if got := g.View(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestRouteGraphSelfLoop(t *testing.T) {
	g := NewRouteGraph()
	g.AddRoute("A", "A")
	if got := g.View()["A"]; !reflect.DeepEqual(got, []string{"A", "A"}) {
		t.Fatalf("self loop adjacency got %v", got)
	}
	g.DeleteRoute("A", "A")
	if g.Len() != 0 {
		t.Fatalf("self loop deletion should leave graph empty, got %v", g.View())
	}
}

func TestRouteGraphDeleteMissingIsNoop(t *testing.T) {
	g := NewRouteGraph()
	g.AddRoute("A", "B")
	g.DeleteRoute("A", "Z")
	g.DeleteRoute("X", "Y")
	want := map[string][]string{"A": {"B"}, "B": {"A"}}
	if got := g.View(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestRouteGraphParallelEdgesDeleteOne(t *testing.T) {
	g := NewRouteGraph()
	g.AddRoute("A", "B")
	g.AddRoute("A", "B")
	g.DeleteRoute("B", "A")
	want := map[string][]string{"A": {"B"}, "B": {"A"}}
	if got := g.View(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got := g.Cities(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("cities got %v", got)
	}
}

func TestRouteGraphMergeSkipsEmptyLists(t *testing.T) {
	g := NewRouteGraph()
	g.merge(map[string][]string{"A": {"B"}, "B": {"A"}, "Ghost": {}})
	if _, ok := g.View()["Ghost"]; ok {
		t.Fatalf("empty adjacency list must not be installed")
	}
	if g.Len() != 2 {
		t.Fatalf("expected 2 cities, got %d", g.Len())
	}
}
