package analysis

import (
	"reflect"
	"testing"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/vanderheijden86/kgview/pkg/model"
)

// star is a hub h with leaves a-d, plus an isolated z and one dangling relation.
func star() model.Dataset {
	return model.Dataset{
		Entities: []model.Entity{
			{ID: "h", Name: "Hub"},
			{ID: "a", Name: "A"},
			{ID: "b", Name: "B"},
			{ID: "c", Name: "C", Weight: 3},
			{ID: "d", Name: "D"},
			{ID: "z", Name: "Z"},
		},
		Relations: []model.Relation{
			{ID: "1", Source: "h", Target: "a"},
			{ID: "2", Source: "Hub", Target: "B"},
			{ID: "3", Source: "c", Target: "h"},
			{ID: "4", Source: "h", Target: "d"},
			{ID: "5", Source: "h", Target: "missing"},
			{ID: "6", Source: "a", Target: "a"},
			{ID: "7", Source: "h", Target: "a"},
		},
	}
}

func TestNewGraphResolvesAndDrops(t *testing.T) {
	g := NewGraph(star())
	if g.Len() != 6 {
		t.Errorf("Len = %d, want 6", g.Len())
	}
	if g.Relations() != 4 {
		t.Errorf("Relations = %d, want 4", g.Relations())
	}
	if g.Dropped() != 2 {
		t.Errorf("Dropped = %d, want 2 (dangling + self-loop)", g.Dropped())
	}
	in, out := g.Degree(0)
	if in != 1 || out != 3 {
		t.Errorf("hub degree = %d/%d, want 1/3", in, out)
	}
}

func TestComputeStar(t *testing.T) {
	st := Compute(star(), DefaultConfig())

	if st.Ranked[0].ID != "h" {
		t.Errorf("most central = %s, want h", st.Ranked[0].ID)
	}
	for _, r := range st.Ranked[1:] {
		if r.Betweenness != 0 {
			t.Errorf("%s betweenness = %v, want 0", r.ID, r.Betweenness)
		}
	}
	if st.BetweennessMode != BetweennessExact {
		t.Errorf("mode = %s, want exact for a small graph", st.BetweennessMode)
	}

	want := [][]string{{"a", "b", "c", "d", "h"}, {"z"}}
	if !reflect.DeepEqual(st.Components, want) {
		t.Errorf("Components = %v, want %v", st.Components, want)
	}
	if got := st.Isolated(); !reflect.DeepEqual(got, []string{"z"}) {
		t.Errorf("Isolated = %v", got)
	}

	if len(st.Hubs.Items) != 1 || st.Hubs.Items[0].ID != "h" {
		t.Fatalf("Hubs = %+v, want just h", st.Hubs.Items)
	}
	if st.Hubs.CoverageRatio != 1 || st.Hubs.Capped {
		t.Errorf("hub coverage = %v capped=%v", st.Hubs.CoverageRatio, st.Hubs.Capped)
	}
}

func TestComputeFallbackIsConnected(t *testing.T) {
	st := Compute(model.Fallback(), DefaultConfig())
	if st.Entities != 16 || st.Relations != 17 || st.Dropped != 0 {
		t.Errorf("counts = %d/%d/%d, want 16/17/0", st.Entities, st.Relations, st.Dropped)
	}
	if len(st.Components) != 1 {
		t.Errorf("components = %d, want 1", len(st.Components))
	}
	for _, r := range st.Ranked {
		if r.PageRank <= 0 {
			t.Errorf("%s PageRank = %v, want > 0", r.Name, r.PageRank)
		}
	}
}

func TestComputeEmpty(t *testing.T) {
	st := Compute(model.Dataset{}, Config{})
	if st.Entities != 0 || len(st.Ranked) != 0 || len(st.Components) != 0 {
		t.Errorf("empty stats = %+v", st)
	}
	if st.Hubs.CoverageRatio != 1 {
		t.Errorf("empty hub coverage = %v", st.Hubs.CoverageRatio)
	}
}

func TestHubSetCapped(t *testing.T) {
	// Three disjoint edges need three picks.
	ds := model.Dataset{
		Entities: []model.Entity{
			{ID: "a", Name: "a"}, {ID: "b", Name: "b"},
			{ID: "c", Name: "c"}, {ID: "d", Name: "d"},
			{ID: "e", Name: "e"}, {ID: "f", Name: "f"},
		},
		Relations: []model.Relation{
			{ID: "1", Source: "a", Target: "b"},
			{ID: "2", Source: "c", Target: "d"},
			{ID: "3", Source: "e", Target: "f"},
		},
	}
	hubs := hubSet(NewGraph(ds), 2)
	if len(hubs.Items) != 2 || !hubs.Capped {
		t.Fatalf("hubs = %+v", hubs)
	}
	if hubs.Items[0].ID != "a" || hubs.Items[1].ID != "c" {
		t.Errorf("picks = %s,%s want a,c (ties by ID)", hubs.Items[0].ID, hubs.Items[1].ID)
	}
	if hubs.EdgesCovered != 2 || hubs.TotalEdges != 3 {
		t.Errorf("covered %d of %d", hubs.EdgesCovered, hubs.TotalEdges)
	}
}

func TestDeriveWeights(t *testing.T) {
	in := star()
	out := DeriveWeights(in)

	want := map[string]float64{"h": 10, "a": 2, "b": 2, "c": 3, "d": 2, "z": 1}
	for _, e := range out.Entities {
		if e.Weight != want[e.ID] {
			t.Errorf("%s weight = %v, want %v", e.ID, e.Weight, want[e.ID])
		}
	}
	if in.Entities[0].Weight != 0 {
		t.Error("DeriveWeights modified its input")
	}
}

func TestApproxBetweennessMatchesExactOnFullSample(t *testing.T) {
	g := simple.NewUndirectedGraph()
	for i := int64(0); i < 6; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := int64(0); i < 5; i++ {
		g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(i + 1)})
	}

	exact := network.Betweenness(g)
	res := ApproxBetweenness(g, 6, 1)
	if res.Mode != BetweennessExact {
		t.Fatalf("mode = %s", res.Mode)
	}
	for id, v := range exact {
		if res.Scores[id] != v {
			t.Errorf("node %d: %v != %v", id, res.Scores[id], v)
		}
	}

	approx := ApproxBetweenness(g, 3, 1)
	if approx.Mode != BetweennessApproximate || approx.SampleSize != 3 {
		t.Errorf("approx mode=%s sample=%d", approx.Mode, approx.SampleSize)
	}
	if approx.Scores[0] != 0 || approx.Scores[5] != 0 {
		t.Error("path endpoints should have zero betweenness")
	}
}

func TestRecommendSampleSize(t *testing.T) {
	tests := []struct{ n, want int }{
		{10, 10},
		{99, 99},
		{100, 50},
		{400, 80},
		{1000, 100},
		{5000, 200},
	}
	for _, tt := range tests {
		if got := RecommendSampleSize(tt.n); got != tt.want {
			t.Errorf("RecommendSampleSize(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}
