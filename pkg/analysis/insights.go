package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/kgview/pkg/model"
)

// Config holds caps and knobs for Compute.
type Config struct {
	// SampleSize is the betweenness pivot count; 0 picks one from the
	// graph size.
	SampleSize int `json:"sample_size" yaml:"sample_size"`
	Seed       int64 `json:"seed" yaml:"seed"`

	// HubLimit caps the hub set (default 5).
	HubLimit int `json:"hub_limit" yaml:"hub_limit"`

	// Damping is the PageRank damping factor (default 0.85).
	Damping float64 `json:"damping" yaml:"damping"`
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{Seed: 1, HubLimit: 5, Damping: 0.85}
}

// EntityStats is the per-entity row of a report.
type EntityStats struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	InDegree    int     `json:"in_degree"`
	OutDegree   int     `json:"out_degree"`
	Betweenness float64 `json:"betweenness"`
	PageRank    float64 `json:"pagerank"`
}

// Degree returns the total degree.
func (s EntityStats) Degree() int { return s.InDegree + s.OutDegree }

// Stats summarises a dataset's structure.
type Stats struct {
	Entities  int `json:"entities"`
	Relations int `json:"relations"`
	Dropped   int `json:"dropped"`

	// Components lists entity IDs per connected component, largest first.
	Components [][]string `json:"components"`

	// Ranked holds every entity ordered by betweenness, then degree, then ID.
	Ranked []EntityStats `json:"ranked"`

	BetweennessMode BetweennessMode `json:"betweenness_mode"`
	Hubs            HubSet          `json:"hubs"`
}

// Isolated returns the IDs of entities with no relations.
func (s Stats) Isolated() []string {
	var out []string
	for _, r := range s.Ranked {
		if r.Degree() == 0 {
			out = append(out, r.ID)
		}
	}
	sort.Strings(out)
	return out
}

// Compute builds the graph for ds and reports on it.
func Compute(ds model.Dataset, cfg Config) Stats {
	g := NewGraph(ds)
	if cfg.HubLimit <= 0 {
		cfg.HubLimit = 5
	}
	if cfg.Damping <= 0 || cfg.Damping >= 1 {
		cfg.Damping = 0.85
	}
	sample := cfg.SampleSize
	if sample <= 0 {
		sample = RecommendSampleSize(g.Len())
	}

	st := Stats{
		Entities:  g.Len(),
		Relations: g.Relations(),
		Dropped:   g.Dropped(),
	}

	bc := ApproxBetweenness(g.Undirected(), sample, cfg.Seed)
	st.BetweennessMode = bc.Mode
	var pr map[int64]float64
	if g.Len() > 0 {
		pr = network.PageRank(g.Directed(), cfg.Damping, 1e-8)
	}

	nodes := graph.NodesOf(g.Directed().Nodes())
	st.Ranked = make([]EntityStats, 0, len(nodes))
	for _, n := range nodes {
		e := g.Entity(n.ID())
		in, out := g.Degree(n.ID())
		st.Ranked = append(st.Ranked, EntityStats{
			ID:          e.ID,
			Name:        e.Name,
			Type:        e.Type,
			InDegree:    in,
			OutDegree:   out,
			Betweenness: bc.Scores[n.ID()],
			PageRank:    pr[n.ID()],
		})
	}
	sort.Slice(st.Ranked, func(i, j int) bool {
		a, b := st.Ranked[i], st.Ranked[j]
		if a.Betweenness != b.Betweenness {
			return a.Betweenness > b.Betweenness
		}
		if a.Degree() != b.Degree() {
			return a.Degree() > b.Degree()
		}
		return a.ID < b.ID
	})

	for _, comp := range topo.ConnectedComponents(g.Undirected()) {
		ids := make([]string, 0, len(comp))
		for _, n := range comp {
			ids = append(ids, g.Entity(n.ID()).ID)
		}
		sort.Strings(ids)
		st.Components = append(st.Components, ids)
	}
	sort.Slice(st.Components, func(i, j int) bool {
		a, b := st.Components[i], st.Components[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a[0] < b[0]
	})

	st.Hubs = hubSet(g, cfg.HubLimit)
	return st
}

// DeriveWeights returns a copy of ds in which every entity with a
// non-positive weight gets one derived from its degree and normalised
// betweenness, so structurally central entities draw larger. Positive
// weights are left alone.
func DeriveWeights(ds model.Dataset) model.Dataset {
	out := ds.Clone()
	g := NewGraph(out)
	if g.Len() == 0 {
		return out
	}
	bc := ApproxBetweenness(g.Undirected(), RecommendSampleSize(g.Len()), 1)
	peak := bc.Max()

	for i := range out.Entities {
		if out.Entities[i].Weight > 0 {
			continue
		}
		id, ok := g.byID[out.Entities[i].ID]
		if !ok || id != int64(i) {
			continue
		}
		in, outDeg := g.Degree(id)
		w := 1 + float64(in+outDeg)
		if peak > 0 {
			w += 5 * bc.Scores[id] / peak
		}
		out.Entities[i].Weight = math.Round(w*10) / 10
	}
	return out
}
