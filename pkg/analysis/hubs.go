package analysis

import "sort"

// HubSet is a small set of entities that together touch as many relations
// as possible: the entities worth looking at first in an unfamiliar graph.
type HubSet struct {
	Items         []HubItem `json:"items,omitempty"`
	EdgesCovered  int       `json:"edges_covered"`
	TotalEdges    int       `json:"total_edges"`
	CoverageRatio float64   `json:"coverage_ratio"`
	Capped        bool      `json:"capped,omitempty"`
}

// HubItem is one pick of the hub set.
type HubItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	EdgesAdded  int    `json:"edges_added"`
	TotalDegree int    `json:"total_degree"`
}

// hubSet runs the greedy 2-approximate vertex cover over the undirected
// edges: repeatedly pick the entity touching the most uncovered edges (ties
// by ID) until every edge is covered or limit is reached.
func hubSet(g *Graph, limit int) HubSet {
	type edge struct{ a, b int64 }
	var edges []edge
	it := g.Undirected().Edges()
	for it.Next() {
		e := it.Edge()
		edges = append(edges, edge{e.From().ID(), e.To().ID()})
	}
	total := len(edges)
	if total == 0 {
		return HubSet{CoverageRatio: 1}
	}
	// Edge iteration order is map-backed.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].a != edges[j].a {
			return edges[i].a < edges[j].a
		}
		return edges[i].b < edges[j].b
	})

	uncovered := make(map[int]edge, total)
	for i, e := range edges {
		uncovered[i] = e
	}

	var items []HubItem
	covered := 0
	for len(uncovered) > 0 && len(items) < limit {
		deg := make(map[int64]int)
		for _, e := range uncovered {
			deg[e.a]++
			deg[e.b]++
		}

		best, bestDeg := int64(-1), -1
		for id, d := range deg {
			if d > bestDeg || (d == bestDeg && g.Entity(id).ID < g.Entity(best).ID) {
				best, bestDeg = id, d
			}
		}

		added := 0
		for idx, e := range uncovered {
			if e.a == best || e.b == best {
				delete(uncovered, idx)
				added++
			}
		}
		covered += added
		ent := g.Entity(best)
		items = append(items, HubItem{
			ID:          ent.ID,
			Name:        ent.Name,
			EdgesAdded:  added,
			TotalDegree: g.Undirected().From(best).Len(),
		})
	}

	return HubSet{
		Items:         items,
		EdgesCovered:  covered,
		TotalEdges:    total,
		CoverageRatio: float64(covered) / float64(total),
		Capped:        len(uncovered) > 0,
	}
}
