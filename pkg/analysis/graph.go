// Package analysis computes structural statistics of a knowledge graph:
// degree, betweenness and PageRank centrality, connected components and a
// small hub set, plus weights derived from them for unweighted entities.
package analysis

import (
	"gonum.org/v1/gonum/graph/simple"

	"github.com/vanderheijden86/kgview/pkg/model"
)

// Graph is a dataset loaded into gonum graphs. Node IDs are entity indices.
type Graph struct {
	entities []model.Entity
	byID     map[string]int64
	byName   map[string]int64

	directed   *simple.DirectedGraph
	undirected *simple.UndirectedGraph

	relations int
	dropped   int
}

// NewGraph builds the graph for ds. Relation endpoints resolve by entity ID
// first, then by name. Relations with an unknown endpoint and self-loops are
// dropped; parallel relations collapse into one edge.
func NewGraph(ds model.Dataset) *Graph {
	g := &Graph{
		entities:   ds.Entities,
		byID:       make(map[string]int64, len(ds.Entities)),
		byName:     make(map[string]int64, len(ds.Entities)),
		directed:   simple.NewDirectedGraph(),
		undirected: simple.NewUndirectedGraph(),
	}
	for i, e := range ds.Entities {
		id := int64(i)
		if _, dup := g.byID[e.ID]; dup {
			continue
		}
		g.byID[e.ID] = id
		if _, ok := g.byName[e.Name]; !ok {
			g.byName[e.Name] = id
		}
		g.directed.AddNode(simple.Node(id))
		g.undirected.AddNode(simple.Node(id))
	}

	for _, r := range ds.Relations {
		from, ok1 := g.resolve(r.Source)
		to, ok2 := g.resolve(r.Target)
		if !ok1 || !ok2 || from == to {
			g.dropped++
			continue
		}
		if !g.directed.HasEdgeFromTo(from, to) {
			g.directed.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
			g.relations++
		}
		if !g.undirected.HasEdgeBetween(from, to) {
			g.undirected.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}
	return g
}

func (g *Graph) resolve(key string) (int64, bool) {
	if id, ok := g.byID[key]; ok {
		return id, true
	}
	id, ok := g.byName[key]
	return id, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return g.directed.Nodes().Len() }

// Relations returns the number of distinct directed edges.
func (g *Graph) Relations() int { return g.relations }

// Dropped returns the number of relations that could not be placed.
func (g *Graph) Dropped() int { return g.dropped }

// Entity returns the entity behind node id.
func (g *Graph) Entity(id int64) model.Entity { return g.entities[id] }

// Degree returns the in- and out-degree of node id.
func (g *Graph) Degree(id int64) (in, out int) {
	return g.directed.To(id).Len(), g.directed.From(id).Len()
}

// Directed exposes the directed graph.
func (g *Graph) Directed() *simple.DirectedGraph { return g.directed }

// Undirected exposes the undirected view used for centrality.
func (g *Graph) Undirected() *simple.UndirectedGraph { return g.undirected }
