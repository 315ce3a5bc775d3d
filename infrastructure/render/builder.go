// Package render draws query results into frames for the visualisation widget.
package render

import (
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"devrank/application/ports"
	"devrank/domain/graph"
)

// frameBuilder collects the nodes and relationships found in query results.
// Entities are keyed by element id so each is drawn once.
type frameBuilder struct {
	display graph.DisplayConfig
	nodes   []graph.Node
	edges   []graph.Edge
	seen    map[string]struct{}
}

func newFrameBuilder(display graph.DisplayConfig) *frameBuilder {
	return &frameBuilder{
		display: display,
		nodes:   []graph.Node{},
		edges:   []graph.Edge{},
		seen:    make(map[string]struct{}),
	}
}

// buildFrame walks every value of every record.
func buildFrame(display graph.DisplayConfig, records []ports.Record) ([]graph.Node, []graph.Edge) {
	b := newFrameBuilder(display)
	for _, r := range records {
		for _, v := range r.Values {
			b.walk(v)
		}
	}
	return b.nodes, b.edges
}

func (b *frameBuilder) walk(v interface{}) {
	switch x := v.(type) {
	case neo4j.Node:
		b.addNode(x)
	case *neo4j.Node:
		if x != nil {
			b.addNode(*x)
		}
	case neo4j.Relationship:
		b.addEdge(x)
	case *neo4j.Relationship:
		if x != nil {
			b.addEdge(*x)
		}
	case neo4j.Path:
		b.addPath(x)
	case *neo4j.Path:
		if x != nil {
			b.addPath(*x)
		}
	case []interface{}:
		for _, item := range x {
			b.walk(item)
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.walk(x[k])
		}
	}
}

func (b *frameBuilder) addPath(p neo4j.Path) {
	for _, n := range p.Nodes {
		b.addNode(n)
	}
	for _, r := range p.Relationships {
		b.addEdge(r)
	}
}

func (b *frameBuilder) addNode(n neo4j.Node) {
	key := "n:" + n.ElementId
	if _, ok := b.seen[key]; ok {
		return
	}
	b.seen[key] = struct{}{}

	node := graph.Node{
		ID:         n.ElementId,
		Labels:     append([]string(nil), n.Labels...),
		Properties: n.Props,
	}
	b.display.StyleNode(&node)
	b.nodes = append(b.nodes, node)
}

func (b *frameBuilder) addEdge(r neo4j.Relationship) {
	key := "r:" + r.ElementId
	if _, ok := b.seen[key]; ok {
		return
	}
	b.seen[key] = struct{}{}

	edge := graph.Edge{
		ID:         r.ElementId,
		From:       r.StartElementId,
		To:         r.EndElementId,
		Type:       r.Type,
		Properties: r.Props,
	}
	b.display.StyleEdge(&edge)
	b.edges = append(b.edges, edge)
}
