// Package graphutil has graph algorithms over string-identified nodes
package graphutil

import (
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// StronglyConnected returns the strongly connected components of the graph
// given by nodes and successors, in reverse topological order; unrelated
// components come in no particular order. Nodes within a component keep the
// order they have in nodes. Successors not listed in nodes and self loops are
// ignored.
func StronglyConnected(nodes []string, successors func(string) []string) [][]string {
	ids := make(map[string]int64, len(nodes))
	g := simple.NewDirectedGraph()
	for i, n := range nodes {
		if _, seen := ids[n]; seen {
			continue
		}
		ids[n] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for _, n := range nodes {
		from := ids[n]
		for _, succ := range successors(n) {
			to, known := ids[succ]
			if !known || to == from {
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}

	var components [][]string
	for _, component := range topo.TarjanSCC(g) {
		order := make([]int64, 0, len(component))
		for _, node := range component {
			order = append(order, node.ID())
		}
		slices.Sort(order)
		scc := make([]string, 0, len(order))
		for _, id := range order {
			scc = append(scc, nodes[id])
		}
		components = append(components, scc)
	}
	return components
}
