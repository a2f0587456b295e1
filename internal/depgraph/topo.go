package depgraph

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// nodeID indexes a tab in declaration order.
type nodeID int32

// Topo is the result of a Kahn topological sort over the tab graph.
type Topo struct {
	Order   []nodeID   // linear fill order
	Batches [][]nodeID // waves of tabs that only depend on earlier waves
	Cyclic  bool
	Cycles  []nodeID // nodes on a dependency cycle
}

func toID(i int) nodeID {
	id, err := safecast.Conv[nodeID](i)
	if err != nil {
		panic(fmt.Errorf("tab index overflow: %w", err))
	}
	return id
}

// toposortKahn sorts nodes 0..n-1 where edges[from] lists the nodes that
// depend on from. Ties are broken by declaration order.
func toposortKahn(n int, edges [][]nodeID) Topo {
	indeg := make([]int, n)
	for _, targets := range edges {
		for _, to := range targets {
			indeg[to]++
		}
	}
	topo := Topo{Order: make([]nodeID, 0, n)}

	current := make([]nodeID, 0, n)
	for i := range n {
		if indeg[i] == 0 {
			current = append(current, toID(i))
		}
	}
	for len(current) > 0 {
		batch := slices.Clone(current)
		topo.Batches = append(topo.Batches, batch)
		next := make([]nodeID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			for _, to := range edges[id] {
				indeg[to]--
				if indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if len(topo.Order) != n {
		topo.Cyclic = true
		topo.Cycles = cycleMembers(indeg, edges)
	}
	return topo
}

// cycleMembers narrows the nodes Kahn could not place to those on a cycle by
// peeling off nodes that only lead to already peeled ones.
func cycleMembers(indeg []int, edges [][]nodeID) []nodeID {
	left := make([]bool, len(indeg))
	for i, d := range indeg {
		left[i] = d > 0
	}
	for changed := true; changed; {
		changed = false
		for i := range left {
			if !left[i] {
				continue
			}
			sink := true
			for _, to := range edges[i] {
				if left[to] {
					sink = false
					break
				}
			}
			if sink {
				left[i] = false
				changed = true
			}
		}
	}
	var out []nodeID
	for i, in := range left {
		if in {
			out = append(out, toID(i))
		}
	}
	return out
}
