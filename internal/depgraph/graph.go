// Package depgraph models which rules read which workbook nodes and orders
// tabs by their dependencies.
package depgraph

import (
	"sort"

	"sigcore/pkg/domain"
)

// Graph records the readers of every node, the derivation edges from
// registry and matrix nodes to the reference fields computed from them, and
// the tab dependency order. It is immutable once built.
type Graph struct {
	ruleOrder map[string]int
	readers   map[domain.Node][]string
	derived   map[domain.Node][]domain.Node
	tabs      []domain.TabID
	tabDeps   map[domain.TabID][]domain.TabID
	topo      Topo
}

// Build constructs the graph for rules over layout. Rules are indexed in the
// order given. A rule on one tab reading a node owned by another makes the
// first tab depend on the second; cycles among tabs are reported as
// domain.CyclicDependencyError.
func Build(layout domain.Layout, rules []domain.Rule) (*Graph, error) {
	g := &Graph{
		ruleOrder: make(map[string]int, len(rules)),
		readers:   make(map[domain.Node][]string),
		derived:   make(map[domain.Node][]domain.Node),
		tabDeps:   make(map[domain.TabID][]domain.TabID),
	}
	index := make(map[domain.TabID]int, len(layout.Tabs))
	for i, tab := range layout.Tabs {
		g.tabs = append(g.tabs, tab.ID)
		index[tab.ID] = i
		for _, field := range tab.Fields {
			if !field.Source.Derived() {
				continue
			}
			from := domain.EntityNode(field.Source.Entity)
			if field.Source.Kind == domain.SourceMatrix {
				from = domain.MatrixNode(field.Source.Entity)
			}
			g.derived[from] = append(g.derived[from], domain.FieldNode(domain.Ref(tab.ID, field.ID)))
		}
	}

	edges := make([][]nodeID, len(layout.Tabs))
	seenEdge := make(map[[2]int]bool)
	for i, rule := range rules {
		g.ruleOrder[rule.ID()] = i
		reads := map[domain.Node]bool{}
		for _, node := range append([]domain.Node{domain.FieldNode(rule.Field())}, rule.Dependencies()...) {
			if reads[node] {
				continue
			}
			reads[node] = true
			g.readers[node] = append(g.readers[node], rule.ID())

			owner, ok := ownerTab(layout, node)
			to, bound := index[rule.Field().Tab]
			from, known := index[owner]
			if !ok || !bound || !known || from == to || seenEdge[[2]int{from, to}] {
				continue
			}
			seenEdge[[2]int{from, to}] = true
			edges[from] = append(edges[from], toID(to))
			g.tabDeps[rule.Field().Tab] = append(g.tabDeps[rule.Field().Tab], owner)
		}
	}
	for tab := range g.tabDeps {
		deps := g.tabDeps[tab]
		sort.Slice(deps, func(i, j int) bool { return index[deps[i]] < index[deps[j]] })
	}

	g.topo = toposortKahn(len(layout.Tabs), edges)
	if g.topo.Cyclic {
		cyc := make([]domain.TabID, 0, len(g.topo.Cycles))
		for _, id := range g.topo.Cycles {
			cyc = append(cyc, g.tabs[id])
		}
		return nil, domain.CyclicDependencyError{Tabs: cyc}
	}
	return g, nil
}

// ownerTab returns the tab where the data behind node is entered.
func ownerTab(layout domain.Layout, node domain.Node) (domain.TabID, bool) {
	switch node.Kind {
	case domain.NodeField:
		return node.Field.Tab, true
	case domain.NodeEntity:
		return layout.Owner(node.Entity)
	case domain.NodeMatrix:
		return layout.MatrixOwner(node.Entity)
	}
	return "", false
}

// Reachable returns the nodes reached from node by derivation edges, node
// first.
func (g *Graph) Reachable(node domain.Node) []domain.Node {
	seen := map[domain.Node]bool{node: true}
	out := []domain.Node{node}
	for i := 0; i < len(out); i++ {
		for _, next := range g.derived[out[i]] {
			if !seen[next] {
				seen[next] = true
				out = append(out, next)
			}
		}
	}
	return out
}

// AffectedRules returns the ids of every rule that reads a node reachable
// from the mutated nodes, in rule registration order.
func (g *Graph) AffectedRules(mutated ...domain.Node) []string {
	hit := make(map[string]bool)
	for _, node := range mutated {
		for _, reached := range g.Reachable(node) {
			for _, id := range g.readers[reached] {
				hit[id] = true
			}
		}
	}
	out := make([]string, 0, len(hit))
	for id := range hit {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return g.ruleOrder[out[i]] < g.ruleOrder[out[j]] })
	return out
}

// Readers returns the ids of rules reading node directly.
func (g *Graph) Readers(node domain.Node) []string {
	return append([]string(nil), g.readers[node]...)
}

// TabDependencies lists the tabs whose data rules on tab read, in
// declaration order.
func (g *Graph) TabDependencies(tab domain.TabID) []domain.TabID {
	return append([]domain.TabID(nil), g.tabDeps[tab]...)
}

// FillOrder returns the tabs in dependency order: every tab appears after
// the tabs it depends on, ties kept in declaration order.
func (g *Graph) FillOrder() []domain.TabID {
	out := make([]domain.TabID, 0, len(g.topo.Order))
	for _, id := range g.topo.Order {
		out = append(out, g.tabs[id])
	}
	return out
}

// Waves groups tabs that can be filled independently of each other.
func (g *Graph) Waves() [][]domain.TabID {
	out := make([][]domain.TabID, 0, len(g.topo.Batches))
	for _, batch := range g.topo.Batches {
		wave := make([]domain.TabID, 0, len(batch))
		for _, id := range batch {
			wave = append(wave, g.tabs[id])
		}
		out = append(out, wave)
	}
	return out
}
