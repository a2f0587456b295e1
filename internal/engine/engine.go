// Package engine evaluates catalog rules against a document view and turns
// the results into ordered diagnostics and tab completion.
package engine

import (
	"sigcore/internal/catalog"
	"sigcore/pkg/domain"
)

// Scope selects what to re-evaluate: the whole document or the rules
// affected by a set of mutated nodes.
type Scope struct {
	Full  bool
	Nodes []domain.Node
}

// FullScope evaluates every rule.
func FullScope() Scope { return Scope{Full: true} }

// DeltaScope evaluates the rules affected by the given nodes.
func DeltaScope(nodes ...domain.Node) Scope {
	return Scope{Nodes: append([]domain.Node(nil), nodes...)}
}

// ScopeFromChanges builds a delta scope from a transaction change set.
func ScopeFromChanges(changes []domain.Change) Scope {
	seen := make(map[domain.Node]bool, len(changes))
	scope := Scope{}
	for _, change := range changes {
		if seen[change.Node] {
			continue
		}
		seen[change.Node] = true
		scope.Nodes = append(scope.Nodes, change.Node)
	}
	return scope
}

// Empty reports whether the scope selects nothing.
func (s Scope) Empty() bool { return !s.Full && len(s.Nodes) == 0 }

// Results caches the violations of each rule by rule id.
type Results map[string][]domain.Violation

// Clone copies the result map. Violation slices are shared; they are never
// modified after evaluation.
func (r Results) Clone() Results {
	out := make(Results, len(r))
	for id, v := range r {
		out[id] = v
	}
	return out
}

// Engine evaluates rules of one catalog. It holds no document state and is
// safe for concurrent use.
type Engine struct {
	catalog *catalog.Catalog
}

// New returns an engine over c.
func New(c *catalog.Catalog) *Engine {
	return &Engine{catalog: c}
}

// Catalog returns the catalog the engine evaluates.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Evaluate returns the rule results for view. A full scope, or a nil prev,
// evaluates every rule. Otherwise prev is copied and only the rules affected
// by the scope's nodes are re-evaluated; prev itself is left untouched.
func (e *Engine) Evaluate(view domain.RuleView, scope Scope, prev Results) Results {
	if scope.Full || prev == nil {
		out := make(Results, len(e.catalog.Rules()))
		for _, rule := range e.catalog.Rules() {
			out[rule.ID()] = rule.Evaluate(view)
		}
		return out
	}
	out := prev.Clone()
	for _, id := range e.catalog.Graph().AffectedRules(scope.Nodes...) {
		rule, ok := e.catalog.Rule(id)
		if !ok {
			continue
		}
		out[id] = rule.Evaluate(view)
	}
	return out
}

// Diagnostics flattens results in tab declaration order, then field
// declaration order, then rule registration order, then emission order.
func (e *Engine) Diagnostics(results Results) []domain.Diagnostic {
	var out []domain.Diagnostic
	for _, tab := range e.catalog.Layout().Tabs {
		for _, field := range tab.Fields {
			for _, rule := range e.catalog.RulesFor(tab.ID, field.ID) {
				for _, v := range results[rule.ID()] {
					out = append(out, domain.Diagnostic{
						Tab:      tab.ID,
						Field:    field.ID,
						Rule:     rule.ID(),
						Severity: v.Severity,
						Kind:     v.Kind,
						Message:  v.Message,
						EntityID: v.EntityID,
					})
				}
			}
		}
	}
	return out
}

// Validate evaluates scope and returns both the results and the ordered
// diagnostics.
func (e *Engine) Validate(view domain.RuleView, scope Scope, prev Results) (Results, []domain.Diagnostic) {
	results := e.Evaluate(view, scope, prev)
	return results, e.Diagnostics(results)
}

// ForField keeps the diagnostics attached to one field.
func ForField(diags []domain.Diagnostic, ref domain.FieldRef) []domain.Diagnostic {
	var out []domain.Diagnostic
	for _, d := range diags {
		if d.Ref() == ref {
			out = append(out, d)
		}
	}
	return out
}

// ForTab keeps the diagnostics attached to one tab.
func ForTab(diags []domain.Diagnostic, tab domain.TabID) []domain.Diagnostic {
	var out []domain.Diagnostic
	for _, d := range diags {
		if d.Tab == tab {
			out = append(out, d)
		}
	}
	return out
}

// Count tallies diagnostics by severity.
func Count(diags []domain.Diagnostic) map[domain.Severity]int {
	out := make(map[domain.Severity]int, 3)
	for _, d := range diags {
		out[d.Severity]++
	}
	return out
}
