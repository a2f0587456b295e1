package catalog

import (
	"fmt"

	"sigcore/pkg/domain"
)

// binding holds what every rule declares: its id, the field it reports on and
// the nodes it reads besides that field.
type binding struct {
	id    string
	field domain.FieldRef
	deps  []domain.Node
}

func bind(id string, field domain.FieldRef, deps ...domain.Node) binding {
	return binding{id: id, field: field, deps: deps}
}

func (b binding) ID() string             { return b.id }
func (b binding) Field() domain.FieldRef { return b.field }

func (b binding) Dependencies() []domain.Node {
	return append([]domain.Node(nil), b.deps...)
}

// NewRule builds a rule from a plain evaluation function.
func NewRule(id string, field domain.FieldRef, deps []domain.Node, eval func(domain.RuleView) []domain.Violation) domain.Rule {
	return funcRule{binding: bind(id, field, deps...), eval: eval}
}

type funcRule struct {
	binding
	eval func(domain.RuleView) []domain.Violation
}

func (r funcRule) Evaluate(view domain.RuleView) []domain.Violation {
	if r.eval == nil {
		return nil
	}
	return r.eval(view)
}

func violation(kind domain.ViolationKind, severity domain.Severity, entityID, format string, args ...any) domain.Violation {
	return domain.Violation{Kind: kind, Severity: severity, Message: fmt.Sprintf(format, args...), EntityID: entityID}
}

// lookup finds an entity by id only when it has the given kind. An id that
// resolves to another kind is treated as missing, so a rule never reads
// entities outside the kinds it declares.
func lookup(view domain.RuleView, kind domain.EntityKind, id string) (domain.Entity, bool) {
	e, ok := view.FindEntity(id)
	if !ok || e.Kind != kind {
		return domain.Entity{}, false
	}
	return e, true
}

// ancestry walks parent links from a location and reports whether the chain
// reaches a level 1 location. Cycles and dangling parents break the chain.
func ancestry(view domain.RuleView, loc domain.Entity) ([]domain.Entity, bool) {
	var chain []domain.Entity
	seen := map[string]bool{loc.ID: true}
	current := loc
	for current.Level > domain.MinLocationLevel {
		parent, ok := view.FindEntity(current.Parent())
		if !ok || parent.Kind != domain.KindLocation || parent.Level != current.Level-1 || seen[parent.ID] {
			return chain, false
		}
		seen[parent.ID] = true
		chain = append(chain, parent)
		current = parent
	}
	return chain, current.Level == domain.MinLocationLevel && current.Parent() == ""
}
