package catalog

import (
	"sigcore/pkg/domain"
)

type assignmentsResolveRule struct {
	binding
	kind domain.EntityKind
}

// NewAssignmentsResolveRule requires every matrix assignment of kind to join
// an existing level 4 location to an existing entity of kind.
func NewAssignmentsResolveRule(kind domain.EntityKind, field domain.FieldRef) domain.Rule {
	return assignmentsResolveRule{
		binding: bind(string(kind)+".assignments.resolve", field,
			domain.EntityNode(domain.KindLocation), domain.EntityNode(kind), domain.MatrixNode(kind)),
		kind: kind,
	}
}

func (r assignmentsResolveRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	for _, a := range view.ListAssignments(r.kind) {
		target, targetOK := lookup(view, r.kind, a.TargetID)
		label := r.kind.Label() + " " + a.TargetID
		if targetOK {
			label = target.Describe()
		}
		loc, locOK := lookup(view, domain.KindLocation, a.LocationID)
		switch {
		case !locOK:
			out = append(out, violation(domain.ViolationReference, domain.SeverityError, a.LocationID, "%s is assigned to location %s, which does not exist", label, a.LocationID))
		case loc.Level != domain.MaxLocationLevel:
			out = append(out, violation(domain.ViolationReference, domain.SeverityError, loc.ID, "%s is assigned to %s; only level %d locations receive callouts", label, loc.Describe(), domain.MaxLocationLevel))
		}
		if !targetOK {
			out = append(out, violation(domain.ViolationReference, domain.SeverityError, a.TargetID, "%s %s assigned to a location does not exist", r.kind.Label(), a.TargetID))
		}
	}
	return out
}

type reasonAssignmentsEnabledRule struct{ binding }

// NewReasonAssignmentsEnabledRule warns when a location is given a callout
// reason that is not in use.
func NewReasonAssignmentsEnabledRule() domain.Rule {
	return reasonAssignmentsEnabledRule{bind("callout_reason.assignments.enabled", FieldCalloutReasonAssignments,
		domain.EntityNode(domain.KindLocation), domain.EntityNode(domain.KindCalloutReason), domain.MatrixNode(domain.KindCalloutReason))}
}

func (r reasonAssignmentsEnabledRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	for _, a := range view.ListAssignments(domain.KindCalloutReason) {
		reason, ok := lookup(view, domain.KindCalloutReason, a.TargetID)
		if !ok || reason.Flag(domain.MetaEnabled) {
			continue
		}
		name := a.LocationID
		if loc, ok := lookup(view, domain.KindLocation, a.LocationID); ok {
			name = loc.DisplayName
		}
		out = append(out, violation(domain.ViolationReference, domain.SeverityWarning, reason.ID, "%s is assigned to %q but is not enabled", reason.Describe(), name))
	}
	return out
}
