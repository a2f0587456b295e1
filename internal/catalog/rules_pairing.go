package catalog

import (
	"strings"

	"sigcore/pkg/domain"
)

type defaultReasonRule struct{ binding }

// NewDefaultReasonRule requires exactly one enabled callout reason to be the
// default and rejects a default that is not enabled.
func NewDefaultReasonRule() domain.Rule {
	return defaultReasonRule{bind("callout_reason.default", FieldCalloutReasons, domain.EntityNode(domain.KindCalloutReason))}
}

func (r defaultReasonRule) Evaluate(view domain.RuleView) []domain.Violation {
	reasons := view.ListEntities(domain.KindCalloutReason)
	if len(reasons) == 0 {
		return nil
	}
	var out []domain.Violation
	var enabled int
	var defaults []string
	for _, reason := range reasons {
		isDefault := reason.Flag(domain.MetaDefault)
		if !reason.Flag(domain.MetaEnabled) {
			if isDefault {
				out = append(out, violation(domain.ViolationPairing, domain.SeverityError, reason.ID, "%s is marked default but is not enabled", reason.Describe()))
			}
			continue
		}
		enabled++
		if isDefault {
			defaults = append(defaults, reason.DisplayName)
		}
	}
	switch {
	case enabled == 0:
		out = append(out, violation(domain.ViolationPairing, domain.SeverityWarning, "", "No callout reason is enabled"))
	case len(defaults) == 0:
		out = append(out, violation(domain.ViolationPairing, domain.SeverityError, "", "Mark one enabled callout reason as the default"))
	case len(defaults) > 1:
		out = append(out, violation(domain.ViolationPairing, domain.SeverityError, "", "Only one callout reason can be the default; %s are all marked", strings.Join(quoteAll(defaults), ", ")))
	}
	return out
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = "\"" + name + "\""
	}
	return out
}

type troubleLocationsPairingRule struct{ binding }

// NewTroubleLocationsPairingRule warns when trouble location names are listed
// although the company does not use trouble locations.
func NewTroubleLocationsPairingRule() domain.Rule {
	return troubleLocationsPairingRule{bind("trouble-location-names.pairing", FieldTroubleLocationNames, domain.FieldNode(FieldUsesTroubleLocations))}
}

func (r troubleLocationsPairingRule) Evaluate(view domain.RuleView) []domain.Violation {
	flag := view.FieldValue(FieldUsesTroubleLocations)
	if flag.Empty() || domain.ParseFlag(flag.First()) {
		return nil
	}
	if names := view.FieldValue(r.field).Items(); len(names) > 0 {
		return []domain.Violation{violation(domain.ViolationPairing, domain.SeverityWarning, "", "%d trouble locations are listed but trouble locations are not used", len(names))}
	}
	return nil
}

type matrixCoverageRule struct{ binding }

// NewMatrixCoverageRule warns about level 4 locations without any callout
// type once the matrix is in use.
func NewMatrixCoverageRule() domain.Rule {
	return matrixCoverageRule{bind("callout_type.assignments.coverage", FieldCalloutTypeAssignments,
		domain.EntityNode(domain.KindLocation), domain.MatrixNode(domain.KindCalloutType))}
}

func (r matrixCoverageRule) Evaluate(view domain.RuleView) []domain.Violation {
	assignments := view.ListAssignments(domain.KindCalloutType)
	if len(assignments) == 0 {
		return nil
	}
	assigned := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		assigned[a.LocationID] = true
	}
	var out []domain.Violation
	for _, loc := range view.ListEntities(domain.KindLocation) {
		if loc.Level == domain.MaxLocationLevel && !assigned[loc.ID] {
			out = append(out, violation(domain.ViolationPairing, domain.SeverityWarning, loc.ID, "%s has no callout types assigned", loc.Describe()))
		}
	}
	return out
}
