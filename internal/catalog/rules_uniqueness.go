package catalog

import (
	"strings"

	"sigcore/pkg/domain"
)

type uniqueNamesRule struct {
	binding
	kind domain.EntityKind
}

// NewUniqueNamesRule reports entities of kind whose display name repeats an
// earlier one, ignoring case and surrounding whitespace.
func NewUniqueNamesRule(kind domain.EntityKind, field domain.FieldRef) domain.Rule {
	return uniqueNamesRule{binding: bind(string(kind)+".unique-names", field, domain.EntityNode(kind)), kind: kind}
}

func (r uniqueNamesRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	first := make(map[string]domain.Entity)
	for _, e := range view.ListEntities(r.kind) {
		key := domain.FoldCode(e.DisplayName)
		if prior, dup := first[key]; dup {
			out = append(out, violation(domain.ViolationUniqueness, domain.SeverityError, e.ID, "%s repeats the name of %s", e.Describe(), prior.Describe()))
			continue
		}
		first[key] = e
	}
	return out
}

type locationCodesRule struct{ binding }

// NewLocationCodesRule reports level 4 locations sharing a code.
func NewLocationCodesRule() domain.Rule {
	return locationCodesRule{bind("locations.unique-codes", FieldLocations, domain.EntityNode(domain.KindLocation))}
}

func (r locationCodesRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	first := make(map[string]domain.Entity)
	for _, loc := range view.ListEntities(domain.KindLocation) {
		if loc.Level != domain.MaxLocationLevel || strings.TrimSpace(loc.Code) == "" {
			continue
		}
		key := domain.FoldCode(loc.Code)
		if prior, dup := first[key]; dup {
			out = append(out, violation(domain.ViolationUniqueness, domain.SeverityError, loc.ID, "%s uses code %q, already used by %s", loc.Describe(), loc.Code, prior.Describe()))
			continue
		}
		first[key] = loc
	}
	return out
}

type hrIDsRule struct{ binding }

// NewHRIDsRule checks job classification HR ids: at most five per
// classification and each used by one classification only.
func NewHRIDsRule() domain.Rule {
	return hrIDsRule{bind("job_classification.hr-ids", FieldJobClassifications, domain.EntityNode(domain.KindJobClassification))}
}

func (r hrIDsRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	owner := make(map[string]domain.Entity)
	for _, job := range view.ListEntities(domain.KindJobClassification) {
		if len(job.ExternalIDs) > domain.MaxJobClassificationIDs {
			out = append(out, violation(domain.ViolationFormat, domain.SeverityError, job.ID, "%s lists %d ids; at most %d are allowed", job.Describe(), len(job.ExternalIDs), domain.MaxJobClassificationIDs))
		}
		for _, id := range job.ExternalIDs {
			key := domain.FoldCode(id)
			if key == "" {
				continue
			}
			if prior, dup := owner[key]; dup && prior.ID != job.ID {
				out = append(out, violation(domain.ViolationUniqueness, domain.SeverityError, job.ID, "%s uses id %q, already used by %s", job.Describe(), id, prior.Describe()))
				continue
			}
			owner[key] = job
		}
	}
	return out
}

type reasonIDsRule struct{ binding }

// NewReasonIDsRule requires every callout reason to carry one unique numeric id.
func NewReasonIDsRule() domain.Rule {
	return reasonIDsRule{bind("callout_reason.ids", FieldCalloutReasons, domain.EntityNode(domain.KindCalloutReason))}
}

func (r reasonIDsRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	owner := make(map[string]domain.Entity)
	for _, reason := range view.ListEntities(domain.KindCalloutReason) {
		if len(reason.ExternalIDs) != domain.MaxCalloutReasonIDs {
			out = append(out, violation(domain.ViolationFormat, domain.SeverityError, reason.ID, "%s needs exactly one reason id", reason.Describe()))
			continue
		}
		id := strings.TrimSpace(reason.ExternalIDs[0])
		if !numeric(id) {
			out = append(out, violation(domain.ViolationFormat, domain.SeverityError, reason.ID, "%s has non-numeric reason id %q", reason.Describe(), id))
			continue
		}
		key := strings.TrimLeft(id, "0")
		if prior, dup := owner[key]; dup {
			out = append(out, violation(domain.ViolationUniqueness, domain.SeverityError, reason.ID, "%s uses reason id %s, already used by %s", reason.Describe(), id, prior.Describe()))
			continue
		}
		owner[key] = reason
	}
	return out
}

func numeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
