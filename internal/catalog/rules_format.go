package catalog

import (
	"sigcore/pkg/domain"
)

type levelLabelsRule struct{ binding }

// NewLevelLabelsRule checks every hierarchy level label against the name rule.
func NewLevelLabelsRule() domain.Rule {
	return levelLabelsRule{bind("level-labels.format", FieldLevelLabels)}
}

func (r levelLabelsRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	for i, label := range view.FieldValue(r.field).Items() {
		if problem := domain.NameProblem(label); problem != "" {
			out = append(out, violation(domain.ViolationFormat, domain.SeverityError, "", "Level %d label %q %s", i+1, label, problem))
		}
	}
	return out
}

type locationTimeZonesRule struct{ binding }

// NewLocationTimeZonesRule checks location time zones and flags level 4
// locations that fall back to an unset default. The fallback note only
// appears once the hierarchy tab is being filled in, i.e. level labels exist.
func NewLocationTimeZonesRule() domain.Rule {
	return locationTimeZonesRule{bind("locations.time-zone", FieldLocations,
		domain.EntityNode(domain.KindLocation), domain.FieldNode(FieldDefaultTimeZone), domain.FieldNode(FieldLevelLabels))}
}

func (r locationTimeZonesRule) Evaluate(view domain.RuleView) []domain.Violation {
	defaultSet := !view.FieldValue(FieldDefaultTimeZone).Empty()
	started := !view.FieldValue(FieldLevelLabels).Empty()
	var out []domain.Violation
	for _, loc := range view.ListEntities(domain.KindLocation) {
		switch {
		case loc.TimeZone != "" && !domain.ValidTimeZone(loc.TimeZone):
			out = append(out, violation(domain.ViolationFormat, domain.SeverityError, loc.ID, "%s has unknown time zone %q", loc.Describe(), loc.TimeZone))
		case loc.TimeZone == "" && started && !defaultSet && loc.Level == domain.MaxLocationLevel:
			out = append(out, violation(domain.ViolationFormat, domain.SeverityInfo, loc.ID, "%s has no time zone and no default time zone is set", loc.Describe()))
		}
	}
	return out
}

type entityNamesRule struct {
	binding
	kind domain.EntityKind
}

// NewEntityNamesRule checks display names of every entity of kind. Admission
// already enforces the rule; imported snapshots may not.
func NewEntityNamesRule(kind domain.EntityKind, field domain.FieldRef) domain.Rule {
	return entityNamesRule{binding: bind(string(kind)+".name-format", field, domain.EntityNode(kind)), kind: kind}
}

func (r entityNamesRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	for _, e := range view.ListEntities(r.kind) {
		if problem := domain.NameProblem(e.DisplayName); problem != "" {
			out = append(out, violation(domain.ViolationFormat, domain.SeverityError, e.ID, "%s name %s", e.Describe(), problem))
		}
	}
	return out
}

type troubleLocationNamesRule struct{ binding }

// NewTroubleLocationNamesRule checks trouble location names for the name rule
// and duplicates.
func NewTroubleLocationNamesRule() domain.Rule {
	return troubleLocationNamesRule{bind("trouble-location-names.format", FieldTroubleLocationNames)}
}

func (r troubleLocationNamesRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	seen := make(map[string]bool)
	for _, name := range view.FieldValue(r.field).Items() {
		if problem := domain.NameProblem(name); problem != "" {
			out = append(out, violation(domain.ViolationFormat, domain.SeverityError, "", "Trouble location %q %s", name, problem))
		}
		key := domain.FoldCode(name)
		if seen[key] {
			out = append(out, violation(domain.ViolationUniqueness, domain.SeverityError, "", "Trouble location %q is listed more than once", name))
		}
		seen[key] = true
	}
	return out
}

type classTypeRule struct{ binding }

// NewClassTypeRule checks job classification class types.
func NewClassTypeRule() domain.Rule {
	return classTypeRule{bind("job_classification.class-type", FieldJobClassifications, domain.EntityNode(domain.KindJobClassification))}
}

func (r classTypeRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	for _, job := range view.ListEntities(domain.KindJobClassification) {
		switch domain.FoldCode(job.Meta(domain.MetaClassType)) {
		case "", domain.ClassJourneyman, domain.ClassApprentice:
		default:
			out = append(out, violation(domain.ViolationFormat, domain.SeverityError, job.ID,
				"%s has class type %q; use %s or %s", job.Describe(), job.Meta(domain.MetaClassType), domain.ClassJourneyman, domain.ClassApprentice))
		}
	}
	return out
}
