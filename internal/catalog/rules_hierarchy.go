package catalog

import (
	"strings"

	"sigcore/pkg/domain"
)

type parentChainRule struct{ binding }

// NewParentChainRule checks that every location sits directly below a
// location one level up and that level 4 locations reach a level 1 root.
func NewParentChainRule() domain.Rule {
	return parentChainRule{bind("locations.parent-chain", FieldLocations, domain.EntityNode(domain.KindLocation))}
}

func (r parentChainRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	for _, loc := range view.ListEntities(domain.KindLocation) {
		if loc.Level == domain.MinLocationLevel {
			if loc.Parent() != "" {
				out = append(out, violation(domain.ViolationHierarchy, domain.SeverityError, loc.ID, "%s cannot have a parent", loc.Describe()))
			}
			continue
		}
		if loc.Level < domain.MinLocationLevel || loc.Level > domain.MaxLocationLevel {
			out = append(out, violation(domain.ViolationHierarchy, domain.SeverityError, loc.ID, "%s is outside levels %d to %d", loc.Describe(), domain.MinLocationLevel, domain.MaxLocationLevel))
			continue
		}
		parent, ok := view.FindEntity(loc.Parent())
		switch {
		case loc.Parent() == "":
			out = append(out, violation(domain.ViolationHierarchy, domain.SeverityError, loc.ID, "%s has no parent location", loc.Describe()))
			continue
		case !ok || parent.Kind != domain.KindLocation:
			out = append(out, violation(domain.ViolationHierarchy, domain.SeverityError, loc.ID, "%s has parent %s, which does not exist", loc.Describe(), loc.Parent()))
			continue
		case parent.Level != loc.Level-1:
			out = append(out, violation(domain.ViolationHierarchy, domain.SeverityError, loc.ID, "%s sits below %s; its parent must be level %d", loc.Describe(), parent.Describe(), loc.Level-1))
			continue
		}
		if loc.Level == domain.MaxLocationLevel {
			if _, complete := ancestry(view, loc); !complete {
				out = append(out, violation(domain.ViolationHierarchy, domain.SeverityError, loc.ID, "%s is not connected to a level 1 location", loc.Describe()))
			}
		}
	}
	return out
}

type leafCoverageRule struct{ binding }

// NewLeafCoverageRule warns about level 1 to 3 locations with no level 4
// location beneath them.
func NewLeafCoverageRule() domain.Rule {
	return leafCoverageRule{bind("locations.leaf-coverage", FieldLocations, domain.EntityNode(domain.KindLocation))}
}

func (r leafCoverageRule) Evaluate(view domain.RuleView) []domain.Violation {
	locations := view.ListEntities(domain.KindLocation)
	covered := make(map[string]bool)
	for _, loc := range locations {
		if loc.Level != domain.MaxLocationLevel {
			continue
		}
		chain, _ := ancestry(view, loc)
		for _, ancestor := range chain {
			covered[ancestor.ID] = true
		}
	}
	var out []domain.Violation
	for _, loc := range locations {
		if loc.Level >= domain.MinLocationLevel && loc.Level < domain.MaxLocationLevel && !covered[loc.ID] {
			out = append(out, violation(domain.ViolationHierarchy, domain.SeverityWarning, loc.ID, "%s has no level %d locations beneath it", loc.Describe(), domain.MaxLocationLevel))
		}
	}
	return out
}

type levelFourCodeRule struct{ binding }

// NewLevelFourCodeRule requires a code on every level 4 location.
func NewLevelFourCodeRule() domain.Rule {
	return levelFourCodeRule{bind("locations.level-4-code", FieldLocations, domain.EntityNode(domain.KindLocation))}
}

func (r levelFourCodeRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	for _, loc := range view.ListEntities(domain.KindLocation) {
		if loc.Level == domain.MaxLocationLevel && strings.TrimSpace(loc.Code) == "" {
			out = append(out, violation(domain.ViolationHierarchy, domain.SeverityError, loc.ID, "%s needs a location code", loc.Describe()))
		}
	}
	return out
}
