package catalog

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"sigcore/pkg/domain"
)

func TestDefaultCatalogBuilds(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	again, _ := Default()
	if c != again {
		t.Fatalf("expected Default to return the shared catalog")
	}
	want := []domain.TabID{TabLocationHierarchy, TabTroubleLocations, TabJobClassifications, TabCalloutReasons, TabCalloutTypesMatrix, TabCalloutReasonsMatrix}
	if got := c.FillOrder(); !reflect.DeepEqual(got, want) {
		t.Fatalf("fill order = %v, want %v", got, want)
	}
	waves := c.Graph().Waves()
	if len(waves) != 2 || len(waves[0]) != 4 || len(waves[1]) != 2 {
		t.Fatalf("unexpected waves %v", waves)
	}
	if deps := c.Graph().TabDependencies(TabCalloutReasonsMatrix); !reflect.DeepEqual(deps, []domain.TabID{TabLocationHierarchy, TabCalloutReasons}) {
		t.Fatalf("reasons matrix dependencies = %v", deps)
	}
}

func TestRulesForKeepsRegistrationOrder(t *testing.T) {
	c := MustDefault()
	rules := c.RulesFor(TabLocationHierarchy, FieldLocations.Field)
	var ids []string
	for _, r := range rules {
		ids = append(ids, r.ID())
	}
	want := []string{
		"location.name-format",
		"location.unique-names",
		"locations.unique-codes",
		"locations.parent-chain",
		"locations.level-4-code",
		"locations.leaf-coverage",
		"locations.time-zone",
	}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("rules for locations = %v, want %v", ids, want)
	}
	if len(c.RulesFor(TabLocationHierarchy, "missing")) != 0 {
		t.Fatalf("expected no rules for unknown field")
	}
	if _, ok := c.Rule("callout_reason.default"); !ok {
		t.Fatalf("expected default reason rule to be registered")
	}
	if c.Position("locations.parent-chain") >= c.Position("callout_type.assignments.resolve") {
		t.Fatalf("expected location rules registered before matrix rules")
	}
	if c.Position("nope") != -1 {
		t.Fatalf("expected -1 for unknown rule")
	}
}

func TestNewRejectsMalformedRules(t *testing.T) {
	layout := DefaultLayout()
	noop := func(domain.RuleView) []domain.Violation { return nil }
	cases := []struct {
		name  string
		rules []domain.Rule
		want  string
	}{
		{"empty id", []domain.Rule{NewRule("", FieldLevelLabels, nil, noop)}, "empty id"},
		{"duplicate id", []domain.Rule{NewRule("a", FieldLevelLabels, nil, noop), NewRule("a", FieldLocations, nil, noop)}, "duplicate id"},
		{"unknown field", []domain.Rule{NewRule("a", domain.Ref(TabLocationHierarchy, "nope"), nil, noop)}, "bound field"},
		{"unknown dependency", []domain.Rule{NewRule("a", FieldLevelLabels, []domain.Node{domain.FieldNode(domain.Ref("nowhere", "x"))}, noop)}, "not in the layout"},
		{"unknown kind", []domain.Rule{NewRule("a", FieldLevelLabels, []domain.Node{domain.EntityNode("vehicle")}, noop)}, "unknown kind"},
		{"non matrix kind", []domain.Rule{NewRule("a", FieldLevelLabels, []domain.Node{domain.MatrixNode(domain.KindLocation)}, noop)}, "not a matrix kind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(layout, tc.rules)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestNewDetectsTabCycles(t *testing.T) {
	layout := DefaultLayout()
	noop := func(domain.RuleView) []domain.Violation { return nil }
	rules := append(DefaultRules(layout),
		NewRule("jobs.read-reasons", FieldJobClassifications, []domain.Node{domain.EntityNode(domain.KindCalloutReason)}, noop),
		NewRule("reasons.read-jobs", FieldCalloutReasons, []domain.Node{domain.EntityNode(domain.KindJobClassification)}, noop),
	)
	_, err := New(layout, rules)
	var cyc domain.CyclicDependencyError
	if !errors.As(err, &cyc) {
		t.Fatalf("expected CyclicDependencyError, got %v", err)
	}
	want := []domain.TabID{TabJobClassifications, TabCalloutReasons}
	if !reflect.DeepEqual(cyc.Tabs, want) {
		t.Fatalf("cycle tabs = %v, want %v", cyc.Tabs, want)
	}
}

func TestAffectedRulesFollowDerivationEdges(t *testing.T) {
	g := MustDefault().Graph()
	got := g.AffectedRules(domain.EntityNode(domain.KindLocation))
	has := make(map[string]bool, len(got))
	for _, id := range got {
		has[id] = true
	}
	for _, id := range []string{"locations.parent-chain", "locations.time-zone", "callout_type.assignments.resolve", "callout_reason.assignments.resolve", "callout_type.assignments.coverage"} {
		if !has[id] {
			t.Fatalf("expected %s among affected rules %v", id, got)
		}
	}
	if has["callout_reason.default"] || has["level-labels.format"] {
		t.Fatalf("unexpected unrelated rules in %v", got)
	}

	flag := g.AffectedRules(domain.FieldNode(FieldUsesTroubleLocations))
	want := []string{
		"trouble-locations/uses-trouble-locations.cardinality",
		"trouble-locations/uses-trouble-locations.flag",
		"trouble-location-names.pairing",
	}
	if !reflect.DeepEqual(flag, want) {
		t.Fatalf("affected by flag = %v, want %v", flag, want)
	}

	reached := g.Reachable(domain.MatrixNode(domain.KindCalloutType))
	if len(reached) != 2 || reached[1] != domain.FieldNode(FieldCalloutTypeAssignments) {
		t.Fatalf("unexpected reachable nodes %v", reached)
	}
}
