package depgraph

import (
	"errors"
	"reflect"
	"testing"

	"sigcore/pkg/domain"
)

type stubRule struct {
	id    string
	field domain.FieldRef
	deps  []domain.Node
}

func (r stubRule) ID() string                                  { return r.id }
func (r stubRule) Field() domain.FieldRef                      { return r.field }
func (r stubRule) Dependencies() []domain.Node                 { return r.deps }
func (r stubRule) Evaluate(domain.RuleView) []domain.Violation { return nil }

var (
	sitesNames = domain.Ref("sites", "names")
	sitesList  = domain.Ref("sites", "list")
	crewList   = domain.Ref("crews", "list")
	crewPairs  = domain.Ref("crews", "pairs")
	notesText  = domain.Ref("notes", "text")
)

func graphLayout() domain.Layout {
	return domain.Layout{Tabs: []domain.Tab{
		{ID: "notes", Fields: []domain.Field{{ID: "text", Kind: domain.FieldText}}},
		{ID: "crews", Owns: []domain.EntityKind{domain.KindCalloutType}, Fields: []domain.Field{
			{ID: "list", Kind: domain.FieldReference, Source: domain.Source{Kind: domain.SourceEntity, Entity: domain.KindCalloutType}},
			{ID: "pairs", Kind: domain.FieldReference, Source: domain.Source{Kind: domain.SourceMatrix, Entity: domain.KindCalloutType}},
		}},
		{ID: "sites", Owns: []domain.EntityKind{domain.KindLocation}, Fields: []domain.Field{
			{ID: "names", Kind: domain.FieldText},
			{ID: "list", Kind: domain.FieldReference, Source: domain.Source{Kind: domain.SourceEntity, Entity: domain.KindLocation}},
		}},
	}}
}

func TestBuildOrdersTabsByDependency(t *testing.T) {
	rules := []domain.Rule{
		stubRule{id: "pairs.resolve", field: crewPairs, deps: []domain.Node{domain.EntityNode(domain.KindLocation), domain.MatrixNode(domain.KindCalloutType)}},
		stubRule{id: "names.format", field: sitesNames},
		stubRule{id: "sites.list", field: sitesList, deps: []domain.Node{domain.EntityNode(domain.KindLocation)}},
	}
	g, err := Build(graphLayout(), rules)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if want := []domain.TabID{"notes", "sites", "crews"}; !reflect.DeepEqual(g.FillOrder(), want) {
		t.Fatalf("fill order = %v, want %v", g.FillOrder(), want)
	}
	if want := []domain.TabID{"sites"}; !reflect.DeepEqual(g.TabDependencies("crews"), want) {
		t.Fatalf("crews depends on %v, want %v", g.TabDependencies("crews"), want)
	}
	if got := g.AffectedRules(domain.EntityNode(domain.KindLocation)); !reflect.DeepEqual(got, []string{"pairs.resolve", "sites.list"}) {
		t.Fatalf("affected by locations = %v", got)
	}
	if got := g.AffectedRules(domain.MatrixNode(domain.KindCalloutType)); !reflect.DeepEqual(got, []string{"pairs.resolve"}) {
		t.Fatalf("affected by matrix = %v", got)
	}
	if got := g.AffectedRules(domain.FieldNode(notesText)); len(got) != 0 {
		t.Fatalf("expected no rules reading notes, got %v", got)
	}
	if got := g.Readers(domain.FieldNode(sitesNames)); !reflect.DeepEqual(got, []string{"names.format"}) {
		t.Fatalf("readers = %v", got)
	}
}

func TestBuildAffectedRulesDeduplicates(t *testing.T) {
	rules := []domain.Rule{
		stubRule{id: "a", field: crewList, deps: []domain.Node{domain.EntityNode(domain.KindCalloutType), domain.EntityNode(domain.KindCalloutType)}},
	}
	g, err := Build(graphLayout(), rules)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got := g.AffectedRules(domain.EntityNode(domain.KindCalloutType), domain.FieldNode(crewList))
	if !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("affected = %v", got)
	}
}

func TestBuildReportsCycles(t *testing.T) {
	rules := []domain.Rule{
		stubRule{id: "crews.reads-sites", field: crewList, deps: []domain.Node{domain.FieldNode(sitesNames)}},
		stubRule{id: "sites.reads-crews", field: sitesNames, deps: []domain.Node{domain.EntityNode(domain.KindCalloutType)}},
		stubRule{id: "notes.reads-sites", field: notesText, deps: []domain.Node{domain.FieldNode(sitesNames)}},
	}
	_, err := Build(graphLayout(), rules)
	var cyc domain.CyclicDependencyError
	if !errors.As(err, &cyc) {
		t.Fatalf("expected CyclicDependencyError, got %v", err)
	}
	if want := []domain.TabID{"crews", "sites"}; !reflect.DeepEqual(cyc.Tabs, want) {
		t.Fatalf("cycle = %v, want %v", cyc.Tabs, want)
	}
}
