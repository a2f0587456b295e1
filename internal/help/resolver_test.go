package help

import (
	"strings"
	"testing"

	"sigcore/internal/catalog"
	"sigcore/pkg/domain"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	content, err := Embedded()
	if err != nil {
		t.Fatalf("embedded content: %v", err)
	}
	return NewResolver(catalog.DefaultLayout(), content)
}

func TestEmbeddedContentCoversLayout(t *testing.T) {
	content, err := Embedded()
	if err != nil {
		t.Fatalf("embedded content: %v", err)
	}
	layout := catalog.DefaultLayout()
	for _, tab := range layout.Tabs {
		if _, ok := content.TabHelp(tab.ID); !ok {
			t.Fatalf("missing help for tab %s", tab.ID)
		}
		for _, f := range tab.Fields {
			entry, ok := content.FieldHelp(domain.Ref(tab.ID, f.ID))
			if !ok || entry.Purpose == "" {
				t.Fatalf("missing help for field %s/%s", tab.ID, f.ID)
			}
		}
	}
}

func TestExplainMergesActiveDiagnostics(t *testing.T) {
	r := newResolver(t)
	diags := []domain.Diagnostic{
		{Tab: catalog.TabLocationHierarchy, Field: "locations", Rule: "locations.level-4-code", Severity: domain.SeverityError, Message: `Location "Howard" (level 4) needs a location code`},
		{Tab: catalog.TabCalloutReasons, Field: "callout-reasons", Rule: "callout_reason.default", Severity: domain.SeverityError, Message: "Mark one enabled callout reason as the default"},
	}
	exp, err := r.Explain(catalog.TabLocationHierarchy, "locations", diags)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if exp.FieldTitle != "Locations" || exp.Entry.Purpose == "" || exp.Entry.Example == "" {
		t.Fatalf("unexpected explanation %+v", exp)
	}
	if len(exp.Diagnostics) != 1 || len(exp.Problems) != 1 {
		t.Fatalf("expected one active diagnostic, got %+v", exp.Diagnostics)
	}
	want := `Location Hierarchy › Locations: Location "Howard" (level 4) needs a location code`
	if exp.Problems[0] != want {
		t.Fatalf("problem = %q, want %q", exp.Problems[0], want)
	}
}

func TestExplainFallsBackToFieldKind(t *testing.T) {
	content := &Content{
		Fields: map[string]Entry{"location-hierarchy/default-time-zone": {Purpose: "Zone used by default."}},
		Kinds:  map[domain.FieldKind]Entry{domain.FieldChoice: {Purpose: "Pick one.", Limitations: "Only listed values."}},
	}
	r := NewResolver(catalog.DefaultLayout(), content)
	exp, err := r.Explain(catalog.TabLocationHierarchy, "default-time-zone", nil)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if exp.Entry.Purpose != "Zone used by default." || exp.Entry.Limitations != "Only listed values." {
		t.Fatalf("unexpected merged entry %+v", exp.Entry)
	}
}

func TestExplainUnknownField(t *testing.T) {
	r := newResolver(t)
	if _, err := r.Explain("nowhere", "x", nil); err == nil {
		t.Fatalf("expected error for unknown tab")
	}
	if _, err := r.Explain(catalog.TabLocationHierarchy, "x", nil); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestDescribeNeverShowsRuleIDs(t *testing.T) {
	r := newResolver(t)
	d := domain.Diagnostic{Tab: catalog.TabCalloutTypesMatrix, Field: "assignments", Rule: "callout_type.assignments.resolve", Message: "broken"}
	got := r.Describe(d)
	if got != "Matrix of Locations and CO Types › Location Assignments: broken" {
		t.Fatalf("describe = %q", got)
	}
	if strings.Contains(got, d.Rule) {
		t.Fatalf("rule id leaked into %q", got)
	}
	if got := r.Describe(domain.Diagnostic{Tab: "x", Field: "y", Message: "m"}); got != "x › y: m" {
		t.Fatalf("fallback describe = %q", got)
	}
}

func TestExplainTabAndGlossary(t *testing.T) {
	r := newResolver(t)
	exp, err := r.ExplainTab(catalog.TabTroubleLocations, nil)
	if err != nil {
		t.Fatalf("explain tab: %v", err)
	}
	if exp.Title != "Trouble Locations" || len(exp.Fields) != 2 || exp.Entry.Purpose == "" {
		t.Fatalf("unexpected tab explanation %+v", exp)
	}
	terms := r.Glossary()
	if len(terms) == 0 {
		t.Fatalf("expected glossary terms")
	}
	for i := 1; i < len(terms); i++ {
		if terms[i-1].Term > terms[i].Term {
			t.Fatalf("glossary not sorted at %d", i)
		}
	}
}

func TestParseContentRejectsMalformedYAML(t *testing.T) {
	if _, err := ParseContent([]byte("tabs: [")); err == nil {
		t.Fatalf("expected decode error")
	}
}
