package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sigcore/internal/catalog"
	"sigcore/internal/infra/persistence/memory"
	"sigcore/pkg/domain"
)

type harness struct {
	t       *testing.T
	store   *memory.Store
	engine  *Engine
	results Results
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	n := 0
	store := memory.NewStore(catalog.DefaultLayout(),
		memory.WithIDGenerator(func() string { n++; return fmt.Sprintf("e%02d", n) }),
		memory.WithClock(func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }),
	)
	h := &harness{t: t, store: store, engine: New(catalog.MustDefault())}
	h.results = h.evaluate(FullScope(), nil)
	return h
}

func (h *harness) evaluate(scope Scope, prev Results) Results {
	h.t.Helper()
	var out Results
	if err := h.store.View(context.Background(), func(view domain.RuleView) error {
		out = h.engine.Evaluate(view, scope, prev)
		return nil
	}); err != nil {
		h.t.Fatalf("view: %v", err)
	}
	return out
}

// apply runs fn, re-validates incrementally and checks the result against a
// full validation of the same state.
func (h *harness) apply(fn func(tx domain.Transaction) error) []domain.Diagnostic {
	h.t.Helper()
	changes, err := h.store.RunInTransaction(context.Background(), fn)
	if err != nil {
		h.t.Fatalf("transaction: %v", err)
	}
	incremental := h.evaluate(ScopeFromChanges(changes), h.results)
	full := h.evaluate(FullScope(), nil)
	got, want := h.engine.Diagnostics(incremental), h.engine.Diagnostics(full)
	if diff := cmp.Diff(want, got); diff != "" {
		h.t.Fatalf("incremental validation differs from full (-full +incremental):\n%s", diff)
	}
	h.results = incremental
	return got
}

func (h *harness) completion() Completion {
	h.t.Helper()
	var out Completion
	_ = h.store.View(context.Background(), func(view domain.RuleView) error {
		out = h.engine.Completion(view, h.engine.Diagnostics(h.results))
		return nil
	})
	return out
}

func (h *harness) state(tab domain.TabID) State {
	h.t.Helper()
	status, ok := h.completion().Tab(tab)
	if !ok {
		h.t.Fatalf("tab %s missing from completion", tab)
	}
	return status.State
}

func create(tx domain.Transaction, e domain.Entity) (string, error) {
	created, err := tx.CreateEntity(e)
	return created.ID, err
}

func ptr(s string) *string { return &s }

func (h *harness) seedPittsburgh() (leaf, normal string) {
	h.t.Helper()
	h.apply(func(tx domain.Transaction) error {
		parent := ""
		names := []string{"Pittsburgh Water", "Operations", "Bridgeville Division", "Howard Water Operations"}
		for i, name := range names {
			e := domain.Entity{Kind: domain.KindLocation, DisplayName: name, Level: i + 1}
			if parent != "" {
				e.ParentID = ptr(parent)
			}
			if i == 3 {
				e.Code = "PIT-OPS-BRI-HOW"
				e.TimeZone = "ET"
			}
			id, err := create(tx, e)
			if err != nil {
				return err
			}
			parent = id
		}
		leaf = parent
		return nil
	})
	h.apply(func(tx domain.Transaction) error {
		var err error
		normal, err = create(tx, domain.Entity{Kind: domain.KindCalloutType, DisplayName: "Normal"})
		return err
	})
	h.apply(func(tx domain.Transaction) error {
		return tx.SetAssignment(domain.Assignment{LocationID: leaf, TargetKind: domain.KindCalloutType, TargetID: normal}, true)
	})
	return leaf, normal
}

func TestPittsburghScenarioCompletesMatrix(t *testing.T) {
	h := newHarness(t)
	if got := h.state(catalog.TabCalloutTypesMatrix); got != StateIncomplete {
		t.Fatalf("empty matrix tab = %s, want incomplete", got)
	}
	h.seedPittsburgh()
	diags := h.engine.Diagnostics(h.results)
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics for the branch, got %+v", diags)
	}
	if got := h.state(catalog.TabCalloutTypesMatrix); got != StateComplete {
		t.Fatalf("matrix tab = %s, want complete", got)
	}
	if h.completion().Ready {
		t.Fatalf("document cannot be ready before every tab is filled")
	}

	h.apply(func(tx domain.Transaction) error {
		if err := tx.SetFieldValue(catalog.FieldLevelLabels, catalog.DefaultLevelLabels); err != nil {
			return err
		}
		if err := tx.SetFieldValue(catalog.FieldDefaultTimeZone, domain.Scalar("ET")); err != nil {
			return err
		}
		if err := tx.SetFieldValue(catalog.FieldUsesTroubleLocations, domain.Scalar("false")); err != nil {
			return err
		}
		if _, err := create(tx, domain.Entity{Kind: domain.KindJobClassification, DisplayName: "Lineman", Metadata: map[string]string{domain.MetaClassType: domain.ClassJourneyman}}); err != nil {
			return err
		}
		_, err := create(tx, domain.Entity{Kind: domain.KindCalloutReason, DisplayName: "Gas Leak", ExternalIDs: []string{"101"},
			Metadata: map[string]string{domain.MetaEnabled: "true", domain.MetaDefault: "true"}})
		return err
	})
	completion := h.completion()
	if !completion.Ready || completion.Progress != 1 {
		t.Fatalf("expected a ready document, got %+v", completion)
	}
}

func TestValidationIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.seedPittsburgh()
	first := h.engine.Diagnostics(h.evaluate(FullScope(), nil))
	second := h.engine.Diagnostics(h.evaluate(FullScope(), nil))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated validation differs:\n%s", diff)
	}
	again := h.engine.Diagnostics(h.evaluate(DeltaScope(), h.results))
	if diff := cmp.Diff(first, again); diff != "" {
		t.Fatalf("empty delta changed diagnostics:\n%s", diff)
	}
}

func TestIncrementalMatchesFullAcrossMutations(t *testing.T) {
	h := newHarness(t)
	leaf, normal := h.seedPittsburgh()
	var reason string
	h.apply(func(tx domain.Transaction) error {
		var err error
		reason, err = create(tx, domain.Entity{Kind: domain.KindCalloutReason, DisplayName: "Main Break", ExternalIDs: []string{"7"}})
		return err
	})
	h.apply(func(tx domain.Transaction) error {
		return tx.SetAssignment(domain.Assignment{LocationID: leaf, TargetKind: domain.KindCalloutReason, TargetID: reason}, true)
	})
	diags := h.apply(func(tx domain.Transaction) error {
		_, err := tx.UpdateEntity(reason, func(e *domain.Entity) error {
			e.Metadata = map[string]string{domain.MetaEnabled: "yes"}
			return nil
		})
		return err
	})
	if len(ForField(diags, catalog.FieldCalloutReasons)) != 1 {
		t.Fatalf("expected only the missing default diagnostic, got %+v", diags)
	}
	h.apply(func(tx domain.Transaction) error {
		return tx.SetAssignment(domain.Assignment{LocationID: leaf, TargetKind: domain.KindCalloutType, TargetID: normal}, false)
	})
	h.apply(func(tx domain.Transaction) error {
		_, err := tx.UpdateEntity(leaf, func(e *domain.Entity) error {
			e.DisplayName = "Howard Operations"
			e.TimeZone = ""
			return nil
		})
		return err
	})
	h.apply(func(tx domain.Transaction) error {
		return tx.SetFieldValue(catalog.FieldTroubleLocationNames, domain.Value{"Main St", "main st"})
	})
	h.apply(func(tx domain.Transaction) error {
		return tx.SetFieldValue(catalog.FieldUsesTroubleLocations, domain.Scalar("no"))
	})
}

func TestIncrementalMatchesFullWithWrongKindReferences(t *testing.T) {
	h := newHarness(t)
	snapshot := domain.Snapshot{
		NextSeq: 4,
		Entities: []domain.Entity{
			{Base: domain.Base{ID: "root", Seq: 1}, Kind: domain.KindLocation, DisplayName: "Pittsburgh Water", Level: 1},
			{Base: domain.Base{ID: "job", Seq: 2}, Kind: domain.KindJobClassification, DisplayName: "Lineman"},
			{Base: domain.Base{ID: "leak", Seq: 3}, Kind: domain.KindCalloutReason, DisplayName: "Gas Leak", ExternalIDs: []string{"101"}},
		},
		Assignments: []domain.Assignment{
			{LocationID: "root", TargetKind: domain.KindCalloutType, TargetID: "job"},
			{LocationID: "job", TargetKind: domain.KindCalloutReason, TargetID: "leak"},
		},
	}
	if err := h.store.ImportState(snapshot); err != nil {
		t.Fatalf("import: %v", err)
	}
	h.results = h.evaluate(FullScope(), nil)

	diags := h.apply(func(tx domain.Transaction) error {
		_, err := tx.UpdateEntity("job", func(e *domain.Entity) error {
			e.DisplayName = "Senior Lineman"
			return nil
		})
		return err
	})
	var sawTarget, sawLocation bool
	for _, d := range diags {
		if strings.Contains(d.Message, "assigned") && strings.Contains(d.Message, "Lineman") {
			t.Fatalf("diagnostic reads an entity of an undeclared kind: %q", d.Message)
		}
		sawTarget = sawTarget || strings.Contains(d.Message, "Callout Type job assigned to a location does not exist")
		sawLocation = sawLocation || strings.Contains(d.Message, `is assigned to "job"`)
	}
	if !sawTarget || !sawLocation {
		t.Fatalf("expected wrong-kind references reported by id, got %+v", diags)
	}
}

func TestCompletionMonotonicity(t *testing.T) {
	h := newHarness(t)
	if got := h.state(catalog.TabTroubleLocations); got != StateIncomplete {
		t.Fatalf("trouble locations = %s, want incomplete", got)
	}
	h.apply(func(tx domain.Transaction) error {
		return tx.SetFieldValue(catalog.FieldUsesTroubleLocations, domain.Scalar("true"))
	})
	if got := h.state(catalog.TabTroubleLocations); got != StateIncomplete {
		t.Fatalf("flag without names = %s, want incomplete", got)
	}
	h.apply(func(tx domain.Transaction) error {
		return tx.SetFieldValue(catalog.FieldTroubleLocationNames, domain.Value{"Main St Bridge"})
	})
	if got := h.state(catalog.TabTroubleLocations); got != StateComplete {
		t.Fatalf("filled tab = %s, want complete", got)
	}

	if got := h.state(catalog.TabLocationHierarchy); got != StateIncomplete {
		t.Fatalf("hierarchy = %s, want incomplete", got)
	}
	h.apply(func(tx domain.Transaction) error {
		return tx.SetFieldValue(catalog.FieldLevelLabels, domain.Value{"Company", "Unit"})
	})
	if got := h.state(catalog.TabLocationHierarchy); got != StateInvalid {
		t.Fatalf("two of four labels = %s, want invalid", got)
	}
	h.apply(func(tx domain.Transaction) error {
		return tx.SetFieldValue(catalog.FieldLevelLabels, catalog.DefaultLevelLabels)
	})
	if got := h.state(catalog.TabLocationHierarchy); got != StateIncomplete {
		t.Fatalf("labels only = %s, want incomplete", got)
	}
	h.apply(func(tx domain.Transaction) error {
		return tx.SetFieldValue(catalog.FieldDefaultTimeZone, domain.Scalar("Mars"))
	})
	if got := h.state(catalog.TabLocationHierarchy); got != StateInvalid {
		t.Fatalf("bad time zone = %s, want invalid", got)
	}
}

func TestDiagnosticsFollowDeclarationOrder(t *testing.T) {
	h := newHarness(t)
	snapshot := domain.Snapshot{
		Entities: []domain.Entity{
			{Base: domain.Base{ID: "reason", Seq: 1}, Kind: domain.KindCalloutReason, DisplayName: "Gas Leak"},
			{Base: domain.Base{ID: "orphan", Seq: 2}, Kind: domain.KindLocation, DisplayName: "Orphan", Level: 4, ParentID: ptr("gone")},
			{Base: domain.Base{ID: "normal", Seq: 3}, Kind: domain.KindCalloutType, DisplayName: "Normal"},
			{Base: domain.Base{ID: "twin", Seq: 4}, Kind: domain.KindCalloutType, DisplayName: " normal"},
		},
		Assignments: []domain.Assignment{
			{LocationID: "ghost", TargetKind: domain.KindCalloutType, TargetID: "normal"},
			{LocationID: "orphan", TargetKind: domain.KindCalloutReason, TargetID: "reason"},
		},
		Fields: []domain.FieldEntry{
			{Tab: catalog.TabLocationHierarchy, Field: catalog.FieldDefaultTimeZone.Field, Value: domain.Scalar("XX")},
		},
	}
	if err := h.store.ImportState(snapshot); err != nil {
		t.Fatalf("import: %v", err)
	}
	diags := h.engine.Diagnostics(h.evaluate(FullScope(), nil))
	if len(diags) < 6 {
		t.Fatalf("expected diagnostics across several tabs, got %+v", diags)
	}
	c := h.engine.Catalog()
	layout := c.Layout()
	key := func(d domain.Diagnostic) [3]int {
		return [3]int{layout.TabIndex(d.Tab), layout.FieldIndex(d.Ref()), c.Position(d.Rule)}
	}
	for i := 1; i < len(diags); i++ {
		a, b := key(diags[i-1]), key(diags[i])
		if a[0] > b[0] || (a[0] == b[0] && (a[1] > b[1] || (a[1] == b[1] && a[2] > b[2]))) {
			t.Fatalf("diagnostic %d (%s) sorts before %d (%s)", i, diags[i].Rule, i-1, diags[i-1].Rule)
		}
	}
	if diags[0].Tab != catalog.TabLocationHierarchy || diags[0].Rule != "location-hierarchy/default-time-zone.choice" {
		t.Fatalf("first diagnostic = %+v", diags[0])
	}
	counts := Count(diags)
	if counts[domain.SeverityError] == 0 || counts[domain.SeverityWarning] == 0 {
		t.Fatalf("expected errors and warnings, got %v", counts)
	}
	status, _ := h.completion().Tab(catalog.TabCalloutTypesMatrix)
	if status.State != StateInvalid || status.Errors == 0 {
		t.Fatalf("matrix tab = %+v, want invalid", status)
	}
}

func TestScopeFromChangesDeduplicates(t *testing.T) {
	node := domain.EntityNode(domain.KindLocation)
	scope := ScopeFromChanges([]domain.Change{{Node: node}, {Node: node}, {Node: domain.MatrixNode(domain.KindCalloutType)}})
	if scope.Full || len(scope.Nodes) != 2 {
		t.Fatalf("unexpected scope %+v", scope)
	}
	if !ScopeFromChanges(nil).Empty() || FullScope().Empty() {
		t.Fatalf("unexpected Empty results")
	}
}
