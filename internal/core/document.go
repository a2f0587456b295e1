// Package core hosts the document service: one workbook document, its
// registry and field values behind a transactional store, kept validated and
// scored for completion after every mutation.
package core

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"sigcore/internal/catalog"
	"sigcore/internal/engine"
	"sigcore/internal/help"
	"sigcore/internal/infra/persistence/memory"
	"sigcore/pkg/domain"
)

// Outcome is the document state after a committed mutation.
type Outcome struct {
	Diagnostics []domain.Diagnostic `json:"diagnostics"`
	Completion  engine.Completion   `json:"completion"`
}

// Document serialises mutations and queries on one workbook document.
// Diagnostics and completion are recomputed inside every mutation's
// transaction and published together with the new state.
type Document struct {
	mu         sync.Mutex
	id         string
	store      domain.PersistentStore
	engine     *engine.Engine
	help       *help.Resolver
	results    engine.Results
	diags      []domain.Diagnostic
	completion engine.Completion
	opts       options
}

// NewDocument wraps store and runs a full validation of its current state.
func NewDocument(ctx context.Context, store domain.PersistentStore, opts ...Option) (*Document, error) {
	if store == nil {
		return nil, fmt.Errorf("document store is required")
	}
	o := buildOptions(opts)
	if o.catalog == nil {
		c, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("build rule catalog: %w", err)
		}
		o.catalog = c
	}
	if o.help == nil {
		content, err := help.Embedded()
		if err != nil {
			return nil, fmt.Errorf("load help content: %w", err)
		}
		o.help = content
	}
	d := &Document{
		id:     store.ExportState().DocumentID,
		store:  store,
		engine: engine.New(o.catalog),
		help:   help.NewResolver(o.catalog.Layout(), o.help),
		opts:   o,
	}
	if _, err := d.Revalidate(ctx); err != nil {
		return nil, err
	}
	o.logger.Info("document opened", zap.String("document", d.id), zap.Int("diagnostics", len(d.diags)))
	return d, nil
}

// NewMemoryDocument returns an empty in-memory document.
func NewMemoryDocument(ctx context.Context, id string, opts ...Option) (*Document, error) {
	layout := buildOptions(opts).layout()
	return NewDocument(ctx, memory.NewStore(layout, memory.WithDocumentID(id)), opts...)
}

// OpenDocument loads a snapshot into a new in-memory document. Structural
// problems (unknown kinds or fields, duplicate ids) fail the load; business
// rule violations are reported as diagnostics.
func OpenDocument(ctx context.Context, snapshot domain.Snapshot, opts ...Option) (*Document, error) {
	layout := buildOptions(opts).layout()
	store := memory.NewStore(layout, memory.WithDocumentID(snapshot.DocumentID))
	if err := store.ImportState(snapshot); err != nil {
		return nil, err
	}
	return NewDocument(ctx, store, opts...)
}

// ID returns the document id.
func (d *Document) ID() string { return d.id }

// Catalog returns the rule catalog the document validates against.
func (d *Document) Catalog() *catalog.Catalog { return d.engine.Catalog() }

type mutation struct {
	op       string
	target   string
	action   domain.Action
	entityID string
}

// mutate runs fn in a transaction, validates the resulting state for the
// changed nodes and publishes state, diagnostics and completion together.
func (d *Document) mutate(ctx context.Context, m *mutation, fn func(domain.Transaction) error) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := d.opts.clock.Now()
	ctx, span := d.opts.tracer.Start(ctx, m.op)
	var (
		results    engine.Results
		diags      []domain.Diagnostic
		completion engine.Completion
	)
	_, err := d.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := fn(tx); err != nil {
			return err
		}
		view := tx.View()
		results = d.engine.Evaluate(view, engine.ScopeFromChanges(tx.Changes()), d.results)
		diags = d.engine.Diagnostics(results)
		completion = d.engine.Completion(view, diags)
		return nil
	})
	duration := d.opts.clock.Now().Sub(start)
	span.End(err)
	d.opts.metrics.Observe(ctx, m.op, err == nil, duration)

	entry := AuditEntry{
		Document:  d.id,
		Operation: m.op,
		Target:    m.target,
		Action:    m.action,
		EntityID:  m.entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: d.opts.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		d.opts.audit.Record(ctx, entry)
		d.opts.logger.Info("mutation rejected",
			zap.String("document", d.id),
			zap.String("operation", m.op),
			zap.String("target", m.target),
			zap.Error(err))
		return Outcome{}, err
	}
	d.opts.audit.Record(ctx, entry)

	d.publish(results, diags, completion)
	d.opts.logger.Debug("mutation committed",
		zap.String("document", d.id),
		zap.String("operation", m.op),
		zap.String("entity_kind", m.target),
		zap.String("entity_id", m.entityID),
		zap.Int("diagnostics", len(diags)),
		zap.Duration("duration", duration))
	return d.outcome(), nil
}

// publish caches evaluation output. Callers hold d.mu.
func (d *Document) publish(results engine.Results, diags []domain.Diagnostic, completion engine.Completion) {
	d.results = results
	d.diags = diags
	d.completion = completion
	if obs, ok := d.opts.metrics.(DiagnosticsObserver); ok {
		obs.ObserveDiagnostics(d.id, engine.Count(diags))
	}
}

func (d *Document) outcome() Outcome {
	return Outcome{
		Diagnostics: append([]domain.Diagnostic(nil), d.diags...),
		Completion:  d.completion.Clone(),
	}
}

// CreateEntity admits a new registry entity.
func (d *Document) CreateEntity(ctx context.Context, e domain.Entity) (domain.Entity, Outcome, error) {
	var created domain.Entity
	m := &mutation{op: "create_entity", target: string(e.Kind), action: domain.ActionCreate, entityID: e.ID}
	out, err := d.mutate(ctx, m, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateEntity(e)
		m.entityID = created.ID
		return err
	})
	if err != nil {
		return domain.Entity{}, Outcome{}, err
	}
	return created, out, nil
}

// UpdateEntity applies mutator to an entity and re-admits it.
func (d *Document) UpdateEntity(ctx context.Context, id string, mutator func(*domain.Entity) error) (domain.Entity, Outcome, error) {
	var updated domain.Entity
	m := &mutation{op: "update_entity", action: domain.ActionUpdate, entityID: id}
	out, err := d.mutate(ctx, m, func(tx domain.Transaction) error {
		if current, ok := tx.View().FindEntity(id); ok {
			m.target = string(current.Kind)
		}
		var err error
		updated, err = tx.UpdateEntity(id, mutator)
		return err
	})
	if err != nil {
		return domain.Entity{}, Outcome{}, err
	}
	return updated, out, nil
}

// DeleteEntity removes an entity nothing references.
func (d *Document) DeleteEntity(ctx context.Context, id string) (Outcome, error) {
	m := &mutation{op: "delete_entity", action: domain.ActionDelete, entityID: id}
	return d.mutate(ctx, m, func(tx domain.Transaction) error {
		if current, ok := tx.View().FindEntity(id); ok {
			m.target = string(current.Kind)
		}
		return tx.DeleteEntity(id)
	})
}

// SetFieldValue stores an entered field value; an empty value clears it.
func (d *Document) SetFieldValue(ctx context.Context, tab domain.TabID, field domain.FieldID, value domain.Value) (Outcome, error) {
	ref := domain.Ref(tab, field)
	m := &mutation{op: "set_field_value", target: ref.String(), action: domain.ActionUpdate}
	return d.mutate(ctx, m, func(tx domain.Transaction) error {
		return tx.SetFieldValue(ref, value)
	})
}

// SetMatrixAssignment marks or clears the assignment of a callout type or
// reason to a location.
func (d *Document) SetMatrixAssignment(ctx context.Context, kind domain.EntityKind, locationID, targetID string, present bool) (Outcome, error) {
	a := domain.Assignment{LocationID: locationID, TargetKind: kind, TargetID: targetID}
	action := domain.ActionCreate
	if !present {
		action = domain.ActionDelete
	}
	m := &mutation{op: "set_matrix_assignment", target: string(kind), action: action, entityID: a.Key()}
	return d.mutate(ctx, m, func(tx domain.Transaction) error {
		return tx.SetAssignment(a, present)
	})
}

// Replace swaps the whole document state for snapshot and revalidates it.
func (d *Document) Replace(ctx context.Context, snapshot domain.Snapshot) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx, span := d.opts.tracer.Start(ctx, "replace")
	start := d.opts.clock.Now()
	var err error
	if snapshot.DocumentID != "" && snapshot.DocumentID != d.id {
		err = domain.ValidationError{Field: "document_id", Value: snapshot.DocumentID, Reason: "does not match document " + d.id}
	} else {
		err = d.store.ImportState(snapshot)
	}
	if err == nil {
		err = d.revalidateLocked(ctx)
	}
	span.End(err)
	d.opts.metrics.Observe(ctx, "replace", err == nil, d.opts.clock.Now().Sub(start))
	if err != nil {
		return Outcome{}, err
	}
	return d.outcome(), nil
}

// Revalidate evaluates every rule against the committed state.
func (d *Document) Revalidate(ctx context.Context) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.revalidateLocked(ctx); err != nil {
		return Outcome{}, err
	}
	return d.outcome(), nil
}

func (d *Document) revalidateLocked(ctx context.Context) error {
	return d.store.View(ctx, func(view domain.RuleView) error {
		results, diags := d.engine.Validate(view, engine.FullScope(), nil)
		d.publish(results, diags, d.engine.Completion(view, diags))
		return nil
	})
}

// Diagnostics evaluates scope against the committed state and returns the
// ordered diagnostics of the whole document. A delta scope re-runs only the
// rules affected by its nodes.
func (d *Document) Diagnostics(ctx context.Context, scope engine.Scope) ([]domain.Diagnostic, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.store.View(ctx, func(view domain.RuleView) error {
		results, diags := d.engine.Validate(view, scope, d.results)
		d.publish(results, diags, d.engine.Completion(view, diags))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Diagnostic(nil), d.diags...), nil
}

// Completion returns the status of one tab.
func (d *Document) Completion(tab domain.TabID) (engine.TabStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	status, ok := d.completion.Tab(tab)
	if !ok {
		return engine.TabStatus{}, domain.ValidationError{Field: "tab", Value: string(tab), Reason: "is not a workbook tab"}
	}
	status.MissingFields = append([]domain.FieldID(nil), status.MissingFields...)
	return status, nil
}

// CompletionAll returns the status of every tab.
func (d *Document) CompletionAll() engine.Completion {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completion.Clone()
}

// Readiness reports whether every tab is complete.
func (d *Document) Readiness() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completion.Ready
}

// Progress is the share of complete tabs.
func (d *Document) Progress() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completion.Progress
}

// Explain returns the help for a field with its current diagnostics.
func (d *Document) Explain(tab domain.TabID, field domain.FieldID) (help.Explanation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.help.Explain(tab, field, d.diags)
}

// ExplainTab returns the help for a tab with its current diagnostics.
func (d *Document) ExplainTab(tab domain.TabID) (help.TabExplanation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.help.ExplainTab(tab, d.diags)
}

// Describe renders a diagnostic for people.
func (d *Document) Describe(diag domain.Diagnostic) string {
	return d.help.Describe(diag)
}

// Glossary returns the workbook glossary.
func (d *Document) Glossary() []help.Term {
	return d.help.Glossary()
}

// Entity returns a registry entity.
func (d *Document) Entity(ctx context.Context, id string) (domain.Entity, error) {
	var (
		found domain.Entity
		ok    bool
	)
	err := d.view(ctx, func(view domain.RuleView) {
		found, ok = view.FindEntity(id)
	})
	if err != nil {
		return domain.Entity{}, err
	}
	if !ok {
		return domain.Entity{}, domain.NotFoundError{ID: id}
	}
	return found, nil
}

// ListEntities returns the entities of kind in listing order.
func (d *Document) ListEntities(ctx context.Context, kind domain.EntityKind) ([]domain.Entity, error) {
	var out []domain.Entity
	err := d.view(ctx, func(view domain.RuleView) {
		out = view.ListEntities(kind)
	})
	return out, err
}

// Children returns the direct children of a location in listing order.
func (d *Document) Children(ctx context.Context, parentID string) ([]domain.Entity, error) {
	var out []domain.Entity
	err := d.view(ctx, func(view domain.RuleView) {
		out = view.ListChildren(parentID)
	})
	return out, err
}

// FieldValue returns the current value of a field, derived or entered.
func (d *Document) FieldValue(ctx context.Context, tab domain.TabID, field domain.FieldID) (domain.Value, error) {
	var out domain.Value
	err := d.view(ctx, func(view domain.RuleView) {
		out = view.FieldValue(domain.Ref(tab, field))
	})
	return out, err
}

// Snapshot returns the fully materialised committed state.
func (d *Document) Snapshot() domain.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.ExportState()
}

func (d *Document) view(ctx context.Context, fn func(domain.RuleView)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.View(ctx, func(view domain.RuleView) error {
		fn(view)
		return nil
	})
}
