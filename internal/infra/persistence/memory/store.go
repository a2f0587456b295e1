// Package memory provides the in-memory transactional registry backing every
// document. The SQLite and Postgres stores wrap it and persist snapshots from
// a commit hook.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sigcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

// DefaultDocumentID names the document when none is configured.
const DefaultDocumentID = "default"

// CommitHook runs after a transaction's fn succeeded and before its state is
// published. A hook error aborts the commit and leaves the store unchanged.
type CommitHook func(ctx context.Context, snapshot domain.Snapshot, changes []domain.Change) error

// Option configures a Store.
type Option func(*Store)

// WithDocumentID sets the id recorded in exported snapshots.
func WithDocumentID(id string) Option {
	return func(s *Store) {
		if id != "" {
			s.state.documentID = id
		}
	}
}

// WithIDGenerator replaces the uuid generator, mainly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.idFn = fn
		}
	}
}

// WithClock replaces the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// WithCommitHook registers a hook run on every successful transaction.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) {
		if hook != nil {
			s.hooks = append(s.hooks, hook)
		}
	}
}

// Store provides an in-memory transactional store for one workbook document.
type Store struct {
	mu     sync.RWMutex
	layout domain.Layout
	state  memoryState
	idFn   func() string
	nowFn  func() time.Time
	hooks  []CommitHook
}

// NewStore constructs an empty store for a document shaped by layout.
func NewStore(layout domain.Layout, opts ...Option) *Store {
	s := &Store{
		layout: layout,
		state:  newMemoryState(DefaultDocumentID),
		idFn:   uuid.NewString,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCommitHook registers a hook after construction. Wrapping stores use it
// to persist snapshots.
func (s *Store) AddCommitHook(hook CommitHook) {
	if hook == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// DocumentID returns the id of the document held by the store.
func (s *Store) DocumentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.documentID
}

// Layout returns the workbook layout the store validates field writes against.
func (s *Store) Layout() domain.Layout { return s.layout }

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time { return s.nowFn }

// ExportState clones the committed state into a snapshot.
func (s *Store) ExportState() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.snapshot(s.layout)
}

// ImportState replaces the store state after structural checks. Commit hooks
// are not run.
func (s *Store) ImportState(snapshot domain.Snapshot) error {
	if err := domain.CheckSnapshot(s.layout, snapshot); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot, s.state.documentID)
	return nil
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The copy is published only when fn and every commit hook succeed.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) ([]domain.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return nil, err
	}
	if len(tx.changes) > 0 && len(s.hooks) > 0 {
		snapshot := tx.state.snapshot(s.layout)
		for _, hook := range s.hooks {
			if err := hook(ctx, snapshot, tx.Changes()); err != nil {
				return nil, fmt.Errorf("commit document %s: %w", s.state.documentID, err)
			}
		}
	}
	s.state = tx.state
	return tx.Changes(), nil
}

// View executes fn against a read-only copy of the committed state.
func (s *Store) View(_ context.Context, fn func(domain.RuleView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newStateView(s.layout, &snapshot))
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []domain.Change
	now     time.Time
}

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// View returns a read-only view over the transactional state.
func (tx *transaction) View() domain.RuleView {
	return newStateView(tx.store.layout, &tx.state)
}

// Changes returns the mutations recorded so far.
func (tx *transaction) Changes() []domain.Change {
	return append([]domain.Change(nil), tx.changes...)
}

// CreateEntity admits a new registry entity, assigning id and sequence.
func (tx *transaction) CreateEntity(e domain.Entity) (domain.Entity, error) {
	e = e.Clone()
	if e.ID == "" {
		e.ID = tx.store.idFn()
	}
	if existing, exists := tx.state.entities[e.ID]; exists {
		return domain.Entity{}, domain.ValidationError{Kind: e.Kind, Field: "id", Value: e.ID, Reason: "is already used by " + existing.Describe()}
	}
	normalize(&e)
	if err := domain.CheckAdmission(tx.View(), e, ""); err != nil {
		return domain.Entity{}, err
	}
	tx.state.nextSeq++
	e.Seq = tx.state.nextSeq
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.entities[e.ID] = e.Clone()
	tx.recordChange(domain.Change{Node: domain.EntityNode(e.Kind), Action: domain.ActionCreate, After: e.Clone()})
	return e.Clone(), nil
}

// UpdateEntity mutates an entity through mutator and re-admits it.
func (tx *transaction) UpdateEntity(id string, mutator func(*domain.Entity) error) (domain.Entity, error) {
	current, ok := tx.state.entities[id]
	if !ok {
		return domain.Entity{}, domain.NotFoundError{ID: id}
	}
	before := current.Clone()
	updated := current.Clone()
	if err := mutator(&updated); err != nil {
		return domain.Entity{}, err
	}
	updated.ID = id
	updated.Seq = before.Seq
	updated.CreatedAt = before.CreatedAt
	normalize(&updated)
	view := tx.View()
	if err := domain.CheckUpdate(view, before, updated); err != nil {
		return domain.Entity{}, err
	}
	if err := domain.CheckAdmission(view, updated, id); err != nil {
		return domain.Entity{}, err
	}
	updated.UpdatedAt = tx.now
	tx.state.entities[id] = updated.Clone()
	tx.recordChange(domain.Change{Node: domain.EntityNode(updated.Kind), Action: domain.ActionUpdate, Before: before, After: updated.Clone()})
	return updated.Clone(), nil
}

// DeleteEntity removes an unreferenced entity. Referenced entities are never
// cascaded; the error lists every referrer.
func (tx *transaction) DeleteEntity(id string) error {
	current, ok := tx.state.entities[id]
	if !ok {
		return domain.NotFoundError{ID: id}
	}
	if refs := domain.Referrers(tx.View(), current); len(refs) > 0 {
		return domain.ReferentialIntegrityViolation{Kind: current.Kind, ID: id, Name: current.DisplayName, Action: domain.ActionDelete, Referrers: refs}
	}
	delete(tx.state.entities, id)
	tx.recordChange(domain.Change{Node: domain.EntityNode(current.Kind), Action: domain.ActionDelete, Before: current.Clone()})
	return nil
}

// SetFieldValue stores an entered field value. Derived fields are rejected.
func (tx *transaction) SetFieldValue(ref domain.FieldRef, value domain.Value) error {
	field, ok := tx.store.layout.Field(ref)
	if !ok {
		return domain.ValidationError{Field: ref.String(), Value: strings.Join(value, ", "), Reason: "is not a workbook field"}
	}
	if field.Source.Derived() {
		return domain.ValidationError{Field: ref.String(), Value: strings.Join(value, ", "), Reason: "is derived from the registry and cannot be set directly"}
	}
	before, had := tx.state.fields[ref]
	action := domain.ActionUpdate
	switch {
	case len(value) == 0 && !had:
		return nil
	case len(value) == 0:
		delete(tx.state.fields, ref)
		action = domain.ActionDelete
	default:
		if !had {
			action = domain.ActionCreate
		}
		tx.state.fields[ref] = value.Clone()
	}
	tx.recordChange(domain.Change{Node: domain.FieldNode(ref), Action: action, Before: before.Clone(), After: value.Clone()})
	return nil
}

// SetAssignment marks or clears a matrix assignment. Marking requires both
// ids to resolve to entities of the right kind; clearing an absent pair is a
// no-op.
func (tx *transaction) SetAssignment(a domain.Assignment, present bool) error {
	if !domain.MatrixKind(a.TargetKind) {
		return domain.ValidationError{Kind: a.TargetKind, Field: "target_kind", Value: string(a.TargetKind), Reason: "cannot be assigned to a location"}
	}
	key := a.Key()
	_, exists := tx.state.assignments[key]
	if !present {
		if !exists {
			return nil
		}
		delete(tx.state.assignments, key)
		tx.recordChange(domain.Change{Node: domain.MatrixNode(a.TargetKind), Action: domain.ActionDelete, Before: a})
		return nil
	}
	loc, ok := tx.state.entities[a.LocationID]
	if !ok {
		return domain.NotFoundError{Kind: domain.KindLocation, ID: a.LocationID}
	}
	if loc.Kind != domain.KindLocation {
		return domain.ValidationError{Kind: loc.Kind, Field: "location_id", Value: a.LocationID, Reason: "does not identify a location"}
	}
	target, ok := tx.state.entities[a.TargetID]
	if !ok {
		return domain.NotFoundError{Kind: a.TargetKind, ID: a.TargetID}
	}
	if target.Kind != a.TargetKind {
		return domain.ValidationError{Kind: target.Kind, Field: "target_id", Value: a.TargetID, Reason: "does not identify a " + a.TargetKind.Label()}
	}
	if exists {
		return nil
	}
	tx.state.assignments[key] = a
	tx.recordChange(domain.Change{Node: domain.MatrixNode(a.TargetKind), Action: domain.ActionCreate, After: a})
	return nil
}

// normalize trims the stored forms of codes, time zones and external ids.
func normalize(e *domain.Entity) {
	e.Code = strings.TrimSpace(e.Code)
	e.TimeZone = strings.ToUpper(strings.TrimSpace(e.TimeZone))
	for i, id := range e.ExternalIDs {
		e.ExternalIDs[i] = strings.TrimSpace(id)
	}
	if e.ParentID != nil && strings.TrimSpace(*e.ParentID) == "" {
		e.ParentID = nil
	}
}

// Read helpers ---------------------------------------------------------------

// GetEntity retrieves an entity from committed state.
func (s *Store) GetEntity(id string) (domain.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newStateView(s.layout, &s.state).FindEntity(id)
}

// ListEntities returns committed entities of kind in listing order.
func (s *Store) ListEntities(kind domain.EntityKind) []domain.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newStateView(s.layout, &s.state).ListEntities(kind)
}
