package domain

import "context"

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured in the change set.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change describes a mutation applied within a transaction. Node is the
// dependency node the mutation touched.
type Change struct {
	Node   Node
	Action Action
	Before any
	After  any
}

// Transaction exposes the registry and workbook mutations that a persistence
// implementation must support within an atomic scope.
type Transaction interface {
	View() RuleView
	CreateEntity(Entity) (Entity, error)
	UpdateEntity(id string, mutator func(*Entity) error) (Entity, error)
	DeleteEntity(id string) error
	SetFieldValue(ref FieldRef, value Value) error
	SetAssignment(assignment Assignment, present bool) error
	Changes() []Change
}

// FieldEntry is one entered field value in a snapshot.
type FieldEntry struct {
	Tab   TabID   `json:"tab"`
	Field FieldID `json:"field"`
	Value Value   `json:"value"`
}

// Snapshot is a fully materialised document: every entity, assignment and
// entered field value. Slices are in listing order so equal documents
// serialise identically.
type Snapshot struct {
	DocumentID  string       `json:"document_id"`
	NextSeq     int64        `json:"next_seq"`
	Entities    []Entity     `json:"entities"`
	Assignments []Assignment `json:"assignments"`
	Fields      []FieldEntry `json:"fields"`
}

// PersistentStore is the abstraction over document backends. Commit runs fn
// against a private copy of the state and publishes it only when fn succeeds.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) ([]Change, error)
	View(ctx context.Context, fn func(RuleView) error) error
	ExportState() Snapshot
	ImportState(Snapshot) error
}
