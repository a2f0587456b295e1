package domain

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities. Only errors make a tab invalid.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ViolationKind groups violations by the rule family that produced them.
type ViolationKind string

// Violation kinds, one per built-in rule family.
const (
	ViolationFormat     ViolationKind = "format"
	ViolationUniqueness ViolationKind = "uniqueness"
	ViolationReference  ViolationKind = "reference"
	ViolationHierarchy  ViolationKind = "hierarchy"
	ViolationPairing    ViolationKind = "pairing"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Kind     ViolationKind
	Severity Severity
	Message  string
	EntityID string
}

// Diagnostic is a violation located on a tab field. Diagnostics are a
// projection of the current document state and are never stored on their own.
type Diagnostic struct {
	Tab      TabID         `json:"tab"`
	Field    FieldID       `json:"field"`
	Rule     string        `json:"rule"`
	Severity Severity      `json:"severity"`
	Kind     ViolationKind `json:"kind"`
	Message  string        `json:"message"`
	EntityID string        `json:"entity_id,omitempty"`
}

// Ref returns the field the diagnostic is attached to.
func (d Diagnostic) Ref() FieldRef {
	return Ref(d.Tab, d.Field)
}

// NodeKind identifies the type of a dependency graph node.
type NodeKind string

// Dependency node kinds.
const (
	NodeField  NodeKind = "field"
	NodeEntity NodeKind = "entity"
	NodeMatrix NodeKind = "matrix"
)

// Node is something a rule can read: a field, the registry entries of one
// kind, or the matrix assignments targeting one kind.
type Node struct {
	Kind   NodeKind
	Entity EntityKind
	Field  FieldRef
}

// FieldNode returns the node for a field.
func FieldNode(ref FieldRef) Node { return Node{Kind: NodeField, Field: ref} }

// EntityNode returns the node for every registry entity of kind.
func EntityNode(kind EntityKind) Node { return Node{Kind: NodeEntity, Entity: kind} }

// MatrixNode returns the node for every assignment targeting kind.
func MatrixNode(kind EntityKind) Node { return Node{Kind: NodeMatrix, Entity: kind} }

func (n Node) String() string {
	switch n.Kind {
	case NodeField:
		return "field:" + n.Field.String()
	case NodeEntity, NodeMatrix:
		return string(n.Kind) + ":" + string(n.Entity)
	}
	return string(n.Kind)
}

// RuleView provides read-only access to a document snapshot for rule evaluation.
type RuleView interface {
	Layout() Layout
	FindEntity(id string) (Entity, bool)
	ListEntities(kind EntityKind) []Entity
	ListChildren(parentID string) []Entity
	ListAssignments(kind EntityKind) []Assignment
	FieldValue(ref FieldRef) Value
}

// Rule is a pure check bound to one field. Dependencies declares every node
// the rule reads besides its own field so the engine can decide what to
// re-evaluate after a mutation.
type Rule interface {
	ID() string
	Field() FieldRef
	Dependencies() []Node
	Evaluate(view RuleView) []Violation
}
