package domain

import "strings"

// TabID identifies a workbook tab.
type TabID string

// FieldID identifies a field within a tab.
type FieldID string

// FieldRef addresses one field of one tab.
type FieldRef struct {
	Tab   TabID   `json:"tab"`
	Field FieldID `json:"field"`
}

// Ref builds a FieldRef.
func Ref(tab TabID, field FieldID) FieldRef {
	return FieldRef{Tab: tab, Field: field}
}

func (r FieldRef) String() string {
	return string(r.Tab) + "/" + string(r.Field)
}

// FieldKind enumerates how a field value is interpreted.
type FieldKind string

// Field kinds.
const (
	FieldText      FieldKind = "text"
	FieldCode      FieldKind = "code"
	FieldFlag      FieldKind = "flag"
	FieldChoice    FieldKind = "choice"
	FieldReference FieldKind = "reference"
)

// SourceKind describes where a field value comes from.
type SourceKind string

// Field value sources.
const (
	// SourceInput values are entered through SetFieldValue.
	SourceInput SourceKind = ""
	// SourceEntity values are the ids of every registry entity of a kind.
	SourceEntity SourceKind = "entity"
	// SourceMatrix values are the keys of every matrix assignment of a target kind.
	SourceMatrix SourceKind = "matrix"
)

// Source binds a reference field to the registry or the assignment matrix.
type Source struct {
	Kind   SourceKind `json:"kind,omitempty"`
	Entity EntityKind `json:"entity,omitempty"`
}

// Derived reports whether the field value is computed rather than entered.
func (s Source) Derived() bool {
	return s.Kind != SourceInput
}

// Condition makes a field requirement depend on another field of the same tab.
type Condition struct {
	Field  FieldID `json:"field"`
	Equals string  `json:"equals"`
}

// Field is one cell group of a tab. Values are ordered sequences; Min and Max
// declare the cardinality (Max 0 means unbounded).
type Field struct {
	ID           FieldID    `json:"id"`
	Title        string     `json:"title"`
	Kind         FieldKind  `json:"kind"`
	Required     bool       `json:"required"`
	RequiredWhen *Condition `json:"required_when,omitempty"`
	Min          int        `json:"min,omitempty"`
	Max          int        `json:"max,omitempty"`
	Choices      []string   `json:"choices,omitempty"`
	Source       Source     `json:"source,omitempty"`
}

// HasChoice reports whether value is one of the declared choices.
func (f Field) HasChoice(value string) bool {
	for _, choice := range f.Choices {
		if strings.EqualFold(choice, value) {
			return true
		}
	}
	return false
}

// Tab is an ordered collection of fields. Owns lists the entity kinds whose
// definitions are entered on this tab.
type Tab struct {
	ID     TabID        `json:"id"`
	Title  string       `json:"title"`
	Fields []Field      `json:"fields"`
	Owns   []EntityKind `json:"owns,omitempty"`
}

// Field returns the field with the given id.
func (t Tab) Field(id FieldID) (Field, bool) {
	for _, f := range t.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Layout is the ordered set of workbook tabs.
type Layout struct {
	Tabs []Tab `json:"tabs"`
}

// Tab returns the tab with the given id.
func (l Layout) Tab(id TabID) (Tab, bool) {
	for _, t := range l.Tabs {
		if t.ID == id {
			return t, true
		}
	}
	return Tab{}, false
}

// Field resolves a field reference.
func (l Layout) Field(ref FieldRef) (Field, bool) {
	tab, ok := l.Tab(ref.Tab)
	if !ok {
		return Field{}, false
	}
	return tab.Field(ref.Field)
}

// TabIndex returns the declaration position of a tab, or -1.
func (l Layout) TabIndex(id TabID) int {
	for i, t := range l.Tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// FieldIndex returns the declaration position of a field within its tab, or -1.
func (l Layout) FieldIndex(ref FieldRef) int {
	tab, ok := l.Tab(ref.Tab)
	if !ok {
		return -1
	}
	for i, f := range tab.Fields {
		if f.ID == ref.Field {
			return i
		}
	}
	return -1
}

// Owner returns the tab on which entities of kind are defined.
func (l Layout) Owner(kind EntityKind) (TabID, bool) {
	for _, t := range l.Tabs {
		for _, owned := range t.Owns {
			if owned == kind {
				return t.ID, true
			}
		}
	}
	return "", false
}

// MatrixOwner returns the tab carrying the assignment matrix for a target kind.
func (l Layout) MatrixOwner(kind EntityKind) (TabID, bool) {
	for _, t := range l.Tabs {
		for _, f := range t.Fields {
			if f.Source.Kind == SourceMatrix && f.Source.Entity == kind {
				return t.ID, true
			}
		}
	}
	return "", false
}

// Refs lists every field reference in declaration order.
func (l Layout) Refs() []FieldRef {
	var refs []FieldRef
	for _, t := range l.Tabs {
		for _, f := range t.Fields {
			refs = append(refs, Ref(t.ID, f.ID))
		}
	}
	return refs
}

// Value is an ordered field value. Scalar fields hold at most one item.
type Value []string

// Scalar builds a single-item value.
func Scalar(v string) Value {
	return Value{v}
}

// Empty reports whether the value has no non-blank item.
func (v Value) Empty() bool {
	return len(v.Items()) == 0
}

// Items returns the non-blank items with surrounding whitespace removed.
func (v Value) Items() []string {
	out := make([]string, 0, len(v))
	for _, item := range v {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// First returns the first non-blank item.
func (v Value) First() string {
	items := v.Items()
	if len(items) == 0 {
		return ""
	}
	return items[0]
}

// Clone copies the value.
func (v Value) Clone() Value {
	if v == nil {
		return nil
	}
	return append(Value(nil), v...)
}
