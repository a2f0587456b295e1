package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports a structurally malformed mutation such as a name
// that breaks the display name rule. Field-level rule failures on admitted
// data are reported as diagnostics instead.
type ValidationError struct {
	Kind   EntityKind
	Field  string
	Value  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%s %q %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s %s %q %s", e.Kind.Label(), e.Field, e.Value, e.Reason)
}

// DuplicateCodeError is returned when a level-4 location code is already in use.
type DuplicateCodeError struct {
	Code         string
	ExistingID   string
	ExistingName string
}

func (e DuplicateCodeError) Error() string {
	return fmt.Sprintf("location code %q already used by %q (%s)", e.Code, e.ExistingName, e.ExistingID)
}

// NotFoundError is returned when a referenced entity id does not resolve.
type NotFoundError struct {
	Kind EntityKind
	ID   string
}

func (e NotFoundError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("entity %s not found", e.ID)
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Reference names one record that points at another.
type Reference struct {
	Kind     EntityKind `json:"kind"`
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Relation string     `json:"relation"`
}

// Reference relations.
const (
	RelationChild      = "child"
	RelationDescendant = "descendant"
	RelationAssignment = "assignment"
)

// ReferentialIntegrityViolation is returned when a delete or an update would
// orphan references. Nothing is cascaded; Referrers lists what blocks it.
type ReferentialIntegrityViolation struct {
	Kind      EntityKind
	ID        string
	Name      string
	Action    Action
	Referrers []Reference
}

func (e ReferentialIntegrityViolation) Error() string {
	names := make([]string, 0, len(e.Referrers))
	for _, ref := range e.Referrers {
		names = append(names, fmt.Sprintf("%s %q (%s)", ref.Kind, ref.Name, ref.Relation))
	}
	return fmt.Sprintf("cannot %s %s %q: still referenced by %s", e.Action, e.Kind, e.Name, strings.Join(names, ", "))
}

// CyclicDependencyError reports tabs whose rules depend on each other in a cycle.
type CyclicDependencyError struct {
	Tabs []TabID
}

func (e CyclicDependencyError) Error() string {
	names := make([]string, len(e.Tabs))
	for i, tab := range e.Tabs {
		names[i] = string(tab)
	}
	return "rule catalog has cyclic tab dependencies: " + strings.Join(names, ", ")
}
