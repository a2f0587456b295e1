package domain

import "fmt"

// CheckSnapshot verifies that a snapshot can be loaded against layout: entity
// ids are present and unique, kinds are known, assignments target a matrix
// kind and every stored field value belongs to an input field of the layout.
// Business rule violations (dangling parents, duplicate codes, ...) are not
// structural and are left for validation to report.
func CheckSnapshot(layout Layout, s Snapshot) error {
	ids := make(map[string]struct{}, len(s.Entities))
	for i, e := range s.Entities {
		if !e.Kind.Valid() {
			return ValidationError{Kind: e.Kind, Field: "kind", Value: string(e.Kind), Reason: "is not a supported entity kind"}
		}
		if e.ID == "" {
			return ValidationError{Kind: e.Kind, Field: "id", Reason: fmt.Sprintf("is missing on entity #%d", i+1)}
		}
		if _, dup := ids[e.ID]; dup {
			return ValidationError{Kind: e.Kind, Field: "id", Value: e.ID, Reason: "is used by more than one entity"}
		}
		ids[e.ID] = struct{}{}
	}
	keys := make(map[string]struct{}, len(s.Assignments))
	for _, a := range s.Assignments {
		if !MatrixKind(a.TargetKind) {
			return ValidationError{Kind: a.TargetKind, Field: "target_kind", Value: string(a.TargetKind), Reason: "cannot be assigned to a location"}
		}
		if a.LocationID == "" || a.TargetID == "" {
			return ValidationError{Kind: a.TargetKind, Field: "assignment", Value: a.Key(), Reason: "must name both a location and a target"}
		}
		if _, dup := keys[a.Key()]; dup {
			return ValidationError{Kind: a.TargetKind, Field: "assignment", Value: a.Key(), Reason: "is listed more than once"}
		}
		keys[a.Key()] = struct{}{}
	}
	fields := make(map[FieldRef]struct{}, len(s.Fields))
	for _, entry := range s.Fields {
		ref := Ref(entry.Tab, entry.Field)
		field, ok := layout.Field(ref)
		if !ok {
			return ValidationError{Field: ref.String(), Reason: "is not a workbook field"}
		}
		if field.Source.Derived() {
			return ValidationError{Field: ref.String(), Reason: "is derived from the registry and cannot be stored"}
		}
		if _, dup := fields[ref]; dup {
			return ValidationError{Field: ref.String(), Reason: "is listed more than once"}
		}
		fields[ref] = struct{}{}
	}
	return nil
}
