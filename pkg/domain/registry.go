package domain

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

var timeZones = []string{"ET", "CT", "MT", "AZ", "PT", "AKT", "HT"}

// TimeZones lists the workbook time zone abbreviations.
func TimeZones() []string {
	return append([]string(nil), timeZones...)
}

// ValidTimeZone reports whether tz is a known workbook time zone.
func ValidTimeZone(tz string) bool {
	for _, known := range timeZones {
		if strings.EqualFold(known, strings.TrimSpace(tz)) {
			return true
		}
	}
	return false
}

// FoldCode normalises a location code for uniqueness comparison: surrounding
// whitespace is ignored and comparison is case-insensitive. Casers are
// stateful, so each call gets its own.
func FoldCode(code string) string {
	return cases.Fold().String(strings.TrimSpace(code))
}

// CheckAdmission validates a candidate entity against the registry invariants
// before it is created or updated. selfID is the id of the entity being
// updated and is excluded from uniqueness checks.
func CheckAdmission(view RuleView, candidate Entity, selfID string) error {
	if !candidate.Kind.Valid() {
		return ValidationError{Kind: candidate.Kind, Field: "kind", Value: string(candidate.Kind), Reason: "is not a supported entity kind"}
	}
	if problem := NameProblem(candidate.DisplayName); problem != "" {
		return ValidationError{Kind: candidate.Kind, Field: "display_name", Value: candidate.DisplayName, Reason: problem}
	}
	if err := checkExternalIDs(candidate); err != nil {
		return err
	}
	if candidate.Kind != KindLocation {
		if candidate.ParentID != nil {
			return ValidationError{Kind: candidate.Kind, Field: "parent_id", Value: *candidate.ParentID, Reason: "is only allowed on locations"}
		}
		if candidate.Level != 0 {
			return ValidationError{Kind: candidate.Kind, Field: "level", Value: strconv.Itoa(candidate.Level), Reason: "is only allowed on locations"}
		}
		return nil
	}
	return checkLocation(view, candidate, selfID)
}

func checkLocation(view RuleView, loc Entity, selfID string) error {
	if loc.Level < MinLocationLevel || loc.Level > MaxLocationLevel {
		return ValidationError{Kind: KindLocation, Field: "level", Value: strconv.Itoa(loc.Level), Reason: "must be between 1 and 4"}
	}
	if loc.TimeZone != "" && !ValidTimeZone(loc.TimeZone) {
		return ValidationError{Kind: KindLocation, Field: "time_zone", Value: loc.TimeZone, Reason: "is not one of " + strings.Join(timeZones, ", ")}
	}
	parentID := loc.Parent()
	if loc.Level == MinLocationLevel {
		if parentID != "" {
			return ValidationError{Kind: KindLocation, Field: "parent_id", Value: parentID, Reason: "must be empty for a level 1 location"}
		}
	} else {
		if parentID == "" {
			return ValidationError{Kind: KindLocation, Field: "parent_id", Value: "", Reason: "is required for a level " + strconv.Itoa(loc.Level) + " location"}
		}
		parent, ok := view.FindEntity(parentID)
		if !ok || parent.Kind != KindLocation {
			return NotFoundError{Kind: KindLocation, ID: parentID}
		}
		if parent.Level != loc.Level-1 {
			return ValidationError{Kind: KindLocation, Field: "parent_id", Value: parentID, Reason: "must reference a level " + strconv.Itoa(loc.Level-1) + " location, not level " + strconv.Itoa(parent.Level)}
		}
	}
	if loc.Level != MaxLocationLevel {
		return nil
	}
	if strings.TrimSpace(loc.Code) == "" {
		return ValidationError{Kind: KindLocation, Field: "code", Value: loc.Code, Reason: "is required for a level 4 location"}
	}
	folded := FoldCode(loc.Code)
	for _, other := range view.ListEntities(KindLocation) {
		if other.ID == selfID || other.Level != MaxLocationLevel {
			continue
		}
		if FoldCode(other.Code) == folded {
			return DuplicateCodeError{Code: loc.Code, ExistingID: other.ID, ExistingName: other.DisplayName}
		}
	}
	return nil
}

func checkExternalIDs(e Entity) error {
	limit := 0
	switch e.Kind {
	case KindJobClassification:
		limit = MaxJobClassificationIDs
	case KindCalloutReason:
		limit = MaxCalloutReasonIDs
	}
	if len(e.ExternalIDs) > limit {
		return ValidationError{Kind: e.Kind, Field: "external_ids", Value: strings.Join(e.ExternalIDs, ","), Reason: "accepts at most " + strconv.Itoa(limit) + " ids"}
	}
	for _, id := range e.ExternalIDs {
		if strings.TrimSpace(id) == "" {
			return ValidationError{Kind: e.Kind, Field: "external_ids", Value: id, Reason: "must not contain blank ids"}
		}
		if e.Kind == KindCalloutReason {
			if _, err := strconv.ParseUint(strings.TrimSpace(id), 10, 32); err != nil {
				return ValidationError{Kind: e.Kind, Field: "external_ids", Value: id, Reason: "must be a numeric reason id"}
			}
		}
	}
	return nil
}

// CheckUpdate validates structural changes to an existing entity beyond the
// admission rules: the kind is immutable and a location that still has
// children cannot change level.
func CheckUpdate(view RuleView, before, after Entity) error {
	if before.Kind != after.Kind {
		return ValidationError{Kind: before.Kind, Field: "kind", Value: string(after.Kind), Reason: "cannot be changed"}
	}
	if before.Kind != KindLocation || before.Level == after.Level {
		return nil
	}
	children := view.ListChildren(before.ID)
	if len(children) == 0 {
		return nil
	}
	refs := make([]Reference, 0, len(children))
	for _, child := range children {
		refs = append(refs, Reference{Kind: child.Kind, ID: child.ID, Name: child.DisplayName, Relation: RelationChild})
	}
	return ReferentialIntegrityViolation{Kind: before.Kind, ID: before.ID, Name: before.DisplayName, Action: ActionUpdate, Referrers: refs}
}

// Referrers lists every record that references the entity: all descendants of
// a location (breadth first, listing order) and every matrix assignment that
// mentions it.
func Referrers(view RuleView, target Entity) []Reference {
	var refs []Reference
	if target.Kind == KindLocation {
		queue := []string{target.ID}
		seen := map[string]bool{target.ID: true}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			for _, child := range view.ListChildren(id) {
				if seen[child.ID] {
					continue
				}
				seen[child.ID] = true
				relation := RelationDescendant
				if id == target.ID {
					relation = RelationChild
				}
				refs = append(refs, Reference{Kind: child.Kind, ID: child.ID, Name: child.DisplayName, Relation: relation})
				queue = append(queue, child.ID)
			}
		}
	}
	for _, kind := range []EntityKind{KindCalloutType, KindCalloutReason} {
		for _, a := range view.ListAssignments(kind) {
			var other string
			switch {
			case a.LocationID == target.ID:
				other = a.TargetID
			case a.TargetID == target.ID:
				other = a.LocationID
			default:
				continue
			}
			name := other
			if e, ok := view.FindEntity(other); ok {
				name = e.DisplayName
			}
			refs = append(refs, Reference{Kind: a.TargetKind, ID: a.Key(), Name: name, Relation: RelationAssignment})
		}
	}
	return refs
}
