// Package domain defines the workbook entities, tab and field definitions,
// diagnostics, and rule evaluation primitives used by sigcore.
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// EntityKind identifies the type of first-class record held by the registry.
type EntityKind string

// Supported entity kinds used in Change records, dependency nodes and persistence buckets.
const (
	// KindLocation identifies a node of the four-level location hierarchy.
	KindLocation EntityKind = "location"
	// KindCalloutType identifies an operational callout mode (Normal, All Hands on Deck, ...).
	KindCalloutType EntityKind = "callout_type"
	// KindCalloutReason identifies a cause code offered when a callout is started.
	KindCalloutReason EntityKind = "callout_reason"
	// KindJobClassification identifies an employee job title.
	KindJobClassification EntityKind = "job_classification"
)

var entityKinds = []EntityKind{KindLocation, KindCalloutType, KindCalloutReason, KindJobClassification}

// EntityKinds returns every supported kind in declaration order.
func EntityKinds() []EntityKind {
	return append([]EntityKind(nil), entityKinds...)
}

// Valid reports whether k is a supported entity kind.
func (k EntityKind) Valid() bool {
	for _, kind := range entityKinds {
		if kind == k {
			return true
		}
	}
	return false
}

// Label returns the workbook wording for the kind.
func (k EntityKind) Label() string {
	switch k {
	case KindLocation:
		return "Location"
	case KindCalloutType:
		return "Callout Type"
	case KindCalloutReason:
		return "Callout Reason"
	case KindJobClassification:
		return "Job Classification"
	}
	return string(k)
}

// Location hierarchy bounds.
const (
	MinLocationLevel = 1
	MaxLocationLevel = 4
)

// Metadata keys understood by the built-in rules.
const (
	MetaPronunciation = "pronunciation"
	MetaRecording     = "recording"
	MetaClassType     = "class_type"
	MetaEnabled       = "enabled"
	MetaDefault       = "default"
)

// Job classification class types.
const (
	ClassJourneyman = "journeyman"
	ClassApprentice = "apprentice"
)

// External id cardinalities per kind.
const (
	MaxJobClassificationIDs = 5
	MaxCalloutReasonIDs     = 1
)

// Base contains common fields for all registry records.
type Base struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entity is a registry record. Kind-specific attributes live in the typed
// fields (Level, Code, TimeZone, ExternalIDs) or in Metadata.
type Entity struct {
	Base
	Kind        EntityKind        `json:"kind"`
	DisplayName string            `json:"display_name"`
	ParentID    *string           `json:"parent_id,omitempty"`
	Level       int               `json:"level,omitempty"`
	Code        string            `json:"code,omitempty"`
	TimeZone    string            `json:"time_zone,omitempty"`
	ExternalIDs []string          `json:"external_ids,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Parent returns the parent id or an empty string for roots.
func (e Entity) Parent() string {
	if e.ParentID == nil {
		return ""
	}
	return *e.ParentID
}

// Meta returns a metadata value or an empty string.
func (e Entity) Meta(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}

// Flag interprets a metadata value as a boolean marker.
func (e Entity) Flag(key string) bool {
	return ParseFlag(e.Meta(key))
}

// IsLocation reports whether the entity is a location at the given level.
func (e Entity) IsLocation(level int) bool {
	return e.Kind == KindLocation && e.Level == level
}

// Describe renders the entity for messages, e.g. `Location "Operations" (level 2)`.
func (e Entity) Describe() string {
	if e.Kind == KindLocation {
		return fmt.Sprintf("%s %q (level %d)", e.Kind.Label(), e.DisplayName, e.Level)
	}
	return fmt.Sprintf("%s %q", e.Kind.Label(), e.DisplayName)
}

// Clone returns a deep copy of the entity.
func (e Entity) Clone() Entity {
	cp := e
	if e.ParentID != nil {
		parent := *e.ParentID
		cp.ParentID = &parent
	}
	cp.ExternalIDs = append([]string(nil), e.ExternalIDs...)
	if e.Metadata != nil {
		cp.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}

// SortEntities orders entities by creation sequence, then id.
func SortEntities(entities []Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Seq != entities[j].Seq {
			return entities[i].Seq < entities[j].Seq
		}
		return entities[i].ID < entities[j].ID
	})
}

// ParseFlag interprets workbook boolean markers ("true", "yes", "x").
func ParseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "x", "1":
		return true
	}
	return false
}

// Assignment marks a callout type or reason as enabled at a location.
type Assignment struct {
	LocationID string     `json:"location_id"`
	TargetKind EntityKind `json:"target_kind"`
	TargetID   string     `json:"target_id"`
}

// Key returns a stable identity for the assignment.
func (a Assignment) Key() string {
	return string(a.TargetKind) + ":" + a.LocationID + ":" + a.TargetID
}

// MatrixKind reports whether kind can be the target of a matrix assignment.
func MatrixKind(kind EntityKind) bool {
	return kind == KindCalloutType || kind == KindCalloutReason
}

// SortAssignments orders assignments by their key.
func SortAssignments(assignments []Assignment) {
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].Key() < assignments[j].Key()
	})
}
