package catalog

import "sigcore/pkg/domain"

// Workbook tabs in declaration order.
const (
	TabLocationHierarchy    domain.TabID = "location-hierarchy"
	TabCalloutTypesMatrix   domain.TabID = "callout-types-matrix"
	TabCalloutReasonsMatrix domain.TabID = "callout-reasons-matrix"
	TabTroubleLocations     domain.TabID = "trouble-locations"
	TabJobClassifications   domain.TabID = "job-classifications"
	TabCalloutReasons       domain.TabID = "callout-reasons"
)

// Workbook fields.
var (
	FieldLevelLabels              = domain.Ref(TabLocationHierarchy, "level-labels")
	FieldDefaultTimeZone          = domain.Ref(TabLocationHierarchy, "default-time-zone")
	FieldLocations                = domain.Ref(TabLocationHierarchy, "locations")
	FieldCalloutTypes             = domain.Ref(TabCalloutTypesMatrix, "callout-types")
	FieldCalloutTypeAssignments   = domain.Ref(TabCalloutTypesMatrix, "assignments")
	FieldCalloutReasonAssignments = domain.Ref(TabCalloutReasonsMatrix, "assignments")
	FieldUsesTroubleLocations     = domain.Ref(TabTroubleLocations, "uses-trouble-locations")
	FieldTroubleLocationNames     = domain.Ref(TabTroubleLocations, "trouble-location-names")
	FieldJobClassifications       = domain.Ref(TabJobClassifications, "job-classifications")
	FieldCalloutReasons           = domain.Ref(TabCalloutReasons, "callout-reasons")
)

// DefaultLevelLabels are the labels suggested for the four hierarchy levels.
var DefaultLevelLabels = domain.Value{"Parent Company", "Business Unit", "Division", "OpCenter"}

// MaxTroubleLocations caps the trouble location list.
const MaxTroubleLocations = 50

// DefaultLayout returns the SIG workbook layout.
func DefaultLayout() domain.Layout {
	return domain.Layout{Tabs: []domain.Tab{
		{
			ID:    TabLocationHierarchy,
			Title: "Location Hierarchy",
			Owns:  []domain.EntityKind{domain.KindLocation},
			Fields: []domain.Field{
				{ID: FieldLevelLabels.Field, Title: "Level Labels", Kind: domain.FieldText, Required: true, Min: domain.MaxLocationLevel, Max: domain.MaxLocationLevel},
				{ID: FieldDefaultTimeZone.Field, Title: "Default Time Zone", Kind: domain.FieldChoice, Required: true, Max: 1, Choices: domain.TimeZones()},
				{ID: FieldLocations.Field, Title: "Locations", Kind: domain.FieldReference, Required: true, Source: domain.Source{Kind: domain.SourceEntity, Entity: domain.KindLocation}},
			},
		},
		{
			ID:    TabCalloutTypesMatrix,
			Title: "Matrix of Locations and CO Types",
			Owns:  []domain.EntityKind{domain.KindCalloutType},
			Fields: []domain.Field{
				{ID: FieldCalloutTypes.Field, Title: "Callout Types", Kind: domain.FieldReference, Required: true, Source: domain.Source{Kind: domain.SourceEntity, Entity: domain.KindCalloutType}},
				{ID: FieldCalloutTypeAssignments.Field, Title: "Location Assignments", Kind: domain.FieldReference, Source: domain.Source{Kind: domain.SourceMatrix, Entity: domain.KindCalloutType}},
			},
		},
		{
			ID:    TabCalloutReasonsMatrix,
			Title: "Matrix of Locations and Reasons",
			Fields: []domain.Field{
				{ID: FieldCalloutReasonAssignments.Field, Title: "Location Assignments", Kind: domain.FieldReference, Source: domain.Source{Kind: domain.SourceMatrix, Entity: domain.KindCalloutReason}},
			},
		},
		{
			ID:    TabTroubleLocations,
			Title: "Trouble Locations",
			Fields: []domain.Field{
				{ID: FieldUsesTroubleLocations.Field, Title: "Uses Trouble Locations", Kind: domain.FieldFlag, Required: true, Max: 1},
				{ID: FieldTroubleLocationNames.Field, Title: "Trouble Location Names", Kind: domain.FieldText, Max: MaxTroubleLocations,
					RequiredWhen: &domain.Condition{Field: FieldUsesTroubleLocations.Field, Equals: "true"}},
			},
		},
		{
			ID:    TabJobClassifications,
			Title: "Job Classifications",
			Owns:  []domain.EntityKind{domain.KindJobClassification},
			Fields: []domain.Field{
				{ID: FieldJobClassifications.Field, Title: "Job Classifications", Kind: domain.FieldReference, Required: true, Source: domain.Source{Kind: domain.SourceEntity, Entity: domain.KindJobClassification}},
			},
		},
		{
			ID:    TabCalloutReasons,
			Title: "Callout Reasons",
			Owns:  []domain.EntityKind{domain.KindCalloutReason},
			Fields: []domain.Field{
				{ID: FieldCalloutReasons.Field, Title: "Callout Reasons", Kind: domain.FieldReference, Required: true, Source: domain.Source{Kind: domain.SourceEntity, Entity: domain.KindCalloutReason}},
			},
		},
	}}
}
