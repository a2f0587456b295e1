package exchange

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"sigcore/pkg/domain"
)

// CSVHeader is the first row of a workbook CSV.
var CSVHeader = []string{"Tab", "Section", "Response"}

// Row is one line of the workbook CSV.
type Row struct {
	Tab      string
	Section  string
	Response string
}

// Rows flattens a snapshot into workbook rows, tab by tab in layout order.
// Entered fields give one row each, registry fields one row per entity and
// matrix fields one row per location that has assignments. Empty fields are
// left out.
func Rows(layout domain.Layout, s domain.Snapshot) []Row {
	byID := make(map[string]domain.Entity, len(s.Entities))
	for _, e := range s.Entities {
		byID[e.ID] = e
	}
	values := make(map[domain.FieldRef]domain.Value, len(s.Fields))
	for _, entry := range s.Fields {
		values[domain.Ref(entry.Tab, entry.Field)] = entry.Value
	}

	var rows []Row
	for _, tab := range layout.Tabs {
		for _, field := range tab.Fields {
			switch field.Source.Kind {
			case domain.SourceEntity:
				n := 0
				for _, e := range s.Entities {
					if e.Kind != field.Source.Entity {
						continue
					}
					n++
					rows = append(rows, Row{
						Tab:      tab.Title,
						Section:  fmt.Sprintf("%s #%d", field.Title, n),
						Response: entityResponse(e, byID),
					})
				}
			case domain.SourceMatrix:
				rows = append(rows, matrixRows(tab, field, s, byID)...)
			default:
				items := values[domain.Ref(tab.ID, field.ID)].Items()
				if len(items) == 0 {
					continue
				}
				rows = append(rows, Row{Tab: tab.Title, Section: field.Title, Response: strings.Join(items, ", ")})
			}
		}
	}
	return rows
}

func matrixRows(tab domain.Tab, field domain.Field, s domain.Snapshot, byID map[string]domain.Entity) []Row {
	targets := make(map[string][]string)
	for _, a := range s.Assignments {
		if a.TargetKind != field.Source.Entity {
			continue
		}
		targets[a.LocationID] = append(targets[a.LocationID], displayName(a.TargetID, byID))
	}
	var rows []Row
	emit := func(locationID string) {
		names, ok := targets[locationID]
		if !ok {
			return
		}
		sort.Strings(names)
		rows = append(rows, Row{Tab: tab.Title, Section: displayName(locationID, byID), Response: strings.Join(names, ", ")})
		delete(targets, locationID)
	}
	for _, e := range s.Entities {
		if e.Kind == domain.KindLocation {
			emit(e.ID)
		}
	}
	// Assignments to locations missing from the registry still show up.
	rest := make([]string, 0, len(targets))
	for id := range targets {
		rest = append(rest, id)
	}
	sort.Strings(rest)
	for _, id := range rest {
		emit(id)
	}
	return rows
}

func entityResponse(e domain.Entity, byID map[string]domain.Entity) string {
	parts := []string{e.DisplayName}
	if e.Kind == domain.KindLocation {
		parts = []string{fmt.Sprintf("Level %d: %s", e.Level, e.DisplayName)}
		if parent := e.Parent(); parent != "" {
			parts = append(parts, "Parent: "+displayName(parent, byID))
		}
		if e.Code != "" {
			parts = append(parts, "Code: "+e.Code)
		}
		if e.TimeZone != "" {
			parts = append(parts, "Time Zone: "+e.TimeZone)
		}
	}
	if len(e.ExternalIDs) > 0 {
		parts = append(parts, "IDs: "+strings.Join(e.ExternalIDs, " "))
	}
	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+e.Metadata[k])
	}
	return strings.Join(parts, ", ")
}

func displayName(id string, byID map[string]domain.Entity) string {
	if e, ok := byID[id]; ok && e.DisplayName != "" {
		return e.DisplayName
	}
	return id
}

// WriteCSV renders the workbook rows of s, header first.
func WriteCSV(w io.Writer, layout domain.Layout, s domain.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range Rows(layout, s) {
		if err := cw.Write([]string{r.Tab, r.Section, r.Response}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
