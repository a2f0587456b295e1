package help

import (
	"fmt"
	"sort"

	"sigcore/pkg/domain"
)

// Explanation is the help for one field merged with the diagnostics that
// currently apply to it.
type Explanation struct {
	Tab         domain.TabID        `json:"tab"`
	Field       domain.FieldID      `json:"field"`
	TabTitle    string              `json:"tab_title"`
	FieldTitle  string              `json:"field_title"`
	Kind        domain.FieldKind    `json:"kind"`
	Required    bool                `json:"required"`
	Entry       Entry               `json:"help"`
	Diagnostics []domain.Diagnostic `json:"diagnostics,omitempty"`
	Problems    []string            `json:"problems,omitempty"`
}

// FieldSummary names a field in a tab explanation.
type FieldSummary struct {
	ID      domain.FieldID `json:"id"`
	Title   string         `json:"title"`
	Purpose string         `json:"purpose,omitempty"`
}

// TabExplanation is the help for a whole tab.
type TabExplanation struct {
	Tab         domain.TabID        `json:"tab"`
	Title       string              `json:"title"`
	Entry       Entry               `json:"help"`
	Fields      []FieldSummary      `json:"fields"`
	Diagnostics []domain.Diagnostic `json:"diagnostics,omitempty"`
}

// Term is one glossary entry.
type Term struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Resolver answers help questions for one layout.
type Resolver struct {
	layout domain.Layout
	source ContentSource
}

// NewResolver returns a resolver over layout backed by source.
func NewResolver(layout domain.Layout, source ContentSource) *Resolver {
	return &Resolver{layout: layout, source: source}
}

// Explain returns the help for a field together with the diagnostics from
// diags that are attached to it, rendered the same way Describe does.
func (r *Resolver) Explain(tab domain.TabID, field domain.FieldID, diags []domain.Diagnostic) (Explanation, error) {
	t, ok := r.layout.Tab(tab)
	if !ok {
		return Explanation{}, fmt.Errorf("unknown tab %q", tab)
	}
	f, ok := t.Field(field)
	if !ok {
		return Explanation{}, fmt.Errorf("tab %q has no field %q", tab, field)
	}
	out := Explanation{
		Tab:        tab,
		Field:      field,
		TabTitle:   t.Title,
		FieldTitle: f.Title,
		Kind:       f.Kind,
		Required:   f.Required,
		Entry:      r.fieldEntry(domain.Ref(tab, field), f.Kind),
	}
	for _, d := range diags {
		if d.Tab == tab && d.Field == field {
			out.Diagnostics = append(out.Diagnostics, d)
			out.Problems = append(out.Problems, r.Describe(d))
		}
	}
	return out, nil
}

// fieldEntry looks up field help and fills gaps from the field kind.
func (r *Resolver) fieldEntry(ref domain.FieldRef, kind domain.FieldKind) Entry {
	entry, _ := r.source.FieldHelp(ref)
	fallback, ok := r.source.KindHelp(kind)
	if !ok {
		return entry
	}
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&entry.Purpose, fallback.Purpose)
	fill(&entry.Effect, fallback.Effect)
	fill(&entry.Example, fallback.Example)
	fill(&entry.BestPractice, fallback.BestPractice)
	fill(&entry.Limitations, fallback.Limitations)
	return entry
}

// ExplainTab returns the help for a tab, a summary of its fields and the
// diagnostics attached to it.
func (r *Resolver) ExplainTab(tab domain.TabID, diags []domain.Diagnostic) (TabExplanation, error) {
	t, ok := r.layout.Tab(tab)
	if !ok {
		return TabExplanation{}, fmt.Errorf("unknown tab %q", tab)
	}
	entry, _ := r.source.TabHelp(tab)
	out := TabExplanation{Tab: tab, Title: t.Title, Entry: entry}
	for _, f := range t.Fields {
		out.Fields = append(out.Fields, FieldSummary{
			ID:      f.ID,
			Title:   f.Title,
			Purpose: r.fieldEntry(domain.Ref(tab, f.ID), f.Kind).Purpose,
		})
	}
	for _, d := range diags {
		if d.Tab == tab {
			out.Diagnostics = append(out.Diagnostics, d)
		}
	}
	return out, nil
}

// Describe renders a diagnostic for people: "<Tab title> › <Field title>:
// <message>". Unknown tabs or fields fall back to their ids.
func (r *Resolver) Describe(d domain.Diagnostic) string {
	tabTitle, fieldTitle := string(d.Tab), string(d.Field)
	if t, ok := r.layout.Tab(d.Tab); ok {
		tabTitle = t.Title
		if f, ok := t.Field(d.Field); ok {
			fieldTitle = f.Title
		}
	}
	return tabTitle + " › " + fieldTitle + ": " + d.Message
}

// Glossary returns the glossary sorted by term.
func (r *Resolver) Glossary() []Term {
	terms := r.source.Glossary()
	out := make([]Term, 0, len(terms))
	for term, def := range terms {
		out = append(out, Term{Term: term, Definition: def})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Term < out[j].Term })
	return out
}
