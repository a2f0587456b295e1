package engine

import (
	"strings"

	"sigcore/pkg/domain"
)

// State is the completion state of a tab.
type State string

// Tab completion states.
const (
	StateComplete   State = "complete"
	StateIncomplete State = "incomplete"
	StateInvalid    State = "invalid"
)

// TabStatus summarises one tab.
type TabStatus struct {
	Tab           domain.TabID     `json:"tab"`
	Title         string           `json:"title"`
	State         State            `json:"state"`
	MissingFields []domain.FieldID `json:"missing_fields,omitempty"`
	Errors        int              `json:"errors"`
	Warnings      int              `json:"warnings"`
}

// Completion summarises every tab in declaration order.
type Completion struct {
	Tabs      []TabStatus    `json:"tabs"`
	Ready     bool           `json:"ready"`
	Progress  float64        `json:"progress"`
	FillOrder []domain.TabID `json:"fill_order"`
}

// Tab returns the status of one tab.
func (c Completion) Tab(id domain.TabID) (TabStatus, bool) {
	for _, s := range c.Tabs {
		if s.Tab == id {
			return s, true
		}
	}
	return TabStatus{}, false
}

// TabCompletion computes the state of one tab: invalid when any diagnostic
// on it is an error, incomplete when a required field is missing or short,
// complete otherwise.
func (e *Engine) TabCompletion(view domain.RuleView, diags []domain.Diagnostic, tab domain.Tab) TabStatus {
	status := TabStatus{Tab: tab.ID, Title: tab.Title}
	for _, d := range ForTab(diags, tab.ID) {
		switch d.Severity {
		case domain.SeverityError:
			status.Errors++
		case domain.SeverityWarning:
			status.Warnings++
		}
	}
	for _, field := range tab.Fields {
		if !required(view, tab, field) {
			continue
		}
		items := view.FieldValue(domain.Ref(tab.ID, field.ID)).Items()
		if len(items) == 0 || len(items) < field.Min {
			status.MissingFields = append(status.MissingFields, field.ID)
		}
	}
	switch {
	case status.Errors > 0:
		status.State = StateInvalid
	case len(status.MissingFields) > 0:
		status.State = StateIncomplete
	default:
		status.State = StateComplete
	}
	return status
}

func required(view domain.RuleView, tab domain.Tab, field domain.Field) bool {
	if field.Required {
		return true
	}
	cond := field.RequiredWhen
	if cond == nil {
		return false
	}
	other, ok := tab.Field(cond.Field)
	if !ok {
		return false
	}
	value := view.FieldValue(domain.Ref(tab.ID, other.ID)).First()
	if other.Kind == domain.FieldFlag {
		return value != "" && domain.ParseFlag(value) == domain.ParseFlag(cond.Equals)
	}
	return strings.EqualFold(value, cond.Equals)
}

// Completion computes the status of every tab, overall readiness and the
// share of complete tabs.
func (e *Engine) Completion(view domain.RuleView, diags []domain.Diagnostic) Completion {
	layout := e.catalog.Layout()
	out := Completion{Ready: true, FillOrder: e.catalog.FillOrder()}
	complete := 0
	for _, tab := range layout.Tabs {
		status := e.TabCompletion(view, diags, tab)
		if status.State == StateComplete {
			complete++
		} else {
			out.Ready = false
		}
		out.Tabs = append(out.Tabs, status)
	}
	if len(layout.Tabs) > 0 {
		out.Progress = float64(complete) / float64(len(layout.Tabs))
	}
	return out
}

// Clone returns a deep copy of the completion.
func (c Completion) Clone() Completion {
	out := c
	out.Tabs = make([]TabStatus, len(c.Tabs))
	for i, s := range c.Tabs {
		s.MissingFields = append([]domain.FieldID(nil), s.MissingFields...)
		out.Tabs[i] = s
	}
	out.FillOrder = append([]domain.TabID(nil), c.FillOrder...)
	return out
}
