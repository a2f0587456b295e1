package catalog

import (
	"strings"

	"sigcore/pkg/domain"
)

// fieldRules derives the layout-driven checks every entered field gets:
// cardinality, declared choices and flag markers.
func fieldRules(layout domain.Layout) []domain.Rule {
	var out []domain.Rule
	for _, tab := range layout.Tabs {
		for _, field := range tab.Fields {
			if field.Source.Derived() {
				continue
			}
			ref := domain.Ref(tab.ID, field.ID)
			if field.Min > 0 || field.Max > 0 {
				out = append(out, cardinalityRule{binding: bind(ref.String()+".cardinality", ref), def: field})
			}
			switch field.Kind {
			case domain.FieldChoice:
				out = append(out, choiceRule{binding: bind(ref.String()+".choice", ref), def: field})
			case domain.FieldFlag:
				out = append(out, flagRule{binding: bind(ref.String()+".flag", ref)})
			}
		}
	}
	return out
}

type cardinalityRule struct {
	binding
	def domain.Field
}

func (r cardinalityRule) Evaluate(view domain.RuleView) []domain.Violation {
	n := len(view.FieldValue(r.binding.field).Items())
	if n == 0 {
		return nil
	}
	switch {
	case r.def.Min > 0 && r.def.Min == r.def.Max && n != r.def.Min:
		return []domain.Violation{violation(domain.ViolationFormat, domain.SeverityError, "", "lists %d entries; exactly %d are required", n, r.def.Min)}
	case r.def.Min > 0 && n < r.def.Min:
		return []domain.Violation{violation(domain.ViolationFormat, domain.SeverityError, "", "lists %d entries; at least %d are required", n, r.def.Min)}
	case r.def.Max > 0 && n > r.def.Max:
		return []domain.Violation{violation(domain.ViolationFormat, domain.SeverityError, "", "lists %d entries; at most %d are allowed", n, r.def.Max)}
	}
	return nil
}

type choiceRule struct {
	binding
	def domain.Field
}

func (r choiceRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	for _, item := range view.FieldValue(r.binding.field).Items() {
		if !r.def.HasChoice(item) {
			out = append(out, violation(domain.ViolationFormat, domain.SeverityError, "", "%q is not one of %s", item, strings.Join(r.def.Choices, ", ")))
		}
	}
	return out
}

type flagRule struct {
	binding
}

func (r flagRule) Evaluate(view domain.RuleView) []domain.Violation {
	var out []domain.Violation
	for _, item := range view.FieldValue(r.binding.field).Items() {
		if !validFlag(item) {
			out = append(out, violation(domain.ViolationFormat, domain.SeverityError, "", "%q is not a yes/no answer", item))
		}
	}
	return out
}

func validFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "false", "yes", "no", "x", "1", "0":
		return true
	}
	return false
}
