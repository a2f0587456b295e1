// Package catalog holds the SIG workbook layout and the rules bound to its
// fields. A Catalog is built once and is read-only afterwards.
package catalog

import (
	"fmt"
	"sync"

	"sigcore/internal/depgraph"
	"sigcore/pkg/domain"
)

// Catalog indexes rules by field and owns the dependency graph built from
// their declared reads.
type Catalog struct {
	layout  domain.Layout
	rules   []domain.Rule
	byField map[domain.FieldRef][]domain.Rule
	index   map[string]int
	graph   *depgraph.Graph
}

// DefaultRules returns the built-in rules for layout in registration order.
func DefaultRules(layout domain.Layout) []domain.Rule {
	rules := fieldRules(layout)
	rules = append(rules,
		NewLevelLabelsRule(),
		NewEntityNamesRule(domain.KindLocation, FieldLocations),
		NewUniqueNamesRule(domain.KindLocation, FieldLocations),
		NewLocationCodesRule(),
		NewParentChainRule(),
		NewLevelFourCodeRule(),
		NewLeafCoverageRule(),
		NewLocationTimeZonesRule(),

		NewEntityNamesRule(domain.KindCalloutType, FieldCalloutTypes),
		NewUniqueNamesRule(domain.KindCalloutType, FieldCalloutTypes),
		NewAssignmentsResolveRule(domain.KindCalloutType, FieldCalloutTypeAssignments),
		NewMatrixCoverageRule(),

		NewAssignmentsResolveRule(domain.KindCalloutReason, FieldCalloutReasonAssignments),
		NewReasonAssignmentsEnabledRule(),

		NewTroubleLocationNamesRule(),
		NewTroubleLocationsPairingRule(),

		NewEntityNamesRule(domain.KindJobClassification, FieldJobClassifications),
		NewUniqueNamesRule(domain.KindJobClassification, FieldJobClassifications),
		NewClassTypeRule(),
		NewHRIDsRule(),

		NewEntityNamesRule(domain.KindCalloutReason, FieldCalloutReasons),
		NewUniqueNamesRule(domain.KindCalloutReason, FieldCalloutReasons),
		NewReasonIDsRule(),
		NewDefaultReasonRule(),
	)
	return rules
}

// New validates rules against layout and builds the catalog. Rule ids must
// be unique, every bound field and field dependency must exist, and tabs
// must not depend on each other in a cycle.
func New(layout domain.Layout, rules []domain.Rule) (*Catalog, error) {
	c := &Catalog{
		layout:  layout,
		rules:   append([]domain.Rule(nil), rules...),
		byField: make(map[domain.FieldRef][]domain.Rule),
		index:   make(map[string]int, len(rules)),
	}
	for i, rule := range c.rules {
		id := rule.ID()
		if id == "" {
			return nil, fmt.Errorf("rule %d: empty id", i)
		}
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("rule %s: duplicate id", id)
		}
		c.index[id] = i
		if _, ok := layout.Field(rule.Field()); !ok {
			return nil, fmt.Errorf("rule %s: bound field %s is not in the layout", id, rule.Field())
		}
		for _, dep := range rule.Dependencies() {
			if err := checkNode(layout, dep); err != nil {
				return nil, fmt.Errorf("rule %s: %w", id, err)
			}
		}
		c.byField[rule.Field()] = append(c.byField[rule.Field()], rule)
	}
	graph, err := depgraph.Build(layout, c.rules)
	if err != nil {
		return nil, err
	}
	c.graph = graph
	return c, nil
}

func checkNode(layout domain.Layout, node domain.Node) error {
	switch node.Kind {
	case domain.NodeField:
		if _, ok := layout.Field(node.Field); !ok {
			return fmt.Errorf("dependency %s is not in the layout", node)
		}
	case domain.NodeEntity:
		if !node.Entity.Valid() {
			return fmt.Errorf("dependency %s names an unknown kind", node)
		}
	case domain.NodeMatrix:
		if !domain.MatrixKind(node.Entity) {
			return fmt.Errorf("dependency %s is not a matrix kind", node)
		}
	default:
		return fmt.Errorf("dependency %s has unknown node kind", node)
	}
	return nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the built-in catalog over DefaultLayout. It is built on
// first use and shared by every document.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		layout := DefaultLayout()
		defaultCatalog, defaultErr = New(layout, DefaultRules(layout))
	})
	return defaultCatalog, defaultErr
}

// MustDefault is Default for callers that cannot continue without a catalog.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Layout returns the workbook layout.
func (c *Catalog) Layout() domain.Layout { return c.layout }

// Rules returns every rule in registration order.
func (c *Catalog) Rules() []domain.Rule {
	return append([]domain.Rule(nil), c.rules...)
}

// RulesFor returns the rules bound to a field in registration order.
func (c *Catalog) RulesFor(tab domain.TabID, field domain.FieldID) []domain.Rule {
	return append([]domain.Rule(nil), c.byField[domain.Ref(tab, field)]...)
}

// Rule looks a rule up by id.
func (c *Catalog) Rule(id string) (domain.Rule, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.rules[i], true
}

// Position returns the registration index of a rule, or -1.
func (c *Catalog) Position(id string) int {
	i, ok := c.index[id]
	if !ok {
		return -1
	}
	return i
}

// Graph returns the dependency graph.
func (c *Catalog) Graph() *depgraph.Graph { return c.graph }

// FillOrder returns tabs in recommended fill order.
func (c *Catalog) FillOrder() []domain.TabID { return c.graph.FillOrder() }
