// Package help resolves field and tab help for the workbook and merges it
// with the diagnostics that currently apply.
package help

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"sigcore/pkg/domain"
)

// Entry is the static help for a tab, field or field kind.
type Entry struct {
	Purpose      string `yaml:"purpose" json:"purpose,omitempty"`
	Effect       string `yaml:"effect" json:"effect,omitempty"`
	Example      string `yaml:"example" json:"example,omitempty"`
	BestPractice string `yaml:"best_practice" json:"best_practice,omitempty"`
	Limitations  string `yaml:"limitations" json:"limitations,omitempty"`
}

// Empty reports whether the entry has no text.
func (e Entry) Empty() bool { return e == Entry{} }

// ContentSource supplies static help text.
type ContentSource interface {
	FieldHelp(ref domain.FieldRef) (Entry, bool)
	TabHelp(tab domain.TabID) (Entry, bool)
	KindHelp(kind domain.FieldKind) (Entry, bool)
	Glossary() map[string]string
}

// Content is help text decoded from YAML.
type Content struct {
	Tabs   map[domain.TabID]Entry     `yaml:"tabs"`
	Fields map[string]Entry           `yaml:"fields"`
	Kinds  map[domain.FieldKind]Entry `yaml:"kinds"`
	Terms  map[string]string          `yaml:"glossary"`
}

// ParseContent decodes help content in the layout of the embedded file.
// Field entries are keyed "<tab>/<field>".
func ParseContent(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode help content: %w", err)
	}
	return &c, nil
}

// FieldHelp implements ContentSource.
func (c *Content) FieldHelp(ref domain.FieldRef) (Entry, bool) {
	e, ok := c.Fields[ref.String()]
	return e, ok
}

// TabHelp implements ContentSource.
func (c *Content) TabHelp(tab domain.TabID) (Entry, bool) {
	e, ok := c.Tabs[tab]
	return e, ok
}

// KindHelp implements ContentSource.
func (c *Content) KindHelp(kind domain.FieldKind) (Entry, bool) {
	e, ok := c.Kinds[kind]
	return e, ok
}

// Glossary implements ContentSource.
func (c *Content) Glossary() map[string]string {
	out := make(map[string]string, len(c.Terms))
	for k, v := range c.Terms {
		out[k] = v
	}
	return out
}

// Built-in help content.
//
//go:embed content.yaml
var embeddedContent []byte

var (
	embeddedOnce sync.Once
	embedded     *Content
	embeddedErr  error
)

// Embedded returns the help content compiled into the binary.
func Embedded() (*Content, error) {
	embeddedOnce.Do(func() {
		embedded, embeddedErr = ParseContent(embeddedContent)
	})
	return embedded, embeddedErr
}
