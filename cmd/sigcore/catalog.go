package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sigcore/internal/catalog"
	"sigcore/pkg/domain"
)

type catalogField struct {
	ID       domain.FieldID   `json:"id"`
	Title    string           `json:"title"`
	Kind     domain.FieldKind `json:"kind"`
	Required bool             `json:"required"`
	Rules    []string         `json:"rules,omitempty"`
}

type catalogTab struct {
	ID     domain.TabID   `json:"id"`
	Title  string         `json:"title"`
	Fields []catalogField `json:"fields"`
}

func (a *app) catalogCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the workbook tabs in fill order with their fields and rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := catalog.Default()
			if err != nil {
				return err
			}
			tabs := describeCatalog(c)
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(tabs)
			}
			p := a.palette()
			for i, tab := range tabs {
				fmt.Fprintf(a.stdout, "%d. %s (%s)\n", i+1, tab.Title, tab.ID)
				for _, f := range tab.Fields {
					req := ""
					if f.Required {
						req = ", required"
					}
					fmt.Fprintf(a.stdout, "   - %s: %s [%s%s]\n", f.ID, f.Title, f.Kind, req)
					if len(f.Rules) > 0 {
						p.dim.Fprintf(a.stdout, "       rules: %s\n", strings.Join(f.Rules, ", "))
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

// describeCatalog lists tabs in fill order.
func describeCatalog(c *catalog.Catalog) []catalogTab {
	layout := c.Layout()
	var out []catalogTab
	for _, id := range c.FillOrder() {
		tab, ok := layout.Tab(id)
		if !ok {
			continue
		}
		ct := catalogTab{ID: tab.ID, Title: tab.Title}
		for _, f := range tab.Fields {
			cf := catalogField{ID: f.ID, Title: f.Title, Kind: f.Kind, Required: f.Required}
			for _, r := range c.RulesFor(tab.ID, f.ID) {
				cf.Rules = append(cf.Rules, r.ID())
			}
			ct.Fields = append(ct.Fields, cf)
		}
		out = append(out, ct)
	}
	return out
}
