package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sigcore/internal/core"
	"sigcore/internal/help"
	"sigcore/pkg/domain"
)

func (a *app) explainCmd() *cobra.Command {
	var snapshot string
	cmd := &cobra.Command{
		Use:   "explain [tab [field]]",
		Short: "Show help for a tab or field, merged with live diagnostics",
		Long: `explain prints the purpose, effect, example, best practice and
limitations of a workbook field. With only a tab it summarises the tab; with
no arguments it prints the glossary. Diagnostics come from --snapshot or
--document when given, otherwise from an empty document.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				doc  *core.Document
				done = func() {}
				err  error
			)
			if snapshot != "" || a.document != "" {
				doc, done, err = a.openDocument(ctx, snapshot)
			} else {
				doc, err = core.NewMemoryDocument(ctx, "explain", a.documentOptions()...)
			}
			defer done()
			if err != nil {
				return err
			}
			p := a.palette()
			switch len(args) {
			case 0:
				for _, term := range doc.Glossary() {
					p.info.Fprint(a.stdout, term.Term)
					fmt.Fprintf(a.stdout, ": %s\n", term.Definition)
				}
				return nil
			case 1:
				ex, err := doc.ExplainTab(domain.TabID(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "%s (%s)\n", ex.Title, ex.Tab)
				writeEntry(a, ex.Entry)
				for _, f := range ex.Fields {
					fmt.Fprintf(a.stdout, "  - %s: %s\n", f.ID, f.Title)
					if f.Purpose != "" {
						p.dim.Fprintf(a.stdout, "      %s\n", f.Purpose)
					}
				}
				for _, d := range ex.Diagnostics {
					p.severity(d.Severity).Fprintf(a.stdout, "%s: %s\n", d.Severity, doc.Describe(d))
				}
				return nil
			}
			ex, err := doc.Explain(domain.TabID(args[0]), domain.FieldID(args[1]))
			if err != nil {
				return err
			}
			req := "optional"
			if ex.Required {
				req = "required"
			}
			fmt.Fprintf(a.stdout, "%s › %s (%s, %s)\n", ex.TabTitle, ex.FieldTitle, ex.Kind, req)
			writeEntry(a, ex.Entry)
			for i, d := range ex.Diagnostics {
				p.severity(d.Severity).Fprintf(a.stdout, "%s: %s\n", d.Severity, ex.Problems[i])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "snapshot file supplying live diagnostics")
	cmd.Flags().StringVar(&a.document, "document", "", "load this document id from the configured storage")
	return cmd
}

func writeEntry(a *app, e help.Entry) {
	for _, line := range []struct{ label, text string }{
		{"Purpose", e.Purpose},
		{"Effect", e.Effect},
		{"Example", e.Example},
		{"Best practice", e.BestPractice},
		{"Limitations", e.Limitations},
	} {
		if line.text != "" {
			fmt.Fprintf(a.stdout, "  %s: %s\n", line.label, line.text)
		}
	}
}
