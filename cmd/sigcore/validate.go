package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"sigcore/internal/core"
	"sigcore/internal/engine"
)

func (a *app) validateCmd() *cobra.Command {
	var metrics bool
	cmd := &cobra.Command{
		Use:   "validate [snapshot]",
		Short: "Report diagnostics, per-tab completion and readiness of a document",
		Long: `validate loads a JSON or msgpack snapshot (or, with --document, the
document kept in the configured storage), prints its diagnostics and the
completion of every tab. It exits with status 1 when any tab is invalid.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			var extra []core.Option
			reg := prometheus.NewRegistry()
			if metrics {
				extra = append(extra, core.WithMetricsRecorder(core.NewPrometheusRecorder(reg)))
			}
			doc, done, err := a.openDocument(ctx, path, extra...)
			defer done()
			if err != nil {
				return err
			}
			diags, err := doc.Diagnostics(ctx, engine.FullScope())
			if err != nil {
				return err
			}
			p := a.palette()
			for _, d := range diags {
				p.severity(d.Severity).Fprintf(a.stdout, "%-7s", d.Severity)
				fmt.Fprintf(a.stdout, " %s\n", doc.Describe(d))
			}
			completion := doc.CompletionAll()
			invalid := false
			for _, tab := range completion.Tabs {
				c := p.ok
				switch tab.State {
				case engine.StateInvalid:
					c, invalid = p.err, true
				case engine.StateIncomplete:
					c = p.warn
				}
				c.Fprintf(a.stdout, "%-10s", tab.State)
				fmt.Fprintf(a.stdout, " %s", tab.Title)
				if len(tab.MissingFields) > 0 {
					fmt.Fprintf(a.stdout, " (missing %v)", tab.MissingFields)
				}
				fmt.Fprintln(a.stdout)
			}
			ready := "no"
			if completion.Ready {
				ready = "yes"
			}
			fmt.Fprintf(a.stdout, "ready: %s, progress %.0f%%\n", ready, completion.Progress*100)
			if metrics {
				if err := writeMetrics(a, reg); err != nil {
					return err
				}
			}
			if invalid {
				return exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print Prometheus metrics for the run")
	cmd.Flags().StringVar(&a.document, "document", "", "load this document id from the configured storage")
	return cmd
}

func writeMetrics(a *app, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(a.stdout, mf); err != nil {
			return err
		}
	}
	return nil
}
