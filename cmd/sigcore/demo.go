package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sigcore/internal/catalog"
	"sigcore/internal/core"
	"sigcore/internal/exchange"
	"sigcore/pkg/domain"
)

// DemoDocumentID names the document built by the demo command.
const DemoDocumentID = "pittsburgh-water"

func (a *app) demoCmd() *cobra.Command {
	var (
		out     string
		persist bool
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Build the Pittsburgh Water sample document",
		Long: `demo enters a complete Pittsburgh Water workbook through the document
service and writes its snapshot to --out (stdout as JSON when unset). With
--persist the snapshot also replaces the copy in the configured storage.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			doc, err := core.NewMemoryDocument(ctx, DemoDocumentID, a.documentOptions()...)
			if err != nil {
				return err
			}
			if err := buildDemo(ctx, doc); err != nil {
				return err
			}
			snapshot := doc.Snapshot()
			if persist {
				stored, store, err := core.OpenStoredDocument(ctx, a.cfg.Storage, DemoDocumentID, a.documentOptions()...)
				if err != nil {
					return err
				}
				_, err = stored.Replace(ctx, snapshot)
				if closeErr := store.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					return err
				}
				a.logger.Info("demo persisted", zap.String("driver", a.cfg.Storage.Driver))
			}
			if out == "" {
				return exchange.Encode(a.stdout, snapshot, exchange.FormatJSON)
			}
			if err := exchange.WriteFile(out, snapshot); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "wrote %s (ready: %t)\n", out, doc.Readiness())
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "snapshot file (.json or .msgpack)")
	cmd.Flags().BoolVar(&persist, "persist", false, "also save the document in the configured storage")
	return cmd
}

// buildDemo enters one complete branch of the Pittsburgh Water hierarchy and
// fills every required field, leaving the document ready.
func buildDemo(ctx context.Context, doc *core.Document) error {
	create := func(e domain.Entity) (string, error) {
		created, _, err := doc.CreateEntity(ctx, e)
		if err != nil {
			return "", fmt.Errorf("create %s: %w", e.Describe(), err)
		}
		return created.ID, nil
	}
	parent := func(id string) *string { return &id }

	company, err := create(domain.Entity{Kind: domain.KindLocation, DisplayName: "Pittsburgh Water", Level: 1})
	if err != nil {
		return err
	}
	operations, err := create(domain.Entity{Kind: domain.KindLocation, DisplayName: "Operations", Level: 2, ParentID: parent(company)})
	if err != nil {
		return err
	}
	division, err := create(domain.Entity{Kind: domain.KindLocation, DisplayName: "Bridgeville Division", Level: 3, ParentID: parent(operations)})
	if err != nil {
		return err
	}
	opcenter, err := create(domain.Entity{Kind: domain.KindLocation, DisplayName: "Howard Water Operations", Level: 4,
		ParentID: parent(division), Code: "PIT-OPS-BRI-HOW", TimeZone: "ET"})
	if err != nil {
		return err
	}
	normal, err := create(domain.Entity{Kind: domain.KindCalloutType, DisplayName: "Normal"})
	if err != nil {
		return err
	}
	if _, err := doc.SetMatrixAssignment(ctx, domain.KindCalloutType, opcenter, normal, true); err != nil {
		return err
	}
	fields := []struct {
		ref   domain.FieldRef
		value domain.Value
	}{
		{catalog.FieldLevelLabels, catalog.DefaultLevelLabels},
		{catalog.FieldDefaultTimeZone, domain.Scalar("ET")},
		{catalog.FieldUsesTroubleLocations, domain.Scalar("false")},
	}
	for _, f := range fields {
		if _, err := doc.SetFieldValue(ctx, f.ref.Tab, f.ref.Field, f.value); err != nil {
			return err
		}
	}
	if _, err := create(domain.Entity{Kind: domain.KindJobClassification, DisplayName: "Lineman",
		Metadata: map[string]string{domain.MetaClassType: domain.ClassJourneyman}}); err != nil {
		return err
	}
	_, err = create(domain.Entity{Kind: domain.KindCalloutReason, DisplayName: "Gas Leak", ExternalIDs: []string{"101"},
		Metadata: map[string]string{domain.MetaEnabled: "true", domain.MetaDefault: "true"}})
	return err
}
