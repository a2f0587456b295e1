package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sigcore/internal/blob"
	"sigcore/internal/exchange"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		toBlob  bool
		asCSV   bool
		format  string
		prefix  string
		presign time.Duration
	)
	cmd := &cobra.Command{
		Use:   "export [snapshot]",
		Short: "Render a document as CSV or write its artifacts to the blob store",
		Long: `export prints the workbook CSV (Tab, Section, Response) to stdout. With
--blob it writes the snapshot and the CSV to the configured blob store
(SIGCORE_BLOB_DRIVER: fs, memory or s3) and prints the artifact keys.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			doc, done, err := a.openDocument(ctx, path)
			defer done()
			if err != nil {
				return err
			}
			snapshot := doc.Snapshot()
			layout := doc.Catalog().Layout()
			if !toBlob || asCSV {
				if err := exchange.WriteCSV(a.stdout, layout, snapshot); err != nil {
					return err
				}
			}
			if !toBlob {
				return nil
			}
			f, err := exchange.ParseFormat(format)
			if err != nil {
				return err
			}
			store, err := blob.Open(ctx, a.cfg.Blob)
			if err != nil {
				return err
			}
			exp := exchange.NewExporter(store, layout,
				exchange.WithPrefix(prefix),
				exchange.WithFormat(f),
				exchange.WithPresign(presign),
				exchange.WithExportLogger(a.logger),
			)
			out, err := exp.Export(ctx, snapshot)
			if err != nil {
				return err
			}
			for _, info := range []blob.Info{out.Snapshot, out.Workbook} {
				fmt.Fprintf(a.stdout, "%s\t%d bytes", info.Key, info.Size)
				if info.URL != "" {
					fmt.Fprintf(a.stdout, "\t%s", info.URL)
				}
				fmt.Fprintln(a.stdout)
			}
			a.logger.Debug("export finished", zap.String("driver", string(store.Driver())))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&asCSV, "csv", false, "print the CSV rendering (default unless --blob)")
	flags.BoolVar(&toBlob, "blob", false, "write artifacts to the configured blob store")
	flags.StringVar(&format, "format", "json", "snapshot artifact encoding (json|msgpack)")
	flags.StringVar(&prefix, "prefix", exchange.DefaultPrefix, "blob key prefix")
	flags.DurationVar(&presign, "presign", 0, "attach GET URLs valid for this long when the store can sign")
	flags.StringVar(&a.document, "document", "", "load this document id from the configured storage")
	return cmd
}
