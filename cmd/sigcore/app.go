package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sigcore/internal/config"
	"sigcore/internal/core"
	"sigcore/internal/exchange"
	"sigcore/internal/logging"
	"sigcore/pkg/domain"
)

// app carries what every subcommand shares once the root pre-run has
// resolved configuration and logging.
type app struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	cfg    config.Config
	logger *zap.Logger

	logLevel  string
	colorMode string
	trace     bool
	document  string
}

func newRootCmd(stdout, stderr io.Writer, getenv func(string) string) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, getenv: getenv, logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "sigcore",
		Short: "Validate and export SIG workbook documents",
		Long: `sigcore checks System Implementation Guide (SIG) workbooks: the location
hierarchy, callout type and reason matrices, trouble locations, job
classifications and callout reasons. Settings come from SIGCORE_* variables
and the file named by SIGCORE_CONFIG.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "", "override the configured log level")
	flags.StringVar(&a.colorMode, "color", "auto", "colorize output (auto|on|off)")
	flags.BoolVar(&a.trace, "trace", false, "write one JSON line per document operation to stderr")

	root.AddCommand(
		a.catalogCmd(),
		a.validateCmd(),
		a.explainCmd(),
		a.exportCmd(),
		a.demoCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.getenv)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// documentOptions are the core options every command opens documents with.
func (a *app) documentOptions(extra ...core.Option) []core.Option {
	opts := []core.Option{core.WithLogger(a.logger)}
	if a.trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(a.stderr)))
	}
	return append(opts, extra...)
}

// openDocument loads a document either from a snapshot file or, when path is
// empty and --document is set, from the configured storage.
func (a *app) openDocument(ctx context.Context, path string, extra ...core.Option) (*core.Document, func(), error) {
	noop := func() {}
	switch {
	case path != "":
		snapshot, err := exchange.ReadFile(path)
		if err != nil {
			return nil, noop, err
		}
		doc, err := core.OpenDocument(ctx, snapshot, a.documentOptions(extra...)...)
		return doc, noop, err
	case a.document != "":
		doc, store, err := core.OpenStoredDocument(ctx, a.cfg.Storage, a.document, a.documentOptions(extra...)...)
		if err != nil {
			return nil, noop, err
		}
		return doc, func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("close store", zap.Error(err))
			}
		}, nil
	}
	return nil, noop, fmt.Errorf("name a snapshot file or pass --document")
}

// palette colours severities and states.
type palette struct {
	err, warn, info, ok, dim *color.Color
}

func (a *app) palette() palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow),
		info: color.New(color.FgCyan),
		ok:   color.New(color.FgGreen),
		dim:  color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.ok, p.dim} {
		switch strings.ToLower(a.colorMode) {
		case "on", "always":
			c.EnableColor()
		case "off", "never":
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s domain.Severity) *color.Color {
	switch s {
	case domain.SeverityError:
		return p.err
	case domain.SeverityWarning:
		return p.warn
	}
	return p.info
}
