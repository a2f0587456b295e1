package exchange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"sigcore/internal/blob"
	"sigcore/pkg/domain"
)

// DefaultPrefix is the key prefix of exported artifacts.
const DefaultPrefix = "exports"

// Artifacts describes one export run.
type Artifacts struct {
	Snapshot blob.Info `json:"snapshot"`
	Workbook blob.Info `json:"workbook"`
}

// Exporter writes a snapshot and its CSV rendering to a blob store under
// <prefix>/<document>/<UTC timestamp>/. Stores are create-only, so a second
// export in the same second fails with blob.ErrExists.
type Exporter struct {
	store   blob.Store
	layout  domain.Layout
	prefix  string
	format  Format
	presign time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithPrefix replaces DefaultPrefix.
func WithPrefix(prefix string) ExporterOption {
	return func(e *Exporter) { e.prefix = prefix }
}

// WithFormat selects the snapshot encoding; JSON by default.
func WithFormat(f Format) ExporterOption {
	return func(e *Exporter) { e.format = f }
}

// WithPresign asks for GET URLs valid for expiry on each artifact. Stores
// that cannot sign leave the URL they returned from Put.
func WithPresign(expiry time.Duration) ExporterOption {
	return func(e *Exporter) { e.presign = expiry }
}

// WithExportClock sets the clock used for artifact keys.
func WithExportClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithExportLogger attaches a logger.
func WithExportLogger(l *zap.Logger) ExporterOption {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExporter returns an exporter writing to store.
func NewExporter(store blob.Store, layout domain.Layout, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		store:  store,
		layout: layout,
		prefix: DefaultPrefix,
		format: FormatJSON,
		now:    func() time.Time { return time.Now().UTC() },
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes both artifacts of s.
func (e *Exporter) Export(ctx context.Context, s domain.Snapshot) (Artifacts, error) {
	if s.DocumentID == "" {
		return Artifacts{}, fmt.Errorf("export: snapshot has no document id")
	}
	dir := path.Join(e.prefix, s.DocumentID, e.now().UTC().Format("20060102T150405Z"))
	meta := map[string]string{"document": s.DocumentID}

	data, err := Marshal(s, e.format)
	if err != nil {
		return Artifacts{}, err
	}
	var out Artifacts
	out.Snapshot, err = e.put(ctx, path.Join(dir, "snapshot"+e.format.Ext()), data, e.format.ContentType(), meta)
	if err != nil {
		return Artifacts{}, err
	}
	var csvBuf bytes.Buffer
	if err := WriteCSV(&csvBuf, e.layout, s); err != nil {
		return Artifacts{}, err
	}
	out.Workbook, err = e.put(ctx, path.Join(dir, "workbook.csv"), csvBuf.Bytes(), "text/csv", meta)
	if err != nil {
		return Artifacts{}, err
	}
	e.logger.Info("document exported",
		zap.String("document", s.DocumentID),
		zap.String("driver", string(e.store.Driver())),
		zap.String("snapshot_key", out.Snapshot.Key),
		zap.String("workbook_key", out.Workbook.Key),
	)
	return out, nil
}

func (e *Exporter) put(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) (blob.Info, error) {
	info, err := e.store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{ContentType: contentType, Metadata: meta})
	if err != nil {
		return blob.Info{}, fmt.Errorf("export %s: %w", key, err)
	}
	if e.presign <= 0 {
		return info, nil
	}
	url, err := e.store.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET", Expiry: e.presign})
	switch {
	case err == nil:
		info.URL = url
	case errors.Is(err, blob.ErrUnsupported):
		e.logger.Debug("presign unsupported", zap.String("key", key), zap.String("driver", string(e.store.Driver())))
	default:
		return blob.Info{}, fmt.Errorf("presign %s: %w", key, err)
	}
	return info, nil
}

// List returns the artifacts already exported for a document, ordered by key.
func (e *Exporter) List(ctx context.Context, documentID string) ([]blob.Info, error) {
	return e.store.List(ctx, path.Join(e.prefix, documentID)+"/")
}
