package core

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"sigcore/internal/engine"
	"sigcore/pkg/domain"
)

// Report is the validation result of one workspace document.
type Report struct {
	Document    string              `json:"document"`
	Diagnostics []domain.Diagnostic `json:"diagnostics"`
	Completion  engine.Completion   `json:"completion"`
}

// Workspace holds independent documents that share the immutable catalog.
type Workspace struct {
	mu    sync.RWMutex
	docs  map[string]*Document
	order []string
	opts  []Option
}

// NewWorkspace returns an empty workspace. opts apply to documents the
// workspace creates itself.
func NewWorkspace(opts ...Option) *Workspace {
	return &Workspace{docs: make(map[string]*Document), opts: opts}
}

// Add registers an existing document.
func (w *Workspace) Add(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("workspace: nil document")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.docs[doc.ID()]; exists {
		return fmt.Errorf("workspace: document %s already open", doc.ID())
	}
	w.docs[doc.ID()] = doc
	w.order = append(w.order, doc.ID())
	return nil
}

// Create opens an empty in-memory document.
func (w *Workspace) Create(ctx context.Context, id string) (*Document, error) {
	doc, err := NewMemoryDocument(ctx, id, w.opts...)
	if err != nil {
		return nil, err
	}
	if err := w.Add(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Open loads a snapshot as a new document.
func (w *Workspace) Open(ctx context.Context, snapshot domain.Snapshot) (*Document, error) {
	doc, err := OpenDocument(ctx, snapshot, w.opts...)
	if err != nil {
		return nil, err
	}
	if err := w.Add(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Document returns an open document.
func (w *Workspace) Document(id string) (*Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.docs[id]
	return doc, ok
}

// IDs lists open documents in the order they were added.
func (w *Workspace) IDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.order...)
}

// ValidateAll revalidates every document in parallel. Reports follow IDs
// order; the first failure cancels the rest.
func (w *Workspace) ValidateAll(ctx context.Context) ([]Report, error) {
	ids := w.IDs()
	reports := make([]Report, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		doc, _ := w.Document(id)
		g.Go(func() error {
			out, err := doc.Revalidate(gctx)
			if err != nil {
				return fmt.Errorf("validate %s: %w", id, err)
			}
			reports[i] = Report{Document: id, Diagnostics: out.Diagnostics, Completion: out.Completion}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
