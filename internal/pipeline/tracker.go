// Package pipeline coordinates the end-to-end processing of uploaded
// documents: structural analysis, tiered extraction, quality assessment,
// persistence, and artifact export, with live per-document status tracking.
package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/store"
)

// Tracker holds the live processing status per document id. Exactly one
// record exists per id and the latest write wins. Terminal transitions are
// forwarded to the document store best-effort; a store failure never blocks
// or fails the pipeline.
type Tracker struct {
	mu       sync.Mutex
	statuses map[string]entity.ProcessingStatus
	store    store.DocumentStore
	logger   *slog.Logger
}

// NewTracker builds a Tracker. The store may be nil (batch runs without
// persistence).
func NewTracker(st store.DocumentStore, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		statuses: map[string]entity.ProcessingStatus{},
		store:    st,
		logger:   logger,
	}
}

// Set records the latest status for its document id. Only completed/failed
// transitions reach the store: intermediate progress stays in memory, and
// batch runs without a pre-saved record never spam not-found errors.
func (t *Tracker) Set(ctx context.Context, status entity.ProcessingStatus) {
	t.mu.Lock()
	t.statuses[status.DocumentID] = status
	t.mu.Unlock()

	if t.store == nil || !status.Status.Terminal() {
		return
	}
	if err := t.store.UpdateStatus(ctx, status.DocumentID, status.Status, status.Progress, status.Message); err != nil {
		t.logger.Debug("tracker.store_forward_failed",
			"doc_id", status.DocumentID, "status", status.Status, "err", err)
	}
}

// Get returns the status for id and whether one exists.
func (t *Tracker) Get(id string) (entity.ProcessingStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.statuses[id]
	return s, ok
}

// Snapshot returns all tracked statuses ordered by document id.
func (t *Tracker) Snapshot() []entity.ProcessingStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]entity.ProcessingStatus, 0, len(t.statuses))
	for _, s := range t.statuses {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out
}

// Delete drops the tracked status for id, if any.
func (t *Tracker) Delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.statuses, id)
}
