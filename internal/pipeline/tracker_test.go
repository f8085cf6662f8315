package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/store"
)

// statusUpdate is one forwarded UpdateStatus call.
type statusUpdate struct {
	ID       string
	Status   constants.ProcessingState
	Progress int
	Message  string
}

// fakeStore records calls and can be told to fail.
type fakeStore struct {
	mu      sync.Mutex
	updates []statusUpdate
	saved   []store.StoredDocument
	failAll bool
}

func (f *fakeStore) SaveDocument(_ context.Context, doc *store.StoredDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store down")
	}
	f.saved = append(f.saved, *doc)
	return nil
}

func (f *fakeStore) GetDocument(context.Context, string) (*store.StoredDocument, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) ListDocuments(context.Context, int, int) ([]store.StoredDocument, error) {
	return nil, nil
}

func (f *fakeStore) SearchDocuments(context.Context, store.SearchFilter) ([]store.StoredDocument, error) {
	return nil, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, status constants.ProcessingState, progress int, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store down")
	}
	f.updates = append(f.updates, statusUpdate{ID: id, Status: status, Progress: progress, Message: message})
	return nil
}

func (f *fakeStore) DeleteDocument(context.Context, string) error { return nil }
func (f *fakeStore) Stats(context.Context) (*store.Stats, error)  { return &store.Stats{}, nil }
func (f *fakeStore) Ping(context.Context) error                   { return nil }
func (f *fakeStore) Close() error                                 { return nil }

func (f *fakeStore) progressFor(id string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, u := range f.updates {
		if u.ID == id {
			out = append(out, u.Progress)
		}
	}
	return out
}

func TestTrackerLatestWriteWins(t *testing.T) {
	tr := NewTracker(nil, nil)
	ctx := context.Background()

	tr.Set(ctx, entity.ProcessingStatus{DocumentID: "d1", Status: constants.StateProcessing, Progress: 30})
	tr.Set(ctx, entity.ProcessingStatus{DocumentID: "d1", Status: constants.StateCompleted, Progress: 100})

	got, ok := tr.Get("d1")
	if !ok {
		t.Fatal("status missing")
	}
	if got.Status != constants.StateCompleted || got.Progress != 100 {
		t.Errorf("status = %+v, want the latest write", got)
	}
}

func TestTrackerUnknownID(t *testing.T) {
	tr := NewTracker(nil, nil)
	if _, ok := tr.Get("nope"); ok {
		t.Error("Get returned a status for an unknown id")
	}
}

func TestTrackerSnapshotSorted(t *testing.T) {
	tr := NewTracker(nil, nil)
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		tr.Set(ctx, entity.ProcessingStatus{DocumentID: id, Status: constants.StateProcessing})
	}

	snap := tr.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot = %d entries, want 3", len(snap))
	}
	for i, want := range []string{"a", "b", "c"} {
		if snap[i].DocumentID != want {
			t.Errorf("snapshot[%d] = %s, want %s", i, snap[i].DocumentID, want)
		}
	}
}

func TestTrackerDelete(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.Set(context.Background(), entity.ProcessingStatus{DocumentID: "d1"})
	tr.Delete("d1")
	if _, ok := tr.Get("d1"); ok {
		t.Error("status survived delete")
	}
}

func TestTrackerForwardsOnlyTerminalToStore(t *testing.T) {
	fs := &fakeStore{}
	tr := NewTracker(fs, nil)
	ctx := context.Background()

	tr.Set(ctx, entity.ProcessingStatus{
		DocumentID: "d1",
		Status:     constants.StateProcessing,
		Progress:   30,
		Message:    "Extracting financial data...",
	})
	if got := fs.progressFor("d1"); len(got) != 0 {
		t.Errorf("non-terminal update reached the store: %v", got)
	}

	tr.Set(ctx, entity.ProcessingStatus{
		DocumentID: "d1",
		Status:     constants.StateCompleted,
		Progress:   100,
		Message:    "Processing completed in 4.20s",
	})
	if got := fs.progressFor("d1"); len(got) != 1 || got[0] != 100 {
		t.Errorf("forwarded progress = %v, want [100]", got)
	}

	tr.Set(ctx, entity.ProcessingStatus{
		DocumentID: "d2",
		Status:     constants.StateFailed,
		Progress:   0,
		Message:    "Processing failed: boom",
	})
	if got := fs.progressFor("d2"); len(got) != 1 {
		t.Errorf("failed transition not forwarded: %v", got)
	}
}

func TestTrackerStoreFailureIsNotFatal(t *testing.T) {
	fs := &fakeStore{failAll: true}
	tr := NewTracker(fs, nil)
	tr.Set(context.Background(), entity.ProcessingStatus{
		DocumentID: "d1",
		Status:     constants.StateFailed,
		Message:    "Processing failed: boom",
	})

	if got, ok := tr.Get("d1"); !ok || got.Status != constants.StateFailed {
		t.Errorf("in-memory status lost on store failure: %+v", got)
	}
}
