package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/search"
)

type fakeEmbedder struct {
	texts []string
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.texts = append(f.texts, text)
	return []float32{0.1, 0.2}, nil
}

type fakeIndex struct {
	upserts []string
	deletes []string
	err     error
}

func (f *fakeIndex) Search(ctx context.Context, userID, query string, vec []float32, topK int, alpha float32) ([]search.Result, error) {
	return nil, nil
}

func (f *fakeIndex) UpsertJournal(ctx context.Context, journalID string, vec []float32, payload map[string]interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, journalID)
	return nil
}

func (f *fakeIndex) DeleteJournal(ctx context.Context, userID, journalID string) error {
	if f.err != nil {
		return f.err
	}
	f.deletes = append(f.deletes, journalID)
	return nil
}

func newTestWorker(emb *fakeEmbedder, idx *fakeIndex) *Worker {
	return &Worker{log: zerolog.Nop(), embedder: emb, index: idx, cfg: Config{BatchSize: 10}}
}

func TestHandleUpsertEmbedsContent(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := &fakeIndex{}
	w := newTestWorker(emb, idx)

	j := job{
		id:          1,
		op:          OpUpsertJournal,
		aggregateID: "j-1",
		payload:     map[string]interface{}{"userId": "u-1", "content": "slept well", "title": "monday"},
	}
	if err := w.handle(context.Background(), j); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(emb.texts) != 1 || emb.texts[0] != "slept well" {
		t.Fatalf("expected content embedded, got %v", emb.texts)
	}
	if len(idx.upserts) != 1 || idx.upserts[0] != "j-1" {
		t.Fatalf("expected upsert of j-1, got %v", idx.upserts)
	}
}

func TestHandleUpsertFallsBackToTitle(t *testing.T) {
	emb := &fakeEmbedder{}
	w := newTestWorker(emb, &fakeIndex{})

	j := job{op: OpUpsertJournal, aggregateID: "j-2", payload: map[string]interface{}{"title": "monday"}}
	if err := w.handle(context.Background(), j); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(emb.texts) != 1 || emb.texts[0] != "monday" {
		t.Fatalf("expected title embedded, got %v", emb.texts)
	}
}

func TestHandleDelete(t *testing.T) {
	idx := &fakeIndex{}
	w := newTestWorker(&fakeEmbedder{}, idx)

	j := job{op: OpDeleteJournal, aggregateID: "j-3", payload: map[string]interface{}{"userId": "u-1"}}
	if err := w.handle(context.Background(), j); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(idx.deletes) != 1 || idx.deletes[0] != "j-3" {
		t.Fatalf("expected delete of j-3, got %v", idx.deletes)
	}
}

func TestHandleUnknownOpFails(t *testing.T) {
	w := newTestWorker(&fakeEmbedder{}, &fakeIndex{})
	if err := w.handle(context.Background(), job{op: "mystery"}); err == nil {
		t.Fatal("expected error for unknown op")
	}
}

func TestHandleEmbedFailurePropagates(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("embedder down")}
	idx := &fakeIndex{}
	w := newTestWorker(emb, idx)

	j := job{op: OpUpsertJournal, aggregateID: "j-4", payload: map[string]interface{}{"content": "x"}}
	if err := w.handle(context.Background(), j); err == nil {
		t.Fatal("expected error when embedder fails")
	}
	if len(idx.upserts) != 0 {
		t.Fatalf("failed embed must not reach the index: %v", idx.upserts)
	}
}

func TestHandleNilEmbedderStillUpserts(t *testing.T) {
	idx := &fakeIndex{}
	w := &Worker{log: zerolog.Nop(), index: idx, cfg: Config{BatchSize: 10}}

	j := job{op: OpUpsertJournal, aggregateID: "j-5", payload: map[string]interface{}{"content": "x"}}
	if err := w.handle(context.Background(), j); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(idx.upserts) != 1 {
		t.Fatalf("expected upsert without vector, got %v", idx.upserts)
	}
}
