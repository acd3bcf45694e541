package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/rirekisho/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testDoc(id, name string) (*models.Document, []*models.Chunk) {
	md := models.CandidateMetadata{
		PositionCount:        3,
		TotalExperienceYears: 6.5,
		AvgTenureYears:       2.17,
		JobHoppingScore:      0.31,
	}
	doc := &models.Document{
		ID:            id,
		CandidateName: name,
		Content:       "summary text experience text",
		Sections: models.Sections{
			Summary: "summary text",
			Skills:  []string{"Go", "SQL"},
		},
		Metadata: md,
	}
	chunks := []*models.Chunk{
		{ID: id + "_c0", DocumentID: id, CandidateName: name, Section: models.SectionSummary, Content: "summary text", ChunkIndex: 0, Metadata: md},
		{ID: id + "_c1", DocumentID: id, CandidateName: name, Section: models.SectionSkills, Content: "Go SQL", ChunkIndex: 1, Metadata: md},
	}
	return doc, chunks
}

func TestSQLiteStorage_PublishAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc, chunks := testDoc("doc1", "María García")
	if err := store.PublishDocument(ctx, doc, chunks); err != nil {
		t.Fatal(err)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if got.CandidateName != "María García" {
		t.Errorf("candidate name: got %q", got.CandidateName)
	}
	if got.Sections.Summary != "summary text" || len(got.Sections.Skills) != 2 {
		t.Errorf("sections not round-tripped: %+v", got.Sections)
	}
	if got.Metadata.PositionCount != 3 || got.Metadata.JobHoppingScore != 0.31 {
		t.Errorf("metadata not round-tripped: %+v", got.Metadata)
	}

	list, err := store.GetChunksByDocumentID(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(list))
	}
	for _, c := range list {
		if c.Metadata != doc.Metadata {
			t.Errorf("chunk %s metadata diverges from document: %+v", c.ID, c.Metadata)
		}
	}
	if list[0].Section != models.SectionSummary || list[1].Section != models.SectionSkills {
		t.Errorf("sections wrong: %v, %v", list[0].Section, list[1].Section)
	}
}

func TestSQLiteStorage_PublishAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc, chunks := testDoc("doc1", "Juan Pérez")
	// Duplicate chunk id forces the transaction to fail mid-way.
	chunks[1].ID = chunks[0].ID
	if err := store.PublishDocument(ctx, doc, chunks); err == nil {
		t.Fatal("expected publish to fail on duplicate chunk id")
	}

	if _, err := store.GetDocument(ctx, "doc1"); err == nil {
		t.Error("document visible after failed publish")
	}
	n, _ := store.CountChunks(ctx)
	if n != 0 {
		t.Errorf("expected 0 chunks after failed publish, got %d", n)
	}
}

func TestSQLiteStorage_DeleteCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc, chunks := testDoc("doc1", "Ana López")
	if err := store.PublishDocument(ctx, doc, chunks); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, "doc1"); err == nil {
		t.Error("expected error after delete")
	}
	list, _ := store.GetChunksByDocumentID(ctx, "doc1")
	if len(list) != 0 {
		t.Errorf("expected 0 chunks after delete, got %d", len(list))
	}
}

func TestSQLiteStorage_GetChunksByIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc, chunks := testDoc("doc1", "María García")
	if err := store.PublishDocument(ctx, doc, chunks); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetChunksByIDs(ctx, []string{"doc1_c1", "missing", "doc1_c0"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(got))
	}

	got, err = store.GetChunksByIDs(ctx, nil)
	if err != nil || got != nil {
		t.Errorf("empty ids: got %v, %v", got, err)
	}
}

func TestSQLiteStorage_ListAndCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		doc, chunks := testDoc(id, "Candidate "+id)
		if err := store.PublishDocument(ctx, doc, chunks); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.ListDocuments(ctx, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 docs, got %d", len(list))
	}

	ids, err := store.ListDocumentIDs(ctx)
	if err != nil || len(ids) != 3 {
		t.Errorf("ListDocumentIDs: %v, %v", ids, err)
	}

	nd, err := store.CountDocuments(ctx)
	if err != nil || nd != 3 {
		t.Errorf("CountDocuments: %v, %d", err, nd)
	}
	nc, err := store.CountChunks(ctx)
	if err != nil || nc != 6 {
		t.Errorf("CountChunks: %v, %d", err, nc)
	}
}
