package retrieval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/rirekisho/internal/config"
	"github.com/hyperjump/rirekisho/internal/embedding"
	"github.com/hyperjump/rirekisho/internal/keyword"
	"github.com/hyperjump/rirekisho/internal/models"
	"github.com/hyperjump/rirekisho/internal/storage"
	"github.com/hyperjump/rirekisho/internal/vector"
)

func testRetrievalConfig() *config.RetrievalConfig {
	return &config.RetrievalConfig{
		DefaultLimit:   15,
		MaxLimit:       100,
		TopKCandidates: 100,
		KeywordWeight:  0.4,
		SemanticWeight: 0.6,
	}
}

// newTestRetriever wires a retriever against sqlite, mem-only bleve, the
// in-memory vector index, and the mock embedder, then ingests the given chunks.
func newTestRetriever(t *testing.T, docs map[string][]*models.Chunk) *Retriever {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	kw, err := keyword.NewMemOnlyIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kw.Close() })

	embedder := embedding.NewMockEmbedder(8)
	vec, err := vector.NewMemoryIndex(8)
	if err != nil {
		t.Fatal(err)
	}

	for docID, chunks := range docs {
		doc := &models.Document{
			ID:            docID,
			CandidateName: chunks[0].CandidateName,
			Content:       "cv content",
		}
		if err := store.PublishDocument(ctx, doc, chunks); err != nil {
			t.Fatal(err)
		}
		if err := kw.IndexBatch(ctx, chunks); err != nil {
			t.Fatal(err)
		}
		for _, c := range chunks {
			emb, _ := embedder.Embed(ctx, c.Content)
			if err := vec.Add(ctx, []string{c.ID}, [][]float32{emb}); err != nil {
				t.Fatal(err)
			}
		}
	}

	return NewRetriever(store, embedder, vec, kw, testRetrievalConfig())
}

func TestRetriever_HybridRetrieve(t *testing.T) {
	docs := map[string][]*models.Chunk{
		"doc1": {
			{ID: "doc1_c0", DocumentID: "doc1", CandidateName: "María García", Section: models.SectionSkills,
				Content: "python machine learning kubernetes", Metadata: models.CandidateMetadata{PositionCount: 3}},
			{ID: "doc1_c1", DocumentID: "doc1", CandidateName: "María García", Section: models.SectionExperience,
				Content: "data engineering team lead", Metadata: models.CandidateMetadata{PositionCount: 3}},
		},
		"doc2": {
			{ID: "doc2_c0", DocumentID: "doc2", CandidateName: "Juan Pérez", Section: models.SectionSkills,
				Content: "java spring backend services", Metadata: models.CandidateMetadata{PositionCount: 5}},
		},
	}
	r := newTestRetriever(t, docs)

	set, err := r.Retrieve(context.Background(), "kubernetes", 10)
	if err != nil {
		t.Fatal(err)
	}
	if set.Empty() {
		t.Fatal("expected results")
	}
	if set.Chunks[0].Chunk.ID != "doc1_c0" {
		t.Errorf("top chunk: got %s", set.Chunks[0].Chunk.ID)
	}
	if set.Chunks[0].Rank != 1 {
		t.Errorf("rank: got %d", set.Chunks[0].Rank)
	}

	// Candidate index covers every document that contributed a chunk, in
	// first-appearance order, with metadata attached.
	if len(set.Candidates) == 0 || set.Candidates[0].CandidateID != "doc1" {
		t.Errorf("candidates: %+v", set.Candidates)
	}
	if set.Candidates[0].DisplayName != "María García" {
		t.Errorf("display name: %q", set.Candidates[0].DisplayName)
	}
	if md, ok := set.Metadata["doc1"]; !ok || md.PositionCount != 3 {
		t.Errorf("metadata: %+v", set.Metadata)
	}
}

func TestRetriever_LimitApplied(t *testing.T) {
	chunks := make([]*models.Chunk, 6)
	for i := range chunks {
		chunks[i] = &models.Chunk{
			ID: "doc1_c" + string(rune('0'+i)), DocumentID: "doc1",
			CandidateName: "Ana López", Section: models.SectionExperience,
			Content: "golang services experience", ChunkIndex: i,
		}
	}
	r := newTestRetriever(t, map[string][]*models.Chunk{"doc1": chunks})

	set, err := r.Retrieve(context.Background(), "golang services", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Chunks) > 3 {
		t.Errorf("limit not applied: got %d chunks", len(set.Chunks))
	}
	if len(set.Candidates) != 1 {
		t.Errorf("expected 1 candidate, got %d", len(set.Candidates))
	}
}

func TestRetriever_NoMatches(t *testing.T) {
	r := newTestRetriever(t, map[string][]*models.Chunk{
		"doc1": {{ID: "doc1_c0", DocumentID: "doc1", CandidateName: "Ana López",
			Section: models.SectionSkills, Content: "python pandas"}},
	})

	// Semantic leg always returns nearest neighbors, so assert the keyword-only
	// case instead: an off-vocabulary query with keyword weight 1 yields nothing.
	cfg := testRetrievalConfig()
	cfg.KeywordWeight = 1.0
	cfg.SemanticWeight = 0
	kwOnly := NewRetriever(r.storage, r.embedder, r.vectorIndex, r.keywordIndex, cfg)

	set, err := kwOnly.Retrieve(context.Background(), "zzzzzz", 10)
	if err != nil {
		t.Fatal(err)
	}
	if !set.Empty() {
		t.Errorf("expected empty set, got %d chunks", len(set.Chunks))
	}
}
