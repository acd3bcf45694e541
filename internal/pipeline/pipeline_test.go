package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/rirekisho/internal/classify"
	"github.com/hyperjump/rirekisho/internal/config"
	"github.com/hyperjump/rirekisho/internal/embedding"
	"github.com/hyperjump/rirekisho/internal/generate"
	"github.com/hyperjump/rirekisho/internal/keyword"
	"github.com/hyperjump/rirekisho/internal/models"
	"github.com/hyperjump/rirekisho/internal/retrieval"
	"github.com/hyperjump/rirekisho/internal/semcache"
	"github.com/hyperjump/rirekisho/internal/storage"
	"github.com/hyperjump/rirekisho/internal/vector"
)

type testEnv struct {
	pipeline *Pipeline
	store    *storage.SQLiteStorage
}

// newTestEnv builds a pipeline over sqlite, mem-only bleve, the in-memory
// vector index, and the mock embedder, pre-loaded with two candidates.
func newTestEnv(t *testing.T, gen generate.Generator) *testEnv {
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

	hopper := models.CandidateMetadata{
		PositionCount: 8, TotalExperienceYears: 6, AvgTenureYears: 0.75, JobHoppingScore: 0.8,
	}
	steady := models.CandidateMetadata{
		PositionCount: 2, TotalExperienceYears: 9, AvgTenureYears: 4.5, JobHoppingScore: 0.1,
	}
	docs := []struct {
		id, name, content string
		md                models.CandidateMetadata
	}{
		{"doc1", "María García", "python kubernetes cloud infrastructure", hopper},
		{"doc2", "Juan Pérez", "java spring backend services", steady},
	}
	for _, d := range docs {
		doc := &models.Document{ID: d.id, CandidateName: d.name, Content: d.content, Metadata: d.md}
		chunk := &models.Chunk{
			ID: d.id + "_c0", DocumentID: d.id, CandidateName: d.name,
			Section: models.SectionSkills, Content: d.content, Metadata: d.md,
		}
		if err := store.PublishDocument(ctx, doc, []*models.Chunk{chunk}); err != nil {
			t.Fatal(err)
		}
		if err := kw.Index(ctx, chunk); err != nil {
			t.Fatal(err)
		}
		emb, _ := embedder.Embed(ctx, chunk.Content)
		if err := vec.Add(ctx, []string{chunk.ID}, [][]float32{emb}); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &config.RetrievalConfig{
		DefaultLimit: 15, MaxLimit: 100, TopKCandidates: 100,
		KeywordWeight: 1.0, SemanticWeight: 0,
	}
	retriever := retrieval.NewRetriever(store, embedder, vec, kw, cfg)
	cache := semcache.New(100, time.Minute)

	return &testEnv{
		pipeline: New(store, retriever, classify.NewClassifier(), gen, cache),
		store:    store,
	}
}

func stepNames(steps []models.PipelineStep) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Step
	}
	return names
}

func TestPipeline_AskEndToEnd(t *testing.T) {
	gen := &generate.MockGenerator{
		Text: "Top pick is María García doc1 [doc1](doc1) for cloud work.",
	}
	env := newTestEnv(t, gen)

	ans, err := env.pipeline.Ask(context.Background(), models.AskRequest{
		Query: "Rank the top 2 candidates for cloud infrastructure",
	})
	if err != nil {
		t.Fatal(err)
	}

	if ans.Intent != "ranking" || ans.DetectionMethod != "multi:ranking:en" {
		t.Errorf("classification: %s via %s", ans.Intent, ans.DetectionMethod)
	}
	if !strings.Contains(ans.AnswerText, "[María García](cv:doc1)") {
		t.Errorf("citation not repaired: %q", ans.AnswerText)
	}
	if strings.Contains(ans.AnswerText, "[doc1](doc1)") {
		t.Errorf("malformed citation survived: %q", ans.AnswerText)
	}

	want := []string{
		StageCacheLookup, StageRetrieval, StageClassification, StageRedFlags,
		StagePrompt, StageGeneration, StageRepair, StageAssembly,
	}
	got := stepNames(ans.PipelineSteps)
	if len(got) != len(want) {
		t.Fatalf("steps: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d: got %s, want %s", i, got[i], want[i])
		}
		if ans.PipelineSteps[i].Status != models.StepCompleted {
			t.Errorf("step %s: status %s", got[i], ans.PipelineSteps[i].Status)
		}
	}

	// Ranking intent renders the overview table; the hopper's flags render too.
	kinds := make(map[string]bool)
	for _, s := range ans.StructuredSections {
		kinds[s.Kind] = true
	}
	if !kinds["ranking_table"] || !kinds["red_flags"] {
		t.Errorf("sections: %+v", ans.StructuredSections)
	}

	// The prompt the generator saw embeds the narrative and the citation rule.
	prompts := gen.Prompts()
	if len(prompts) != 1 {
		t.Fatalf("expected 1 generation, got %d", len(prompts))
	}
	if !strings.Contains(prompts[0], "[María García](cv:doc1)") {
		t.Error("prompt missing canonical citation guidance")
	}
	if !strings.Contains(prompts[0], "job_hopping") {
		t.Error("prompt missing red-flag narrative")
	}
}

func TestPipeline_CacheHitAndSkip(t *testing.T) {
	gen := &generate.MockGenerator{Text: "answer text"}
	env := newTestEnv(t, gen)
	ctx := context.Background()
	req := models.AskRequest{Query: "Who knows kubernetes?"}

	first, err := env.pipeline.Ask(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit {
		t.Error("first ask should be a miss")
	}

	second, err := env.pipeline.Ask(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Error("second ask should hit the cache")
	}
	if second.AnswerText != first.AnswerText {
		t.Error("cached answer should match")
	}
	if names := stepNames(second.PipelineSteps); len(names) != 1 || names[0] != StageCacheLookup {
		t.Errorf("cache hit steps: %v", names)
	}
	if len(gen.Prompts()) != 1 {
		t.Error("cache hit must not invoke the generator")
	}

	third, err := env.pipeline.Ask(ctx, models.AskRequest{Query: "Who knows kubernetes?", SkipCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit {
		t.Error("skip_cache should bypass the cache")
	}
	if third.PipelineSteps[0].Status != models.StepSkipped {
		t.Errorf("cache_lookup status: %s", third.PipelineSteps[0].Status)
	}
}

func TestPipeline_CacheInvalidatedByPoolChange(t *testing.T) {
	gen := &generate.MockGenerator{Text: "answer"}
	env := newTestEnv(t, gen)
	ctx := context.Background()
	req := models.AskRequest{Query: "Who knows java?"}

	if _, err := env.pipeline.Ask(ctx, req); err != nil {
		t.Fatal(err)
	}
	if err := env.store.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	ans, err := env.pipeline.Ask(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if ans.CacheHit {
		t.Error("pool change must invalidate cached answers")
	}
}

func TestPipeline_NoResults(t *testing.T) {
	gen := &generate.MockGenerator{Text: "should not run"}
	env := newTestEnv(t, gen)

	ans, err := env.pipeline.Ask(context.Background(), models.AskRequest{Query: "zzzzzz qqqqq"})
	if err != nil {
		t.Fatal(err)
	}
	if ans.AnswerText != noResultsAnswer {
		t.Errorf("got %q", ans.AnswerText)
	}
	if ans.DetectionMethod != "fallback:no_results" {
		t.Errorf("method: %s", ans.DetectionMethod)
	}
	names := stepNames(ans.PipelineSteps)
	if names[len(names)-1] != StageRetrieval {
		t.Errorf("steps should end at retrieval: %v", names)
	}
	if len(gen.Prompts()) != 0 {
		t.Error("no-result path must not invoke the generator")
	}
}

func TestPipeline_GenerationFailure(t *testing.T) {
	gen := &generate.MockGenerator{Err: errors.New("provider timeout")}
	env := newTestEnv(t, gen)

	_, err := env.pipeline.Ask(context.Background(), models.AskRequest{Query: "Who knows kubernetes?"})
	if err == nil {
		t.Fatal("expected generation error to surface")
	}
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("got %v", err)
	}

	// A failed generation must not be cached: the same ask fails again.
	if _, err := env.pipeline.Ask(context.Background(), models.AskRequest{Query: "Who knows kubernetes?"}); err == nil {
		t.Error("failed answer must not be served from cache")
	}
}

func TestPipeline_EmptyQuery(t *testing.T) {
	env := newTestEnv(t, &generate.MockGenerator{Text: "x"})
	if _, err := env.pipeline.Ask(context.Background(), models.AskRequest{}); err == nil {
		t.Error("empty query should be rejected")
	}
}
