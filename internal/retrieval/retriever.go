package retrieval

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/rirekisho/internal/config"
	"github.com/hyperjump/rirekisho/internal/embedding"
	"github.com/hyperjump/rirekisho/internal/keyword"
	"github.com/hyperjump/rirekisho/internal/models"
	"github.com/hyperjump/rirekisho/internal/storage"
	"github.com/hyperjump/rirekisho/internal/vector"
)

// ScoredChunk is one retrieved chunk with its fused score components.
type ScoredChunk struct {
	Chunk         *models.Chunk
	Score         float64
	KeywordScore  float64
	SemanticScore float64
	Rank          int
}

// RetrievedSet is the result of one retrieval pass: ranked chunks plus the
// distinct candidates they belong to, in first-appearance order. Candidates is
// the candidate index handed to classification, prompting, and repair.
type RetrievedSet struct {
	Chunks     []*ScoredChunk
	Candidates []models.Source
	Metadata   map[string]models.CandidateMetadata // by candidate ID
}

// Empty reports whether retrieval produced no chunks at all.
func (s *RetrievedSet) Empty() bool {
	return s == nil || len(s.Chunks) == 0
}

// Retriever runs hybrid keyword + semantic retrieval over the chunk indexes.
type Retriever struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	cfg          *config.RetrievalConfig
	logger       *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRetriever creates a retriever with the given dependencies.
func NewRetriever(
	store storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	cfg *config.RetrievalConfig,
	opts ...Option,
) *Retriever {
	r := &Retriever{
		storage:      store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		cfg:          cfg,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs both retrieval legs in parallel, fuses the scores, and returns
// the top limit chunks with their candidate index.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) (*RetrievedSet, error) {
	if limit <= 0 {
		limit = r.cfg.DefaultLimit
	}
	topK := r.cfg.TopKCandidates
	if topK < limit {
		topK = limit
	}

	var (
		keywordResults  []*keyword.KeywordResult
		semanticResults []*vector.VectorResult
		errChan         = make(chan error, 2)
		wg              sync.WaitGroup
	)

	if r.cfg.KeywordWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := r.keywordIndex.Search(ctx, query, topK)
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordResults = results
		}()
	}

	if r.cfg.SemanticWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queryEmbedding, err := r.embedder.Embed(ctx, query)
			if err != nil {
				errChan <- fmt.Errorf("embedding failed: %w", err)
				return
			}
			results, err := r.vectorIndex.Search(ctx, queryEmbedding, topK)
			if err != nil {
				errChan <- fmt.Errorf("vector search failed: %w", err)
				return
			}
			semanticResults = results
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	hits := Fuse(
		NormalizeKeywordScores(keywordResults),
		NormalizeSemanticScores(semanticResults),
		r.cfg.KeywordWeight,
		r.cfg.SemanticWeight,
	)
	if len(hits) > limit {
		hits = hits[:limit]
	}

	set, err := r.materialize(ctx, hits)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("retrieval complete",
		zap.Int("chunks", len(set.Chunks)),
		zap.Int("candidates", len(set.Candidates)))
	return set, nil
}

// materialize loads chunk rows for the fused hits, preserving rank order, and
// derives the distinct candidate index. Hits whose chunk row is gone (a stale
// index entry) are dropped.
func (r *Retriever) materialize(ctx context.Context, hits []*FusedHit) (*RetrievedSet, error) {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	rows, err := r.storage.GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	byID := make(map[string]*models.Chunk, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}

	set := &RetrievedSet{
		Metadata: make(map[string]models.CandidateMetadata),
	}
	seen := make(map[string]bool)
	for _, h := range hits {
		chunk, ok := byID[h.ChunkID]
		if !ok {
			r.logger.Warn("chunk missing from storage", zap.String("chunk_id", h.ChunkID))
			continue
		}
		set.Chunks = append(set.Chunks, &ScoredChunk{
			Chunk:         chunk,
			Score:         h.Score,
			KeywordScore:  h.KeywordScore,
			SemanticScore: h.SemanticScore,
			Rank:          len(set.Chunks) + 1,
		})
		if !seen[chunk.DocumentID] {
			seen[chunk.DocumentID] = true
			set.Candidates = append(set.Candidates, models.Source{
				CandidateID: chunk.DocumentID,
				DisplayName: chunk.CandidateName,
			})
			set.Metadata[chunk.DocumentID] = chunk.Metadata
		}
	}
	return set, nil
}
