package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/rirekisho/internal/embedding"
	"github.com/hyperjump/rirekisho/internal/enrich"
	"github.com/hyperjump/rirekisho/internal/fileid"
	"github.com/hyperjump/rirekisho/internal/keyword"
	"github.com/hyperjump/rirekisho/internal/models"
	"github.com/hyperjump/rirekisho/internal/storage"
	"github.com/hyperjump/rirekisho/internal/vector"
	"github.com/hyperjump/rirekisho/pkg/utils"
)

// Ingestor publishes candidate CVs: it enriches, chunks, embeds, stores, and
// indexes a document as one logical operation. A failure at any step leaves no
// partial candidate behind.
type Ingestor struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	enricher     *enrich.Enricher
	chunker      *Chunker
	logger       *zap.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Ingestor) { i.logger = logger }
}

// NewIngestor creates an ingestor.
func NewIngestor(store storage.Storage, embedder embedding.Embedder, vectorIndex vector.VectorIndex, keywordIndex keyword.KeywordIndex, enricher *enrich.Enricher, chunker *Chunker, opts ...Option) *Ingestor {
	i := &Ingestor{
		storage:      store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		enricher:     enricher,
		chunker:      chunker,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest publishes one candidate CV. An input reusing an existing document ID
// replaces that document (delete + re-ingest). Metadata is computed once from
// the whole document and stamped identically on every chunk.
func (i *Ingestor) Ingest(ctx context.Context, input *models.CandidateInput) (*models.Document, error) {
	name := strings.TrimSpace(input.CandidateName)
	if name == "" {
		return nil, fmt.Errorf("candidate name is required")
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	content := utils.NormalizeWhitespace(input.Content)
	md := i.enricher.Compute(input.Sections)

	chunks := i.chunker.Chunk(id, name, input.Sections, content, md)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("candidate %q has no content to index", name)
	}
	if content == "" {
		content = joinChunkText(chunks)
	}

	doc := &models.Document{
		ID:            id,
		CandidateName: name,
		Content:       content,
		Sections:      input.Sections,
		Metadata:      md,
		CreatedAt:     time.Now(),
	}

	texts := make([]string, len(chunks))
	for n, ch := range chunks {
		texts[n] = ch.Content
	}
	embeddings, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}
	ids := make([]string, len(chunks))
	for n, ch := range chunks {
		ch.Embedding = embeddings[n]
		ids[n] = ch.ID
	}

	// Replace any previous ingestion of the same document ID.
	if _, err := i.storage.GetDocument(ctx, id); err == nil {
		if err := i.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to replace document %s: %w", id, err)
		}
	}

	if err := i.storage.PublishDocument(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	if err := i.vectorIndex.Add(ctx, ids, embeddings); err != nil {
		i.rollback(ctx, id, nil)
		return nil, fmt.Errorf("failed to index vectors: %w", err)
	}
	if err := i.keywordIndex.IndexBatch(ctx, chunks); err != nil {
		i.rollback(ctx, id, ids)
		return nil, fmt.Errorf("failed to index keywords: %w", err)
	}

	i.logger.Info("candidate ingested",
		zap.String("document_id", id),
		zap.String("candidate", name),
		zap.Int("chunks", len(chunks)),
		zap.Int("positions", md.PositionCount))
	return doc, nil
}

// Delete removes a candidate document from storage and both indexes.
func (i *Ingestor) Delete(ctx context.Context, docID string) error {
	chunks, err := i.storage.GetChunksByDocumentID(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to load chunks for %s: %w", docID, err)
	}
	ids := make([]string, len(chunks))
	for n, ch := range chunks {
		ids[n] = ch.ID
	}

	if err := i.vectorIndex.Remove(ctx, ids); err != nil {
		return fmt.Errorf("failed to remove vectors for %s: %w", docID, err)
	}
	if err := i.keywordIndex.Delete(ctx, ids); err != nil {
		return fmt.Errorf("failed to remove keywords for %s: %w", docID, err)
	}
	if err := i.storage.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", docID, err)
	}

	i.logger.Info("candidate deleted", zap.String("document_id", docID), zap.Int("chunks", len(ids)))
	return nil
}

// IngestFile ingests one CV file from a drop directory. JSON files carry a
// structured CandidateInput; .txt and .md files are ingested as plain content
// with the candidate name derived from the filename. The document ID is
// derived from the path, so re-dropping a file replaces its candidate.
func (i *Ingestor) IngestFile(ctx context.Context, path string) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	input := &models.CandidateInput{ID: fileid.FileDocID(path)}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, input); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		// The ID always comes from the path, even if the file carries one.
		input.ID = fileid.FileDocID(path)
	case ".txt", ".md":
		input.Content = string(data)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	if input.CandidateName == "" {
		input.CandidateName = nameFromFilename(path)
	}
	return i.Ingest(ctx, input)
}

// rollback undoes a partially published document. Best effort: failures here
// are logged, not returned, since the caller already has the primary error.
func (i *Ingestor) rollback(ctx context.Context, docID string, vectorIDs []string) {
	if len(vectorIDs) > 0 {
		if err := i.vectorIndex.Remove(ctx, vectorIDs); err != nil {
			i.logger.Warn("rollback: vector removal failed", zap.String("document_id", docID), zap.Error(err))
		}
	}
	if err := i.storage.DeleteDocument(ctx, docID); err != nil {
		i.logger.Warn("rollback: document deletion failed", zap.String("document_id", docID), zap.Error(err))
	}
}

func joinChunkText(chunks []*models.Chunk) string {
	parts := make([]string, len(chunks))
	for n, ch := range chunks {
		parts[n] = ch.Content
	}
	return strings.Join(parts, "\n")
}

// nameFromFilename turns "maria-garcia.txt" into "Maria Garcia".
func nameFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	words := strings.Fields(base)
	for n, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			words[n] = strings.ToUpper(string(r[0])) + string(r[1:])
		}
	}
	return strings.Join(words, " ")
}
