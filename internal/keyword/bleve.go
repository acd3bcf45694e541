// Package keyword provides the Bleve implementation of KeywordIndex.
package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/hyperjump/rirekisho/internal/models"
)

// BleveIndex implements KeywordIndex using Bleve. Chunks are indexed
// individually so keyword hits line up with vector hits at chunk granularity.
type BleveIndex struct {
	index bleve.Index
}

// chunkDoc is the shape Bleve actually indexes.
type chunkDoc struct {
	Content       string `json:"content"`
	CandidateName string `json:"candidate_name"`
	Section       string `json:"section"`
}

// candidateNameBoost makes name matches outrank body matches so "Tell me about
// María" surfaces María's chunks first.
const candidateNameBoost = 2.0

func indexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so skill terms like
	// "kubernetes" match exactly; the English analyzer would stem names and
	// technologies into unsearchable forms.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("candidate_name", textFieldMapping)
	docMapping.AddFieldMappingsAt("section", bleve.NewKeywordFieldMapping())
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// reused; remove the directory to force a rebuild after a mapping change.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, indexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemOnlyIndex creates an in-memory Bleve index, used in tests.
func NewMemOnlyIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes a single chunk.
func (b *BleveIndex) Index(ctx context.Context, chunk *models.Chunk) error {
	return b.index.Index(chunk.ID, chunkDoc{
		Content:       chunk.Content,
		CandidateName: chunk.CandidateName,
		Section:       string(chunk.Section),
	})
}

// IndexBatch indexes chunks in one Bleve batch.
func (b *BleveIndex) IndexBatch(ctx context.Context, chunks []*models.Chunk) error {
	batch := b.index.NewBatch()
	for _, chunk := range chunks {
		if err := batch.Index(chunk.ID, chunkDoc{
			Content:       chunk.Content,
			CandidateName: chunk.CandidateName,
			Section:       string(chunk.Section),
		}); err != nil {
			return fmt.Errorf("failed to batch chunk %s: %w", chunk.ID, err)
		}
	}
	return b.index.Batch(batch)
}

// Search runs a match query over content and candidate name, with name matches
// boosted, and returns up to limit chunk hits.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error) {
	contentQuery := bleve.NewMatchQuery(query)
	contentQuery.SetField("content")

	nameQuery := bleve.NewMatchQuery(query)
	nameQuery.SetField("candidate_name")
	nameQuery.SetBoost(candidateNameBoost)

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(contentQuery, nameQuery))
	req.Size = limit

	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes chunks from the index by id.
func (b *BleveIndex) Delete(ctx context.Context, ids []string) error {
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return b.index.Batch(batch)
}

// DocCount returns the total number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
