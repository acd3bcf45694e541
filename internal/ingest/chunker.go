// Package ingest turns candidate CVs into stored, embedded, and indexed chunks.
package ingest

import (
	"fmt"
	"strings"

	"github.com/hyperjump/rirekisho/internal/models"
)

const (
	defaultChunkSize    = 200
	defaultChunkOverlap = 30
)

// Chunker splits a CV into section-aware chunks using a sliding word window.
// Every chunk of a document gets an identical copy of the document's metadata:
// chunk boundaries never change what the retriever knows about a candidate.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given word window size and overlap.
// Non-positive values fall back to defaults.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = defaultChunkOverlap
		if chunkOverlap >= chunkSize {
			chunkOverlap = chunkSize / 4
		}
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// segment is a rendered section of a CV, chunked independently so no chunk
// straddles a section boundary.
type segment struct {
	section models.SectionType
	text    string
}

// Chunk splits the document into chunks. Structured sections are rendered and
// chunked per section; if no sections are present the raw content is chunked
// as a single summary segment. Chunk IDs are deterministic: <docID>_c<index>.
func (c *Chunker) Chunk(docID, candidateName string, sections models.Sections, content string, md models.CandidateMetadata) []*models.Chunk {
	segments := renderSections(sections)
	if len(segments) == 0 && strings.TrimSpace(content) != "" {
		segments = []segment{{section: models.SectionSummary, text: content}}
	}

	var chunks []*models.Chunk
	for _, seg := range segments {
		for _, text := range c.split(seg.text) {
			idx := len(chunks)
			chunks = append(chunks, &models.Chunk{
				ID:            fmt.Sprintf("%s_c%d", docID, idx),
				DocumentID:    docID,
				CandidateName: candidateName,
				Section:       seg.section,
				Content:       text,
				ChunkIndex:    idx,
				Metadata:      md,
			})
		}
	}
	return chunks
}

// split breaks text into overlapping word windows.
func (c *Chunker) split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= c.chunkSize {
		return []string{strings.Join(words, " ")}
	}

	step := c.chunkSize - c.chunkOverlap
	if step < 1 {
		step = 1
	}

	var parts []string
	for start := 0; start < len(words); start += step {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		parts = append(parts, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return parts
}

// renderSections flattens structured CV sections into plain-text segments.
func renderSections(sections models.Sections) []segment {
	var segments []segment

	if s := strings.TrimSpace(sections.Summary); s != "" {
		segments = append(segments, segment{section: models.SectionSummary, text: s})
	}

	if len(sections.Experience) > 0 {
		var sb strings.Builder
		for _, e := range sections.Experience {
			sb.WriteString(renderExperience(e))
			sb.WriteString("\n")
		}
		segments = append(segments, segment{section: models.SectionExperience, text: sb.String()})
	}

	if len(sections.Education) > 0 {
		segments = append(segments, segment{
			section: models.SectionEducation,
			text:    strings.Join(sections.Education, "\n"),
		})
	}

	if len(sections.Skills) > 0 {
		segments = append(segments, segment{
			section: models.SectionSkills,
			text:    strings.Join(sections.Skills, ", "),
		})
	}

	return segments
}

func renderExperience(e models.ExperienceEntry) string {
	end := e.End
	if end == "" {
		end = "present"
	}
	var sb strings.Builder
	sb.WriteString(e.Title)
	if e.Company != "" {
		sb.WriteString(" at ")
		sb.WriteString(e.Company)
	}
	if e.Start != "" {
		fmt.Fprintf(&sb, " (%s to %s)", e.Start, end)
	}
	sb.WriteString(".")
	if e.Details != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Details)
	}
	return sb.String()
}
