// Package models defines core data structures for candidate documents, queries,
// and answers.
package models

import "time"

// Document represents one ingested CV. Documents are immutable after ingestion:
// updates are modeled as delete + re-ingest of the whole document.
type Document struct {
	ID            string            `json:"id" db:"id"`
	CandidateName string            `json:"candidate_name" db:"candidate_name"`
	Content       string            `json:"content" db:"content"`
	Sections      Sections          `json:"sections" db:"sections"`
	Metadata      CandidateMetadata `json:"metadata" db:"metadata"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}

// Sections holds the structured parts of a CV as supplied by the ingestion caller.
type Sections struct {
	Summary    string            `json:"summary,omitempty"`
	Experience []ExperienceEntry `json:"experience,omitempty"`
	Education  []string          `json:"education,omitempty"`
	Skills     []string          `json:"skills,omitempty"`
}

// ExperienceEntry is one position in a CV's work history. Start and End use the
// "YYYY-MM" form; an empty End means the position is current.
type ExperienceEntry struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	Start   string `json:"start"`
	End     string `json:"end,omitempty"`
	Details string `json:"details,omitempty"`
}

// SectionType labels which part of the source CV a chunk covers.
type SectionType string

const (
	SectionSummary    SectionType = "summary"
	SectionExperience SectionType = "experience"
	SectionEducation  SectionType = "education"
	SectionSkills     SectionType = "skills"
)

// CandidateMetadata holds whole-document signals computed once per document and
// replicated verbatim on every chunk. The zero value is the "no experience listed"
// (entry-level) default used when a chunk row carries no metadata.
type CandidateMetadata struct {
	PositionCount        int     `json:"position_count"`
	TotalExperienceYears float64 `json:"total_experience_years"`
	AvgTenureYears       float64 `json:"avg_tenure_years"`
	JobHoppingScore      float64 `json:"job_hopping_score"`
	EmploymentGapsCount  int     `json:"employment_gaps_count"`
}

// Chunk is a retrieval-addressable fragment of a Document. Every chunk of a
// document carries an identical copy of that document's CandidateMetadata,
// regardless of which section the chunk text covers.
type Chunk struct {
	ID            string            `json:"id" db:"id"`
	DocumentID    string            `json:"document_id" db:"document_id"`
	CandidateName string            `json:"candidate_name" db:"candidate_name"`
	Section       SectionType       `json:"section" db:"section"`
	Content       string            `json:"content" db:"content"`
	ChunkIndex    int               `json:"chunk_index" db:"chunk_index"`
	Metadata      CandidateMetadata `json:"metadata" db:"metadata"`
	Embedding     []float32         `json:"-" db:"-"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}

// CandidateInput is the input for ingesting a candidate CV.
type CandidateInput struct {
	ID            string   `json:"id,omitempty"`
	CandidateName string   `json:"candidate_name"`
	Content       string   `json:"content,omitempty"`
	Sections      Sections `json:"sections"`
}
