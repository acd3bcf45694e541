package models

// StepStatus is the terminal state of one pipeline stage.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// PipelineStep records one pipeline stage for observability. Steps are appended
// in execution order during a single request and never mutated afterwards.
type PipelineStep struct {
	Step       string     `json:"step"`
	DurationMS int64      `json:"duration_ms"`
	Status     StepStatus `json:"status"`
	// Results is the number of items the stage produced, when that is meaningful
	// (retrieved chunks, detected flags, rendered sections).
	Results *int `json:"results,omitempty"`
}

// Source identifies one candidate cited by an answer.
type Source struct {
	CandidateID string `json:"candidate_id"`
	DisplayName string `json:"display_name"`
}

// StructuredSection is one module-rendered section of the final answer
// (ranking table, comparison table, red-flags list).
type StructuredSection struct {
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// Answer is the final response returned to the presentation layer.
type Answer struct {
	AnswerText         string              `json:"answer_text"`
	Intent             string              `json:"intent"`
	DetectionMethod    string              `json:"detection_method"`
	Sources            []Source            `json:"sources"`
	PipelineSteps      []PipelineStep      `json:"pipeline_steps"`
	StructuredSections []StructuredSection `json:"structured_sections,omitempty"`
	CacheHit           bool                `json:"cache_hit,omitempty"`
}
