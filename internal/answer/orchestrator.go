package answer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/rirekisho/internal/classify"
	"github.com/hyperjump/rirekisho/internal/models"
)

// Assemble merges the repaired LLM text with the module-rendered sections into
// the final Answer. Single pass, terminal states only: modules either render a
// section or are skipped, nothing retries here.
func Assemble(cls classify.Result, repairedText string, in ModuleInput, steps []models.PipelineStep) models.Answer {
	var sections []models.StructuredSection
	for _, m := range ModulesFor(cls.Intent) {
		if s := m.Render(in); s != nil {
			sections = append(sections, *s)
		}
	}

	return models.Answer{
		AnswerText:         repairedText,
		Intent:             string(cls.Intent),
		DetectionMethod:    cls.Method,
		Sources:            in.Candidates,
		PipelineSteps:      steps,
		StructuredSections: sections,
	}
}

// RenderMarkdown flattens an Answer into one markdown document with the fixed
// assembly order: pipeline summary, direct answer, structured sections,
// conclusion.
func RenderMarkdown(a models.Answer) string {
	var b strings.Builder

	if len(a.PipelineSteps) > 0 {
		parts := make([]string, len(a.PipelineSteps))
		for i, s := range a.PipelineSteps {
			parts[i] = fmt.Sprintf("%s %dms (%s)", s.Step, s.DurationMS, s.Status)
		}
		fmt.Fprintf(&b, "_Pipeline: %s_\n\n", strings.Join(parts, ", "))
	}

	b.WriteString(a.AnswerText)
	b.WriteString("\n")

	for _, s := range a.StructuredSections {
		fmt.Fprintf(&b, "\n## %s\n\n%s", s.Title, s.Markdown)
	}

	if len(a.Sources) > 0 {
		cites := make([]string, len(a.Sources))
		for i, src := range a.Sources {
			cites[i] = fmt.Sprintf("[%s](cv:%s)", src.DisplayName, src.CandidateID)
		}
		fmt.Fprintf(&b, "\nBased on %d candidate(s): %s\n", len(a.Sources), strings.Join(cites, ", "))
	}
	return b.String()
}
