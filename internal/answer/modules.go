// Package answer assembles the final response: the repaired LLM text merged
// with intent-specific structured sections rendered by output modules.
package answer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/rirekisho/internal/classify"
	"github.com/hyperjump/rirekisho/internal/models"
	"github.com/hyperjump/rirekisho/internal/redflag"
)

// ModuleInput is what output modules render from. Modules never see the
// repaired LLM text; they work from the candidate index and metadata alone.
type ModuleInput struct {
	Candidates []models.Source
	Metadata   map[string]models.CandidateMetadata
	Flags      map[string][]redflag.RedFlag
}

// Module renders one structured section. Render returns nil when there is
// nothing to show; such sections are omitted, never rendered empty.
type Module interface {
	Kind() string
	Render(in ModuleInput) *models.StructuredSection
}

// ModulesFor returns the modules implied by the intent. The red-flags module is
// always included: stability is treated as a cross-cutting enrichment
// regardless of what the question asked.
func ModulesFor(intent classify.Intent) []Module {
	modules := []Module{redFlagsModule{}}
	switch intent {
	case classify.IntentRanking, classify.IntentTeamBuild:
		modules = append(modules, rankingModule{})
	case classify.IntentComparison, classify.IntentJobMatch:
		modules = append(modules, comparisonModule{})
	}
	return modules
}

// redFlagsModule lists every detected flag per candidate.
type redFlagsModule struct{}

func (redFlagsModule) Kind() string { return "red_flags" }

func (redFlagsModule) Render(in ModuleInput) *models.StructuredSection {
	var b strings.Builder
	any := false
	for _, c := range in.Candidates {
		flags := in.Flags[c.CandidateID]
		if len(flags) == 0 {
			continue
		}
		any = true
		fmt.Fprintf(&b, "**%s**\n", c.DisplayName)
		for _, f := range flags {
			fmt.Fprintf(&b, "- %s (%s): %s\n", f.Type, f.Severity, f.Description)
		}
	}
	if !any {
		return nil
	}
	return &models.StructuredSection{
		Kind:     "red_flags",
		Title:    "Stability flags",
		Markdown: b.String(),
	}
}

// rankingModule renders the candidate overview table used for ranking and
// team-building answers. Row order follows the candidate index (retrieval
// rank), not the LLM's opinion.
type rankingModule struct{}

func (rankingModule) Kind() string { return "ranking_table" }

func (rankingModule) Render(in ModuleInput) *models.StructuredSection {
	if len(in.Candidates) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("| Candidate | Experience (yrs) | Positions | Avg tenure (yrs) | Stability |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, c := range in.Candidates {
		md := in.Metadata[c.CandidateID]
		fmt.Fprintf(&b, "| [%s](cv:%s) | %.1f | %d | %.1f | %s |\n",
			c.DisplayName, c.CandidateID,
			md.TotalExperienceYears, md.PositionCount, md.AvgTenureYears,
			stabilityLabel(in.Flags[c.CandidateID]))
	}
	return &models.StructuredSection{
		Kind:     "ranking_table",
		Title:    "Candidate overview",
		Markdown: b.String(),
	}
}

// comparisonModule renders a dimension-by-dimension table, one column per
// candidate. Used for comparison and job-match answers.
type comparisonModule struct{}

func (comparisonModule) Kind() string { return "comparison_table" }

func (comparisonModule) Render(in ModuleInput) *models.StructuredSection {
	if len(in.Candidates) < 2 {
		return nil
	}
	var b strings.Builder

	b.WriteString("| |")
	for _, c := range in.Candidates {
		fmt.Fprintf(&b, " [%s](cv:%s) |", c.DisplayName, c.CandidateID)
	}
	b.WriteString("\n|---|")
	b.WriteString(strings.Repeat("---|", len(in.Candidates)))
	b.WriteString("\n")

	row := func(label string, cell func(md models.CandidateMetadata, flags []redflag.RedFlag) string) {
		fmt.Fprintf(&b, "| %s |", label)
		for _, c := range in.Candidates {
			fmt.Fprintf(&b, " %s |", cell(in.Metadata[c.CandidateID], in.Flags[c.CandidateID]))
		}
		b.WriteString("\n")
	}
	row("Experience (yrs)", func(md models.CandidateMetadata, _ []redflag.RedFlag) string {
		return fmt.Sprintf("%.1f", md.TotalExperienceYears)
	})
	row("Positions", func(md models.CandidateMetadata, _ []redflag.RedFlag) string {
		return fmt.Sprintf("%d", md.PositionCount)
	})
	row("Avg tenure (yrs)", func(md models.CandidateMetadata, _ []redflag.RedFlag) string {
		return fmt.Sprintf("%.1f", md.AvgTenureYears)
	})
	row("Employment gaps", func(md models.CandidateMetadata, _ []redflag.RedFlag) string {
		return fmt.Sprintf("%d", md.EmploymentGapsCount)
	})
	row("Stability", func(_ models.CandidateMetadata, flags []redflag.RedFlag) string {
		return stabilityLabel(flags)
	})

	return &models.StructuredSection{
		Kind:     "comparison_table",
		Title:    "Side-by-side comparison",
		Markdown: b.String(),
	}
}

// stabilityLabel summarizes flags as the worst severity present.
func stabilityLabel(flags []redflag.RedFlag) string {
	worst := ""
	rank := map[redflag.Severity]int{redflag.SeverityLow: 1, redflag.SeverityMedium: 2, redflag.SeverityHigh: 3}
	best := 0
	for _, f := range flags {
		if r := rank[f.Severity]; r > best {
			best = r
			worst = string(f.Severity)
		}
	}
	if worst == "" {
		return "ok"
	}
	return worst + " risk"
}
