// Package redflag detects per-candidate risk signals from whole-document metadata.
//
// Detection is a pure function of CandidateMetadata. Both the pre-generation
// prompt narrative and the post-generation structured section call the same
// Detect, so the two views of a candidate's flags can never disagree within one
// response.
package redflag

import (
	"fmt"
	"strings"

	"github.com/hyperjump/rirekisho/internal/models"
)

// Severity grades a flag.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// FlagType identifies the kind of signal.
type FlagType string

const (
	FlagJobHopping     FlagType = "job_hopping"
	FlagShortAvgTenure FlagType = "short_avg_tenure"
	FlagEntryLevel     FlagType = "entry_level"
	FlagEmploymentGap  FlagType = "employment_gap"
)

// RedFlag is one signal about a candidate.
type RedFlag struct {
	Type        FlagType `json:"flag_type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Threshold constants. detect and Narrative both go through Detect, so these
// are the single source of truth.
const (
	jobHoppingHigh     = 0.6
	jobHoppingMedium   = 0.4
	shortTenureYears   = 1.5
	manyPositionsCount = 6
	manyPositionsYears = 10.0
)

// Detect returns the flags implied by md, in a stable order. It never consults
// retrieved chunks: metadata is computed from the complete document, so the
// result is independent of what retrieval surfaced.
func Detect(md models.CandidateMetadata) []RedFlag {
	var flags []RedFlag

	switch {
	case md.JobHoppingScore > jobHoppingHigh:
		flags = append(flags, RedFlag{
			Type:     FlagJobHopping,
			Severity: SeverityHigh,
			Description: fmt.Sprintf("very frequent job changes (score %.2f, %d positions over %.1f years)",
				md.JobHoppingScore, md.PositionCount, md.TotalExperienceYears),
		})
	case md.JobHoppingScore > jobHoppingMedium:
		flags = append(flags, RedFlag{
			Type:     FlagJobHopping,
			Severity: SeverityMedium,
			Description: fmt.Sprintf("frequent job changes (score %.2f, %d positions over %.1f years)",
				md.JobHoppingScore, md.PositionCount, md.TotalExperienceYears),
		})
	}

	if md.PositionCount > 0 && md.AvgTenureYears < shortTenureYears {
		flags = append(flags, RedFlag{
			Type:        FlagShortAvgTenure,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("average tenure of %.1f years per position", md.AvgTenureYears),
		})
	}

	// Supporting job-hopping signal: many positions with modest total experience.
	// Only added when the score rules above produced nothing, so a candidate never
	// carries two job_hopping flags.
	if md.PositionCount > manyPositionsCount && md.TotalExperienceYears < manyPositionsYears &&
		md.JobHoppingScore <= jobHoppingMedium {
		flags = append(flags, RedFlag{
			Type:     FlagJobHopping,
			Severity: SeverityMedium,
			Description: fmt.Sprintf("%d positions within %.1f years of experience",
				md.PositionCount, md.TotalExperienceYears),
		})
	}

	if md.PositionCount == 0 && md.TotalExperienceYears == 0 {
		flags = append(flags, RedFlag{
			Type:        FlagEntryLevel,
			Severity:    SeverityLow,
			Description: "no work experience listed (entry-level candidate)",
		})
	}

	if md.EmploymentGapsCount >= 1 {
		flags = append(flags, RedFlag{
			Type:        FlagEmploymentGap,
			Severity:    gapSeverity(md.EmploymentGapsCount),
			Description: fmt.Sprintf("%d employment gap(s) of six months or more", md.EmploymentGapsCount),
		})
	}

	return flags
}

// gapSeverity scales with the gap count: 1 gap is low, 2 medium, 3 or more high.
func gapSeverity(count int) Severity {
	switch {
	case count >= 3:
		return SeverityHigh
	case count == 2:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Narrative renders the flags of each candidate as a plain-text block for the
// generation prompt. Candidates without flags are reported as such so the model
// does not invent concerns. Order follows the candidates slice.
func Narrative(candidates []models.Source, metadata map[string]models.CandidateMetadata) string {
	var b strings.Builder
	for _, c := range candidates {
		flags := Detect(metadata[c.CandidateID])
		if len(flags) == 0 {
			fmt.Fprintf(&b, "- %s: no stability concerns detected\n", c.DisplayName)
			continue
		}
		fmt.Fprintf(&b, "- %s:\n", c.DisplayName)
		for _, f := range flags {
			fmt.Fprintf(&b, "  - [%s/%s] %s\n", f.Type, f.Severity, f.Description)
		}
	}
	return b.String()
}
