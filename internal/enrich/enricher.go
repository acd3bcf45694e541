// Package enrich computes whole-document candidate signals (tenure, job hopping,
// employment gaps) that get stamped onto every chunk of a document.
package enrich

import (
	"sort"
	"time"

	"github.com/hyperjump/rirekisho/internal/models"
	"github.com/hyperjump/rirekisho/pkg/utils"
)

const (
	monthLayout = "2006-01"
	// gapThresholdMonths is the minimum span between two consecutive positions
	// that counts as an employment gap.
	gapThresholdMonths = 6
)

// Enricher derives CandidateMetadata from a document's structured sections.
// It never looks at chunk boundaries: a document split into 3 chunks or 30
// produces identical metadata values.
type Enricher struct {
	now func() time.Time
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithNow fixes the clock used for open-ended (current) positions. Used in tests.
func WithNow(now func() time.Time) EnricherOption {
	return func(e *Enricher) { e.now = now }
}

// NewEnricher creates an enricher.
func NewEnricher(opts ...EnricherOption) *Enricher {
	e := &Enricher{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute derives metadata from the complete document sections. Missing or empty
// experience yields the zero-value metadata (a legitimate "no experience listed"
// candidate), never an error.
func (e *Enricher) Compute(sections models.Sections) models.CandidateMetadata {
	spans := e.parseSpans(sections.Experience)
	md := models.CandidateMetadata{PositionCount: len(spans)}
	if len(spans) == 0 {
		return md
	}

	var totalMonths float64
	for _, s := range spans {
		totalMonths += s.months
	}
	md.TotalExperienceYears = round2(totalMonths / 12)
	md.AvgTenureYears = round2(totalMonths / 12 / float64(len(spans)))
	md.EmploymentGapsCount = countGaps(spans)
	md.JobHoppingScore = round2(jobHoppingScore(len(spans), md.TotalExperienceYears, md.AvgTenureYears))
	return md
}

type span struct {
	start  time.Time
	end    time.Time
	months float64
}

// parseSpans converts experience entries into time spans sorted by start date.
// Entries with an unparseable start date are dropped; an empty or unparseable
// end date means the position is current.
func (e *Enricher) parseSpans(entries []models.ExperienceEntry) []span {
	now := e.now()
	spans := make([]span, 0, len(entries))
	for _, entry := range entries {
		start, err := time.Parse(monthLayout, entry.Start)
		if err != nil {
			continue
		}
		end := now
		if entry.End != "" {
			if parsed, err := time.Parse(monthLayout, entry.End); err == nil {
				end = parsed
			}
		}
		if end.Before(start) {
			continue
		}
		spans = append(spans, span{start: start, end: end, months: monthsBetween(start, end)})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })
	return spans
}

// countGaps counts spans of at least gapThresholdMonths between the latest end
// seen so far and the next position's start. Overlapping positions never count.
func countGaps(spans []span) int {
	gaps := 0
	latestEnd := spans[0].end
	for _, s := range spans[1:] {
		if monthsBetween(latestEnd, s.start) >= gapThresholdMonths {
			gaps++
		}
		if s.end.After(latestEnd) {
			latestEnd = s.end
		}
	}
	return gaps
}

// jobHoppingScore maps tenure and position density into [0,1]. Zero positions
// score 0. Short average tenure dominates; holding many positions in few years
// adds the rest.
func jobHoppingScore(positions int, totalYears, avgTenure float64) float64 {
	if positions == 0 {
		return 0
	}
	tenure := utils.Clamp01((3.0 - avgTenure) / 3.0)
	years := totalYears
	if years < 1 {
		years = 1
	}
	density := utils.Clamp01((float64(positions)/years - 0.5) / 1.5)
	return utils.Clamp01(0.6*tenure + 0.4*density)
}

// monthsBetween returns the (possibly fractional) number of months from a to b.
func monthsBetween(a, b time.Time) float64 {
	if b.Before(a) {
		return 0
	}
	return b.Sub(a).Hours() / 24 / 30.44
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
