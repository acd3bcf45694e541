// Package classify assigns an intent to a candidate-pool query using an ordered,
// bilingual (English/Spanish) rule table evaluated first-match-wins.
package classify

import "github.com/hyperjump/rirekisho/internal/models"

// Intent is the classified purpose of a query. It drives which output modules run.
type Intent string

const (
	IntentSingleCandidate Intent = "single_candidate"
	IntentComparison      Intent = "comparison"
	IntentRanking         Intent = "ranking"
	IntentRedFlags        Intent = "red_flags"
	IntentJobMatch        Intent = "job_match"
	IntentTeamBuild       Intent = "team_build"
	IntentVerification    Intent = "verification"
	IntentSummary         Intent = "summary"
	IntentSearch          Intent = "search"
)

// Result is the outcome of classification. Method names the exact rule that
// fired (e.g. "multi:comparison:en", "single:sole_candidate"); downstream code
// and tests assert on it, so it is part of the contract, not a debugging aid.
type Result struct {
	Intent Intent `json:"intent"`
	Method string `json:"method"`
	// Target is set when the query addresses one specific candidate.
	Target *models.Source `json:"target,omitempty"`
}
