package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/rirekisho/internal/models"
)

// Classifier classifies queries over the candidate pool.
type Classifier struct{}

// NewClassifier creates a classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify runs the two-stage decision procedure:
//
//  1. Multi-candidate test: the ordered multiRules table, on query text alone.
//  2. Single-candidate test, in priority order: explicit candidate name in the
//     query, then a sole distinct candidate in the retrieved set, then the
//     implicit-reference rule table.
//  3. Default: generic search intent. This covers "no rule matched"; it is a
//     documented fallback, never an error.
//
// candidates are the distinct candidates present in the retrieved set, in rank
// order. Ties cannot occur: rules are checked in fixed order and each stage
// stops on its first match.
func (c *Classifier) Classify(query string, candidates []models.Source) Result {
	for _, r := range multiRules {
		if r.pattern.MatchString(query) {
			return Result{Intent: r.intent, Method: r.id}
		}
	}

	if target, ok := matchExplicitName(query, candidates); ok {
		return Result{Intent: IntentSingleCandidate, Method: "single:explicit_name", Target: target}
	}

	if len(candidates) == 1 {
		target := candidates[0]
		return Result{Intent: IntentSingleCandidate, Method: "single:sole_candidate", Target: &target}
	}

	for _, r := range implicitSingleRules {
		if r.pattern.MatchString(query) {
			// The target is the best-ranked candidate in view; rank order comes
			// from retrieval, which is what "the top one" refers to.
			var target *models.Source
			if len(candidates) > 0 {
				t := candidates[0]
				target = &t
			}
			return Result{Intent: r.intent, Method: r.id, Target: target}
		}
	}

	return Result{Intent: IntentSearch, Method: "fallback:search"}
}

// matchExplicitName reports whether the query names one of the candidates.
// Matching is case-insensitive on the full display name or any name token of
// three or more characters, bounded by non-letter characters.
func matchExplicitName(query string, candidates []models.Source) (*models.Source, bool) {
	queryLower := strings.ToLower(query)
	for i := range candidates {
		name := strings.ToLower(candidates[i].DisplayName)
		if name == "" {
			continue
		}
		if containsWord(queryLower, name) {
			return &candidates[i], true
		}
		for _, token := range strings.Fields(name) {
			if len([]rune(token)) >= 3 && containsWord(queryLower, token) {
				return &candidates[i], true
			}
		}
	}
	return nil, false
}

// containsWord reports whether word occurs in text bounded by non-letter runes.
// Boundaries are decoded as runes so accented letters (ñ, é, ...) count as
// letters rather than splitting a word.
func containsWord(text, word string) bool {
	idx := 0
	for {
		pos := strings.Index(text[idx:], word)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(word)
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		beforeOK := start == 0 || !unicode.IsLetter(before)
		afterOK := end == len(text) || !unicode.IsLetter(after)
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}
