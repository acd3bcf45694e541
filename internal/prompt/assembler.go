// Package prompt builds the generation prompt from the classification result,
// the retrieved chunks, and the per-candidate red-flag narrative.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/rirekisho/internal/classify"
	"github.com/hyperjump/rirekisho/internal/models"
	"github.com/hyperjump/rirekisho/internal/retrieval"
)

// intentInstructions steer the generator per classified intent.
var intentInstructions = map[classify.Intent]string{
	classify.IntentSingleCandidate: "Answer the question about the single candidate in focus. Do not bring in other candidates unless the question requires contrast.",
	classify.IntentComparison:      "Compare the candidates side by side on the dimensions the question raises, then state which candidate is stronger and why.",
	classify.IntentRanking:         "Rank the candidates from strongest to weakest for the question asked, with a one-line justification per candidate.",
	classify.IntentRedFlags:        "Assess employment stability concerns for each candidate using the stability assessment provided below. Do not infer concerns that the assessment does not support.",
	classify.IntentJobMatch:        "Evaluate how well each candidate fits the stated role or requirements and recommend the best fit.",
	classify.IntentTeamBuild:       "Propose a team composed from these candidates, explaining what each selected member contributes.",
	classify.IntentVerification:    "Verify the claim in the question strictly against the CV excerpts. State clearly whether the excerpts support, contradict, or do not mention it.",
	classify.IntentSummary:         "Summarize the candidate pool: overall strengths, notable gaps, and who stands out.",
	classify.IntentSearch:          "Answer the question using only the CV excerpts below.",
}

// criteriaMarkers detect whether the query states its own evaluation criteria
// (a role, a skill set, an explicit dimension). English and Spanish variants.
var criteriaMarkers = regexp.MustCompile(`(?i)\b(for|based on|in terms of|by|with|regarding|para|según|segun|basado en|con|en cuanto a|respecto a)\b`)

// criteriaIntents are the intents whose answers are meaningless without
// evaluation criteria.
var criteriaIntents = map[classify.Intent]bool{
	classify.IntentComparison: true,
	classify.IntentRanking:    true,
	classify.IntentJobMatch:   true,
	classify.IntentTeamBuild:  true,
}

// Build assembles the full generation prompt. The prompt embeds the red-flag
// narrative verbatim so the generator and the post-generation structured
// modules describe stability from the same source.
func Build(query string, cls classify.Result, set *retrieval.RetrievedSet, flagNarrative string) string {
	var b strings.Builder

	b.WriteString("You are a recruitment analyst answering questions about a pool of candidate CVs.\n\n")
	b.WriteString(intentInstructions[cls.Intent])
	b.WriteString("\n")
	if cls.Target != nil {
		fmt.Fprintf(&b, "The candidate in focus is %s.\n", cls.Target.DisplayName)
	}
	if criteriaIntents[cls.Intent] && !hasCriteria(query) {
		b.WriteString("The question states no evaluation criteria. Declare the criteria you apply before using them; do not invent an unstated role or requirement.\n")
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Cite a candidate exactly as [Display Name](cv:<candidate_id>) using the ids listed below.\n")
	b.WriteString("- Never output any internal identifier outside that citation form.\n")
	b.WriteString("- Use only the CV excerpts provided; say so when they do not answer the question.\n")
	b.WriteString("- Answer in the language the question was asked in.\n")

	b.WriteString("\nCandidates:\n")
	for _, c := range set.Candidates {
		fmt.Fprintf(&b, "- %s — cite as [%s](cv:%s)\n", c.DisplayName, c.DisplayName, c.CandidateID)
	}

	if flagNarrative != "" {
		b.WriteString("\nStability assessment (precomputed from full work histories; treat as authoritative):\n")
		b.WriteString(flagNarrative)
		b.WriteString("\n")
	}

	b.WriteString("\nCV excerpts:\n")
	writeExcerpts(&b, set)

	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n")
	return b.String()
}

// writeExcerpts renders retrieved chunk text grouped per candidate, in
// retrieval rank order. Chunk ids never appear.
func writeExcerpts(b *strings.Builder, set *retrieval.RetrievedSet) {
	byCandidate := make(map[string][]*models.Chunk)
	for _, sc := range set.Chunks {
		byCandidate[sc.Chunk.DocumentID] = append(byCandidate[sc.Chunk.DocumentID], sc.Chunk)
	}
	for _, c := range set.Candidates {
		fmt.Fprintf(b, "\n### %s\n", c.DisplayName)
		for _, chunk := range byCandidate[c.CandidateID] {
			fmt.Fprintf(b, "[%s] %s\n", chunk.Section, chunk.Content)
		}
	}
}

func hasCriteria(query string) bool {
	return criteriaMarkers.MatchString(query)
}
