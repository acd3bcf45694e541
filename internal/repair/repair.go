// Package repair rewrites malformed candidate references in generated text into
// the canonical citation form [Display Name](cv:<candidate_id>).
//
// Rewriting is driven off the known candidate index: only ids present in the
// index are ever touched, so hallucinated ids stay as literal text, and running
// Repair on already-clean output changes nothing.
package repair

import (
	"fmt"
	"regexp"

	"github.com/hyperjump/rirekisho/internal/models"
)

// Canonical returns the canonical citation for a candidate.
func Canonical(name, id string) string {
	return fmt.Sprintf("[%s](cv:%s)", name, id)
}

// Repair rewrites the three malformed citation shapes for every candidate in
// index. It is idempotent: none of the patterns match canonical output.
func Repair(text string, index []models.Source) string {
	for _, c := range index {
		if c.CandidateID == "" || c.DisplayName == "" {
			continue
		}
		text = repairCandidate(text, c)
	}
	return text
}

func repairCandidate(text string, c models.Source) string {
	id := regexp.QuoteMeta(c.CandidateID)
	name := regexp.QuoteMeta(c.DisplayName)

	// Shape: **Noun** <id> [<id>](<id>) mid-sentence. When the bolded noun is
	// the candidate's display name this is a mangled citation; otherwise the
	// model bolted a candidate id onto something that is not a candidate (a
	// certification name, say) and the fragment is stripped.
	boldID := regexp.MustCompile(`\*\*([^*\n]+)\*\*[ \t]*` + id + `[ \t]*\[` + id + `\]\(` + id + `\)`)
	text = boldID.ReplaceAllStringFunc(text, func(m string) string {
		sub := boldID.FindStringSubmatch(m)
		if sub[1] == c.DisplayName {
			return Canonical(c.DisplayName, c.CandidateID)
		}
		return "**" + sub[1] + "**"
	})

	// Shape: Name <id> [<id>](<id>) — name followed by a bare id and a
	// duplicated markdown link of the same id.
	dupLink := regexp.MustCompile(name + `[ \t]+` + id + `[ \t]*\[` + id + `\]\(` + id + `\)`)
	text = dupLink.ReplaceAllString(text, Canonical(c.DisplayName, c.CandidateID))

	// Shape: bare trailing "Name <id>" at a sentence boundary, no brackets.
	// Rewritten to the bold canonical form.
	trailing := regexp.MustCompile(`(^|[\s(])` + name + `[ \t]+` + id + `($|[\s.,;:!?)])`)
	text = trailing.ReplaceAllString(text,
		fmt.Sprintf("${1}**%s**${2}", Canonical(c.DisplayName, c.CandidateID)))

	return text
}
