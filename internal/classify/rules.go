package classify

import "regexp"

// rule is one (pattern, intent) entry. Rules are evaluated in slice order and
// the first match wins, so adding a rule to a family means inserting it next to
// its siblings, not appending at the end.
type rule struct {
	id      string
	intent  Intent
	pattern *regexp.Regexp
}

// multiRules detect queries that address more than one candidate. They fire on
// query text alone, regardless of how many candidates retrieval surfaced
// ("Compare Juan vs María" is a comparison even when only Juan was retrieved).
// Every concept carries an English and a Spanish variant; a query is tested
// against both before the family is considered a non-match.
var multiRules = []rule{
	{"multi:comparison:en", IntentComparison,
		regexp.MustCompile(`(?i)\b(compare|compared|comparison|versus|vs\.?|difference between|differences between)\b`)},
	{"multi:comparison:es", IntentComparison,
		regexp.MustCompile(`(?i)\b(compara(?:r|me)?|comparación|diferencias? entre|frente a)\b`)},

	{"multi:ranking:en", IntentRanking,
		regexp.MustCompile(`(?i)\b(rank(?:ing)?|top\s+\d+|best\s+\d+|(?:order|sort)\s+(?:the\s+)?candidates|most qualified candidates|shortlist)\b`)},
	{"multi:ranking:es", IntentRanking,
		regexp.MustCompile(`(?i)\b(clasifica(?:r)?|ordena(?:r)?|los\s+\d+\s+mejores|mejores\s+\d+|top\s+\d+|preselecciona)\b`)},

	{"multi:team_build:en", IntentTeamBuild,
		regexp.MustCompile(`(?i)\b(?:build|assemble|form|put together)\s+(?:a|an|the)?\s*team\b|\bteam of\b`)},
	{"multi:team_build:es", IntentTeamBuild,
		regexp.MustCompile(`(?i)\b(?:forma(?:r)?|arma(?:r)?|monta(?:r)?)\s+un\s+equipo\b|\bequipo de\b`)},

	{"multi:job_match:en", IntentJobMatch,
		regexp.MustCompile(`(?i)\b(?:fit|match(?:es)?)\s+(?:for\s+)?(?:the|this)\s+(?:role|job|position|opening)\b|\bbest suited\b|\bsuitable for\b|\bwho should we hire\b`)},
	{"multi:job_match:es", IntentJobMatch,
		regexp.MustCompile(`(?i)\bencaja(?:n)?\s+(?:con|en)\b|\bse ajusta(?:n)?\s+a\b|\badecuad[oa]s?\s+para\b|\ba quién deberíamos contratar\b`)},

	{"multi:red_flags:en", IntentRedFlags,
		regexp.MustCompile(`(?i)\bred flags?\b|\bwarning signs?\b|\bconcerns\b|\brisk(?:s|y)?\b`)},
	{"multi:red_flags:es", IntentRedFlags,
		regexp.MustCompile(`(?i)\bbanderas rojas\b|\bseñales de alerta\b|\briesgos?\b|\bpreocupaciones\b`)},

	{"multi:verification:en", IntentVerification,
		regexp.MustCompile(`(?i)\b(?:verify|confirm|is it true|double[- ]check|check\s+(?:whether|if|that))\b`)},
	{"multi:verification:es", IntentVerification,
		regexp.MustCompile(`(?i)\b(?:verifica(?:r)?|confirma(?:r)?|comprueba|es cierto)\b`)},

	{"multi:summary:en", IntentSummary,
		regexp.MustCompile(`(?i)\ball\s+(?:the\s+)?candidates\b|\bevery candidate\b|\bwhole pool\b|\bhow many candidates\b|\bsummar(?:y|ize)\b`)},
	{"multi:summary:es", IntentSummary,
		regexp.MustCompile(`(?i)\btodos los candidatos\b|\bcada candidato\b|\bcuántos candidatos\b|\bresumen de\b`)},

	// Exclusion language narrows a multi-candidate set, so it implies ranking.
	{"multi:exclusion:en", IntentRanking,
		regexp.MustCompile(`(?i)\b(?:except|excluding|other than|besides)\b`)},
	{"multi:exclusion:es", IntentRanking,
		regexp.MustCompile(`(?i)\bexcepto\b|\bsalvo\b|\baparte de\b`)},
}

// implicitSingleRules detect a single target referred to without a name:
// ordinals/superlatives over a prior ranking, or anaphoric references.
var implicitSingleRules = []rule{
	{"single:ranking_reference:en", IntentSingleCandidate,
		regexp.MustCompile(`(?i)\bthe\s+(?:top|best|strongest|first)\s+(?:one|candidate|pick|profile)\b|\bthe winner\b|\bnumber one\b`)},
	{"single:ranking_reference:es", IntentSingleCandidate,
		regexp.MustCompile(`(?i)\b(?:el|la)\s+mejor(?:\s+(?:candidat[oa]|perfil))?\b|\bel ganador\b|\bla ganadora\b|\bel primero\b|\bla primera\b`)},

	{"single:anaphoric:en", IntentSingleCandidate,
		regexp.MustCompile(`(?i)\b(?:that|this)\s+(?:candidate|person|profile)\b`)},
	{"single:anaphoric:es", IntentSingleCandidate,
		regexp.MustCompile(`(?i)\b(?:ese|este)\s+candidato\b|\b(?:esa|esta)\s+candidata\b|\bese perfil\b`)},

	{"single:selection:en", IntentSingleCandidate,
		regexp.MustCompile(`(?i)\bthe one\s+(?:who|that|with)\b|\bwhichever candidate\b`)},
	{"single:selection:es", IntentSingleCandidate,
		regexp.MustCompile(`(?i)\bel que\b|\bla que\b`)},
}
