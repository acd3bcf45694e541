package answer

import (
	"strings"
	"testing"

	"github.com/hyperjump/rirekisho/internal/classify"
	"github.com/hyperjump/rirekisho/internal/models"
	"github.com/hyperjump/rirekisho/internal/redflag"
)

func testInput() ModuleInput {
	hopper := models.CandidateMetadata{
		PositionCount: 8, TotalExperienceYears: 6, AvgTenureYears: 0.75, JobHoppingScore: 0.8,
	}
	steady := models.CandidateMetadata{
		PositionCount: 2, TotalExperienceYears: 9, AvgTenureYears: 4.5, JobHoppingScore: 0.1,
	}
	return ModuleInput{
		Candidates: []models.Source{
			{CandidateID: "doc1", DisplayName: "María García"},
			{CandidateID: "doc2", DisplayName: "Juan Pérez"},
		},
		Metadata: map[string]models.CandidateMetadata{"doc1": hopper, "doc2": steady},
		Flags: map[string][]redflag.RedFlag{
			"doc1": redflag.Detect(hopper),
			"doc2": redflag.Detect(steady),
		},
	}
}

func TestModulesForAlwaysIncludesRedFlags(t *testing.T) {
	for _, intent := range []classify.Intent{
		classify.IntentSearch, classify.IntentRanking, classify.IntentComparison,
		classify.IntentSingleCandidate, classify.IntentRedFlags,
	} {
		mods := ModulesFor(intent)
		if mods[0].Kind() != "red_flags" {
			t.Errorf("%s: red_flags module missing", intent)
		}
	}
}

func TestRedFlagsModuleOmittedWhenClean(t *testing.T) {
	in := testInput()
	in.Flags = map[string][]redflag.RedFlag{}
	if s := (redFlagsModule{}).Render(in); s != nil {
		t.Errorf("expected nil section for clean pool, got %+v", s)
	}
}

func TestRankingModuleTable(t *testing.T) {
	s := (rankingModule{}).Render(testInput())
	if s == nil || s.Kind != "ranking_table" {
		t.Fatalf("got %+v", s)
	}
	if !strings.Contains(s.Markdown, "[María García](cv:doc1)") {
		t.Error("table rows should cite candidates canonically")
	}
	if !strings.Contains(s.Markdown, "high risk") {
		t.Error("hopper should show high risk stability")
	}
	if !strings.Contains(s.Markdown, "ok") {
		t.Error("steady candidate should show ok stability")
	}
}

func TestComparisonModuleNeedsTwoCandidates(t *testing.T) {
	in := testInput()
	in.Candidates = in.Candidates[:1]
	if s := (comparisonModule{}).Render(in); s != nil {
		t.Errorf("single candidate should render no comparison, got %+v", s)
	}

	s := (comparisonModule{}).Render(testInput())
	if s == nil || !strings.Contains(s.Markdown, "Avg tenure (yrs)") {
		t.Fatalf("got %+v", s)
	}
}

func TestAssembleSectionsByIntent(t *testing.T) {
	cls := classify.Result{Intent: classify.IntentRanking, Method: "multi:ranking:en"}
	steps := []models.PipelineStep{{Step: "retrieval", Status: models.StepCompleted}}

	a := Assemble(cls, "ranked answer", testInput(), steps)
	if a.AnswerText != "ranked answer" || a.Intent != "ranking" {
		t.Errorf("got %+v", a)
	}
	kinds := make([]string, len(a.StructuredSections))
	for i, s := range a.StructuredSections {
		kinds[i] = s.Kind
	}
	if len(kinds) != 2 || kinds[0] != "red_flags" || kinds[1] != "ranking_table" {
		t.Errorf("sections: %v", kinds)
	}
	if len(a.PipelineSteps) != 1 {
		t.Errorf("steps: %+v", a.PipelineSteps)
	}
}

func TestRenderMarkdownOrder(t *testing.T) {
	cls := classify.Result{Intent: classify.IntentRanking, Method: "multi:ranking:en"}
	steps := []models.PipelineStep{{Step: "retrieval", DurationMS: 3, Status: models.StepCompleted}}
	a := Assemble(cls, "the direct answer", testInput(), steps)

	md := RenderMarkdown(a)
	pipeline := strings.Index(md, "_Pipeline:")
	direct := strings.Index(md, "the direct answer")
	table := strings.Index(md, "Candidate overview")
	conclusion := strings.Index(md, "Based on 2 candidate(s)")

	if pipeline == -1 || direct == -1 || table == -1 || conclusion == -1 {
		t.Fatalf("missing parts:\n%s", md)
	}
	if !(pipeline < direct && direct < table && table < conclusion) {
		t.Errorf("assembly order wrong:\n%s", md)
	}
}
