package redflag

import (
	"strings"
	"testing"

	"github.com/hyperjump/rirekisho/internal/models"
)

func flagTypes(flags []RedFlag) []FlagType {
	types := make([]FlagType, len(flags))
	for i, f := range flags {
		types[i] = f.Type
	}
	return types
}

func hasFlag(flags []RedFlag, ft FlagType, sev Severity) bool {
	for _, f := range flags {
		if f.Type == ft && f.Severity == sev {
			return true
		}
	}
	return false
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		md       models.CandidateMetadata
		wantType FlagType
		wantSev  Severity
	}{
		{
			"high job hopping score",
			models.CandidateMetadata{JobHoppingScore: 0.75, PositionCount: 8, TotalExperienceYears: 6, AvgTenureYears: 0.75},
			FlagJobHopping, SeverityHigh,
		},
		{
			"medium job hopping score",
			models.CandidateMetadata{JobHoppingScore: 0.5, PositionCount: 4, TotalExperienceYears: 7, AvgTenureYears: 1.75},
			FlagJobHopping, SeverityMedium,
		},
		{
			"short average tenure",
			models.CandidateMetadata{JobHoppingScore: 0.2, PositionCount: 3, TotalExperienceYears: 4, AvgTenureYears: 1.3},
			FlagShortAvgTenure, SeverityMedium,
		},
		{
			"many positions few years",
			models.CandidateMetadata{JobHoppingScore: 0.3, PositionCount: 7, TotalExperienceYears: 9, AvgTenureYears: 1.6},
			FlagJobHopping, SeverityMedium,
		},
		{
			"one employment gap",
			models.CandidateMetadata{PositionCount: 2, TotalExperienceYears: 5, AvgTenureYears: 2.5, EmploymentGapsCount: 1},
			FlagEmploymentGap, SeverityLow,
		},
		{
			"three employment gaps",
			models.CandidateMetadata{PositionCount: 4, TotalExperienceYears: 8, AvgTenureYears: 2, EmploymentGapsCount: 3},
			FlagEmploymentGap, SeverityHigh,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := Detect(tt.md)
			if !hasFlag(flags, tt.wantType, tt.wantSev) {
				t.Errorf("Detect(%+v) = %v, want flag %s/%s", tt.md, flags, tt.wantType, tt.wantSev)
			}
		})
	}
}

func TestDetect_entryLevelDefault(t *testing.T) {
	flags := Detect(models.CandidateMetadata{})
	if len(flags) != 1 {
		t.Fatalf("expected exactly one flag, got %v", flagTypes(flags))
	}
	if flags[0].Type != FlagEntryLevel || flags[0].Severity != SeverityLow {
		t.Errorf("got %s/%s, want entry_level/low", flags[0].Type, flags[0].Severity)
	}
}

func TestDetect_tenureBoundaryIsStrict(t *testing.T) {
	base := models.CandidateMetadata{PositionCount: 3, TotalExperienceYears: 4.5, JobHoppingScore: 0.1}

	at := base
	at.AvgTenureYears = 1.5
	if hasFlag(Detect(at), FlagShortAvgTenure, SeverityMedium) {
		t.Error("avg tenure of exactly 1.5 must not trigger short_avg_tenure")
	}

	below := base
	below.AvgTenureYears = 1.49
	if !hasFlag(Detect(below), FlagShortAvgTenure, SeverityMedium) {
		t.Error("avg tenure of 1.49 must trigger short_avg_tenure")
	}
}

func TestDetect_singleJobHoppingFlag(t *testing.T) {
	// High score AND many positions: the supporting signal must not duplicate
	// the score-based flag.
	md := models.CandidateMetadata{
		JobHoppingScore: 0.8, PositionCount: 9, TotalExperienceYears: 7, AvgTenureYears: 0.8,
	}
	count := 0
	for _, f := range Detect(md) {
		if f.Type == FlagJobHopping {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected one job_hopping flag, got %d", count)
	}
}

func TestDetect_scoreBoundaries(t *testing.T) {
	// 0.6 exactly is medium, not high; 0.4 exactly is no score flag.
	at06 := Detect(models.CandidateMetadata{JobHoppingScore: 0.6, PositionCount: 3, TotalExperienceYears: 6, AvgTenureYears: 2})
	if hasFlag(at06, FlagJobHopping, SeverityHigh) {
		t.Error("score of exactly 0.6 must not be high severity")
	}
	if !hasFlag(at06, FlagJobHopping, SeverityMedium) {
		t.Error("score of exactly 0.6 must be medium severity")
	}
	at04 := Detect(models.CandidateMetadata{JobHoppingScore: 0.4, PositionCount: 3, TotalExperienceYears: 6, AvgTenureYears: 2})
	for _, f := range at04 {
		if f.Type == FlagJobHopping {
			t.Errorf("score of exactly 0.4 must not produce a job_hopping flag, got %v", f)
		}
	}
}

func TestNarrative_matchesDetect(t *testing.T) {
	candidates := []models.Source{
		{CandidateID: "c1", DisplayName: "Juan Pérez"},
		{CandidateID: "c2", DisplayName: "María García"},
	}
	metadata := map[string]models.CandidateMetadata{
		"c1": {JobHoppingScore: 0.7, PositionCount: 6, TotalExperienceYears: 5, AvgTenureYears: 0.8},
		"c2": {PositionCount: 2, TotalExperienceYears: 8, AvgTenureYears: 4},
	}
	narrative := Narrative(candidates, metadata)

	// Every flag Detect reports must appear in the narrative, and vice versa a
	// clean candidate is reported clean.
	for _, f := range Detect(metadata["c1"]) {
		if !strings.Contains(narrative, string(f.Type)) {
			t.Errorf("narrative missing flag %s:\n%s", f.Type, narrative)
		}
	}
	if !strings.Contains(narrative, "María García: no stability concerns") {
		t.Errorf("clean candidate not reported as clean:\n%s", narrative)
	}
}

func TestNarrative_missingMetadataIsEntryLevel(t *testing.T) {
	narrative := Narrative([]models.Source{{CandidateID: "ghost", DisplayName: "Ghost"}}, nil)
	if !strings.Contains(narrative, string(FlagEntryLevel)) {
		t.Errorf("missing metadata should read as entry-level default:\n%s", narrative)
	}
}
