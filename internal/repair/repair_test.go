package repair

import (
	"testing"

	"github.com/hyperjump/rirekisho/internal/models"
)

var index = []models.Source{
	{CandidateID: "cand-1a2b", DisplayName: "María García"},
	{CandidateID: "cand-9f8e", DisplayName: "Juan Pérez"},
}

func TestRepairDuplicatedLink(t *testing.T) {
	in := "The strongest profile is María García cand-1a2b [cand-1a2b](cand-1a2b), with 8 years of experience."
	want := "The strongest profile is [María García](cv:cand-1a2b), with 8 years of experience."
	if got := Repair(in, index); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRepairBoldNounMatchesName(t *testing.T) {
	in := "**María García** cand-1a2b [cand-1a2b](cand-1a2b) leads the ranking."
	want := "[María García](cv:cand-1a2b) leads the ranking."
	if got := Repair(in, index); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRepairBoldNounStripped(t *testing.T) {
	// Bolded noun is not a candidate name, so only the id fragment is removed.
	in := "Holds the **AWS Solutions Architect** cand-1a2b [cand-1a2b](cand-1a2b) certification."
	want := "Holds the **AWS Solutions Architect** certification."
	if got := Repair(in, index); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRepairTrailingBareID(t *testing.T) {
	in := "My top pick is Juan Pérez cand-9f8e."
	want := "My top pick is **[Juan Pérez](cv:cand-9f8e)**."
	if got := Repair(in, index); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRepairUnknownIDUntouched(t *testing.T) {
	in := "Someone Else cand-0000 [cand-0000](cand-0000) is not in the pool."
	if got := Repair(in, index); got != in {
		t.Errorf("unknown id rewritten: %q", got)
	}
}

func TestRepairIdempotent(t *testing.T) {
	in := "Compare [María García](cv:cand-1a2b) with **[Juan Pérez](cv:cand-9f8e)** and Juan Pérez cand-9f8e here."
	once := Repair(in, index)
	twice := Repair(once, index)
	if once != twice {
		t.Errorf("not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestRepairMultipleCandidates(t *testing.T) {
	in := "María García cand-1a2b [cand-1a2b](cand-1a2b) edges out Juan Pérez cand-9f8e overall."
	want := "[María García](cv:cand-1a2b) edges out **[Juan Pérez](cv:cand-9f8e)** overall."
	if got := Repair(in, index); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRepairCleanTextUnchanged(t *testing.T) {
	in := "Both [María García](cv:cand-1a2b) and [Juan Pérez](cv:cand-9f8e) qualify."
	if got := Repair(in, index); got != in {
		t.Errorf("clean text rewritten: %q", got)
	}
}
