package semcache

import (
	"testing"
	"time"

	"github.com/hyperjump/rirekisho/internal/models"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("Who knows Python?", []string{"doc2", "doc1"})
	b := Fingerprint("who knows python", []string{"doc1", "doc2"})
	if a != b {
		t.Error("normalization and id order should not change the fingerprint")
	}

	c := Fingerprint("who knows python", []string{"doc1"})
	if a == c {
		t.Error("different candidate pools must fingerprint differently")
	}

	d := Fingerprint("who knows java", []string{"doc1", "doc2"})
	if a == d {
		t.Error("different queries must fingerprint differently")
	}
}

func TestCacheLookupStore(t *testing.T) {
	cache := New(10, time.Minute)
	fp := Fingerprint("rank the candidates", []string{"doc1"})

	if _, ok := cache.Lookup(fp); ok {
		t.Fatal("expected miss on empty cache")
	}

	cache.Store(fp, models.Answer{AnswerText: "ranked", Intent: "ranking"})
	got, ok := cache.Lookup(fp)
	if !ok || got.AnswerText != "ranked" {
		t.Errorf("got %+v, %v", got, ok)
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d", cache.Len())
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := New(10, 20*time.Millisecond)
	fp := Fingerprint("q", []string{"doc1"})
	cache.Store(fp, models.Answer{AnswerText: "a"})

	if _, ok := cache.Lookup(fp); !ok {
		t.Fatal("expected hit before expiry")
	}
	time.Sleep(50 * time.Millisecond)
	if _, ok := cache.Lookup(fp); ok {
		t.Error("expected miss after TTL")
	}
}

func TestCacheCapacityEviction(t *testing.T) {
	cache := New(2, 0)
	fpA := Fingerprint("a", nil)
	fpB := Fingerprint("b", nil)
	fpC := Fingerprint("c", nil)

	cache.Store(fpA, models.Answer{AnswerText: "a"})
	cache.Store(fpB, models.Answer{AnswerText: "b"})
	cache.Store(fpC, models.Answer{AnswerText: "c"})

	if _, ok := cache.Lookup(fpA); ok {
		t.Error("oldest entry should be evicted")
	}
	if _, ok := cache.Lookup(fpC); !ok {
		t.Error("newest entry should remain")
	}
}
