// Package semcache provides the semantic answer cache: finished answers keyed
// by a deterministic fingerprint of the normalized query and the candidate
// pool in scope. Any ingest or delete changes the pool and therefore the
// fingerprints, so stale answers are never served for a changed corpus.
package semcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hyperjump/rirekisho/internal/models"
	"github.com/hyperjump/rirekisho/pkg/utils"
)

// Cache is a TTL-bounded LRU of completed answers.
type Cache struct {
	lru *expirable.LRU[string, models.Answer]
}

// New creates a cache with the given capacity and entry TTL. A zero ttl means
// entries never expire (capacity eviction still applies).
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		lru: expirable.NewLRU[string, models.Answer](capacity, nil, ttl),
	}
}

// Fingerprint returns the cache key for a query against a candidate pool:
// sha256 over the normalized query and the sorted candidate ids. The id order
// supplied by the caller does not matter.
func Fingerprint(query string, candidateIDs []string) string {
	ids := make([]string, len(candidateIDs))
	copy(ids, candidateIDs)
	sort.Strings(ids)

	h := sha256.New()
	h.Write([]byte(utils.NormalizeQuery(query)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(ids, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the cached answer for the fingerprint, if present.
func (c *Cache) Lookup(fingerprint string) (models.Answer, bool) {
	return c.lru.Get(fingerprint)
}

// Store saves a completed answer under the fingerprint.
func (c *Cache) Store(fingerprint string, answer models.Answer) {
	c.lru.Add(fingerprint, answer)
}

// Purge drops all cached answers.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
