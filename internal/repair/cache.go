// Package repair re-examines stored records flagged with extraction issues,
// asking the extraction service one narrowly-scoped question per issue and
// gating the merged patch behind a confidence policy.
package repair

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/ozanyurtsever/promopipe/internal/model"
)

// ExtractorVersion participates in cache keys so that prompt changes
// invalidate previously cached answers.
const ExtractorVersion = "v3"

// cacheKey is a pure function of content, never of wall-clock time, so
// repeated repair calls are idempotent.
func cacheKey(snippet string, issueType model.IssueType, version string) string {
	h := sha256.New()
	h.Write([]byte(snippet))
	h.Write([]byte{0})
	h.Write([]byte(issueType))
	h.Write([]byte{0})
	h.Write([]byte(version))
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryCache is the in-process KV backing for a single worker. Running
// multiple workers in parallel requires swapping this for a shared store.
type MemoryCache struct {
	entries map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

// Get returns the cached value for a key.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.entries[key]
	return value, ok
}

// Set stores a value under a key.
func (c *MemoryCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}
