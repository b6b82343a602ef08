package tmdb

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"moviemate/models"
)

// SearchCache memoizes normalized search queries for a bounded window.
// It is backed by a filesystem so entries survive restarts; any read or
// write failure is treated as a miss, never an error.
type SearchCache struct {
	fs  afero.Fs
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewSearchCache creates a cache rooted at dir. A nil fs defaults to the
// OS filesystem; ttl must be positive.
func NewSearchCache(fs afero.Fs, dir string, ttl time.Duration) *SearchCache {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &SearchCache{fs: fs, dir: dir, ttl: ttl, now: time.Now}
}

type cacheEntry struct {
	ExpiresAt time.Time             `json:"expiresAt"`
	Results   []models.SearchResult `json:"results"`
}

// Get returns the cached results for a normalized query, if fresh.
func (c *SearchCache) Get(normalizedQuery string) ([]models.SearchResult, bool) {
	if c == nil || normalizedQuery == "" {
		return nil, false
	}
	data, err := afero.ReadFile(c.fs, c.entryPath(normalizedQuery))
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if c.now().After(entry.ExpiresAt) {
		_ = c.fs.Remove(c.entryPath(normalizedQuery))
		return nil, false
	}
	return entry.Results, true
}

// Put stores results for a normalized query. Best effort: failures are
// swallowed so a broken cache never breaks search.
func (c *SearchCache) Put(normalizedQuery string, results []models.SearchResult) {
	if c == nil || normalizedQuery == "" {
		return
	}
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return
	}
	entry := cacheEntry{ExpiresAt: c.now().Add(c.ttl), Results: results}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	path := c.entryPath(normalizedQuery)
	tmp := path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, data, 0o644); err != nil {
		return
	}
	if err := c.fs.Rename(tmp, path); err != nil {
		_ = c.fs.Remove(tmp)
	}
}

// entryPath hashes the query so arbitrary input maps to a safe filename.
func (c *SearchCache) entryPath(normalizedQuery string) string {
	sum := sha256.Sum256([]byte(normalizedQuery))
	return filepath.Join(c.dir, "search_"+hex.EncodeToString(sum[:8])+".json")
}
