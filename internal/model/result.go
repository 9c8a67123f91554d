package model

import "sync"

// CrawlResult is the ordered collection of entries produced by one crawl.
//
// It only grows: the crawl worker appends, and observers read the current
// length or a snapshot of the entries. The mutex makes Len safe to call from
// a progress sink running on another goroutine while the worker appends.
type CrawlResult struct {
	mu      sync.RWMutex
	entries []ImageEntry
}

// NewCrawlResult creates an empty CrawlResult.
func NewCrawlResult() *CrawlResult {
	return &CrawlResult{
		entries: make([]ImageEntry, 0),
	}
}

// Append adds an entry at the end and returns the new number of entries.
func (r *CrawlResult) Append(e ImageEntry) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return len(r.entries)
}

// Len returns the number of entries collected so far.
func (r *CrawlResult) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Entries returns a copy of the entries in crawl order.
func (r *CrawlResult) Entries() []ImageEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ImageEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// At returns the entry at index i. It panics if i is out of range,
// like a slice index would.
func (r *CrawlResult) At(i int) ImageEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[i]
}
