package keyword

import (
	"github.com/jellydator/ttlcache/v3"
)

// DefaultCapacity bounds a Tracker created with a non-positive capacity
const DefaultCapacity = 256

// Tracker remembers the last keyword seen per document so highlighting can
// be skipped when a diagram's type has not changed. Least recently used
// documents are evicted once capacity is reached. It is only a hint.
type Tracker struct {
	cache *ttlcache.Cache[string, string]
}

// NewTracker creates a tracker holding at most capacity documents
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{
		cache: ttlcache.New[string, string](
			ttlcache.WithCapacity[string, string](uint64(capacity)),
		),
	}
}

// Observe classifies text and records it for docID. changed is true when the
// keyword differs from the last one recorded, or nothing was recorded yet.
func (t *Tracker) Observe(docID, text string) (kw string, changed bool) {
	kw = First(text)
	if item := t.cache.Get(docID); item != nil && item.Value() == kw {
		return kw, false
	}
	t.cache.Set(docID, kw, ttlcache.NoTTL)
	return kw, true
}

// Last returns the keyword recorded for docID
func (t *Tracker) Last(docID string) (string, bool) {
	item := t.cache.Get(docID)
	if item == nil {
		return "", false
	}
	return item.Value(), true
}

// Forget drops docID, e.g. when its document is closed
func (t *Tracker) Forget(docID string) {
	t.cache.Delete(docID)
}

// Len returns the number of tracked documents
func (t *Tracker) Len() int {
	return t.cache.Len()
}
