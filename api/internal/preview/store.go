// Package preview keeps short-lived, locally resolvable references to
// images that have been selected but not uploaded yet.
package preview

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/upload"
)

const (
	DefaultMaxEntries = 1024
	DefaultTTL        = 30 * time.Minute
)

// Handle identifies one preview. The zero Handle is "no preview".
type Handle struct {
	ID   string
	Name string
	MIME string
	Size int64
}

func (h Handle) IsZero() bool { return h.ID == "" }

// Path is the URL path the preview is served at by httpserver.
func (h Handle) Path() string { return "/preview/" + h.ID }

// Store owns preview bytes. Entries leave the store exactly once: through
// Release, through TTL expiry or through LRU eviction.
type Store struct {
	cache    *expirable.LRU[string, upload.File]
	created  atomic.Int64
	released atomic.Int64
}

func NewStore(maxEntries int, ttl time.Duration) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{}
	s.cache = expirable.NewLRU[string, upload.File](maxEntries, s.onEvict, ttl)
	return s
}

// onEvict runs under the cache lock; it must not touch the cache.
func (s *Store) onEvict(id string, f upload.File) {
	s.released.Add(1)
	log.Printf("preview: released %s (%s)", id, f.Name)
}

func (s *Store) create(f upload.File) Handle {
	h := Handle{ID: uuid.NewString(), Name: f.Name, MIME: f.MIME, Size: f.Size()}
	s.cache.Add(h.ID, f)
	s.created.Add(1)
	return h
}

// Open resolves a handle id to the image it refers to.
func (s *Store) Open(id string) (upload.File, bool) {
	return s.cache.Get(id)
}

// Release drops the preview. It reports false when the handle was already
// gone (released before, expired or evicted).
func (s *Store) Release(id string) bool {
	if id == "" {
		return false
	}
	return s.cache.Remove(id)
}

// Live is the number of previews currently resolvable.
func (s *Store) Live() int { return s.cache.Len() }

// Stats returns how many handles were created and released so far.
func (s *Store) Stats() (created, released int64) {
	return s.created.Load(), s.released.Load()
}

// Purge releases every live preview.
func (s *Store) Purge() { s.cache.Purge() }

// NewSlot returns an empty slot backed by s.
func (s *Store) NewSlot() *Slot { return &Slot{store: s} }
