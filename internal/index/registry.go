package index

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

// Registry maps session ids to their current index. It is safe for
// concurrent use; Put replaces a session's index atomically.
type Registry struct {
	cache   *lru.LRU[string, *SessionIndex]
	onEvict func(sessionID string)
}

type Option func(*Registry)

// WithEvictHook registers fn to run after a session leaves the registry.
func WithEvictHook(fn func(sessionID string)) Option {
	return func(r *Registry) { r.onEvict = fn }
}

// NewRegistry bounds the registry to capacity sessions (0 = unbounded) that
// expire ttl after their last write (0 = never).
func NewRegistry(capacity int, ttl time.Duration, opts ...Option) *Registry {
	r := &Registry{}
	for _, o := range opts {
		o(r)
	}
	if capacity < 0 {
		capacity = 0
	}
	if ttl < 0 {
		ttl = 0
	}
	r.cache = lru.NewLRU[string, *SessionIndex](capacity, func(id string, idx *SessionIndex) {
		log.Info().Str("session", id).Int("chunks", idx.Count()).Msg("session index evicted")
		if r.onEvict != nil {
			r.onEvict(id)
		}
	}, ttl)
	return r
}

// Put installs idx for its session, replacing any previous index.
func (r *Registry) Put(idx *SessionIndex) {
	r.cache.Add(idx.SessionID, idx)
}

// Get returns the session's index, if any.
func (r *Registry) Get(sessionID string) (*SessionIndex, bool) {
	return r.cache.Get(sessionID)
}

func (r *Registry) Remove(sessionID string) bool {
	return r.cache.Remove(sessionID)
}

// Search ranks the session's chunks against query. Unknown sessions and
// empty indexes yield an empty slice.
func (r *Registry) Search(sessionID string, query []float32, k int) []int {
	idx, ok := r.Get(sessionID)
	if !ok {
		return []int{}
	}
	return idx.Search(query, k)
}

// Count is the number of chunks indexed for the session, 0 if unknown.
func (r *Registry) Count(sessionID string) int {
	idx, ok := r.Get(sessionID)
	if !ok {
		return 0
	}
	return idx.Count()
}

func (r *Registry) Chunks(sessionID string) []string {
	idx, ok := r.Get(sessionID)
	if !ok {
		return nil
	}
	return idx.Chunks()
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	return r.cache.Len()
}
