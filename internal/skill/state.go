package skill

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// State is the mutable per-session scratch space skills share: wizard
// steps, the ids behind the last numbered listing, cached search results
// and the name of the active direct executor.
type State struct {
	mu     sync.Mutex
	values map[string]any
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// GetString returns the string stored under key, or "".
func (s *State) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// Set stores value under key.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Reset clears every key.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.values)
}

// StateStore hands out one State per session id, evicting the least
// recently used once full.
type StateStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *State]
}

// DefaultStateCapacity bounds the number of live session states.
const DefaultStateCapacity = 256

// NewStateStore creates a store holding at most size sessions.
func NewStateStore(size int) *StateStore {
	if size <= 0 {
		size = DefaultStateCapacity
	}
	cache, _ := lru.New[string, *State](size)
	return &StateStore{cache: cache}
}

// For returns the State for sessionID, creating it on first use.
func (s *StateStore) For(sessionID string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.cache.Get(sessionID); ok {
		return st
	}
	st := &State{values: map[string]any{}}
	s.cache.Add(sessionID, st)
	return st
}

// Drop forgets the state for sessionID.
func (s *StateStore) Drop(sessionID string) {
	s.cache.Remove(sessionID)
}

// Len reports how many sessions have live state.
func (s *StateStore) Len() int { return s.cache.Len() }

type ctxKey int

const (
	sessionKey ctxKey = iota
	stateKey
)

// WithSession attaches the session id to ctx.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionFrom returns the session id attached to ctx, or "".
func SessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}

// WithState attaches per-session state to ctx.
func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, stateKey, st)
}

// StateFrom returns the per-session state attached to ctx. Without one it
// returns a fresh detached State so callers never need a nil check.
func StateFrom(ctx context.Context) *State {
	if st, ok := ctx.Value(stateKey).(*State); ok && st != nil {
		return st
	}
	return &State{values: map[string]any{}}
}

// State keys shared across packages.
const (
	StateActiveExecutor = "active_executor"
)

// PickIndices maps 1-based indices from a numbered listing back to ids.
// Out-of-range indices are returned in bad.
func PickIndices(ids []string, indices []int) (picked []string, good, bad []int) {
	for _, idx := range indices {
		if idx >= 1 && idx <= len(ids) {
			picked = append(picked, ids[idx-1])
			good = append(good, idx)
			continue
		}
		bad = append(bad, idx)
	}
	return picked, good, bad
}

// StringSlice returns the []string stored under key, or nil.
func (s *State) StringSlice(key string) []string {
	v, _ := s.Get(key)
	ids, _ := v.([]string)
	return ids
}
