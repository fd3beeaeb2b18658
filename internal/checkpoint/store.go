// Package checkpoint persists coroutine stack snapshots so a coroutine
// can resume from an intermediate step after a runner restart (spec.md
// §4.D). Store is the in-process fallback used when no
// CheckpointConfig.DSN is configured; PostgresStore (postgres.go) is the
// durable backing for multi-runner deployments.
package checkpoint

import (
	"encoding/json"
	"sync"
	"time"
)

// State is one coroutine's checkpointed stack snapshot.
type State struct {
	RequestID string          `json:"request_id"` // string form of the CID, for Postgres row identity
	FunctionID string         `json:"runner_id"`  // owning runner id
	Step      string          `json:"step"`       // NextStep name at the point the snapshot was taken
	Data      json.RawMessage `json:"data"`       // ToJSON-encoded stack frame snapshot
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Store is an in-memory, single-process checkpoint store, sufficient
// when only one runner process exists.
type Store struct {
	mu     sync.RWMutex
	states map[uint64]*State // coroutine id -> snapshot
	ttl    time.Duration
}

// NewStore creates a new in-memory checkpoint store.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	s := &Store{
		states: make(map[uint64]*State),
		ttl:    ttl,
	}
	go s.cleanupLoop()
	return s
}

// Save stores a snapshot for cid.
func (s *Store) Save(cid uint64, runnerID, step string, data json.RawMessage) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[cid] = &State{
		FunctionID: runnerID,
		Step:       step,
		Data:       data,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
}

// Load retrieves the snapshot for cid, or nil if none exists or it has
// expired.
func (s *Store) Load(cid uint64) *State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[cid]
	if !ok {
		return nil
	}
	if time.Now().After(state.ExpiresAt) {
		return nil
	}
	cp := *state
	return &cp
}

// Delete removes the snapshot for cid, called once the coroutine exits
// and no longer needs to resume from it.
func (s *Store) Delete(cid uint64) {
	s.mu.Lock()
	delete(s.states, cid)
	s.mu.Unlock()
}

// ListByRunner returns every live snapshot belonging to runnerID.
func (s *Store) ListByRunner(runnerID string) []*State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var out []*State
	for _, state := range s.states {
		if state.FunctionID == runnerID && now.Before(state.ExpiresAt) {
			cp := *state
			out = append(out, &cp)
		}
	}
	return out
}

// cleanupLoop periodically removes expired snapshots.
func (s *Store) cleanupLoop() {
	interval := s.ttl / 2
	if interval <= 0 {
		interval = s.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for id, state := range s.states {
			if now.After(state.ExpiresAt) {
				delete(s.states, id)
			}
		}
		s.mu.Unlock()
	}
}
