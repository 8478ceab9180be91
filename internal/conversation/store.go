package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store persists conversation state keyed by context id.
type Store interface {
	// Ensure returns the state for the context, creating a fresh one
	// when none exists yet.
	Ensure(ctx context.Context, contextID string) (*State, error)
	// Get returns the state for the context, or nil when unknown.
	Get(ctx context.Context, contextID string) (*State, error)
	// Save writes the state back and refreshes its TTL.
	Save(ctx context.Context, contextID string, state *State) error
	// TryBeginProcessing marks the context as having a background run in
	// flight. It returns false when a run is already active, so duplicate
	// confirmations cannot start a second worker.
	TryBeginProcessing(ctx context.Context, contextID string) (bool, error)
	// EndProcessing clears the in-flight mark.
	EndProcessing(ctx context.Context, contextID string) error
}

type StoreType string

const (
	MemoryStore StoreType = "memory"
	RedisStore  StoreType = "redis"
)

// memoryStore keeps all conversation state in process. Suitable for a
// single-instance deployment and for tests.
type memoryStore struct {
	mu       sync.RWMutex
	states   map[string]*State
	inFlight map[string]bool
	ttl      time.Duration
	expiry   map[string]time.Time
}

// NewMemoryStore constructs an in-process Store. A zero ttl disables
// expiry.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		states:   make(map[string]*State),
		inFlight: make(map[string]bool),
		expiry:   make(map[string]time.Time),
		ttl:      ttl,
	}
}

func (s *memoryStore) Ensure(_ context.Context, contextID string) (*State, error) {
	if contextID == "" {
		return nil, fmt.Errorf("context id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[contextID]; ok && !s.expired(contextID) {
		return st.Clone(), nil
	}
	st := NewState()
	s.states[contextID] = st
	s.touch(contextID)
	return st.Clone(), nil
}

func (s *memoryStore) Get(_ context.Context, contextID string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[contextID]
	if !ok || s.expired(contextID) {
		return nil, nil
	}
	return st.Clone(), nil
}

func (s *memoryStore) Save(_ context.Context, contextID string, state *State) error {
	if contextID == "" {
		return fmt.Errorf("context id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[contextID] = state.Clone()
	s.touch(contextID)
	return nil
}

func (s *memoryStore) TryBeginProcessing(_ context.Context, contextID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[contextID] {
		return false, nil
	}
	s.inFlight[contextID] = true
	return true, nil
}

func (s *memoryStore) EndProcessing(_ context.Context, contextID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, contextID)
	return nil
}

// Sweep removes expired states. Returns the number removed.
func (s *memoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id := range s.states {
		if s.expired(id) {
			delete(s.states, id)
			delete(s.expiry, id)
			delete(s.inFlight, id)
			removed++
		}
	}
	return removed
}

func (s *memoryStore) touch(contextID string) {
	if s.ttl > 0 {
		s.expiry[contextID] = time.Now().Add(s.ttl)
	}
}

func (s *memoryStore) expired(contextID string) bool {
	if s.ttl <= 0 {
		return false
	}
	deadline, ok := s.expiry[contextID]
	return ok && time.Now().After(deadline)
}
