package state

import (
	"context"
	"sync"
	"time"

	"github.com/logicfirst/tutor/internal/model"
)

const sweepInterval = time.Minute

// memoryStore is the in-process driver: a mutex-guarded map with a TTL sweep.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	state     model.ValidationState
	expiresAt time.Time
}

func newMemoryStore(cfg *config) *memoryStore {
	s := &memoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     cfg.ttl,
		done:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *memoryStore) Get(_ context.Context, sessionID string, problem int) (*model.ValidationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := stateKey("", sessionID, problem)
	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, ErrNotFound
	}
	cp := e.state
	return &cp, nil
}

func (s *memoryStore) Put(_ context.Context, vs *model.ValidationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := stateKey("", vs.SessionID, vs.ProblemNumber)
	if e, ok := s.entries[key]; ok && time.Now().Before(e.expiresAt) {
		if e.state.Version != vs.Version {
			return ErrVersionConflict
		}
	} else if vs.Version != 0 {
		return ErrVersionConflict
	}

	vs.Version++
	vs.UpdatedAt = time.Now()
	s.entries[key] = &memoryEntry{
		state:     *vs,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, sessionID string, problem int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, stateKey("", sessionID, problem))
	return nil
}

func (s *memoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *memoryStore) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
