package schedule

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the process-wide duplicate-suppression guard for generation
// passes. It is constructed once per process, injected into the pipeline,
// and resettable in tests. All of its hints are soft: the generation log in
// the database remains the source of truth and wins on conflict.
type State struct {
	mu          sync.Mutex
	checkActive bool
	processing  map[uuid.UUID]struct{}
	generated   map[uuid.UUID]string // entity -> day key of last generation
	lastChecked map[uuid.UUID]time.Time
	seq         uint64
}

// NewState returns an empty guard state.
func NewState() *State {
	return &State{
		processing:  make(map[uuid.UUID]struct{}),
		generated:   make(map[uuid.UUID]string),
		lastChecked: make(map[uuid.UUID]time.Time),
	}
}

// BeginCheck marks a generation pass as in progress. It returns false if
// another pass already holds the flag; callers finding it held simply no-op.
func (s *State) BeginCheck() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkActive {
		return false
	}
	s.checkActive = true
	return true
}

// EndCheck releases the in-progress flag. Always call via defer so an error
// mid-pass cannot leave the guard stuck.
func (s *State) EndCheck() {
	s.mu.Lock()
	s.checkActive = false
	s.mu.Unlock()
}

// Acquire marks an entity as currently being processed. Returns false if a
// concurrent pass already holds it.
func (s *State) Acquire(entity uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.processing[entity]; held {
		return false
	}
	s.processing[entity] = struct{}{}
	return true
}

// Release clears an entity's processing mark.
func (s *State) Release(entity uuid.UUID) {
	s.mu.Lock()
	delete(s.processing, entity)
	s.mu.Unlock()
}

// MarkGenerated records that the entity generated tasks for the given day
// key, suppressing further passes for that entity until the day rolls over.
func (s *State) MarkGenerated(entity uuid.UUID, dayKey string) {
	s.mu.Lock()
	s.generated[entity] = dayKey
	s.mu.Unlock()
}

// AlreadyGenerated reports whether the entity already generated for dayKey.
// A cached entry for a different day is stale and is cleared on sight.
func (s *State) AlreadyGenerated(entity uuid.UUID, dayKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached, ok := s.generated[entity]
	if !ok {
		return false
	}
	if cached != dayKey {
		delete(s.generated, entity)
		return false
	}
	return true
}

// LastChecked returns the last time a rate-limited check ran for the entity.
func (s *State) LastChecked(entity uuid.UUID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastChecked[entity]
	return t, ok
}

// TouchChecked stamps the entity's last-checked time.
func (s *State) TouchChecked(entity uuid.UUID, now time.Time) {
	s.mu.Lock()
	s.lastChecked[entity] = now
	s.mu.Unlock()
}

// NextSeq increments and returns the supersession counter. An in-flight
// pass captures the returned value and aborts when a newer pass has bumped
// the counter past it.
func (s *State) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Superseded reports whether a newer pass started after the one holding seq.
func (s *State) Superseded(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq > seq
}

// Reset clears all guard state. Test hook.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkActive = false
	s.processing = make(map[uuid.UUID]struct{})
	s.generated = make(map[uuid.UUID]string)
	s.lastChecked = make(map[uuid.UUID]time.Time)
	s.seq = 0
}
