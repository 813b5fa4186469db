package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBeginCheckIsExclusive(t *testing.T) {
	s := NewState()

	if !s.BeginCheck() {
		t.Fatal("first BeginCheck should succeed")
	}
	if s.BeginCheck() {
		t.Error("second BeginCheck should fail while the first is held")
	}
	s.EndCheck()
	if !s.BeginCheck() {
		t.Error("BeginCheck should succeed after EndCheck")
	}
}

func TestAcquireReleasePerEntity(t *testing.T) {
	s := NewState()
	a, b := uuid.New(), uuid.New()

	if !s.Acquire(a) {
		t.Fatal("acquire of a free entity should succeed")
	}
	if s.Acquire(a) {
		t.Error("re-acquire of a held entity should fail")
	}
	if !s.Acquire(b) {
		t.Error("acquire of a different entity should succeed")
	}
	s.Release(a)
	if !s.Acquire(a) {
		t.Error("acquire after release should succeed")
	}
}

func TestGeneratedCacheRollsOverWithDayKey(t *testing.T) {
	s := NewState()
	entity := uuid.New()

	s.MarkGenerated(entity, "2025-06-11")
	if !s.AlreadyGenerated(entity, "2025-06-11") {
		t.Error("expected cache hit for the marked day")
	}
	if s.AlreadyGenerated(entity, "2025-06-12") {
		t.Error("stale day key must not report as generated")
	}
	// The stale entry is cleared on the mismatched lookup.
	if s.AlreadyGenerated(entity, "2025-06-11") {
		t.Error("stale entry should have been evicted")
	}
}

func TestLastCheckedRoundTrip(t *testing.T) {
	s := NewState()
	entity := uuid.New()

	if _, ok := s.LastChecked(entity); ok {
		t.Fatal("unchecked entity should report no timestamp")
	}
	now := time.Now()
	s.TouchChecked(entity, now)
	got, ok := s.LastChecked(entity)
	if !ok || !got.Equal(now) {
		t.Errorf("LastChecked = %v, %v; want %v, true", got, ok, now)
	}
}

func TestSupersession(t *testing.T) {
	s := NewState()

	first := s.NextSeq()
	if s.Superseded(first) {
		t.Error("latest seq must not be superseded")
	}
	second := s.NextSeq()
	if !s.Superseded(first) {
		t.Error("older seq should be superseded after a newer pass starts")
	}
	if s.Superseded(second) {
		t.Error("newest seq must not be superseded")
	}
}

func TestResetClearsEverything(t *testing.T) {
	s := NewState()
	entity := uuid.New()
	s.BeginCheck()
	s.Acquire(entity)
	s.MarkGenerated(entity, "2025-06-11")
	s.TouchChecked(entity, time.Now())
	s.NextSeq()

	s.Reset()

	if !s.BeginCheck() {
		t.Error("check flag should be clear after reset")
	}
	if !s.Acquire(entity) {
		t.Error("processing set should be clear after reset")
	}
	if s.AlreadyGenerated(entity, "2025-06-11") {
		t.Error("generated cache should be clear after reset")
	}
	if _, ok := s.LastChecked(entity); ok {
		t.Error("last-checked map should be clear after reset")
	}
}
