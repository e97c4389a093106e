package energy

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type speakerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	pinned   bool
}

// SpeakerLimiters hands out one token bucket per speaker. Buckets made from
// the defaults are dropped by Sweep once the speaker goes quiet; buckets set
// with SetLimiter are pinned and only go away through Remove.
type SpeakerLimiters struct {
	mu           sync.Mutex
	limiters     map[uint]*speakerLimiter
	defaultRate  rate.Limit
	defaultBurst int

	// Now is swapped in tests
	Now func() time.Time
}

func NewSpeakerLimiters(defaultRate rate.Limit, defaultBurst int) *SpeakerLimiters {
	return &SpeakerLimiters{
		limiters:     make(map[uint]*speakerLimiter),
		defaultRate:  defaultRate,
		defaultBurst: defaultBurst,
		Now:          time.Now,
	}
}

func (s *SpeakerLimiters) GetLimiter(speakerID uint) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.limiters[speakerID]
	if !exists {
		entry = &speakerLimiter{limiter: rate.NewLimiter(s.defaultRate, s.defaultBurst)}
		s.limiters[speakerID] = entry
	}
	entry.lastSeen = s.Now()
	return entry.limiter
}

// SetLimiter overrides the defaults for one speaker until Remove.
func (s *SpeakerLimiters) SetLimiter(speakerID uint, speakerRate rate.Limit, speakerBurst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiters[speakerID] = &speakerLimiter{
		limiter:  rate.NewLimiter(speakerRate, speakerBurst),
		lastSeen: s.Now(),
		pinned:   true,
	}
}

func (s *SpeakerLimiters) Remove(speakerID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.limiters, speakerID)
}

func (s *SpeakerLimiters) Allow(speakerID uint) bool {
	return s.GetLimiter(speakerID).Allow()
}

// Sweep drops unpinned limiters not used within idle and returns how many
// went. A speaker that comes back starts again with a full bucket.
func (s *SpeakerLimiters) Sweep(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.Now().Add(-idle)
	removed := 0
	for id, entry := range s.limiters {
		if entry.pinned || entry.lastSeen.After(cutoff) {
			continue
		}
		delete(s.limiters, id)
		removed++
	}
	return removed
}

func (s *SpeakerLimiters) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}
