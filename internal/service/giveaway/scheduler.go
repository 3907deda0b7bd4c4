package giveaway

import (
	"sync"
	"time"

	"github.com/open-builders/guild-bot/internal/metrics"
)

// DefaultMaxTimerDelay is the longest single wait a timer segment may take.
const DefaultMaxTimerDelay = time.Duration(1<<31-1) * time.Millisecond

type timerEntry struct {
	gen   uint64
	timer *time.Timer
}

// Scheduler is the timer registry: at most one pending wake-up per giveaway id.
// Waits longer than maxDelay are chained in segments until the deadline fits.
type Scheduler struct {
	mu       sync.Mutex
	timers   map[string]*timerEntry
	gen      uint64
	maxDelay time.Duration
	now      func() time.Time
	fire     func(id string)
}

func NewScheduler(maxDelay time.Duration, now func() time.Time, fire func(id string)) *Scheduler {
	if maxDelay <= 0 {
		maxDelay = DefaultMaxTimerDelay
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		timers:   make(map[string]*timerEntry),
		maxDelay: maxDelay,
		now:      now,
		fire:     fire,
	}
}

// Schedule arms a wake-up for id at the given instant, replacing any pending
// one. A deadline already in the past fires right away.
func (s *Scheduler) Schedule(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked(id)
	s.gen++
	e := &timerEntry{gen: s.gen}
	s.timers[id] = e
	s.armLocked(id, e, at)
	metrics.SetGauge(metrics.GiveawayTimersArmed, float64(len(s.timers)))
}

func (s *Scheduler) armLocked(id string, e *timerEntry, at time.Time) {
	delay := at.Sub(s.now())
	if delay <= 0 {
		delete(s.timers, id)
		go s.fire(id)
		return
	}

	if delay > s.maxDelay {
		e.timer = time.AfterFunc(s.maxDelay, func() { s.rearm(id, e.gen, at) })
		return
	}
	e.timer = time.AfterFunc(delay, func() { s.expire(id, e.gen) })
}

func (s *Scheduler) rearm(id string, gen uint64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[id]
	if !ok || e.gen != gen {
		return
	}
	s.armLocked(id, e, at)
}

func (s *Scheduler) expire(id string, gen uint64) {
	s.mu.Lock()
	e, ok := s.timers[id]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	metrics.SetGauge(metrics.GiveawayTimersArmed, float64(len(s.timers)))
	s.mu.Unlock()

	s.fire(id)
}

// Cancel drops the pending wake-up for id. Unknown or fired ids are a no-op.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(id)
	metrics.SetGauge(metrics.GiveawayTimersArmed, float64(len(s.timers)))
}

func (s *Scheduler) stopLocked(id string) {
	if e, ok := s.timers[id]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.timers, id)
	}
}

func (s *Scheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending wake-up.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.timers {
		s.stopLocked(id)
	}
	metrics.SetGauge(metrics.GiveawayTimersArmed, 0)
}
