// Package scheduler fires the sign-in once a day at a wall-clock time.
package scheduler

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"qiandao/internal/config"
)

// TriggerFunc is called when the daily time arrives. A returned error is
// logged and the schedule stays armed.
type TriggerFunc func() error

// TimeOfDay is an hour and minute in the scheduler's location.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Spec is the cron expression firing daily at t.
func (t TimeOfDay) Spec() string {
	return fmt.Sprintf("%d %d * * *", t.Minute, t.Hour)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Scheduler owns one cron runner with a single daily entry.
type Scheduler struct {
	trigger TriggerFunc
	loc     *time.Location

	mu    sync.Mutex
	cron  *cron.Cron
	entry cron.EntryID
	at    TimeOfDay
}

// New creates a stopped scheduler evaluating times in loc.
func New(trigger TriggerFunc, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{trigger: trigger, loc: loc}
}

// Start arms the daily trigger at t, replacing any previous time.
func (s *Scheduler) Start(t TimeOfDay) error {
	if err := config.CheckTimeOfDay(t.Hour, t.Minute); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	c := cron.New(cron.WithLocation(s.loc))
	id, err := c.AddFunc(t.Spec(), s.fire)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", t, err)
	}
	c.Start()
	s.cron, s.entry, s.at = c, id, t
	log.Printf("[scheduler] armed daily at %s %s", t, s.loc)
	return nil
}

func (s *Scheduler) fire() {
	log.Printf("[scheduler] daily sign-in time reached")
	if err := s.trigger(); err != nil {
		log.Printf("[scheduler] trigger skipped: %v", err)
	}
}

// Stop disarms the trigger. It does not wait for a run the trigger started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		s.stopLocked()
		log.Printf("[scheduler] stopped")
	}
}

func (s *Scheduler) stopLocked() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron = nil
	s.entry = 0
}

// Running reports whether a daily trigger is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// At returns the armed time.
func (s *Scheduler) At() (TimeOfDay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.at, s.cron != nil
}

// Next returns the next firing time, computed from now when the runner has
// not scheduled it yet.
func (s *Scheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}, false
	}
	if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
		return next, true
	}
	return NextAfter(s.at, time.Now().In(s.loc)), true
}

// NextAfter is the first instant strictly after from at which t occurs, in
// from's location.
func NextAfter(t TimeOfDay, from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), t.Hour, t.Minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
