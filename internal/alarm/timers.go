package alarm

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type pendingTimer struct {
	at    time.Time
	timer *time.Timer
}

// Timers is the in-process Port implementation: one time.Timer per armed
// identifier. The exact flag models the platform's exact-alarm permission;
// with it off, ArmExact refuses and inexact fires carry a fixed slack.
type Timers struct {
	log   *zap.Logger
	fire  func(Payload)
	exact bool
	slack time.Duration

	mu      sync.Mutex
	pending map[int]pendingTimer
}

// NewTimers creates a timer table delivering fires to the given callback. The
// callback runs on the timer's goroutine; handlers are expected to be
// short-lived units of work.
func NewTimers(fire func(Payload), exact bool, slack time.Duration, log *zap.Logger) *Timers {
	return &Timers{
		log:     log,
		fire:    fire,
		exact:   exact,
		slack:   slack,
		pending: make(map[int]pendingTimer),
	}
}

func (t *Timers) ArmExact(id int, at time.Time, p Payload) error {
	if !t.exact {
		return ErrExactUnavailable
	}
	t.arm(id, at, p)
	return nil
}

func (t *Timers) ArmInexact(id int, at time.Time, p Payload) error {
	t.arm(id, at.Add(t.slack), p)
	return nil
}

func (t *Timers) arm(id int, at time.Time, p Payload) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.pending[id]; ok {
		prev.timer.Stop()
	}
	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	t.pending[id] = pendingTimer{
		at: at,
		timer: time.AfterFunc(d, func() {
			t.mu.Lock()
			// A replacement may have swapped the entry after this timer was
			// already committed to firing; the armed instant disambiguates,
			// and a superseded fire is swallowed.
			cur, ok := t.pending[id]
			if ok && cur.at.Equal(at) {
				delete(t.pending, id)
			}
			t.mu.Unlock()
			if ok && cur.at.Equal(at) {
				t.fire(p)
			}
		}),
	}
}

func (t *Timers) Cancel(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.pending[id]; ok {
		prev.timer.Stop()
		delete(t.pending, id)
	}
}

func (t *Timers) ArmedAt(id int) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[id]
	return p.at, ok
}

// Stop cancels every pending timer. Called on shutdown.
func (t *Timers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, p := range t.pending {
		p.timer.Stop()
		delete(t.pending, id)
	}
}
