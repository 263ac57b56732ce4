// Package planner keeps platform timers in sync with the stored medicines:
// a periodic scan arms the next occurrence of every medicine due within the
// lookahead window. Arming is idempotent, so the loop is safe to re-run.
package planner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/alarm"
	"github.com/deveshub/medminder/internal/schedule"
	"github.com/deveshub/medminder/internal/store"
)

type Planner struct {
	repo      store.MedicineRepo
	alarms    *alarm.Scheduler
	log       *zap.Logger
	interval  time.Duration
	lookahead time.Duration
	now       func() time.Time
}

func New(repo store.MedicineRepo, alarms *alarm.Scheduler, log *zap.Logger, interval, lookahead time.Duration) *Planner {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if lookahead <= 0 {
		lookahead = 24 * time.Hour
	}
	return &Planner{
		repo:      repo,
		alarms:    alarms,
		log:       log,
		interval:  interval,
		lookahead: lookahead,
		now:       time.Now,
	}
}

// Run arms immediately (boot re-arm after process death), then keeps looping
// until the context is canceled.
func (p *Planner) Run(ctx context.Context) {
	p.Tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.log.Info("planner stopping")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick performs one arming cycle.
func (p *Planner) Tick(ctx context.Context) {
	now := p.now()
	meds, err := p.repo.ListDueBetween(ctx, now, now.Add(p.lookahead))
	if err != nil {
		p.log.Error("due scan failed", zap.Error(err))
		return
	}

	for i := range meds {
		m := &meds[i]
		if !m.Reminder.Enabled {
			continue
		}
		// A live snooze chain owns the medicine's reminder cycle; arming a
		// new primary now would supersede it mid-flight.
		if p.alarms.SnoozePending(m.ID) {
			continue
		}
		next, ok := schedule.Next(m.Schedule, m.StartDate, m.EndDate, now)
		if !ok {
			continue
		}
		if armed, ok := p.alarms.PrimaryArmedAt(m.ID); ok && armed.Equal(next) {
			continue
		}
		p.alarms.Arm(m, next)
		p.log.Debug("armed occurrence",
			zap.String("medicineID", m.ID.String()),
			zap.String("medicine", m.Name),
			zap.Time("at", next),
		)
	}
}
