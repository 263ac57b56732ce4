// Package settings exposes the default snooze interval as a live value:
// readers get the current minutes, subscribers get every change in order.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/store"
)

const snoozeKey = "default_snooze_interval"

// DefaultSnoozeMinutes applies when nothing has been stored yet.
const DefaultSnoozeMinutes = 15

// Provider holds the persisted default snooze interval and pushes updates to
// subscribers. Subscription channels are buffered; a slow consumer misses
// intermediate values but always observes the latest on its next read.
type Provider struct {
	repo store.SettingsRepo
	log  *zap.Logger

	mu      sync.RWMutex
	minutes int
	subs    map[int]chan int
	nextSub int
}

// New loads the stored value, falling back to DefaultSnoozeMinutes.
func New(ctx context.Context, repo store.SettingsRepo, log *zap.Logger) (*Provider, error) {
	p := &Provider{
		repo:    repo,
		log:     log,
		minutes: DefaultSnoozeMinutes,
		subs:    make(map[int]chan int),
	}
	raw, err := repo.GetSetting(ctx, snoozeKey)
	switch {
	case errors.Is(err, store.ErrNoSetting):
		// first run, keep the default
	case err != nil:
		return nil, fmt.Errorf("load snooze setting: %w", err)
	default:
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n <= 0 {
			log.Warn("ignoring corrupt snooze setting", zap.String("value", raw))
		} else {
			p.minutes = n
		}
	}
	return p, nil
}

// DefaultSnoozeInterval returns the current value in minutes.
func (p *Provider) DefaultSnoozeInterval() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.minutes
}

// SetDefaultSnoozeInterval persists a new value and notifies subscribers.
func (p *Provider) SetDefaultSnoozeInterval(ctx context.Context, minutes int) error {
	if minutes <= 0 {
		return errors.New("snooze interval must be positive")
	}
	if err := p.repo.SetSetting(ctx, snoozeKey, strconv.Itoa(minutes)); err != nil {
		return fmt.Errorf("persist snooze setting: %w", err)
	}

	p.mu.Lock()
	p.minutes = minutes
	for _, ch := range p.subs {
		select {
		case ch <- minutes:
		default: // drop rather than block the writer
		}
	}
	p.mu.Unlock()

	p.log.Info("default snooze interval updated", zap.Int("minutes", minutes))
	return nil
}

// Subscribe registers for updates. The returned cancel func removes the
// subscription and closes the channel.
func (p *Provider) Subscribe() (<-chan int, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	ch := make(chan int, 1)
	p.subs[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
	}
	return ch, cancel
}
