// Package reminder drives one notification's lifecycle: a fired occurrence
// shows an interactive reminder and waits for snooze/take/skip, re-arming
// itself through a bounded snooze chain until a terminal action or expiry.
package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/alarm"
	"github.com/deveshub/medminder/internal/domain"
)

// Action is a user response to a fired reminder.
type Action string

const (
	ActionSnooze Action = "snooze"
	ActionTake   Action = "take"
	ActionSkip   Action = "skip"
)

// ActionEvent re-enters the handler from a notification button. The payload
// is the one carried through the fire, not in-memory state: the action may
// arrive in a fresh process.
type ActionEvent struct {
	Action              Action
	Payload             alarm.Payload
	CustomSnoozeMinutes int // explicit user choice when > 0
}

// Notifier posts and clears the interactive reminder surface.
type Notifier interface {
	Show(p alarm.Payload) error
	Cancel(notificationID int)
}

// Feedback is the sound/vibration session for one fired reminder. The handler
// owns its lifetime: started on fire, stopped on every action.
type Feedback interface {
	Start(sound, vibration bool)
	Stop()
}

// Enqueuer hands status transitions to the durable pipeline.
type Enqueuer interface {
	Enqueue(ctx context.Context, medicineID uuid.UUID, target domain.AdherenceStatus) error
}

// Medicines is the read slice of the repository the handler needs.
type Medicines interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Medicine, error)
}

// Alarms re-arms the snooze timer for an in-progress cycle.
type Alarms interface {
	RearmSnooze(p alarm.Payload, at time.Time) int
}

// SnoozeDefaults supplies the global fallback snooze duration.
type SnoozeDefaults interface {
	DefaultSnoozeInterval() int
}

type Handler struct {
	medicines Medicines
	alarms    Alarms
	notifier  Notifier
	feedback  Feedback
	queue     Enqueuer
	defaults  SnoozeDefaults
	log       *zap.Logger
	now       func() time.Time

	// live maps a medicine to the notification id of its current fired cycle.
	// An action carrying a different id is stale: a newer primary fire has
	// superseded the cycle it belongs to.
	mu   sync.Mutex
	live map[uuid.UUID]int
}

func NewHandler(
	medicines Medicines,
	alarms Alarms,
	notifier Notifier,
	feedback Feedback,
	queue Enqueuer,
	defaults SnoozeDefaults,
	log *zap.Logger,
) *Handler {
	return &Handler{
		medicines: medicines,
		alarms:    alarms,
		notifier:  notifier,
		feedback:  feedback,
		queue:     queue,
		defaults:  defaults,
		log:       log,
		now:       time.Now,
		live:      make(map[uuid.UUID]int),
	}
}

// HandleFire is the ARMED -> FIRED transition. A fire for a medicine that no
// longer exists (deleted while the timer was pending) is discarded without
// side effects.
func (h *Handler) HandleFire(ctx context.Context, p alarm.Payload) {
	if p.MedicineID == uuid.Nil {
		h.log.Debug("discarding fire with empty payload")
		return
	}
	m, err := h.medicines.GetByID(ctx, p.MedicineID)
	if errors.Is(err, domain.ErrNotFound) {
		h.log.Info("fire for deleted medicine, discarding",
			zap.String("medicineID", p.MedicineID.String()))
		return
	}
	if err != nil {
		h.log.Error("medicine lookup failed on fire", zap.Error(err),
			zap.String("medicineID", p.MedicineID.String()))
		return
	}
	if !m.Reminder.Enabled {
		h.log.Debug("reminders disabled, discarding fire",
			zap.String("medicineID", p.MedicineID.String()))
		return
	}

	h.mu.Lock()
	h.live[p.MedicineID] = p.NotificationID
	h.mu.Unlock()

	if err := h.notifier.Show(p); err != nil {
		h.log.Error("show reminder failed", zap.Error(err),
			zap.String("medicineID", p.MedicineID.String()))
	}
	h.feedback.Start(p.Sound, p.Vibration)

	h.log.Info("reminder fired",
		zap.String("medicineID", p.MedicineID.String()),
		zap.String("medicine", p.MedicineName),
		zap.Int("snoozeCount", p.SnoozeCount),
	)
}

// HandleAction consumes a user response. Malformed events and events for a
// superseded cycle are discarded silently.
func (h *Handler) HandleAction(ctx context.Context, ev ActionEvent) {
	p := ev.Payload
	if p.MedicineID == uuid.Nil {
		h.log.Debug("discarding action with empty payload")
		return
	}
	switch ev.Action {
	case ActionSnooze, ActionTake, ActionSkip:
	default:
		h.log.Debug("discarding unknown action", zap.String("action", string(ev.Action)))
		return
	}
	if h.stale(p) {
		h.log.Info("discarding stale action",
			zap.String("medicineID", p.MedicineID.String()),
			zap.String("action", string(ev.Action)),
		)
		return
	}

	// The feedback session belongs to the fired cycle; every action ends it.
	h.feedback.Stop()

	switch ev.Action {
	case ActionTake:
		h.finish(ctx, p, domain.StatusTaken)
	case ActionSkip:
		h.finish(ctx, p, domain.StatusSkipped)
	case ActionSnooze:
		h.snooze(ctx, p, ev.CustomSnoozeMinutes)
	}
}

// stale reports whether the action belongs to a cycle that a newer primary
// fire has replaced. With no live record (fresh process) the carried payload
// is trusted.
func (h *Handler) stale(p alarm.Payload) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur, ok := h.live[p.MedicineID]
	return ok && cur != p.NotificationID
}

func (h *Handler) finish(ctx context.Context, p alarm.Payload, target domain.AdherenceStatus) {
	if err := h.queue.Enqueue(ctx, p.MedicineID, target); err != nil {
		h.log.Error("enqueue status update failed", zap.Error(err),
			zap.String("medicineID", p.MedicineID.String()),
			zap.String("status", string(target)),
		)
	}
	h.notifier.Cancel(p.NotificationID)
	h.clearLive(p.MedicineID)

	h.log.Info("reminder resolved",
		zap.String("medicineID", p.MedicineID.String()),
		zap.String("status", string(target)),
	)
}

// snooze is FIRED -> SNOOZED while budget remains, FIRED -> EXPIRED once it
// is exhausted. Expiry clears the notification and records nothing: the
// status stays whatever it last was.
func (h *Handler) snooze(ctx context.Context, p alarm.Payload, customMinutes int) {
	if p.SnoozeCount >= p.MaxSnoozeCount {
		h.notifier.Cancel(p.NotificationID)
		h.clearLive(p.MedicineID)
		h.log.Info("snooze budget exhausted, reminder expired",
			zap.String("medicineID", p.MedicineID.String()),
			zap.Int("snoozeCount", p.SnoozeCount),
		)
		return
	}

	minutes := customMinutes
	if minutes <= 0 {
		minutes = p.SnoozeInterval
	}
	if minutes <= 0 {
		minutes = h.defaults.DefaultSnoozeInterval()
	}

	if err := h.queue.Enqueue(ctx, p.MedicineID, domain.StatusSnoozed); err != nil {
		h.log.Error("enqueue snoozed status failed", zap.Error(err),
			zap.String("medicineID", p.MedicineID.String()))
	}

	p.SnoozeCount++
	at := h.now().Add(time.Duration(minutes) * time.Minute)
	h.alarms.RearmSnooze(p, at)
	h.notifier.Cancel(p.NotificationID)
	h.clearLive(p.MedicineID)

	h.log.Info("reminder snoozed",
		zap.String("medicineID", p.MedicineID.String()),
		zap.Int("minutes", minutes),
		zap.Int("snoozeCount", p.SnoozeCount),
		zap.Time("nextFireAt", at),
	)
}

func (h *Handler) clearLive(id uuid.UUID) {
	h.mu.Lock()
	delete(h.live, id)
	h.mu.Unlock()
}
