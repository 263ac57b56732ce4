package notify

import (
	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/alarm"
)

// Log is the fallback notifier for runs without a delivery channel: fired
// reminders land in the log and expire without user actions.
type Log struct{ log *zap.Logger }

func NewLog(log *zap.Logger) *Log { return &Log{log: log} }

func (l *Log) Show(p alarm.Payload) error {
	l.log.Info("reminder due",
		zap.String("medicine", p.MedicineName),
		zap.String("medicineID", p.MedicineID.String()),
		zap.Bool("fullScreen", p.FullScreen),
		zap.Int("snoozeCount", p.SnoozeCount),
	)
	return nil
}

func (l *Log) Cancel(notificationID int) {
	l.log.Debug("reminder cleared", zap.Int("notificationID", notificationID))
}

// Feedback is the sound/vibration session adapter. Headless builds only log;
// the handler still owns the session lifetime, so a platform adapter can drop
// in without touching the state machine.
type Feedback struct {
	log *zap.Logger
}

func NewFeedback(log *zap.Logger) *Feedback { return &Feedback{log: log} }

func (f *Feedback) Start(sound, vibration bool) {
	if !sound && !vibration {
		return
	}
	f.log.Debug("feedback started", zap.Bool("sound", sound), zap.Bool("vibration", vibration))
}

func (f *Feedback) Stop() {
	f.log.Debug("feedback stopped")
}
