// Package service is the write-side entry point for medicine records:
// validation happens here, before anything reaches storage or the alarm
// table.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/alarm"
	"github.com/deveshub/medminder/internal/domain"
	"github.com/deveshub/medminder/internal/schedule"
	"github.com/deveshub/medminder/internal/store"
)

type Service struct {
	repo   store.MedicineRepo
	alarms *alarm.Scheduler
	log    *zap.Logger
	now    func() time.Time
}

func New(repo store.MedicineRepo, alarms *alarm.Scheduler, log *zap.Logger) *Service {
	return &Service{repo: repo, alarms: alarms, log: log, now: time.Now}
}

// AddMedicine validates and stores a new medicine, then arms its next
// occurrence. Scheduling problems never fail the add; the record is stored
// and the planner retries arming on its next pass.
func (s *Service) AddMedicine(ctx context.Context, m *domain.Medicine) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := s.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if m.Status == "" {
		m.Status = domain.StatusPending
	}

	if err := domain.Validate(m); err != nil {
		return err
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		return fmt.Errorf("store medicine: %w", err)
	}

	s.armNext(m)
	s.log.Info("medicine added",
		zap.String("medicineID", m.ID.String()),
		zap.String("name", m.Name),
	)
	return nil
}

// UpdateMedicine validates and persists changes, then re-arms from the new
// schedule. The old timers are dropped first so a shrunk schedule cannot
// leave a stale occurrence armed.
func (s *Service) UpdateMedicine(ctx context.Context, m *domain.Medicine) error {
	if err := domain.Validate(m); err != nil {
		return err
	}
	m.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, m); err != nil {
		return fmt.Errorf("update medicine: %w", err)
	}

	s.alarms.CancelAll(m.ID)
	if m.Reminder.Enabled {
		s.armNext(m)
	}
	s.log.Info("medicine updated", zap.String("medicineID", m.ID.String()))
	return nil
}

// DeleteMedicine removes the record and drops every armed timer for it,
// primary and snooze alike. A timer that fires in the gap finds no medicine
// and is discarded by the event handler.
func (s *Service) DeleteMedicine(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete medicine: %w", err)
	}
	s.alarms.CancelAll(id)
	s.log.Info("medicine deleted", zap.String("medicineID", id.String()))
	return nil
}

// ImportMedicines validates and bulk-loads records; the planner arms them on
// its next pass.
func (s *Service) ImportMedicines(ctx context.Context, ms []domain.Medicine) error {
	now := s.now()
	for i := range ms {
		m := &ms[i]
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.UpdatedAt = now
		if m.Status == "" {
			m.Status = domain.StatusPending
		}
		if err := domain.Validate(m); err != nil {
			return fmt.Errorf("medicine %d (%s): %w", i, m.Name, err)
		}
	}
	if err := s.repo.ImportAll(ctx, ms); err != nil {
		return fmt.Errorf("import medicines: %w", err)
	}
	s.log.Info("medicines imported", zap.Int("count", len(ms)))
	return nil
}

// ExportMedicines dumps every stored record.
func (s *Service) ExportMedicines(ctx context.Context) ([]domain.Medicine, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) armNext(m *domain.Medicine) {
	if !m.Reminder.Enabled {
		return
	}
	next, ok := schedule.Next(m.Schedule, m.StartDate, m.EndDate, s.now())
	if !ok {
		return
	}
	s.alarms.Arm(m, next)
}
