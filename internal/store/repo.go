package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/deveshub/medminder/internal/domain"
)

// ErrNoSetting is returned when a settings key has never been written.
var ErrNoSetting = errors.New("setting not found")

// MedicineRepo is the storage contract for medicine records. Lookups of
// missing medicines return domain.ErrNotFound.
type MedicineRepo interface {
	Insert(ctx context.Context, m *domain.Medicine) error
	Update(ctx context.Context, m *domain.Medicine) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Medicine, error)
	ListAll(ctx context.Context) ([]domain.Medicine, error)
	// ListDueBetween returns medicines whose validity window overlaps
	// [from, to): the arming candidates for that window.
	ListDueBetween(ctx context.Context, from, to time.Time) ([]domain.Medicine, error)
	ImportAll(ctx context.Context, ms []domain.Medicine) error
	Close() error
}

// SettingsRepo persists small key/value settings.
type SettingsRepo interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}
