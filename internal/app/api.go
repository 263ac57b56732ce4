package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/domain"
	"github.com/deveshub/medminder/internal/settings"
)

// The HTTP surface is deliberately small: medicine CRUD, import/export, and
// the default snooze setting. Reminder delivery itself never goes through
// HTTP.

type dosageDTO struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

type scheduleDTO struct {
	Frequency  string   `json:"frequency"`
	Times      []string `json:"times"`
	DaysOfWeek []string `json:"daysOfWeek,omitempty"`
	Interval   int      `json:"interval"`
}

type reminderDTO struct {
	Enabled          bool `json:"enabled"`
	SoundEnabled     bool `json:"soundEnabled"`
	VibrationEnabled bool `json:"vibrationEnabled"`
	FullScreenAlert  bool `json:"fullScreenAlert"`
	SnoozeInterval   int  `json:"snoozeInterval"`
	MaxSnoozeCount   int  `json:"maxSnoozeCount"`
}

type medicineDTO struct {
	ID               string      `json:"id,omitempty"`
	Name             string      `json:"name"`
	Dosage           dosageDTO   `json:"dosage"`
	Schedule         scheduleDTO `json:"schedule"`
	Instructions     string      `json:"instructions,omitempty"`
	StartDate        time.Time   `json:"startDate"`
	EndDate          *time.Time  `json:"endDate,omitempty"`
	Reminder         reminderDTO `json:"reminder"`
	Status           string      `json:"status,omitempty"`
	LastStatusUpdate *time.Time  `json:"lastStatusUpdate,omitempty"`
	CreatedAt        time.Time   `json:"createdAt,omitempty"`
	UpdatedAt        time.Time   `json:"updatedAt,omitempty"`
}

func (a *App) routes(snooze *settings.Provider) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/medicines", a.handleMedicines)
	mux.HandleFunc("/medicines/", a.handleMedicineByID)
	mux.HandleFunc("/medicines/import", a.handleImport)
	mux.HandleFunc("/settings/snooze", a.handleSnoozeSetting(snooze))
	return mux
}

func (a *App) handleMedicines(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ms, err := a.svc.ExportMedicines(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		dtos := make([]medicineDTO, len(ms))
		for i := range ms {
			dtos[i] = toDTO(&ms[i])
		}
		writeJSON(w, http.StatusOK, dtos)

	case http.MethodPost:
		var dto medicineDTO
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m, err := fromDTO(&dto)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := a.svc.AddMedicine(r.Context(), m); err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDTO(m))

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *App) handleMedicineByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/medicines/")
	if rest == "import" {
		a.handleImport(w, r)
		return
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		http.Error(w, "invalid medicine id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		m, err := a.repo.GetByID(r.Context(), id)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDTO(m))

	case http.MethodPut:
		var dto medicineDTO
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m, err := fromDTO(&dto)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		existing, err := a.repo.GetByID(r.Context(), id)
		if err != nil {
			a.fail(w, err)
			return
		}
		// Fields the request may omit keep their stored values.
		m.ID = id
		m.CreatedAt = existing.CreatedAt
		if dto.Status == "" {
			m.Status = existing.Status
		}
		if dto.LastStatusUpdate == nil {
			m.LastStatusUpdate = existing.LastStatusUpdate
		}
		if err := a.svc.UpdateMedicine(r.Context(), m); err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDTO(m))

	case http.MethodDelete:
		if err := a.svc.DeleteMedicine(r.Context(), id); err != nil {
			a.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *App) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var dtos []medicineDTO
	if err := json.NewDecoder(r.Body).Decode(&dtos); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ms := make([]domain.Medicine, 0, len(dtos))
	for i := range dtos {
		m, err := fromDTO(&dtos[i])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ms = append(ms, *m)
	}
	if err := a.svc.ImportMedicines(r.Context(), ms); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleSnoozeSetting(snooze *settings.Provider) http.HandlerFunc {
	type body struct {
		Minutes int `json:"minutes"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, body{Minutes: snooze.DefaultSnoozeInterval()})
		case http.MethodPut:
			var b body
			if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := snooze.SetDefaultSnoozeInterval(r.Context(), b.Minutes); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// fail maps domain errors onto HTTP statuses: validation 400, missing 404,
// anything else 500.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case isValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		a.log.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func isValidation(err error) bool {
	for _, v := range []error{
		domain.ErrEmptyName, domain.ErrNonPositiveDosage, domain.ErrNoTimes,
		domain.ErrNoDays, domain.ErrBadInterval, domain.ErrEndBeforeStart,
		domain.ErrBadSnooze, domain.ErrBadSnoozeBudget,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func toDTO(m *domain.Medicine) medicineDTO {
	times := make([]string, len(m.Schedule.Times))
	for i, t := range m.Schedule.Times {
		times[i] = t.String()
	}
	var days []string
	for _, d := range m.Schedule.DaysOfWeek {
		days = append(days, domain.WeekdayName(d))
	}
	return medicineDTO{
		ID:   m.ID.String(),
		Name: m.Name,
		Dosage: dosageDTO{
			Amount: m.Dosage.Amount,
			Unit:   string(m.Dosage.Unit),
		},
		Schedule: scheduleDTO{
			Frequency:  string(m.Schedule.Frequency),
			Times:      times,
			DaysOfWeek: days,
			Interval:   m.Schedule.Interval,
		},
		Instructions:     m.Instructions,
		StartDate:        m.StartDate,
		EndDate:          m.EndDate,
		Reminder:         reminderDTO(m.Reminder),
		Status:           string(m.Status),
		LastStatusUpdate: m.LastStatusUpdate,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func fromDTO(dto *medicineDTO) (*domain.Medicine, error) {
	var id uuid.UUID
	if dto.ID != "" {
		parsed, err := uuid.Parse(dto.ID)
		if err != nil {
			return nil, err
		}
		id = parsed
	}
	times := make([]domain.TimeOfDay, 0, len(dto.Schedule.Times))
	for _, s := range dto.Schedule.Times {
		t, err := domain.ParseTimeOfDay(s)
		if err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	var days []time.Weekday
	for _, s := range dto.Schedule.DaysOfWeek {
		d, err := domain.ParseWeekday(s)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	status := domain.StatusPending
	if dto.Status != "" {
		parsed, err := domain.ParseStatus(dto.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	return &domain.Medicine{
		ID:   id,
		Name: dto.Name,
		Dosage: domain.Dosage{
			Amount: dto.Dosage.Amount,
			Unit:   domain.DosageUnit(dto.Dosage.Unit),
		},
		Schedule: domain.Schedule{
			Frequency:  domain.Frequency(dto.Schedule.Frequency),
			Times:      times,
			DaysOfWeek: days,
			Interval:   dto.Schedule.Interval,
		},
		Instructions:     dto.Instructions,
		StartDate:        dto.StartDate,
		EndDate:          dto.EndDate,
		Reminder:         domain.ReminderSettings(dto.Reminder),
		Status:           status,
		LastStatusUpdate: dto.LastStatusUpdate,
		CreatedAt:        dto.CreatedAt,
		UpdatedAt:        dto.UpdatedAt,
	}, nil
}
