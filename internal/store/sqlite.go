package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/deveshub/medminder/internal/domain"
)

// SQLiteRepo implements MedicineRepo and SettingsRepo over one embedded
// SQLite database; Jobs() exposes the status queue sharing it.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the database at the given path, applies
// recommended PRAGMAs, runs migrations, and returns the repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single-writer engine; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

const medicineColumns = `
	id, name, dosage_amount, dosage_unit, frequency, times, days_of_week,
	repeat_interval, instructions, start_date, end_date,
	reminder_enabled, sound_enabled, vibration_enabled, full_screen_alert,
	snooze_interval, max_snooze_count,
	status, last_status_update, created_at, updated_at`

// Insert stores a new medicine record.
func (r *SQLiteRepo) Insert(ctx context.Context, m *domain.Medicine) error {
	if m == nil {
		return errors.New("nil medicine")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medicines (`+medicineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		medicineArgs(m)...,
	)
	return err
}

// Update overwrites an existing record; updating a deleted medicine returns
// domain.ErrNotFound.
func (r *SQLiteRepo) Update(ctx context.Context, m *domain.Medicine) error {
	if m == nil {
		return errors.New("nil medicine")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE medicines SET
			name = ?, dosage_amount = ?, dosage_unit = ?, frequency = ?,
			times = ?, days_of_week = ?, repeat_interval = ?, instructions = ?,
			start_date = ?, end_date = ?,
			reminder_enabled = ?, sound_enabled = ?, vibration_enabled = ?,
			full_screen_alert = ?, snooze_interval = ?, max_snooze_count = ?,
			status = ?, last_status_update = ?, created_at = ?, updated_at = ?
		WHERE id = ?`,
		append(medicineArgs(m)[1:], m.ID.String())...,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a medicine record.
func (r *SQLiteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = ?`, id.String())
	return err
}

// GetByID returns the medicine or domain.ErrNotFound.
func (r *SQLiteRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Medicine, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+medicineColumns+` FROM medicines WHERE id = ?`, id.String())
	m, err := scanMedicine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListAll returns every medicine, ordered by name. Also the export surface.
func (r *SQLiteRepo) ListAll(ctx context.Context) ([]domain.Medicine, error) {
	return r.list(ctx, `SELECT `+medicineColumns+` FROM medicines ORDER BY name ASC`)
}

// ListDueBetween returns medicines whose validity window overlaps [from, to),
// ordered by start date. Schedule expansion decides the actual instants; this
// only prunes by window. The end date is inclusive through the end of its
// calendar day, so the stored instant gets a day's worth of slack here.
func (r *SQLiteRepo) ListDueBetween(ctx context.Context, from, to time.Time) ([]domain.Medicine, error) {
	return r.list(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		WHERE start_date < ?
		  AND (end_date IS NULL OR end_date + 86399 >= ?)
		ORDER BY start_date ASC`,
		to.UTC().Unix(), from.UTC().Unix(),
	)
}

// ImportAll bulk-inserts medicines, replacing records with matching ids.
func (r *SQLiteRepo) ImportAll(ctx context.Context, ms []domain.Medicine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i := range ms {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO medicines (`+medicineColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			medicineArgs(&ms[i])...,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepo) list(ctx context.Context, query string, args ...any) ([]domain.Medicine, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func medicineArgs(m *domain.Medicine) []any {
	var instructions sql.NullString
	if m.Instructions != "" {
		instructions = sql.NullString{String: m.Instructions, Valid: true}
	}
	return []any{
		m.ID.String(), m.Name, m.Dosage.Amount, string(m.Dosage.Unit),
		string(m.Schedule.Frequency), encodeTimes(m.Schedule.Times),
		encodeDays(m.Schedule.DaysOfWeek), m.Schedule.Interval, instructions,
		m.StartDate.UTC().Unix(), toNullInt64(m.EndDate),
		boolToInt(m.Reminder.Enabled), boolToInt(m.Reminder.SoundEnabled),
		boolToInt(m.Reminder.VibrationEnabled), boolToInt(m.Reminder.FullScreenAlert),
		m.Reminder.SnoozeInterval, m.Reminder.MaxSnoozeCount,
		string(m.Status), toNullInt64(m.LastStatusUpdate),
		m.CreatedAt.UTC().Unix(), m.UpdatedAt.UTC().Unix(),
	}
}

type rowScanner interface{ Scan(dest ...any) error }

func scanMedicine(row rowScanner) (*domain.Medicine, error) {
	var (
		idStr, name, unit, freq, times string
		amount                         float64
		days, instructions             sql.NullString
		interval                       int
		startUnix, createdAt, updated  int64
		endNS, lastNS                  sql.NullInt64
		enabled, sound, vib, fs        int
		snoozeIvl, maxSnooze           int
		statusStr                      string
	)
	if err := row.Scan(
		&idStr, &name, &amount, &unit, &freq, &times, &days,
		&interval, &instructions, &startUnix, &endNS,
		&enabled, &sound, &vib, &fs,
		&snoozeIvl, &maxSnooze,
		&statusStr, &lastNS, &createdAt, &updated,
	); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt medicine id %q: %w", idStr, err)
	}
	ts, err := decodeTimes(times)
	if err != nil {
		return nil, fmt.Errorf("corrupt times for %s: %w", idStr, err)
	}
	ds, err := decodeDays(days)
	if err != nil {
		return nil, fmt.Errorf("corrupt days for %s: %w", idStr, err)
	}
	st, err := domain.ParseStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt status for %s: %w", idStr, err)
	}

	return &domain.Medicine{
		ID:   id,
		Name: name,
		Dosage: domain.Dosage{
			Amount: amount,
			Unit:   domain.DosageUnit(unit),
		},
		Schedule: domain.Schedule{
			Frequency:  domain.Frequency(freq),
			Times:      ts,
			DaysOfWeek: ds,
			Interval:   interval,
		},
		Instructions: instructions.String,
		StartDate:    time.Unix(startUnix, 0).UTC(),
		EndDate:      fromNullInt64(endNS),
		Reminder: domain.ReminderSettings{
			Enabled:          enabled != 0,
			SoundEnabled:     sound != 0,
			VibrationEnabled: vib != 0,
			FullScreenAlert:  fs != 0,
			SnoozeInterval:   snoozeIvl,
			MaxSnoozeCount:   maxSnooze,
		},
		Status:           st,
		LastStatusUpdate: fromNullInt64(lastNS),
		CreatedAt:        time.Unix(createdAt, 0).UTC(),
		UpdatedAt:        time.Unix(updated, 0).UTC(),
	}, nil
}
