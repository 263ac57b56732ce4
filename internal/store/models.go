package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/deveshub/medminder/internal/domain"
)

func toNullInt64(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullInt64(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// encodeTimes stores a time set as "HH:MM,HH:MM,…" ascending.
func encodeTimes(ts []domain.TimeOfDay) string {
	cp := make([]domain.TimeOfDay, len(ts))
	copy(cp, ts)
	domain.SortTimes(cp)
	parts := make([]string, len(cp))
	for i, t := range cp {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

func decodeTimes(s string) ([]domain.TimeOfDay, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]domain.TimeOfDay, 0, len(parts))
	for _, p := range parts {
		t, err := domain.ParseTimeOfDay(p)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// encodeDays stores a weekday set as "MONDAY,WEDNESDAY,…"; NULL means none.
func encodeDays(ds []time.Weekday) sql.NullString {
	if len(ds) == 0 {
		return sql.NullString{}
	}
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = domain.WeekdayName(d)
	}
	return sql.NullString{String: strings.Join(parts, ","), Valid: true}
}

func decodeDays(ns sql.NullString) ([]time.Weekday, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	parts := strings.Split(ns.String, ",")
	out := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		d, err := domain.ParseWeekday(p)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
