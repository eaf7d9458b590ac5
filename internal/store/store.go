// Package store persists the per-user record behind a narrow interface so
// request handlers never share ambient mutable state.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("user record not found")
	// ErrConflict is returned by Update when the record keeps changing
	// underneath it.
	ErrConflict = errors.New("user record changed concurrently")
)

// UserRecord is the small JSON blob kept per Telegram user.
type UserRecord struct {
	UserID int64 `json:"user_id"`

	BirthDate string  `json:"birth_date,omitempty"`
	BirthTime string  `json:"birth_time,omitempty"`
	City      string  `json:"city,omitempty"`
	Place     string  `json:"place,omitempty"`
	Lat       float64 `json:"lat,omitempty"`
	Lon       float64 `json:"lon,omitempty"`
	Timezone  string  `json:"timezone,omitempty"`

	// Summary holds the derived sign per body, e.g. "Sun": "Libra".
	Summary   map[string]string `json:"summary,omitempty"`
	Ascendant string            `json:"ascendant,omitempty"`

	Subscribed   bool      `json:"subscribed,omitempty"`
	Reports      int       `json:"reports,omitempty"`
	LastReportAt time.Time `json:"last_report_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Version is bumped on every successful write.
	Version int64 `json:"version"`
}

// HasBirthData reports whether the user already sent their birth data.
func (r UserRecord) HasBirthData() bool {
	return r.BirthDate != "" && r.Timezone != ""
}

type Store interface {
	Get(ctx context.Context, userID int64) (UserRecord, error)
	// Put overwrites the record unconditionally.
	Put(ctx context.Context, rec UserRecord) (UserRecord, error)
	// CompareAndSwap writes next only if the stored version still equals
	// prev.Version. A missing record has version 0.
	CompareAndSwap(ctx context.Context, prev, next UserRecord) (UserRecord, bool, error)
	Close() error
}

const maxUpdateAttempts = 5

// Update applies fn to the current record and stores the result with
// CompareAndSwap, retrying when another writer got there first. A missing
// record starts from an empty one.
func Update(ctx context.Context, s Store, userID int64, fn func(*UserRecord) error) (UserRecord, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		cur, err := s.Get(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			cur = UserRecord{UserID: userID}
		} else if err != nil {
			return UserRecord{}, err
		}
		next := cur
		next.Summary = copySummary(cur.Summary)
		if err := fn(&next); err != nil {
			return UserRecord{}, err
		}
		stored, ok, err := s.CompareAndSwap(ctx, cur, next)
		if err != nil {
			return UserRecord{}, err
		}
		if ok {
			return stored, nil
		}
	}
	return UserRecord{}, ErrConflict
}

func copySummary(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func stamp(rec UserRecord, version int64) UserRecord {
	rec.Version = version
	rec.UpdatedAt = time.Now().UTC()
	return rec
}
