// Package dates gives all-day concert imports a default display time.
package dates

import (
	"context"
	"fmt"
	"time"

	"conciertapp/internal/app/batch"
	"conciertapp/internal/models"
)

const (
	// BatchSize bounds the concerts handled per run.
	BatchSize = 1000
	// DefaultHour replaces a midnight start, in UTC.
	DefaultHour = 12
	jobName     = "update-concert-dates"
)

// Store exposes the start-date persistence.
type Store interface {
	ListMidnightConcerts(ctx context.Context, limit int) ([]models.Concert, error)
	UpdateConcertStart(ctx context.Context, concertID string, start time.Time) error
}

// Result is the outcome for one concert.
type Result struct {
	ConcertID string       `json:"concertId"`
	Title     string       `json:"title"`
	OldDate   time.Time    `json:"oldDate"`
	NewDate   *time.Time   `json:"newDate,omitempty"`
	Status    batch.Status `json:"status"`
	Error     string       `json:"error,omitempty"`
}

// Outcome implements batch.Outcome.
func (r Result) Outcome() batch.Status { return r.Status }

// Normalize moves a start at exactly 00:00:00 UTC to DefaultHour on the
// same UTC date. Any other instant is returned unchanged with false.
func Normalize(t time.Time) (time.Time, bool) {
	u := t.UTC()
	if u.Hour() != 0 || u.Minute() != 0 || u.Second() != 0 || u.Nanosecond() != 0 {
		return t, false
	}
	return time.Date(u.Year(), u.Month(), u.Day(), DefaultHour, 0, 0, 0, time.UTC), true
}

// Service provides start-date normalization.
type Service interface {
	Normalize(ctx context.Context) ([]Result, error)
}

type service struct {
	store       Store
	concurrency int
}

// New constructs a date Service.
func New(store Store, concurrency int) Service {
	return &service{store: store, concurrency: concurrency}
}

func (s *service) Normalize(ctx context.Context) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	concerts, err := s.store.ListMidnightConcerts(ctx, BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list midnight concerts: %w", err)
	}

	return batch.Run(ctx, batch.Options{Name: jobName, Concurrency: s.concurrency}, concerts,
		func(ctx context.Context, c models.Concert) Result {
			result := Result{ConcertID: c.ID, Title: c.Title, OldDate: c.StartDate}
			next, changed := Normalize(c.StartDate)
			if !changed {
				result.Status = batch.StatusSkipped
				return result
			}
			if err := s.store.UpdateConcertStart(ctx, c.ID, next); err != nil {
				result.Status = batch.StatusError
				result.Error = err.Error()
				return result
			}
			result.Status = batch.StatusSuccess
			result.NewDate = &next
			return result
		},
		func(c models.Concert, err error) Result {
			return Result{ConcertID: c.ID, Title: c.Title, OldDate: c.StartDate, Status: batch.StatusError, Error: batch.ErrorString(err)}
		}), nil
}
