// Package slugs backfills missing concert slugs.
package slugs

import (
	"context"
	"errors"
	"fmt"

	"conciertapp/internal/app/batch"
	"conciertapp/internal/models"
	"conciertapp/internal/slug"
	"conciertapp/internal/store"
)

const (
	// BatchSize bounds the concerts handled per run.
	BatchSize = 1000
	// maxSuffix bounds collision probing for one concert.
	maxSuffix = 50
	jobName   = "populate-slugs"
)

// ErrNoFreeSlug means every suffixed candidate was taken.
var ErrNoFreeSlug = errors.New("no free slug")

// Store exposes the slug persistence.
type Store interface {
	ListConcertsMissingSlug(ctx context.Context, limit int) ([]models.Concert, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	UpdateConcertSlug(ctx context.Context, concertID, slug string) error
}

// Result is the outcome for one concert.
type Result struct {
	ConcertID string       `json:"concertId"`
	Title     string       `json:"title"`
	OldSlug   string       `json:"oldSlug"`
	NewSlug   string       `json:"newSlug,omitempty"`
	Status    batch.Status `json:"status"`
	Error     string       `json:"error,omitempty"`
}

// Outcome implements batch.Outcome.
func (r Result) Outcome() batch.Status { return r.Status }

// Service provides slug operations.
type Service interface {
	Populate(ctx context.Context) ([]Result, error)
}

type service struct {
	store       Store
	concurrency int
}

// New constructs a slug Service.
func New(store Store, concurrency int) Service {
	return &service{store: store, concurrency: concurrency}
}

func (s *service) Populate(ctx context.Context) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	concerts, err := s.store.ListConcertsMissingSlug(ctx, BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list concerts missing slug: %w", err)
	}

	return batch.Run(ctx, batch.Options{Name: jobName, Concurrency: s.concurrency}, concerts, s.assign,
		func(c models.Concert, err error) Result {
			return Result{ConcertID: c.ID, Title: c.Title, OldSlug: c.Slug, Status: batch.StatusError, Error: batch.ErrorString(err)}
		}), nil
}

func (s *service) assign(ctx context.Context, c models.Concert) Result {
	result := Result{ConcertID: c.ID, Title: c.Title, OldSlug: c.Slug}

	base, err := slug.Concert(c.Title, c.VenueName())
	if err != nil {
		result.Status = batch.StatusError
		result.Error = err.Error()
		return result
	}

	newSlug, err := s.claim(ctx, c.ID, base)
	if err != nil {
		result.Status = batch.StatusError
		result.Error = err.Error()
		return result
	}

	result.Status = batch.StatusSuccess
	result.NewSlug = newSlug
	return result
}

// claim stores base, or base-2, base-3, ... when taken.
func (s *service) claim(ctx context.Context, concertID, base string) (string, error) {
	for n := 1; n <= maxSuffix; n++ {
		candidate := base
		if n > 1 {
			candidate = slug.WithSuffix(base, n)
		}

		taken, err := s.store.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if taken {
			continue
		}

		err = s.store.UpdateConcertSlug(ctx, concertID, candidate)
		if errors.Is(err, store.ErrSlugTaken) {
			continue
		}
		if err != nil {
			return "", err
		}
		return candidate, nil
	}
	return "", fmt.Errorf("%w for %q after %d attempts", ErrNoFreeSlug, base, maxSuffix)
}
