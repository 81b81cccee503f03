// Package seo fills concert SEO metadata and descriptive copy using the
// text generation provider.
package seo

import (
	"context"
	"fmt"
	"time"

	"conciertapp/internal/app/batch"
	"conciertapp/internal/logging"
	"conciertapp/internal/models"
	"conciertapp/internal/richtext"
	"conciertapp/internal/textgen"
)

const (
	// BatchSize bounds the concerts handled per batch run.
	BatchSize = 50

	seoJob  = "populate-seo"
	infoJob = "populate-info"
)

// Store exposes the concert persistence the generators need.
type Store interface {
	GetConcert(ctx context.Context, id string) (*models.Concert, error)
	ListConcertsMissingSEO(ctx context.Context, limit int) ([]models.Concert, error)
	ListConcertsMissingInfo(ctx context.Context, limit int) ([]models.Concert, error)
	UpdateConcertSEO(ctx context.Context, concertID string, seo models.SEO) error
	UpdateConcertInfo(ctx context.Context, concertID string, info models.Section) error
}

// Generator is the text generation provider.
type Generator interface {
	GenerateSEO(ctx context.Context, brief textgen.ConcertBrief) (textgen.SEO, error)
	GenerateInfo(ctx context.Context, brief textgen.ConcertBrief, now time.Time) (string, error)
}

// Result is the outcome for one concert.
type Result struct {
	ConcertID string       `json:"concertId"`
	Title     string       `json:"title"`
	Status    batch.Status `json:"status"`
	Error     string       `json:"error,omitempty"`
}

// Outcome implements batch.Outcome.
func (r Result) Outcome() batch.Status { return r.Status }

// Service provides SEO and descriptive copy generation.
type Service interface {
	PopulateSEO(ctx context.Context) ([]Result, error)
	GenerateSEO(ctx context.Context, concertID string) (*models.SEO, error)
	PopulateInfo(ctx context.Context) ([]Result, error)
	GenerateInfo(ctx context.Context, concertID string) (*models.Section, error)
}

type service struct {
	store       Store
	generator   Generator
	concurrency int
	now         func() time.Time
}

// New constructs a Service.
func New(store Store, generator Generator, concurrency int) Service {
	return &service{store: store, generator: generator, concurrency: concurrency, now: time.Now}
}

// ready reports a missing generator as textgen.ErrNotConfigured.
func (s *service) ready(job string) error {
	if s.generator == nil {
		return fmt.Errorf("%s: %w", job, textgen.ErrNotConfigured)
	}
	return nil
}

func brief(c models.Concert) textgen.ConcertBrief {
	return textgen.ConcertBrief{
		Title:   c.Title,
		Date:    c.StartDate,
		Venue:   c.VenueName(),
		Artists: c.ArtistNames(),
	}
}

func failResult(c models.Concert, err error) Result {
	return Result{ConcertID: c.ID, Title: c.Title, Status: batch.StatusError, Error: batch.ErrorString(err)}
}

func (s *service) GenerateSEO(ctx context.Context, concertID string) (*models.SEO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(seoJob); err != nil {
		return nil, err
	}
	concert, err := s.store.GetConcert(ctx, concertID)
	if err != nil {
		return nil, err
	}
	return s.applySEO(ctx, *concert)
}

func (s *service) PopulateSEO(ctx context.Context) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(seoJob); err != nil {
		return nil, err
	}
	concerts, err := s.store.ListConcertsMissingSEO(ctx, BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list concerts missing seo: %w", err)
	}

	return batch.Run(ctx, batch.Options{Name: seoJob, Concurrency: s.concurrency}, concerts,
		func(ctx context.Context, c models.Concert) Result {
			if c.SEO.Complete() {
				return Result{ConcertID: c.ID, Title: c.Title, Status: batch.StatusSkipped}
			}
			if _, err := s.applySEO(ctx, c); err != nil {
				logging.WithContext(ctx).Warn().Err(err).Str("job", seoJob).Str("concert_id", c.ID).Msg("seo generation failed")
				return failResult(c, err)
			}
			return Result{ConcertID: c.ID, Title: c.Title, Status: batch.StatusSuccess}
		}, failResult), nil
}

// applySEO generates metadata for c and stores it. The poster doubles as
// the social image.
func (s *service) applySEO(ctx context.Context, c models.Concert) (*models.SEO, error) {
	generated, err := s.generator.GenerateSEO(ctx, brief(c))
	if err != nil {
		return nil, fmt.Errorf("generate seo: %w", err)
	}

	seo := models.SEO{
		MetaTitle:       generated.MetaTitle,
		MetaDescription: generated.MetaDescription,
		Keywords:        generated.Keywords,
		OGImage:         c.Poster,
	}
	if err := s.store.UpdateConcertSEO(ctx, c.ID, seo); err != nil {
		return nil, err
	}
	return &seo, nil
}

func (s *service) GenerateInfo(ctx context.Context, concertID string) (*models.Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(infoJob); err != nil {
		return nil, err
	}
	concert, err := s.store.GetConcert(ctx, concertID)
	if err != nil {
		return nil, err
	}
	return s.applyInfo(ctx, *concert)
}

func (s *service) PopulateInfo(ctx context.Context) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(infoJob); err != nil {
		return nil, err
	}
	concerts, err := s.store.ListConcertsMissingInfo(ctx, BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list concerts missing info: %w", err)
	}

	return batch.Run(ctx, batch.Options{Name: infoJob, Concurrency: s.concurrency}, concerts,
		func(ctx context.Context, c models.Concert) Result {
			if c.HasDescription() {
				return Result{ConcertID: c.ID, Title: c.Title, Status: batch.StatusSkipped}
			}
			if _, err := s.applyInfo(ctx, c); err != nil {
				logging.WithContext(ctx).Warn().Err(err).Str("job", infoJob).Str("concert_id", c.ID).Msg("info generation failed")
				return failResult(c, err)
			}
			return Result{ConcertID: c.ID, Title: c.Title, Status: batch.StatusSuccess}
		}, failResult), nil
}

// applyInfo replaces the additional info text and keeps its images.
func (s *service) applyInfo(ctx context.Context, c models.Concert) (*models.Section, error) {
	text, err := s.generator.GenerateInfo(ctx, brief(c), s.now())
	if err != nil {
		return nil, fmt.Errorf("generate info: %w", err)
	}

	info := models.Section{Description: richtext.FromText(text)}
	if c.AdditionalInfo != nil {
		info.Images = c.AdditionalInfo.Images
	}
	if err := s.store.UpdateConcertInfo(ctx, c.ID, info); err != nil {
		return nil, err
	}
	return &info, nil
}
