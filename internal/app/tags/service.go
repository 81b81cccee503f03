// Package tags derives concert tags from the genres the music catalog
// reports for each performing artist.
package tags

import (
	"context"
	"errors"
	"fmt"
	"time"

	"conciertapp/internal/app/batch"
	"conciertapp/internal/logging"
	"conciertapp/internal/matching"
	"conciertapp/internal/models"
	"conciertapp/internal/musicapi"
)

const (
	// BatchSize bounds the concerts handled per run.
	BatchSize = 30
	jobName   = "populate-tags"
)

// Store exposes the persistence the tag job needs.
type Store interface {
	ListTagCandidates(ctx context.Context, after time.Time, limit int) ([]models.Concert, error)
	FindOrCreateTag(ctx context.Context, name, description string) (*models.Tag, bool, error)
	SetConcertTags(ctx context.Context, concertID string, tagIDs []string) error
	ListFeaturedTags(ctx context.Context) ([]models.Tag, error)
}

// Result is the outcome for one concert.
type Result struct {
	ConcertID       string       `json:"concertId"`
	Title           string       `json:"title"`
	Status          batch.Status `json:"status"`
	TagsCount       int          `json:"tagsCount"`
	ProcessedGenres []string     `json:"processedGenres,omitempty"`
	Warnings        []string     `json:"warnings,omitempty"`
	Error           string       `json:"error,omitempty"`
}

// Outcome implements batch.Outcome.
func (r Result) Outcome() batch.Status { return r.Status }

// Service provides tag operations.
type Service interface {
	// Populate tags the next batch of upcoming draft concerts.
	Populate(ctx context.Context) ([]Result, error)
	// Popular lists featured tags in display order.
	Popular(ctx context.Context) ([]models.Tag, error)
}

type service struct {
	store       Store
	catalog     musicapi.MusicAPIClient
	concurrency int
	now         func() time.Time
}

// New constructs a tag Service. catalog may be nil, in which case Populate
// fails with musicapi.ErrNotConfigured.
func New(store Store, catalog musicapi.MusicAPIClient, concurrency int) Service {
	return &service{store: store, catalog: catalog, concurrency: concurrency, now: time.Now}
}

func (s *service) Popular(ctx context.Context) ([]models.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListFeaturedTags(ctx)
}

func (s *service) Populate(ctx context.Context) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.catalog == nil {
		return nil, fmt.Errorf("%s: %w", jobName, musicapi.ErrNotConfigured)
	}

	concerts, err := s.store.ListTagCandidates(ctx, s.now().Add(24*time.Hour), BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list tag candidates: %w", err)
	}

	return batch.Run(ctx, batch.Options{Name: jobName, Concurrency: s.concurrency}, concerts, s.tagConcert,
		func(c models.Concert, err error) Result {
			return Result{ConcertID: c.ID, Title: c.Title, Status: batch.StatusError, Error: batch.ErrorString(err)}
		}), nil
}

// tagConcert resolves genres for every artist before touching the concert,
// so a failure part way leaves existing tags untouched.
func (s *service) tagConcert(ctx context.Context, concert models.Concert) Result {
	result := Result{ConcertID: concert.ID, Title: concert.Title}
	logger := logging.WithContext(ctx).With().Str("job", jobName).Str("concert_id", concert.ID).Logger()

	var (
		genres []string
		failed int
	)
	for _, name := range concert.ArtistNames() {
		artistGenres, err := s.artistGenres(ctx, name)
		if err != nil {
			failed++
			logger.Warn().Err(err).Str("artist", name).Msg("genre lookup failed")
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		genres = append(genres, artistGenres...)
	}

	if failed > 0 && failed == len(concert.ArtistNames()) {
		result.Status = batch.StatusError
		result.Error = "genre lookup failed for every artist"
		return result
	}

	genres = matching.DedupGenres(genres)
	tagIDs := make([]string, 0, len(genres))
	for _, genre := range genres {
		tag, created, err := s.store.FindOrCreateTag(ctx, genre, "Género musical: "+genre)
		if err != nil {
			result.Status = batch.StatusError
			result.Error = fmt.Sprintf("tag %q: %v", genre, err)
			return result
		}
		if created {
			logger.Info().Str("tag", tag.Name).Msg("created tag")
		}
		tagIDs = append(tagIDs, tag.ID)
	}

	if err := s.store.SetConcertTags(ctx, concert.ID, tagIDs); err != nil {
		result.Status = batch.StatusError
		result.Error = err.Error()
		return result
	}

	result.Status = batch.StatusSuccess
	result.TagsCount = len(tagIDs)
	result.ProcessedGenres = genres
	return result
}

func (s *service) artistGenres(ctx context.Context, name string) ([]string, error) {
	candidates, err := s.catalog.SearchArtists(ctx, name, 5)
	if err != nil {
		return nil, err
	}
	artist, ok := matching.MostPopularArtist(name, candidates)
	if !ok {
		return nil, nil
	}
	if len(artist.Genres) > 0 || artist.ExternalID == "" {
		return artist.Genres, nil
	}

	// Search hits can omit genres; the full profile carries them.
	full, err := s.catalog.GetArtist(ctx, artist.ExternalID)
	if errors.Is(err, musicapi.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return full.Genres, nil
}
