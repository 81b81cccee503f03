// Package artists fills in artist profile images from the music catalog.
package artists

import (
	"context"
	"errors"
	"fmt"

	"conciertapp/internal/app/batch"
	"conciertapp/internal/logging"
	"conciertapp/internal/matching"
	"conciertapp/internal/models"
	"conciertapp/internal/musicapi"
)

const (
	// BatchSize bounds the artists handled per run.
	BatchSize = 50
	jobName   = "populate-image"
)

// Store exposes the artist queries needed by the image job.
type Store interface {
	ListArtistsMissingImage(ctx context.Context, limit int) ([]models.Artist, error)
	UpdateArtistImage(ctx context.Context, id, imageURL string) error
}

// Result is the outcome for one artist.
type Result struct {
	ArtistID string       `json:"artistId"`
	Name     string       `json:"name"`
	Status   batch.Status `json:"status"`
	ImageURL string       `json:"imageUrl,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Outcome implements batch.Outcome.
func (r Result) Outcome() batch.Status { return r.Status }

// Service provides artist-centric operations.
type Service interface {
	PopulateImages(ctx context.Context) ([]Result, error)
}

type service struct {
	store       Store
	catalog     musicapi.MusicAPIClient
	concurrency int
}

// New constructs an artist Service backed by the supplied store and catalog.
func New(store Store, catalog musicapi.MusicAPIClient, concurrency int) Service {
	return &service{store: store, catalog: catalog, concurrency: concurrency}
}

func (s *service) PopulateImages(ctx context.Context) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.catalog == nil {
		return nil, fmt.Errorf("%s: %w", jobName, musicapi.ErrNotConfigured)
	}

	artists, err := s.store.ListArtistsMissingImage(ctx, BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}

	return batch.Run(ctx, batch.Options{Name: jobName, Concurrency: s.concurrency}, artists, s.populate,
		func(a models.Artist, err error) Result {
			return Result{ArtistID: a.ID, Name: a.Name, Status: batch.StatusError, Error: batch.ErrorString(err)}
		}), nil
}

func (s *service) populate(ctx context.Context, artist models.Artist) Result {
	result := Result{ArtistID: artist.ID, Name: artist.Name}

	candidates, err := s.catalog.SearchArtists(ctx, artist.Name, 5)
	if err != nil && !errors.Is(err, musicapi.ErrNotFound) {
		logging.WithContext(ctx).Warn().Err(err).Str("job", jobName).Str("artist", artist.Name).Msg("artist search failed")
		result.Status = batch.StatusError
		result.Error = err.Error()
		return result
	}

	match, ok := matching.MostPopularArtist(artist.Name, candidates)
	if !ok {
		result.Status = batch.StatusNotFound
		return result
	}
	image, ok := match.LargestImage()
	if !ok && match.ExternalID != "" {
		full, err := s.catalog.GetArtist(ctx, match.ExternalID)
		if err != nil && !errors.Is(err, musicapi.ErrNotFound) {
			result.Status = batch.StatusError
			result.Error = err.Error()
			return result
		}
		if full != nil {
			image, ok = full.LargestImage()
		}
	}
	if !ok {
		result.Status = batch.StatusNotFound
		return result
	}

	if err := s.store.UpdateArtistImage(ctx, artist.ID, image.URL); err != nil {
		result.Status = batch.StatusError
		result.Error = err.Error()
		return result
	}

	result.Status = batch.StatusSuccess
	result.ImageURL = image.URL
	return result
}
