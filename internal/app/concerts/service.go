package concerts

import (
	"context"
	"errors"
	"strings"
	"time"

	"conciertapp/internal/models"
	"conciertapp/internal/slug"
	"conciertapp/internal/store"
)

// MaxPageSize caps the page size a caller may request.
const MaxPageSize = 100

// ErrInvalidConcert is returned by Create for incomplete input.
var ErrInvalidConcert = errors.New("concert title and start date are required")

// Store defines persistence operations for concerts
type Store interface {
	CreateConcert(ctx context.Context, concert *models.Concert) (*models.Concert, error)
	GetConcertBySlug(ctx context.Context, slug string) (*models.Concert, error)
	ListConcerts(ctx context.Context, filter models.ConcertFilter) (*models.ConcertPage, error)
	ListPublishedSlugs(ctx context.Context) ([]models.Concert, error)
	ListSetlistsByArtists(ctx context.Context, artistIDs []string) ([]models.Setlist, error)
}

// Detail is a concert page: the concert plus its performers' setlists.
type Detail struct {
	models.Concert
	Setlists []models.Setlist `json:"setlists"`
}

// SitemapEntry is one published concert URL.
type SitemapEntry struct {
	Slug         string
	LastModified time.Time
}

// Service coordinates concert-related operations
type Service interface {
	Create(ctx context.Context, concert *models.Concert) (*models.Concert, error)
	List(ctx context.Context, filter models.ConcertFilter) (*models.ConcertPage, error)
	GetBySlug(ctx context.Context, slug string) (*Detail, error)
	Sitemap(ctx context.Context) ([]SitemapEntry, error)
}

type service struct {
	store Store
}

// New constructs a concerts Service
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Create(ctx context.Context, concert *models.Concert) (*models.Concert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	concert.Title = strings.TrimSpace(concert.Title)
	if concert.Title == "" || concert.StartDate.IsZero() {
		return nil, ErrInvalidConcert
	}
	return s.store.CreateConcert(ctx, concert)
}

func (s *service) List(ctx context.Context, filter models.ConcertFilter) (*models.ConcertPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	// The public listing never exposes drafts.
	filter.Status = models.StatusPublished
	return s.store.ListConcerts(ctx, filter)
}

func (s *service) GetBySlug(ctx context.Context, concertSlug string) (*Detail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	concertSlug = strings.TrimSpace(concertSlug)
	if !slug.Valid(concertSlug) {
		return nil, store.ErrConcertNotFound
	}

	concert, err := s.store.GetConcertBySlug(ctx, concertSlug)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(concert.Artists))
	for _, a := range concert.Artists {
		ids = append(ids, a.ID)
	}
	setlists, err := s.store.ListSetlistsByArtists(ctx, ids)
	if err != nil {
		return nil, err
	}

	return &Detail{Concert: *concert, Setlists: setlists}, nil
}

func (s *service) Sitemap(ctx context.Context) ([]SitemapEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	concerts, err := s.store.ListPublishedSlugs(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]SitemapEntry, 0, len(concerts))
	for _, c := range concerts {
		entries = append(entries, SitemapEntry{Slug: c.Slug, LastModified: c.UpdatedAt})
	}
	return entries, nil
}
