package search

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store defines the persistence operations required by the search handler.
type Store interface {
	Search(ctx context.Context, query string, limit int) (Results, error)
}

// Results captures the different result buckets surfaced by the handler.
type Results struct {
	Concerts []ConcertResult
	Artists  []ArtistResult
	Venues   []VenueResult
}

// ConcertResult summarises a published concert match.
type ConcertResult struct {
	ID        string
	Title     string
	Slug      string
	StartDate time.Time
	Venue     string
	Poster    string
}

// ArtistResult summarises an artist match.
type ArtistResult struct {
	ID           string
	Name         string
	ConcertCount int
	ImageURL     string
}

// VenueResult summarises a venue match.
type VenueResult struct {
	ID      string
	Name    string
	City    string
	Address string
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// NewPGStore creates a Store backed by the supplied database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// Search performs a fan-out query across concerts, artists, and venues.
func (s *PGStore) Search(ctx context.Context, query string, limit int) (Results, error) {
	if limit <= 0 {
		limit = 10
	}
	like := "%" + query + "%"

	concerts, err := s.fetchConcerts(ctx, like, limit)
	if err != nil {
		return Results{}, err
	}

	artists, err := s.fetchArtists(ctx, like, limit)
	if err != nil {
		return Results{}, err
	}

	venues, err := s.fetchVenues(ctx, like, limit)
	if err != nil {
		return Results{}, err
	}

	return Results{
		Concerts: concerts,
		Artists:  artists,
		Venues:   venues,
	}, nil
}

func (s *PGStore) fetchConcerts(ctx context.Context, like string, limit int) ([]ConcertResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, COALESCE(c.slug, ''), c.start_date,
		       COALESCE(v.name, ''), COALESCE(c.poster_url, '')
		FROM concerts c
		LEFT JOIN venues v ON v.id = c.venue_id
		WHERE c.status = 'published'
		  AND (c.title ILIKE $1 OR v.name ILIKE $1 OR EXISTS (
		        SELECT 1 FROM concert_artists ca JOIN artists a ON a.id = ca.artist_id
		        WHERE ca.concert_id = c.id AND a.name ILIKE $1))
		ORDER BY c.start_date DESC
		LIMIT $2
	`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search concerts: %w", err)
	}
	defer rows.Close()

	results := make([]ConcertResult, 0)
	for rows.Next() {
		var r ConcertResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Slug, &r.StartDate, &r.Venue, &r.Poster); err != nil {
			return nil, fmt.Errorf("scan concert: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate concerts: %w", err)
	}

	return results, nil
}

func (s *PGStore) fetchArtists(ctx context.Context, like string, limit int) ([]ArtistResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.name, COALESCE(a.external_profile_url, ''), COUNT(ca.concert_id) AS concert_count
		FROM artists a
		LEFT JOIN concert_artists ca ON ca.artist_id = a.id
		WHERE a.name ILIKE $1
		GROUP BY a.id, a.name, a.external_profile_url
		ORDER BY concert_count DESC, a.name ASC
		LIMIT $2
	`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search artists: %w", err)
	}
	defer rows.Close()

	results := make([]ArtistResult, 0)
	for rows.Next() {
		var r ArtistResult
		if err := rows.Scan(&r.ID, &r.Name, &r.ImageURL, &r.ConcertCount); err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artists: %w", err)
	}

	return results, nil
}

func (s *PGStore) fetchVenues(ctx context.Context, like string, limit int) ([]VenueResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, city, address
		FROM venues
		WHERE name ILIKE $1 OR city ILIKE $1
		ORDER BY name ASC
		LIMIT $2
	`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search venues: %w", err)
	}
	defer rows.Close()

	results := make([]VenueResult, 0)
	for rows.Next() {
		var r VenueResult
		if err := rows.Scan(&r.ID, &r.Name, &r.City, &r.Address); err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate venues: %w", err)
	}

	return results, nil
}
