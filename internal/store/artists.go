package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"conciertapp/internal/models"
	"conciertapp/internal/richtext"
)

var (
	ErrArtistNotFound = errors.New("artist not found")
	ErrArtistName     = errors.New("artist name is required")
)

const artistColumns = `id, name, bio, COALESCE(external_profile_url, ''), status, created_at, updated_at`

func scanArtist(row rowScanner) (models.Artist, error) {
	var (
		a   models.Artist
		bio []byte
	)
	if err := row.Scan(&a.ID, &a.Name, &bio, &a.ExternalProfileURL, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return models.Artist{}, err
	}
	if bio != nil {
		doc := &richtext.Document{}
		if err := doc.Scan(bio); err != nil {
			return models.Artist{}, fmt.Errorf("artist %s bio: %w", a.ID, err)
		}
		a.Bio = doc
	}
	return a, nil
}

func (s *Store) queryArtists(ctx context.Context, query string, args ...any) ([]models.Artist, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artists := []models.Artist{}
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// ListArtistsMissingImage returns artists without an external profile image.
func (s *Store) ListArtistsMissingImage(ctx context.Context, limit int) ([]models.Artist, error) {
	return s.queryArtists(ctx, `
		SELECT `+artistColumns+`
		FROM artists
		WHERE external_profile_url IS NULL OR btrim(external_profile_url) = ''
		ORDER BY name
		LIMIT $1
	`, limit)
}

// ListArtists returns artists ordered by name.
func (s *Store) ListArtists(ctx context.Context, limit int) ([]models.Artist, error) {
	return s.queryArtists(ctx, `
		SELECT `+artistColumns+`
		FROM artists
		ORDER BY name
		LIMIT $1
	`, limit)
}

// FindArtistByName matches name exactly; the oldest artist wins on duplicates.
func (s *Store) FindArtistByName(ctx context.Context, name string) (*models.Artist, error) {
	a, err := scanArtist(s.db.QueryRowContext(ctx, `
		SELECT `+artistColumns+`
		FROM artists
		WHERE name = $1
		ORDER BY created_at
		LIMIT 1
	`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArtistNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateArtistImage sets the artist's external profile image.
func (s *Store) UpdateArtistImage(ctx context.Context, id, imageURL string) error {
	if !validID(id) {
		return ErrArtistNotFound
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE artists SET external_profile_url = $2, updated_at = NOW() WHERE id = $1
	`, id, imageURL)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrArtistNotFound
	}
	return nil
}

// CreateArtist adds a new artist.
func (s *Store) CreateArtist(ctx context.Context, artist *models.Artist) (*models.Artist, error) {
	artist.Name = strings.TrimSpace(artist.Name)
	if artist.Name == "" {
		return nil, ErrArtistName
	}
	if artist.Status == "" {
		artist.Status = models.StatusDraft
	}

	var bio any
	if artist.Bio != nil {
		bio = artist.Bio
	}

	artist.ID = newID()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO artists (id, name, bio, external_profile_url, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, artist.ID, artist.Name, bio, nullIfEmpty(artist.ExternalProfileURL), artist.Status,
	).Scan(&artist.CreatedAt, &artist.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return artist, nil
}
