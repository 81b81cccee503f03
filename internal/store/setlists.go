package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"conciertapp/internal/models"
)

var (
	ErrSetlistNotFound = errors.New("setlist not found")
	ErrEmptySetlist    = errors.New("setlist has no songs")
)

const setlistColumns = `
		s.id, s.artist_id, a.name, s.name, s.songs,
		COALESCE(s.setlist_fm_id, ''), COALESCE(s.setlist_fm_name, ''),
		COALESCE(s.playlist_id, ''), COALESCE(s.playlist_url, ''), s.created_at`

func scanSetlist(row rowScanner) (models.Setlist, error) {
	var sl models.Setlist
	err := row.Scan(&sl.ID, &sl.ArtistID, &sl.ArtistName, &sl.Name, pq.Array(&sl.Songs),
		&sl.SetlistFmID, &sl.SetlistFmName, &sl.PlaylistID, &sl.PlaylistURL, &sl.CreatedAt)
	return sl, err
}

// HasSetlist reports whether the artist already owns any setlist.
func (s *Store) HasSetlist(ctx context.Context, artistID string) (bool, error) {
	if !validID(artistID) {
		return false, ErrArtistNotFound
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM setlists WHERE artist_id = $1)
	`, artistID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check setlist: %w", err)
	}
	return exists, nil
}

// CreateSetlist stores a setlist. Blank song titles are dropped and a
// setlist left with no songs is rejected with ErrEmptySetlist.
func (s *Store) CreateSetlist(ctx context.Context, setlist *models.Setlist) (*models.Setlist, error) {
	if !validID(setlist.ArtistID) {
		return nil, ErrArtistNotFound
	}

	songs := make([]string, 0, len(setlist.Songs))
	for _, song := range setlist.Songs {
		if song = strings.TrimSpace(song); song != "" {
			songs = append(songs, song)
		}
	}
	if len(songs) == 0 {
		return nil, ErrEmptySetlist
	}
	setlist.Songs = songs

	setlist.ID = newID()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO setlists (id, artist_id, name, songs, setlist_fm_id, setlist_fm_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, setlist.ID, setlist.ArtistID, setlist.Name, pq.Array(setlist.Songs),
		nullIfEmpty(setlist.SetlistFmID), nullIfEmpty(setlist.SetlistFmName),
	).Scan(&setlist.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create setlist: %w", err)
	}
	return setlist, nil
}

// GetSetlist returns a setlist with its artist's name.
func (s *Store) GetSetlist(ctx context.Context, id string) (*models.Setlist, error) {
	if !validID(id) {
		return nil, ErrSetlistNotFound
	}

	sl, err := scanSetlist(s.db.QueryRowContext(ctx, `
		SELECT`+setlistColumns+`
		FROM setlists s
		JOIN artists a ON a.id = s.artist_id
		WHERE s.id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSetlistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get setlist: %w", err)
	}
	return &sl, nil
}

// ListSetlistsByArtists returns the setlists owned by any of the artists.
func (s *Store) ListSetlistsByArtists(ctx context.Context, artistIDs []string) ([]models.Setlist, error) {
	if len(artistIDs) == 0 {
		return []models.Setlist{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT`+setlistColumns+`
		FROM setlists s
		JOIN artists a ON a.id = s.artist_id
		WHERE s.artist_id = ANY($1::uuid[])
		ORDER BY s.created_at
	`, pq.Array(artistIDs))
	if err != nil {
		return nil, fmt.Errorf("list setlists: %w", err)
	}
	defer rows.Close()

	setlists := []models.Setlist{}
	for rows.Next() {
		sl, err := scanSetlist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan setlist: %w", err)
		}
		setlists = append(setlists, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate setlists: %w", err)
	}
	return setlists, nil
}

// UpdateSetlistPlaylist records the generated playlist on a setlist.
func (s *Store) UpdateSetlistPlaylist(ctx context.Context, id, playlistID, playlistURL string) error {
	if !validID(id) {
		return ErrSetlistNotFound
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE setlists SET playlist_id = $2, playlist_url = $3, updated_at = NOW() WHERE id = $1
	`, id, playlistID, playlistURL)
	if err != nil {
		return fmt.Errorf("update setlist playlist: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSetlistNotFound
	}
	return nil
}
