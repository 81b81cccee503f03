package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"conciertapp/internal/models"
)

var (
	ErrVenueNotFound = errors.New("venue not found")
	ErrVenueName     = errors.New("venue name is required")
)

// CreateVenue adds a new venue.
func (s *Store) CreateVenue(ctx context.Context, venue *models.Venue) (*models.Venue, error) {
	if strings.TrimSpace(venue.Name) == "" {
		return nil, ErrVenueName
	}
	if venue.Status == "" {
		venue.Status = models.StatusDraft
	}
	images := venue.Images
	if images == nil {
		images = []string{}
	}
	encoded, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("encode venue images: %w", err)
	}

	venue.ID = newID()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO venues (id, name, address, city, capacity, images, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, venue.ID, venue.Name, venue.Address, venue.City, venue.Capacity, encoded, venue.Status)
	if err != nil {
		return nil, err
	}
	return venue, nil
}

// FindVenueByName returns the first venue with exactly this name.
func (s *Store) FindVenueByName(ctx context.Context, name string) (*models.Venue, error) {
	var (
		v        models.Venue
		images   []byte
		capacity *int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, address, city, capacity, images, status
		FROM venues
		WHERE name = $1
		ORDER BY created_at
		LIMIT 1
	`, name).Scan(&v.ID, &v.Name, &v.Address, &v.City, &capacity, &images, &v.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	v.Capacity = capacity
	if len(images) > 0 {
		if err := json.Unmarshal(images, &v.Images); err != nil {
			return nil, fmt.Errorf("venue %s images: %w", v.ID, err)
		}
	}
	return &v, nil
}
