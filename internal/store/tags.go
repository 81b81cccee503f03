package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"conciertapp/internal/models"
)

var (
	ErrTagNotFound = errors.New("tag not found")
	ErrTagName     = errors.New("tag name is required")
)

// FindTagByName looks a tag up by its lowercased name.
func (s *Store) FindTagByName(ctx context.Context, name string) (*models.Tag, error) {
	var t models.Tag
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, featured, sort_order
		FROM tags
		WHERE name = $1
	`, strings.ToLower(strings.TrimSpace(name))).Scan(&t.ID, &t.Name, &t.Description, &t.Featured, &t.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTag inserts a tag, storing its name lowercased.
func (s *Store) CreateTag(ctx context.Context, tag *models.Tag) (*models.Tag, error) {
	tag.Name = strings.ToLower(strings.TrimSpace(tag.Name))
	if tag.Name == "" {
		return nil, ErrTagName
	}

	tag.ID = newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, description, featured, sort_order)
		VALUES ($1, $2, $3, $4, $5)
	`, tag.ID, tag.Name, tag.Description, tag.Featured, tag.Order)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// FindOrCreateTag returns the tag named name, creating it with description
// when missing. A concurrent insert of the same name is resolved by
// re-reading the winner.
func (s *Store) FindOrCreateTag(ctx context.Context, name, description string) (*models.Tag, bool, error) {
	if strings.TrimSpace(name) == "" {
		return nil, false, ErrTagName
	}

	tag, err := s.FindTagByName(ctx, name)
	if err == nil {
		return tag, false, nil
	}
	if !errors.Is(err, ErrTagNotFound) {
		return nil, false, err
	}

	tag, err = s.CreateTag(ctx, &models.Tag{Name: name, Description: description})
	if err == nil {
		return tag, true, nil
	}
	if isUniqueViolation(err) {
		tag, err = s.FindTagByName(ctx, name)
		return tag, false, err
	}
	return nil, false, err
}

// ListFeaturedTags returns featured tags by sort order.
func (s *Store) ListFeaturedTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, featured, sort_order
		FROM tags
		WHERE featured
		ORDER BY sort_order, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Featured, &t.Order); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
