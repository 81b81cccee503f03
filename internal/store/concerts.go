package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"conciertapp/internal/models"
)

var (
	ErrConcertNotFound = errors.New("concert not found")
	ErrSlugTaken       = errors.New("slug already in use")
)

const concertColumns = `
		c.id, c.title, COALESCE(c.slug, ''), c.status, c.start_date, c.end_date,
		COALESCE(c.poster_url, ''), COALESCE(c.tickets_link, ''),
		COALESCE(c.seo_title, ''), COALESCE(c.seo_description, ''), c.seo_keywords,
		COALESCE(c.seo_image, ''), c.additional_info, c.schedule,
		c.created_at, c.updated_at,
		v.id, v.name, v.address, v.city, v.capacity, v.images, v.status`

const concertFrom = `
		FROM concerts c
		LEFT JOIN venues v ON v.id = c.venue_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConcert(row rowScanner) (models.Concert, error) {
	var (
		c            models.Concert
		endDate      sql.NullTime
		keywords     pq.StringArray
		info, sched  []byte
		venueID      sql.NullString
		venueName    sql.NullString
		venueAddress sql.NullString
		venueCity    sql.NullString
		venueCap     sql.NullInt64
		venueImages  []byte
		venueStatus  sql.NullString
	)

	err := row.Scan(
		&c.ID, &c.Title, &c.Slug, &c.Status, &c.StartDate, &endDate,
		&c.Poster, &c.TicketsLink,
		&c.SEO.MetaTitle, &c.SEO.MetaDescription, &keywords,
		&c.SEO.OGImage, &info, &sched,
		&c.CreatedAt, &c.UpdatedAt,
		&venueID, &venueName, &venueAddress, &venueCity, &venueCap, &venueImages, &venueStatus,
	)
	if err != nil {
		return models.Concert{}, err
	}

	if endDate.Valid {
		t := endDate.Time
		c.EndDate = &t
	}
	c.SEO.Keywords = []string(keywords)

	if info != nil {
		c.AdditionalInfo = &models.Section{}
		if err := c.AdditionalInfo.Scan(info); err != nil {
			return models.Concert{}, fmt.Errorf("concert %s additional info: %w", c.ID, err)
		}
	}
	if sched != nil {
		c.Schedule = &models.Section{}
		if err := c.Schedule.Scan(sched); err != nil {
			return models.Concert{}, fmt.Errorf("concert %s schedule: %w", c.ID, err)
		}
	}

	if venueID.Valid {
		v := &models.Venue{
			ID:      venueID.String,
			Name:    venueName.String,
			Address: venueAddress.String,
			City:    venueCity.String,
			Status:  venueStatus.String,
		}
		if venueCap.Valid {
			capacity := int(venueCap.Int64)
			v.Capacity = &capacity
		}
		if len(venueImages) > 0 {
			if err := json.Unmarshal(venueImages, &v.Images); err != nil {
				return models.Concert{}, fmt.Errorf("venue %s images: %w", v.ID, err)
			}
		}
		c.Venue = v
	}

	c.Artists = []models.Artist{}
	c.Tags = []models.Tag{}
	return c, nil
}

// queryConcerts runs a concert select and attaches artists and tags.
func (s *Store) queryConcerts(ctx context.Context, query string, args ...any) ([]models.Concert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	concerts := []models.Concert{}
	for rows.Next() {
		c, err := scanConcert(rows)
		if err != nil {
			return nil, err
		}
		concerts = append(concerts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadRelations(ctx, concerts); err != nil {
		return nil, err
	}
	return concerts, nil
}

func (s *Store) loadRelations(ctx context.Context, concerts []models.Concert) error {
	if len(concerts) == 0 {
		return nil
	}

	ids := make([]string, len(concerts))
	index := make(map[string]int, len(concerts))
	for i, c := range concerts {
		ids[i] = c.ID
		index[c.ID] = i
	}

	artistRows, err := s.db.QueryContext(ctx, `
		SELECT ca.concert_id, a.id, a.name, COALESCE(a.external_profile_url, ''), a.status
		FROM concert_artists ca
		JOIN artists a ON a.id = ca.artist_id
		WHERE ca.concert_id = ANY($1::uuid[])
		ORDER BY ca.concert_id, ca.position
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load concert artists: %w", err)
	}
	defer artistRows.Close()

	for artistRows.Next() {
		var concertID string
		var a models.Artist
		if err := artistRows.Scan(&concertID, &a.ID, &a.Name, &a.ExternalProfileURL, &a.Status); err != nil {
			return err
		}
		if i, ok := index[concertID]; ok {
			concerts[i].Artists = append(concerts[i].Artists, a)
		}
	}
	if err := artistRows.Err(); err != nil {
		return err
	}

	tagRows, err := s.db.QueryContext(ctx, `
		SELECT ct.concert_id, t.id, t.name, t.description, t.featured, t.sort_order
		FROM concert_tags ct
		JOIN tags t ON t.id = ct.tag_id
		WHERE ct.concert_id = ANY($1::uuid[])
		ORDER BY ct.concert_id, t.name
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load concert tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var concertID string
		var t models.Tag
		if err := tagRows.Scan(&concertID, &t.ID, &t.Name, &t.Description, &t.Featured, &t.Order); err != nil {
			return err
		}
		if i, ok := index[concertID]; ok {
			concerts[i].Tags = append(concerts[i].Tags, t)
		}
	}
	return tagRows.Err()
}

// GetConcert retrieves a single concert by ID with venue, artists and tags.
func (s *Store) GetConcert(ctx context.Context, id string) (*models.Concert, error) {
	if !validID(id) {
		return nil, ErrConcertNotFound
	}

	concerts, err := s.queryConcerts(ctx, `SELECT`+concertColumns+concertFrom+`
		WHERE c.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(concerts) == 0 {
		return nil, ErrConcertNotFound
	}
	return &concerts[0], nil
}

// GetConcertBySlug returns a published concert.
func (s *Store) GetConcertBySlug(ctx context.Context, slug string) (*models.Concert, error) {
	concerts, err := s.queryConcerts(ctx, `SELECT`+concertColumns+concertFrom+`
		WHERE c.slug = $1 AND c.status = 'published'`, slug)
	if err != nil {
		return nil, err
	}
	if len(concerts) == 0 {
		return nil, ErrConcertNotFound
	}
	return &concerts[0], nil
}

// ListTagCandidates returns draft concerts starting after the given instant
// that have no tags yet, soonest first.
func (s *Store) ListTagCandidates(ctx context.Context, after time.Time, limit int) ([]models.Concert, error) {
	return s.queryConcerts(ctx, `SELECT`+concertColumns+concertFrom+`
		WHERE c.status = 'draft'
		  AND c.start_date > $1
		  AND NOT EXISTS (SELECT 1 FROM concert_tags ct WHERE ct.concert_id = c.id)
		ORDER BY c.start_date
		LIMIT $2`, after, limit)
}

// ListConcertsMissingSEO returns concerts with an empty meta title,
// description or keyword list.
func (s *Store) ListConcertsMissingSEO(ctx context.Context, limit int) ([]models.Concert, error) {
	return s.queryConcerts(ctx, `SELECT`+concertColumns+concertFrom+`
		WHERE COALESCE(c.seo_title, '') = ''
		   OR COALESCE(c.seo_description, '') = ''
		   OR cardinality(c.seo_keywords) = 0
		ORDER BY c.start_date
		LIMIT $1`, limit)
}

// ListConcertsMissingInfo returns concerts whose additional info has no text.
func (s *Store) ListConcertsMissingInfo(ctx context.Context, limit int) ([]models.Concert, error) {
	return s.queryConcerts(ctx, `SELECT`+concertColumns+concertFrom+`
		WHERE c.additional_info IS NULL
		   OR NOT jsonb_path_exists(c.additional_info,
		          '$.description.root.children[*].children[*].text ? (@ != "")')
		ORDER BY c.start_date
		LIMIT $1`, limit)
}

// ListConcertsMissingSlug returns concerts with a null or blank slug.
func (s *Store) ListConcertsMissingSlug(ctx context.Context, limit int) ([]models.Concert, error) {
	return s.queryConcerts(ctx, `SELECT`+concertColumns+concertFrom+`
		WHERE c.slug IS NULL OR btrim(c.slug) = ''
		ORDER BY c.created_at
		LIMIT $1`, limit)
}

// ListMidnightConcerts returns concerts whose start falls exactly on 00:00:00 UTC.
func (s *Store) ListMidnightConcerts(ctx context.Context, limit int) ([]models.Concert, error) {
	return s.queryConcerts(ctx, `SELECT`+concertColumns+concertFrom+`
		WHERE (c.start_date AT TIME ZONE 'UTC')::time = '00:00:00'
		ORDER BY c.start_date
		LIMIT $1`, limit)
}

var concertSorts = map[string]string{
	"startDate":  "c.start_date ASC",
	"-startDate": "c.start_date DESC",
	"title":      "c.title ASC",
	"-title":     "c.title DESC",
	"createdAt":  "c.created_at ASC",
	"-createdAt": "c.created_at DESC",
}

// ListConcerts returns one page of concerts matching filter.
func (s *Store) ListConcerts(ctx context.Context, filter models.ConcertFilter) (*models.ConcertPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 12
	}
	if filter.Status == "" {
		filter.Status = models.StatusPublished
	}

	conditions := []string{"c.status = $1"}
	args := []any{filter.Status}

	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("c.start_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("c.start_date <= $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("c.title ILIKE $%d", len(args)))
	}
	if len(filter.Tags) > 0 {
		args = append(args, pq.Array(filter.Tags))
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM concert_tags ct JOIN tags t ON t.id = ct.tag_id
			WHERE ct.concert_id = c.id AND (t.id::text = ANY($%[1]d) OR t.name = ANY($%[1]d)))`, len(args)))
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM concerts c`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count concerts: %w", err)
	}

	order, ok := concertSorts[filter.Sort]
	if !ok {
		order = concertSorts["startDate"]
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := `SELECT` + concertColumns + concertFrom + where +
		fmt.Sprintf(" ORDER BY %s LIMIT $%d OFFSET $%d", order, len(args)-1, len(args))

	docs, err := s.queryConcerts(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &models.ConcertPage{
		Docs:       docs,
		TotalDocs:  total,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// ListPublishedSlugs returns slug and last update of every published concert.
func (s *Store) ListPublishedSlugs(ctx context.Context) ([]models.Concert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, updated_at
		FROM concerts
		WHERE status = 'published' AND slug IS NOT NULL AND btrim(slug) <> ''
		ORDER BY start_date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var concerts []models.Concert
	for rows.Next() {
		var c models.Concert
		if err := rows.Scan(&c.Slug, &c.UpdatedAt); err != nil {
			return nil, err
		}
		concerts = append(concerts, c)
	}
	return concerts, rows.Err()
}

// SetConcertTags replaces the concert's tag set in one transaction.
func (s *Store) SetConcertTags(ctx context.Context, concertID string, tagIDs []string) error {
	if !validID(concertID) {
		return ErrConcertNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE concerts SET updated_at = NOW() WHERE id = $1`, concertID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConcertNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM concert_tags WHERE concert_id = $1`, concertID); err != nil {
		return err
	}

	if len(tagIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO concert_tags (concert_id, tag_id)
			SELECT $1, UNNEST($2::uuid[])
			ON CONFLICT DO NOTHING
		`, concertID, pq.Array(tagIDs)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	tx = nil
	return nil
}

// UpdateConcertSEO stores generated SEO metadata.
func (s *Store) UpdateConcertSEO(ctx context.Context, concertID string, seo models.SEO) error {
	return s.execConcertUpdate(ctx, concertID, `
		UPDATE concerts
		SET seo_title = $2, seo_description = $3, seo_keywords = $4, seo_image = $5, updated_at = NOW()
		WHERE id = $1
	`, seo.MetaTitle, seo.MetaDescription, pq.Array(seo.Keywords), nullIfEmpty(seo.OGImage))
}

// UpdateConcertInfo stores the additional info section.
func (s *Store) UpdateConcertInfo(ctx context.Context, concertID string, info models.Section) error {
	return s.execConcertUpdate(ctx, concertID, `
		UPDATE concerts SET additional_info = $2, updated_at = NOW() WHERE id = $1
	`, info)
}

// UpdateConcertSlug sets the slug, returning ErrSlugTaken on collision.
func (s *Store) UpdateConcertSlug(ctx context.Context, concertID, slug string) error {
	err := s.execConcertUpdate(ctx, concertID, `
		UPDATE concerts SET slug = $2, updated_at = NOW() WHERE id = $1
	`, slug)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	return err
}

// UpdateConcertStart moves the concert's start timestamp.
func (s *Store) UpdateConcertStart(ctx context.Context, concertID string, start time.Time) error {
	return s.execConcertUpdate(ctx, concertID, `
		UPDATE concerts SET start_date = $2, updated_at = NOW() WHERE id = $1
	`, start)
}

func (s *Store) execConcertUpdate(ctx context.Context, concertID, query string, args ...any) error {
	if !validID(concertID) {
		return ErrConcertNotFound
	}

	res, err := s.db.ExecContext(ctx, query, append([]any{concertID}, args...)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConcertNotFound
	}
	return nil
}

// SlugExists reports whether any concert already uses slug.
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM concerts WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

// CreateConcert inserts a concert and its artist links. Used for seeding.
func (s *Store) CreateConcert(ctx context.Context, concert *models.Concert) (*models.Concert, error) {
	if concert.Status == "" {
		concert.Status = models.StatusDraft
	}

	var venueID any
	if concert.Venue != nil && concert.Venue.ID != "" {
		venueID = concert.Venue.ID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	concert.ID = newID()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO concerts (id, title, slug, status, start_date, end_date, venue_id, poster_url, tickets_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, concert.ID, concert.Title, nullIfEmpty(concert.Slug), concert.Status, concert.StartDate,
		concert.EndDate, venueID, nullIfEmpty(concert.Poster), nullIfEmpty(concert.TicketsLink),
	).Scan(&concert.CreatedAt, &concert.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}

	for i, a := range concert.Artists {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO concert_artists (concert_id, artist_id, position) VALUES ($1, $2, $3)
		`, concert.ID, a.ID, i); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	tx = nil
	return concert, nil
}
