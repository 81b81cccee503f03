package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"conciertapp/internal/models"
)

const testConcertID = "6f1c2a52-3b0e-4c55-9d1f-3f5b8c1e2a10"

var concertRowColumns = []string{
	"id", "title", "slug", "status", "start_date", "end_date",
	"poster_url", "tickets_link",
	"seo_title", "seo_description", "seo_keywords",
	"seo_image", "additional_info", "schedule",
	"created_at", "updated_at",
	"v_id", "v_name", "v_address", "v_city", "v_capacity", "v_images", "v_status",
}

func TestGetConcertMalformedID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	_, err = New(db).GetConcert(context.Background(), "not-a-uuid")
	if !errors.Is(err, ErrConcertNotFound) {
		t.Fatalf("expected ErrConcertNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetConcertLoadsRelations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	start := time.Date(2025, 11, 20, 21, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE c.id = $1`)).
		WithArgs(testConcertID).
		WillReturnRows(sqlmock.NewRows(concertRowColumns).AddRow(
			testConcertID, "Los Bunkers", "los-bunkers-en-movistar-arena", "published", start, nil,
			"https://cdn.example/poster.jpg", "",
			"Los Bunkers en Santiago", "Vuelven los Bunkers", "{rock,chile}",
			"https://cdn.example/poster.jpg", nil, nil,
			start, start,
			"venue-1", "Movistar Arena", "Av. Beaucheff 1204", "Santiago", int64(15000), []byte(`["arena.jpg"]`), "published",
		))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM concert_artists ca`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"concert_id", "id", "name", "external_profile_url", "status"}).
			AddRow(testConcertID, "artist-1", "Los Bunkers", "", "published"))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM concert_tags ct`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"concert_id", "id", "name", "description", "featured", "sort_order"}).
			AddRow(testConcertID, "tag-1", "rock", "Género musical: rock", true, 1))

	got, err := New(db).GetConcert(context.Background(), testConcertID)
	if err != nil {
		t.Fatalf("GetConcert error: %v", err)
	}

	if got.Venue == nil || got.Venue.Name != "Movistar Arena" || got.Venue.Capacity == nil || *got.Venue.Capacity != 15000 {
		t.Fatalf("unexpected venue %+v", got.Venue)
	}
	if len(got.Venue.Images) != 1 || got.Venue.Images[0] != "arena.jpg" {
		t.Fatalf("unexpected venue images %v", got.Venue.Images)
	}
	if len(got.SEO.Keywords) != 2 || got.SEO.Keywords[1] != "chile" {
		t.Fatalf("unexpected keywords %v", got.SEO.Keywords)
	}
	if len(got.Artists) != 1 || got.Artists[0].Name != "Los Bunkers" {
		t.Fatalf("unexpected artists %+v", got.Artists)
	}
	if len(got.Tags) != 1 || got.Tags[0].Name != "rock" {
		t.Fatalf("unexpected tags %+v", got.Tags)
	}
	if got.EndDate != nil || got.AdditionalInfo != nil {
		t.Fatalf("expected null columns to stay nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetConcertTagsReplacesInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE concerts SET updated_at = NOW() WHERE id = $1`)).
		WithArgs(testConcertID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM concert_tags WHERE concert_id = $1`)).
		WithArgs(testConcertID).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO concert_tags (concert_id, tag_id)`)).
		WithArgs(testConcertID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := New(db).SetConcertTags(context.Background(), testConcertID, []string{"t1", "t2"}); err != nil {
		t.Fatalf("SetConcertTags error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetConcertTagsMissingConcertRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE concerts SET updated_at = NOW() WHERE id = $1`)).
		WithArgs(testConcertID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = New(db).SetConcertTags(context.Background(), testConcertID, []string{"t1"})
	if !errors.Is(err, ErrConcertNotFound) {
		t.Fatalf("expected ErrConcertNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateConcertSlugTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE concerts SET slug = $2`)).
		WithArgs(testConcertID, "a-en-b").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = New(db).UpdateConcertSlug(context.Background(), testConcertID, "a-en-b")
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestUpdateConcertStartMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	noon := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE concerts SET start_date = $2`)).
		WithArgs(testConcertID, noon).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = New(db).UpdateConcertStart(context.Background(), testConcertID, noon)
	if !errors.Is(err, ErrConcertNotFound) {
		t.Fatalf("expected ErrConcertNotFound, got %v", err)
	}
}

func TestListConcertsBuildsFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM concerts c WHERE c.status = $1 AND c.title ILIKE $2 AND EXISTS (`)).
		WithArgs(models.StatusPublished, "%bunkers%", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY c.start_date DESC LIMIT $4 OFFSET $5`)).
		WithArgs(models.StatusPublished, "%bunkers%", sqlmock.AnyArg(), 12, 12).
		WillReturnRows(sqlmock.NewRows(concertRowColumns))

	page, err := New(db).ListConcerts(context.Background(), models.ConcertFilter{
		Search: " bunkers ",
		Tags:   []string{"rock"},
		Sort:   "-startDate",
		Page:   2,
	})
	if err != nil {
		t.Fatalf("ListConcerts error: %v", err)
	}

	if page.TotalDocs != 25 || page.TotalPages != 3 || page.Page != 2 || page.Limit != 12 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Docs == nil || len(page.Docs) != 0 {
		t.Fatalf("expected empty docs slice, got %v", page.Docs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
