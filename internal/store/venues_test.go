package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"conciertapp/internal/models"
)

func TestCreateVenueDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO venues (id, name, address, city, capacity, images, status)`)).
		WithArgs(sqlmock.AnyArg(), "Teatro Caupolicán", "San Diego 850", "Santiago", nil, []byte(`[]`), models.StatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := New(db).CreateVenue(context.Background(), &models.Venue{
		Name:    "Teatro Caupolicán",
		Address: "San Diego 850",
		City:    "Santiago",
	})
	if err != nil {
		t.Fatalf("CreateVenue error: %v", err)
	}
	if got.ID == "" || got.Status != models.StatusDraft {
		t.Fatalf("unexpected venue %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindVenueByNameMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM venues`)).
		WithArgs("Estadio Nacional").
		WillReturnError(sql.ErrNoRows)

	if _, err := New(db).FindVenueByName(context.Background(), "Estadio Nacional"); !errors.Is(err, ErrVenueNotFound) {
		t.Fatalf("expected ErrVenueNotFound, got %v", err)
	}
}
