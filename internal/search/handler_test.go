package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubStore struct {
	results Results
	err     error
	query   string
	limit   int
}

func (s *stubStore) Search(_ context.Context, query string, limit int) (Results, error) {
	s.query = query
	s.limit = limit
	return s.results, s.err
}

func TestHandlerBuildsSections(t *testing.T) {
	store := &stubStore{results: Results{
		Concerts: []ConcertResult{{
			ID: "c1", Title: "Los Bunkers", Slug: "los-bunkers-en-movistar-arena",
			StartDate: time.Date(2025, 11, 20, 21, 0, 0, 0, time.UTC), Venue: "Movistar Arena",
		}},
		Artists: []ArtistResult{{ID: "a1", Name: "Los Bunkers", ConcertCount: 2}},
	}}

	rec := httptest.NewRecorder()
	NewHandler(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=%20bunkers%20&limit=99", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.query != "bunkers" || store.limit != 10 {
		t.Fatalf("unexpected store call %q %d", store.query, store.limit)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(resp.Sections))
	}
	concert := resp.Sections[0].Items[0]
	if concert.Href != "/concerts/los-bunkers-en-movistar-arena" || concert.Subtitle != "20-11-2025 • Movistar Arena" {
		t.Fatalf("unexpected concert item %+v", concert)
	}
	if got := resp.Sections[1].Items[0].Subtitle; got != "2 conciertos" {
		t.Fatalf("unexpected artist subtitle %q", got)
	}
}

func TestHandlerEmptyQuery(t *testing.T) {
	store := &stubStore{}
	rec := httptest.NewRecorder()
	NewHandler(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil))

	if rec.Code != http.StatusOK || store.query != "" {
		t.Fatalf("expected empty response without a store call")
	}
}

func TestHandlerStoreError(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(&stubStore{err: errors.New("db down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=x", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
