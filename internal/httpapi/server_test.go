package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"conciertapp/internal/app/artists"
	"conciertapp/internal/app/batch"
	"conciertapp/internal/app/concerts"
	"conciertapp/internal/app/dates"
	"conciertapp/internal/app/playlists"
	"conciertapp/internal/app/seo"
	"conciertapp/internal/app/setlists"
	"conciertapp/internal/app/slugs"
	"conciertapp/internal/app/tags"
	"conciertapp/internal/models"
	"conciertapp/internal/musicapi"
	"conciertapp/internal/store"
)

const testKey = "test-secret"

type stubTagService struct {
	results []tags.Result
	err     error
	calls   int
	popular []models.Tag
}

func (s *stubTagService) Populate(context.Context) ([]tags.Result, error) {
	s.calls++
	return s.results, s.err
}

func (s *stubTagService) Popular(context.Context) ([]models.Tag, error) {
	return s.popular, nil
}

type stubArtistService struct{}

func (stubArtistService) PopulateImages(context.Context) ([]artists.Result, error) {
	return nil, nil
}

type stubSetlistService struct {
	imported  *models.Setlist
	importErr error
	lastID    string
}

func (s *stubSetlistService) Populate(context.Context) ([]setlists.Result, error) {
	return []setlists.Result{{ArtistID: "a1", Status: batch.StatusSkipped}}, nil
}

func (s *stubSetlistService) ImportByID(_ context.Context, id string) (*models.Setlist, error) {
	s.lastID = id
	return s.imported, s.importErr
}

type stubPlaylistService struct {
	result *playlists.Result
	err    error
}

func (s *stubPlaylistService) CreateFromSetlist(context.Context, string) (*playlists.Result, error) {
	return s.result, s.err
}

type stubSEOService struct {
	err error
}

func (s *stubSEOService) PopulateSEO(context.Context) ([]seo.Result, error) {
	return nil, s.err
}

func (s *stubSEOService) GenerateSEO(context.Context, string) (*models.SEO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.SEO{MetaTitle: "t"}, nil
}

func (s *stubSEOService) PopulateInfo(context.Context) ([]seo.Result, error) {
	return nil, s.err
}

func (s *stubSEOService) GenerateInfo(context.Context, string) (*models.Section, error) {
	return nil, s.err
}

type stubSlugService struct{}

func (stubSlugService) Populate(context.Context) ([]slugs.Result, error) {
	return []slugs.Result{
		{ConcertID: "c1", NewSlug: "a-en-b", Status: batch.StatusSuccess},
		{ConcertID: "c2", Status: batch.StatusError, Error: "concert has no venue"},
	}, nil
}

type stubDateService struct{}

func (stubDateService) Normalize(context.Context) ([]dates.Result, error) {
	return nil, nil
}

type stubConcertService struct {
	filter  models.ConcertFilter
	detail  *concerts.Detail
	entries []concerts.SitemapEntry
}

func (s *stubConcertService) List(_ context.Context, filter models.ConcertFilter) (*models.ConcertPage, error) {
	s.filter = filter
	return &models.ConcertPage{Docs: []models.Concert{}, Page: 1, TotalPages: 0}, nil
}

func (s *stubConcertService) GetBySlug(_ context.Context, slug string) (*concerts.Detail, error) {
	if s.detail == nil || s.detail.Slug != slug {
		return nil, store.ErrConcertNotFound
	}
	return s.detail, nil
}

func (s *stubConcertService) Sitemap(context.Context) ([]concerts.SitemapEntry, error) {
	return s.entries, nil
}

type fakeCache struct {
	paths []string
	tags  []string
}

func (c *fakeCache) InvalidatePath(path string) int {
	c.paths = append(c.paths, path)
	return 1
}

func (c *fakeCache) InvalidateTag(tag string) int {
	c.tags = append(c.tags, tag)
	return 1
}

func (c *fakeCache) Middleware(...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

type fixture struct {
	tags      *stubTagService
	setlists  *stubSetlistService
	playlists *stubPlaylistService
	seo       *stubSEOService
	concerts  *stubConcertService
	cache     *fakeCache
	handler   http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		tags:      &stubTagService{},
		setlists:  &stubSetlistService{},
		playlists: &stubPlaylistService{},
		seo:       &stubSEOService{},
		concerts:  &stubConcertService{},
		cache:     &fakeCache{},
	}
	srv := New(Services{
		Tags:      f.tags,
		Artists:   stubArtistService{},
		Setlists:  f.setlists,
		Playlists: f.playlists,
		SEO:       f.seo,
		Slugs:     stubSlugService{},
		Dates:     stubDateService{},
		Concerts:  f.concerts,
	}, f.cache, Options{APIKey: testKey})
	f.handler = srv.Routes()
	return f
}

func (f *fixture) post(t *testing.T, path string, body any, key string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestJobsRequireAPIKey(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/api/jobs/populate-tags", nil, "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if f.tags.calls != 0 {
		t.Fatalf("job ran without a valid key")
	}
	payload := decodeBody(t, rec)
	if payload["success"] != false || payload["error"] != "Unauthorized access" {
		t.Fatalf("unexpected body %v", payload)
	}
}

func TestPopulateTagsResponse(t *testing.T) {
	f := newFixture()
	f.tags.results = []tags.Result{
		{ConcertID: "c1", Status: batch.StatusSuccess, TagsCount: 2},
		{ConcertID: "c2", Status: batch.StatusError, Error: "catalog down"},
		{ConcertID: "c3", Status: batch.StatusSuccess},
	}

	rec := f.post(t, "/api/jobs/populate-tags", nil, testKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Success   bool          `json:"success"`
		Processed int           `json:"processed"`
		Updated   *int          `json:"updated"`
		Results   []tags.Result `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.Success || payload.Processed != 3 || len(payload.Results) != 3 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Updated != nil {
		t.Fatalf("tag job should not report updated")
	}
	if payload.Results[1].Status != batch.StatusError {
		t.Fatalf("expected item 2 to be an error, got %s", payload.Results[1].Status)
	}
	if strings.Join(f.cache.tags, ",") != "concerts,tags" {
		t.Fatalf("expected cache tags invalidated, got %v", f.cache.tags)
	}
}

func TestJobFatalErrorIs500(t *testing.T) {
	f := newFixture()
	f.tags.err = errors.New("list tag candidates: connection refused")

	rec := f.post(t, "/api/jobs/populate-tags", nil, testKey)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["error"] != "list tag candidates: connection refused" {
		t.Fatalf("expected raw message, got %v", payload["error"])
	}
	if len(f.cache.tags) != 0 {
		t.Fatalf("failed job must not invalidate the cache")
	}
}

func TestEmptyJobReturnsEmptyResults(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/api/jobs/populate-image", nil, testKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"results":[]`) {
		t.Fatalf("expected empty results array, got %s", rec.Body.String())
	}
}

func TestPopulateSlugsReportsUpdated(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/api/jobs/populate-slugs", nil, testKey)
	payload := decodeBody(t, rec)
	if payload["processed"] != float64(2) || payload["updated"] != float64(1) {
		t.Fatalf("unexpected counts %v", payload)
	}
}

func TestSaveSetlist(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/api/save-setlist", map[string]string{}, testKey)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing id, got %d", rec.Code)
	}
	if payload := decodeBody(t, rec); payload["error"] != "setlistId is required" {
		t.Fatalf("unexpected error %v", payload["error"])
	}

	f.setlists.importErr = setlists.ErrArtistNotFound
	rec = f.post(t, "/api/save-setlist", map[string]string{"setlistId": "63de4613"}, testKey)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	f.setlists.importErr = nil
	f.setlists.imported = &models.Setlist{ID: "s1", Songs: []string{"Uno"}}
	rec = f.post(t, "/api/save-setlist", map[string]string{"setlistId": "63de4613"}, testKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.setlists.lastID != "63de4613" {
		t.Fatalf("expected id forwarded, got %q", f.setlists.lastID)
	}
}

func TestSaveSetlistWithoutSongsIsNotFound(t *testing.T) {
	for _, err := range []error{
		fmt.Errorf("%w: %s", setlists.ErrNoSongs, "63de4613"),
		store.ErrEmptySetlist,
	} {
		f := newFixture()
		f.setlists.importErr = err

		rec := f.post(t, "/api/save-setlist", map[string]string{"setlistId": "63de4613"}, testKey)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%v: expected 404, got %d", err, rec.Code)
		}
		if payload := decodeBody(t, rec); payload["success"] != false {
			t.Fatalf("expected success false, got %v", payload)
		}
	}
}

func TestCreatePlaylist(t *testing.T) {
	tests := []struct {
		name   string
		result *playlists.Result
		err    error
		want   int
	}{
		{
			name:   "created",
			result: &playlists.Result{PlaylistID: "pl1", PlaylistURL: "https://open.spotify.com/playlist/pl1", TrackCount: 12},
			want:   http.StatusOK,
		},
		{name: "unknown setlist", err: store.ErrSetlistNotFound, want: http.StatusNotFound},
		{name: "missing credentials", err: playlists.ErrNoOwner, want: http.StatusInternalServerError},
		{name: "provider failure", err: &musicapi.APIError{StatusCode: http.StatusBadGateway}, want: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.playlists.result = tc.result
			f.playlists.err = tc.err

			rec := f.post(t, "/api/jobs/create-playlist", map[string]string{"setlistId": "s1"}, testKey)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if tc.want == http.StatusOK {
				payload := decodeBody(t, rec)
				if payload["playlistId"] != "pl1" || payload["trackCount"] != float64(12) {
					t.Fatalf("unexpected payload %v", payload)
				}
			}
		})
	}
}

func TestPopulateSEOSingleNotFound(t *testing.T) {
	f := newFixture()
	f.seo.err = store.ErrConcertNotFound

	rec := f.post(t, "/api/jobs/populate-seo-single", map[string]string{"concertId": "nope"}, testKey)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRevalidate(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/api/revalidate", map[string]string{}, testKey)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = f.post(t, "/api/revalidate", map[string]string{"path": "/api/concerts"}, testKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["revalidated"] != true {
		t.Fatalf("expected revalidated, got %v", payload)
	}
	if len(f.cache.paths) != 1 || f.cache.paths[0] != "/api/concerts" {
		t.Fatalf("expected path invalidated, got %v", f.cache.paths)
	}
}

func TestListConcertsParsesFilters(t *testing.T) {
	f := newFixture()

	rec := f.get("/api/concerts?tags=rock,indie&tags=pop&search=bunkers&startDate=2025-03-01&page=2&limit=6&sort=-startDate")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	got := f.concerts.filter
	if strings.Join(got.Tags, ",") != "rock,indie,pop" {
		t.Fatalf("unexpected tags %v", got.Tags)
	}
	if got.Search != "bunkers" || got.Page != 2 || got.Limit != 6 || got.Sort != "-startDate" {
		t.Fatalf("unexpected filter %+v", got)
	}
	if got.From == nil || !got.From.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start date %v", got.From)
	}

	if rec := f.get("/api/concerts?page=0"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad page, got %d", rec.Code)
	}
}

func TestGetConcert(t *testing.T) {
	f := newFixture()
	f.concerts.detail = &concerts.Detail{Concert: models.Concert{ID: "c1", Slug: "a-en-b"}}

	if rec := f.get("/api/concerts/a-en-b"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := f.get("/api/concerts/missing"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSitemap(t *testing.T) {
	f := newFixture()
	f.concerts.entries = []concerts.SitemapEntry{
		{Slug: "los-bunkers-en-movistar-arena", LastModified: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)},
	}

	rec := f.get("/sitemap.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<loc>https://conciert.app/concerts/los-bunkers-en-movistar-arena</loc>") {
		t.Fatalf("missing concert url in %s", body)
	}
	if !strings.Contains(body, "<lastmod>2025-05-01</lastmod>") {
		t.Fatalf("missing lastmod in %s", body)
	}
}

func TestPopularTagsAndHealth(t *testing.T) {
	f := newFixture()
	f.tags.popular = []models.Tag{{ID: "t1", Name: "rock", Featured: true}}

	rec := f.get("/api/popular-tags")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"popularTags":[{"id":"t1","name":"rock"}]`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	if rec := f.get("/health"); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}
