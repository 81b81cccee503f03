// Package httpapi exposes the enrichment jobs and the public read endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"conciertapp/internal/app/artists"
	"conciertapp/internal/app/concerts"
	"conciertapp/internal/app/dates"
	"conciertapp/internal/app/playlists"
	"conciertapp/internal/app/seo"
	"conciertapp/internal/app/setlists"
	"conciertapp/internal/app/slugs"
	"conciertapp/internal/app/tags"
	"conciertapp/internal/http/middleware"
	"conciertapp/internal/logging"
	"conciertapp/internal/models"
	"conciertapp/internal/setlistfm"
	"conciertapp/internal/store"
)

// Cache tags labelling public responses.
const (
	TagConcerts = "concerts"
	TagTags     = "tags"
)

// TagService reconciles concert tags with catalog genres.
type TagService interface {
	Populate(ctx context.Context) ([]tags.Result, error)
	Popular(ctx context.Context) ([]models.Tag, error)
}

// ArtistService fills missing artist images.
type ArtistService interface {
	PopulateImages(ctx context.Context) ([]artists.Result, error)
}

// SetlistService imports setlists from the archive.
type SetlistService interface {
	Populate(ctx context.Context) ([]setlists.Result, error)
	ImportByID(ctx context.Context, setlistID string) (*models.Setlist, error)
}

// PlaylistService turns setlists into streaming playlists.
type PlaylistService interface {
	CreateFromSetlist(ctx context.Context, setlistID string) (*playlists.Result, error)
}

// SEOService generates search metadata and descriptive text.
type SEOService interface {
	PopulateSEO(ctx context.Context) ([]seo.Result, error)
	GenerateSEO(ctx context.Context, concertID string) (*models.SEO, error)
	PopulateInfo(ctx context.Context) ([]seo.Result, error)
	GenerateInfo(ctx context.Context, concertID string) (*models.Section, error)
}

// SlugService backfills concert slugs.
type SlugService interface {
	Populate(ctx context.Context) ([]slugs.Result, error)
}

// DateService normalizes all-day concert start times.
type DateService interface {
	Normalize(ctx context.Context) ([]dates.Result, error)
}

// ConcertService serves the public concert pages.
type ConcertService interface {
	List(ctx context.Context, filter models.ConcertFilter) (*models.ConcertPage, error)
	GetBySlug(ctx context.Context, slug string) (*concerts.Detail, error)
	Sitemap(ctx context.Context) ([]concerts.SitemapEntry, error)
}

// ResponseCache stores public responses and drops them on revalidation.
type ResponseCache interface {
	InvalidatePath(path string) int
	InvalidateTag(tag string) int
	Middleware(tags ...string) func(http.Handler) http.Handler
}

// Services groups the dependencies of the HTTP layer.
type Services struct {
	Tags      TagService
	Artists   ArtistService
	Setlists  SetlistService
	Playlists PlaylistService
	SEO       SEOService
	Slugs     SlugService
	Dates     DateService
	Concerts  ConcertService
	Search    http.Handler
}

// Options configures cross-cutting behaviour of the Server.
type Options struct {
	APIKey         string
	APIKeyHash     string
	AllowedOrigins []string
	SiteURL        string
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	svc      Services
	cache    ResponseCache
	opts     Options
	validate *validator.Validate
}

// New configures a Server. cache may be nil, in which case public
// responses are not cached and revalidation only acknowledges.
func New(svc Services, cache ResponseCache, opts Options) *Server {
	if opts.SiteURL == "" {
		opts.SiteURL = DefaultSiteURL
	}
	return &Server{
		svc:      svc,
		cache:    cache,
		opts:     opts,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Routes exposes the HTTP handlers.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.Handle("/sitemap.xml", s.cached(http.HandlerFunc(s.handleSitemap), TagConcerts)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Public reads
	api.Handle("/popular-tags", s.cached(http.HandlerFunc(s.handlePopularTags), TagTags)).Methods(http.MethodGet)
	api.Handle("/concerts", s.cached(http.HandlerFunc(s.handleListConcerts), TagConcerts, TagTags)).Methods(http.MethodGet)
	api.Handle("/concerts/{slug}", s.cached(http.HandlerFunc(s.handleGetConcert), TagConcerts)).Methods(http.MethodGet)
	if s.svc.Search != nil {
		api.Handle("/search", s.cached(s.svc.Search, TagConcerts)).Methods(http.MethodGet)
	}

	// Maintenance endpoints behind the shared secret
	protected := api.Methods(http.MethodPost).Subrouter()
	protected.Use(middleware.APIKey(s.opts.APIKey, s.opts.APIKeyHash))

	protected.HandleFunc("/jobs/populate-tags", s.handlePopulateTags)
	protected.HandleFunc("/jobs/populate-image", s.handlePopulateImages)
	protected.HandleFunc("/jobs/populate-setlists", s.handlePopulateSetlists)
	protected.HandleFunc("/save-setlist", s.handleSaveSetlist)
	protected.HandleFunc("/jobs/create-playlist", s.handleCreatePlaylist)
	protected.HandleFunc("/jobs/populate-seo", s.handlePopulateSEO)
	protected.HandleFunc("/jobs/populate-seo-single", s.handlePopulateSEOSingle)
	protected.HandleFunc("/jobs/populate-info", s.handlePopulateInfo)
	protected.HandleFunc("/jobs/populate-info-single", s.handlePopulateInfoSingle)
	protected.HandleFunc("/jobs/populate-slugs", s.handlePopulateSlugs)
	protected.HandleFunc("/jobs/update-concert-dates", s.handleUpdateConcertDates)
	protected.HandleFunc("/revalidate", s.handleRevalidate)

	var handler http.Handler = r
	handler = middleware.CORS(s.opts.AllowedOrigins)(handler)
	handler = middleware.Recovery()(handler)
	handler = middleware.RequestLogging()(handler)
	return handler
}

func (s *Server) cached(h http.Handler, tags ...string) http.Handler {
	if s.cache == nil {
		return h
	}
	return s.cache.Middleware(tags...)(h)
}

func (s *Server) invalidate(ctx context.Context, tags ...string) {
	if s.cache == nil {
		return
	}
	for _, tag := range tags {
		n := s.cache.InvalidateTag(tag)
		logging.WithContext(ctx).Debug().Str("tag", tag).Int("dropped", n).Msg("cache tag invalidated")
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// decode reads a JSON body into dst and validates its struct tags.
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidBody
	}
	return s.validate.Struct(dst)
}

var errInvalidBody = errors.New("invalid JSON payload")

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, errInvalidBody), errors.As(err, &validationErrs):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrConcertNotFound),
		errors.Is(err, store.ErrSetlistNotFound),
		errors.Is(err, store.ErrArtistNotFound),
		errors.Is(err, setlists.ErrSetlistNotFound),
		errors.Is(err, setlists.ErrArtistNotFound),
		errors.Is(err, setlistfm.ErrNotFound),
		errors.Is(err, setlists.ErrNoSongs),
		errors.Is(err, store.ErrEmptySetlist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	message := err.Error()

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		message = validationErrs[0].Field() + " is required"
	}

	event := logging.WithContext(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = logging.WithContext(r.Context()).Error()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")

	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
