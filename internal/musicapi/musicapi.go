package musicapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// MusicProvider represents a music streaming service
type MusicProvider string

const (
	ProviderSpotify    MusicProvider = "spotify"
	ProviderAppleMusic MusicProvider = "apple_music"
)

// MaxTracksPerRequest is the largest batch the playlist API accepts in one call.
const MaxTracksPerRequest = 100

var (
	// ErrNotConfigured means the credentials a call needs are missing.
	ErrNotConfigured = errors.New("music provider credentials not configured")
	// ErrNotFound is matched by APIError values carrying a 404.
	ErrNotFound = errors.New("music provider resource not found")
)

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider   MusicProvider
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error: %d %s - %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Image is a sized artwork URL.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Artist represents an artist from an external music service
type Artist struct {
	ExternalID  string        `json:"external_id"`
	Name        string        `json:"name"`
	Provider    MusicProvider `json:"provider"`
	Images      []Image       `json:"images,omitempty"`
	Genres      []string      `json:"genres,omitempty"`
	Popularity  int           `json:"popularity,omitempty"`
	ExternalURL string        `json:"external_url,omitempty"`
}

// LargestImage returns the widest image, if the artist has any.
func (a Artist) LargestImage() (Image, bool) {
	var best Image
	found := false
	for _, img := range a.Images {
		if img.URL == "" {
			continue
		}
		if !found || img.Width > best.Width {
			best = img
			found = true
		}
	}
	return best, found
}

// Track represents a track/song from an external music service
type Track struct {
	ExternalID  string        `json:"external_id"`
	URI         string        `json:"uri,omitempty"`
	Title       string        `json:"title"`
	Artist      string        `json:"artist"`
	Album       string        `json:"album,omitempty"`
	Provider    MusicProvider `json:"provider"`
	Duration    int           `json:"duration"` // in seconds
	Popularity  int           `json:"popularity,omitempty"`
	ExternalURL string        `json:"external_url,omitempty"`
}

// NewPlaylist describes a playlist to create.
type NewPlaylist struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// Playlist is a created playlist.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
	URL  string `json:"url"`
}

// MusicAPIClient defines the read operations enrichment needs from a catalog.
type MusicAPIClient interface {
	// SearchArtists searches for artists by name
	SearchArtists(ctx context.Context, query string, limit int) ([]Artist, error)

	// SearchTracks searches for tracks by title or artist
	SearchTracks(ctx context.Context, query string, limit int) ([]Track, error)

	// GetArtist retrieves full artist details by ID
	GetArtist(ctx context.Context, artistID string) (*Artist, error)
}

// PlaylistWriter creates playlists on behalf of an owner account.
type PlaylistWriter interface {
	CreatePlaylist(ctx context.Context, userID string, playlist NewPlaylist) (*Playlist, error)
	// AddTracks appends at most MaxTracksPerRequest URIs.
	AddTracks(ctx context.Context, playlistID string, uris []string) error
}

// Config holds configuration for music API clients
type Config struct {
	Provider MusicProvider

	// Spotify credentials
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRefreshToken string

	// Apple Music credentials
	AppleMusicKeyID      string
	AppleMusicTeamID     string
	AppleMusicPrivateKey string
	AppleMusicStorefront string

	RequestTimeout time.Duration
	MaxRetries     int
}

// NewCatalog returns the catalog selected by cfg.Provider behind a circuit
// breaker. spotify is reused when Spotify is the catalog.
func NewCatalog(cfg Config, spotify *SpotifyClient) (MusicAPIClient, error) {
	switch cfg.Provider {
	case ProviderAppleMusic:
		if cfg.AppleMusicKeyID == "" || cfg.AppleMusicTeamID == "" || cfg.AppleMusicPrivateKey == "" {
			return nil, fmt.Errorf("apple music catalog: %w", ErrNotConfigured)
		}
		var opts []AppleMusicOption
		if cfg.AppleMusicStorefront != "" {
			opts = append(opts, WithStorefront(cfg.AppleMusicStorefront))
		}
		client, err := NewAppleMusicClient(cfg.AppleMusicKeyID, cfg.AppleMusicTeamID, cfg.AppleMusicPrivateKey, opts...)
		if err != nil {
			return nil, err
		}
		return NewBreakerClient(string(ProviderAppleMusic), client), nil
	case ProviderSpotify, "":
		if spotify == nil {
			return nil, fmt.Errorf("spotify catalog: %w", ErrNotConfigured)
		}
		return NewBreakerClient(string(ProviderSpotify), spotify), nil
	default:
		return nil, fmt.Errorf("unknown catalog provider %q", cfg.Provider)
	}
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(header string) time.Duration {
	const (
		fallback = time.Second
		ceiling  = 30 * time.Second
	)
	if header == "" {
		return fallback
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return fallback
	}
	wait := time.Duration(secs) * time.Second
	if wait > ceiling {
		return ceiling
	}
	return wait
}
