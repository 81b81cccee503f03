package musicapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"conciertapp/internal/metrics"
)

const (
	spotifyAPIURL  = "https://api.spotify.com/v1/"
	spotifyAuthURL = "https://accounts.spotify.com/api/token"
)

// SpotifyClient implements MusicAPIClient and PlaylistWriter for Spotify.
// Catalog reads use a client-credentials token; playlist writes use a user
// token obtained from the configured refresh token.
type SpotifyClient struct {
	clientID     string
	clientSecret string
	refreshToken string
	apiURL       string
	authURL      string
	httpClient   *http.Client
	maxRetries   int

	mu        sync.RWMutex
	appToken  bearerToken
	userToken bearerToken
}

type bearerToken struct {
	value  string
	expiry time.Time
}

func (t bearerToken) valid(now time.Time) bool {
	return t.value != "" && now.Before(t.expiry)
}

// SpotifyOption customises a SpotifyClient.
type SpotifyOption func(*SpotifyClient)

// WithRefreshToken enables playlist writes for the account owning token.
func WithRefreshToken(token string) SpotifyOption {
	return func(c *SpotifyClient) { c.refreshToken = token }
}

// WithSpotifyEndpoints overrides the API and token URLs.
func WithSpotifyEndpoints(apiURL, authURL string) SpotifyOption {
	return func(c *SpotifyClient) {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		c.apiURL = apiURL
		c.authURL = authURL
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) SpotifyOption {
	return func(c *SpotifyClient) { c.httpClient = client }
}

// WithMaxRetries bounds retries on HTTP 429.
func WithMaxRetries(n int) SpotifyOption {
	return func(c *SpotifyClient) { c.maxRetries = n }
}

// NewSpotifyClient creates a new Spotify API client
func NewSpotifyClient(clientID, clientSecret string, opts ...SpotifyOption) *SpotifyClient {
	c := &SpotifyClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		apiURL:       spotifyAPIURL,
		authURL:      spotifyAuthURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Spotify API response structures
type spotifySearchResponse struct {
	Artists *spotifyArtistsPage `json:"artists,omitempty"`
	Tracks  *spotifyTracksPage  `json:"tracks,omitempty"`
}

type spotifyArtistsPage struct {
	Items []spotifyArtist `json:"items"`
}

type spotifyTracksPage struct {
	Items []spotifyTrack `json:"items"`
}

type spotifyArtist struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Genres       []string            `json:"genres"`
	Popularity   int                 `json:"popularity"`
	Images       []spotifyImage      `json:"images"`
	ExternalURLs spotifyExternalURLs `json:"external_urls"`
}

type spotifyTrack struct {
	ID           string                `json:"id"`
	URI          string                `json:"uri"`
	Name         string                `json:"name"`
	Artists      []spotifySimpleArtist `json:"artists"`
	Album        *spotifySimpleAlbum   `json:"album,omitempty"`
	Duration     int                   `json:"duration_ms"`
	Popularity   int                   `json:"popularity"`
	ExternalURLs spotifyExternalURLs   `json:"external_urls"`
}

type spotifySimpleArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifySimpleAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type spotifyExternalURLs struct {
	Spotify string `json:"spotify"`
}

type spotifyPlaylist struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	URI          string              `json:"uri"`
	ExternalURLs spotifyExternalURLs `json:"external_urls"`
}

type spotifyTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a cached bearer token, refreshing it when expired.
func (c *SpotifyClient) token(ctx context.Context, user bool) (string, error) {
	c.mu.RLock()
	cached := c.appToken
	if user {
		cached = c.userToken
	}
	c.mu.RUnlock()
	if cached.valid(time.Now()) {
		return cached.value, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	slot := &c.appToken
	if user {
		slot = &c.userToken
	}
	if slot.valid(time.Now()) {
		return slot.value, nil
	}

	if c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("spotify client credentials: %w", ErrNotConfigured)
	}

	data := url.Values{}
	if user {
		if c.refreshToken == "" {
			return "", fmt.Errorf("spotify refresh token: %w", ErrNotConfigured)
		}
		data.Set("grant_type", "refresh_token")
		data.Set("refresh_token", c.refreshToken)
	} else {
		data.Set("grant_type", "client_credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}

	authString := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+authString)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{Provider: ProviderSpotify, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenResp spotifyTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}

	lifetime := time.Duration(tokenResp.ExpiresIn) * time.Second
	if lifetime > 2*time.Minute {
		lifetime -= time.Minute
	}
	*slot = bearerToken{value: tokenResp.AccessToken, expiry: time.Now().Add(lifetime)}

	return slot.value, nil
}

// do performs an authenticated request, retrying on HTTP 429 after the
// delay the API asks for.
func (c *SpotifyClient) do(ctx context.Context, method, endpoint string, params url.Values, body, result any, user bool) error {
	token, err := c.token(ctx, user)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	apiURL := c.apiURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	for attempt := 0; ; attempt++ {
		wait, err := c.send(ctx, method, apiURL, token, payload, result)
		if err == nil {
			metrics.ProviderRequests.WithLabelValues(string(ProviderSpotify), "success").Inc()
			return nil
		}
		if wait < 0 || attempt >= c.maxRetries {
			metrics.ProviderRequests.WithLabelValues(string(ProviderSpotify), "failure").Inc()
			return err
		}

		metrics.ProviderRequests.WithLabelValues(string(ProviderSpotify), "throttled").Inc()
		log.Warn().Str("endpoint", endpoint).Dur("retry_after", wait).Msg("spotify rate limited")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// send performs one attempt. A non-negative wait means the call was
// throttled and may be retried after wait.
func (c *SpotifyClient) send(ctx context.Context, method, apiURL, token string, payload []byte, result any) (time.Duration, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return -1, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return -1, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(resp.Body)
		return retryAfter(resp.Header.Get("Retry-After")), &APIError{Provider: ProviderSpotify, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return -1, &APIError{Provider: ProviderSpotify, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if result == nil {
		return -1, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return -1, fmt.Errorf("decode response: %w", err)
	}

	return -1, nil
}

// SearchArtists searches for artists on Spotify
func (c *SpotifyClient) SearchArtists(ctx context.Context, query string, limit int) ([]Artist, error) {
	params := url.Values{
		"q":     []string{query},
		"type":  []string{"artist"},
		"limit": []string{strconv.Itoa(limit)},
	}

	var result spotifySearchResponse
	if err := c.do(ctx, http.MethodGet, "search", params, nil, &result, false); err != nil {
		return nil, err
	}

	if result.Artists == nil {
		return []Artist{}, nil
	}

	artists := make([]Artist, 0, len(result.Artists.Items))
	for _, sa := range result.Artists.Items {
		artists = append(artists, c.convertArtist(sa))
	}

	return artists, nil
}

// SearchTracks searches for tracks on Spotify
func (c *SpotifyClient) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	params := url.Values{
		"q":     []string{query},
		"type":  []string{"track"},
		"limit": []string{strconv.Itoa(limit)},
	}

	var result spotifySearchResponse
	if err := c.do(ctx, http.MethodGet, "search", params, nil, &result, false); err != nil {
		return nil, err
	}

	if result.Tracks == nil {
		return []Track{}, nil
	}

	tracks := make([]Track, 0, len(result.Tracks.Items))
	for _, st := range result.Tracks.Items {
		tracks = append(tracks, c.convertTrack(st))
	}

	return tracks, nil
}

// GetArtist retrieves full artist details by ID
func (c *SpotifyClient) GetArtist(ctx context.Context, artistID string) (*Artist, error) {
	var sa spotifyArtist
	if err := c.do(ctx, http.MethodGet, "artists/"+url.PathEscape(artistID), nil, nil, &sa, false); err != nil {
		return nil, err
	}

	artist := c.convertArtist(sa)
	return &artist, nil
}

// CreatePlaylist creates a playlist owned by userID.
func (c *SpotifyClient) CreatePlaylist(ctx context.Context, userID string, playlist NewPlaylist) (*Playlist, error) {
	if userID == "" {
		return nil, fmt.Errorf("spotify user id: %w", ErrNotConfigured)
	}

	var sp spotifyPlaylist
	endpoint := "users/" + url.PathEscape(userID) + "/playlists"
	if err := c.do(ctx, http.MethodPost, endpoint, nil, playlist, &sp, true); err != nil {
		return nil, err
	}

	return &Playlist{
		ID:   sp.ID,
		Name: sp.Name,
		URI:  sp.URI,
		URL:  sp.ExternalURLs.Spotify,
	}, nil
}

// AddTracks appends uris to a playlist in a single call.
func (c *SpotifyClient) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > MaxTracksPerRequest {
		return fmt.Errorf("add tracks: %d uris exceeds limit of %d", len(uris), MaxTracksPerRequest)
	}

	body := map[string][]string{"uris": uris}
	endpoint := "playlists/" + url.PathEscape(playlistID) + "/tracks"
	return c.do(ctx, http.MethodPost, endpoint, nil, body, nil, true)
}

func (c *SpotifyClient) convertArtist(sa spotifyArtist) Artist {
	images := make([]Image, 0, len(sa.Images))
	for _, img := range sa.Images {
		images = append(images, Image{URL: img.URL, Width: img.Width, Height: img.Height})
	}

	return Artist{
		ExternalID:  sa.ID,
		Name:        sa.Name,
		Provider:    ProviderSpotify,
		Images:      images,
		Genres:      sa.Genres,
		Popularity:  sa.Popularity,
		ExternalURL: sa.ExternalURLs.Spotify,
	}
}

func (c *SpotifyClient) convertTrack(st spotifyTrack) Track {
	names := make([]string, 0, len(st.Artists))
	for _, a := range st.Artists {
		names = append(names, a.Name)
	}

	albumName := ""
	if st.Album != nil {
		albumName = st.Album.Name
	}

	uri := st.URI
	if uri == "" && st.ID != "" {
		uri = "spotify:track:" + st.ID
	}

	return Track{
		ExternalID:  st.ID,
		URI:         uri,
		Title:       st.Name,
		Artist:      strings.Join(names, ", "),
		Album:       albumName,
		Provider:    ProviderSpotify,
		Duration:    st.Duration / 1000, // Convert ms to seconds
		Popularity:  st.Popularity,
		ExternalURL: st.ExternalURLs.Spotify,
	}
}
