package musicapi

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"conciertapp/internal/metrics"
)

const appleMusicAPIURL = "https://api.music.apple.com/v1/"

// AppleMusicClient implements MusicAPIClient for the Apple Music catalog.
// It serves genre and artwork lookups; it cannot write playlists.
type AppleMusicClient struct {
	keyID      string
	teamID     string
	privateKey *ecdsa.PrivateKey
	apiURL     string
	storefront string
	httpClient *http.Client

	mu        sync.Mutex
	token     string
	tokenTime time.Time
}

// AppleMusicOption customises an AppleMusicClient.
type AppleMusicOption func(*AppleMusicClient)

// WithAppleMusicEndpoint overrides the API base URL.
func WithAppleMusicEndpoint(apiURL string) AppleMusicOption {
	return func(c *AppleMusicClient) {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		c.apiURL = apiURL
	}
}

// WithStorefront selects the catalog storefront (default "cl").
func WithStorefront(storefront string) AppleMusicOption {
	return func(c *AppleMusicClient) { c.storefront = storefront }
}

// NewAppleMusicClient creates a new Apple Music API client
func NewAppleMusicClient(keyID, teamID, privateKeyPEM string, opts ...AppleMusicOption) (*AppleMusicClient, error) {
	privateKey, err := parseECKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}

	c := &AppleMusicClient{
		keyID:      keyID,
		teamID:     teamID,
		privateKey: privateKey,
		apiURL:     appleMusicAPIURL,
		storefront: "cl",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// parseECKey accepts both PKCS#8 (.p8 downloads) and SEC 1 encodings.
func parseECKey(privateKeyPEM string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the key")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, errors.New("apple music key is not an ECDSA key")
		}
		return ecKey, nil
	}

	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// Apple Music API response structures
type appleMusicSearchResponse struct {
	Results struct {
		Artists *appleMusicArtistsResults `json:"artists,omitempty"`
		Songs   *appleMusicSongsResults   `json:"songs,omitempty"`
	} `json:"results"`
}

type appleMusicArtistsResults struct {
	Data []appleMusicArtist `json:"data"`
}

type appleMusicSongsResults struct {
	Data []appleMusicSong `json:"data"`
}

type appleMusicArtist struct {
	ID         string                     `json:"id"`
	Type       string                     `json:"type"`
	Attributes appleMusicArtistAttributes `json:"attributes"`
}

type appleMusicArtistAttributes struct {
	Name       string             `json:"name"`
	GenreNames []string           `json:"genreNames"`
	Artwork    *appleMusicArtwork `json:"artwork,omitempty"`
	URL        string             `json:"url"`
}

type appleMusicSong struct {
	ID         string                   `json:"id"`
	Type       string                   `json:"type"`
	Attributes appleMusicSongAttributes `json:"attributes"`
}

type appleMusicSongAttributes struct {
	Name             string `json:"name"`
	ArtistName       string `json:"artistName"`
	AlbumName        string `json:"albumName"`
	DurationInMillis int    `json:"durationInMillis"`
	URL              string `json:"url"`
}

type appleMusicArtwork struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// generateToken creates a developer token, reusing it for 12 hours.
func (c *AppleMusicClient) generateToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Since(c.tokenTime) < 12*time.Hour {
		return c.token, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": c.teamID,
		"iat": now.Unix(),
		"exp": now.Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = c.keyID

	tokenString, err := token.SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	c.token = tokenString
	c.tokenTime = now

	return tokenString, nil
}

// doRequest performs an authenticated request to Apple Music API
func (c *AppleMusicClient) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	token, err := c.generateToken()
	if err != nil {
		return err
	}

	apiURL := c.apiURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(string(ProviderAppleMusic), "failure").Inc()
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequests.WithLabelValues(string(ProviderAppleMusic), "failure").Inc()
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Provider: ProviderAppleMusic, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	metrics.ProviderRequests.WithLabelValues(string(ProviderAppleMusic), "success").Inc()
	return nil
}

func (c *AppleMusicClient) catalogPath(rest string) string {
	return "catalog/" + c.storefront + "/" + rest
}

// SearchArtists searches for artists on Apple Music
func (c *AppleMusicClient) SearchArtists(ctx context.Context, query string, limit int) ([]Artist, error) {
	params := url.Values{
		"term":  []string{query},
		"types": []string{"artists"},
		"limit": []string{strconv.Itoa(limit)},
	}

	var result appleMusicSearchResponse
	if err := c.doRequest(ctx, c.catalogPath("search"), params, &result); err != nil {
		return nil, err
	}

	if result.Results.Artists == nil {
		return []Artist{}, nil
	}

	artists := make([]Artist, 0, len(result.Results.Artists.Data))
	for _, aa := range result.Results.Artists.Data {
		artists = append(artists, c.convertArtist(aa))
	}

	return artists, nil
}

// SearchTracks searches for tracks on Apple Music
func (c *AppleMusicClient) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	params := url.Values{
		"term":  []string{query},
		"types": []string{"songs"},
		"limit": []string{strconv.Itoa(limit)},
	}

	var result appleMusicSearchResponse
	if err := c.doRequest(ctx, c.catalogPath("search"), params, &result); err != nil {
		return nil, err
	}

	if result.Results.Songs == nil {
		return []Track{}, nil
	}

	tracks := make([]Track, 0, len(result.Results.Songs.Data))
	for _, as := range result.Results.Songs.Data {
		tracks = append(tracks, c.convertTrack(as))
	}

	return tracks, nil
}

// GetArtist retrieves full artist details by ID
func (c *AppleMusicClient) GetArtist(ctx context.Context, artistID string) (*Artist, error) {
	var result struct {
		Data []appleMusicArtist `json:"data"`
	}
	if err := c.doRequest(ctx, c.catalogPath("artists/"+url.PathEscape(artistID)), nil, &result); err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("artist %s: %w", artistID, ErrNotFound)
	}

	artist := c.convertArtist(result.Data[0])
	return &artist, nil
}

func (c *AppleMusicClient) convertArtist(aa appleMusicArtist) Artist {
	var images []Image
	if art := aa.Attributes.Artwork; art != nil && art.URL != "" {
		// Artwork URLs are templates; request the full-size rendition.
		u := strings.ReplaceAll(art.URL, "{w}", strconv.Itoa(art.Width))
		u = strings.ReplaceAll(u, "{h}", strconv.Itoa(art.Height))
		images = append(images, Image{URL: u, Width: art.Width, Height: art.Height})
	}

	return Artist{
		ExternalID:  aa.ID,
		Name:        aa.Attributes.Name,
		Provider:    ProviderAppleMusic,
		Images:      images,
		Genres:      aa.Attributes.GenreNames,
		ExternalURL: aa.Attributes.URL,
	}
}

func (c *AppleMusicClient) convertTrack(as appleMusicSong) Track {
	return Track{
		ExternalID:  as.ID,
		Title:       as.Attributes.Name,
		Artist:      as.Attributes.ArtistName,
		Album:       as.Attributes.AlbumName,
		Provider:    ProviderAppleMusic,
		Duration:    as.Attributes.DurationInMillis / 1000,
		ExternalURL: as.Attributes.URL,
	}
}
