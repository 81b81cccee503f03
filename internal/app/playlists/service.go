// Package playlists turns stored setlists into Spotify playlists.
package playlists

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"conciertapp/internal/logging"
	"conciertapp/internal/matching"
	"conciertapp/internal/metrics"
	"conciertapp/internal/models"
	"conciertapp/internal/musicapi"
)

const jobName = "create-playlist"

// ErrNoOwner means no account is configured to own created playlists.
var ErrNoOwner = fmt.Errorf("playlist owner account: %w", musicapi.ErrNotConfigured)

// Store exposes the setlist persistence the playlist job needs.
type Store interface {
	GetSetlist(ctx context.Context, id string) (*models.Setlist, error)
	UpdateSetlistPlaylist(ctx context.Context, id, playlistID, playlistURL string) error
}

// Catalog searches tracks and writes playlists on the same provider, so
// resolved URIs are valid for the playlist.
type Catalog interface {
	musicapi.PlaylistWriter
	SearchTracks(ctx context.Context, query string, limit int) ([]musicapi.Track, error)
}

// Result describes a created playlist.
type Result struct {
	PlaylistID  string   `json:"playlistId"`
	PlaylistURL string   `json:"playlistUrl"`
	TrackCount  int      `json:"trackCount"`
	Unresolved  []string `json:"unresolved,omitempty"`
}

// Service provides playlist operations.
type Service interface {
	CreateFromSetlist(ctx context.Context, setlistID string) (*Result, error)
}

type service struct {
	store   Store
	catalog Catalog
	ownerID string
}

// New constructs a playlist Service. ownerID is the catalog account that
// owns created playlists.
func New(store Store, catalog Catalog, ownerID string) Service {
	return &service{store: store, catalog: catalog, ownerID: strings.TrimSpace(ownerID)}
}

func (s *service) CreateFromSetlist(ctx context.Context, setlistID string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	setlist, err := s.store.GetSetlist(ctx, setlistID)
	if err != nil {
		return nil, err
	}

	if s.catalog == nil {
		return nil, fmt.Errorf("%s: %w", jobName, musicapi.ErrNotConfigured)
	}
	if s.ownerID == "" {
		return nil, ErrNoOwner
	}

	description := "Playlist generada automáticamente desde un setlist"
	if setlist.SetlistFmName != "" {
		description += " - Basado en: " + setlist.SetlistFmName
	}

	playlist, err := s.catalog.CreatePlaylist(ctx, s.ownerID, musicapi.NewPlaylist{
		Name:        fmt.Sprintf("Setlist: %s - %s", setlist.ArtistName, setlist.Name),
		Description: description,
		Public:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}

	logger := logging.WithContext(ctx).With().Str("job", jobName).Str("setlist_id", setlist.ID).Logger()

	var (
		uris       []string
		unresolved []string
	)
	for _, song := range setlist.Songs {
		track, err := s.resolve(ctx, song, setlist.ArtistName)
		if err != nil {
			logger.Warn().Err(err).Str("song", song).Msg("track search failed")
		}
		if track == nil {
			logger.Warn().Str("song", song).Msg("no track found for song")
			unresolved = append(unresolved, song)
			continue
		}
		uris = append(uris, track.URI)
	}

	for start := 0; start < len(uris); start += musicapi.MaxTracksPerRequest {
		end := min(start+musicapi.MaxTracksPerRequest, len(uris))
		if err := s.catalog.AddTracks(ctx, playlist.ID, uris[start:end]); err != nil {
			return nil, fmt.Errorf("add tracks %d-%d: %w", start, end, err)
		}
	}

	if err := s.store.UpdateSetlistPlaylist(ctx, setlist.ID, playlist.ID, playlist.URL); err != nil {
		return nil, fmt.Errorf("save playlist on setlist: %w", err)
	}

	metrics.JobItems.WithLabelValues(jobName, "success").Add(float64(len(uris)))
	metrics.JobItems.WithLabelValues(jobName, "not_found").Add(float64(len(unresolved)))
	logger.Info().Str("playlist_id", playlist.ID).Int("tracks", len(uris)).Int("unresolved", len(unresolved)).Msg("playlist created")

	return &Result{
		PlaylistID:  playlist.ID,
		PlaylistURL: playlist.URL,
		TrackCount:  len(uris),
		Unresolved:  unresolved,
	}, nil
}

// resolve finds the catalog track for song. The field-qualified search is
// trusted for its top hit; the loose search must produce a real match.
func (s *service) resolve(ctx context.Context, song, artist string) (*musicapi.Track, error) {
	var errs []error

	exact, err := s.catalog.SearchTracks(ctx, matching.ExactTrackQuery(song, artist), 5)
	if err != nil {
		errs = append(errs, fmt.Errorf("exact search: %w", err))
	} else if track, ok := pick(song, artist, exact, true); ok {
		return &track, nil
	}

	loose, err := s.catalog.SearchTracks(ctx, matching.LooseTrackQuery(song, artist), 5)
	if err != nil {
		errs = append(errs, fmt.Errorf("loose search: %w", err))
	} else if track, ok := pick(song, artist, loose, false); ok {
		return &track, nil
	}

	return nil, errors.Join(errs...)
}

func pick(song, artist string, candidates []musicapi.Track, trustTop bool) (musicapi.Track, bool) {
	if track, ok := matching.BestTrack(song, artist, candidates); ok && track.URI != "" {
		return track, true
	}
	if trustTop && len(candidates) > 0 && candidates[0].URI != "" {
		return candidates[0], true
	}
	return musicapi.Track{}, false
}
