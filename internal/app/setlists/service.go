// Package setlists imports artist setlists from the setlist archive.
package setlists

import (
	"context"
	"errors"
	"fmt"

	"conciertapp/internal/app/batch"
	"conciertapp/internal/logging"
	"conciertapp/internal/models"
	"conciertapp/internal/setlistfm"
	"conciertapp/internal/store"
)

const (
	// MinSongs is the length at which a setlist is accepted without
	// looking further.
	MinSongs = 4
	// MaxPages bounds the archive search pages read per artist.
	MaxPages = 5
	// BatchSize bounds the artists considered per run.
	BatchSize = 10000
	jobName   = "populate-setlists"
)

var (
	// ErrSetlistNotFound means the archive has no setlist with that id.
	ErrSetlistNotFound = errors.New("setlist not found")
	// ErrArtistNotFound means the setlist's performer is not in the catalog.
	ErrArtistNotFound = errors.New("artist not found in database")
	// ErrNoSongs means the archive setlist lists no songs.
	ErrNoSongs = errors.New("setlist has no songs")
)

// Store exposes the persistence the setlist job needs.
type Store interface {
	ListArtists(ctx context.Context, limit int) ([]models.Artist, error)
	FindArtistByName(ctx context.Context, name string) (*models.Artist, error)
	HasSetlist(ctx context.Context, artistID string) (bool, error)
	CreateSetlist(ctx context.Context, setlist *models.Setlist) (*models.Setlist, error)
}

// Archive is the setlist archive provider.
type Archive interface {
	SearchSetlists(ctx context.Context, artistName string, page int) (*setlistfm.SearchPage, error)
	GetSetlist(ctx context.Context, id string) (*setlistfm.Setlist, error)
}

// Result is the outcome for one artist.
type Result struct {
	ArtistID   string       `json:"artistId"`
	Name       string       `json:"name"`
	Status     batch.Status `json:"status"`
	SetlistID  string       `json:"setlistId,omitempty"`
	SongsCount int          `json:"songsCount,omitempty"`
	Message    string       `json:"message,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Outcome implements batch.Outcome.
func (r Result) Outcome() batch.Status { return r.Status }

// Service provides setlist operations.
type Service interface {
	// Populate gives every artist without a setlist its best recent one.
	Populate(ctx context.Context) ([]Result, error)
	// ImportByID stores the archive setlist with the given id.
	ImportByID(ctx context.Context, setlistID string) (*models.Setlist, error)
}

type service struct {
	store       Store
	archive     Archive
	concurrency int
}

// New constructs a setlist Service. archive may be nil, in which case
// every operation fails with setlistfm.ErrNotConfigured.
func New(store Store, archive Archive, concurrency int) Service {
	return &service{store: store, archive: archive, concurrency: concurrency}
}

func (s *service) Populate(ctx context.Context) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.archive == nil {
		return nil, fmt.Errorf("%s: %w", jobName, setlistfm.ErrNotConfigured)
	}

	artists, err := s.store.ListArtists(ctx, BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}

	return batch.Run(ctx, batch.Options{Name: jobName, Concurrency: s.concurrency}, artists, s.populate,
		func(a models.Artist, err error) Result {
			return Result{ArtistID: a.ID, Name: a.Name, Status: batch.StatusError, Error: batch.ErrorString(err)}
		}), nil
}

func (s *service) populate(ctx context.Context, artist models.Artist) Result {
	result := Result{ArtistID: artist.ID, Name: artist.Name}
	fail := func(err error) Result {
		logging.WithContext(ctx).Warn().Err(err).Str("job", jobName).Str("artist", artist.Name).Msg("setlist import failed")
		result.Status = batch.StatusError
		result.Error = err.Error()
		return result
	}

	exists, err := s.store.HasSetlist(ctx, artist.ID)
	if err != nil {
		return fail(err)
	}
	if exists {
		result.Status = batch.StatusSkipped
		result.Message = "Setlist already exists"
		return result
	}

	found, err := s.bestSetlist(ctx, artist.Name)
	if err != nil {
		return fail(err)
	}
	if found == nil {
		result.Status = batch.StatusNotFound
		result.Message = "No setlist found on setlist.fm"
		return result
	}

	created, err := s.store.CreateSetlist(ctx, newSetlist(artist, found))
	if errors.Is(err, store.ErrEmptySetlist) {
		result.Status = batch.StatusNotFound
		result.Message = "No setlist found on setlist.fm"
		return result
	}
	if err != nil {
		return fail(err)
	}

	result.Status = batch.StatusSuccess
	result.SetlistID = created.ID
	result.SongsCount = len(created.Songs)
	return result
}

// bestSetlist walks the archive newest first and returns the first setlist
// with at least MinSongs songs. When none qualifies within MaxPages it
// returns the longest one already seen, or nil when every setlist is empty.
func (s *service) bestSetlist(ctx context.Context, artistName string) (*setlistfm.Setlist, error) {
	var (
		best      *setlistfm.Setlist
		bestCount int
	)
	for page := 1; page <= MaxPages; page++ {
		res, err := s.archive.SearchSetlists(ctx, artistName, page)
		if err != nil {
			if best != nil {
				logging.WithContext(ctx).Warn().Err(err).Str("artist", artistName).Int("page", page).
					Msg("setlist search stopped early, using best candidate so far")
				break
			}
			return nil, fmt.Errorf("search setlists page %d: %w", page, err)
		}

		for i := range res.Setlists {
			count := len(res.Setlists[i].Songs())
			if count >= MinSongs {
				return &res.Setlists[i], nil
			}
			if count > bestCount {
				best, bestCount = &res.Setlists[i], count
			}
		}

		if !res.HasMore() {
			break
		}
	}
	return best, nil
}

func (s *service) ImportByID(ctx context.Context, setlistID string) (*models.Setlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.archive == nil {
		return nil, setlistfm.ErrNotConfigured
	}

	found, err := s.archive.GetSetlist(ctx, setlistID)
	if errors.Is(err, setlistfm.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSetlistNotFound, setlistID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch setlist %s: %w", setlistID, err)
	}

	artist, err := s.store.FindArtistByName(ctx, found.Artist.Name)
	if errors.Is(err, store.ErrArtistNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrArtistNotFound, found.Artist.Name)
	}
	if err != nil {
		return nil, err
	}

	created, err := s.store.CreateSetlist(ctx, newSetlist(*artist, found))
	if errors.Is(err, store.ErrEmptySetlist) {
		return nil, fmt.Errorf("%w: %s", ErrNoSongs, setlistID)
	}
	if err != nil {
		return nil, err
	}
	created.ArtistName = artist.Name
	return created, nil
}

func newSetlist(artist models.Artist, found *setlistfm.Setlist) *models.Setlist {
	return &models.Setlist{
		ArtistID:      artist.ID,
		ArtistName:    artist.Name,
		Name:          artist.Name + " Setlist",
		Songs:         found.Songs(),
		SetlistFmID:   found.ID,
		SetlistFmName: found.DisplayName(),
	}
}
