package setlists

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conciertapp/internal/app/batch"
	"conciertapp/internal/models"
	"conciertapp/internal/setlistfm"
	"conciertapp/internal/store"
)

type fakeStore struct {
	mu       sync.Mutex
	artists  []models.Artist
	existing map[string]bool
	created  []*models.Setlist
}

func (f *fakeStore) ListArtists(context.Context, int) ([]models.Artist, error) {
	return f.artists, nil
}

func (f *fakeStore) FindArtistByName(_ context.Context, name string) (*models.Artist, error) {
	for _, a := range f.artists {
		if a.Name == name {
			a := a
			return &a, nil
		}
	}
	return nil, store.ErrArtistNotFound
}

func (f *fakeStore) HasSetlist(_ context.Context, artistID string) (bool, error) {
	return f.existing[artistID], nil
}

// CreateSetlist mirrors the store: blank songs are dropped and an empty
// setlist is rejected.
func (f *fakeStore) CreateSetlist(_ context.Context, sl *models.Setlist) (*models.Setlist, error) {
	var songs []string
	for _, s := range sl.Songs {
		if strings.TrimSpace(s) != "" {
			songs = append(songs, s)
		}
	}
	if len(songs) == 0 {
		return nil, store.ErrEmptySetlist
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sl.Songs = songs
	sl.ID = "sl-" + sl.ArtistID
	f.created = append(f.created, sl)
	return sl, nil
}

type fakeArchive struct {
	mu       sync.Mutex
	pages    map[string][]setlistfm.SearchPage
	byID     map[string]*setlistfm.Setlist
	searches map[string]int
	err      error
}

func (f *fakeArchive) SearchSetlists(_ context.Context, artist string, page int) (*setlistfm.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searches == nil {
		f.searches = map[string]int{}
	}
	f.searches[artist]++
	if f.err != nil {
		return nil, f.err
	}
	pages := f.pages[artist]
	if page > len(pages) {
		return &setlistfm.SearchPage{Page: page}, nil
	}
	p := pages[page-1]
	return &p, nil
}

func (f *fakeArchive) GetSetlist(_ context.Context, id string) (*setlistfm.Setlist, error) {
	if sl, ok := f.byID[id]; ok {
		return sl, nil
	}
	return nil, setlistfm.ErrNotFound
}

func setlist(id, artist, venue string, songs ...string) setlistfm.Setlist {
	var sl setlistfm.Setlist
	sl.ID = id
	sl.Artist.Name = artist
	sl.Venue.Name = venue
	sl.EventDate = "15-03-2024"
	set := setlistfm.Set{}
	for _, s := range songs {
		set.Songs = append(set.Songs, setlistfm.Song{Name: s})
	}
	sl.Sets.Set = []setlistfm.Set{set}
	return sl
}

// page builds search page n of total pages with 20 items per page.
func page(n, total int, setlists ...setlistfm.Setlist) setlistfm.SearchPage {
	return setlistfm.SearchPage{Page: n, ItemsPerPage: 20, Total: total * 20, Setlists: setlists}
}

func TestPopulatePrefersFirstSetlistWithEnoughSongs(t *testing.T) {
	st := &fakeStore{artists: []models.Artist{{ID: "a1", Name: "Los Tres"}}}
	archive := &fakeArchive{pages: map[string][]setlistfm.SearchPage{
		"Los Tres": {
			page(1, 2,
				setlist("s1", "Los Tres", "Teatro Caupolicán", "Déjate Caer", "La Espada & la Pared"),
				setlist("s2", "Los Tres", "Movistar Arena", "Déjate Caer", "Olor a Gas", "Pájaros de Fuego", "Tírate"),
			),
		},
	}}

	results, err := New(st, archive, 1).Populate(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, batch.StatusSuccess, results[0].Status)
	assert.Equal(t, 4, results[0].SongsCount)
	require.Len(t, st.created, 1)
	assert.Equal(t, "Los Tres Setlist", st.created[0].Name)
	assert.Equal(t, "s2", st.created[0].SetlistFmID)
	assert.Equal(t, "Movistar Arena, 15-03-2024", st.created[0].SetlistFmName)
	assert.Equal(t, 1, archive.searches["Los Tres"])
}

func TestPopulateFallsBackToLongestSetlistAcrossFetchedPages(t *testing.T) {
	st := &fakeStore{artists: []models.Artist{{ID: "a1", Name: "Gepe"}}}
	archive := &fakeArchive{pages: map[string][]setlistfm.SearchPage{
		"Gepe": {
			page(1, 7, setlist("s1", "Gepe", "A", "Hambre")),
			page(2, 7, setlist("s2", "Gepe", "B", "Hambre", "Por la Ventana", "Alfabeto")),
			page(3, 7, setlist("s3", "Gepe", "C")),
			page(4, 7, setlist("s4", "Gepe", "D", "Fruta y Té")),
			page(5, 7, setlist("s5", "Gepe", "E", "Piñen", "Hambre")),
			page(6, 7, setlist("s6", "Gepe", "F", "1", "2", "3", "4", "5")),
		},
	}}

	results, err := New(st, archive, 1).Populate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, batch.StatusSuccess, results[0].Status)
	assert.Equal(t, 3, results[0].SongsCount)
	assert.Equal(t, "s2", st.created[0].SetlistFmID)
	assert.Equal(t, MaxPages, archive.searches["Gepe"])
}

func TestPopulateNeverStoresEmptySetlists(t *testing.T) {
	st := &fakeStore{artists: []models.Artist{{ID: "a1", Name: "Silent"}}}
	archive := &fakeArchive{pages: map[string][]setlistfm.SearchPage{
		"Silent": {page(1, 1, setlist("s1", "Silent", "X", "  ", ""))},
	}}

	results, err := New(st, archive, 1).Populate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, batch.StatusNotFound, results[0].Status)
	assert.Empty(t, st.created)
}

func TestPopulateSkipsArtistsWithSetlist(t *testing.T) {
	st := &fakeStore{
		artists:  []models.Artist{{ID: "a1", Name: "Lucybell"}},
		existing: map[string]bool{"a1": true},
	}
	archive := &fakeArchive{}

	results, err := New(st, archive, 1).Populate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, batch.StatusSkipped, results[0].Status)
	assert.Zero(t, archive.searches["Lucybell"])
}

func TestPopulateReportsProviderErrors(t *testing.T) {
	st := &fakeStore{artists: []models.Artist{{ID: "a1", Name: "Anyone"}, {ID: "a2", Name: "Else"}}}
	archive := &fakeArchive{err: &setlistfm.APIError{StatusCode: 503}}

	results, err := New(st, archive, 1).Populate(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		assert.Equal(t, batch.StatusError, r.Status)
		assert.Contains(t, r.Error, "503")
	}
}

func TestImportByID(t *testing.T) {
	found := setlist("63de4613", "Mon Laferte", "Estadio Nacional", "Tu Falta de Querer", "Amor Completo")
	found.Tour = &struct {
		Name string `json:"name"`
	}{Name: "1940 Carmen"}

	st := &fakeStore{artists: []models.Artist{{ID: "a1", Name: "Mon Laferte"}}}
	archive := &fakeArchive{byID: map[string]*setlistfm.Setlist{"63de4613": &found}}

	sl, err := New(st, archive, 1).ImportByID(context.Background(), "63de4613")
	require.NoError(t, err)

	assert.Equal(t, "a1", sl.ArtistID)
	assert.Equal(t, "Mon Laferte", sl.ArtistName)
	assert.Equal(t, []string{"Tu Falta de Querer", "Amor Completo"}, sl.Songs)
	assert.Equal(t, "Estadio Nacional, 15-03-2024 (1940 Carmen)", sl.SetlistFmName)
}

func TestImportByIDNotFound(t *testing.T) {
	unknownArtist := setlist("abc", "Nobody", "X", "Song")
	archive := &fakeArchive{byID: map[string]*setlistfm.Setlist{"abc": &unknownArtist}}
	svc := New(&fakeStore{}, archive, 1)

	_, err := svc.ImportByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSetlistNotFound)

	_, err = svc.ImportByID(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrArtistNotFound)
}
