package matching

import (
	"testing"

	"conciertapp/internal/musicapi"
)

func TestDedupGenres(t *testing.T) {
	got := DedupGenres([]string{"Rock", "latin  pop", "rock", " ", "Latin Pop", "cumbia"})
	want := []string{"rock", "latin pop", "cumbia"}
	if len(got) != len(want) {
		t.Fatalf("DedupGenres() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DedupGenres()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMostPopularArtist(t *testing.T) {
	candidates := []musicapi.Artist{
		{Name: "Los Jaivas Tribute", Popularity: 90},
		{Name: "Los Jaivas", Popularity: 40},
		{Name: "los jaivas", Popularity: 55},
	}

	got, ok := MostPopularArtist("Los Jaivas", candidates)
	if !ok || got.Popularity != 55 {
		t.Fatalf("expected most popular exact match, got %+v", got)
	}

	got, ok = MostPopularArtist("Inti-Illimani", candidates)
	if !ok || got.Popularity != 90 {
		t.Fatalf("expected most popular overall without exact match, got %+v", got)
	}

	if _, ok := MostPopularArtist("x", nil); ok {
		t.Fatal("expected no match for empty candidates")
	}
}

func TestTrackQueries(t *testing.T) {
	if got := ExactTrackQuery(`El "Baile"`, "Chancho en Piedra"); got != `track:"El Baile" artist:"Chancho en Piedra"` {
		t.Fatalf("ExactTrackQuery() = %s", got)
	}
	if got := LooseTrackQuery("Sexo", "Los Prisioneros"); got != "Sexo Los Prisioneros" {
		t.Fatalf("LooseTrackQuery() = %s", got)
	}
}

func TestBestTrack(t *testing.T) {
	candidates := []musicapi.Track{
		{ExternalID: "cover", Title: "Tren al Sur", Artist: "Karaoke Band"},
		{ExternalID: "live", Title: "Tren al Sur (En Vivo)", Artist: "Los Prisioneros"},
		{ExternalID: "other", Title: "Muevan las Industrias", Artist: "Los Prisioneros"},
	}

	got, ok := BestTrack("Tren al Sur", "Los Prisioneros", candidates)
	if !ok || got.ExternalID != "live" {
		t.Fatalf("expected artist-matching track, got %+v", got)
	}

	if _, ok := BestTrack("Canción Inexistente", "Los Prisioneros", candidates); ok {
		t.Fatal("expected no match for unrelated titles")
	}
}

func TestTrackScoreStripsDecorations(t *testing.T) {
	c := musicapi.Track{Title: "Corazones - Remastered 2011", Artist: "Los Prisioneros"}
	if s := TrackScore("Corazones", "Los Prisioneros", c); s != 6 {
		t.Fatalf("TrackScore() = %d, want 6", s)
	}
}
