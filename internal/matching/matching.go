// Package matching reconciles free-text names against catalog results.
package matching

import (
	"regexp"
	"strings"

	"conciertapp/internal/musicapi"
	"conciertapp/internal/textnorm"
)

// DedupGenres lowercases and trims genres, dropping empties and repeats
// while keeping first-seen order.
func DedupGenres(genres []string) []string {
	seen := make(map[string]struct{}, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		name := strings.ToLower(strings.Join(strings.Fields(g), " "))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// MostPopularArtist picks the most popular candidate whose name matches
// name, falling back to the most popular candidate overall.
func MostPopularArtist(name string, candidates []musicapi.Artist) (musicapi.Artist, bool) {
	var (
		best      musicapi.Artist
		found     bool
		bestExact bool
	)
	for _, c := range candidates {
		exact := textnorm.Equal(c.Name, name)
		switch {
		case !found:
		case exact && !bestExact:
		case exact == bestExact && c.Popularity > best.Popularity:
		default:
			continue
		}
		best, found, bestExact = c, true, exact
	}
	return best, found
}

// ExactTrackQuery is the field-qualified search for a song by an artist.
func ExactTrackQuery(song, artist string) string {
	return `track:"` + stripQuotes(song) + `" artist:"` + stripQuotes(artist) + `"`
}

// LooseTrackQuery is the unqualified fallback search.
func LooseTrackQuery(song, artist string) string {
	return strings.TrimSpace(song + " " + artist)
}

func stripQuotes(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

var (
	bracketed  = regexp.MustCompile(`[\(\[][^\)\]]*[\)\]]`)
	dashSuffix = regexp.MustCompile(`\s+-\s+.*$`)
	nonAlnum   = regexp.MustCompile(`[^a-z0-9 ]+`)
)

// normalizeTitle folds a title and strips decorations such as
// "(Live)", "[Remastered]" or " - 2011 Remaster".
func normalizeTitle(title string) string {
	t := textnorm.Fold(title)
	t = bracketed.ReplaceAllString(t, " ")
	t = dashSuffix.ReplaceAllString(t, "")
	t = nonAlnum.ReplaceAllString(t, "")
	return strings.Join(strings.Fields(t), " ")
}

// TrackScore rates how well candidate matches song by artist. Zero means
// unrelated.
func TrackScore(song, artist string, candidate musicapi.Track) int {
	want := normalizeTitle(song)
	got := normalizeTitle(candidate.Title)
	if want == "" || got == "" {
		return 0
	}

	score := 0
	switch {
	case want == got:
		score = 4
	case strings.Contains(got, want) || strings.Contains(want, got):
		score = 2
	default:
		return 0
	}

	wantArtist := textnorm.Key(artist)
	gotArtist := textnorm.Key(candidate.Artist)
	switch {
	case wantArtist == "":
	case gotArtist == wantArtist:
		score += 2
	case strings.Contains(gotArtist, wantArtist):
		score++
	}
	return score
}

// BestTrack returns the highest scoring candidate. Ties keep provider order.
func BestTrack(song, artist string, candidates []musicapi.Track) (musicapi.Track, bool) {
	var (
		best      musicapi.Track
		bestScore int
	)
	for _, c := range candidates {
		if s := TrackScore(song, artist, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, bestScore > 0
}
