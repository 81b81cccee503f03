package setlistfm

import "strings"

// SearchPage is one page of setlist search results.
type SearchPage struct {
	Type         string    `json:"type"`
	ItemsPerPage int       `json:"itemsPerPage"`
	Page         int       `json:"page"`
	Total        int       `json:"total"`
	Setlists     []Setlist `json:"setlist"`
}

// HasMore reports whether later pages exist.
func (p SearchPage) HasMore() bool {
	return p.ItemsPerPage > 0 && p.Page*p.ItemsPerPage < p.Total
}

// Setlist is a performance as recorded by the archive.
type Setlist struct {
	ID        string `json:"id"`
	EventDate string `json:"eventDate"` // dd-MM-yyyy
	URL       string `json:"url"`
	Artist    struct {
		MBID string `json:"mbid"`
		Name string `json:"name"`
	} `json:"artist"`
	Venue struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		City struct {
			Name    string `json:"name"`
			Country struct {
				Code string `json:"code"`
				Name string `json:"name"`
			} `json:"country"`
		} `json:"city"`
	} `json:"venue"`
	Tour *struct {
		Name string `json:"name"`
	} `json:"tour,omitempty"`
	Sets struct {
		Set []Set `json:"set"`
	} `json:"sets"`
}

// Set is one block of a show (main set, encore).
type Set struct {
	Name   string `json:"name,omitempty"`
	Encore int    `json:"encore,omitempty"`
	Songs  []Song `json:"song"`
}

// Song is a performed song.
type Song struct {
	Name string `json:"name"`
	Tape bool   `json:"tape,omitempty"`
	Info string `json:"info,omitempty"`
}

// Songs returns the trimmed, non-empty song names across all sets in order.
func (s Setlist) Songs() []string {
	var songs []string
	for _, set := range s.Sets.Set {
		for _, song := range set.Songs {
			if name := strings.TrimSpace(song.Name); name != "" {
				songs = append(songs, name)
			}
		}
	}
	return songs
}

// DisplayName describes the show as "<venue>, <date> (<tour>)".
func (s Setlist) DisplayName() string {
	venue := strings.TrimSpace(s.Venue.Name)
	if venue == "" {
		venue = "Desconocido"
	}
	date := strings.TrimSpace(s.EventDate)
	if date == "" {
		date = "Fecha desconocida"
	}
	name := venue + ", " + date
	if s.Tour != nil && strings.TrimSpace(s.Tour.Name) != "" {
		name += " (" + strings.TrimSpace(s.Tour.Name) + ")"
	}
	return name
}
