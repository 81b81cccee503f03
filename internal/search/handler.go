package search

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"conciertapp/internal/logging"
)

// Handler responds to search requests backed by the Store.
type Handler struct {
	store Store
}

// NewHandler builds a handler using the provided store implementation.
func NewHandler(store Store) http.Handler {
	return &Handler{store: store}
}

// Response models the payload returned by the search handler.
type Response struct {
	Sections []Section `json:"sections"`
}

// Section groups related search results.
type Section struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Item represents a single search result entry.
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
	Href        string `json:"href,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"success": false, "error": "method not allowed"})
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusOK, Response{Sections: []Section{}})
		return
	}

	limit := 10
	if rawLimit := strings.TrimSpace(r.URL.Query().Get("limit")); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}

	results, err := h.store.Search(r.Context(), query, limit)
	if err != nil {
		logging.WithContext(r.Context()).Error().Err(err).Str("query", query).Msg("search failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "search failed"})
		return
	}

	writeJSON(w, http.StatusOK, buildResponse(results))
}

func buildResponse(results Results) Response {
	sections := []Section{}

	if len(results.Concerts) > 0 {
		items := make([]Item, 0, len(results.Concerts))
		for _, concert := range results.Concerts {
			subtitle := concert.StartDate.Format("02-01-2006")
			if concert.Venue != "" {
				subtitle = subtitle + " • " + concert.Venue
			}
			item := Item{
				ID:        concert.ID,
				Title:     concert.Title,
				Subtitle:  subtitle,
				Thumbnail: concert.Poster,
			}
			if concert.Slug != "" {
				item.Href = "/concerts/" + concert.Slug
			}
			items = append(items, item)
		}
		sections = append(sections, Section{Name: "concerts", Items: items})
	}

	if len(results.Artists) > 0 {
		items := make([]Item, 0, len(results.Artists))
		for _, artist := range results.Artists {
			items = append(items, Item{
				ID:        artist.ID,
				Title:     artist.Name,
				Subtitle:  pluralize(artist.ConcertCount, "concierto", "conciertos"),
				Thumbnail: artist.ImageURL,
			})
		}
		sections = append(sections, Section{Name: "artists", Items: items})
	}

	if len(results.Venues) > 0 {
		items := make([]Item, 0, len(results.Venues))
		for _, venue := range results.Venues {
			items = append(items, Item{
				ID:          venue.ID,
				Title:       venue.Name,
				Subtitle:    venue.City,
				Description: venue.Address,
			})
		}
		sections = append(sections, Section{Name: "venues", Items: items})
	}

	return Response{Sections: sections}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pluralize(count int, singular, plural string) string {
	switch count {
	case 0:
		return ""
	case 1:
		return "1 " + singular
	default:
		return strconv.Itoa(count) + " " + plural
	}
}
