package httpapi

import (
	"encoding/xml"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"conciertapp/internal/logging"
	"conciertapp/internal/models"
)

// DefaultSiteURL prefixes concert URLs in the sitemap.
const DefaultSiteURL = "https://conciert.app"

var errBadQuery = errors.New("invalid query parameter")

type popularTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handlePopularTags(w http.ResponseWriter, r *http.Request) {
	featured, err := s.svc.Tags.Popular(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]popularTag, 0, len(featured))
	for _, t := range featured {
		out = append(out, popularTag{ID: t.ID, Name: t.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "popularTags": out})
}

func (s *Server) handleListConcerts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseConcertFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	page, err := s.svc.Concerts.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetConcert(w http.ResponseWriter, r *http.Request) {
	detail, err := s.svc.Concerts.GetBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// parseConcertFilter reads tags, search, startDate, endDate, page, limit
// and sort. tags may repeat or be comma separated.
func parseConcertFilter(r *http.Request) (models.ConcertFilter, error) {
	q := r.URL.Query()
	filter := models.ConcertFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Sort:   q.Get("sort"),
	}

	for _, raw := range q["tags"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Tags = append(filter.Tags, t)
			}
		}
	}

	var err error
	if filter.From, err = parseDate(q.Get("startDate")); err != nil {
		return filter, err
	}
	if filter.To, err = parseDate(q.Get("endDate")); err != nil {
		return filter, err
	}
	if filter.Page, err = parsePositive(q.Get("page")); err != nil {
		return filter, err
	}
	if filter.Limit, err = parsePositive(q.Get("limit")); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, errBadQuery
}

func parsePositive(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errBadQuery
	}
	return n, nil
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Concerts.Sitemap(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	base := strings.TrimRight(s.opts.SiteURL, "/")
	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, e := range entries {
		u := sitemapURL{Loc: base + "/concerts/" + e.Slug}
		if !e.LastModified.IsZero() {
			u.LastMod = e.LastModified.UTC().Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	if err := xml.NewEncoder(w).Encode(set); err != nil {
		logging.WithContext(r.Context()).Error().Err(err).Msg("encode sitemap")
	}
}

type revalidateRequest struct {
	Path string `json:"path"`
	Tag  string `json:"tag"`
}

type revalidateResponse struct {
	Revalidated bool   `json:"revalidated"`
	Now         int64  `json:"now"`
	Message     string `json:"message"`
	Dropped     int    `json:"dropped"`
}

func (s *Server) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	var req revalidateRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	req.Path = strings.TrimSpace(req.Path)
	req.Tag = strings.TrimSpace(req.Tag)
	if req.Path == "" && req.Tag == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing path or tag parameter"})
		return
	}

	resp := revalidateResponse{Revalidated: true, Now: time.Now().UnixMilli()}
	if s.cache != nil {
		if req.Path != "" {
			resp.Dropped += s.cache.InvalidatePath(req.Path)
		}
		if req.Tag != "" {
			resp.Dropped += s.cache.InvalidateTag(req.Tag)
		}
	}

	switch {
	case req.Path != "" && req.Tag != "":
		resp.Message = "Path " + req.Path + " and tag " + req.Tag + " revalidated"
	case req.Path != "":
		resp.Message = "Path " + req.Path + " revalidated"
	default:
		resp.Message = "Tag " + req.Tag + " revalidated"
	}

	writeJSON(w, http.StatusOK, resp)
}
