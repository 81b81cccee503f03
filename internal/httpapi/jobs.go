package httpapi

import (
	"context"
	"net/http"

	"conciertapp/internal/app/batch"
)

type jobResponse[R any] struct {
	Success   bool `json:"success"`
	Processed int  `json:"processed"`
	Updated   *int `json:"updated,omitempty"`
	Results   []R  `json:"results"`
}

type jobOptions struct {
	reportUpdated bool
	invalidate    []string
}

// serveJob runs one batch job for the request and writes the aggregate
// response. Cache tags are dropped when at least one item succeeded.
func serveJob[R batch.Outcome](s *Server, w http.ResponseWriter, r *http.Request, run func(context.Context) ([]R, error), opts jobOptions) {
	results, err := run(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if results == nil {
		results = []R{}
	}

	resp := jobResponse[R]{Success: true, Processed: len(results), Results: results}
	succeeded := batch.Count(results, batch.StatusSuccess)
	if opts.reportUpdated {
		resp.Updated = &succeeded
	}
	if succeeded > 0 {
		s.invalidate(r.Context(), opts.invalidate...)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePopulateTags(w http.ResponseWriter, r *http.Request) {
	serveJob(s, w, r, s.svc.Tags.Populate, jobOptions{invalidate: []string{TagConcerts, TagTags}})
}

func (s *Server) handlePopulateImages(w http.ResponseWriter, r *http.Request) {
	serveJob(s, w, r, s.svc.Artists.PopulateImages, jobOptions{invalidate: []string{TagConcerts}})
}

func (s *Server) handlePopulateSetlists(w http.ResponseWriter, r *http.Request) {
	serveJob(s, w, r, s.svc.Setlists.Populate, jobOptions{invalidate: []string{TagConcerts}})
}

func (s *Server) handlePopulateSEO(w http.ResponseWriter, r *http.Request) {
	serveJob(s, w, r, s.svc.SEO.PopulateSEO, jobOptions{invalidate: []string{TagConcerts}})
}

func (s *Server) handlePopulateInfo(w http.ResponseWriter, r *http.Request) {
	serveJob(s, w, r, s.svc.SEO.PopulateInfo, jobOptions{invalidate: []string{TagConcerts}})
}

func (s *Server) handlePopulateSlugs(w http.ResponseWriter, r *http.Request) {
	serveJob(s, w, r, s.svc.Slugs.Populate, jobOptions{reportUpdated: true, invalidate: []string{TagConcerts}})
}

func (s *Server) handleUpdateConcertDates(w http.ResponseWriter, r *http.Request) {
	serveJob(s, w, r, s.svc.Dates.Normalize, jobOptions{reportUpdated: true, invalidate: []string{TagConcerts}})
}

type setlistRequest struct {
	SetlistID string `json:"setlistId" validate:"required"`
}

type concertRequest struct {
	ConcertID string `json:"concertId" validate:"required"`
}

func (s *Server) handleSaveSetlist(w http.ResponseWriter, r *http.Request) {
	var req setlistRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.svc.Setlists.ImportByID(r.Context(), req.SetlistID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidate(r.Context(), TagConcerts)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "setlist": saved})
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req setlistRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.svc.Playlists.CreateFromSetlist(r.Context(), req.SetlistID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidate(r.Context(), TagConcerts)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"playlistId":  created.PlaylistID,
		"playlistUrl": created.PlaylistURL,
		"trackCount":  created.TrackCount,
		"unresolved":  created.Unresolved,
	})
}

func (s *Server) handlePopulateSEOSingle(w http.ResponseWriter, r *http.Request) {
	var req concertRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	generated, err := s.svc.SEO.GenerateSEO(r.Context(), req.ConcertID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidate(r.Context(), TagConcerts)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "seo": generated})
}

func (s *Server) handlePopulateInfoSingle(w http.ResponseWriter, r *http.Request) {
	var req concertRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	info, err := s.svc.SEO.GenerateInfo(r.Context(), req.ConcertID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidate(r.Context(), TagConcerts)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "additionalInfo": info})
}
