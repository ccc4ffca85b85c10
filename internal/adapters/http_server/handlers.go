package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

type Handlers struct{ S *app.Session }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type legacyResponse struct {
	Status string           `json:"status"`
	Data   []map[string]any `json:"data"`
}

type legacyError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type reviewsResponse struct {
	Count   int              `json:"count"`
	Reviews []map[string]any `json:"reviews"`
	Summary domain.Summary   `json:"summary"`
	Source  string           `json:"source"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/api/reviews/hostaway", h.legacyReviews)

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/reviews", h.listReviews)
		r.Get("/reviews/summary", h.summary)
		r.Get("/reviews/facets", h.facets)
		r.Put("/reviews/{id}/display", h.setDisplay)
		r.Post("/snapshot/save", h.save)
		r.Post("/snapshot/reload", h.reload)
		r.Get("/session", h.status)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "response could not be encoded")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// loadStatus maps session load failures onto HTTP statuses.
func loadStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNoSource):
		return http.StatusServiceUnavailable, "No Review Source"
	case errors.Is(err, domain.ErrPersist):
		return http.StatusInternalServerError, "Snapshot Not Saved"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

func (h *Handlers) legacyReviews(w http.ResponseWriter, r *http.Request) {
	all, err := h.S.Reviews(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("legacy reviews: load failed")
		status, _ := loadStatus(err)
		writeJSON(w, status, legacyError{Status: "error", Message: err.Error()})
		return
	}
	writeCached(w, r, legacyResponse{Status: "success", Data: flattenAll(all)})
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	rows, sum, err := h.S.Query(r.Context(), c)
	if err != nil {
		status, title := loadStatus(err)
		writeProblem(w, status, title, err.Error())
		return
	}
	writeCached(w, r, reviewsResponse{
		Count:   len(rows),
		Reviews: flattenAll(rows),
		Summary: sum,
		Source:  h.S.Status().Source,
	})
}

func (h *Handlers) summary(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	_, sum, err := h.S.Query(r.Context(), c)
	if err != nil {
		status, title := loadStatus(err)
		writeProblem(w, status, title, err.Error())
		return
	}
	writeCached(w, r, sum)
}

func (h *Handlers) facets(w http.ResponseWriter, r *http.Request) {
	f, err := h.S.Facets(r.Context())
	if err != nil {
		status, title := loadStatus(err)
		writeProblem(w, status, title, err.Error())
		return
	}
	writeCached(w, r, f)
}

func (h *Handlers) setDisplay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Display *bool `json:"display"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Display == nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", `expected {"display": true|false}`)
		return
	}
	found, err := h.S.SetDisplay(r.Context(), id, *body.Display)
	if err != nil {
		status, title := loadStatus(err)
		writeProblem(w, status, title, err.Error())
		return
	}
	if !found {
		writeProblem(w, http.StatusNotFound, "Not Found", "review "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": idValue(id), "displayOnWebsite": *body.Display})
}

func (h *Handlers) save(w http.ResponseWriter, r *http.Request) {
	res, err := h.S.Save(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("snapshot save failed")
		status, title := loadStatus(err)
		writeProblem(w, status, title, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) reload(w http.ResponseWriter, r *http.Request) {
	if _, err := h.S.Reload(r.Context()); err != nil {
		status, title := loadStatus(err)
		writeProblem(w, status, title, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.S.Status())
}

func (h *Handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.S.Status())
}

/********** query parsing **********/

// criteriaFromQuery accepts repeated or comma-separated listing/channel values.
func criteriaFromQuery(r *http.Request) (domain.FilterCriteria, error) {
	q := r.URL.Query()
	c := domain.FilterCriteria{
		Listings: splitMulti(q["listing"]),
		Channels: splitMulti(q["channel"]),
		Category: strings.TrimSpace(q.Get("category")),
		Query:    q.Get("q"),
	}
	var err error
	if c.MinRating, err = floatParam(q.Get("min_rating"), "min_rating"); err != nil {
		return c, err
	}
	if c.MaxRating, err = floatParam(q.Get("max_rating"), "max_rating"); err != nil {
		return c, err
	}
	if c.From, err = dateParam(q.Get("from"), "from", false); err != nil {
		return c, err
	}
	if c.To, err = dateParam(q.Get("to"), "to", true); err != nil {
		return c, err
	}
	return c, nil
}

func splitMulti(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func floatParam(s, name string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New(name + " must be a number")
	}
	return &f, nil
}

// A bare YYYY-MM-DD upper bound covers the whole day.
func dateParam(s, name string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil, errors.New(name + " is not a recognizable date")
	}
	return &t, nil
}
