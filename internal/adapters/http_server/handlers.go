// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hostaway_reviews/internal/app"
	"hostaway_reviews/internal/domain"
)

type Handlers struct {
	Q      *app.QueryService
	Ingest *app.IngestionService
	Mod    *app.ModerationService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	health := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) }
	s.mux.Get("/healthz", health)
	s.mux.Get("/health", health)

	s.mux.Route("/api/reviews", func(r chi.Router) {
		r.Get("/", h.listReviews)
		r.Get("/live-sync", h.liveSync)
		r.Get("/hostaway", h.liveSync)
		r.Get("/categories-aggregate", h.categoriesAggregate)
		r.Get("/public", h.publicReviews)
		r.Get("/issues", h.issues)
		r.Get("/facets", h.facets)
		r.Patch("/{id}/approve", h.approve)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "storage failure")
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
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON writes a 200 with a weak ETag, or 304 when the client has it.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "encode failure")
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
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

/********** query parsing **********/

func parseFilter(q url.Values) (domain.Filter, error) {
	f := domain.Filter{
		Listing: strings.TrimSpace(q.Get("listing")),
		Channel: strings.TrimSpace(q.Get("channel")),
	}
	if s := strings.TrimSpace(q.Get("ratingMin")); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return f, fmt.Errorf("%w: ratingMin must be a number", domain.ErrValidation)
		}
		f.RatingMin = &v
	}
	if s := q.Get("from"); s != "" {
		t, ok := app.ParseTimestamp(s)
		if !ok {
			return f, fmt.Errorf("%w: from must be a date or timestamp", domain.ErrValidation)
		}
		f.From = &t
	}
	if s := q.Get("to"); s != "" {
		t, ok := app.ParseTimestamp(s)
		if !ok {
			return f, fmt.Errorf("%w: to must be a date or timestamp", domain.ErrValidation)
		}
		f.To = &t
	}
	if s := strings.TrimSpace(q.Get("approved")); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return f, fmt.Errorf("%w: approved must be true or false", domain.ErrValidation)
		}
		f.Approved = &b
	}
	return f, nil
}

// parsePage is lenient: non-numeric values fall back to defaults, the engine clamps.
func parsePage(q url.Values) domain.PageQuery {
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	return domain.PageQuery{Page: page, PageSize: size}
}

/********** handlers **********/

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := parseFilter(q)
	if err != nil {
		writeError(w, err)
		return
	}

	// seed an empty collection unless the caller opted out
	if h.Q.Empty() && !strings.EqualFold(q.Get("autoseed"), "false") {
		if _, err := h.Ingest.Ingest(r.Context()); err != nil {
			log.Warn().Err(err).Msg("auto-seed failed")
		}
	}

	out := h.Q.ListReviews(r.Context(), domain.ReviewsQuery{
		Filter:    f,
		Sort:      app.ParseSort(q.Get("sort")),
		PageQuery: parsePage(q),
	})
	writeJSON(w, r, struct {
		Status string `json:"status"`
		domain.ReviewsPage
	}{"ok", out})
}

func (h *Handlers) liveSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.Ingest.Ingest(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, struct {
		Status     string          `json:"status"`
		Normalized bool            `json:"normalized"`
		Source     string          `json:"source"`
		Added      int             `json:"added"`
		Total      int             `json:"total"`
		Items      []domain.Review `json:"items"`
	}{"ok", true, res.Source, res.Added, len(res.Normalized), res.Normalized})
}

func (h *Handlers) categoriesAggregate(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	items := h.Q.CategoryAggregates(r.Context(), f)
	writeJSON(w, r, struct {
		Status        string                     `json:"status"`
		TotalListings int                        `json:"totalListings"`
		Items         []domain.ListingCategories `json:"items"`
	}{"ok", len(items), items})
}

func (h *Handlers) publicReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out := h.Q.PublicReviews(r.Context(), strings.TrimSpace(q.Get("listing")), parsePage(q))
	writeJSON(w, r, struct {
		Status string `json:"status"`
		domain.PublicPage
	}{"ok", out})
}

func (h *Handlers) issues(w http.ResponseWriter, r *http.Request) {
	items := h.Q.Keywords(r.Context())
	writeJSON(w, r, struct {
		Status string                `json:"status"`
		Total  int                   `json:"total"`
		Items  []domain.KeywordCount `json:"items"`
	}{"ok", len(items), items})
}

func (h *Handlers) facets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, struct {
		Status string `json:"status"`
		domain.Facets
	}{"ok", h.Q.Facets(r.Context())})
}

func (h *Handlers) approve(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Approved *bool `json:"approved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "`approved` boolean required")
		return
	}
	if body.Approved == nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "`approved` boolean required")
		return
	}

	rv, err := h.Mod.SetApproved(r.Context(), chi.URLParam(r, "id"), *body.Approved)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "review not found")
			return
		}
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(struct {
		Status string        `json:"status"`
		Item   domain.Review `json:"item"`
	}{"ok", rv}); err != nil {
		log.Error().Err(err).Msg("failed to write approve body")
	}
}
