package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

type Handlers struct {
	Q        *app.QueryService
	Sync     *app.SyncService
	Approval *app.ApprovalService
	AdminKey string
}

type problem struct {
	Type   string         `json:"type"`
	Title  string         `json:"title"`
	Status int            `json:"status"`
	Detail string         `json:"detail,omitempty"`
	Issues []domain.Issue `json:"issues,omitempty"`
}

type envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
	Meta   *meta  `json:"meta,omitempty"`
}

type meta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func (s *Server) MountHandlers(h *Handlers) {
	health := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
	s.mux.Get("/healthz", health)

	s.mux.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(Timeout(s.timeout))
			r.Get("/health", health)

			r.Get("/reviews", h.listReviews)
			r.Get("/reviews/hostaway", h.listHostaway)
			r.Get("/reviews/analytics", h.analytics)
			r.Get("/properties/{propertyId}/reviews", h.propertyReviews)
		})

		r.Group(func(r chi.Router) {
			r.Use(Timeout(s.adminTimeout))
			r.Use(RequireAdminKey(h.AdminKey))
			r.Post("/reviews/sync", h.sync)
			r.Post("/reviews/{id}/approve", h.approve)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string, issues []domain.Issue) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	p := problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Issues: issues}
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto HTTP problems. Internal details are
// logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeProblem(w, http.StatusBadRequest, "Validation failed", "", ve.Issues)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "review not found", nil)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "", nil)
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

// writeCacheable writes v with a weak ETag, answering 304 when the client
// already holds that version.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "", nil)
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
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Error().Err(err).Msg("failed to write body")
	}
}

func (h *Handlers) page(w http.ResponseWriter, r *http.Request, f domain.Filters, wrap func([]domain.Review) any) {
	res, err := h.Q.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, envelope{
		Status: "success",
		Data:   wrap(res.Reviews),
		Meta:   &meta{Page: f.Page, Limit: f.Limit, Total: res.Total, Pages: res.Pages},
	})
}

func asList(rs []domain.Review) any { return rs }

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.page(w, r, f, asList)
}

// listHostaway is the source-scoped listing; data is wrapped as {reviews}.
func (h *Handlers) listHostaway(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.page(w, r, f, func(rs []domain.Review) any {
		return map[string]any{"reviews": rs}
	})
}

// propertyReviews serves the public property page: only approved reviews
// flagged for the website, whatever the query says. Private notes are
// stripped.
func (h *Handlers) propertyReviews(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	yes := true
	f.PropertyID = chi.URLParam(r, "propertyId")
	f.Approved, f.DisplayOnWebsite = &yes, &yes
	h.page(w, r, f, publicList)
}

type publicReview struct {
	domain.Review
	PrivateNotes *string `json:"privateNotes,omitempty"` // shadows Review.PrivateNotes; always nil
}

func publicList(rs []domain.Review) any {
	out := make([]publicReview, 0, len(rs))
	for _, rv := range rs {
		out = append(out, publicReview{Review: rv})
	}
	return out
}

func (h *Handlers) analytics(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := h.Q.Analytics(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, envelope{Status: "success", Data: rep})
}

func (h *Handlers) sync(w http.ResponseWriter, r *http.Request) {
	var (
		n   int
		err error
	)
	if listing := strings.TrimSpace(r.URL.Query().Get("listingId")); listing != "" {
		n, err = h.Sync.SyncListing(r.Context(), listing)
	} else {
		n, err = h.Sync.Sync(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: map[string]int{"synced": n}})
}

func (h *Handlers) approve(w http.ResponseWriter, r *http.Request) {
	var body approvalBody
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, r, &domain.ValidationError{Issues: []domain.Issue{{Field: "body", Message: "must be a JSON object {approved, displayOnWebsite?}"}}})
		return
	}
	if err := validateApproval(body); err != nil {
		writeError(w, r, err)
		return
	}

	rv, err := h.Approval.SetApproval(r.Context(), chi.URLParam(r, "id"), domain.Approval{
		Approved:         *body.Approved,
		DisplayOnWebsite: body.DisplayOnWebsite,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: rv})
}
