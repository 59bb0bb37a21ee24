package records

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"leadadmin/cmd/identity/ids"
	"leadadmin/cmd/internal/auth/guard"
	"leadadmin/cmd/internal/httpx"
)

// Handler serves the dashboard endpoints. All routes sit behind the route
// guard, so a payload is expected on every request context.
type Handler struct {
	log  *slog.Logger
	repo Repository
}

// NewHandler builds a Handler. A nil repo answers 503 on every data route.
func NewHandler(log *slog.Logger, repo Repository) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, repo: repo}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboard", h.handleSummary)
	mux.HandleFunc("GET /dashboard/api/companies", h.handleListCompanies)
	mux.HandleFunc("GET /dashboard/api/companies/{id}", h.handleGetCompany)
	mux.HandleFunc("GET /dashboard/api/leads", h.handleListLeads)
}

type identityView struct {
	SubjectID   string    `json:"subjectId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type summaryResponse struct {
	Identity identityView `json:"identity"`
	Totals   *Totals      `json:"totals,omitempty"`
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, ok := guard.PayloadFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "no_session", "not signed in")
		return
	}
	resp := summaryResponse{Identity: identityView{
		SubjectID:   p.SubjectID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		ExpiresAt:   p.ExpiresAt(),
	}}
	if h.repo != nil {
		t, err := h.repo.Totals(r.Context())
		if err != nil {
			h.log.Error("records.totals.fail", "err", err)
		} else {
			resp.Totals = &t
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	q, err := ParseQuery(r.URL.Query(), Companies)
	if err != nil {
		h.writeRepoError(w, err)
		return
	}
	page, err := h.repo.ListCompanies(r.Context(), q)
	if err != nil {
		h.writeRepoError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	id := r.PathValue("id")
	if !ids.Valid(id) {
		httpx.Error(w, http.StatusBadRequest, "invalid_id", "company id must be a ULID")
		return
	}
	c, err := h.repo.GetCompany(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleListLeads(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	q, err := ParseQuery(r.URL.Query(), Leads)
	if err != nil {
		h.writeRepoError(w, err)
		return
	}
	page, err := h.repo.ListLeads(r.Context(), q)
	if err != nil {
		h.writeRepoError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) available(w http.ResponseWriter) bool {
	if h.repo == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "store_unavailable", "database not configured")
		return false
	}
	return true
}

func (h *Handler) writeRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		var oe OpError
		msg := "invalid query"
		if errors.As(err, &oe) && oe.Msg != "" {
			msg = oe.Msg
		}
		httpx.Error(w, http.StatusBadRequest, "invalid_query", msg)
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "not_found", "not found")
	default:
		h.log.Error("records.query.fail", "err", err)
		httpx.Error(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
	}
}
