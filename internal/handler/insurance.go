package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/security/audit"
	"github.com/khaliloulah1/securelife/internal/security/middleware"
	"github.com/khaliloulah1/securelife/internal/service"
)

// InsuranceHandler serves the endpoints that span every contract kind
type InsuranceHandler struct {
	search *service.SearchService
	errs   errorWriter
}

// NewInsuranceHandler creates the cross-kind handler
func NewInsuranceHandler(search *service.SearchService, auditLog *audit.Logger, logger *slog.Logger) *InsuranceHandler {
	return &InsuranceHandler{search: search, errs: newErrorWriter(logger, auditLog)}
}

// Routes registers the cross-kind endpoints. Literal segments take
// precedence over {id}.
func (h *InsuranceHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/insurances", h.List)
	mux.HandleFunc("GET /api/v1/insurances/search", h.Search)
	mux.HandleFunc("GET /api/v1/insurances/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/insurances/reference", h.Reference)
	mux.HandleFunc("GET /api/v1/insurances/{id}", h.Get)
	mux.HandleFunc("DELETE /api/v1/insurances/{id}", h.Delete)
	mux.HandleFunc("PATCH /api/v1/insurances/{id}/status", h.UpdateStatus)
}

// List handles GET /api/v1/insurances
func (h *InsuranceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	result, err := h.search.List(r.Context(), middleware.GetPrincipal(r.Context()), page)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, h.errs.logger, http.StatusOK, result)
}

// Search handles GET /api/v1/insurances/search
func (h *InsuranceHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	filter, err := h.parseFilter(r.URL.Query())
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	result, err := h.search.Search(r.Context(), middleware.GetPrincipal(r.Context()), filter, page)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, h.errs.logger, http.StatusOK, result)
}

// parseFilter reads fullName, email, type, status, premiumMin and premiumMax.
// Unknown kinds and statuses are rejected rather than ignored.
func (h *InsuranceHandler) parseFilter(q url.Values) (domain.Filter, error) {
	filter := domain.Filter{
		FullName: strings.TrimSpace(q.Get("fullName")),
		Email:    strings.TrimSpace(q.Get("email")),
	}
	fields := map[string]string{}

	if raw := strings.TrimSpace(q.Get("type")); raw != "" {
		kind, err := domain.ParseKind(raw)
		if err != nil {
			fields["type"] = err.Error()
		} else {
			filter.Kind = &kind
		}
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := h.search.ParseStatus(raw)
		if err != nil {
			fields["status"] = "unknown status " + strconv.Quote(raw)
		} else {
			filter.Status = &status
		}
	}
	for _, bound := range []struct {
		name string
		dst  **float64
	}{
		{"premiumMin", &filter.PremiumMin},
		{"premiumMax", &filter.PremiumMax},
	} {
		raw := strings.TrimSpace(q.Get(bound.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fields[bound.name] = "must be a number"
			continue
		}
		*bound.dst = &v
	}

	if len(fields) > 0 {
		return domain.Filter{}, &domain.ValidationError{Fields: fields}
	}
	return filter, nil
}

// Get handles GET /api/v1/insurances/{id}
func (h *InsuranceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	c, err := h.search.GetByID(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, h.errs.logger, http.StatusOK, c)
}

// Delete handles DELETE /api/v1/insurances/{id}
func (h *InsuranceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if err := h.search.Delete(r.Context(), middleware.GetPrincipal(r.Context()), id); err != nil {
		h.errs.write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus handles PATCH /api/v1/insurances/{id}/status
func (h *InsuranceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	var req service.StatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	c, err := h.search.UpdateStatus(r.Context(), middleware.GetPrincipal(r.Context()), id, req)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, h.errs.logger, http.StatusOK, c)
}

// Stats handles GET /api/v1/insurances/stats
func (h *InsuranceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.search.Stats(r.Context(), middleware.GetPrincipal(r.Context()))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, h.errs.logger, http.StatusOK, stats)
}

// Reference handles GET /api/v1/insurances/reference
func (h *InsuranceHandler) Reference(w http.ResponseWriter, r *http.Request) {
	ref, err := h.search.Reference(r.Context(), middleware.GetPrincipal(r.Context()))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, h.errs.logger, http.StatusOK, ref)
}
