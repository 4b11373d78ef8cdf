package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/security/audit"
	"github.com/khaliloulah1/securelife/internal/security/middleware"
)

// kindService is the per-kind contract API. R is the kind's request body.
type kindService[R any] interface {
	Kind() domain.Kind
	Create(ctx context.Context, principal *domain.Principal, req R) (*domain.Contract, error)
	GetByID(ctx context.Context, principal *domain.Principal, id int64) (*domain.Contract, error)
	Update(ctx context.Context, principal *domain.Principal, id int64, req R) (*domain.Contract, error)
	Delete(ctx context.Context, principal *domain.Principal, id int64) error
	List(ctx context.Context, principal *domain.Principal, page domain.Page) (*domain.ContractPage, error)
}

// ContractHandler serves the endpoints of one contract kind
type ContractHandler[R any] struct {
	service kindService[R]
	segment string
	logger  *slog.Logger
	errs    errorWriter
}

// NewContractHandler serves svc under /api/v1/insurances/{segment}
func NewContractHandler[R any](svc kindService[R], segment string, auditLog *audit.Logger, logger *slog.Logger) *ContractHandler[R] {
	errs := newErrorWriter(logger, auditLog)
	return &ContractHandler[R]{
		service: svc,
		segment: strings.Trim(segment, "/"),
		logger:  errs.logger,
		errs:    errs,
	}
}

// Routes registers the kind's endpoints
func (h *ContractHandler[R]) Routes(mux *http.ServeMux) {
	base := "/api/v1/insurances/" + h.segment
	mux.HandleFunc("POST "+base, h.Create)
	mux.HandleFunc("GET "+base, h.List)
	mux.HandleFunc("GET "+base+"/{id}", h.Get)
	mux.HandleFunc("PUT "+base+"/{id}", h.Update)
	mux.HandleFunc("DELETE "+base+"/{id}", h.Delete)
}

// Create handles POST /api/v1/insurances/{kind}
func (h *ContractHandler[R]) Create(w http.ResponseWriter, r *http.Request) {
	var req R
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	c, err := h.service.Create(r.Context(), middleware.GetPrincipal(r.Context()), req)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/insurances/"+h.segment+"/"+idString(c.ID))
	writeJSON(w, h.logger, http.StatusCreated, c)
}

// List handles GET /api/v1/insurances/{kind}
func (h *ContractHandler[R]) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	result, err := h.service.List(r.Context(), middleware.GetPrincipal(r.Context()), page)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// Get handles GET /api/v1/insurances/{kind}/{id}
func (h *ContractHandler[R]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	c, err := h.service.GetByID(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, c)
}

// Update handles PUT /api/v1/insurances/{kind}/{id}
func (h *ContractHandler[R]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	var req R
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	c, err := h.service.Update(r.Context(), middleware.GetPrincipal(r.Context()), id, req)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, c)
}

// Delete handles DELETE /api/v1/insurances/{kind}/{id}
func (h *ContractHandler[R]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), middleware.GetPrincipal(r.Context()), id); err != nil {
		h.errs.write(w, r, err)
		return
	}
	h.logger.Debug("contract deleted over http",
		slog.String("kind", string(h.service.Kind())),
		slog.Int64("contract_id", id),
	)
	w.WriteHeader(http.StatusNoContent)
}
