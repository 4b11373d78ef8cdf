package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/security/audit"
	"github.com/khaliloulah1/securelife/internal/security/middleware"
	"github.com/khaliloulah1/securelife/internal/service"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeJSON encodes before writing the header so an unencodable value is a 500, not an empty 200
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to encode response",
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		status = http.StatusInternalServerError
		data = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		logger.Debug("failed to write response", slog.String("error", err.Error()))
	}
}

// errorWriter maps core errors onto status codes
type errorWriter struct {
	logger *slog.Logger
	audit  *audit.Logger
}

func newErrorWriter(logger *slog.Logger, auditLog *audit.Logger) errorWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return errorWriter{logger: logger, audit: auditLog}
}

func (e errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr    *domain.ValidationError
		maxErr  *http.MaxBytesError
		dupErr  *domain.DuplicateResourceError
		nfErr   *domain.NotFoundError
		denyErr *domain.AccessDeniedError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, e.logger, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.As(err, &maxErr):
		writeJSON(w, e.logger, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
	case errors.As(err, &dupErr):
		writeJSON(w, e.logger, http.StatusConflict, ErrorResponse{Error: dupErr.Message})
	case errors.As(err, &nfErr):
		writeJSON(w, e.logger, http.StatusNotFound, ErrorResponse{Error: nfErr.Error()})
	case errors.As(err, &denyErr):
		e.audit.LogDenied(r.Context(), middleware.GetPrincipal(r.Context()), denyErr.Reason)
		writeJSON(w, e.logger, http.StatusForbidden, ErrorResponse{Error: denyErr.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, e.logger, http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	default:
		e.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", audit.RequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeJSON(w, e.logger, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// decodeJSON reads a single JSON object, rejecting unknown fields
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "is required")
		}
		return domain.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if dec.More() {
		return domain.NewValidationError("body", "must contain a single JSON object")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", fmt.Sprintf("invalid contract id %q", raw))
	}
	return id, nil
}

// parsePage reads page (0-based) and size. Normalization clamps the rest.
func parsePage(r *http.Request) (domain.Page, error) {
	q := r.URL.Query()
	var page domain.Page
	fields := map[string]string{}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields["page"] = "must be a non-negative integer"
		}
		page.Number = n
	}
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fields["size"] = "must be a positive integer"
		}
		page.Size = n
	}
	if len(fields) > 0 {
		return domain.Page{}, &domain.ValidationError{Fields: fields}
	}
	return page.Normalize(), nil
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
