package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/security/audit"
	"github.com/khaliloulah1/securelife/internal/security/auth"
	"github.com/khaliloulah1/securelife/internal/security/ratelimit"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := GetPrincipal(r.Context()); p != nil {
			w.Write([]byte(string(p.Role)))
			return
		}
		w.Write([]byte("anonymous"))
	})
}

func TestJWTMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("secret", "securelife", time.Minute)
	h := JWTMiddleware(tm, audit.NewLogger(quietLogger()), quietLogger())(principalEcho())

	access, err := tm.GenerateToken(domain.Principal{ID: 3, Email: "a@example.com", Role: domain.RoleAgent}, auth.TokenAccess)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	refresh, _ := tm.GenerateToken(domain.Principal{ID: 3, Role: domain.RoleAgent}, auth.TokenRefresh)

	cases := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"public without token", "/healthz", "", http.StatusOK, "anonymous"},
		{"login without token", "/api/v1/auth/login", "", http.StatusOK, "anonymous"},
		{"register with token", "/api/v1/auth/register", "Bearer " + access, http.StatusOK, "AGENT"},
		{"protected without token", "/api/v1/insurances", "", http.StatusUnauthorized, ""},
		{"password change needs token", "/api/v1/auth/password", "", http.StatusUnauthorized, ""},
		{"malformed header", "/api/v1/insurances", "Token abc", http.StatusUnauthorized, ""},
		{"refresh token rejected", "/api/v1/insurances", "Bearer " + refresh, http.StatusUnauthorized, ""},
		{"valid token", "/api/v1/insurances", "bearer " + access, http.StatusOK, "AGENT"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.status, rec.Code)
		}
		if tc.body != "" && rec.Body.String() != tc.body {
			t.Errorf("%s: expected body %q, got %q", tc.name, tc.body, rec.Body.String())
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.NewLimiter(1, time.Minute)
	defer limiter.Stop()
	h := RateLimitMiddleware(limiter, quietLogger())(principalEcho())

	do := func(p *domain.Principal) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/insurances", nil)
		if p != nil {
			req = req.WithContext(WithPrincipal(req.Context(), p))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	alice := &domain.Principal{ID: 1, Role: domain.RoleHolder}
	bob := &domain.Principal{ID: 2, Role: domain.RoleHolder}
	if do(alice) != http.StatusOK || do(alice) != http.StatusTooManyRequests {
		t.Fatalf("expected second request for same principal to be limited")
	}
	if do(bob) != http.StatusOK {
		t.Fatalf("expected a different principal to pass")
	}

	// Health checks are never limited
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected health check to pass, got %d", rec.Code)
		}
	}
}

func TestLoginIsStrictlyLimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(1000, time.Minute)
	defer limiter.Stop()
	h := RateLimitMiddleware(limiter, quietLogger())(principalEcho())

	limited := false
	for i := 0; i <= loginAttemptsPerMinute; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{}")))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatalf("expected login attempts to be limited")
	}
}

func TestRequestIDAndCORS(t *testing.T) {
	h := RequestID(quietLogger())(CORS([]string{"http://localhost:3000"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(audit.RequestID(r.Context())))
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/insurances", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	id := rec.Header().Get("X-Request-ID")
	if id == "" || rec.Body.String() != id {
		t.Fatalf("expected request id in header and context, got %q and %q", id, rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("expected allowed origin to be echoed")
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/insurances", nil)
	req.Header.Set("X-Request-ID", "given")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("X-Request-ID") != "given" {
		t.Fatalf("expected preflight 204 keeping request id, got %d %q", rec.Code, rec.Header().Get("X-Request-ID"))
	}
}

func TestValidateJSONContentType(t *testing.T) {
	h := ValidateJSONContentType(quietLogger())(principalEcho())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/insurances/auto", strings.NewReader("x=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
}

func TestSanitizeInputs(t *testing.T) {
	h := SanitizeInputs(quietLogger())(principalEcho())
	for target, want := range map[string]int{
		"/api/v1/insurances/search?fullName=O%27Brien":    http.StatusOK,
		"/api/v1/insurances/search?fullName=%3Cscript%3E": http.StatusBadRequest,
		"/api/v1/insurances/../users":                     http.StatusBadRequest,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if i := strings.Index(target, "?"); i >= 0 {
			req.URL.Path, req.URL.RawQuery = target[:i], target[i+1:]
		} else {
			req.URL.Path = target
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("%s: expected %d, got %d", target, want, rec.Code)
		}
	}
}

func TestContractID(t *testing.T) {
	if got := contractID("/api/v1/insurances/42/status"); got != "42" {
		t.Fatalf("expected 42, got %q", got)
	}
	if got := contractID("/api/v1/insurances/auto"); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}
