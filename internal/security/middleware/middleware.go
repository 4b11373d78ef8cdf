package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/security/audit"
	"github.com/khaliloulah1/securelife/internal/security/auth"
	"github.com/khaliloulah1/securelife/internal/security/ratelimit"
)

type principalKey struct{}

// Login attempts allowed per client address and minute
const loginAttemptsPerMinute = 10

// WithPrincipal stores the authenticated principal in ctx
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal returns the authenticated principal, or nil
func GetPrincipal(ctx context.Context) *domain.Principal {
	if p, ok := ctx.Value(principalKey{}).(*domain.Principal); ok {
		return p
	}
	return nil
}

func isPublic(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return strings.HasPrefix(path, "/api/v1/auth/") && path != "/api/v1/auth/password"
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

// JWTMiddleware resolves the bearer token into a principal. Public paths
// pass without a token; a valid token on them still attaches the principal.
func JWTMiddleware(tm *auth.TokenManager, auditLog *audit.Logger, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			public := isPublic(r.URL.Path) || r.Method == http.MethodOptions
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if public {
					next.ServeHTTP(w, r)
					return
				}
				auditLog.LogDenied(r.Context(), nil, "missing auth")
				writeJSONError(w, http.StatusUnauthorized, "missing auth")
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid auth")
				return
			}

			claims, err := tm.ValidateToken(tokenString, auth.TokenAccess)
			if err != nil {
				log.Debug("token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			principal, err := claims.Principal()
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RateLimitMiddleware limits each principal, or each client address when
// anonymous. Login attempts get a tighter per-address budget.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/healthz", "/readyz", "/metrics":
				next.ServeHTTP(w, r)
				return
			}

			addr := clientAddr(r)
			if r.Method == http.MethodPost && r.URL.Path == "/api/v1/auth/login" &&
				!limiter.AllowStrict(addr, loginAttemptsPerMinute, time.Minute) {
				log.Warn("login rate limit exceeded", slog.String("client", addr))
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			key := "ip:" + addr
			if p := GetPrincipal(r.Context()); p != nil {
				key = "user:" + strconv.FormatInt(p.ID, 10)
			}
			if !limiter.Allow(key) {
				w.Header().Set("Retry-After", "60")
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records every mutating contract request
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/v1/insurances") {
				action := ""
				switch r.Method {
				case http.MethodPost:
					action = "create"
				case http.MethodPut:
					action = "update"
				case http.MethodPatch:
					action = "update_status"
				case http.MethodDelete:
					action = "delete"
				}
				if action != "" {
					auditLog.LogContractAction(r.Context(), GetPrincipal(r.Context()), action, contractID(r.URL.Path), "initiated")
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestID attaches a request id to the context and response headers and
// logs each completed request
func RequestID(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" || len(reqID) > 64 {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", reqID)

			ctx := audit.WithRequestID(r.Context(), reqID)
			start := time.Now()

			next.ServeHTTP(w, r.WithContext(ctx))

			log.Info("request completed",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("duration_ms", time.Since(start)),
			)
		})
	}
}

// CORS honours the configured origins and answers preflight requests
func CORS(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowed, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else if len(allowed) > 0 {
				w.Header().Set("Access-Control-Allow-Origin", allowed[0])
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// contractID returns the first numeric path segment
func contractID(path string) string {
	for _, seg := range strings.Split(path, "/") {
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			return seg
		}
	}
	return ""
}
