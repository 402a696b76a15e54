package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskboard/taskboard/internal/auth"
	"github.com/taskboard/taskboard/internal/metrics"
)

// UnauthorizedMessage is the only body text any authentication failure
// produces, whatever the cause.
const UnauthorizedMessage = "unauthorized"

// Token transports.
const (
	TransportHeader = "header"
	TransportCookie = "cookie"
	TransportBoth   = "both"
)

// reasonMissingToken labels requests that carried no credential.
const reasonMissingToken = "missing_token"

// TokenVerifier checks a session token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Verifier TokenVerifier
	Metrics  metrics.Recorder
	// Transport selects where tokens are read from: "header", "cookie" or
	// "both" (header first). Empty means both.
	Transport  string
	CookieName string
	// Public lists exact paths served without a token.
	Public []string
}

// Auth returns a middleware that authenticates requests with a session
// token. On success the verified identity is attached to the request
// context; on failure the request ends with a generic 401 and nothing
// downstream runs. It never consults the user store.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportBoth
	}

	public := make(map[string]bool, len(cfg.Public))
	for _, p := range cfg.Public {
		public[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r, cfg.Transport, cfg.CookieName)
			if token == "" {
				reject(w, r, cfg, reasonMissingToken)
				return
			}

			claims, err := cfg.Verifier.Verify(token)
			if err != nil {
				reject(w, r, cfg, auth.Reason(err))
				return
			}

			if slot := identitySlotFrom(r.Context()); slot != nil {
				slot.userID = claims.UserID
			}

			ctx := auth.ContextWithAuth(r.Context(), auth.ClaimsToAuthContext(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// reject logs the specific cause and writes the generic 401.
func reject(w http.ResponseWriter, r *http.Request, cfg AuthConfig, reason string) {
	cfg.Metrics.IncAuthFailure(reason)
	cfg.Logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	writeAuthError(w)
}

// extractToken reads the raw token from the configured transport.
// With both transports enabled the Authorization header wins.
func extractToken(r *http.Request, transport, cookieName string) string {
	if transport == TransportHeader || transport == TransportBoth {
		if token := bearerToken(r.Header.Get("Authorization")); token != "" {
			return token
		}
	}

	if (transport == TransportCookie || transport == TransportBoth) && cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return strings.TrimSpace(c.Value)
		}
	}

	return ""
}

// bearerToken parses "Bearer <token>"; the scheme is case-insensitive.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="taskboard"`)
	writeError(w, http.StatusUnauthorized, UnauthorizedMessage)
}
