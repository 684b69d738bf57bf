package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
)

// TestUserHeader names the caller directly when AuthBypass is on. End-to-end
// suites use it; production config forces the bypass off.
const TestUserHeader = "X-Test-User-Id"

type contextKey string

const (
	userIDKey      contextKey = "user_id"
	userHolderKey  contextKey = "user_holder"
	authFailureKey contextKey = "auth_failure"
)

// userHolder lets middleware above Auth see who the request belonged to.
type userHolder struct {
	userID string
}

func withUserHolder(ctx context.Context, h *userHolder) context.Context {
	return context.WithValue(ctx, userHolderKey, h)
}

func authenticated(r *http.Request, userID string) *http.Request {
	if h, ok := r.Context().Value(userHolderKey).(*userHolder); ok {
		h.userID = userID
	}
	return r.WithContext(WithUserID(r.Context(), userID))
}

type AuthConfig struct {
	Secret string
	Bypass bool
}

// WithUserID returns ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the id stored by Auth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// Identify resolves the caller from an HS256 bearer token (or ?token= for
// WebSocket clients) and stores the token's sub claim as the user id. It
// never rejects; RequireUser does. Running it ahead of RateLimit lets
// anonymous and badly authenticated callers be limited per IP.
func Identify(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Bypass {
				if id := strings.TrimSpace(r.Header.Get(TestUserHeader)); id != "" {
					next.ServeHTTP(w, authenticated(r, id))
					return
				}
			}

			token := extractBearerToken(r.Header.Get("Authorization"))
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := ParseToken(token, cfg.Secret)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("rejected bearer token")
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authFailureKey, "Invalid or expired token")))
				return
			}
			next.ServeHTTP(w, authenticated(r, userID))
		})
	}
}

// RequireUser answers 401 unless Identify found a user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			message, _ := r.Context().Value(authFailureKey).(string)
			if message == "" {
				message = "Authentication required"
			}
			writeUnauthorized(w, message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Auth is Identify followed by RequireUser.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	identify := Identify(cfg)
	return func(next http.Handler) http.Handler {
		return identify(RequireUser(next))
	}
}

var errMissingSubject = errors.New("token has no subject")

// ParseToken verifies an HS256 token and returns its subject.
func ParseToken(token, secret string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errMissingSubject
	}
	return claims.Subject, nil
}

func extractBearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
