package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserIDFromContext(r.Context())
		w.Write([]byte(id))
	})
}

func TestAuth(t *testing.T) {
	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	noSubject := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	noExpiry := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "user-1"})

	tests := []struct {
		name       string
		bypass     bool
		header     map[string]string
		query      string
		wantStatus int
		wantUser   string
	}{
		{name: "valid bearer", header: map[string]string{"Authorization": "Bearer " + valid}, wantStatus: http.StatusOK, wantUser: "user-1"},
		{name: "lowercase scheme", header: map[string]string{"Authorization": "bearer " + valid}, wantStatus: http.StatusOK, wantUser: "user-1"},
		{name: "token in query", query: "?token=" + valid, wantStatus: http.StatusOK, wantUser: "user-1"},
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "expired", header: map[string]string{"Authorization": "Bearer " + expired}, wantStatus: http.StatusUnauthorized},
		{name: "wrong key", header: map[string]string{"Authorization": "Bearer " + wrongKey}, wantStatus: http.StatusUnauthorized},
		{name: "no subject", header: map[string]string{"Authorization": "Bearer " + noSubject}, wantStatus: http.StatusUnauthorized},
		{name: "no expiry", header: map[string]string{"Authorization": "Bearer " + noExpiry}, wantStatus: http.StatusUnauthorized},
		{name: "test header ignored without bypass", header: map[string]string{TestUserHeader: "someone"}, wantStatus: http.StatusUnauthorized},
		{name: "test header with bypass", bypass: true, header: map[string]string{TestUserHeader: "e2e-user"}, wantStatus: http.StatusOK, wantUser: "e2e-user"},
		{name: "bypass still accepts tokens", bypass: true, header: map[string]string{"Authorization": "Bearer " + valid}, wantStatus: http.StatusOK, wantUser: "user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Auth(AuthConfig{Secret: testSecret, Bypass: tt.bypass})(echoUser())
			req := httptest.NewRequest(http.MethodGet, "/api/diary"+tt.query, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantUser != "" && rec.Body.String() != tt.wantUser {
				t.Errorf("user = %q, want %q", rec.Body.String(), tt.wantUser)
			}
		})
	}
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if _, err := ParseToken(token, testSecret); err == nil {
		t.Error("expected HS512 token to be rejected")
	}
}

func TestIdentifyLeavesRejectionToRequireUser(t *testing.T) {
	var sawUser string
	var reached bool
	recordUser := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		sawUser, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/diary", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	Identify(AuthConfig{Secret: testSecret})(recordUser).ServeHTTP(rec, req)
	if !reached || sawUser != "" {
		t.Fatalf("reached = %v, user = %q; want anonymous pass-through", reached, sawUser)
	}

	rec = httptest.NewRecorder()
	Identify(AuthConfig{Secret: testSecret})(RequireUser(echoUser())).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Invalid or expired token") {
		t.Errorf("invalid token = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	RequireUser(echoUser()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/diary", nil))
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Authentication required") {
		t.Errorf("missing token = %d %s", rec.Code, rec.Body.String())
	}
}
