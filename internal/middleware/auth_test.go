// AngelaMos | 2026
// auth_test.go

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/middleware"
)

type staticVerifier map[string]*middleware.TokenClaims

func (v staticVerifier) VerifyToken(_ context.Context, token string) (*middleware.TokenClaims, error) {
	if token == "expired" {
		return nil, core.ErrTokenExpired
	}
	claims, ok := v[token]
	if !ok {
		return nil, core.ErrTokenInvalid
	}
	return claims, nil
}

var verifier = staticVerifier{
	"holder": {
		Subject:   "B1974IUL",
		SessionID: "sess-1",
		Role:      middleware.RoleHolder,
		Tier:      "BASIC",
		Type:      middleware.TokenTypeSession,
	},
	"admin": {
		Subject: "operator",
		Role:    middleware.RoleAdmin,
		Type:    middleware.TokenTypeAdmin,
	},
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthenticator(t *testing.T) {
	var got *middleware.TokenClaims
	h := middleware.Authenticator(verifier)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			got = middleware.GetClaims(r.Context())
			assert.Equal(t, "sess-1", middleware.GetSessionID(r.Context()))
			assert.Equal(t, "BASIC", middleware.GetTier(r.Context()))
			w.WriteHeader(http.StatusOK)
		}))

	assert.Equal(t, http.StatusOK, serve(h, "holder").Code)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, "B1974IUL", got.Subject)

	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "garbage").Code)

	rec := serve(h, "expired")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_EXPIRED")
}

func TestOptionalAuth(t *testing.T) {
	var claims *middleware.TokenClaims
	h := middleware.OptionalAuth(verifier)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			claims = middleware.GetClaims(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

	assert.Equal(t, http.StatusOK, serve(h, "garbage").Code)
	assert.Nil(t, claims)

	assert.Equal(t, http.StatusOK, serve(h, "admin").Code)
	assert.NotNil(t, claims)
	assert.Equal(t, middleware.RoleAdmin, claims.Role)
}

func TestRequireAdminAndSession(t *testing.T) {
	adminOnly := middleware.Authenticator(verifier)(
		middleware.RequireAdmin(http.HandlerFunc(ok)))
	sessionOnly := middleware.Authenticator(verifier)(
		middleware.RequireSession(http.HandlerFunc(ok)))

	tests := []struct {
		name    string
		handler http.Handler
		token   string
		want    int
	}{
		{name: "admin route with admin", handler: adminOnly, token: "admin", want: http.StatusOK},
		{name: "admin route with holder", handler: adminOnly, token: "holder", want: http.StatusForbidden},
		{name: "session route with holder", handler: sessionOnly, token: "holder", want: http.StatusOK},
		{name: "session route with admin", handler: sessionOnly, token: "admin", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(tt.handler, tt.token).Code)
		})
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "bearer  abc ", want: "abc"},
		{header: "Basic abc", want: ""},
		{header: "abc", want: ""},
		{header: "", want: ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, middleware.ExtractToken(req), tt.header)
	}
}
