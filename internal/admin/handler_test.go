// AngelaMos | 2026
// handler_test.go

package admin_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/license-gate/internal/admin"
)

func passthrough(next http.Handler) http.Handler { return next }

func newRouter(f *fixture) http.Handler {
	h := admin.NewHandler(admin.HandlerConfig{
		Service:  f.service,
		Sessions: func() int { return 3 },
		Driver:   "memory",
	})

	r := chi.NewRouter()
	h.RegisterRoutes(r, passthrough, passthrough)
	return r
}

func send(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

func TestHandlerCreateAndDecrement(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	rec := send(t, router, http.MethodPost, "/admin/licenses",
		admin.CreateLicenseRequest{Code: "B1974IUL", Type: "BASIC"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = send(t, router, http.MethodPost, "/admin/licenses",
		admin.CreateLicenseRequest{Code: "B1974IUL", Type: "BASIC"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = send(t, router, http.MethodPost, "/admin/licenses/B1974IUL/decrement",
		admin.DecrementRequest{N: 2})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(t, router, http.MethodPost, "/admin/licenses/B1974IUL/decrement",
		map[string]int{"n": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(t, router, http.MethodPost, "/admin/licenses/PMK0852R/revoke", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerCreateErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       admin.CreateLicenseRequest
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid code",
			body:       admin.CreateLicenseRequest{Code: "B1974IUX", Type: "BASIC"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_CODE",
		},
		{
			name:       "type mismatch",
			body:       admin.CreateLicenseRequest{Code: "B1974IUL", Type: "PREMIUM"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(t, newRouter(newFixture(t)), http.MethodPost, "/admin/licenses", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}
}

func TestHandlerStats(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	rec := send(t, router, http.MethodPost, "/admin/codes",
		admin.GenerateCodesRequest{Type: "BASIC", Count: 4, Provision: true})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = send(t, router, http.MethodGet, "/admin/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data admin.SystemStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, 4, env.Data.Licenses.Total)
	assert.Equal(t, 4, env.Data.Licenses.ByReason["no_license"])
	assert.Equal(t, 3, env.Data.Sessions)
	assert.Nil(t, env.Data.Backend)
	assert.NotEmpty(t, env.Data.Runtime.GoVersion)
}

func TestHandlerListPaginates(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	rec := send(t, router, http.MethodPost, "/admin/codes",
		admin.GenerateCodesRequest{Type: "BASIC", Count: 5, Provision: true})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = send(t, router, http.MethodGet, "/admin/licenses?page=2&page_size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data []admin.LicenseView `json:"data"`
		Meta struct {
			Page       int `json:"page"`
			Total      int `json:"total"`
			TotalPages int `json:"total_pages"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Len(t, env.Data, 2)
	assert.Equal(t, 2, env.Meta.Page)
	assert.Equal(t, 5, env.Meta.Total)
	assert.Equal(t, 3, env.Meta.TotalPages)

	rec = send(t, router, http.MethodGet, "/admin/licenses?page=9&type=premium", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, 0, env.Meta.Total)
}
