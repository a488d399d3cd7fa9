// AngelaMos | 2026
// handler_test.go

package license_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/license-gate/internal/auth"
	"github.com/carterperez-dev/templates/license-gate/internal/config"
	"github.com/carterperez-dev/templates/license-gate/internal/license"
	"github.com/carterperez-dev/templates/license-gate/internal/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type apiClient struct {
	t      *testing.T
	router http.Handler
	token  string
}

func newAPI(t *testing.T, h *harness) *apiClient {
	t.Helper()

	jwtManager, err := auth.NewEphemeralJWTManager(config.JWTConfig{
		Issuer:             "license-gate-test",
		Audience:           "license-gate-test",
		SessionTokenExpire: time.Hour,
		AccessTokenExpire:  time.Minute,
	})
	require.NoError(t, err)

	handler := license.NewHandler(h.gate, h.sessions, jwtManager)

	r := chi.NewRouter()
	handler.RegisterRoutes(r, middleware.OptionalAuth(jwtManager))

	return &apiClient{t: t, router: r}
}

func (c *apiClient) do(method, path string, body any) (int, envelope) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func (c *apiClient) activate(code string) license.ActivateResponse {
	c.t.Helper()

	status, env := c.do(http.MethodPost, "/license/activate",
		license.ActivateRequest{Code: code})
	require.Equal(c.t, http.StatusOK, status)

	var resp license.ActivateResponse
	require.NoError(c.t, json.Unmarshal(env.Data, &resp))
	c.token = resp.SessionToken
	return resp
}

func TestHandlerActivate(t *testing.T) {
	api := newAPI(t, newHarness(t))

	resp := api.activate("b1974iul")
	assert.Equal(t, "Basic", resp.DisplayName)
	assert.Equal(t, "B1974IUL", resp.License.Code)
	assert.Equal(t, 10, resp.Status.QuestionsRemaining)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.SessionToken)
	assert.False(t, resp.Existing)
}

func TestHandlerActivateErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid code",
			body:       license.ActivateRequest{Code: "B1974IUX"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_CODE",
		},
		{
			name:       "missing code",
			body:       map[string]string{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name: "oversized body",
			body: map[string]string{
				"code":        "B1974IUL",
				"fingerprint": strings.Repeat("f", 1<<20),
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			api := newAPI(t, h)

			status, env := api.do(http.MethodPost, "/license/activate", tt.body)
			assert.Equal(t, tt.wantStatus, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Zero(t, h.sessions.Len())
		})
	}
}

func TestHandlerRequiresSession(t *testing.T) {
	api := newAPI(t, newHarness(t))

	status, _ := api.do(http.MethodGet, "/license/status", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	api.token = "not-a-token"
	status, _ = api.do(http.MethodPost, "/license/admission", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHandlerAdmissionLifecycle(t *testing.T) {
	api := newAPI(t, newHarness(t))
	api.activate("B1974IUL")

	for i := range 10 {
		status, _ := api.do(http.MethodPost, "/license/admission", nil)
		require.Equal(t, http.StatusOK, status, "admission %d", i+1)

		status, _ = api.do(http.MethodPost, "/license/consume", nil)
		require.Equal(t, http.StatusAccepted, status)
	}

	status, env := api.do(http.MethodGet, "/license/status", nil)
	require.Equal(t, http.StatusOK, status)

	var st license.StatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, license.ReasonQuestionsExceeded, st.Status.Reason)
	assert.Equal(t, "DEFERRED_BLOCK", st.State)
	assert.Equal(t, 10, st.License.QuestionsUsed)

	status, env = api.do(http.MethodPost, "/license/admission", nil)
	assert.Equal(t, http.StatusPaymentRequired, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "QUESTIONS_EXCEEDED", env.Error.Code)
	assert.Equal(t, "renew", env.Error.Details["prompt"])
}

func TestHandlerReset(t *testing.T) {
	h := newHarness(t)
	api := newAPI(t, h)
	api.activate("B1974IUL")

	status, _ := api.do(http.MethodDelete, "/license/", nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Zero(t, h.sessions.Len())

	status, env := api.do(http.MethodPost, "/license/admission", nil)
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "LICENSE_REQUIRED", env.Error.Code)
	assert.Equal(t, "activate", env.Error.Details["prompt"])
}

func TestHandlerRebuildsDroppedSession(t *testing.T) {
	h := newHarness(t)
	api := newAPI(t, h)
	api.activate("B1974IUL")

	h.sessions.CloseAll()

	status, env := api.do(http.MethodPost, "/license/admission", nil)
	require.Equal(t, http.StatusOK, status)

	var d license.Decision
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, h.sessions.Len())
}
