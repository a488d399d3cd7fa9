// AngelaMos | 2026
// relay_test.go

package relay_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/license-gate/internal/config"
	"github.com/carterperez-dev/templates/license-gate/internal/relay"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "trimmed", in: "  salut  ", want: "salut"},
		{name: "too short", in: " a ", wantErr: relay.ErrQueryTooShort},
		{name: "empty", in: "", wantErr: relay.ErrQueryTooShort},
		{name: "multibyte counts runes", in: "ăî", want: "ăî"},
		{name: "too long", in: strings.Repeat("x", 2001), wantErr: relay.ErrQueryTooLong},
		{name: "max length", in: strings.Repeat("x", 2000), want: strings.Repeat("x", 2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := relay.NormalizeQuery(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeAndLangFallback(t *testing.T) {
	assert.Equal(t, relay.ModeEducation, relay.ParseMode(" EDUCATIE "))
	assert.Equal(t, relay.ModeHealing, relay.ParseMode("unknown"))
	assert.Equal(t, relay.LangEN, relay.ParseLang("en"))
	assert.Equal(t, relay.LangRO, relay.ParseLang("fr"))

	assert.Contains(t, relay.Instruction(relay.LangEN, relay.ModePerformance), "PERFORMANCE mode")
	assert.Contains(t, relay.Instruction("xx", "yy"), "Modul VINDECARE")
}

func TestBuildRequest(t *testing.T) {
	history := []relay.Message{
		{Role: relay.RoleUser, Content: "first"},
		{Role: relay.RoleAssistant, Content: "answer"},
	}

	req := relay.BuildRequest(relay.LangEN, relay.ModeEducation, history, "second", 0.4, 256)

	require.Len(t, req.Messages, 3)
	assert.Equal(t, "second", req.Messages[2].Content)
	assert.Equal(t, relay.RoleUser, req.Messages[2].Role)
	assert.Contains(t, req.System, "EDUCATION mode")
	assert.Len(t, history, 2)
}

func TestOpenAIComplete(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": " PASUL 1: respiră "}
			}]
		}`))
	}))
	defer srv.Close()

	c := relay.NewOpenAI(config.OpenAIConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL + "/",
		Model:   "gpt-4o-mini",
	})

	resp, err := c.Complete(context.Background(), relay.Request{
		System:    "sys",
		Messages:  []relay.Message{{Role: relay.RoleUser, Content: "hi"}},
		MaxTokens: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "PASUL 1: respiră", resp.Text)
	assert.Equal(t, "gpt-4o-mini", resp.Model)

	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	first, ok := msgs[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "system", first["role"])
}

func TestOpenAIUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "model not found", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := relay.NewOpenAI(config.OpenAIConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL + "/",
		Model:   "nope",
	})

	_, err := c.Complete(context.Background(), relay.Request{
		Messages: []relay.Message{{Role: relay.RoleUser, Content: "hi"}},
	})
	require.ErrorIs(t, err, relay.ErrUpstream)

	var upErr *relay.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusBadRequest, upErr.StatusCode)
	assert.Equal(t, "model not found", upErr.Message)
}
