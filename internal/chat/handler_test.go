// AngelaMos | 2026
// handler_test.go

package chat_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/license-gate/internal/chat"
	"github.com/carterperez-dev/templates/license-gate/internal/config"
	"github.com/carterperez-dev/templates/license-gate/internal/license"
	"github.com/carterperez-dev/templates/license-gate/internal/relay"
	"github.com/carterperez-dev/templates/license-gate/internal/store"
)

type fakeCompleter struct {
	mu       sync.Mutex
	requests []relay.Request
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, req relay.Request) (*relay.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &relay.Response{Text: "answer", Model: "test-model"}, nil
}

func (f *fakeCompleter) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type observer struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *observer) ObserveRelay(outcome string, _ time.Duration) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, outcome)
	o.mu.Unlock()
}

type fixture struct {
	router    http.Handler
	store     license.Store
	session   *license.Session
	completer *fakeCompleter
	observer  *observer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := store.NewMemory()
	manager := license.NewManager(license.ManagerConfig{Store: s})
	gate := license.NewGate(manager, 0)

	sess := license.NewSession("s1", "", "")
	t.Cleanup(sess.Close)

	_, err := manager.Activate(context.Background(), sess, "B1974IUL")
	require.NoError(t, err)

	f := &fixture{
		store:     s,
		session:   sess,
		completer: &fakeCompleter{},
		observer:  &observer{},
	}

	h := chat.NewHandler(chat.HandlerConfig{
		Gate:      gate,
		Sessions:  func(*http.Request) *license.Session { return sess },
		Completer: f.completer,
		OpenAI:    config.OpenAIConfig{Temperature: 0.2, MaxTokens: 256},
		Observer:  f.observer,
	})

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	f.router = r
	return f
}

func (f *fixture) ask(t *testing.T, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(http.MethodPost, "/chat", &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) used(t *testing.T) int {
	t.Helper()

	require.NoError(t, f.session.Wait(context.Background()))
	l, err := f.store.Get(context.Background(), "B1974IUL")
	require.NoError(t, err)
	return l.QuestionsUsed
}

func TestChatAnswersAndConsumes(t *testing.T) {
	f := newFixture(t)

	rec := f.ask(t, chat.Request{Query: "What is a mutex?", Mode: "educatie", Lang: "en"})
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data chat.Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "answer", env.Data.Reply)
	assert.Equal(t, "test-model", env.Data.Model)
	assert.Equal(t, "en", env.Data.Lang)
	assert.False(t, env.Data.Grace)

	assert.Equal(t, 1, f.used(t))

	require.Len(t, f.completer.requests, 1)
	sent := f.completer.requests[0]
	assert.NotEmpty(t, sent.System)
	assert.Equal(t, 256, sent.MaxTokens)
	require.NotEmpty(t, sent.Messages)
	assert.Equal(t, "What is a mutex?", sent.Messages[len(sent.Messages)-1].Content)
}

func TestChatUpstreamFailureConsumesNothing(t *testing.T) {
	f := newFixture(t)
	f.completer.fail(&relay.UpstreamError{StatusCode: 429, Message: "rate limited"})

	rec := f.ask(t, chat.Request{Query: "hello there"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limited")

	assert.Equal(t, 0, f.used(t))
	assert.Equal(t, []string{"error"}, f.observer.outcomes)
}

func TestChatRejectsBadQuery(t *testing.T) {
	f := newFixture(t)

	rec := f.ask(t, chat.Request{Query: " x "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.ask(t, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	history := make([]relay.Message, 21)
	for i := range history {
		history[i] = relay.Message{Role: relay.RoleUser, Content: "earlier question"}
	}
	rec = f.ask(t, chat.Request{Query: "hello there", History: history})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "history must be at most 20")

	assert.Empty(t, f.completer.requests)
	assert.Equal(t, 0, f.used(t))
}

func TestChatDeferredBlock(t *testing.T) {
	f := newFixture(t)

	for i := range 10 {
		rec := f.ask(t, chat.Request{Query: "question"})
		require.Equal(t, http.StatusOK, rec.Code, "question %d", i+1)
	}

	rec := f.ask(t, chat.Request{Query: "one more"})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), "QUESTIONS_EXCEEDED")

	assert.Len(t, f.completer.requests, 10)
	assert.Equal(t, 10, f.used(t))
}
