// AngelaMos | 2026
// main_test.go

package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/license-gate/internal/license"
	"github.com/carterperez-dev/templates/license-gate/internal/relay"
)

type echoCompleter struct {
	mu    sync.Mutex
	calls int
}

func (e *echoCompleter) Complete(_ context.Context, req relay.Request) (*relay.Response, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	last := req.Messages[len(req.Messages)-1]
	return &relay.Response{Text: "echo: " + last.Content}, nil
}

type env struct {
	fs        afero.Fs
	completer *echoCompleter
}

func newEnv() *env {
	return &env{fs: afero.NewMemMapFs(), completer: &echoCompleter{}}
}

func (e *env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	a := &app{fs: e.fs, completer: e.completer}
	cmd := newRootCmd(a)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--file", "/home/user/license.json"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestActivateAndStatus(t *testing.T) {
	e := newEnv()

	out, err := e.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No license activated.")

	out, err = e.run(t, "", "activate", "b1974iul")
	require.NoError(t, err)
	assert.Contains(t, out, "Activated Basic license B1974IUL")
	assert.Contains(t, out, "Questions remaining: 10")

	out, err = e.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: valid")
	assert.Contains(t, out, "Questions used: 0 of 10")

	_, err = e.run(t, "", "activate", "B1974IUX")
	require.Error(t, err)
}

func TestChatRunsAdmissionProtocol(t *testing.T) {
	e := newEnv()

	_, err := e.run(t, "", "activate", "B1974IUL")
	require.NoError(t, err)

	input := strings.Repeat("tell me something\n", 11) + "/quit\n"
	out, err := e.run(t, input, "chat", "--lang", "en")
	require.NoError(t, err)

	assert.Equal(t, 10, strings.Count(out, "echo: tell me something"))
	assert.Contains(t, out, "You have used every question this license covers.")
	assert.Equal(t, 10, e.completer.calls)

	out, err = e.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Questions used: 10 of 10")
	assert.Contains(t, out, "Status: "+license.ReasonQuestionsExceeded.String())
}

func TestChatWithoutLicense(t *testing.T) {
	e := newEnv()

	out, err := e.run(t, "hello there\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "No license is active.")
	assert.Zero(t, e.completer.calls)
}

func TestReset(t *testing.T) {
	e := newEnv()

	_, err := e.run(t, "", "activate", "B1974IUL")
	require.NoError(t, err)

	_, err = e.run(t, "", "reset")
	require.Error(t, err)

	out, err := e.run(t, "", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "License removed.")

	exists, err := afero.Exists(e.fs, "/home/user/license.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGenerate(t *testing.T) {
	e := newEnv()

	out, err := e.run(t, "", "generate", "premium", "-n", "3")
	require.NoError(t, err)

	codes := strings.Fields(out)
	require.Len(t, codes, 3)

	tiers := license.DefaultTiers()
	for _, c := range codes {
		v, err := tiers.Validate(c)
		require.NoError(t, err)
		assert.Equal(t, "PREMIUM", v.Tier.Name)
	}

	_, err = e.run(t, "", "generate", "gold")
	require.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	e := newEnv()

	out, err := e.run(t, "correct-horse\n", "hash-password")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "$argon2id$"))

	_, err = e.run(t, "", "hash-password", "short")
	require.Error(t, err)
}
