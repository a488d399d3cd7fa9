// AngelaMos | 2026
// jwt_test.go

package auth_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/license-gate/internal/auth"
	"github.com/carterperez-dev/templates/license-gate/internal/config"
	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/middleware"
)

func jwtConfig() config.JWTConfig {
	return config.JWTConfig{
		AccessTokenExpire:  15 * time.Minute,
		SessionTokenExpire: time.Hour,
		Issuer:             "license-gate-test",
		Audience:           "license-gate-test",
	}
}

func newJWT(t *testing.T) *auth.JWTManager {
	t.Helper()

	m, err := auth.NewEphemeralJWTManager(jwtConfig())
	require.NoError(t, err)
	return m
}

func TestSessionToken(t *testing.T) {
	m := newJWT(t)

	token, expiresAt, err := m.IssueSessionToken("B1974IUL", "sess-1", "BASIC")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "B1974IUL", claims.Subject)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "BASIC", claims.Tier)
	assert.Equal(t, middleware.RoleHolder, claims.Role)
	assert.Equal(t, middleware.TokenTypeSession, claims.Type)
}

func TestAdminToken(t *testing.T) {
	m := newJWT(t)

	issued, err := m.IssueAdminToken("operator")
	require.NoError(t, err)

	claims, err := m.VerifyToken(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, middleware.RoleAdmin, claims.Role)
	assert.Equal(t, middleware.TokenTypeAdmin, claims.Type)
	assert.Empty(t, claims.SessionID)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	issuer := newJWT(t)
	verifier := newJWT(t)

	token, _, err := issuer.IssueSessionToken("B1974IUL", "sess-1", "BASIC")
	require.NoError(t, err)

	_, err = verifier.VerifyToken(context.Background(), token)
	require.ErrorIs(t, err, core.ErrTokenInvalid)

	_, err = verifier.VerifyToken(context.Background(), "not.a.jwt")
	require.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyExpired(t *testing.T) {
	cfg := jwtConfig()
	cfg.SessionTokenExpire = -time.Minute

	m, err := auth.NewEphemeralJWTManager(cfg)
	require.NoError(t, err)

	token, _, err := m.IssueSessionToken("B1974IUL", "sess-1", "BASIC")
	require.NoError(t, err)

	_, err = m.VerifyToken(context.Background(), token)
	require.Error(t, err)
}

func TestKeyFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")

	require.NoError(t, auth.GenerateKeyPair(priv, pub))

	cfg := jwtConfig()
	cfg.PrivateKeyPath = priv
	m, err := auth.NewJWTManager(cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, m.GetKeyID())

	cfg.PrivateKeyPath = filepath.Join(dir, "missing.pem")
	_, err = auth.NewJWTManager(cfg)
	require.Error(t, err)
}
