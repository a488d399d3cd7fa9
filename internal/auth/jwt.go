// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/templates/license-gate/internal/config"
	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/middleware"
)

// JWTManager signs and verifies ES256 tokens. Session tokens bind a
// license holder to an admission session; admin tokens authorize the
// administrative routes.
type JWTManager struct {
	privateKey jwk.Key
	publicKey  jwk.Key
	publicJWKS jwk.Set
	config     config.JWTConfig
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	privateKeyPEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	privateKey, err := jwk.ParseKey(privateKeyPEM, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return newJWTManager(privateKey, cfg)
}

// NewEphemeralJWTManager signs with a freshly generated key. Tokens do not
// survive a restart; used in development when no key file is configured.
func NewEphemeralJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	privateKey, err := jwk.Import(raw)
	if err != nil {
		return nil, fmt.Errorf("import private key: %w", err)
	}

	return newJWTManager(privateKey, cfg)
}

func newJWTManager(privateKey jwk.Key, cfg config.JWTConfig) (*JWTManager, error) {
	if err := privateKey.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return nil, fmt.Errorf("set algorithm: %w", err)
	}

	keyID := uuid.New().String()[:8]
	if err := privateKey.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, fmt.Errorf("set key id: %w", err)
	}

	publicKey, err := privateKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	if err := publicKey.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("set key usage: %w", err)
	}

	publicJWKS := jwk.NewSet()
	if err := publicJWKS.AddKey(publicKey); err != nil {
		return nil, fmt.Errorf("add key to set: %w", err)
	}

	return &JWTManager{
		privateKey: privateKey,
		publicKey:  publicKey,
		publicJWKS: publicJWKS,
		config:     cfg,
	}, nil
}

func GenerateKeyPair(privateKeyPath, publicKeyPath string) error {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	jwkPrivate, err := jwk.Import(privateKey)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}

	privatePEM, err := jwk.Pem(jwkPrivate)
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}

	if err := os.WriteFile(privateKeyPath, privatePEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}

	jwkPublic, err := jwkPrivate.PublicKey()
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	publicPEM, err := jwk.Pem(jwkPublic)
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}

	//nolint:gosec // G306: public key is intentionally world-readable
	if err := os.WriteFile(publicKeyPath, publicPEM, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}

	return nil
}

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// IssueSessionToken binds code to an admission session. The code is the
// subject, so a session can be rebuilt after the in-memory registry lost
// it.
func (m *JWTManager) IssueSessionToken(
	code, sessionID, tier string,
) (string, time.Time, error) {
	issued, err := m.issue(code, middleware.TokenTypeSession,
		m.config.SessionTokenExpire,
		map[string]any{
			"sid":  sessionID,
			"tier": tier,
			"role": middleware.RoleHolder,
		})
	if err != nil {
		return "", time.Time{}, err
	}
	return issued.Token, issued.ExpiresAt, nil
}

func (m *JWTManager) IssueAdminToken(subject string) (*IssuedToken, error) {
	return m.issue(subject, middleware.TokenTypeAdmin, m.config.AccessTokenExpire,
		map[string]any{
			"role": middleware.RoleAdmin,
		})
}

func (m *JWTManager) issue(
	subject, tokenType string,
	ttl time.Duration,
	claims map[string]any,
) (*IssuedToken, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	b := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(subject).
		IssuedAt(now).
		Expiration(expiresAt).
		NotBefore(now).
		Claim("type", tokenType)
	for k, v := range claims {
		b = b.Claim(k, v)
	}

	token, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), m.privateKey))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &IssuedToken{Token: string(signed), ExpiresAt: expiresAt}, nil
}

func (m *JWTManager) VerifyToken(
	_ context.Context,
	tokenString string,
) (*middleware.TokenClaims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.ES256(), m.publicKey),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
	)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	claims := &middleware.TokenClaims{Subject: subject}

	if err := token.Get("type", &claims.Type); err != nil {
		return nil, fmt.Errorf(
			"verify token: missing type claim: %w",
			core.ErrTokenInvalid,
		)
	}
	if err := token.Get("role", &claims.Role); err != nil {
		return nil, fmt.Errorf(
			"verify token: missing role claim: %w",
			core.ErrTokenInvalid,
		)
	}

	switch claims.Type {
	case middleware.TokenTypeSession:
		if err := token.Get("sid", &claims.SessionID); err != nil ||
			claims.SessionID == "" {
			return nil, fmt.Errorf(
				"verify token: missing session claim: %w",
				core.ErrTokenInvalid,
			)
		}
		//nolint:errcheck // tier is informational
		_ = token.Get("tier", &claims.Tier)
	case middleware.TokenTypeAdmin:
	default:
		return nil, fmt.Errorf(
			"verify token: invalid token type: %w",
			core.ErrTokenInvalid,
		)
	}

	return claims, nil
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}

func (m *JWTManager) GetJWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")

		if err := json.NewEncoder(w).Encode(m.publicJWKS); err != nil {
			http.Error(
				w,
				"Internal Server Error",
				http.StatusInternalServerError,
			)
		}
	}
}

func (m *JWTManager) GetKeyID() string {
	var kid string
	//nolint:errcheck // key ID always set during construction
	_ = m.privateKey.Get(jwk.KeyIDKey, &kid)
	return kid
}
