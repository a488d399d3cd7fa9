// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/carterperez-dev/templates/license-gate/internal/core"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHash is verified when no admin password is configured so a failed
// login costs the same as a real check.
const dummyHash = "$argon2id$v=19$m=65536,t=1,p=4$c29tZXNhbHRzb21lc2FsdA$" +
	"YWJjZGVmZ2hpamtsbW5vcHFyc3R1dnd4eXphYmNkZWY"

type Service struct {
	jwt          *JWTManager
	passwordHash string
	logger       *slog.Logger
}

func NewService(jwt *JWTManager, adminPasswordHash string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		jwt:          jwt,
		passwordHash: adminPasswordHash,
		logger:       logger,
	}
}

// AdminLogin exchanges the operator password for an admin token.
func (s *Service) AdminLogin(
	ctx context.Context,
	req AdminLoginRequest,
) (*TokenResponse, error) {
	hash := s.passwordHash
	if hash == "" {
		hash = dummyHash
	}

	ok, err := core.VerifyPassword(req.Password, hash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok || s.passwordHash == "" {
		s.logger.WarnContext(ctx, "admin login rejected")
		return nil, ErrInvalidCredentials
	}

	subject := req.Username
	if subject == "" {
		subject = "admin"
	}

	issued, err := s.jwt.IssueAdminToken(subject)
	if err != nil {
		return nil, fmt.Errorf("issue admin token: %w", err)
	}

	s.logger.InfoContext(ctx, "admin login", "subject", subject)
	return newTokenResponse(issued), nil
}
