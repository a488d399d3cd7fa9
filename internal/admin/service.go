// AngelaMos | 2026
// service.go

package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coder/quartz"

	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/license"
)

var (
	ErrUnknownType  = errors.New("unknown license type")
	ErrTypeMismatch = errors.New("code does not belong to license type")
)

// Service runs the administrative operations on the license store. It is
// the only path besides consumption that changes a stored record.
type Service struct {
	store  license.Store
	tiers  *license.Tiers
	clock  quartz.Clock
	logger *slog.Logger
}

func NewService(
	store license.Store,
	tiers *license.Tiers,
	clock quartz.Clock,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		tiers:  tiers,
		clock:  clock,
		logger: logger.With("component", "admin"),
	}
}

// CreateLicense provisions a code. The record is not activated until the
// holder activates it; questionsTotal overrides the tier budget when set.
func (s *Service) CreateLicense(
	ctx context.Context,
	req CreateLicenseRequest,
) (*license.License, error) {
	tier, ok := s.tiers.ByName(req.Type)
	if !ok {
		return nil, fmt.Errorf("create license: %q: %w", req.Type, ErrUnknownType)
	}

	v, err := s.tiers.Validate(req.Code)
	if err != nil {
		return nil, fmt.Errorf("create license: %w", err)
	}
	if v.Tier != tier {
		return nil, fmt.Errorf(
			"create license: %s is a %s code: %w",
			v.Code, v.Tier.Name, ErrTypeMismatch,
		)
	}

	l := license.NewProvisioned(v.Code, tier, s.clock.Now())
	if req.QuestionsTotal > 0 {
		l.MaxQuestions = req.QuestionsTotal
	}

	if err := s.store.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create license: %w", err)
	}

	s.logger.InfoContext(ctx, "license provisioned",
		"tier", tier.Name,
		"max_questions", l.MaxQuestions,
	)
	return l, nil
}

func (s *Service) ListLicenses(ctx context.Context, tier string) ([]LicenseView, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}

	now := s.clock.Now()
	out := make([]LicenseView, 0, len(all))
	for i := range all {
		if tier != "" && !strings.EqualFold(all[i].Tier, tier) {
			continue
		}
		out = append(out, newLicenseView(&all[i], now))
	}
	return out, nil
}

// Decrement returns n consumed questions to the license. Usage never drops
// below zero, and a spent license becomes valid again when the restored
// budget and the remaining days allow it.
func (s *Service) Decrement(
	ctx context.Context,
	code string,
	n int,
) (*LicenseView, error) {
	if n <= 0 {
		return nil, fmt.Errorf("decrement: n must be positive: %w", core.ErrInvalidInput)
	}

	l, err := s.store.AddUsage(ctx, license.Normalize(code), -n)
	if err != nil {
		return nil, fmt.Errorf("decrement: %w", err)
	}

	s.logger.InfoContext(ctx, "license usage decremented",
		"n", n,
		"questions_used", l.QuestionsUsed,
	)

	view := newLicenseView(l, s.clock.Now())
	return &view, nil
}

func (s *Service) Revoke(ctx context.Context, code string) (*LicenseView, error) {
	l, changed, err := s.store.SetStatus(ctx, license.Normalize(code), license.StatusRevoked)
	if err != nil {
		return nil, fmt.Errorf("revoke: %w", err)
	}

	if changed {
		s.logger.InfoContext(ctx, "license revoked", "tier", l.Tier)
	}

	view := newLicenseView(l, s.clock.Now())
	return &view, nil
}

// GenerateCodes produces fresh codes for a tier. With provision set every
// code is also created in the store; codes that already exist are skipped.
func (s *Service) GenerateCodes(
	ctx context.Context,
	req GenerateCodesRequest,
) (*GenerateCodesResponse, error) {
	tier, ok := s.tiers.ByName(req.Type)
	if !ok {
		return nil, fmt.Errorf("generate codes: %q: %w", req.Type, ErrUnknownType)
	}

	codes, err := license.GenerateCodes(tier, req.Count)
	if err != nil {
		return nil, fmt.Errorf("generate codes: %w: %w", core.ErrInvalidInput, err)
	}

	resp := &GenerateCodesResponse{Type: tier.Name, Codes: codes}
	if !req.Provision {
		return resp, nil
	}

	now := s.clock.Now()
	provisioned := codes[:0:0]
	for _, code := range codes {
		err := s.store.Create(ctx, license.NewProvisioned(code, tier, now))
		if errors.Is(err, core.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("generate codes: provision: %w", err)
		}
		provisioned = append(provisioned, code)
	}

	resp.Codes = provisioned
	resp.Provisioned = true
	s.logger.InfoContext(ctx, "codes provisioned",
		"tier", tier.Name,
		"count", len(provisioned),
	)
	return resp, nil
}

// Stats counts licenses per tier and per evaluated reason.
func (s *Service) Stats(ctx context.Context) (*LicenseStats, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("license stats: %w", err)
	}

	now := s.clock.Now()
	stats := &LicenseStats{
		Total:    len(all),
		ByTier:   make(map[string]int),
		ByReason: make(map[string]int),
	}

	for i := range all {
		l := &all[i]
		stats.ByTier[l.Tier]++
		stats.QuestionsUsed += l.QuestionsUsed

		st := license.Evaluate(l, now)
		if st.Valid {
			stats.Valid++
			continue
		}
		stats.ByReason[st.Reason.String()]++
	}

	return stats, nil
}
