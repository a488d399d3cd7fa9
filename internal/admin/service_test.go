// AngelaMos | 2026
// service_test.go

package admin_test

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/license-gate/internal/admin"
	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/license"
	"github.com/carterperez-dev/templates/license-gate/internal/store"
)

var epoch = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	clock   *quartz.Mock
	store   license.Store
	service *admin.Service
	manager *license.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := quartz.NewMock(t)
	clock.Set(epoch)

	s := store.NewMemory()
	tiers := license.DefaultTiers()

	return &fixture{
		clock:   clock,
		store:   s,
		service: admin.NewService(s, tiers, clock, nil),
		manager: license.NewManager(license.ManagerConfig{
			Store: s,
			Tiers: tiers,
			Clock: clock,
		}),
	}
}

func TestCreateLicense(t *testing.T) {
	ctx := context.Background()

	t.Run("provisions an unactivated record", func(t *testing.T) {
		f := newFixture(t)

		l, err := f.service.CreateLicense(ctx, admin.CreateLicenseRequest{
			Code:           "pmk0852r",
			Type:           "premium",
			QuestionsTotal: 250,
		})
		require.NoError(t, err)
		assert.Equal(t, "PMK0852R", l.Code)
		assert.Equal(t, 250, l.MaxQuestions)
		assert.Equal(t, 365, l.MaxDays)
		assert.Nil(t, l.ActivatedAt)

		views, err := f.service.ListLicenses(ctx, "PREMIUM")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, license.ReasonNoLicense, views[0].Evaluation.Reason)
	})

	t.Run("rejects", func(t *testing.T) {
		tests := []struct {
			name string
			req  admin.CreateLicenseRequest
			want error
		}{
			{
				name: "unknown type",
				req:  admin.CreateLicenseRequest{Code: "B1974IUL", Type: "GOLD"},
				want: admin.ErrUnknownType,
			},
			{
				name: "type mismatch",
				req:  admin.CreateLicenseRequest{Code: "B1974IUL", Type: "PREMIUM"},
				want: admin.ErrTypeMismatch,
			},
			{
				name: "invalid code",
				req:  admin.CreateLicenseRequest{Code: "B1974IUX", Type: "BASIC"},
				want: license.ErrInvalidCode,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				_, err := f.service.CreateLicense(ctx, tt.req)
				require.ErrorIs(t, err, tt.want)
			})
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		f := newFixture(t)
		req := admin.CreateLicenseRequest{Code: "B1974IUL", Type: "BASIC"}

		_, err := f.service.CreateLicense(ctx, req)
		require.NoError(t, err)

		_, err = f.service.CreateLicense(ctx, req)
		require.ErrorIs(t, err, core.ErrDuplicateKey)
	})
}

func TestDecrementRestoresValidity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess := license.NewSession("s1", "", "")
	defer sess.Close()

	_, err := f.manager.Activate(ctx, sess, "B1974IUL")
	require.NoError(t, err)

	for range 10 {
		_, err := f.manager.Consume(ctx, sess)
		require.NoError(t, err)
	}
	require.Equal(t, license.ReasonQuestionsExceeded, f.manager.Status(ctx, sess).Reason)

	view, err := f.service.Decrement(ctx, "b1974iul", 3)
	require.NoError(t, err)
	assert.Equal(t, 7, view.QuestionsUsed)
	assert.True(t, view.Evaluation.Valid)
	assert.Equal(t, 3, view.Evaluation.QuestionsRemaining)

	view, err = f.service.Decrement(ctx, "B1974IUL", 50)
	require.NoError(t, err)
	assert.Equal(t, 0, view.QuestionsUsed)

	_, err = f.service.Decrement(ctx, "B1974IUL", 0)
	require.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = f.service.Decrement(ctx, "PMK0852R", 1)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestDecrementCannotRestoreExpiredDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess := license.NewSession("s1", "", "")
	defer sess.Close()

	_, err := f.manager.Activate(ctx, sess, "B1974IUL")
	require.NoError(t, err)
	_, err = f.manager.Consume(ctx, sess)
	require.NoError(t, err)

	f.clock.Advance(31 * 24 * time.Hour)

	view, err := f.service.Decrement(ctx, "B1974IUL", 1)
	require.NoError(t, err)
	assert.Equal(t, license.ReasonExpired, view.Evaluation.Reason)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess := license.NewSession("s1", "", "")
	defer sess.Close()

	_, err := f.manager.Activate(ctx, sess, "B1974IUL")
	require.NoError(t, err)

	view, err := f.service.Revoke(ctx, "B1974IUL")
	require.NoError(t, err)
	assert.Equal(t, string(license.StatusRevoked), view.Status)
	assert.Equal(t, license.ReasonRevoked, view.Evaluation.Reason)

	d, err := f.manager.PreCheck(ctx, sess)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, license.ReasonRevoked, d.Reason)

	_, err = f.service.Revoke(ctx, "PMK0852R")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestGenerateCodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.service.GenerateCodes(ctx, admin.GenerateCodesRequest{
		Type:  "BASIC",
		Count: 5,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Codes, 5)
	assert.False(t, resp.Provisioned)

	all, err := f.store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	resp, err = f.service.GenerateCodes(ctx, admin.GenerateCodesRequest{
		Type:      "PREMIUM",
		Count:     3,
		Provision: true,
	})
	require.NoError(t, err)
	assert.True(t, resp.Provisioned)

	all, err = f.store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(resp.Codes))

	_, err = f.service.GenerateCodes(ctx, admin.GenerateCodesRequest{
		Type:  "GOLD",
		Count: 1,
	})
	require.ErrorIs(t, err, admin.ErrUnknownType)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess := license.NewSession("s1", "", "")
	defer sess.Close()

	_, err := f.manager.Activate(ctx, sess, "B1974IUL")
	require.NoError(t, err)
	_, err = f.manager.Consume(ctx, sess)
	require.NoError(t, err)

	_, err = f.service.CreateLicense(ctx, admin.CreateLicenseRequest{
		Code: "P2580KMR",
		Type: "PREMIUM",
	})
	require.NoError(t, err)

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Valid)
	assert.Equal(t, 1, stats.QuestionsUsed)
	assert.Equal(t, map[string]int{"BASIC": 1, "PREMIUM": 1}, stats.ByTier)
	assert.Equal(t, map[string]int{"no_license": 1}, stats.ByReason)
}
