// AngelaMos | 2026
// status_test.go

package license_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/license-gate/internal/license"
)

var epoch = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func activated(maxQuestions, maxDays, used int) *license.License {
	at := epoch
	return &license.License{
		Code:          "B1974IUL",
		Tier:          "BASIC",
		MaxQuestions:  maxQuestions,
		MaxDays:       maxDays,
		ActivatedAt:   &at,
		QuestionsUsed: used,
		Status:        license.StatusActive,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

func TestEvaluate(t *testing.T) {
	revoked := activated(10, 30, 0)
	revoked.Status = license.StatusRevoked

	provisioned := activated(10, 30, 0)
	provisioned.ActivatedAt = nil

	tests := []struct {
		name string
		l    *license.License
		now  time.Time
		want license.Status
	}{
		{
			name: "absent",
			now:  epoch,
			want: license.Status{Reason: license.ReasonNoLicense},
		},
		{
			name: "not activated",
			l:    provisioned,
			now:  epoch,
			want: license.Status{Reason: license.ReasonNoLicense},
		},
		{
			name: "fresh",
			l:    activated(10, 30, 0),
			now:  epoch,
			want: license.Status{Valid: true, QuestionsRemaining: 10, DaysRemaining: 30},
		},
		{
			name: "partial day does not count",
			l:    activated(10, 30, 3),
			now:  epoch.Add(23 * time.Hour),
			want: license.Status{Valid: true, QuestionsRemaining: 7, DaysRemaining: 30},
		},
		{
			name: "29 days elapsed",
			l:    activated(10, 30, 0),
			now:  epoch.Add(29 * 24 * time.Hour),
			want: license.Status{Valid: true, QuestionsRemaining: 10, DaysRemaining: 1},
		},
		{
			name: "30 days elapsed",
			l:    activated(10, 30, 0),
			now:  epoch.Add(30 * 24 * time.Hour),
			want: license.Status{Reason: license.ReasonExpired, QuestionsRemaining: 10},
		},
		{
			name: "questions spent",
			l:    activated(10, 30, 10),
			now:  epoch.Add(24 * time.Hour),
			want: license.Status{Reason: license.ReasonQuestionsExceeded, DaysRemaining: 29},
		},
		{
			name: "both spent reports questions",
			l:    activated(10, 30, 12),
			now:  epoch.Add(40 * 24 * time.Hour),
			want: license.Status{Reason: license.ReasonQuestionsExceeded},
		},
		{
			name: "revoked wins",
			l:    revoked,
			now:  epoch,
			want: license.Status{Reason: license.ReasonRevoked},
		},
		{
			name: "clock behind activation",
			l:    activated(10, 30, 0),
			now:  epoch.Add(-time.Hour),
			want: license.Status{Valid: true, QuestionsRemaining: 10, DaysRemaining: 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, license.Evaluate(tt.l, tt.now))
		})
	}
}

func TestReasonPrompt(t *testing.T) {
	assert.Equal(t, license.PromptNone, license.ReasonNone.Prompt())
	assert.Equal(t, license.PromptActivate, license.ReasonNoLicense.Prompt())
	assert.Equal(t, license.PromptContactSupport, license.ReasonRevoked.Prompt())
	assert.Equal(t, license.PromptRenew, license.ReasonQuestionsExceeded.Prompt())
	assert.Equal(t, license.PromptRenew, license.ReasonExpired.Prompt())

	assert.True(t, license.ReasonExpired.Exhausted())
	assert.False(t, license.ReasonRevoked.Exhausted())
}

func TestStatusJSON(t *testing.T) {
	raw, err := json.Marshal(license.Status{
		Reason:        license.ReasonExpired,
		DaysRemaining: 0,
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"valid":false,"reason":"expired","questions_remaining":0,"days_remaining":0}`,
		string(raw),
	)

	var r license.Reason
	require.NoError(t, r.UnmarshalText([]byte("questions_exceeded")))
	assert.Equal(t, license.ReasonQuestionsExceeded, r)
	assert.Error(t, r.UnmarshalText([]byte("bogus")))
}
