// AngelaMos | 2026
// entity.go

package license

import (
	"time"
)

type RecordStatus string

const (
	StatusActive  RecordStatus = "ACTIVE"
	StatusRevoked RecordStatus = "REVOKED"
)

// License is the persisted record for one code. Budgets are copied from the
// tier when the record is written and never change afterwards.
type License struct {
	Code          string       `db:"code"           json:"code"`
	Tier          string       `db:"tier"           json:"tier"`
	MaxQuestions  int          `db:"max_questions"  json:"max_questions"`
	MaxDays       int          `db:"max_days"       json:"max_days"`
	ActivatedAt   *time.Time   `db:"activated_at"   json:"activated_at,omitempty"`
	QuestionsUsed int          `db:"questions_used" json:"questions_used"`
	Status        RecordStatus `db:"status"         json:"status"`
	CreatedAt     time.Time    `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"     json:"updated_at"`
}

func (l *License) IsActivated() bool {
	return l.ActivatedAt != nil
}

func (l *License) IsRevoked() bool {
	return l.Status == StatusRevoked
}

// StampActivation starts the usage clock of an unactivated, unrevoked
// record. It reports whether the record changed.
func (l *License) StampActivation(at time.Time) bool {
	if l.IsActivated() || l.IsRevoked() {
		return false
	}
	at = at.UTC()
	l.ActivatedAt = &at
	l.UpdatedAt = at
	return true
}

func (l *License) ChangeStatus(status RecordStatus, at time.Time) bool {
	if l.Status == status {
		return false
	}
	l.Status = status
	l.UpdatedAt = at.UTC()
	return true
}

func (l *License) Clone() *License {
	if l == nil {
		return nil
	}
	c := *l
	if l.ActivatedAt != nil {
		at := *l.ActivatedAt
		c.ActivatedAt = &at
	}
	return &c
}

// newLicense builds an activated record from a tier definition.
func newLicense(code string, tier *Tier, now time.Time) *License {
	activated := now.UTC()
	return &License{
		Code:          code,
		Tier:          tier.Name,
		MaxQuestions:  tier.MaxQuestions,
		MaxDays:       tier.MaxDays,
		ActivatedAt:   &activated,
		QuestionsUsed: 0,
		Status:        StatusActive,
		CreatedAt:     activated,
		UpdatedAt:     activated,
	}
}

// NewProvisioned builds a record for a code that has been issued but not
// yet activated. It evaluates as no_license until Activate stamps it.
func NewProvisioned(code string, tier *Tier, now time.Time) *License {
	l := newLicense(code, tier, now)
	l.ActivatedAt = nil
	return l
}
