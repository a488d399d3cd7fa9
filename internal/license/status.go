// AngelaMos | 2026
// status.go

package license

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// Reason explains why a license is not usable. The zero value means the
// license is valid.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonNoLicense
	ReasonRevoked
	ReasonQuestionsExceeded
	ReasonExpired
)

var reasonNames = map[Reason]string{
	ReasonNone:              "",
	ReasonNoLicense:         "no_license",
	ReasonRevoked:           "revoked",
	ReasonQuestionsExceeded: "questions_exceeded",
	ReasonExpired:           "expired",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

func (r Reason) MarshalText() ([]byte, error) {
	name, ok := reasonNames[r]
	if !ok {
		return nil, fmt.Errorf("marshal reason: unknown value %d", uint8(r))
	}
	return []byte(name), nil
}

func (r *Reason) UnmarshalText(text []byte) error {
	for k, v := range reasonNames {
		if v == string(text) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unmarshal reason: unknown value %q", text)
}

// Exhausted reports whether the reason is a spent budget, the only kind of
// denial subject to the one-action grace window.
func (r Reason) Exhausted() bool {
	return r == ReasonQuestionsExceeded || r == ReasonExpired
}

// Prompt names the flow a client should present for a denial.
type Prompt string

const (
	PromptNone           Prompt = ""
	PromptActivate       Prompt = "activate"
	PromptRenew          Prompt = "renew"
	PromptContactSupport Prompt = "contact_support"
)

func (r Reason) Prompt() Prompt {
	switch r {
	case ReasonNone:
		return PromptNone
	case ReasonNoLicense:
		return PromptActivate
	case ReasonRevoked:
		return PromptContactSupport
	case ReasonQuestionsExceeded, ReasonExpired:
		return PromptRenew
	default:
		panic(fmt.Sprintf("license: unhandled reason %d", uint8(r)))
	}
}

type Status struct {
	Valid              bool   `json:"valid"`
	Reason             Reason `json:"reason,omitempty"`
	QuestionsRemaining int    `json:"questions_remaining"`
	DaysRemaining      int    `json:"days_remaining"`
}

// Evaluate derives the status of l at now. The question budget is checked
// before the day budget, so a license that is both exhausted and expired
// reports questions_exceeded.
func Evaluate(l *License, now time.Time) Status {
	if l == nil || !l.IsActivated() {
		return Status{Reason: ReasonNoLicense}
	}

	if l.IsRevoked() {
		return Status{Reason: ReasonRevoked}
	}

	days := DaysRemaining(l, now)

	if l.QuestionsUsed >= l.MaxQuestions {
		return Status{Reason: ReasonQuestionsExceeded, DaysRemaining: days}
	}

	questions := l.MaxQuestions - l.QuestionsUsed

	if days <= 0 {
		return Status{Reason: ReasonExpired, QuestionsRemaining: questions}
	}

	return Status{
		Valid:              true,
		QuestionsRemaining: questions,
		DaysRemaining:      days,
	}
}

// DaysRemaining is MaxDays minus whole days elapsed since activation,
// floored at zero.
func DaysRemaining(l *License, now time.Time) int {
	if l == nil || l.ActivatedAt == nil {
		return 0
	}

	elapsed := now.Sub(*l.ActivatedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	remaining := l.MaxDays - int(elapsed/day)
	if remaining < 0 {
		return 0
	}
	return remaining
}
