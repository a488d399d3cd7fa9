// AngelaMos | 2026
// dto.go

package license

import (
	"time"
)

type ActivateRequest struct {
	Code        string `json:"code"        validate:"required,max=64"`
	Fingerprint string `json:"fingerprint" validate:"omitempty,max=256"`
}

type LicenseResponse struct {
	Code          string     `json:"code"`
	Tier          string     `json:"tier"`
	MaxQuestions  int        `json:"max_questions"`
	MaxDays       int        `json:"max_days"`
	QuestionsUsed int        `json:"questions_used"`
	ActivatedAt   *time.Time `json:"activated_at,omitempty"`
	Status        string     `json:"status"`
}

func ToLicenseResponse(l *License) *LicenseResponse {
	if l == nil {
		return nil
	}
	return &LicenseResponse{
		Code:          l.Code,
		Tier:          l.Tier,
		MaxQuestions:  l.MaxQuestions,
		MaxDays:       l.MaxDays,
		QuestionsUsed: l.QuestionsUsed,
		ActivatedAt:   l.ActivatedAt,
		Status:        string(l.Status),
	}
}

type ActivateResponse struct {
	License      *LicenseResponse `json:"license"`
	DisplayName  string           `json:"display_name"`
	Status       Status           `json:"status"`
	Existing     bool             `json:"existing"`
	SessionToken string           `json:"session_token"`
	TokenType    string           `json:"token_type"`
	ExpiresAt    time.Time        `json:"expires_at"`
}

type StatusResponse struct {
	Status  Status           `json:"status"`
	State   string           `json:"state"`
	License *LicenseResponse `json:"license,omitempty"`
}

type ConsumeResponse struct {
	Queued bool `json:"queued"`
}
