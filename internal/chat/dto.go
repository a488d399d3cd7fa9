// AngelaMos | 2026
// dto.go

package chat

import (
	"github.com/carterperez-dev/templates/license-gate/internal/relay"
)

type Request struct {
	Query   string          `json:"query"   validate:"required"`
	Mode    string          `json:"mode"    validate:"omitempty,max=32"`
	Lang    string          `json:"lang"    validate:"omitempty,max=8"`
	History []relay.Message `json:"history" validate:"max=20,dive"`
}

type Response struct {
	Reply string `json:"reply"`
	Mode  string `json:"mode"`
	Lang  string `json:"lang"`
	Model string `json:"model"`
	// Grace is set when the answer was served on an already spent license;
	// the next question will be refused.
	Grace bool `json:"grace"`
}
