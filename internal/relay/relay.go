// AngelaMos | 2026
// relay.go

package relay

import (
	"context"
	"errors"
	"fmt"
)

var ErrUpstream = errors.New("upstream completion failed")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Response struct {
	Text  string
	Model string
}

// Completer produces one assistant reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// UpstreamError carries the provider's message verbatim so it can be shown
// to the caller.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream %d: %s", e.StatusCode, e.Message)
	}
	return "upstream: " + e.Message
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}
