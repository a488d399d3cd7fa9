// AngelaMos | 2026
// store.go

package license

import (
	"context"
	"time"
)

// Store persists one License per code. Get returns an error wrapping
// core.ErrNotFound when the code is unknown and Create fails with
// core.ErrDuplicateKey when the code already exists. Put is a full
// overwrite and only suits a single holder with no concurrent writers.
//
// The remaining mutations are single atomic per-code operations, so
// concurrent writers never lose each other's changes.
// AddUsage adds delta to QuestionsUsed, clamping at zero. Positive deltas
// are consumption, negative deltas the administrative override.
// MarkActivated sets ActivatedAt to at only when the record is unactivated
// and not revoked, and reports whether it did. SetStatus changes the record
// status and reports whether it changed.
type Store interface {
	Get(ctx context.Context, code string) (*License, error)
	Create(ctx context.Context, l *License) error
	Put(ctx context.Context, l *License) error
	Delete(ctx context.Context, code string) error
	List(ctx context.Context) ([]License, error)
	AddUsage(ctx context.Context, code string, delta int) (*License, error)
	MarkActivated(ctx context.Context, code string, at time.Time) (*License, bool, error)
	SetStatus(ctx context.Context, code string, status RecordStatus) (*License, bool, error)
}
