// AngelaMos | 2026
// manager.go

package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/quartz"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/license-gate/internal/core"
)

const tracerName = "license"

// Recorder receives lifecycle events for metrics. All methods must be safe
// for concurrent use.
type Recorder interface {
	Activation(tier, result string)
	Admission(allowed bool, reason string)
	Consumption(tier, reason string)
}

type ManagerConfig struct {
	Store              Store
	Tiers              *Tiers
	Clock              quartz.Clock
	Logger             *slog.Logger
	Recorder           Recorder
	RequireProvisioned bool
	// SingleHolder marks a store that only ever holds the license of the
	// local user. Unbound sessions then resolve to the stored record.
	SingleHolder bool
}

// Manager runs activation, admission and consumption for sessions. It is
// the only component that mutates license records in normal flow.
type Manager struct {
	store              Store
	tiers              *Tiers
	clock              quartz.Clock
	logger             *slog.Logger
	recorder           Recorder
	requireProvisioned bool
	singleHolder       bool
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Tiers == nil {
		cfg.Tiers = DefaultTiers()
	}

	return &Manager{
		store:              cfg.Store,
		tiers:              cfg.Tiers,
		clock:              cfg.Clock,
		logger:             cfg.Logger.With("component", "license_manager"),
		recorder:           cfg.Recorder,
		requireProvisioned: cfg.RequireProvisioned,
		singleHolder:       cfg.SingleHolder,
	}
}

func (m *Manager) Tiers() *Tiers {
	return m.tiers
}

func (m *Manager) Now() time.Time {
	return m.clock.Now()
}

type Activation struct {
	License     *License
	Tier        *Tier
	DisplayName string
	Status      Status
	// Existing is set when the code had already been activated and the
	// stored record was returned unchanged.
	Existing bool
}

// Activate validates raw and, on success, persists an activated record and
// binds sess to it. An invalid code never touches the store.
func (m *Manager) Activate(
	ctx context.Context,
	sess *Session,
	raw string,
) (*Activation, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "license.activate")
	defer span.End()

	prev := sess.State()
	sess.setState(StateActivating)

	act, err := m.activate(ctx, raw)
	if err != nil {
		sess.setState(prev)
		m.recorder.Activation("", activationResult(err))
		if !errors.Is(err, ErrInvalidCode) {
			core.SetSpanError(ctx, err)
		}
		return nil, err
	}

	sess.bind(act.License.Code)
	m.recorder.Activation(act.Tier.Name, "success")

	span.SetAttributes(
		attribute.String("license.tier", act.Tier.Name),
		attribute.Bool("license.existing", act.Existing),
	)

	m.logger.InfoContext(ctx, "license activated",
		"tier", act.Tier.Name,
		"existing", act.Existing,
		"session_id", sess.ID,
		"questions_remaining", act.Status.QuestionsRemaining,
		"days_remaining", act.Status.DaysRemaining,
	)

	return act, nil
}

func (m *Manager) activate(ctx context.Context, raw string) (*Activation, error) {
	v, err := m.tiers.Validate(raw)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()

	l, stamped, err := m.store.MarkActivated(ctx, v.Code, now)
	if errors.Is(err, core.ErrNotFound) {
		if m.requireProvisioned {
			return nil, fmt.Errorf("activate: %w", ErrNotProvisioned)
		}

		created := newLicense(v.Code, v.Tier, now)
		if m.singleHolder {
			// the local slot is replaced, whatever it held
			if err := m.store.Put(ctx, created); err != nil {
				return nil, fmt.Errorf("activate: %w", err)
			}
			return m.activation(created, v.Tier, now, false), nil
		}

		err = m.store.Create(ctx, created)
		if err == nil {
			return m.activation(created, v.Tier, now, false), nil
		}
		if !errors.Is(err, core.ErrDuplicateKey) {
			return nil, fmt.Errorf("activate: %w", err)
		}

		// another activation created the record first
		l, stamped, err = m.store.MarkActivated(ctx, v.Code, now)
	}
	if err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}

	if l.IsRevoked() {
		return nil, fmt.Errorf("activate: %w", ErrRevoked)
	}

	return m.activation(l, v.Tier, now, !stamped), nil
}

func (m *Manager) activation(
	l *License,
	tier *Tier,
	now time.Time,
	existing bool,
) *Activation {
	return &Activation{
		License:     l,
		Tier:        tier,
		DisplayName: tier.DisplayName,
		Status:      Evaluate(l, now),
		Existing:    existing,
	}
}

// Current returns the record the session is bound to. Read failures other
// than not-found are logged and reported as absent, so a damaged record
// degrades to no_license instead of failing the caller.
func (m *Manager) Current(ctx context.Context, sess *Session) *License {
	code := sess.Code()

	if code == "" {
		if !m.singleHolder {
			return nil
		}
		all, err := m.store.List(ctx)
		if err != nil {
			m.logger.WarnContext(ctx, "license store list failed", "error", err)
			return nil
		}
		if len(all) == 0 {
			return nil
		}
		l := all[0]
		return &l
	}

	l, err := m.store.Get(ctx, code)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			m.logger.WarnContext(ctx, "license store read failed",
				"error", err,
				"session_id", sess.ID,
			)
		}
		return nil
	}
	return l
}

// Status evaluates the session's record at the current time.
func (m *Manager) Status(ctx context.Context, sess *Session) Status {
	return Evaluate(m.Current(ctx, sess), m.clock.Now())
}

// Decision is the outcome of an admission pre-check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
	Prompt  Prompt `json:"prompt,omitempty"`
	// Grace marks an admission granted on a spent license because the
	// action that spent it has not been answered yet.
	Grace  bool   `json:"grace"`
	Status Status `json:"status"`
}

// PreCheck decides whether the protected action may proceed. It first waits
// for the session's queued consumptions, so it always sees the effect of
// the previous action.
func (m *Manager) PreCheck(ctx context.Context, sess *Session) (Decision, error) {
	if err := sess.Wait(ctx); err != nil {
		return Decision{}, fmt.Errorf("pre-check: %w", err)
	}

	ctx, span := core.StartSpan(ctx, tracerName, "license.precheck")
	defer span.End()

	st := m.Status(ctx, sess)
	d := Decision{Status: st, Reason: st.Reason}

	switch {
	case st.Valid:
		sess.setState(StateAdmitted)
		d.Allowed = true

	case st.Reason.Exhausted():
		d.Allowed = sess.admitExhausted()
		d.Grace = d.Allowed
		if d.Grace {
			core.AddSpanEvent(ctx, "license.grace_admission",
				attribute.String("license.reason", st.Reason.String()),
			)
		}

	default:
		if st.Reason == ReasonRevoked {
			sess.setState(StateBlocked)
		} else {
			sess.setState(StateUnknown)
		}
	}

	if !d.Allowed {
		d.Prompt = st.Reason.Prompt()
	}

	span.SetAttributes(
		attribute.Bool("license.allowed", d.Allowed),
		attribute.String("license.reason", st.Reason.String()),
		attribute.Bool("license.grace", d.Grace),
	)
	m.recorder.Admission(d.Allowed, st.Reason.String())

	return d, nil
}

// Consume records one spent question for the session's license. When the
// fresh status shows a spent budget the session is armed to block on its
// next pre-check.
func (m *Manager) Consume(ctx context.Context, sess *Session) (Status, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "license.consume")
	defer span.End()

	code := sess.Code()
	if code == "" {
		if l := m.Current(ctx, sess); l != nil {
			code = l.Code
		}
	}
	if code == "" {
		return Status{Reason: ReasonNoLicense}, nil
	}

	l, err := m.store.AddUsage(ctx, code, 1)
	if err != nil {
		core.SetSpanError(ctx, err)
		return Status{}, fmt.Errorf("consume: %w", err)
	}

	st := Evaluate(l, m.clock.Now())
	if st.Reason.Exhausted() {
		sess.armDeferredBlock()
	}

	m.recorder.Consumption(l.Tier, st.Reason.String())
	m.logger.DebugContext(ctx, "license unit consumed",
		"session_id", sess.ID,
		"questions_used", l.QuestionsUsed,
		"reason", st.Reason.String(),
	)

	return st, nil
}

// Reset deletes the session's record and unbinds the session.
func (m *Manager) Reset(ctx context.Context, sess *Session) error {
	l := m.Current(ctx, sess)
	sess.unbind()

	if l == nil {
		return nil
	}

	if err := m.store.Delete(ctx, l.Code); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("reset: %w", err)
	}

	m.logger.InfoContext(ctx, "license reset", "session_id", sess.ID)
	return nil
}

func activationResult(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrNotProvisioned):
		return "not_provisioned"
	default:
		return "error"
	}
}

type nopRecorder struct{}

func (nopRecorder) Activation(string, string)  {}
func (nopRecorder) Admission(bool, string)     {}
func (nopRecorder) Consumption(string, string) {}
