// AngelaMos | 2026
// handler.go

package license

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/middleware"
)

// TokenIssuer mints the bearer token that carries a session.
type TokenIssuer interface {
	IssueSessionToken(code, sessionID, tier string) (string, time.Time, error)
}

type Handler struct {
	gate      *Gate
	sessions  *Sessions
	issuer    TokenIssuer
	validator *validator.Validate
}

func NewHandler(gate *Gate, sessions *Sessions, issuer TokenIssuer) *Handler {
	return &Handler{
		gate:      gate,
		sessions:  sessions,
		issuer:    issuer,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts /license. optionalAuth must attach session claims
// when a token is present; the remaining routes require one.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	optionalAuth func(http.Handler) http.Handler,
) {
	r.Route("/license", func(r chi.Router) {
		r.Use(optionalAuth)
		r.Post("/activate", h.Activate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)
			r.Get("/status", h.Status)
			r.Post("/admission", h.Admission)
			r.Post("/consume", h.Consume)
			r.Delete("/", h.Reset)
		})
	})
}

// Session returns the admission session named by the request's session
// token, rebuilding it from the token claims when the registry has dropped
// it. It returns nil when the request carries no session token.
func (h *Handler) Session(r *http.Request) *Session {
	claims := middleware.GetClaims(r.Context())
	if claims == nil || claims.Type != middleware.TokenTypeSession {
		return nil
	}

	return h.sessions.GetOrCreate(
		claims.SessionID,
		claims.Subject,
		requestFingerprint(r, ""),
	)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	sess := h.Session(r)
	created := sess == nil
	if created {
		sess = h.sessions.GetOrCreate(
			uuid.NewString(),
			"",
			requestFingerprint(r, req.Fingerprint),
		)
	}

	act, err := h.gate.Manager().Activate(r.Context(), sess, req.Code)
	if err != nil {
		if created {
			h.sessions.Remove(sess.ID)
		}
		core.JSONError(w, activationError(err))
		return
	}

	token, expiresAt, err := h.issuer.IssueSessionToken(
		act.License.Code,
		sess.ID,
		act.Tier.Name,
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ActivateResponse{
		License:      ToLicenseResponse(act.License),
		DisplayName:  act.DisplayName,
		Status:       act.Status,
		Existing:     act.Existing,
		SessionToken: token,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	sess := h.Session(r)
	m := h.gate.Manager()

	if err := sess.Wait(r.Context()); err != nil {
		core.JSONError(w, core.UnavailableError("pending consumption"))
		return
	}

	l := m.Current(r.Context(), sess)
	core.OK(w, StatusResponse{
		Status:  Evaluate(l, m.Now()),
		State:   sess.State().String(),
		License: ToLicenseResponse(l),
	})
}

func (h *Handler) Admission(w http.ResponseWriter, r *http.Request) {
	sess := h.Session(r)

	d, err := h.gate.OnBeforeAction(r.Context(), sess)
	if err != nil {
		core.JSONError(w, core.UnavailableError("admission check interrupted"))
		return
	}

	if !d.Allowed {
		core.JSONError(w, DenialError(d))
		return
	}

	core.OK(w, d)
}

func (h *Handler) Consume(w http.ResponseWriter, r *http.Request) {
	h.gate.OnAfterAction(r.Context(), h.Session(r))
	core.Accepted(w, ConsumeResponse{Queued: true})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	sess := h.Session(r)

	if err := sess.Wait(r.Context()); err != nil {
		core.JSONError(w, core.UnavailableError("pending consumption"))
		return
	}

	if err := h.gate.Manager().Reset(r.Context(), sess); err != nil {
		core.InternalServerError(w, err)
		return
	}

	h.sessions.Remove(sess.ID)
	core.NoContent(w)
}

// DenialError renders a refused admission. Spent budgets map to 402, a
// missing or revoked license to 403.
func DenialError(d Decision) *core.AppError {
	status := http.StatusForbidden
	code := "LICENSE_REQUIRED"
	message := "activate a license to continue"

	switch d.Reason {
	case ReasonRevoked:
		code = "LICENSE_REVOKED"
		message = "license revoked, contact support"
	case ReasonQuestionsExceeded:
		status = http.StatusPaymentRequired
		code = "QUESTIONS_EXCEEDED"
		message = "question budget exhausted, renew the license"
	case ReasonExpired:
		status = http.StatusPaymentRequired
		code = "LICENSE_EXPIRED"
		message = "license expired, renew the license"
	}

	return core.NewAppError(status, code, message, core.ErrForbidden).
		WithDetails(map[string]any{
			"reason": d.Reason.String(),
			"prompt": d.Prompt,
			"status": d.Status,
		})
}

func activationError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return core.NewAppError(
			http.StatusBadRequest,
			"INVALID_CODE",
			"invalid license code",
			err,
		)
	case errors.Is(err, ErrRevoked):
		return core.NewAppError(
			http.StatusForbidden,
			"LICENSE_REVOKED",
			"license revoked, contact support",
			err,
		)
	case errors.Is(err, ErrNotProvisioned):
		return core.NewAppError(
			http.StatusNotFound,
			"NOT_PROVISIONED",
			"license code has not been issued",
			err,
		)
	}
	return err
}

func requestFingerprint(r *http.Request, client string) string {
	return core.Fingerprint(client, r.UserAgent(), middleware.ClientIP(r))
}
