// AngelaMos | 2026
// handler.go

package chat

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/license-gate/internal/config"
	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/license"
	"github.com/carterperez-dev/templates/license-gate/internal/relay"
)

type LatencyObserver interface {
	ObserveRelay(outcome string, d time.Duration)
}

type SessionResolver func(r *http.Request) *license.Session

type HandlerConfig struct {
	Gate      *license.Gate
	Sessions  SessionResolver
	Completer relay.Completer
	OpenAI    config.OpenAIConfig
	Observer  LatencyObserver
	Logger    *slog.Logger
}

// Handler answers questions behind the license gate. A unit is consumed
// only for answers that were actually delivered.
type Handler struct {
	gate        *license.Gate
	sessions    SessionResolver
	completer   relay.Completer
	temperature float64
	maxTokens   int
	observer    LatencyObserver
	logger      *slog.Logger
	validator   *validator.Validate
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		gate:        cfg.Gate,
		sessions:    cfg.Sessions,
		completer:   cfg.Completer,
		temperature: cfg.OpenAI.Temperature,
		maxTokens:   cfg.OpenAI.MaxTokens,
		observer:    cfg.Observer,
		logger:      cfg.Logger.With("component", "chat"),
		validator:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts /chat behind mws, which must establish a license
// session.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	mws ...func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(mws...)
		r.Post("/chat", h.Chat)
	})
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	query, err := relay.NormalizeQuery(req.Query)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	mode := relay.ParseMode(req.Mode)
	lang := relay.ParseLang(req.Lang)
	ctx := r.Context()
	sess := h.sessions(r)

	d, err := h.gate.OnBeforeAction(ctx, sess)
	if err != nil {
		core.JSONError(w, core.UnavailableError("admission check interrupted"))
		return
	}
	if !d.Allowed {
		core.JSONError(w, license.DenialError(d))
		return
	}

	spanCtx, span := core.StartSpan(ctx, "chat", "chat.complete",
		attribute.String("chat.mode", string(mode)),
		attribute.String("chat.lang", string(lang)),
		attribute.Bool("license.grace", d.Grace),
	)
	start := time.Now()
	resp, err := h.completer.Complete(spanCtx, relay.BuildRequest(
		lang, mode, req.History, query, h.temperature, h.maxTokens,
	))
	if err != nil {
		core.SetSpanError(spanCtx, err)
		span.End()

		h.observe("error", time.Since(start))
		h.logger.WarnContext(ctx, "completion failed",
			"error", err,
			"session_id", sess.ID,
			"mode", mode,
			"trace_id", core.TraceIDFromContext(spanCtx),
		)

		var upErr *relay.UpstreamError
		if errors.As(err, &upErr) {
			core.JSONError(w, core.UpstreamError(upErr.Message))
			return
		}
		core.JSONError(w, core.UpstreamError("completion unavailable"))
		return
	}
	span.End()
	h.observe("success", time.Since(start))

	h.gate.OnAfterAction(ctx, sess)

	h.logger.InfoContext(ctx, "question answered",
		"session_id", sess.ID,
		"mode", mode,
		"lang", lang,
		"query_length", len([]rune(query)),
		"reply_length", len(resp.Text),
		"grace", d.Grace,
	)

	core.OK(w, Response{
		Reply: resp.Text,
		Mode:  string(mode),
		Lang:  string(lang),
		Model: resp.Model,
		Grace: d.Grace,
	})
}

func (h *Handler) observe(outcome string, d time.Duration) {
	if h.observer != nil {
		h.observer.ObserveRelay(outcome, d)
	}
}
