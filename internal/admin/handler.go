// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"net/http"
	"runtime"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/license"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Handler struct {
	service    *Service
	sessions   func() int
	driver     string
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	ping       func(ctx context.Context) error
	validator  *validator.Validate
}

type HandlerConfig struct {
	Service *Service
	// Sessions reports the number of live admission sessions.
	Sessions   func() int
	Driver     string
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	Ping       func(ctx context.Context) error
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		service:    cfg.Service,
		sessions:   cfg.Sessions,
		driver:     cfg.Driver,
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		ping:       cfg.Ping,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/licenses", h.CreateLicense)
		r.Get("/licenses", h.ListLicenses)
		r.Post("/licenses/{code}/decrement", h.Decrement)
		r.Post("/licenses/{code}/revoke", h.Revoke)
		r.Post("/codes", h.GenerateCodes)
		r.Get("/stats", h.GetSystemStats)
	})
}

func (h *Handler) CreateLicense(w http.ResponseWriter, r *http.Request) {
	var req CreateLicenseRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	l, err := h.service.CreateLicense(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.Created(w, newLicenseView(l, h.service.clock.Now()))
}

func (h *Handler) ListLicenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(q.Get("page"), 1, 1, math.MaxInt32)
	pageSize := queryInt(q.Get("page_size"), defaultPageSize, 1, maxPageSize)

	views, err := h.service.ListLicenses(r.Context(), q.Get("type"))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	total := len(views)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	core.Paginated(w, views[start:end], page, pageSize, total)
}

func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	var req DecrementRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	view, err := h.service.Decrement(r.Context(), chi.URLParam(r, "code"), req.N)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, view)
}

func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Revoke(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, view)
}

func (h *Handler) GenerateCodes(w http.ResponseWriter, r *http.Request) {
	var req GenerateCodesRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.GenerateCodes(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if resp.Provisioned {
		core.Created(w, resp)
		return
	}
	core.OK(w, resp)
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.service.Stats(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := SystemStatsResponse{
		Licenses: stats,
		Backend:  h.backendStatus(ctx),
		Runtime: RuntimeStats{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
			MemAlloc:     memStats.Alloc,
			MemSys:       memStats.Sys,
			NumGC:        memStats.NumGC,
		},
	}
	if h.sessions != nil {
		response.Sessions = h.sessions()
	}

	core.OK(w, response)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownType), errors.Is(err, ErrTypeMismatch):
		core.BadRequest(w, err.Error())
	case errors.Is(err, license.ErrInvalidCode):
		core.JSONError(w, core.NewAppError(
			http.StatusBadRequest, "INVALID_CODE", "invalid license code", err,
		))
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("code"))
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "license")
	default:
		core.InternalServerError(w, err)
	}
}

func (h *Handler) backendStatus(ctx context.Context) *BackendStatus {
	if h.ping == nil && h.dbStats == nil && h.redisStats == nil {
		return nil
	}

	status := &BackendStatus{Driver: h.driver, Healthy: true}
	if h.ping != nil {
		status.Healthy = h.ping(ctx) == nil
	}

	if h.dbStats != nil {
		stats := h.dbStats()
		status.Database = &DBPoolStats{
			MaxOpenConnections: stats.MaxOpenConnections,
			OpenConnections:    stats.OpenConnections,
			InUse:              stats.InUse,
			Idle:               stats.Idle,
			WaitCount:          stats.WaitCount,
			WaitDuration:       stats.WaitDuration.String(),
		}
	}

	if h.redisStats != nil {
		stats := h.redisStats()
		status.Redis = &RedisPoolStats{
			Hits:       stats.Hits,
			Misses:     stats.Misses,
			Timeouts:   stats.Timeouts,
			TotalConns: stats.TotalConns,
			IdleConns:  stats.IdleConns,
		}
	}

	return status
}

func queryInt(raw string, def, lo, hi int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return max(lo, min(n, hi))
}
