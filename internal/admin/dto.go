// AngelaMos | 2026
// dto.go

package admin

import (
	"time"

	"github.com/carterperez-dev/templates/license-gate/internal/license"
)

type CreateLicenseRequest struct {
	Code           string `json:"code"            validate:"required,max=64"`
	Type           string `json:"type"            validate:"required,max=32"`
	QuestionsTotal int    `json:"questions_total" validate:"omitempty,min=1,max=100000"`
}

type DecrementRequest struct {
	N int `json:"n" validate:"required,min=1,max=100000"`
}

type GenerateCodesRequest struct {
	Type      string `json:"type"      validate:"required,max=32"`
	Count     int    `json:"count"     validate:"required,min=1,max=500"`
	Provision bool   `json:"provision"`
}

type GenerateCodesResponse struct {
	Type        string   `json:"type"`
	Codes       []string `json:"codes"`
	Provisioned bool     `json:"provisioned"`
}

// LicenseView is a stored record together with its status at read time.
type LicenseView struct {
	license.LicenseResponse
	Evaluation license.Status `json:"evaluation"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func newLicenseView(l *license.License, now time.Time) LicenseView {
	return LicenseView{
		LicenseResponse: *license.ToLicenseResponse(l),
		Evaluation:      license.Evaluate(l, now),
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

type LicenseStats struct {
	Total         int            `json:"total"`
	Valid         int            `json:"valid"`
	QuestionsUsed int            `json:"questions_used"`
	ByTier        map[string]int `json:"by_tier"`
	ByReason      map[string]int `json:"by_reason"`
}

type SystemStatsResponse struct {
	Licenses *LicenseStats  `json:"licenses"`
	Sessions int            `json:"sessions"`
	Backend  *BackendStatus `json:"backend,omitempty"`
	Runtime  RuntimeStats   `json:"runtime"`
}

type BackendStatus struct {
	Driver   string          `json:"driver"`
	Healthy  bool            `json:"healthy"`
	Database *DBPoolStats    `json:"database,omitempty"`
	Redis    *RedisPoolStats `json:"redis,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
