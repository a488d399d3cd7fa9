// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	License   LicenseConfig   `koanf:"license"`
	JWT       JWTConfig       `koanf:"jwt"`
	Admin     AdminConfig     `koanf:"admin"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type StoreConfig struct {
	Driver   string `koanf:"driver"`
	FilePath string `koanf:"file_path"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
	KeyPrefix    string `koanf:"key_prefix"`
}

// TierConfig describes one license class. Alphabet is the multiset every
// code body of the tier must be a permutation of.
type TierConfig struct {
	Name         string `koanf:"name"`
	Prefix       string `koanf:"prefix"`
	Alphabet     string `koanf:"alphabet"`
	DisplayName  string `koanf:"display_name"`
	MaxQuestions int    `koanf:"max_questions"`
	MaxDays      int    `koanf:"max_days"`
}

type LicenseConfig struct {
	Tiers              []TierConfig  `koanf:"tiers"`
	RequireProvisioned bool          `koanf:"require_provisioned"`
	ConsumeDelay       time.Duration `koanf:"consume_delay"`
	SessionTTL         time.Duration `koanf:"session_ttl"`
}

type JWTConfig struct {
	PrivateKeyPath     string        `koanf:"private_key_path"`
	PublicKeyPath      string        `koanf:"public_key_path"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"`
	SessionTokenExpire time.Duration `koanf:"session_token_expire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

type AdminConfig struct {
	PasswordHash string `koanf:"password_hash"`
}

type OpenAIConfig struct {
	APIKey      string        `koanf:"api_key"`
	BaseURL     string        `koanf:"base_url"`
	Model       string        `koanf:"model"`
	Temperature float64       `koanf:"temperature"`
	MaxTokens   int           `koanf:"max_tokens"`
	Timeout     time.Duration `koanf:"timeout"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

// DefaultTiers is the two-tier scheme codes are generated for.
func DefaultTiers() []TierConfig {
	return []TierConfig{
		{
			Name:         "BASIC",
			Prefix:       "B",
			Alphabet:     "1974IUL",
			DisplayName:  "Basic",
			MaxQuestions: 10,
			MaxDays:      30,
		},
		{
			Name:         "PREMIUM",
			Prefix:       "P",
			Alphabet:     "2580KMR",
			DisplayName:  "Premium",
			MaxQuestions: 100,
			MaxDays:      365,
		},
	}
}

func defaults() map[string]any {
	tiers := make([]map[string]any, 0, len(DefaultTiers()))
	for _, t := range DefaultTiers() {
		tiers = append(tiers, map[string]any{
			"name":          t.Name,
			"prefix":        t.Prefix,
			"alphabet":      t.Alphabet,
			"display_name":  t.DisplayName,
			"max_questions": t.MaxQuestions,
			"max_days":      t.MaxDays,
		})
	}

	return map[string]any{
		"app.name":        "License Gate",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "90s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"store.driver":    StoreMemory,
		"store.file_path": "license.json",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,
		"redis.key_prefix":     "license",

		"license.tiers":               tiers,
		"license.require_provisioned": false,
		"license.consume_delay":       "0s",
		"license.session_ttl":         "24h",

		"jwt.access_token_expire":  "15m",
		"jwt.session_token_expire": "720h",
		"jwt.issuer":               "license-gate",
		"jwt.audience":             "license-gate-api",
		"jwt.private_key_path":     "keys/private.pem",
		"jwt.public_key_path":      "keys/public.pem",

		"openai.model":       "gpt-4o-mini",
		"openai.temperature": 0.7,
		"openai.max_tokens":  1200,
		"openai.timeout":     "60s",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Device-Fingerprint",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "license-gate",
	}
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"STORE_DRIVER":                "store.driver",
	"STORE_FILE_PATH":             "store.file_path",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"LICENSE_REQUIRE_PROVISIONED": "license.require_provisioned",
	"LICENSE_CONSUME_DELAY":       "license.consume_delay",
	"LICENSE_SESSION_TTL":         "license.session_ttl",
	"ADMIN_PASSWORD_HASH":         "admin.password_hash",
	"OPENAI_API_KEY":              "openai.api_key",
	"OPENAI_BASE_URL":             "openai.base_url",
	"OPENAI_MODEL":                "openai.model",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_SESSION_TOKEN_EXPIRE":    "jwt.session_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	switch c.Store.Driver {
	case StoreMemory:
	case StoreFile:
		if c.Store.FilePath == "" {
			return fmt.Errorf("STORE_FILE_PATH is required for the file store")
		}
	case StorePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if err := validateTiers(c.License.Tiers); err != nil {
		return err
	}

	if c.License.ConsumeDelay < 0 {
		return fmt.Errorf("license.consume_delay must not be negative")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func validateTiers(tiers []TierConfig) error {
	if len(tiers) == 0 {
		return fmt.Errorf("license.tiers must define at least one tier")
	}

	prefixes := make(map[string]string, len(tiers))
	names := make(map[string]struct{}, len(tiers))
	bodyLen := len(tiers[0].Alphabet)

	for _, t := range tiers {
		name := strings.ToUpper(t.Name)
		if name == "" {
			return fmt.Errorf("license tier without a name")
		}
		if _, dup := names[name]; dup {
			return fmt.Errorf("license tier %s defined twice", name)
		}
		names[name] = struct{}{}

		if len(t.Prefix) != 1 {
			return fmt.Errorf("license tier %s: prefix must be one character", name)
		}
		prefix := strings.ToUpper(t.Prefix)
		if other, dup := prefixes[prefix]; dup {
			return fmt.Errorf(
				"license tier %s: prefix %s already used by %s",
				name, prefix, other,
			)
		}
		prefixes[prefix] = name

		if t.Alphabet == "" || len(t.Alphabet) != bodyLen {
			return fmt.Errorf(
				"license tier %s: alphabet must be %d characters",
				name, bodyLen,
			)
		}
		if t.MaxQuestions <= 0 || t.MaxDays <= 0 {
			return fmt.Errorf("license tier %s: budgets must be positive", name)
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
