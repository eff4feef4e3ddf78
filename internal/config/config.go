// Package config centralizes the environment-driven startup
// configuration, rather than scattering os.Getenv calls across
// cmd/api/main.go and internal/app/app.go: there are enough required
// knobs (signing key, hash cost parameters, per-category rate tables)
// that scattering the reads would make "missing required value is
// fatal" impossible to audit in one place.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	RedisAddr string

	KafkaBroker string

	// SigningKey signs bearer access tokens. Must be at least 32 bytes.
	SigningKey []byte

	AccessTokenTTL        time.Duration
	RefreshTokenTTL       time.Duration
	RememberMeRefreshTTL  time.Duration
	InviteTokenTTL        time.Duration
	PasswordResetTokenTTL time.Duration

	CORSOrigins []string

	AdminSeedEmail    string
	AdminSeedPassword string

	// DefaultAnnualAllocationDays seeds a new user's VacationAllocation
	// for the period they're resolved into at creation time, consumed by
	// the lifecycle worker rather than the request path (the vacation
	// package never writes TotalDays itself).
	DefaultAnnualAllocationDays int

	Hash HashParams

	RateLimits RateLimitTable
}

type HashParams struct {
	TimeCost   uint32
	MemoryKiB  uint32
	Parallelism uint8
	SaltLen    uint32
	KeyLen     uint32
}

// RateLimitRule is a single (limit, window) pair for a RateGate category.
type RateLimitRule struct {
	Limit  int
	Window time.Duration
}

// RateLimitTable holds the per-category defaults, overridable
// individually via RATE_LIMIT_<CATEGORY>_LIMIT / _WINDOW_SECONDS.
type RateLimitTable struct {
	Login                  RateLimitRule
	PasswordResetRequest   RateLimitRule
	PasswordResetConfirm   RateLimitRule
	Refresh                RateLimitRule
	VacationWrite          RateLimitRule
	VacationRead           RateLimitRule
	Export                 RateLimitRule
	APIDefault             RateLimitRule
}

func defaultRateLimits() RateLimitTable {
	return RateLimitTable{
		Login:                RateLimitRule{Limit: 5, Window: 60 * time.Second},
		PasswordResetRequest: RateLimitRule{Limit: 3, Window: 3600 * time.Second},
		PasswordResetConfirm: RateLimitRule{Limit: 10, Window: 3600 * time.Second},
		Refresh:              RateLimitRule{Limit: 30, Window: 60 * time.Second},
		VacationWrite:        RateLimitRule{Limit: 60, Window: 3600 * time.Second},
		VacationRead:         RateLimitRule{Limit: 200, Window: 3600 * time.Second},
		Export:               RateLimitRule{Limit: 10, Window: 86400 * time.Second},
		APIDefault:           RateLimitRule{Limit: 1000, Window: 3600 * time.Second},
	}
}

// Load reads the process environment into a Config and returns an error
// when a required value is missing or invalid (such as a signing key
// shorter than 32 bytes); exiting on that error is left to the caller.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvDefault("PORT", "3000"),
		DBHost:      os.Getenv("DB_HOST"),
		DBUser:      os.Getenv("DB_USER"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      os.Getenv("DB_NAME"),
		DBPort:      getEnvDefault("DB_PORT", "5432"),
		DBSSLMode:   getEnvDefault("DB_SSLMODE", "disable"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		KafkaBroker: os.Getenv("KAFKA_BROKER"),

		AdminSeedEmail:    os.Getenv("ADMIN_SEED_EMAIL"),
		AdminSeedPassword: os.Getenv("ADMIN_SEED_PASSWORD"),

		DefaultAnnualAllocationDays: getEnvIntDefault("DEFAULT_ANNUAL_ALLOCATION_DAYS", 20),

		RateLimits: defaultRateLimits(),
	}

	signingKey := os.Getenv("SIGNING_KEY")
	if len(signingKey) < 32 {
		return nil, fmt.Errorf("SIGNING_KEY must be set and at least 32 bytes long")
	}
	cfg.SigningKey = []byte(signingKey)

	for _, req := range []struct {
		name, val string
	}{
		{"DB_HOST", cfg.DBHost},
		{"DB_USER", cfg.DBUser},
		{"DB_NAME", cfg.DBName},
	} {
		if req.val == "" {
			return nil, fmt.Errorf("%s is required", req.name)
		}
	}

	cfg.AccessTokenTTL = getEnvDurationMinutes("ACCESS_TOKEN_TTL_MINUTES", 15)
	cfg.RefreshTokenTTL = getEnvDurationHours("REFRESH_TOKEN_TTL_HOURS", 24*7)
	cfg.RememberMeRefreshTTL = getEnvDurationHours("REMEMBER_ME_REFRESH_TTL_HOURS", 24*30)
	cfg.InviteTokenTTL = getEnvDurationHours("INVITE_TOKEN_TTL_HOURS", 24*7)
	cfg.PasswordResetTokenTTL = getEnvDurationHours("PASSWORD_RESET_TOKEN_TTL_HOURS", 1)

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}

	cfg.Hash = HashParams{
		TimeCost:    uint32(getEnvIntDefault("ARGON2_TIME_COST", 2)),
		MemoryKiB:   uint32(getEnvIntDefault("ARGON2_MEMORY_KIB", 64*1024)),
		Parallelism: uint8(getEnvIntDefault("ARGON2_PARALLELISM", 4)),
		SaltLen:     16,
		KeyLen:      32,
	}

	applyRateLimitOverride("LOGIN", &cfg.RateLimits.Login)
	applyRateLimitOverride("PASSWORD_RESET_REQUEST", &cfg.RateLimits.PasswordResetRequest)
	applyRateLimitOverride("PASSWORD_RESET_CONFIRM", &cfg.RateLimits.PasswordResetConfirm)
	applyRateLimitOverride("REFRESH", &cfg.RateLimits.Refresh)
	applyRateLimitOverride("VACATION_WRITE", &cfg.RateLimits.VacationWrite)
	applyRateLimitOverride("VACATION_READ", &cfg.RateLimits.VacationRead)
	applyRateLimitOverride("EXPORT", &cfg.RateLimits.Export)
	applyRateLimitOverride("API_DEFAULT", &cfg.RateLimits.APIDefault)

	return cfg, nil
}

func applyRateLimitOverride(prefix string, rule *RateLimitRule) {
	if v := os.Getenv("RATE_LIMIT_" + prefix + "_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rule.Limit = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_" + prefix + "_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rule.Window = time.Duration(n) * time.Second
		}
	}
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDurationMinutes(key string, fallbackMinutes int) time.Duration {
	return time.Duration(getEnvIntDefault(key, fallbackMinutes)) * time.Minute
}

func getEnvDurationHours(key string, fallbackHours int) time.Duration {
	return time.Duration(getEnvIntDefault(key, fallbackHours)) * time.Hour
}
