package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "MojaPay"
	defaultEnv            = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultAccessTTL      = 15 * time.Minute
	defaultRefreshTTL     = 720 * time.Hour
	defaultTopupMin       = int64(500)
	defaultTopupMax       = int64(5_000_000)
	defaultLaneWait       = 2 * time.Second
	defaultLaneAttempts   = 3
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	Env            string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// AdminPhone and AdminPIN seed the bootstrap admin account at startup.
	// Without them no account can reach the admin-gated endpoints.
	AdminPhone string
	AdminPIN   string

	// TopupMinAmount and TopupMaxAmount bound user-submitted balance
	// requests, in minor currency units.
	TopupMinAmount int64
	TopupMaxAmount int64

	// LaneWaitTimeout is the per-attempt wait for a wallet or package lane;
	// LaneRetryAttempts bounds local retries before the call fails busy.
	LaneWaitTimeout   time.Duration
	LaneRetryAttempts int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		Env:               strings.ToLower(getEnv("APP_ENV", defaultEnv)),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		ShutdownPeriod:    defaultShutdownDelay,
		IdempotencyTTL:    defaultIdempotencyTTL,
		JWTSecret:         getEnv("JWT_SECRET", "dev-access-secret"),
		RefreshSecret:     getEnv("REFRESH_SECRET", "dev-refresh-secret"),
		AccessTokenTTL:    defaultAccessTTL,
		RefreshTokenTTL:   defaultRefreshTTL,
		AdminPhone:        os.Getenv("ADMIN_PHONE"),
		AdminPIN:          os.Getenv("ADMIN_PIN"),
		TopupMinAmount:    defaultTopupMin,
		TopupMaxAmount:    defaultTopupMax,
		LaneWaitTimeout:   defaultLaneWait,
		LaneRetryAttempts: defaultLaneAttempts,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.LaneWaitTimeout, err = durationEnv("LANE_WAIT_TIMEOUT", cfg.LaneWaitTimeout); err != nil {
		return Config{}, err
	}
	if cfg.TopupMinAmount, err = int64Env("TOPUP_MIN_AMOUNT", cfg.TopupMinAmount); err != nil {
		return Config{}, err
	}
	if cfg.TopupMaxAmount, err = int64Env("TOPUP_MAX_AMOUNT", cfg.TopupMaxAmount); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("LANE_RETRY_ATTEMPTS"); v != "" {
		attempts, convErr := strconv.Atoi(v)
		if convErr != nil {
			return Config{}, fmt.Errorf("invalid LANE_RETRY_ATTEMPTS: %w", convErr)
		}
		cfg.LaneRetryAttempts = attempts
	}

	if cfg.TopupMinAmount <= 0 || cfg.TopupMaxAmount < cfg.TopupMinAmount {
		return Config{}, fmt.Errorf("invalid top-up bounds: min=%d max=%d", cfg.TopupMinAmount, cfg.TopupMaxAmount)
	}

	if (cfg.AdminPhone == "") != (cfg.AdminPIN == "") {
		return Config{}, fmt.Errorf("ADMIN_PHONE and ADMIN_PIN must be set together")
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.Env)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.Env)
		}
	}

	return cfg, nil
}

// IsDev reports whether the configured environment is a local development one.
func (c Config) IsDev() bool {
	switch c.Env {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func int64Env(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
