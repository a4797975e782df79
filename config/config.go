package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "PREPASS"

// devJWTSecret signs tokens when no secret is configured outside production.
const devJWTSecret = "prepass-dev-secret"

// Config holds everything the server needs to start.
type Config struct {
	Mode string
	Port int

	DBDriver string
	DSN      string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	AIBaseURL    string
	AIAPIKey     string
	AIModel      string
	AIMaxRetries int
	AITimeout    time.Duration

	MaxFileBytes      int64
	MaxImageDimension int
	AnalyzePerMinute  int

	CORSOrigins []string
	SessionIdle time.Duration
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", "dev")
	v.SetDefault("port", 8080)
	v.SetDefault("db-driver", "sqlite")
	v.SetDefault("dsn", "prepass_dev.db")
	v.SetDefault("jwt-issuer", "prepass")
	v.SetDefault("jwt-audience", "authenticated")
	v.SetDefault("ai-base-url", "https://ai.gateway.lovable.dev/v1")
	v.SetDefault("ai-model", "google/gemini-2.5-flash")
	v.SetDefault("ai-max-retries", 3)
	v.SetDefault("ai-timeout", 60*time.Second)
	v.SetDefault("max-file-bytes", 10<<20)
	v.SetDefault("max-image-dimension", 2048)
	v.SetDefault("analyze-per-minute", 6)
	v.SetDefault("cors-origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("session-idle", 2*time.Hour)
}

// NewViper returns a viper instance reading PREPASS_* environment variables,
// so that the key "db-driver" is read from PREPASS_DB_DRIVER.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load builds a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Mode:              strings.ToLower(v.GetString("mode")),
		Port:              v.GetInt("port"),
		DBDriver:          strings.ToLower(v.GetString("db-driver")),
		DSN:               v.GetString("dsn"),
		JWTSecret:         v.GetString("jwt-secret"),
		JWTIssuer:         v.GetString("jwt-issuer"),
		JWTAudience:       v.GetString("jwt-audience"),
		AIBaseURL:         v.GetString("ai-base-url"),
		AIAPIKey:          v.GetString("ai-api-key"),
		AIModel:           v.GetString("ai-model"),
		AIMaxRetries:      v.GetInt("ai-max-retries"),
		AITimeout:         v.GetDuration("ai-timeout"),
		MaxFileBytes:      v.GetInt64("max-file-bytes"),
		MaxImageDimension: v.GetInt("max-image-dimension"),
		AnalyzePerMinute:  v.GetInt("analyze-per-minute"),
		CORSOrigins:       splitList(v.GetStringSlice("cors-origins")),
		SessionIdle:       v.GetDuration("session-idle"),
	}
	if cfg.JWTSecret == "" && cfg.IsDev() {
		cfg.JWTSecret = devJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDev reports whether the server runs outside production.
func (c *Config) IsDev() bool {
	return c.Mode != "prod"
}

// AIEnabled reports whether notes analysis can reach the gateway.
func (c *Config) AIEnabled() bool {
	return c.AIAPIKey != ""
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Mode != "dev" && c.Mode != "prod" {
		return errors.Errorf("unknown mode %q, want dev or prod", c.Mode)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return errors.Errorf("unsupported database driver %q", c.DBDriver)
	}
	if c.DSN == "" {
		return errors.New("dsn is required")
	}
	if c.JWTIssuer == "" || c.JWTAudience == "" {
		return errors.New("jwt-issuer and jwt-audience are required")
	}
	if !c.IsDev() {
		if c.JWTSecret == "" {
			return errors.New("jwt-secret is required in prod")
		}
		if !c.AIEnabled() {
			return errors.New("ai-api-key is required in prod")
		}
	}
	if c.MaxFileBytes <= 0 {
		return errors.New("max-file-bytes must be positive")
	}
	if c.AnalyzePerMinute <= 0 {
		return errors.New("analyze-per-minute must be positive")
	}
	return nil
}

// splitList accepts both repeated values and a single comma separated
// environment value.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
