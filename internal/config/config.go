// Package config loads server configuration from an optional config file and
// SALESOPS_-prefixed environment variables, with working defaults for
// everything except the reasoning-service credential.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Reasoning ReasoningConfig
	Pricing   PricingConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Addr string
}

type StoreConfig struct {
	SQLitePath string
}

type ReasoningConfig struct {
	Model   string
	Timeout time.Duration
}

type PricingConfig struct {
	// Base target per tier, integer dollars.
	EssentialTarget int
	GrowthTarget    int
	PremiumTarget   int
	// Derived bound margins relative to target.
	FloorPct   float64
	CeilingPct float64
}

type LoggingConfig struct {
	Level  string
	Format string
}

type TracingConfig struct {
	OTLPEndpoint string
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SALESOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8090")
	v.SetDefault("store.sqlite_path", "salesops.db")
	v.SetDefault("reasoning.model", "claude-sonnet-4-20250514")
	v.SetDefault("reasoning.timeout_seconds", 60)
	v.SetDefault("pricing.essential_target", 600)
	v.SetDefault("pricing.growth_target", 1200)
	v.SetDefault("pricing.premium_target", 2200)
	v.SetDefault("pricing.floor_pct", 0.90)
	v.SetDefault("pricing.ceiling_pct", 1.15)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("tracing.otlp_endpoint", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{Addr: v.GetString("server.addr")},
		Store:  StoreConfig{SQLitePath: v.GetString("store.sqlite_path")},
		Reasoning: ReasoningConfig{
			Model:   v.GetString("reasoning.model"),
			Timeout: time.Duration(v.GetInt("reasoning.timeout_seconds")) * time.Second,
		},
		Pricing: PricingConfig{
			EssentialTarget: v.GetInt("pricing.essential_target"),
			GrowthTarget:    v.GetInt("pricing.growth_target"),
			PremiumTarget:   v.GetInt("pricing.premium_target"),
			FloorPct:        v.GetFloat64("pricing.floor_pct"),
			CeilingPct:      v.GetFloat64("pricing.ceiling_pct"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Tracing: TracingConfig{OTLPEndpoint: v.GetString("tracing.otlp_endpoint")},
	}
	if cfg.Reasoning.Timeout <= 0 {
		return nil, fmt.Errorf("reasoning timeout must be positive")
	}
	return cfg, nil
}

// TargetForTier maps a tier label to its configured base target.
func (p PricingConfig) TargetForTier(tier string) int {
	switch strings.ToLower(tier) {
	case "premium":
		return p.PremiumTarget
	case "growth":
		return p.GrowthTarget
	default:
		return p.EssentialTarget
	}
}
