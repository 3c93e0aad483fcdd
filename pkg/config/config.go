// Package config loads process configuration by layering defaults, an
// optional YAML file, and environment variables.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/aeroviz-dev/fatigueviz/pkg/timeline"
)

// Config contains process configuration shared by the CLI and the server.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// ServiceURL is the base URL of the fatigue analysis service.
	ServiceURL string `koanf:"service_url"`

	// ServiceToken is the bearer token for the analysis service, if required.
	ServiceToken string `koanf:"service_token"`

	// Addr configures the HTTP listen address for the server binary.
	Addr string `koanf:"addr"`

	// CacheTTL bounds how long duty drill-downs and airport lookups are
	// served from memory.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// RequestTimeout caps a single analysis round trip.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// HomeTimezone overrides the home-base zone reported by the service.
	HomeTimezone string `koanf:"home_timezone"`

	// ConfigPreset names the regulatory preset sent with analysis requests.
	ConfigPreset string `koanf:"config_preset"`

	// Timeline overrides the coarse-synthesis tuning constants. Zero values
	// keep the built-in defaults.
	Timeline TimelineTuning `koanf:"timeline"`
}

// TimelineTuning exposes the timeline builder's constants to the config
// layers. Durations are plain numbers (minutes or hours) so they read
// naturally in YAML and env vars.
type TimelineTuning struct {
	PreReportLeadMinutes  float64 `koanf:"pre_report_lead_minutes"`
	PreReportCeilingBonus float64 `koanf:"pre_report_ceiling_bonus"`
	NadirFraction         float64 `koanf:"nadir_fraction"`
	LandingFraction       float64 `koanf:"landing_fraction"`
	ReleaseDrop           float64 `koanf:"release_drop"`
	RecoveryGapMinHours   float64 `koanf:"recovery_gap_min_hours"`
	WindDownDelayHours    float64 `koanf:"wind_down_delay_hours"`
	WindDownDrop          float64 `koanf:"wind_down_drop"`
	RecoveryRateMin       float64 `koanf:"recovery_rate_min"`
	RecoveryRateMax       float64 `koanf:"recovery_rate_max"`
	ReservoirDebtSlope    float64 `koanf:"reservoir_debt_slope"`
}

// TimelineConfig applies the tuning overrides on top of the builder defaults.
func (c *Config) TimelineConfig() timeline.Config {
	tc := timeline.DefaultConfig()
	t := c.Timeline
	if t.PreReportLeadMinutes > 0 {
		tc.PreReportLead = time.Duration(t.PreReportLeadMinutes * float64(time.Minute))
	}
	if t.PreReportCeilingBonus > 0 {
		tc.PreReportCeilingBonus = t.PreReportCeilingBonus
	}
	if t.NadirFraction > 0 {
		tc.NadirFraction = t.NadirFraction
	}
	if t.LandingFraction > 0 {
		tc.LandingFraction = t.LandingFraction
	}
	if t.ReleaseDrop > 0 {
		tc.ReleaseDrop = t.ReleaseDrop
	}
	if t.RecoveryGapMinHours > 0 {
		tc.RecoveryGapMin = time.Duration(t.RecoveryGapMinHours * float64(time.Hour))
	}
	if t.WindDownDelayHours > 0 {
		tc.WindDownDelay = time.Duration(t.WindDownDelayHours * float64(time.Hour))
	}
	if t.WindDownDrop > 0 {
		tc.WindDownDrop = t.WindDownDrop
	}
	if t.RecoveryRateMin > 0 {
		tc.RecoveryRateMin = t.RecoveryRateMin
	}
	if t.RecoveryRateMax > 0 {
		tc.RecoveryRateMax = t.RecoveryRateMax
	}
	if t.ReservoirDebtSlope > 0 {
		tc.ReservoirDebtSlope = t.ReservoirDebtSlope
	}
	return tc
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		ServiceURL:     "http://localhost:8585",
		Addr:           ":8080",
		CacheTTL:       15 * time.Minute,
		RequestTimeout: 60 * time.Second,
		ConfigPreset:   "easa-default",
	}
}

// Load builds a Config by layering, low to high precedence:
//  1. defaults (New())
//  2. YAML file named by FATIGUEVIZ_CONFIG, if set
//  3. environment variables with prefix FATIGUEVIZ_
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("FATIGUEVIZ_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// FATIGUEVIZ_SERVICE_URL -> service_url, matching the koanf tags.
	envProvider := env.Provider("FATIGUEVIZ_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "fatigueviz_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.ServiceURL == "" {
		return nil, errors.New("service_url must not be empty")
	}
	return &cfg, nil
}
