package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServiceURL != "http://localhost:8585" {
		t.Errorf("service url = %q", cfg.ServiceURL)
	}
	if cfg.CacheTTL != 15*time.Minute {
		t.Errorf("cache ttl = %v", cfg.CacheTTL)
	}
	if cfg.ConfigPreset != "easa-default" {
		t.Errorf("preset = %q", cfg.ConfigPreset)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "service_url: https://file.example.com\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FATIGUEVIZ_CONFIG", path)
	t.Setenv("FATIGUEVIZ_SERVICE_URL", "https://env.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServiceURL != "https://env.example.com" {
		t.Errorf("env should win over file: %q", cfg.ServiceURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("file value not applied: %q", cfg.LogLevel)
	}
}

func TestTimelineConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "timeline:\n  nadir_fraction: 0.5\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FATIGUEVIZ_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	tc := cfg.TimelineConfig()
	if tc.NadirFraction != 0.5 {
		t.Errorf("nadir fraction = %v, want override 0.5", tc.NadirFraction)
	}
	if tc.PreReportLead != 30*time.Minute {
		t.Errorf("untouched tunable changed: %v", tc.PreReportLead)
	}
}

func TestLoadRejectsEmptyServiceURL(t *testing.T) {
	t.Setenv("FATIGUEVIZ_SERVICE_URL", "")
	if _, err := Load(); err == nil {
		t.Error("expected error for empty service_url")
	}
}
