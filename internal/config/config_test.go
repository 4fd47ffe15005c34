package config

import (
	"testing"
	"time"

	"github.com/lastpick/survival-pool/internal/platform/logging"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.AppEnv != EnvDev {
		t.Fatalf("unexpected app env: %s", cfg.AppEnv)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTPAddr)
	}
	if cfg.LockLeadTime != 90*time.Minute {
		t.Fatalf("unexpected lock lead time: %s", cfg.LockLeadTime)
	}
	if cfg.SweepInterval != time.Minute {
		t.Fatalf("unexpected sweep interval: %s", cfg.SweepInterval)
	}
	if cfg.LogLevel != logging.LevelInfo {
		t.Fatalf("unexpected log level: %v", cfg.LogLevel)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_InvalidAppEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid APP_ENV")
	}
}

func TestLoad_LockLeadTimeOverride(t *testing.T) {
	t.Setenv("LOCK_LEAD_TIME", "2h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LockLeadTime != 2*time.Hour {
		t.Fatalf("unexpected lock lead time: %s", cfg.LockLeadTime)
	}
}

func TestLoad_LockLeadTimeRejectsNonPositive(t *testing.T) {
	t.Setenv("LOCK_LEAD_TIME", "-5m")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative LOCK_LEAD_TIME")
	}
}

func TestLoad_LedgerRequiresURLAndToken(t *testing.T) {
	t.Setenv("LEDGER_ENABLED", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when ledger enabled without base url")
	}

	t.Setenv("LEDGER_BASE_URL", "https://ledger.internal")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when ledger enabled without token")
	}

	t.Setenv("LEDGER_TOKEN", "secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.LedgerEnabled {
		t.Fatal("ledger should be enabled")
	}
}

func TestLoad_FeedRequiresURL(t *testing.T) {
	t.Setenv("FEED_ENABLED", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when feed enabled without base url")
	}

	t.Setenv("FEED_BASE_URL", "https://results.internal")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.FeedEnabled || cfg.FeedPollInterval != 2*time.Minute {
		t.Fatalf("unexpected feed config: enabled=%v interval=%s", cfg.FeedEnabled, cfg.FeedPollInterval)
	}
}

func TestLoad_LogLevelParsing(t *testing.T) {
	cases := map[string]logging.Level{
		"debug":   logging.LevelDebug,
		"warn":    logging.LevelWarn,
		"warning": logging.LevelWarn,
		"error":   logging.LevelError,
		"bogus":   logging.LevelInfo,
	}

	for raw, want := range cases {
		t.Setenv("APP_LOG_LEVEL", raw)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config with APP_LOG_LEVEL=%s: %v", raw, err)
		}
		if cfg.LogLevel != want {
			t.Fatalf("APP_LOG_LEVEL=%s: got %v want %v", raw, cfg.LogLevel, want)
		}
	}
}
