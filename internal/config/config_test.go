package config

import (
	"os"
	"testing"
	"time"
)

func unsetBuildEnv() {
	_ = os.Unsetenv("JOURNAL_BACKEND_BUILD_TARGET")
	_ = os.Unsetenv("JOURNAL_BACKEND_DB_DRIVER")
}

func TestConfigLoad_Defaults(t *testing.T) {
	unsetBuildEnv()
	_ = os.Unsetenv("JOURNAL_BACKEND_RETENTION_TTL")
	_ = os.Unsetenv("JOURNAL_BACKEND_CONTEXT_WINDOW_BUDGET")
	_ = os.Unsetenv("JOURNAL_BACKEND_REPORT_FREQUENCY")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.RetentionTTL != 2160*time.Hour {
		t.Fatalf("unexpected default retention TTL: %s", cfg.RetentionTTL)
	}
	if cfg.ContextWindowBudget != 20 {
		t.Fatalf("unexpected default context window budget: %d", cfg.ContextWindowBudget)
	}
	if cfg.DefaultReportFrequency != "WEEKLY" {
		t.Fatalf("unexpected default report frequency: %s", cfg.DefaultReportFrequency)
	}
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	unsetBuildEnv()
	_ = os.Setenv("JOURNAL_BACKEND_CONTEXT_WINDOW_BUDGET", "50")
	defer func() { _ = os.Unsetenv("JOURNAL_BACKEND_CONTEXT_WINDOW_BUDGET") }()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.ContextWindowBudget != 50 {
		t.Fatalf("context window budget env override failed, got %d", cfg.ContextWindowBudget)
	}
}

func TestResolveDefaultsCloudDev(t *testing.T) {
	unsetBuildEnv()
	_ = os.Setenv("JOURNAL_BACKEND_BUILD_TARGET", "cloud-dev")
	defer unsetBuildEnv()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("unexpected driver mapping: %s", cfg.DBDriver)
	}
}

func TestResolveDefaultsLocal(t *testing.T) {
	unsetBuildEnv()
	_ = os.Setenv("JOURNAL_BACKEND_BUILD_TARGET", "local")
	defer unsetBuildEnv()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("unexpected driver mapping for local: %s", cfg.DBDriver)
	}
}

func TestResolveDefaultsDriverOverride(t *testing.T) {
	unsetBuildEnv()
	_ = os.Setenv("JOURNAL_BACKEND_BUILD_TARGET", "local")
	_ = os.Setenv("JOURNAL_BACKEND_DB_DRIVER", "postgres")
	defer unsetBuildEnv()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("override failed, got %s", cfg.DBDriver)
	}
}

func TestResolveDefaultsRejectsBadTarget(t *testing.T) {
	unsetBuildEnv()
	_ = os.Setenv("JOURNAL_BACKEND_BUILD_TARGET", "mainframe")
	defer unsetBuildEnv()

	if _, err := New(); err == nil {
		t.Fatal("expected error for unsupported build target")
	}
}

func TestResolveDefaultsRejectsBadFrequency(t *testing.T) {
	cfg := NewForTesting()
	cfg.DefaultReportFrequency = "DAILY"
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatal("expected error for unsupported report frequency")
	}
}

func TestResolveDefaultsRejectsNonPositiveBudget(t *testing.T) {
	cfg := NewForTesting()
	cfg.ContextWindowBudget = 0
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatal("expected error for zero context window budget")
	}
}

func TestNewForTestingIsValid(t *testing.T) {
	cfg := NewForTesting()
	if err := cfg.ResolveDefaults(); err != nil {
		t.Fatalf("testing config invalid: %v", err)
	}
	if !cfg.IsTesting() {
		t.Fatal("expected testing environment")
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("expected sqlite for local target, got %s", cfg.DBDriver)
	}
}
