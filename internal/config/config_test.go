package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9191")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9191" {
		t.Fatalf("expected PORT to win over SERVER_PORT, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_RedisURLAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "REDIS_URL")
	setEnvWithCleanup(t, "DONATION_REDIS_URL", "redis://alias:6379")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RedisURL != "redis://alias:6379" {
		t.Fatalf("expected RedisURL from alias env var, got %q", cfg.RedisURL)
	}
}

func TestLoadConfig_AuthAudienceAndIssuer(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "AUTH_AUDIENCE", "foodbridge-api")
	setEnvWithCleanup(t, "AUTH_ISSUER", "https://auth.example.com")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AuthAudience != "foodbridge-api" {
		t.Fatalf("expected AuthAudience from env, got %q", cfg.AuthAudience)
	}
	if cfg.AuthIssuer != "https://auth.example.com" {
		t.Fatalf("expected AuthIssuer from env, got %q", cfg.AuthIssuer)
	}
}

func TestLoadConfig_ReconcileDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "RECONCILE_SCHEDULE")
	unsetEnvWithCleanup(t, "RECONCILE_GRACE_SECONDS")
	unsetEnvWithCleanup(t, "RECONCILE_BATCH_LIMIT")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ReconcileSchedule != "*/5 * * * *" {
		t.Fatalf("unexpected default reconcile schedule %q", cfg.ReconcileSchedule)
	}
	if cfg.ReconcileGraceSeconds != 120 {
		t.Fatalf("unexpected default reconcile grace %d", cfg.ReconcileGraceSeconds)
	}
	if cfg.ReconcileBatchLimit != 100 {
		t.Fatalf("unexpected default reconcile batch limit %d", cfg.ReconcileBatchLimit)
	}
}

func TestLoadConfig_NegativeAcceptRateLimitDisablesLimiter(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "ACCEPT_RATE_LIMIT_PER_MINUTE", "-3")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AcceptRateLimitPerMinute != 0 {
		t.Fatalf("expected negative accept rate limit to coerce to 0, got %d", cfg.AcceptRateLimitPerMinute)
	}
}

func TestConfig_AdminSubjectList(t *testing.T) {
	cfg := Config{AdminSubjects: " user_admin_1, user_admin_2 ,,user_admin_3"}

	got := cfg.AdminSubjectList()
	want := []string{"user_admin_1", "user_admin_2", "user_admin_3"}
	if len(got) != len(want) {
		t.Fatalf("expected %d subjects, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("subject %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if subjects := (Config{}).AdminSubjectList(); subjects != nil {
		t.Fatalf("expected nil subject list for empty config, got %v", subjects)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
