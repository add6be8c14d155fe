package config

import (
	"testing"
	"time"
)

func TestGetEnvFallbacks(t *testing.T) {
	if got := getEnv("DEMODESK_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("getEnv = %q, want fallback", got)
	}
	t.Setenv("DEMODESK_TEST_SET", "value")
	if got := getEnv("DEMODESK_TEST_SET", "fallback"); got != "value" {
		t.Errorf("getEnv = %q, want value", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	if got := getEnvInt("DEMODESK_TEST_UNSET", 7); got != 7 {
		t.Errorf("getEnvInt = %d, want 7", got)
	}
	t.Setenv("DEMODESK_TEST_INT", "42")
	if got := getEnvInt("DEMODESK_TEST_INT", 7); got != 42 {
		t.Errorf("getEnvInt = %d, want 42", got)
	}
	t.Setenv("DEMODESK_TEST_INT", "not-a-number")
	if got := getEnvInt("DEMODESK_TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt on garbage = %d, want fallback 7", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	if got := getEnvBool("DEMODESK_TEST_UNSET", true); !got {
		t.Error("getEnvBool should fall back to true")
	}
	t.Setenv("DEMODESK_TEST_BOOL", "false")
	if got := getEnvBool("DEMODESK_TEST_BOOL", true); got {
		t.Error("getEnvBool should read false")
	}
	t.Setenv("DEMODESK_TEST_BOOL", " true ")
	if got := getEnvBool("DEMODESK_TEST_BOOL", false); !got {
		t.Error("getEnvBool should tolerate surrounding whitespace")
	}
}

func TestGetEnvDuration(t *testing.T) {
	if got := getEnvDuration("DEMODESK_TEST_UNSET", time.Minute); got != time.Minute {
		t.Errorf("getEnvDuration = %v, want 1m", got)
	}
	t.Setenv("DEMODESK_TEST_DUR", "90s")
	if got := getEnvDuration("DEMODESK_TEST_DUR", time.Minute); got != 90*time.Second {
		t.Errorf("getEnvDuration = %v, want 90s", got)
	}
	t.Setenv("DEMODESK_TEST_DUR", "soon")
	if got := getEnvDuration("DEMODESK_TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("getEnvDuration on garbage = %v, want fallback", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr == "" {
		t.Error("HTTPAddr must have a default")
	}
	if cfg.StorageDriver != "dropbox" && cfg.StorageDriver != "minio" {
		t.Errorf("unexpected default storage driver %q", cfg.StorageDriver)
	}
	if cfg.DemoCacheTTL <= 0 {
		t.Errorf("DemoCacheTTL = %v, want a positive default", cfg.DemoCacheTTL)
	}
	if cfg.CleanupRetention <= 0 {
		t.Errorf("CleanupRetention = %v, want a positive default", cfg.CleanupRetention)
	}
}
