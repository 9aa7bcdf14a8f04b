package config

import (
	"reflect"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "REDIS_URL", "PROVIDERS",
		"FETCH_INTERVAL_SECS", "FETCH_TIMEOUT_SECS",
		"FRED_API_KEY", "HTTP_CONFIG_PATH", "MANUAL_INPUT_PATH",
		"TELEGRAM_BOT_TOKEN", "OPENAI_API_KEY", "OPENAI_MODEL", "API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected redis default, got %q", cfg.RedisURL)
	}
	if !reflect.DeepEqual(cfg.Providers, DefaultProviders) {
		t.Fatalf("expected default provider list, got %v", cfg.Providers)
	}
	if cfg.FetchIntervalSecs != 3600 || cfg.FetchTimeoutSecs != 60 {
		t.Fatalf("unexpected fetch defaults: %d/%d", cfg.FetchIntervalSecs, cfg.FetchTimeoutSecs)
	}
	if cfg.HTTPConfigPath != "api_config.yaml" || cfg.ManualInputPath != "manual_input.yaml" {
		t.Fatalf("unexpected path defaults: %q, %q", cfg.HTTPConfigPath, cfg.ManualInputPath)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("unexpected model default: %q", cfg.OpenAIModel)
	}
}

func TestLoadParsesProviderList(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROVIDERS", " CNN , vix,, Manual ")

	cfg := Load()
	want := []string{"cnn", "vix", "manual"}
	if !reflect.DeepEqual(cfg.Providers, want) {
		t.Fatalf("expected %v, got %v", want, cfg.Providers)
	}
}

func TestLoadFetchTuning(t *testing.T) {
	clearEnv(t)
	t.Setenv("FETCH_INTERVAL_SECS", "900")
	t.Setenv("FETCH_TIMEOUT_SECS", "30")

	cfg := Load()
	if cfg.FetchIntervalSecs != 900 || cfg.FetchTimeoutSecs != 30 {
		t.Fatalf("unexpected fetch tuning: %d/%d", cfg.FetchIntervalSecs, cfg.FetchTimeoutSecs)
	}
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("FETCH_INTERVAL_SECS", "soon")
	t.Setenv("FETCH_TIMEOUT_SECS", "-5")

	cfg := Load()
	if cfg.FetchIntervalSecs != 3600 || cfg.FetchTimeoutSecs != 60 {
		t.Fatalf("invalid values must fall back to defaults: %d/%d", cfg.FetchIntervalSecs, cfg.FetchTimeoutSecs)
	}
}
