package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL string
	RedisURL    string

	// Providers is the ordered list of enabled provider names. Order is
	// preserved for deterministic logging only; fetches run independently.
	Providers []string

	FetchIntervalSecs int
	FetchTimeoutSecs  int

	FredAPIKey      string
	HTTPConfigPath  string
	ManualInputPath string

	TelegramBotToken string

	// APIKey guards the mutating HTTP endpoints when set.
	APIKey string

	OpenAIAPIKey string
	OpenAIModel  string
}

// DefaultProviders mirrors the dashboard's full indicator coverage. The
// manual pseudo-provider is opt-in via PROVIDERS.
var DefaultProviders = []string{"http", "ycharts", "cnn", "vix", "multpl", "nasdaqpe", "fred", "rsi", "ndtw"}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		FredAPIKey:       os.Getenv("FRED_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		APIKey:           os.Getenv("API_KEY"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.Providers = DefaultProviders
	if v := strings.TrimSpace(os.Getenv("PROVIDERS")); v != "" {
		cfg.Providers = splitProviderList(v)
	}

	cfg.FetchIntervalSecs = 3600
	if v := strings.TrimSpace(os.Getenv("FETCH_INTERVAL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FetchIntervalSecs = n
		}
	}

	cfg.FetchTimeoutSecs = 60
	if v := strings.TrimSpace(os.Getenv("FETCH_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FetchTimeoutSecs = n
		}
	}

	cfg.HTTPConfigPath = strings.TrimSpace(os.Getenv("HTTP_CONFIG_PATH"))
	if cfg.HTTPConfigPath == "" {
		cfg.HTTPConfigPath = "api_config.yaml"
	}

	cfg.ManualInputPath = strings.TrimSpace(os.Getenv("MANUAL_INPUT_PATH"))
	if cfg.ManualInputPath == "" {
		cfg.ManualInputPath = "manual_input.yaml"
	}

	if cfg.FredAPIKey == "" {
		log.Println("Warning: FRED_API_KEY not set, FRED provider will use public fallbacks")
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, briefing advisor will be disabled")
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	return cfg
}

func splitProviderList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
