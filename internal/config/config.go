package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Scrape   ScrapeConfig
	Browser  BrowserConfig
	Strategy StrategyConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// ScrapeConfig holds the interception policy for a single scrape.
//
// EarlyExitCount and CollectWindow default to 3 and 20s. These are tuned
// heuristics, not correctness bounds; keep the defaults unless product
// requirements change.
type ScrapeConfig struct {
	ComposerWait   time.Duration
	CollectWindow  time.Duration
	PollInterval   time.Duration
	EarlyExitCount int
}

// BrowserConfig holds parameters for the driven Chrome instance.
type BrowserConfig struct {
	TargetURL        string
	ConversationPath string
	CookieName       string
	CookieDomain     string
	ComposerSelector string
	UserAgent        string
	Headless         bool
}

// StrategyConfig holds outline-generation parameters.
type StrategyConfig struct {
	Provider    string // "openai" or "anthropic"
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
}

const (
	defaultPort            = "3001"
	defaultReadTimeout     = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultComposerWait   = 10 * time.Second
	defaultCollectWindow  = 20 * time.Second
	defaultPollInterval   = time.Second
	defaultEarlyExitCount = 3

	defaultTargetURL        = "https://chatgpt.com"
	defaultConversationPath = "/backend-api/conversation"
	defaultCookieName       = "__Secure-next-auth.session-token"
	defaultCookieDomain     = "chatgpt.com"
	defaultComposerSelector = "#prompt-textarea"
	defaultUserAgent        = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultStrategyProvider = "openai"
	defaultStrategyModel    = "gpt-4o-mini"
	defaultTemperature      = float32(0.7)
	defaultMaxTokens        = 2000
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:        port,
			ReadTimeout: defaultReadTimeout,
			// The scrape response streams for the whole collection window,
			// so no write deadline by default.
			WriteTimeout:    0,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Scrape: ScrapeConfig{
			ComposerWait:   defaultComposerWait,
			CollectWindow:  defaultCollectWindow,
			PollInterval:   defaultPollInterval,
			EarlyExitCount: defaultEarlyExitCount,
		},
		Browser: BrowserConfig{
			TargetURL:        getEnv("BROWSER_TARGET_URL", defaultTargetURL),
			ConversationPath: getEnv("BROWSER_CONVERSATION_PATH", defaultConversationPath),
			CookieName:       defaultCookieName,
			CookieDomain:     getEnv("BROWSER_COOKIE_DOMAIN", defaultCookieDomain),
			ComposerSelector: getEnv("BROWSER_COMPOSER_SELECTOR", defaultComposerSelector),
			UserAgent:        getEnv("BROWSER_USER_AGENT", defaultUserAgent),
			Headless:         false,
		},
		Strategy: StrategyConfig{
			Provider:    getEnv("STRATEGY_PROVIDER", defaultStrategyProvider),
			Model:       getEnv("STRATEGY_MODEL", defaultStrategyModel),
			APIKey:      os.Getenv("STRATEGY_API_KEY"),
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("SCRAPE_COMPOSER_WAIT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCRAPE_COMPOSER_WAIT_SECONDS: %w", err)
		}
		cfg.Scrape.ComposerWait = d
	}

	if v := os.Getenv("SCRAPE_COLLECT_WINDOW_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCRAPE_COLLECT_WINDOW_SECONDS: %w", err)
		}
		cfg.Scrape.CollectWindow = d
	}

	if v := os.Getenv("SCRAPE_EARLY_EXIT_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid SCRAPE_EARLY_EXIT_COUNT: must be a positive integer")
		}
		cfg.Scrape.EarlyExitCount = n
	}

	if v := os.Getenv("BROWSER_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BROWSER_HEADLESS: %w", err)
		}
		cfg.Browser.Headless = b
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	switch cfg.Strategy.Provider {
	case "openai", "anthropic":
	default:
		return Config{}, fmt.Errorf("invalid STRATEGY_PROVIDER: must be 'openai' or 'anthropic'")
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
