package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
)

// FetcherMode selects the content fetcher implementation.
type FetcherMode string

const (
	// FetcherBrowser drives a headless Chrome via rod with stealth pages.
	FetcherBrowser FetcherMode = "browser"
	// FetcherStatic fetches over plain HTTP and parses the HTML directly.
	// No JavaScript execution, no screenshots.
	FetcherStatic FetcherMode = "static"
)

// Config holds all configuration values.
type Config struct {
	// LLM
	LLMProvider     Provider
	LLMModel        string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OllamaHost      string

	// Rate limiting between completion calls
	MinCallDelay time.Duration
	MaxCallDelay time.Duration

	// Crawler
	Fetcher        FetcherMode
	BrowserURL     string // ws:// URL of an external Chrome; empty = launch locally
	ScreenshotsDir string

	// Navigation
	MaxPages int

	// Focus group
	MaxConcurrentRuns int
	RunPacing         time.Duration

	// Output
	ReportsDir string

	// Server
	ServerAddr string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		LLMProvider:     Provider(getEnv("SITEPANEL_LLM_PROVIDER", string(ProviderAnthropic))),
		LLMModel:        getEnv("SITEPANEL_LLM_MODEL", "claude-3-5-sonnet-latest"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),

		MinCallDelay: getEnvDuration("SITEPANEL_MIN_CALL_DELAY", 10*time.Second),
		MaxCallDelay: getEnvDuration("SITEPANEL_MAX_CALL_DELAY", 20*time.Second),

		Fetcher:        FetcherMode(getEnv("SITEPANEL_FETCHER", string(FetcherBrowser))),
		BrowserURL:     os.Getenv("SITEPANEL_BROWSER_URL"),
		ScreenshotsDir: getEnv("SITEPANEL_SCREENSHOTS_DIR", "reports/screenshots"),

		MaxPages: getEnvInt("SITEPANEL_MAX_PAGES", 5),

		MaxConcurrentRuns: getEnvInt("SITEPANEL_MAX_CONCURRENT_RUNS", 2),
		RunPacing:         getEnvDuration("SITEPANEL_RUN_PACING", 30*time.Second),

		ReportsDir: getEnv("SITEPANEL_REPORTS_DIR", "reports"),

		ServerAddr: getEnv("SITEPANEL_SERVER_ADDR", ":8585"),

		LogFile:  getEnv("SITEPANEL_LOG_FILE", "/tmp/sitepanel.log"),
		LogLevel: parseLogLevel(getEnv("SITEPANEL_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
