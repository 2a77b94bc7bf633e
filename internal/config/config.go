// ABOUTME: Centralized configuration for the mcoder CLI, MCP server and watcher
// ABOUTME: Defaults, then an optional TOML file, then environment variables, then validation
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sisyph/mcoder/internal/storage/sqlite"
)

// Config holds all configuration for mcoder
type Config struct {
	DBPath       string `toml:"db_path"`
	LogLevel     string `toml:"log_level"`
	LogFile      string `toml:"log_file"`
	HistoryLimit int    `toml:"history_limit"`

	Report     Report     `toml:"report"`
	OpenAI     OpenAI     `toml:"openai"`
	Gemini     Gemini     `toml:"gemini"`
	Watch      Watch      `toml:"watch"`
	Cache      Cache      `toml:"cache"`
	Serve      Serve      `toml:"serve"`
	Classifier Classifier `toml:"classifier"`
}

// Report controls report export
type Report struct {
	Dir           string `toml:"dir"`
	MessageLimit  int    `toml:"message_limit"`
	SecurityLimit int    `toml:"security_limit"`
	Rich          bool   `toml:"rich"`
	Wrap          int    `toml:"wrap"`
	PageLines     int    `toml:"page_lines"`
	YAML          bool   `toml:"yaml"`
}

// OpenAI controls the code generation collaborator
type OpenAI struct {
	APIKey     string        `toml:"api_key"`
	BaseURL    string        `toml:"base_url"`
	Models     []string      `toml:"models"`
	Timeout    time.Duration `toml:"timeout"`
	MaxRetries int           `toml:"max_retries"`
	RetryDelay time.Duration `toml:"retry_delay"`
	// RPS caps model calls per second across providers. Zero disables the limit.
	RPS float64 `toml:"rps"`
}

// Gemini configures the second code generation provider. Models named gemini-* are
// routed here when an API key is set.
type Gemini struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// Cache controls pruning of the generation cache
type Cache struct {
	MaxAge        time.Duration `toml:"max_age"`
	PruneSchedule string        `toml:"prune_schedule"`
}

// Serve controls the read-only HTTP status API
type Serve struct {
	Addr string `toml:"addr"`
}

// Watch controls the rebuild daemon
type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Patterns []string      `toml:"patterns"`
	Exec     string        `toml:"exec"`
	Module   string        `toml:"module"`
}

// Classifier extends the built-in forbidden-term table
type Classifier struct {
	ExtraPatterns []string `toml:"extra_patterns"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DBPath:       sqlite.DefaultDBPath(),
		LogLevel:     "info",
		HistoryLimit: 100,
		Report: Report{
			Dir:           ".",
			MessageLimit:  1000,
			SecurityLimit: 1000,
			Rich:          true,
			Wrap:          110,
			PageLines:     60,
		},
		OpenAI: OpenAI{
			Models:     []string{"gpt-4o-mini"},
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
		},
		Watch: Watch{
			Debounce: 500 * time.Millisecond,
			Module:   "auto_build",
		},
		Cache: Cache{
			MaxAge:        720 * time.Hour,
			PruneSchedule: "@daily",
		},
		Serve: Serve{
			Addr: "127.0.0.1:8088",
		},
	}
}

// Load builds the configuration. path names a TOML file; when empty MCODER_CONFIG is used,
// and when that is empty too no file is read.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("MCODER_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.DBPath = getEnv("MCODER_DB_PATH", c.DBPath)
	c.LogLevel = getEnv("MCODER_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("MCODER_LOG_FILE", c.LogFile)
	c.HistoryLimit = getEnvInt("MCODER_HISTORY_LIMIT", c.HistoryLimit)

	c.Report.Dir = getEnv("MCODER_REPORT_DIR", c.Report.Dir)
	c.Report.MessageLimit = getEnvInt("MCODER_REPORT_MESSAGE_LIMIT", c.Report.MessageLimit)
	c.Report.SecurityLimit = getEnvInt("MCODER_REPORT_SECURITY_LIMIT", c.Report.SecurityLimit)
	c.Report.Rich = getEnvBool("MCODER_REPORT_RICH", c.Report.Rich)
	c.Report.Wrap = getEnvInt("MCODER_REPORT_WRAP", c.Report.Wrap)

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.OpenAI.Models = getEnvList("MCODER_CODEGEN_MODELS", c.OpenAI.Models)
	c.OpenAI.Timeout = getEnvDuration("OPENAI_TIMEOUT", c.OpenAI.Timeout)
	c.OpenAI.MaxRetries = getEnvInt("OPENAI_MAX_RETRIES", c.OpenAI.MaxRetries)
	c.OpenAI.RetryDelay = getEnvDuration("OPENAI_RETRY_DELAY", c.OpenAI.RetryDelay)
	c.OpenAI.RPS = getEnvFloat("MCODER_CODEGEN_RPS", c.OpenAI.RPS)

	c.Gemini.APIKey = getEnv("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Gemini.BaseURL = getEnv("GEMINI_BASE_URL", c.Gemini.BaseURL)

	c.Cache.MaxAge = getEnvDuration("MCODER_CACHE_MAX_AGE", c.Cache.MaxAge)
	c.Cache.PruneSchedule = getEnv("MCODER_CACHE_PRUNE_SCHEDULE", c.Cache.PruneSchedule)

	c.Serve.Addr = getEnv("MCODER_HTTP_ADDR", c.Serve.Addr)

	c.Watch.Debounce = getEnvDuration("MCODER_WATCH_DEBOUNCE", c.Watch.Debounce)
}

// Validate range-checks the configuration
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("MCODER_DB_PATH must not be empty")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("MCODER_LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("MCODER_HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if c.Report.MessageLimit < 1 || c.Report.SecurityLimit < 1 {
		return fmt.Errorf("report limits must be positive, got %d/%d", c.Report.MessageLimit, c.Report.SecurityLimit)
	}
	if c.Report.Wrap < 20 {
		return fmt.Errorf("MCODER_REPORT_WRAP must be at least 20, got %d", c.Report.Wrap)
	}
	if c.Report.PageLines < 1 {
		return fmt.Errorf("report page_lines must be positive, got %d", c.Report.PageLines)
	}
	if c.OpenAI.MaxRetries < 0 || c.OpenAI.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.OpenAI.MaxRetries)
	}
	if len(c.OpenAI.Models) == 0 {
		return fmt.Errorf("MCODER_CODEGEN_MODELS must name at least one model")
	}
	if c.OpenAI.RPS < 0 {
		return fmt.Errorf("MCODER_CODEGEN_RPS must not be negative, got %v", c.OpenAI.RPS)
	}
	if c.Cache.MaxAge <= 0 {
		return fmt.Errorf("MCODER_CACHE_MAX_AGE must be positive, got %v", c.Cache.MaxAge)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("MCODER_WATCH_DEBOUNCE must not be negative, got %v", c.Watch.Debounce)
	}
	return nil
}

// ReportLimits converts the report settings for the store
func (c *Config) ReportLimits() sqlite.ReportLimits {
	return sqlite.ReportLimits{Messages: c.Report.MessageLimit, SecurityEvents: c.Report.SecurityLimit}
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList splits a comma separated value, dropping blanks
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
