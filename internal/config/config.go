package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all mockview environment variables.
const EnvPrefix = "MOCKVIEW_"

// Config holds all application configuration. Secrets (API keys) are loaded
// exclusively from environment variables and never appear in the config file.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`

	LLMModel        string `yaml:"llm_model"`
	LLMBaseURL      string `yaml:"llm_base_url"`
	LLMTimeout      string `yaml:"llm_timeout"`
	SiteURL         string `yaml:"site_url"`
	AppTitle        string `yaml:"app_title"`
	BreakerFailures int    `yaml:"breaker_failures"`
	BreakerCooldown string `yaml:"breaker_cooldown"`

	SilenceTimeout string `yaml:"silence_timeout"`
	DeepgramModel  string `yaml:"deepgram_model"`

	AuthHeader         string `yaml:"auth_header"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int    `yaml:"rate_limit_burst"`

	GDriveFolderID        string `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`
	BackupInterval        string `yaml:"backup_interval"`

	// Secrets, env vars only.
	LLMAPIKey      string `yaml:"-"`
	DeepgramAPIKey string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ListenAddr:            ":8080",
		DBPath:                "data/mockview.db",
		LogLevel:              "info",
		LogFormat:             "json",
		LLMModel:              "openai/gpt-4o-mini",
		LLMTimeout:            "60s",
		AppTitle:              "Mock Interview AI",
		BreakerFailures:       5,
		BreakerCooldown:       "30s",
		SilenceTimeout:        "2m",
		DeepgramModel:         "nova-2",
		AuthHeader:            "X-User-ID",
		RateLimitPerMinute:    10,
		RateLimitBurst:        3,
		GoogleCredentialsFile: "./service-account.json",
		BackupInterval:        "1h",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// ParsedSilenceTimeout returns SilenceTimeout as a time.Duration. Zero
// disables idle hang-up; invalid values fall back to two minutes.
func (c *Config) ParsedSilenceTimeout() time.Duration {
	return parseDuration(c.SilenceTimeout, 2*time.Minute)
}

func (c *Config) ParsedLLMTimeout() time.Duration {
	return parseDuration(c.LLMTimeout, 60*time.Second)
}

func (c *Config) ParsedBreakerCooldown() time.Duration {
	return parseDuration(c.BreakerCooldown, 30*time.Second)
}

func (c *Config) ParsedBackupInterval() time.Duration {
	d := parseDuration(c.BackupInterval, time.Hour)
	if d <= 0 {
		return time.Hour
	}
	return d
}

// LLMHeaders returns the attribution headers OpenRouter-compatible gateways
// expect. Empty values are omitted.
func (c *Config) LLMHeaders() map[string]string {
	headers := make(map[string]string, 2)
	if c.SiteURL != "" {
		headers["HTTP-Referer"] = c.SiteURL
	}
	if c.AppTitle != "" {
		headers["X-Title"] = c.AppTitle
	}
	return headers
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func applyEnvOverrides(cfg *Config) {
	stringOverrides := map[string]*string{
		"LISTEN_ADDR":             &cfg.ListenAddr,
		"DB_PATH":                 &cfg.DBPath,
		"LOG_LEVEL":               &cfg.LogLevel,
		"LOG_FORMAT":              &cfg.LogFormat,
		"LLM_MODEL":               &cfg.LLMModel,
		"LLM_BASE_URL":            &cfg.LLMBaseURL,
		"LLM_TIMEOUT":             &cfg.LLMTimeout,
		"SITE_URL":                &cfg.SiteURL,
		"APP_TITLE":               &cfg.AppTitle,
		"BREAKER_COOLDOWN":        &cfg.BreakerCooldown,
		"SILENCE_TIMEOUT":         &cfg.SilenceTimeout,
		"DEEPGRAM_MODEL":          &cfg.DeepgramModel,
		"AUTH_HEADER":             &cfg.AuthHeader,
		"GDRIVE_FOLDER_ID":        &cfg.GDriveFolderID,
		"GOOGLE_CREDENTIALS_FILE": &cfg.GoogleCredentialsFile,
		"BACKUP_INTERVAL":         &cfg.BackupInterval,
	}
	for key, dst := range stringOverrides {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	intOverrides := map[string]*int{
		"BREAKER_FAILURES":      &cfg.BreakerFailures,
		"RATE_LIMIT_PER_MINUTE": &cfg.RateLimitPerMinute,
		"RATE_LIMIT_BURST":      &cfg.RateLimitBurst,
	}
	for key, dst := range intOverrides {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
				*dst = n
			}
		}
	}
}

func loadSecrets(cfg *Config) {
	cfg.LLMAPIKey = os.Getenv(EnvPrefix + "LLM_API_KEY")
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
}

func validate(cfg *Config) []string {
	var warnings []string

	if cfg.LLMAPIKey == "" {
		warnings = append(warnings, "LLM API key not configured: feedback generation and resume analysis are disabled. Set "+EnvPrefix+"LLM_API_KEY.")
	}
	if cfg.DeepgramAPIKey == "" {
		warnings = append(warnings, "Deepgram API key not configured: only the browser relay voice agent is available. Set "+EnvPrefix+"DEEPGRAM_API_KEY.")
	}
	if !strings.Contains(cfg.LLMModel, "/") {
		warnings = append(warnings, fmt.Sprintf("Invalid llm_model %q: expected provider/model_name.", cfg.LLMModel))
	}
	for name, raw := range map[string]string{
		"silence_timeout":  cfg.SilenceTimeout,
		"llm_timeout":      cfg.LLMTimeout,
		"breaker_cooldown": cfg.BreakerCooldown,
		"backup_interval":  cfg.BackupInterval,
	} {
		if d, err := time.ParseDuration(raw); err != nil || d < 0 {
			warnings = append(warnings, fmt.Sprintf("Invalid %s %q: using default.", name, raw))
		}
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = "X-User-ID"
		warnings = append(warnings, "auth_header is empty: using X-User-ID.")
	}

	return warnings
}
