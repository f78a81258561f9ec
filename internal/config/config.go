package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/text/language"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// LLM Configuration:
// - LLM_API_KEY: API key for the LLM provider (required)
// - LLM_API_URL: API endpoint URL (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: Model name to use (default: openai/gpt-4o-mini)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 8000)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.2)
// - LLM_TIMEOUT: Request timeout in seconds (default: 60)
// - LLM_SITE_URL: Site URL for HTTP referer header (optional)
// - LLM_APP_NAME: Application name for X-Title header (optional)
//
// OCR Configuration:
// - OCR_API_URL: OCR service endpoint (required for processing)
// - OCR_API_KEY: OCR service API key
// - OCR_POLL_INTERVAL: Job polling interval in seconds (default: 2)
// - OCR_POLL_TIMEOUT: Max time to wait for an OCR job in seconds (default: 300)
//
// Vault Configuration:
// - VAULT_API_URL: Vault (document storage) endpoint (required for processing)
// - VAULT_API_KEY: Vault API key
// - VAULT_BUCKET: Bucket/collection documents are stored under (default: documents)
//
// Server Configuration:
// - SERVER_ADDR: Listen address (default: :8080)
// - UPLOAD_DIR: Staging directory for uploads (default: /data/uploads)
// - MAX_UPLOAD_MB: Max upload size in megabytes (default: 50)
// - UI_STATIC_DIR: Directory with the bundled SPA (optional)
//
// Pipeline Configuration:
// - TARGET_LANGUAGE: Translation target (default: en)
// - TRANSLATE_BATCH_SIZE: Lines per translation request (default: 50)
// - TRANSLATE_CONCURRENCY: Parallel translation batches (default: 2)
// - SWEEP_CRON: Cron expression for the vault sweep (default: 0 * * * *)
// - GLOSSARY_DIR: Directory with per-language-pair glossary files (optional)
//
// System Configuration:
// - DATA_DIR: Directory for the database and settings (default: /data)
// - LOG_LEVEL: debug|info|warn|error (default: info)

type Config struct {
	LLM      LLMConfig      `json:"llm"`
	OCR      OCRConfig      `json:"ocr"`
	Vault    VaultConfig    `json:"vault"`
	Server   ServerConfig   `json:"server"`
	Pipeline PipelineConfig `json:"pipeline"`
	System   SystemConfig   `json:"system"`
}

// LLMConfig holds the configuration for the LLM client
// Supports any OpenAI-compatible provider
type LLMConfig struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
	SiteURL     string  `json:"site_url"`
	AppName     string  `json:"app_name"`
}

// OCRConfig holds the configuration for the hosted OCR service
type OCRConfig struct {
	APIURL       string `json:"api_url"`
	APIKey       string `json:"api_key"`
	PollInterval int    `json:"poll_interval"` // seconds
	PollTimeout  int    `json:"poll_timeout"`  // seconds
}

// VaultConfig holds the configuration for the document vault
type VaultConfig struct {
	APIURL string `json:"api_url"`
	APIKey string `json:"api_key"`
	Bucket string `json:"bucket"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Addr           string `json:"addr"`
	UploadDir      string `json:"upload_dir"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
	UIStaticDir    string `json:"ui_static_dir"`
}

// PipelineConfig holds the document processing configuration
type PipelineConfig struct {
	TargetLanguage language.Tag `json:"target_language"`
	BatchSize      int          `json:"batch_size"`
	Concurrency    int          `json:"concurrency"`
	SweepCron      string       `json:"sweep_cron"`
	GlossaryDir    string       `json:"glossary_dir"`
}

// SystemConfig holds the system configuration
type SystemConfig struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
}

// DBPath is where the SQLite database lives under the data directory.
func (c SystemConfig) DBPath() string {
	return c.DataDir + "/processor.db"
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	targetLang := language.English
	if tag, err := language.Parse(getEnvString("TARGET_LANGUAGE", "en")); err == nil {
		targetLang = tag
	}

	config := &Config{
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnvString("LLM_MODEL", "openai/gpt-4o-mini"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 8000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
			Timeout:     getEnvInt("LLM_TIMEOUT", 60),
			SiteURL:     getEnvString("LLM_SITE_URL", ""),
			AppName:     getEnvString("LLM_APP_NAME", ""),
		},
		OCR: OCRConfig{
			APIURL:       getEnvString("OCR_API_URL", ""),
			APIKey:       getEnvString("OCR_API_KEY", ""),
			PollInterval: getEnvInt("OCR_POLL_INTERVAL", 2),
			PollTimeout:  getEnvInt("OCR_POLL_TIMEOUT", 300),
		},
		Vault: VaultConfig{
			APIURL: getEnvString("VAULT_API_URL", ""),
			APIKey: getEnvString("VAULT_API_KEY", ""),
			Bucket: getEnvString("VAULT_BUCKET", "documents"),
		},
		Server: ServerConfig{
			Addr:           getEnvString("SERVER_ADDR", ":8080"),
			UploadDir:      getEnvString("UPLOAD_DIR", "/data/uploads"),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 50)) << 20,
			UIStaticDir:    getEnvString("UI_STATIC_DIR", ""),
		},
		Pipeline: PipelineConfig{
			TargetLanguage: targetLang,
			BatchSize:      getEnvInt("TRANSLATE_BATCH_SIZE", 50),
			Concurrency:    getEnvInt("TRANSLATE_CONCURRENCY", 2),
			SweepCron:      getEnvString("SWEEP_CRON", "0 * * * *"),
			GlossaryDir:    getEnvString("GLOSSARY_DIR", ""),
		},
		System: SystemConfig{
			DataDir:  getEnvString("DATA_DIR", "/data"),
			LogLevel: getEnvString("LOG_LEVEL", "info"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("TRANSLATE_BATCH_SIZE must be greater than 0")
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("TRANSLATE_CONCURRENCY must be greater than 0")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
