package common

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Log      LogConfig      `mapstructure:"log"`
	// ProfilesPath points at the YAML file of client mapping profiles.
	ProfilesPath string `mapstructure:"profiles_path"`
}

// DatabaseConfig holds audit store configuration. An empty DSN disables it.
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"`
	DSN              string        `mapstructure:"dsn"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr   string `mapstructure:"grpc_addr"`
	HTTPAddr   string `mapstructure:"http_addr"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// ExtractConfig holds document conversion configuration
type ExtractConfig struct {
	PDFToText string        `mapstructure:"pdftotext"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxPages  int           `mapstructure:"max_pages"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	GeminiModel  string        `mapstructure:"gemini_model"`
	Temperature  float32       `mapstructure:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// PipelineConfig holds retry controller and worker queue configuration
type PipelineConfig struct {
	Strict         bool          `mapstructure:"strict"`
	Workers        int           `mapstructure:"workers"`
	QueueSize      int           `mapstructure:"queue_size"`
	ProcessTimeout time.Duration `mapstructure:"process_timeout"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"database.driver":             "postgres",
	"database.dsn":                "",
	"database.max_conns":          20,
	"database.min_conns":          5,
	"database.max_conn_lifetime":  30 * time.Minute,
	"database.max_conn_idle_time": 5 * time.Minute,
	"database.dial_timeout":       3 * time.Second,
	"database.statement_timeout":  time.Duration(0),
	"server.grpc_addr":            ":8080",
	"server.http_addr":            ":8000",
	"server.cors_origin":          "*",
	"extract.pdftotext":           "pdftotext",
	"extract.timeout":             60 * time.Second,
	"extract.max_pages":           50,
	"llm.provider":                "openai",
	"llm.model":                   "gpt-4o-mini",
	"llm.api_key":                 "",
	"llm.base_url":                "",
	"llm.gemini_api_key":          "",
	"llm.gemini_model":            "gemini-2.0-flash",
	"llm.temperature":             0.0,
	"llm.timeout":                 45 * time.Second,
	"pipeline.strict":             false,
	"pipeline.workers":            4,
	"pipeline.queue_size":         256,
	"pipeline.process_timeout":    3 * time.Minute,
	"log.level":                   "info",
	"log.format":                  "text",
	"profiles_path":               "",
}

// envBindings keeps the historical environment variable names.
var envBindings = map[string]string{
	"database.driver":             "DB_DRIVER",
	"database.dsn":                "DB_URL",
	"database.max_conns":          "DB_MAX_CONNS",
	"database.min_conns":          "DB_MIN_CONNS",
	"database.max_conn_lifetime":  "DB_MAX_CONN_LIFETIME",
	"database.max_conn_idle_time": "DB_MAX_CONN_IDLE_TIME",
	"database.dial_timeout":       "DB_DIAL_TIMEOUT",
	"database.statement_timeout":  "DB_STATEMENT_TIMEOUT",
	"server.grpc_addr":            "GRPC_ADDR",
	"server.http_addr":            "HTTP_ADDR",
	"server.cors_origin":          "CORS_ORIGIN",
	"extract.pdftotext":           "PDFTOTEXT",
	"extract.timeout":             "EXTRACT_TIMEOUT",
	"extract.max_pages":           "EXTRACT_MAX_PAGES",
	"llm.provider":                "LLM_PROVIDER",
	"llm.model":                   "OPENAI_MODEL",
	"llm.api_key":                 "OPENAI_API_KEY",
	"llm.base_url":                "OPENAI_BASE_URL",
	"llm.gemini_api_key":          "GEMINI_API_KEY",
	"llm.gemini_model":            "GEMINI_MODEL",
	"llm.temperature":             "OPENAI_TEMPERATURE",
	"llm.timeout":                 "OPENAI_TIMEOUT",
	"pipeline.strict":             "PIPELINE_STRICT",
	"pipeline.workers":            "PIPELINE_WORKERS",
	"pipeline.queue_size":         "PIPELINE_QUEUE_SIZE",
	"pipeline.process_timeout":    "PIPELINE_PROCESS_TIMEOUT",
	"log.level":                   "LOG_LEVEL",
	"log.format":                  "LOG_FORMAT",
	"profiles_path":               "CLIENT_PROFILES",
}

// ConfigLoader owns a viper instance and the last successfully decoded Config.
type ConfigLoader struct {
	v   *viper.Viper
	mu  sync.RWMutex
	cfg *Config
}

// LoadConfig resolves defaults, then the optional YAML file at path, then environment variables.
func LoadConfig(path string) (*Config, error) {
	l, err := NewConfigLoader(path)
	if err != nil {
		return nil, err
	}
	return l.Get(), nil
}

func NewConfigLoader(path string) (*ConfigLoader, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "reading config file "+path, err)
		}
	}

	l := &ConfigLoader{v: v}
	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.cfg = cfg
	return l, nil
}

func (l *ConfigLoader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "decoding config", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	return &cfg, nil
}

// Get returns the current configuration
func (l *ConfigLoader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// Watch reloads the config file on change and hands the new Config to fn.
// It is a no-op when no config file was given.
func (l *ConfigLoader) Watch(logger *slog.Logger, fn func(*Config)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			logger.Error("config.reload.failed", "file", e.Name, "error", err)
			return
		}
		l.mu.Lock()
		l.cfg = cfg
		l.mu.Unlock()
		logger.Info("config.reloaded", "file", e.Name, "op", e.Op.String())
		if fn != nil {
			fn(cfg)
		}
	})
	l.v.WatchConfig()
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("LLM_PROVIDER %q is not supported", c.LLM.Provider), ErrInvalidInput)
	}
	if c.LLM.Timeout <= 0 {
		return NewAppError("CONFIG_ERROR", "OPENAI_TIMEOUT must be positive", ErrInvalidInput)
	}
	if c.Database.DSN != "" && c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("DB_DRIVER %q is not supported", c.Database.Driver), ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" && c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR or HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Pipeline.Workers < 1 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_WORKERS must be at least 1", ErrInvalidInput)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return NewAppError("CONFIG_ERROR", err.Error(), ErrInvalidInput)
	}
	return nil
}

// IsConfigError reports whether err came from loading or validating configuration.
func IsConfigError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == "CONFIG_ERROR"
}
