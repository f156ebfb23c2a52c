package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"livelits/internal/errors"
)

// DirName is the per-project directory holding config and the constants store.
const DirName = ".livelits"

// Config represents the complete livelits configuration
type Config struct {
	Version          int  `json:"version" mapstructure:"version"`
	Enabled          bool `json:"enabled" mapstructure:"enabled"`
	CoalesceWindowMs int  `json:"coalesceWindowMs" mapstructure:"coalesceWindowMs"`

	Evaluator EvaluatorConfig `json:"evaluator" mapstructure:"evaluator"`
	Store     StoreConfig     `json:"store" mapstructure:"store"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
	Watch     WatchConfig     `json:"watch" mapstructure:"watch"`
	Metrics   MetricsConfig   `json:"metrics" mapstructure:"metrics"`
}

// EvaluatorConfig selects how constants are folded
type EvaluatorConfig struct {
	// Semantic type-checks Go files so named constants fold
	Semantic bool `json:"semantic" mapstructure:"semantic"`
}

// StoreConfig selects where remapped constants go
type StoreConfig struct {
	Kind     string `json:"kind" mapstructure:"kind"` // memory | sqlite
	Dir      string `json:"dir" mapstructure:"dir"`
	ScopeKey string `json:"scopeKey" mapstructure:"scopeKey"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file" mapstructure:"file"`
}

// WatchConfig configures the watch command
type WatchConfig struct {
	DebounceMs      int      `json:"debounceMs" mapstructure:"debounceMs"`
	IgnorePatterns  []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
	BuildStatusFile string   `json:"buildStatusFile" mapstructure:"buildStatusFile"`
}

// MetricsConfig configures the prometheus endpoint
type MetricsConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:          1,
		Enabled:          true,
		CoalesceWindowMs: 200,
		Evaluator: EvaluatorConfig{
			Semantic: true,
		},
		Store: StoreConfig{
			Kind: "memory",
			Dir:  DirName,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
		Watch: WatchConfig{
			DebounceMs:     50,
			IgnorePatterns: []string{"*.log", "*.tmp", "*.swp", "*~", ".git/**", "node_modules/**", DirName + "/**"},
		},
	}
}

// CoalesceWindow returns the coalesce window as a duration
func (c *Config) CoalesceWindow() time.Duration {
	return time.Duration(c.CoalesceWindowMs) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("enabled", d.Enabled)
	v.SetDefault("coalesceWindowMs", d.CoalesceWindowMs)
	v.SetDefault("evaluator.semantic", d.Evaluator.Semantic)
	v.SetDefault("store.kind", d.Store.Kind)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.scopeKey", d.Store.ScopeKey)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("watch.debounceMs", d.Watch.DebounceMs)
	v.SetDefault("watch.ignorePatterns", d.Watch.IgnorePatterns)
	v.SetDefault("watch.buildStatusFile", d.Watch.BuildStatusFile)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// LoadConfig loads configuration from .livelits/config.{json,yaml,toml} under
// root. LIVELITS_* environment variables override file values, with dots in
// keys replaced by underscores (LIVELITS_STORE_KIND).
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(root, DirName))
	v.SetEnvPrefix("LIVELITS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.New(errors.ConfigInvalid, "failed to read config", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.New(errors.ConfigInvalid, err.Error(), err)
	}
	return &cfg, nil
}

// Save writes the configuration to .livelits/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.CoalesceWindowMs <= 0 {
		return &ConfigError{Field: "coalesceWindowMs", Message: "must be positive"}
	}
	switch c.Store.Kind {
	case "memory":
	case "sqlite":
		if c.Store.Dir == "" {
			return &ConfigError{Field: "store.dir", Message: "required for the sqlite store"}
		}
	default:
		return &ConfigError{Field: "store.kind", Message: "must be memory or sqlite"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounceMs", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
