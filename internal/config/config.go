// Package config provides configuration loading and structs for the movierec server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override config keys.
const EnvPrefix = "MOVIEREC_"

// ModelPathEnv is the legacy variable naming the snapshot file.
const ModelPathEnv = "MODEL_PATH"

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Recommend RecommendConfig `yaml:"recommend"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `yaml:"host" validate:"required"`
	Port              int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout       time.Duration `yaml:"read_timeout" validate:"min=0"`
	RequestTimeout    time.Duration `yaml:"request_timeout" validate:"min=0"`
	RateLimitRequests int           `yaml:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window" validate:"min=0"`
	RateLimitDisabled bool          `yaml:"rate_limit_disabled"`
}

// SnapshotConfig locates the snapshot artifact loaded at startup.
type SnapshotConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// RecommendConfig holds recommendation request limits.
type RecommendConfig struct {
	DefaultK        int  `yaml:"default_k" validate:"min=1"`
	MaxK            int  `yaml:"max_k" validate:"gtefield=DefaultK"`
	PopularCount    int  `yaml:"popular_count" validate:"min=1"`
	CacheSize       *int `yaml:"cache_size" validate:"omitempty,min=0"`
	SuggestionCount int  `yaml:"suggestion_count" validate:"min=0"`
}

// CacheSizeOrDefault returns the result cache capacity; 0 disables the cache.
func (r *RecommendConfig) CacheSizeOrDefault() int {
	if r.CacheSize != nil {
		return *r.CacheSize
	}
	return defaultCacheSize
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path" validate:"startswith=/"`
}

// EnabledOrDefault returns whether /metrics is served; defaults to true when unset.
func (m *MetricsConfig) EnabledOrDefault() bool {
	if m.Enabled != nil {
		return *m.Enabled
	}
	return true
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads and parses the config file at path, overlays environment variables,
// expands paths, applies defaults and validates the result.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return load(path)
}

// LoadOrDefault is Load, except that a missing file yields defaults plus environment.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return load("")
	}
	return Load(path)
}

func load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := "."
	if path != "" {
		configDir = filepath.Dir(path)
	}
	cfg.Snapshot.Path = expandPath(cfg.Snapshot.Path, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

var envSections = []string{"server", "snapshot", "recommend", "metrics"}

// envTransformFunc maps environment variable names to config keys.
// An empty result drops the variable.
//
//   - MODEL_PATH -> snapshot.path
//   - MOVIEREC_DEBUG -> debug
//   - MOVIEREC_SERVER_READ_TIMEOUT -> server.read_timeout
func envTransformFunc(key string) string {
	if key == ModelPathEnv {
		return "snapshot.path"
	}
	if !strings.HasPrefix(key, EnvPrefix) {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	for _, section := range envSections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	return key
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
