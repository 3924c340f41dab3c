package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
)

func writeConfig(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

func TestLoad(t *testing.T) {
	_, path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
  read_timeout: 5s
snapshot:
  path: "/tmp/movies.db"
recommend:
  max_k: 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("read_timeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Snapshot.Path != "/tmp/movies.db" {
		t.Errorf("snapshot path = %s", cfg.Snapshot.Path)
	}
	if cfg.Recommend.MaxK != 50 || cfg.Recommend.DefaultK != 5 {
		t.Errorf("unexpected recommend config: %+v", cfg.Recommend)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	_, path := writeConfig(t, "debug: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	_, path := writeConfig(t, "server: [1, 2\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir, path := writeConfig(t, `
snapshot:
  path: "./data/movies.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "data", "movies.db")
	if cfg.Snapshot.Path != want {
		t.Errorf("snapshot path = %s, want %s", cfg.Snapshot.Path, want)
	}
}

func TestLoad_cacheSizeZeroDisables(t *testing.T) {
	_, path := writeConfig(t, `
recommend:
  cache_size: 0
metrics:
  enabled: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Recommend.CacheSizeOrDefault(); got != 0 {
		t.Errorf("cache size = %d, want 0", got)
	}
	if cfg.Metrics.EnabledOrDefault() {
		t.Error("metrics should be disabled")
	}
}

func TestLoad_envOverrides(t *testing.T) {
	_, path := writeConfig(t, `
server:
  port: 9000
`)
	t.Setenv("MODEL_PATH", "/srv/model.db")
	t.Setenv("MOVIEREC_SERVER_PORT", "9100")
	t.Setenv("MOVIEREC_RECOMMEND_DEFAULT_K", "3")
	t.Setenv("MOVIEREC_DEBUG", "true")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Snapshot.Path != "/srv/model.db" {
		t.Errorf("snapshot path = %s, want /srv/model.db", cfg.Snapshot.Path)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Recommend.DefaultK != 3 {
		t.Errorf("default_k = %d, want 3", cfg.Recommend.DefaultK)
	}
	if !cfg.Debug {
		t.Error("debug should be enabled from env")
	}
}

func TestLoadOrDefault_missingFile(t *testing.T) {
	t.Setenv("MODEL_PATH", "/srv/model.db")
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Snapshot.Path != "/srv/model.db" {
		t.Errorf("snapshot path = %s", cfg.Snapshot.Path)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want default", cfg.Server.Port)
	}
}

func TestLoad_validation(t *testing.T) {
	_, path := writeConfig(t, `
recommend:
  default_k: 30
  max_k: 10
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validator errors, got %v", err)
	}
	if !strings.Contains(err.Error(), "MaxK") {
		t.Errorf("error should name MaxK: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 60*time.Second {
		t.Errorf("default request timeout: got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.RateLimitRequests != 100 || cfg.Server.RateLimitWindow != time.Minute {
		t.Errorf("default rate limit: got %d per %v", cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow)
	}
	if cfg.Snapshot.Path != DefaultSnapshotPath {
		t.Errorf("default snapshot path: got %s", cfg.Snapshot.Path)
	}
	if cfg.Recommend.DefaultK != 5 || cfg.Recommend.MaxK != 20 || cfg.Recommend.PopularCount != 1000 {
		t.Errorf("default recommend: got %+v", cfg.Recommend)
	}
	if cfg.Recommend.CacheSizeOrDefault() != 1024 {
		t.Errorf("default cache size: got %d", cfg.Recommend.CacheSizeOrDefault())
	}
	if !cfg.Metrics.EnabledOrDefault() || cfg.Metrics.Path != "/metrics" {
		t.Errorf("default metrics: got %+v", cfg.Metrics)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"MODEL_PATH", "snapshot.path"},
		{"MOVIEREC_DEBUG", "debug"},
		{"MOVIEREC_SERVER_READ_TIMEOUT", "server.read_timeout"},
		{"MOVIEREC_METRICS_ENABLED", "metrics.enabled"},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 8080}
	if got := s.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Addr() = %s", got)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:   ServerConfig{Host: "localhost", Port: 9090, ReadTimeout: 3 * time.Second},
		Snapshot: SnapshotConfig{Path: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Server.ReadTimeout != 3*time.Second {
		t.Errorf("loaded read timeout: got %v", loaded.Server.ReadTimeout)
	}
}
