package config

import "time"

const defaultCacheSize = 1024

// DefaultSnapshotPath is where the snapshot is read from when nothing overrides it.
const DefaultSnapshotPath = "/data/movie_recommender.db"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.RateLimitRequests == 0 {
		cfg.Server.RateLimitRequests = 100
	}
	if cfg.Server.RateLimitWindow == 0 {
		cfg.Server.RateLimitWindow = time.Minute
	}
	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = DefaultSnapshotPath
	}
	if cfg.Recommend.DefaultK == 0 {
		cfg.Recommend.DefaultK = 5
	}
	if cfg.Recommend.MaxK == 0 {
		cfg.Recommend.MaxK = 20
	}
	if cfg.Recommend.PopularCount == 0 {
		cfg.Recommend.PopularCount = 1000
	}
	// Cache size 0 is meaningful, so only nil is defaulted.
	if cfg.Recommend.CacheSize == nil {
		n := defaultCacheSize
		cfg.Recommend.CacheSize = &n
	}
	if cfg.Recommend.SuggestionCount == 0 {
		cfg.Recommend.SuggestionCount = 5
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
