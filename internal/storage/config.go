package storage

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Database struct {
		Path string `yaml:"path" env:"OFFLINE_DB_PATH"`
	} `yaml:"database"`

	Cache struct {
		MaxArticlesStored  int      `yaml:"max_articles_stored" env:"OFFLINE_MAX_ARTICLES"`
		CacheDurationHours int      `yaml:"cache_duration_hours" env:"OFFLINE_CACHE_DURATION_HOURS"`
		PriorityCategories []string `yaml:"priority_categories"`

		// Soft budgets surfaced by the cache inspector, not enforced.
		ImagesCacheSizeMB       float64 `yaml:"images_cache_size_mb"`
		AudioCacheSizeMB        float64 `yaml:"audio_cache_size_mb"`
		TranslationsCacheSizeMB float64 `yaml:"translations_cache_size_mb"`

		DataSaverImageQuality  float64 `yaml:"data_saver_image_quality"`
		DataSaverThumbnailSize int     `yaml:"data_saver_thumbnail_size"`
	} `yaml:"cache"`

	Source struct {
		BaseURL string `yaml:"base_url" env:"OFFLINE_SOURCE_URL"`
	} `yaml:"source"`

	Sync struct {
		HistoryURL      string `yaml:"history_url" env:"OFFLINE_HISTORY_URL"`
		ActivityLogPath string `yaml:"activity_log_path" env:"OFFLINE_ACTIVITY_LOG"`
	} `yaml:"sync"`
}

// DefaultConfig returns a config with the stock cache limits.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Database.Path = "./offline.db"
	cfg.Cache.MaxArticlesStored = 100
	cfg.Cache.CacheDurationHours = 24
	cfg.Cache.PriorityCategories = []string{"security", "health", "governance", "emergency"}
	cfg.Cache.ImagesCacheSizeMB = 50
	cfg.Cache.AudioCacheSizeMB = 30
	cfg.Cache.TranslationsCacheSizeMB = 20
	cfg.Cache.DataSaverImageQuality = 0.6
	cfg.Cache.DataSaverThumbnailSize = 150
	cfg.Sync.ActivityLogPath = "./offline-activity.jsonl"
	return cfg
}

// ApplyEnv overlays environment variables onto the config.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
