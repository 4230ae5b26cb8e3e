package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures Last.fm credentials, storage, and recommendation strategy.
type Config struct {
	Lastfm    LastfmConfig    `yaml:"lastfm"`
	Storage   StorageConfig   `yaml:"storage"`
	Recommend RecommendConfig `yaml:"recommend"`
	Seed      SeedConfig      `yaml:"seed"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type LastfmConfig struct {
	// API key for ws.audioscrobbler.com. If empty, read from env LASTFM_API_KEY.
	APIKey string `yaml:"apiKey"`
	// Shared secret is only needed for authenticated writes; unused here but
	// kept in the config for parity with the Last.fm credential pair.
	APISecret string `yaml:"apiSecret"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type RecommendConfig struct {
	// Default number of recommendations when the caller does not ask.
	DefaultCount int `yaml:"defaultCount"`
	// Hard cap on recommendations per request.
	MaxCount int `yaml:"maxCount"`
	// Tags fetched per album/artist during ingestion.
	TagsPerAlbum int `yaml:"tagsPerAlbum"`
}

type SeedConfig struct {
	// CSV with release_name, artist_name, primary_genres columns.
	CSVPath string `yaml:"csvPath"`
	// Max releases to process per seed run; 0 means all.
	Limit int `yaml:"limit"`
}

type MetricsConfig struct {
	// Listen address for /metrics, e.g. ":9090". Empty disables the server.
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Lastfm:    LastfmConfig{APIKey: "", APISecret: ""},
		Storage:   StorageConfig{DBPath: "./tonearm.db"},
		Recommend: RecommendConfig{DefaultCount: 4, MaxCount: 20, TagsPerAlbum: 3},
		Seed:      SeedConfig{CSVPath: "", Limit: 0},
		Metrics:   MetricsConfig{Addr: ""},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Lastfm.APIKey == "" {
		c.Lastfm.APIKey = os.Getenv("LASTFM_API_KEY")
	}
	if c.Lastfm.APISecret == "" {
		c.Lastfm.APISecret = os.Getenv("LASTFM_API_SECRET")
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
