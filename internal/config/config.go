// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Research  ResearchConfig  `yaml:"research" mapstructure:"research"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// FirecrawlConfig holds Firecrawl API settings (primary renderer).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina AI Reader settings (fallback renderer).
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PlacesConfig holds the place-search API settings.
type PlacesConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimitRPS  float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	MaxCandidates int     `yaml:"max_candidates" mapstructure:"max_candidates"`
}

// GeocodeConfig holds the geocoding/validation API settings.
type GeocodeConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// AnthropicConfig holds the optional text-extraction service settings.
// Roster assist is only attempted when a key is configured.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// DiscoveryConfig configures page discovery.
type DiscoveryConfig struct {
	FeedTimeoutSecs   int `yaml:"feed_timeout_secs" mapstructure:"feed_timeout_secs"`
	RenderTimeoutSecs int `yaml:"render_timeout_secs" mapstructure:"render_timeout_secs"`
	MaxSubFeeds       int `yaml:"max_sub_feeds" mapstructure:"max_sub_feeds"`
	MaxPages          int `yaml:"max_pages" mapstructure:"max_pages"`
	CacheTTLSecs      int `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
}

// ResearchConfig configures resolver behavior.
type ResearchConfig struct {
	MinGeocodeConfidence float64 `yaml:"min_geocode_confidence" mapstructure:"min_geocode_confidence"`
	MinNameMatchScore    float64 `yaml:"min_name_match_score" mapstructure:"min_name_match_score"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentSubjects int `yaml:"max_concurrent_subjects" mapstructure:"max_concurrent_subjects"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FIRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "firm-research.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_subjects", 4)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.rate_limit_rps", 5)
	v.SetDefault("places.max_candidates", 5)
	v.SetDefault("geocode.base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocode.rate_limit_rps", 10)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("discovery.feed_timeout_secs", 10)
	v.SetDefault("discovery.render_timeout_secs", 30)
	v.SetDefault("discovery.max_sub_feeds", 5)
	v.SetDefault("discovery.max_pages", 200)
	v.SetDefault("discovery.cache_ttl_secs", 3600)
	v.SetDefault("research.min_geocode_confidence", 0.7)
	v.SetDefault("research.min_name_match_score", 0.5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
