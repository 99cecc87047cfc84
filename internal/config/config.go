package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime configuration for the embed resolver service.
type Config struct {
	AppPort  int
	LogLevel string

	// Partner credentials presented to the session service.
	Username string
	Password string

	// SessionServiceURL is the base URL of the session service.
	SessionServiceURL string
	// MediaBaseURL is the base URL of the media metadata API.
	MediaBaseURL string

	// OEmbedProvidersURL optionally points at a remote providers.json
	// document. When empty the statically known provider list is used.
	OEmbedProvidersURL string
	ProviderCacheTTL   time.Duration

	// AllowedProviders restricts which matched providers may be resolved.
	AllowedProviders []string

	HTTPTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ResolveRateLimit  int
	ResolveRateWindow time.Duration
}

// fileConfig is the YAML shape accepted by an optional config file.
// Durations are strings understood by time.ParseDuration.
type fileConfig struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	Kaltura struct {
		Username   string `yaml:"username"`
		Password   string `yaml:"password"`
		ServiceURL string `yaml:"service_url"`
		MediaURL   string `yaml:"media_url"`
	} `yaml:"kaltura"`

	OEmbed struct {
		ProvidersURL     string   `yaml:"providers_url"`
		ProviderCacheTTL string   `yaml:"provider_cache_ttl"`
		AllowedProviders []string `yaml:"allowed_providers"`
	} `yaml:"oembed"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads configuration from an optional YAML file referenced by
// EMBEDRESOLVER_CONFIG, then applies environment variable overrides on top
// of the built-in defaults.
func Load() (Config, error) {
	cfg := Config{
		AppPort:           8080,
		LogLevel:          "info",
		SessionServiceURL: "https://www.kaltura.com",
		MediaBaseURL:      "http://www.kaltura.com",
		ProviderCacheTTL:  604800 * time.Second,
		AllowedProviders:  []string{"YouTube", "Vimeo", "Kaltura"},
		HTTPTimeout:       30 * time.Second,
		ResolveRateLimit:  30,
		ResolveRateWindow: time.Minute,
	}

	if path := os.Getenv("EMBEDRESOLVER_CONFIG"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.AppPort = getInt("EMBEDRESOLVER_PORT", cfg.AppPort)
	cfg.LogLevel = getString("EMBEDRESOLVER_LOG_LEVEL", cfg.LogLevel)
	cfg.Username = getString("EMBEDRESOLVER_KALTURA_USERNAME", cfg.Username)
	cfg.Password = getString("EMBEDRESOLVER_KALTURA_PASSWORD", cfg.Password)
	cfg.SessionServiceURL = getString("EMBEDRESOLVER_SESSION_URL", cfg.SessionServiceURL)
	cfg.MediaBaseURL = getString("EMBEDRESOLVER_MEDIA_URL", cfg.MediaBaseURL)
	cfg.OEmbedProvidersURL = getString("EMBEDRESOLVER_PROVIDERS_URL", cfg.OEmbedProvidersURL)
	cfg.ProviderCacheTTL = getDuration("EMBEDRESOLVER_PROVIDER_CACHE_TTL", cfg.ProviderCacheTTL)
	cfg.HTTPTimeout = getDuration("EMBEDRESOLVER_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.RedisAddr = getString("EMBEDRESOLVER_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getString("EMBEDRESOLVER_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getInt("EMBEDRESOLVER_REDIS_DB", cfg.RedisDB)
	cfg.ResolveRateLimit = getInt("EMBEDRESOLVER_RATE_LIMIT", cfg.ResolveRateLimit)
	cfg.ResolveRateWindow = getDuration("EMBEDRESOLVER_RATE_WINDOW", cfg.ResolveRateWindow)

	if allowed := os.Getenv("EMBEDRESOLVER_ALLOWED_PROVIDERS"); allowed != "" {
		cfg.AllowedProviders = splitList(allowed)
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if file.Port != 0 {
		cfg.AppPort = file.Port
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.Kaltura.Username != "" {
		cfg.Username = file.Kaltura.Username
	}
	if file.Kaltura.Password != "" {
		cfg.Password = file.Kaltura.Password
	}
	if file.Kaltura.ServiceURL != "" {
		cfg.SessionServiceURL = file.Kaltura.ServiceURL
	}
	if file.Kaltura.MediaURL != "" {
		cfg.MediaBaseURL = file.Kaltura.MediaURL
	}
	if file.OEmbed.ProvidersURL != "" {
		cfg.OEmbedProvidersURL = file.OEmbed.ProvidersURL
	}
	if file.OEmbed.ProviderCacheTTL != "" {
		ttl, err := time.ParseDuration(file.OEmbed.ProviderCacheTTL)
		if err != nil {
			return fmt.Errorf("parse provider_cache_ttl: %w", err)
		}
		cfg.ProviderCacheTTL = ttl
	}
	if len(file.OEmbed.AllowedProviders) > 0 {
		cfg.AllowedProviders = file.OEmbed.AllowedProviders
	}
	if file.Redis.Address != "" {
		cfg.RedisAddr = file.Redis.Address
	}
	if file.Redis.Password != "" {
		cfg.RedisPassword = file.Redis.Password
	}
	if file.Redis.DB != 0 {
		cfg.RedisDB = file.Redis.DB
	}
	return nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
