// Package config reads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Security  SecurityConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	Jobs      JobsConfig
	Cache     CacheConfig
	Providers ProvidersConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL      string // Full PostgreSQL URL
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int
	Host string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds the shared secret guarding maintenance endpoints.
// APIKeyHash, when set, is a bcrypt hash checked instead of APIKey.
type SecurityConfig struct {
	APIKey     string
	APIKeyHash string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// JobsConfig tunes the enrichment jobs.
type JobsConfig struct {
	Concurrency int
}

// CacheConfig sizes the public response cache.
type CacheConfig struct {
	TTL      time.Duration
	MaxBytes int64
}

// ProvidersConfig holds external provider credentials. All are optional at
// startup; a job that needs a missing credential fails when it runs.
type ProvidersConfig struct {
	Catalog string // spotify, apple_music

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRefreshToken string
	SpotifyUserID       string

	AppleMusicKeyID      string
	AppleMusicTeamID     string
	AppleMusicPrivateKey string
	AppleMusicStorefront string

	SetlistFMAPIKey string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	if err := cfg.loadDatabase(); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}
	if err := cfg.loadJobs(); err != nil {
		return nil, fmt.Errorf("load jobs config: %w", err)
	}
	if err := cfg.loadCache(); err != nil {
		return nil, fmt.Errorf("load cache config: %w", err)
	}
	cfg.loadSecurity()
	cfg.loadCORS()
	cfg.loadLogging()
	cfg.loadProviders()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadDatabase reads only the database section, for tools that do not
// serve requests.
func LoadDatabase() (DatabaseConfig, error) {
	var c Config
	if err := c.loadDatabase(); err != nil {
		return DatabaseConfig{}, err
	}
	if c.Database.URL == "" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
	}
	return c.Database, nil
}

func (c *Config) loadDatabase() error {
	c.Database.URL = os.Getenv("DATABASE_URL")
	if c.Database.URL != "" {
		return nil
	}

	c.Database.Host = getEnvOrDefault("DB_HOST", "localhost")
	c.Database.User = os.Getenv("DB_USER")
	c.Database.Password = os.Getenv("DB_PASSWORD")
	c.Database.Name = os.Getenv("DB_NAME")
	c.Database.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	if err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	c.Database.Port = port

	if c.Database.User != "" && c.Database.Name != "" {
		c.Database.URL = fmt.Sprintf(
			"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
			c.Database.User,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.Name,
			c.Database.SSLMode,
		)
	}
	return nil
}

func (c *Config) loadServer() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")
	return nil
}

func (c *Config) loadSecurity() {
	c.Security.APIKey = os.Getenv("API_KEY")
	c.Security.APIKeyHash = os.Getenv("API_KEY_HASH")
}

func (c *Config) loadCORS() {
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000"}
		return
	}
	for _, origin := range strings.Split(originsEnv, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			c.CORS.AllowedOrigins = append(c.CORS.AllowedOrigins, trimmed)
		}
	}
}

func (c *Config) loadLogging() {
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", "json")
}

func (c *Config) loadJobs() error {
	n, err := strconv.Atoi(getEnvOrDefault("JOB_CONCURRENCY", "1"))
	if err != nil {
		return fmt.Errorf("invalid JOB_CONCURRENCY: %w", err)
	}
	c.Jobs.Concurrency = n
	return nil
}

func (c *Config) loadCache() error {
	ttl, err := time.ParseDuration(getEnvOrDefault("CACHE_TTL", "1h"))
	if err != nil {
		return fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	c.Cache.TTL = ttl

	maxBytes, err := strconv.ParseInt(getEnvOrDefault("CACHE_MAX_BYTES", "67108864"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid CACHE_MAX_BYTES: %w", err)
	}
	c.Cache.MaxBytes = maxBytes
	return nil
}

func (c *Config) loadProviders() {
	p := &c.Providers
	p.Catalog = getEnvOrDefault("CATALOG_PROVIDER", "spotify")

	p.SpotifyClientID = os.Getenv("SPOTIFY_CLIENT_ID")
	p.SpotifyClientSecret = os.Getenv("SPOTIFY_CLIENT_SECRET")
	p.SpotifyRefreshToken = os.Getenv("SPOTIFY_REFRESH_TOKEN")
	p.SpotifyUserID = os.Getenv("SPOTIFY_USER_ID")

	p.AppleMusicKeyID = os.Getenv("APPLE_MUSIC_KEY_ID")
	p.AppleMusicTeamID = os.Getenv("APPLE_MUSIC_TEAM_ID")
	p.AppleMusicPrivateKey = os.Getenv("APPLE_MUSIC_PRIVATE_KEY")
	p.AppleMusicStorefront = getEnvOrDefault("APPLE_MUSIC_STOREFRONT", "cl")

	p.SetlistFMAPIKey = os.Getenv("SETLIST_FM_API_KEY")

	p.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	p.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	p.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini")
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var errors []string

	if c.Database.URL == "" {
		errors = append(errors, "DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
	}

	if c.Security.APIKey == "" && c.Security.APIKeyHash == "" {
		errors = append(errors, "API_KEY or API_KEY_HASH is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "PORT must be between 1 and 65535")
	}

	if c.Jobs.Concurrency < 1 {
		errors = append(errors, "JOB_CONCURRENCY must be at least 1")
	}

	validCatalogs := map[string]bool{"spotify": true, "apple_music": true}
	if !validCatalogs[c.Providers.Catalog] {
		errors = append(errors, "CATALOG_PROVIDER must be one of: spotify, apple_music")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errors = append(errors, "LOG_FORMAT must be one of: json, text")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(os.Getenv("ENV"))
	return env == "" || env == "development"
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
