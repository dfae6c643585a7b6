// Package config provides configuration management for the application.
//
// Values are layered: built-in defaults, then an optional YAML file (with ${VAR}
// and ${VAR:-default} placeholders expanded from the environment), then explicit
// environment variables. A .env file in the working directory is loaded first.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server          ServerConfig          `yaml:"server"`
	Logging         LogConfig             `yaml:"logging"`
	Metrics         MetricsConfig         `yaml:"metrics"`
	HTTP            HTTPConfig            `yaml:"http"`
	Cache           CacheConfig           `yaml:"cache"`
	Storage         StorageConfig         `yaml:"storage"`
	Recommendations RecommendationsConfig `yaml:"recommendations"`
	Collaborator    CollaboratorConfig    `yaml:"collaborator"`
	Providers       ProvidersConfig       `yaml:"providers"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	// MasterKey protects /v1 routes with a bearer token when set
	MasterKey string `yaml:"master_key"`
	BodyLimit string `yaml:"body_limit"`
	// SwaggerEnabled serves the API docs under /swagger/
	SwaggerEnabled bool `yaml:"swagger_enabled"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	// Format is "pretty" (colored, human readable) or "json"
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// HTTPConfig holds outbound HTTP client timeouts, in seconds
type HTTPConfig struct {
	Timeout               int `yaml:"timeout"`
	ResponseHeaderTimeout int `yaml:"response_header_timeout"`
}

// CacheConfig configures the image and collaborator caches
type CacheConfig struct {
	// Type is "memory" or "redis"
	Type string `yaml:"type"`
	// TTL is the validity of an entry in seconds
	TTL        int         `yaml:"ttl"`
	MaxEntries int         `yaml:"max_entries"`
	Shards     int         `yaml:"shards"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// StorageConfig selects where favorites are persisted
type StorageConfig struct {
	// Type is "memory", "sqlite", "postgresql" or "mongodb"
	Type       string           `yaml:"type"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
	MongoDB    MongoDBConfig    `yaml:"mongodb"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// RecommendationsConfig tunes the orchestrator
type RecommendationsConfig struct {
	MaxItems                int  `yaml:"max_items"`
	BatchSize               int  `yaml:"batch_size"`
	IsolateCategoryFailures bool `yaml:"isolate_category_failures"`
}

// CollaboratorConfig holds the OpenAI-compatible chat completion settings
type CollaboratorConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// ProvidersConfig holds the image provider settings
type ProvidersConfig struct {
	Spotify   SpotifyConfig   `yaml:"spotify"`
	TMDB      TMDBConfig      `yaml:"tmdb"`
	Wikipedia WikipediaConfig `yaml:"wikipedia"`
	// RequestsPerSecond limits each provider independently
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// SpotifyConfig holds client-credentials settings for the music catalog
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	BaseURL      string `yaml:"base_url"`
	TokenURL     string `yaml:"token_url"`
}

// Enabled reports whether both credentials are configured.
func (c SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// TMDBConfig holds media metadata provider settings
type TMDBConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	ImageBaseURL string `yaml:"image_base_url"`
	Language     string `yaml:"language"`
}

// WikipediaConfig holds encyclopedia provider settings
type WikipediaConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

// LoadResult is the outcome of Load.
type LoadResult struct {
	Config *Config
	// Path is the YAML file that was read, empty when none was found
	Path string
}

// configPathEnv names an explicit YAML file.
const configPathEnv = "CURATOR_CONFIG"

var defaultConfigPaths = []string{"config/config.yaml", "config.yaml"}

// Load reads configuration from defaults, an optional YAML file and the environment.
func Load() (*LoadResult, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := buildDefaultConfig()

	path, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, Path: path}, nil
}

func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      "8080",
			BodyLimit: "1M",
		},
		Logging: LogConfig{
			Format: "pretty",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
		HTTP: HTTPConfig{
			Timeout:               15,
			ResponseHeaderTimeout: 10,
		},
		Cache: CacheConfig{
			Type:       "memory",
			TTL:        3600,
			MaxEntries: 10000,
			Shards:     16,
			Redis: RedisConfig{
				Prefix: "curator:",
			},
		},
		Storage: StorageConfig{
			Type: "memory",
			SQLite: SQLiteConfig{
				Path: "data/curator.db",
			},
			PostgreSQL: PostgreSQLConfig{
				MaxConns: 10,
			},
			MongoDB: MongoDBConfig{
				Database: "curator",
			},
		},
		Recommendations: RecommendationsConfig{
			MaxItems:  10,
			BatchSize: 5,
		},
		Collaborator: CollaboratorConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-3.5-turbo",
		},
		Providers: ProvidersConfig{
			Spotify: SpotifyConfig{
				BaseURL:  "https://api.spotify.com",
				TokenURL: "https://accounts.spotify.com/api/token",
			},
			TMDB: TMDBConfig{
				BaseURL:      "https://api.themoviedb.org/3",
				ImageBaseURL: "https://image.tmdb.org/t/p",
				Language:     "ja-JP",
			},
			Wikipedia: WikipediaConfig{
				Enabled: true,
				BaseURL: "https://ja.wikipedia.org/w/api.php",
			},
			RequestsPerSecond: 10,
		},
	}
}

func findConfigFile() (string, error) {
	if p := os.Getenv(configPathEnv); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("config file %s: %w", p, err)
		}
		return p, nil
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func loadYAML(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(expandString(string(raw))), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default}. A ${VAR} whose variable is
// unset or empty is left untouched so the mistake stays visible.
func expandString(s string) string {
	if s == "" {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		if v := os.Getenv(parts[1]); v != "" {
			return v
		}
		if parts[2] != "" {
			return parts[3]
		}
		return match
	})
}

func applyEnvOverrides(cfg *Config) error {
	overrideString("PORT", &cfg.Server.Port)
	overrideString("CURATOR_MASTER_KEY", &cfg.Server.MasterKey)
	overrideString("BODY_LIMIT", &cfg.Server.BodyLimit)

	overrideString("LOG_FORMAT", &cfg.Logging.Format)
	overrideString("LOG_LEVEL", &cfg.Logging.Level)

	overrideString("METRICS_ENDPOINT", &cfg.Metrics.Endpoint)

	overrideString("CACHE_TYPE", &cfg.Cache.Type)
	overrideString("REDIS_URL", &cfg.Cache.Redis.URL)
	overrideString("REDIS_KEY_PREFIX", &cfg.Cache.Redis.Prefix)

	overrideString("STORAGE_TYPE", &cfg.Storage.Type)
	overrideString("SQLITE_PATH", &cfg.Storage.SQLite.Path)
	overrideString("POSTGRES_URL", &cfg.Storage.PostgreSQL.URL)
	overrideString("MONGODB_URL", &cfg.Storage.MongoDB.URL)
	overrideString("MONGODB_DATABASE", &cfg.Storage.MongoDB.Database)

	overrideString("OPENAI_API_KEY", &cfg.Collaborator.APIKey)
	overrideString("OPENAI_BASE_URL", &cfg.Collaborator.BaseURL)
	overrideString("OPENAI_MODEL", &cfg.Collaborator.Model)

	overrideString("SPOTIFY_CLIENT_ID", &cfg.Providers.Spotify.ClientID)
	overrideString("SPOTIFY_CLIENT_SECRET", &cfg.Providers.Spotify.ClientSecret)
	overrideString("TMDB_API_KEY", &cfg.Providers.TMDB.APIKey)
	overrideString("WIKIPEDIA_BASE_URL", &cfg.Providers.Wikipedia.BaseURL)

	ints := []struct {
		key string
		dst *int
	}{
		{"HTTP_TIMEOUT", &cfg.HTTP.Timeout},
		{"HTTP_RESPONSE_HEADER_TIMEOUT", &cfg.HTTP.ResponseHeaderTimeout},
		{"CACHE_TTL", &cfg.Cache.TTL},
		{"CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries},
		{"POSTGRES_MAX_CONNS", &cfg.Storage.PostgreSQL.MaxConns},
		{"RECOMMENDATIONS_MAX_ITEMS", &cfg.Recommendations.MaxItems},
		{"RECOMMENDATIONS_BATCH_SIZE", &cfg.Recommendations.BatchSize},
	}
	for _, o := range ints {
		if err := overrideInt(o.key, o.dst); err != nil {
			return err
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"METRICS_ENABLED", &cfg.Metrics.Enabled},
		{"SWAGGER_ENABLED", &cfg.Server.SwaggerEnabled},
		{"WIKIPEDIA_ENABLED", &cfg.Providers.Wikipedia.Enabled},
		{"ISOLATE_CATEGORY_FAILURES", &cfg.Recommendations.IsolateCategoryFailures},
	}
	for _, o := range bools {
		if err := overrideBool(o.key, o.dst); err != nil {
			return err
		}
	}

	if v := os.Getenv("PROVIDER_REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid PROVIDER_REQUESTS_PER_SECOND %q: %w", v, err)
		}
		cfg.Providers.RequestsPerSecond = f
	}
	return nil
}

func overrideString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func overrideBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

// Validate rejects configurations the application cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Cache.Type) {
	case "memory":
	case "redis":
		if c.Cache.Redis.URL == "" {
			return fmt.Errorf("cache.redis.url is required when cache.type is redis")
		}
	default:
		return fmt.Errorf("unknown cache type: %s (valid: memory, redis)", c.Cache.Type)
	}

	switch strings.ToLower(c.Storage.Type) {
	case "memory", "sqlite":
	case "postgresql":
		if c.Storage.PostgreSQL.URL == "" {
			return fmt.Errorf("storage.postgresql.url is required when storage.type is postgresql")
		}
	case "mongodb":
		if c.Storage.MongoDB.URL == "" {
			return fmt.Errorf("storage.mongodb.url is required when storage.type is mongodb")
		}
	default:
		return fmt.Errorf("unknown storage type: %s (valid: memory, sqlite, postgresql, mongodb)", c.Storage.Type)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "pretty", "json":
	default:
		return fmt.Errorf("unknown log format: %s (valid: pretty, json)", c.Logging.Format)
	}

	positives := []struct {
		name  string
		value int
	}{
		{"http.timeout", c.HTTP.Timeout},
		{"cache.ttl", c.Cache.TTL},
		{"cache.max_entries", c.Cache.MaxEntries},
		{"recommendations.max_items", c.Recommendations.MaxItems},
		{"recommendations.batch_size", c.Recommendations.BatchSize},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}
	if c.Providers.RequestsPerSecond < 0 {
		return fmt.Errorf("providers.requests_per_second must not be negative")
	}
	return nil
}
