package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// JWTSecret overrides the generated secret when set. Normally left
	// empty so the secret is generated once and persisted in settings.
	JWTSecret string `mapstructure:"jwt_secret"`
}

// CatalogConfig holds external catalog provider configuration.
type CatalogConfig struct {
	TMDB TMDBConfig `mapstructure:"tmdb"`
	OMDB OMDBConfig `mapstructure:"omdb"`
	// Region scopes watch-provider lookups and discover queries.
	Region string `mapstructure:"region"`
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ImageBaseURL string `mapstructure:"image_base_url"`
	Timeout      int    `mapstructure:"timeout"`
}

// OMDBConfig holds OMDb API configuration.
type OMDBConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// DiscoveryConfig bounds catalog fetching and enrichment.
type DiscoveryConfig struct {
	BrowsePages     int `mapstructure:"browse_pages"`
	ComparePages    int `mapstructure:"compare_pages"`
	MaxCandidates   int `mapstructure:"max_candidates"`
	EnrichBatchSize int `mapstructure:"enrich_batch_size"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "./data/reelmates.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Auth: AuthConfig{
			JWTSecret: "",
		},
		Catalog: CatalogConfig{
			TMDB: TMDBConfig{
				BaseURL:      "https://api.themoviedb.org/3",
				ImageBaseURL: "https://image.tmdb.org/t/p",
				Timeout:      15,
			},
			OMDB: OMDBConfig{
				BaseURL: "https://www.omdbapi.com",
				Timeout: 10,
			},
			Region: "US",
		},
		Discovery: DiscoveryConfig{
			BrowsePages:     2,
			ComparePages:    20,
			MaxCandidates:   100,
			EnrichBatchSize: 3,
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.reelmates")
	}

	v.SetEnvPrefix("REELMATES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", d.Logging.Path)

	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)

	v.SetDefault("catalog.tmdb.api_key", "")
	v.SetDefault("catalog.tmdb.base_url", d.Catalog.TMDB.BaseURL)
	v.SetDefault("catalog.tmdb.image_base_url", d.Catalog.TMDB.ImageBaseURL)
	v.SetDefault("catalog.tmdb.timeout", d.Catalog.TMDB.Timeout)
	v.SetDefault("catalog.omdb.api_key", "")
	v.SetDefault("catalog.omdb.base_url", d.Catalog.OMDB.BaseURL)
	v.SetDefault("catalog.omdb.timeout", d.Catalog.OMDB.Timeout)
	v.SetDefault("catalog.region", d.Catalog.Region)

	v.SetDefault("discovery.browse_pages", d.Discovery.BrowsePages)
	v.SetDefault("discovery.compare_pages", d.Discovery.ComparePages)
	v.SetDefault("discovery.max_candidates", d.Discovery.MaxCandidates)
	v.SetDefault("discovery.enrich_batch_size", d.Discovery.EnrichBatchSize)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
