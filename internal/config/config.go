package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Encoder  EncoderConfig  `mapstructure:"encoder"`
	Search   SearchConfig   `mapstructure:"search"`
	Suggest  SuggestConfig  `mapstructure:"suggest"`
	Index    IndexConfig    `mapstructure:"index"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// PathsConfig locates the persisted stores.
type PathsConfig struct {
	Embeddings string `mapstructure:"embeddings"`
	Tags       string `mapstructure:"tags"`
}

// StorageConfig locates the image corpus. Type is "local" or "s3".
type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Root      string `mapstructure:"root"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
}

type SearchConfig struct {
	ScoreThreshold float64 `mapstructure:"score_threshold"`
	MaxResults     int     `mapstructure:"max_results"`
}

type SuggestConfig struct {
	NeighborCount int `mapstructure:"neighbor_count"`
	TagCount      int `mapstructure:"tag_count"`
}

type IndexConfig struct {
	Workers int `mapstructure:"workers"`
}

// DatabaseConfig configures the index run history. Driver is "sqlite"
// (Path) or "postgres" (DSN).
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ConnectionString returns the DSN for the driver. SQLite falls back to Path.
func (c *DatabaseConfig) ConnectionString() string {
	if c.Driver == "sqlite" && c.DSN == "" {
		return c.Path
	}
	return c.DSN
}

// Load reads configuration from configPath, or from config.yaml in ./configs
// or the working directory when configPath is empty. Environment variables
// override file values.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("encoder.base_url", "CLIP_SERVER_URL")
	v.BindEnv("search.score_threshold", "SEARCH_SCORE_THRESHOLD")
	v.BindEnv("database.dsn", "DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Encoder.ResolveEnvVars()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("paths.embeddings", "./data/embeddings.msgpack")
	v.SetDefault("paths.tags", "./data/tags.json")
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.root", "./images")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("encoder.provider", "jina")
	v.SetDefault("encoder.model", "jina-clip-v2")
	v.SetDefault("encoder.api_key_env", "JINA_API_KEY")
	v.SetDefault("encoder.dimensions", 512)
	v.SetDefault("encoder.timeout", 30*time.Second)
	v.SetDefault("search.score_threshold", 0.20)
	v.SetDefault("search.max_results", 100)
	v.SetDefault("suggest.neighbor_count", 5)
	v.SetDefault("suggest.tag_count", 10)
	v.SetDefault("index.workers", 4)
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/phototag.db")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if c.Paths.Embeddings == "" {
		return fmt.Errorf("paths.embeddings is required")
	}
	if c.Paths.Tags == "" {
		return fmt.Errorf("paths.tags is required")
	}
	if c.Search.ScoreThreshold < -1 || c.Search.ScoreThreshold > 1 {
		return fmt.Errorf("search.score_threshold must be within [-1, 1], got %v", c.Search.ScoreThreshold)
	}
	if c.Suggest.NeighborCount <= 0 || c.Suggest.TagCount <= 0 {
		return fmt.Errorf("suggest.neighbor_count and suggest.tag_count must be positive")
	}
	if c.Index.Workers <= 0 {
		return fmt.Errorf("index.workers must be positive")
	}
	switch c.Storage.Type {
	case "local", "s3":
	default:
		return fmt.Errorf("storage.type must be local or s3, got %q", c.Storage.Type)
	}
	return c.Encoder.Validate()
}
