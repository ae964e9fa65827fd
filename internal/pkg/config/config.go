package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Gazetteer GazetteerConfig `mapstructure:"gazetteer"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Viewport  ViewportConfig  `mapstructure:"viewport"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`
	WriteTimeout int      `mapstructure:"write_timeout"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// NATSConfig: an empty URL runs the service on the in-process camera hub.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// ValkeyConfig: an empty address disables the resolution cache.
type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// Gazetteer sources.
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

type GazetteerConfig struct {
	Source string `mapstructure:"source"`
	Path   string `mapstructure:"path"`
}

type ResolverConfig struct {
	ShortInputLen    int    `mapstructure:"short_input_len"`
	ShortMaxDistance int    `mapstructure:"short_max_distance"`
	LongMaxDistance  int    `mapstructure:"long_max_distance"`
	PreferCountries  bool   `mapstructure:"prefer_countries"`
	PrimaryLanguage  string `mapstructure:"primary_language"`
	CountryZoom      int    `mapstructure:"country_zoom"`
	CityZoom         int    `mapstructure:"city_zoom"`
}

type ViewportConfig struct {
	Epsilon          float64 `mapstructure:"epsilon"`
	AnimationSeconds float64 `mapstructure:"animation_seconds"`
}

// Load reads configuration from an optional .env file, an optional config
// file and environment variables, in increasing order of precedence.
func Load(service string) (*Config, error) {
	// Variables already set in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "zonemap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "zonemap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "zonemap-gazetteer")
	v.SetDefault("gazetteer.source", SourceEmbedded)
	v.SetDefault("gazetteer.path", "")
	v.SetDefault("resolver.short_input_len", 5)
	v.SetDefault("resolver.short_max_distance", 2)
	v.SetDefault("resolver.long_max_distance", 3)
	v.SetDefault("resolver.prefer_countries", true)
	v.SetDefault("resolver.primary_language", "en")
	v.SetDefault("resolver.country_zoom", 5)
	v.SetDefault("resolver.city_zoom", 11)
	v.SetDefault("viewport.epsilon", 1e-4)
	v.SetDefault("viewport.animation_seconds", 1.5)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: ZONEMAP_DATABASE_HOST → database.host
	v.SetEnvPrefix("ZONEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	switch c.Gazetteer.Source {
	case SourceEmbedded:
	case SourceFile:
		if c.Gazetteer.Path == "" {
			errs = append(errs, "gazetteer.path is required when gazetteer.source is file")
		}
	case SourcePostgres:
		errs = append(errs, c.Database.problems()...)
	default:
		errs = append(errs, fmt.Sprintf("gazetteer.source must be embedded, file or postgres, got %q", c.Gazetteer.Source))
	}

	r := c.Resolver
	if r.ShortInputLen <= 0 {
		errs = append(errs, "resolver.short_input_len must be positive")
	}
	if r.ShortMaxDistance < 0 || r.LongMaxDistance < 0 {
		errs = append(errs, "resolver distances must not be negative")
	}
	if _, err := language.Parse(r.PrimaryLanguage); err != nil {
		errs = append(errs, fmt.Sprintf("resolver.primary_language: %v", err))
	}
	if r.CountryZoom <= 0 || r.CityZoom <= 0 {
		errs = append(errs, "resolver zoom defaults must be positive")
	}

	if c.Viewport.Epsilon <= 0 {
		errs = append(errs, "viewport.epsilon must be positive")
	}
	if c.Viewport.AnimationSeconds <= 0 {
		errs = append(errs, "viewport.animation_seconds must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (d DatabaseConfig) problems() []string {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user is required")
	}
	if d.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	return errs
}

// ValidateDatabase checks the database section for commands that always
// need PostgreSQL, such as migrations and imports.
func (c *Config) ValidateDatabase() error {
	if errs := c.Database.problems(); len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
