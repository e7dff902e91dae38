package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Web       WebConfig       `mapstructure:"web"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Query     QueryConfig     `mapstructure:"query"`
	Push      PushConfig      `mapstructure:"push"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

// WebConfig is the viewer-facing HTTP server.
type WebConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	PortAttempts int    `mapstructure:"port_attempts"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
}

// MCPConfig selects how tools are served: "stdio" or "http".
type MCPConfig struct {
	Transport string `mapstructure:"transport"`
	Addr      string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
	ReadOnly bool   `mapstructure:"read_only"`
}

// DSN builds a postgres URL. Credentials are escaped.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

type QueryConfig struct {
	StatementTimeoutMS int `mapstructure:"statement_timeout_ms"`
	MaxRows            int `mapstructure:"max_rows"`
}

type PushConfig struct {
	QueueSize    int           `mapstructure:"queue_size"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

// NATSConfig enables the event mirror when URL is set.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// ValkeyConfig enables snapshot persistence when Addr is set.
type ValkeyConfig struct {
	Addr     string        `mapstructure:"addr"`
	StateKey string        `mapstructure:"state_key"`
	StateTTL time.Duration `mapstructure:"state_ttl"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"endpoint"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// legacyEnv maps the environment names the map server has always read.
var legacyEnv = map[string][]string{
	"database.host":     {"PGHOST"},
	"database.port":     {"PGPORT"},
	"database.dbname":   {"PGDB", "PGDATABASE"},
	"database.user":     {"PGUSER"},
	"database.password": {"PGPASSWORD"},
	"web.host":          {"FLASK_HOST"},
	"web.port":          {"FLASK_PORT"},
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("web.host", "127.0.0.1")
	v.SetDefault("web.port", 8888)
	v.SetDefault("web.port_attempts", 10)
	v.SetDefault("web.read_timeout", 10)
	v.SetDefault("mcp.transport", "stdio")
	v.SetDefault("mcp.addr", "127.0.0.1:8889")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "osm")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.read_only", false)
	v.SetDefault("query.statement_timeout_ms", 10000)
	v.SetDefault("query.max_rows", 0)
	v.SetDefault("push.queue_size", 256)
	v.SetDefault("push.ping_interval", 30*time.Second)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "osmmap.map")
	v.SetDefault("valkey.addr", "")
	v.SetDefault("valkey.state_key", "osmmap:state")
	v.SetDefault("valkey.state_ttl", 7*24*time.Hour)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: OSMMAP_DATABASE_HOST → database.host
	v.SetEnvPrefix("OSMMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The prefixed name wins over the legacy one.
	for key, names := range legacyEnv {
		args := append([]string{key, "OSMMAP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

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

	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		errs = append(errs, fmt.Sprintf("web.port must be 1-65535, got %d", c.Web.Port))
	}
	if c.Web.PortAttempts < 1 {
		errs = append(errs, "web.port_attempts must be at least 1")
	}
	if c.Web.ReadTimeout <= 0 {
		errs = append(errs, "web.read_timeout must be positive")
	}
	switch c.MCP.Transport {
	case "stdio":
	case "http":
		if c.MCP.Addr == "" {
			errs = append(errs, "mcp.addr is required for the http transport")
		}
	default:
		errs = append(errs, fmt.Sprintf("mcp.transport must be stdio or http, got %q", c.MCP.Transport))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "database.max_conns must be positive")
	}
	if c.Query.StatementTimeoutMS < 0 {
		errs = append(errs, "query.statement_timeout_ms must not be negative")
	}
	if c.Query.MaxRows < 0 {
		errs = append(errs, "query.max_rows must not be negative")
	}
	if c.Push.QueueSize <= 0 {
		errs = append(errs, "push.queue_size must be positive")
	}
	if c.Push.PingInterval <= 0 {
		errs = append(errs, "push.ping_interval must be positive")
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		errs = append(errs, "nats.subject is required when nats.url is set")
	}
	if c.Valkey.Addr != "" && c.Valkey.StateKey == "" {
		errs = append(errs, "valkey.state_key is required when valkey.addr is set")
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, "telemetry.endpoint is required when telemetry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
