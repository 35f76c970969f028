// Package config loads runtime settings: defaults, then an optional TOML file named by
// CONFIG_FILE, then a .env file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/tinoosan/tesouraria/internal/dictionary"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Auth    AuthConfig    `toml:"auth"`
	Report  ReportConfig  `toml:"report"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	Port        int      `toml:"port"`
	StaticDir   string   `toml:"static_dir"`
	CORSOrigins []string `toml:"cors_origins"`
}

type StorageConfig struct {
	// Backend is postgres, sqlite or memory. Empty derives it from the other fields.
	Backend     string `toml:"backend"`
	DatabaseURL string `toml:"database_url"`
	DBHost      string `toml:"db_host"`
	DBUser      string `toml:"db_user"`
	DBPassword  string `toml:"db_password"`
	DBName      string `toml:"db_name"`
	DBPort      int    `toml:"db_port"`
	SQLitePath  string `toml:"sqlite_path"`
	MaxConns    int    `toml:"max_conns"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	// TokenTTL is a Go duration string such as "1h" or "90m".
	TokenTTL   string `toml:"token_ttl"`
	ProtectAll bool   `toml:"protect_all"`
}

type ReportConfig struct {
	Categories []string `toml:"categories"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	cats := make([]string, len(dictionary.DefaultReportCategories))
	copy(cats, dictionary.DefaultReportCategories)
	return Config{
		Server:  ServerConfig{Port: 3000, CORSOrigins: []string{"*"}},
		Storage: StorageConfig{DBPort: 5432, MaxConns: 10},
		Auth:    AuthConfig{TokenTTL: "1h", ProtectAll: true},
		Report:  ReportConfig{Categories: cats},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from every source. Empty environment variables are ignored
// and a missing .env file is not an error.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var problems []string
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s must be a number, got %q", key, v))
				return
			}
			*dst = n
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = splitList(v)
		}
	}

	num("PORT", &c.Server.Port)
	str("STATIC_DIR", &c.Server.StaticDir)
	list("CORS_ORIGINS", &c.Server.CORSOrigins)

	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("DATABASE_URL", &c.Storage.DatabaseURL)
	str("DB_HOST", &c.Storage.DBHost)
	str("DB_USER", &c.Storage.DBUser)
	str("DB_PASSWORD", &c.Storage.DBPassword)
	str("DB_NAME", &c.Storage.DBName)
	num("DB_PORT", &c.Storage.DBPort)
	str("SQLITE_PATH", &c.Storage.SQLitePath)
	num("DB_MAX_CONNS", &c.Storage.MaxConns)

	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("TOKEN_TTL", &c.Auth.TokenTTL)
	if v, ok := lookup("AUTH_PROTECT_ALL"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			problems = append(problems, fmt.Sprintf("AUTH_PROTECT_ALL must be a boolean, got %q", v))
		} else {
			c.Auth.ProtectAll = b
		}
	}

	list("REPORT_CATEGORIES", &c.Report.Categories)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(problems, "; "))
	}
	return nil
}

func splitList(v string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ResolvedBackend returns the configured backend, or derives one: postgres when any
// connection setting is present, sqlite when a file path is set, memory otherwise.
func (c Config) ResolvedBackend() string {
	if b := strings.ToLower(c.Storage.Backend); b != "" {
		return b
	}
	switch {
	case c.Storage.DatabaseURL != "" || c.Storage.DBHost != "":
		return BackendPostgres
	case c.Storage.SQLitePath != "":
		return BackendSQLite
	default:
		return BackendMemory
	}
}

// PostgresDSN returns DATABASE_URL or a postgres:// URL built from the DB_* pieces.
func (c Config) PostgresDSN() string {
	if c.Storage.DatabaseURL != "" {
		return c.Storage.DatabaseURL
	}
	if c.Storage.DBHost == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Storage.DBHost, strconv.Itoa(c.Storage.DBPort)),
		Path:   "/" + c.Storage.DBName,
	}
	if c.Storage.DBUser != "" {
		if c.Storage.DBPassword != "" {
			u.User = url.UserPassword(c.Storage.DBUser, c.Storage.DBPassword)
		} else {
			u.User = url.User(c.Storage.DBUser)
		}
	}
	return u.String()
}

// TokenTTL parses Auth.TokenTTL. Validate reports a bad value; here it falls back to one hour.
func (c Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + strconv.Itoa(c.Server.Port) }

// Validate reports every problem at once.
func (c Config) Validate() error { return c.validate(true) }

// ValidateMaintenance is Validate without the token signing checks, for
// commands that never issue tokens (migrate, user add, snapshot).
func (c Config) ValidateMaintenance() error { return c.validate(false) }

func (c Config) validate(issuesTokens bool) error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Server.Port))
	}
	if c.Server.StaticDir != "" {
		if fi, err := os.Stat(c.Server.StaticDir); err != nil || !fi.IsDir() {
			problems = append(problems, fmt.Sprintf("static dir %q is not a directory", c.Server.StaticDir))
		}
	}

	backend := c.ResolvedBackend()
	switch backend {
	case BackendPostgres:
		if c.PostgresDSN() == "" {
			problems = append(problems, "postgres backend needs DATABASE_URL or DB_HOST")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			problems = append(problems, "sqlite backend needs SQLITE_PATH")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("invalid storage backend %q: must be one of postgres, sqlite, memory", backend))
	}
	if c.Storage.DBPort < 1 || c.Storage.DBPort > 65535 {
		problems = append(problems, fmt.Sprintf("invalid DB port %d", c.Storage.DBPort))
	}
	if c.Storage.MaxConns < 1 {
		problems = append(problems, "DB_MAX_CONNS must be at least 1")
	}

	if issuesTokens {
		if backend != BackendMemory && c.Auth.JWTSecret == "" {
			problems = append(problems, "JWT_SECRET is required for persistent backends")
		}
		if d, err := time.ParseDuration(c.Auth.TokenTTL); err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("invalid token TTL %q", c.Auth.TokenTTL))
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
	default:
		problems = append(problems, fmt.Sprintf("invalid log format %q: must be json or text", c.Log.Format))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level %q", c.Log.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
