// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

// Package config loads the process configuration once at startup.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// YAML file, a .env file, the process environment and finally any command
// line flags the user changed. The resulting Config is a plain value; nothing
// in this package holds mutable global state.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/quizmaster/quizmaster/internal/auth"
	"github.com/quizmaster/quizmaster/internal/logging"
)

// Defaults.
const (
	DefaultAlgorithm     = "HS256"
	DefaultTokenTTLHours = 24
	DefaultHTTPAddr      = ":8000"
	DefaultMetricsAddr   = "127.0.0.1:9100"
	DefaultLogFormat     = logging.FormatJSON
	DefaultLogLevel      = "info"
	DefaultDotEnv        = ".env"
)

// Config is the complete process configuration.
type Config struct {
	Auth     AuthConfig     `koanf:"auth"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
}

// AuthConfig holds token signing and enrollment settings.
type AuthConfig struct {
	SecretKey     string `koanf:"secret_key"`
	Algorithm     string `koanf:"algorithm"`
	TokenTTLHours int    `koanf:"token_ttl_hours"`
	AdminSecret   string `koanf:"admin_secret"`
}

// DatabaseConfig locates the user store.
type DatabaseConfig struct {
	URL         string `koanf:"url"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// RedisConfig enables the shared login throttle. An empty Addr keeps the
// throttle in process memory.
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	HTTPAddr      string `koanf:"http_addr"`
	MetricsAddr   string `koanf:"metrics_addr"`
	SecureCookies bool   `koanf:"secure_cookies"`
}

// LogConfig selects the log output.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// envKeys maps environment variables to configuration keys. Variables not
// listed here are ignored.
var envKeys = map[string]string{
	"SECRET_KEY":                "auth.secret_key",
	"ALGORITHM":                 "auth.algorithm",
	"ACCESS_TOKEN_EXPIRE_HOURS": "auth.token_ttl_hours",
	"ADMIN_SECRET":              "auth.admin_secret",
	"DATABASE_URL":              "database.url",
	"AUTO_MIGRATE":              "database.auto_migrate",
	"REDIS_ADDR":                "redis.addr",
	"REDIS_PASSWORD":            "redis.password",
	"REDIS_DB":                  "redis.db",
	"HTTP_ADDR":                 "server.http_addr",
	"METRICS_ADDR":              "server.metrics_addr",
	"SECURE_COOKIES":            "server.secure_cookies",
	"LOG_FORMAT":                "log.format",
	"LOG_LEVEL":                 "log.level",
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"http-addr":      "server.http_addr",
	"metrics-addr":   "server.metrics_addr",
	"secure-cookies": "server.secure_cookies",
	"auto-migrate":   "database.auto_migrate",
	"log-format":     "log.format",
	"log-level":      "log.level",
}

// LoadOptions selects the optional sources.
type LoadOptions struct {
	// File is a YAML config file. Empty skips it; a named file must exist.
	File string
	// DotEnv is a .env file whose variables apply only where the process
	// environment does not set them. A missing file is not an error.
	DotEnv string
	// Flags are applied last. Only flags the user changed override other sources.
	Flags *pflag.FlagSet
}

// Load reads every source and returns the validated configuration.
func Load(opts LoadOptions) (Config, error) {
	cfg, err := Read(opts)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read merges every source without validating the result. Commands that need
// only part of the configuration, such as migrate, check what they use.
func Read(opts LoadOptions) (Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return Config{}, err
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("file", opts.File).Wrap(err)
		}
	}

	if opts.DotEnv != "" {
		if err := loadDotEnv(k, opts.DotEnv); err != nil {
			return Config{}, err
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "environment").Wrap(err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, flagKey(opts.Flags)), nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("operation", "decode").Wrap(err)
	}
	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"auth.algorithm":       DefaultAlgorithm,
		"auth.token_ttl_hours": DefaultTokenTTLHours,
		"server.http_addr":     DefaultHTTPAddr,
		"server.metrics_addr":  DefaultMetricsAddr,
		"log.format":           DefaultLogFormat,
		"log.level":            DefaultLogLevel,
	}
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}
	return nil
}

// loadDotEnv applies the recognised variables from path that the process
// environment leaves unset. The process environment itself is not modified.
func loadDotEnv(k *koanf.Koanf, path string) error {
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("file", path).Wrap(err)
	}
	for name, value := range values {
		key, ok := envKeys[name]
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := k.Set(key, value); err != nil {
			return oops.Code("CONFIG_LOAD_FAILED").With("file", path).With("key", key).Wrap(err)
		}
	}
	return nil
}

// envKey returns the configuration key for an environment variable, or ""
// to skip it.
func envKey(name string) string {
	return envKeys[name]
}

func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}

// TokenConfig derives the session token settings.
func (c Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret:    c.Auth.SecretKey,
		Algorithm: c.Auth.Algorithm,
		TTL:       time.Duration(c.Auth.TokenTTLHours) * time.Hour,
	}
}

// Validate reports the first unusable setting. Token settings fail with
// AUTH_CONFIG_INVALID, everything else with CONFIG_INVALID. Both wrap
// auth.ErrConfiguration.
func (c Config) Validate() error {
	if err := c.TokenConfig().Validate(); err != nil {
		return err
	}
	if c.Auth.AdminSecret == "" {
		return invalid("auth.admin_secret", "admin enrollment secret is required")
	}
	if c.Database.URL == "" {
		return invalid("database.url", "database url is required")
	}
	if c.Server.HTTPAddr == "" {
		return invalid("server.http_addr", "http listen address is required")
	}
	if !logging.ValidFormat(c.Log.Format) {
		return invalid("log.format", "log format must be json or text")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "log level must be debug, info, warn or error")
	}
	if c.Redis.DB < 0 {
		return invalid("redis.db", "redis database index cannot be negative")
	}
	return nil
}

func invalid(field, msg string) error {
	return oops.Code("CONFIG_INVALID").With("field", field).Wrapf(auth.ErrConfiguration, "%s", msg)
}

// RegisterFlags declares the flags Load understands on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", DefaultHTTPAddr, "public HTTP listen address")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics and health listen address (empty disables)")
	fs.Bool("secure-cookies", false, "mark the session cookie Secure")
	fs.Bool("auto-migrate", false, "apply pending database migrations on startup")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
}
