// Package config loads the server settings from the environment. Command
// line flags registered by BindFlags override the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

type Config struct {
	ServerAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	DatabaseDriver  string
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	JWTHMACSecret    string
	JWTPublicKeyFile string
	JWTIssuer        string
	JWTAudience      string
	JWTEmailClaim    string
	JWTRoleClaim     string

	LogLevel     string
	LogFormat    string
	LegacyErrors bool
}

// FromEnv returns the configuration described by the environment, with the
// defaults used in production.
func FromEnv() Config {
	return Config{
		ServerAddr:   getenv("SERVER_ADDR", ":8080"),
		ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),

		DatabaseDriver:  getenv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 20),
		MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", time.Hour),

		JWTHMACSecret:    os.Getenv("JWT_HMAC_SECRET"),
		JWTPublicKeyFile: os.Getenv("JWT_PUBLIC_KEY_FILE"),
		JWTIssuer:        os.Getenv("JWT_ISSUER"),
		JWTAudience:      os.Getenv("JWT_AUDIENCE"),
		JWTEmailClaim:    getenv("JWT_EMAIL_CLAIM", "sub"),
		JWTRoleClaim:     getenv("JWT_ROLE_CLAIM", "userType"),

		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFormat:    getenv("LOG_FORMAT", "json"),
		LegacyErrors: getBool("LEGACY_ERROR_MESSAGES", false),
	}
}

// BindFlags registers a flag for every setting, defaulting to the current
// value of c.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ServerAddr, "addr", c.ServerAddr, "listen address")
	fs.DurationVar(&c.ReadTimeout, "read-timeout", c.ReadTimeout, "HTTP read timeout")
	fs.DurationVar(&c.WriteTimeout, "write-timeout", c.WriteTimeout, "HTTP write timeout")

	fs.StringVar(&c.DatabaseDriver, "db-driver", c.DatabaseDriver, "database driver: postgres, mysql or sqlite")
	fs.StringVar(&c.DatabaseURL, "db-url", c.DatabaseURL, "database DSN")
	fs.IntVar(&c.MaxOpenConns, "db-max-open", c.MaxOpenConns, "maximum open connections")
	fs.IntVar(&c.MaxIdleConns, "db-max-idle", c.MaxIdleConns, "maximum idle connections")
	fs.DurationVar(&c.ConnMaxLifetime, "db-conn-lifetime", c.ConnMaxLifetime, "maximum connection lifetime")

	fs.StringVar(&c.JWTPublicKeyFile, "jwt-public-key", c.JWTPublicKeyFile, "PEM file with the RS256 verification key")
	fs.StringVar(&c.JWTIssuer, "jwt-issuer", c.JWTIssuer, "required token issuer")
	fs.StringVar(&c.JWTAudience, "jwt-audience", c.JWTAudience, "required token audience")
	fs.StringVar(&c.JWTEmailClaim, "jwt-email-claim", c.JWTEmailClaim, "claim holding the user email")
	fs.StringVar(&c.JWTRoleClaim, "jwt-role-claim", c.JWTRoleClaim, "claim holding the user role")

	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "json or text")
	fs.BoolVar(&c.LegacyErrors, "legacy-errors", c.LegacyErrors, "report the original API's collapsed error messages")
}

// Validate reports every missing or contradictory setting at once.
func (c Config) Validate() error {
	errs := c.storeErrors()
	switch {
	case c.JWTHMACSecret == "" && c.JWTPublicKeyFile == "":
		errs = append(errs, errors.New("one of JWT_HMAC_SECRET or JWT_PUBLIC_KEY_FILE is required"))
	case c.JWTHMACSecret != "" && c.JWTPublicKeyFile != "":
		errs = append(errs, errors.New("JWT_HMAC_SECRET and JWT_PUBLIC_KEY_FILE are mutually exclusive"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("unsupported log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// ValidateStore checks only the database settings.
func (c Config) ValidateStore() error {
	return errors.Join(c.storeErrors()...)
}

func (c Config) storeErrors() []error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL environment variable is required"))
	}
	switch c.DatabaseDriver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.DatabaseDriver))
	}
	return errs
}

func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("unsupported log level %q", c.LogLevel)
	}
	return l, nil
}

// NewLogger builds the process logger on stdout.
func (c Config) NewLogger() *slog.Logger {
	level, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return v
	}
	return def
}

func getBool(k string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(k)); err == nil {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return v
	}
	return def
}
