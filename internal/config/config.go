package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr      string
	BasePath  string
	PublicDir string

	DBDriver    string
	DatabaseURL string

	UploadBackend  string
	UploadDir      string
	MaxUploadBytes int64

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string

	SMTPHost     string
	SMTPPort     int
	MailUser     string
	MailPassword string
	MailFrom     string
	MailTimeout  time.Duration

	LogLevel  string
	LogFormat string
}

const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	BackendLocal = "local"
	BackendS3    = "s3"
)

// Load reads env files and then configuration from environment variables.
// With no files given an optional ".env" is tried; named files must exist.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		// a missing .env file is fine, the process environment still applies
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Config{
		Addr:      getenv("APP_ADDR", ":8080"),
		BasePath:  getenv("API_BASE_PATH", "/api/users"),
		PublicDir: getenv("PUBLIC_DIR", "./public"),

		DBDriver:    getenv("DB_DRIVER", DriverPgx),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		UploadBackend: getenv("UPLOAD_BACKEND", BackendLocal),
		UploadDir:     getenv("UPLOAD_DIR", "./uploads"),

		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    getenv("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Prefix:    getenv("S3_PREFIX", "profile-pictures/"),

		SMTPHost:     getenv("SMTP_HOST", "smtp.gmail.com"),
		MailUser:     os.Getenv("EMAIL_USER"),
		MailPassword: os.Getenv("EMAIL_PASS"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),
	}
	cfg.MailFrom = getenv("MAIL_FROM", cfg.MailUser)

	var err error
	if cfg.MaxUploadBytes, err = strconv.ParseInt(getenv("UPLOAD_MAX_BYTES", "5242880"), 10, 64); err != nil {
		return Config{}, fmt.Errorf("UPLOAD_MAX_BYTES: %w", err)
	}
	if cfg.SMTPPort, err = strconv.Atoi(getenv("SMTP_PORT", "587")); err != nil {
		return Config{}, fmt.Errorf("SMTP_PORT: %w", err)
	}
	if cfg.MailTimeout, err = time.ParseDuration(getenv("MAIL_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("MAIL_TIMEOUT: %w", err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = dsnFromParts(cfg.DBDriver)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverPgx, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}

	switch c.UploadBackend {
	case BackendLocal:
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR is not set")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 upload backend")
		}
	default:
		return fmt.Errorf("unsupported UPLOAD_BACKEND %q", c.UploadBackend)
	}

	if c.MaxUploadBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}

// MailEnabled reports whether SMTP credentials were provided.
func (c Config) MailEnabled() bool {
	return c.MailUser != "" && c.MailPassword != ""
}

// dsnFromParts builds a DSN from the DB_* variables. For sqlite DB_NAME is
// the database file.
func dsnFromParts(driver string) string {
	name := os.Getenv("DB_NAME")
	if driver == DriverSQLite {
		return name
	}
	host := os.Getenv("DB_HOST")
	if host == "" || name == "" {
		return ""
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(host, getenv("DB_PORT", "5432")),
		Path:     "/" + name,
		RawQuery: "sslmode=" + getenv("DB_SSLMODE", "disable"),
	}
	if user := os.Getenv("DB_USER"); user != "" {
		u.User = url.UserPassword(user, os.Getenv("DB_PASSWORD"))
	}
	return u.String()
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
