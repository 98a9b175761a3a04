package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type PasswordHasher string

const (
	PasswordHasherBcrypt   PasswordHasher = "bcrypt"
	PasswordHasherArgon2id PasswordHasher = "argon2id"
)

type SessionStore string

const (
	SessionStoreSQLite SessionStore = "sqlite" // sessions table in the main SQLite database
	SessionStoreMemory SessionStore = "memory" // process-local, lost on restart
	SessionStoreRedis  SessionStore = "redis"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Redis
		Tasks
		Audit
		Log
	}

	HTTP struct {
		Port         int32
		Host         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver   DatabaseDriver
		Path     string // SQLite file path
		DSN      string // PostgreSQL connection string
		LogLevel string // gorm log level: silent, error, warn, info
	}
	Auth struct {
		PasswordHasher  PasswordHasher
		BcryptCost      int
		SessionStore    SessionStore
		SessionLifetime time.Duration
		CookieName      string
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Audit struct {
		RetentionDays   int    // Days to keep audit events (default: 30)
		CleanupSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Log struct {
		Level  string // debug, info, warn, error
		Format string // json or text
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("http_read_timeout", "10s")
	v.SetDefault("http_write_timeout", "10s")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_log_level", "warn")

	// Auth defaults
	v.SetDefault("auth_password_hasher", string(PasswordHasherBcrypt))
	v.SetDefault("auth_bcrypt_cost", 12)                          // bcrypt cost factor
	v.SetDefault("auth_session_store", string(SessionStoreSQLite)) // sqlite, memory or redis
	v.SetDefault("auth_session_lifetime", "24h")                  // 24 hours
	v.SetDefault("auth_cookie_name", DefaultSessionCookieName)
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_schedule", "0 3 * * *") // Daily at 03:00

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	return &Config{
		HTTP: HTTP{
			Port:         v.GetInt32("PORT"),
			Host:         v.GetString("HOST"),
			ReadTimeout:  v.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("HTTP_WRITE_TIMEOUT"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver:   DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:     v.GetString("DATABASE_PATH"),
			DSN:      v.GetString("DATABASE_DSN"),
			LogLevel: v.GetString("DATABASE_LOG_LEVEL"),
		},
		Auth: Auth{
			PasswordHasher:   PasswordHasher(v.GetString("AUTH_PASSWORD_HASHER")),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SessionStore:     SessionStore(v.GetString("AUTH_SESSION_STORE")),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			CookieName:       v.GetString("AUTH_COOKIE_NAME"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

// Validate rejects settings the entrypoint cannot act on.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DatabaseDriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite driver")
		}
	case DatabaseDriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
		if c.Auth.SessionStore == SessionStoreSQLite && c.Database.Path == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite session store")
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.Database.Driver)
	}

	switch c.Auth.PasswordHasher {
	case PasswordHasherBcrypt, PasswordHasherArgon2id:
	default:
		return fmt.Errorf("unknown AUTH_PASSWORD_HASHER %q", c.Auth.PasswordHasher)
	}

	switch c.Auth.SessionStore {
	case SessionStoreSQLite, SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("unknown AUTH_SESSION_STORE %q", c.Auth.SessionStore)
	}

	if c.Auth.SessionLifetime <= 0 {
		return fmt.Errorf("AUTH_SESSION_LIFETIME must be positive")
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.Log.Format)
	}

	return nil
}
