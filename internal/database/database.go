package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/authsvc/internal/entities"
)

const pingTimeout = 5 * time.Second

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the SQLite database at dbPath and migrates the users and
// audit_events tables. ":memory:" is accepted for tests.
func NewDatabase(dbPath, logLevel string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.New(
			slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
			logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  gormLogLevel(logLevel),
				IgnoreRecordNotFoundError: true,
				ParameterizedQueries:      true, // bound values (hashes) stay out of logs
			},
		),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps ":memory:"
	// databases shared across callers.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&entities.User{}, &entities.AuditEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("database initialized", slog.String("path", dbPath))

	return &Database{DB: db}, nil
}

// Ping checks that the underlying connection is usable.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewPostgresPool connects to PostgreSQL and verifies the connection within
// a bounded timeout.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
