package entrypoint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mrlokans/authsvc/internal/audit"
	"github.com/mrlokans/authsvc/internal/auth"
	"github.com/mrlokans/authsvc/internal/config"
	"github.com/mrlokans/authsvc/internal/database"
	auditdb "github.com/mrlokans/authsvc/internal/database/audit"
	"github.com/mrlokans/authsvc/internal/database/users"
	http_controllers "github.com/mrlokans/authsvc/internal/http"
	"github.com/mrlokans/authsvc/internal/metrics"
	"github.com/mrlokans/authsvc/internal/session"
)

const sessionCleanupInterval = 5 * time.Minute

// App holds the wired components shared by the server and the CLI commands.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Database    *database.Database
	Postgres    *pgxpool.Pool // nil unless the postgres driver is configured
	Redis       *redis.Client // nil unless the redis session store is configured
	Users       auth.UserStore
	Sessions    *session.Manager
	AuditEvents *auditdb.Repository
	Audit       *audit.Service
	Metrics     *metrics.Metrics
	Auth        *auth.Service
}

// NewApp opens the configured stores and builds the auth service on top of
// them. Call Close to release everything.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.Database, err = database.NewDatabase(cfg.Database.Path, cfg.Database.LogLevel)
	if err != nil {
		return nil, err
	}

	app.Users, err = app.openUserStore(ctx)
	if err != nil {
		return nil, err
	}

	store, err := app.openSessionStore(ctx)
	if err != nil {
		return nil, err
	}
	app.Sessions = session.NewManager(store, cfg.Auth.SessionLifetime)

	app.AuditEvents = auditdb.NewRepository(app.Database.DB)
	app.Audit = audit.NewService(app.AuditEvents, logger)
	app.Metrics = metrics.New()

	app.Auth = auth.NewService(app.Users, app.Sessions, newHasher(cfg.Auth),
		auth.WithAuditor(app.Audit),
		auth.WithMetrics(app.Metrics),
		auth.WithLogger(logger.With(slog.String("component", "auth"))),
	)

	return app, nil
}

func (a *App) openUserStore(ctx context.Context) (auth.UserStore, error) {
	if a.Config.Database.Driver != config.DatabaseDriverPostgres {
		return users.NewRepository(a.Database.DB), nil
	}

	pool, err := database.NewPostgresPool(ctx, a.Config.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.Postgres = pool

	repo := users.NewPostgresRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	a.Logger.Info("credential store: postgres")
	return repo, nil
}

func (a *App) openSessionStore(ctx context.Context) (scs.Store, error) {
	switch a.Config.Auth.SessionStore {
	case config.SessionStoreMemory:
		a.Logger.Warn("session store: memory, sessions are lost on restart")
		return session.NewMemoryStore(), nil

	case config.SessionStoreRedis:
		client, err := session.NewRedisClient(ctx, a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.Redis = client
		a.Logger.Info("session store: redis", slog.String("addr", a.Config.Redis.Addr))
		return session.NewRedisStore(client), nil

	default:
		sqlDB, err := a.Database.DB.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get SQL DB for sessions: %w", err)
		}
		return session.NewSQLiteStore(sqlDB, sessionCleanupInterval)
	}
}

func newHasher(cfg config.Auth) auth.PasswordHasher {
	if cfg.PasswordHasher == config.PasswordHasherArgon2id {
		return auth.NewArgon2idHasher(auth.DefaultArgon2Params)
	}
	return auth.NewBcryptHasher(cfg.BcryptCost)
}

// HealthChecks lists the dependencies reported by /health.
func (a *App) HealthChecks() map[string]http_controllers.Pinger {
	checks := map[string]http_controllers.Pinger{"database": a.Database}
	if a.Postgres != nil {
		checks["postgres"] = a.Postgres
	}
	if a.Redis != nil {
		checks["redis"] = redisPinger{a.Redis}
	}
	return checks
}

// Close flushes pending audit writes and closes every store in reverse
// order of opening.
func (a *App) Close() {
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	if a.Audit != nil {
		a.Audit.Wait()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("error closing redis client", slog.Any("error", err))
		}
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
	if a.Database != nil {
		if err := a.Database.Close(); err != nil {
			a.Logger.Error("error closing database", slog.Any("error", err))
		}
	}
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
