package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/authsvc/internal/config"
	http_controllers "github.com/mrlokans/authsvc/internal/http"
	"github.com/mrlokans/authsvc/internal/logger"
	"github.com/mrlokans/authsvc/internal/scheduler"
	"github.com/mrlokans/authsvc/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs router until SIGINT or SIGTERM, then shuts down within the
// configured timeout.
func Serve(router http.Handler, cfg *config.Config, log *slog.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case sig := <-quit:
		log.Info("shutting down server", slog.String("signal", sig.String()), slog.Duration("timeout", timeout))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before the stores close.
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown", slog.Any("error", err))
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Info("server exiting")
	return nil
}

// Run wires every component from cfg and serves HTTP until interrupted.
func Run(cfg *config.Config, version string) error {
	log := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	log.Info("starting authsvc", slog.String("version", version))

	if logger.ParseLevel(cfg.Log.Level) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromConfig(cfg.Tasks), log)
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Error("error closing task client", slog.Any("error", err))
			}
		}()

		taskClient.Register(tasks.NewCleanupAuditEventsQueue(app.AuditEvents, log))
		go taskClient.Start(bgCtx)
	}

	retention := scheduler.NewRetentionScheduler(cfg.Audit.CleanupSchedule, retentionJob(taskClient, app, cfg.Audit.RetentionDays), log)
	if err := retention.Start(bgCtx); err != nil {
		return err
	}

	limiter := http_controllers.NewRateLimiter(http_controllers.RateLimitConfig{
		MaxAttempts:     cfg.Auth.MaxLoginAttempts,
		WindowDuration:  cfg.Auth.RateLimitWindow,
		LockoutDuration: cfg.Auth.LockoutDuration,
	})
	defer limiter.Stop()

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		AuthService:  app.Auth,
		Metrics:      app.Metrics,
		Logger:       log,
		HealthChecks: app.HealthChecks(),
		Cookie: http_controllers.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.SecureCookies,
			MaxAge: cfg.Auth.SessionLifetime,
		},
		RateLimiter:             limiter,
		StrictTransportSecurity: cfg.Auth.SecureCookies,
		Version:                 version,
	})

	onShutdown := func(ctx context.Context) {
		retention.Stop()
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		cancelBackground()
	}

	return Serve(router, cfg, log, onShutdown)
}

// retentionJob enqueues audit cleanup when the task queue runs, and
// cleans up inline otherwise.
func retentionJob(client *tasks.Client, app *App, retentionDays int) scheduler.Job {
	task := tasks.CleanupAuditEventsTask{RetentionDays: retentionDays}

	if client == nil {
		process := tasks.CleanupAuditEventsProcessor(app.AuditEvents, app.Logger)
		return func(ctx context.Context) error {
			return process(ctx, task)
		}
	}

	return func(ctx context.Context) error {
		if _, err := client.Add(task).Save(); err != nil {
			return fmt.Errorf("enqueue audit cleanup: %w", err)
		}
		return nil
	}
}
