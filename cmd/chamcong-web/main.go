// Chamcong-web serves the employee attendance site.
package main

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
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/huyquangvevo/chamcong-web/internal/attendance"
	"github.com/huyquangvevo/chamcong-web/internal/auth"
	"github.com/huyquangvevo/chamcong-web/internal/config"
	"github.com/huyquangvevo/chamcong-web/internal/journal"
	"github.com/huyquangvevo/chamcong-web/internal/mailer"
	"github.com/huyquangvevo/chamcong-web/internal/repos"
	"github.com/huyquangvevo/chamcong-web/internal/storage"
	"github.com/huyquangvevo/chamcong-web/internal/web"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("chamcong-web", pflag.ContinueOnError)
	addr := flags.String("addr", "", "listen address (overrides ADDR)")
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DB, storage.WithLogger(logger))
	if err != nil {
		return err
	}
	defer storage.Close(db)
	if err := storage.EnsureSchema(db); err != nil {
		return err
	}
	if err := storage.HealthCheck(ctx, db, 5*time.Second); err != nil {
		return err
	}
	users := repos.NewUserRepo(db)
	n, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	logger.Info("database ready", "driver", cfg.DB.Driver, "users", n)

	var opts []attendance.Option
	if cfg.MongoURI != "" {
		mongo, err := journal.Connect(ctx, cfg.MongoURI, cfg.MongoName)
		if err != nil {
			return err
		}
		defer mongo.Close(context.Background())
		opts = append(opts, attendance.WithJournal(mongo))
		logger.Info("attendance journal enabled", "db", cfg.MongoName)
	}
	if cfg.Mail.Enabled() && len(cfg.LeaveNotifyTo) > 0 {
		opts = append(opts, attendance.WithNotifier(mailer.NewLeaveNotifier(mailer.New(cfg.Mail), cfg.LeaveNotifyTo, cfg.Location)))
		logger.Info("leave notifications enabled", "to", cfg.LeaveNotifyTo)
	}

	router, err := web.NewRouter(web.Deps{
		Auth:       auth.NewService(users, auth.NewHasher(), logger),
		Attendance: attendance.NewService(repos.NewAttendanceRepo(db), cfg.Location, logger, opts...),
		Sessions:   auth.NewSessionStore(cfg.SecretKey, cfg.SessionMaxAge, cfg.SessionSecure),
		Logger:     logger,
		Health: func(ctx context.Context) error {
			return storage.HealthCheck(ctx, db, 2*time.Second)
		},
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "tz", cfg.Location.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
