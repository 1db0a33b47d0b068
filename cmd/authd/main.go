package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	authcore "github.com/raymandgroup/authcore"
	"github.com/raymandgroup/authcore/httpapi"
	"github.com/raymandgroup/authcore/mailer"
	"github.com/raymandgroup/authcore/repo/postgres"
	"github.com/raymandgroup/authcore/repo/redisrepo"
)

var (
	// Version information (set via ldflags)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "/etc/authd/config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("authd %s (commit: %s)\n", Version, Commit)
		os.Exit(0)
	}

	cfg, err := LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)
	logger.Info("starting authd", slog.String("version", Version), slog.String("commit", Commit))

	if err := run(cfg, logger); err != nil {
		logger.Error("authd exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg *ServiceConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, cleanup, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	dispatcher := mailer.New(mailer.Config{
		Host:         cfg.SMTP.Host,
		Port:         cfg.SMTP.Port,
		Username:     cfg.SMTP.Username,
		Password:     cfg.SMTP.Password,
		From:         cfg.SMTP.From,
		OwnerAddress: cfg.SMTP.OwnerAddress,
	})

	engineCfg, err := cfg.engineConfig()
	if err != nil {
		return err
	}

	engine, err := authcore.New().
		WithConfig(engineCfg).
		WithUserRepository(users).
		WithDispatcher(dispatcher).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           httpapi.NewServer(engine, dispatcher, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Server.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openRepository(ctx context.Context, cfg *ServiceConfig, logger *slog.Logger) (authcore.UserRepository, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("connected to redis", slog.String("addr", cfg.Store.RedisAddr))
		return redisrepo.New(client, cfg.Store.RedisPrefix), func() { _ = client.Close() }, nil

	case "postgres":
		db, err := sql.Open("pgx", cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("postgres ping: %w", err)
		}
		logger.Info("connected to postgres")
		if err := postgres.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		return postgres.New(db), func() { _ = db.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
