package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"referral-platform/internal/audit"
	"referral-platform/internal/auth"
	"referral-platform/internal/config"
	"referral-platform/internal/revocation"
	"referral-platform/internal/users"
	"referral-platform/pkg/logger"
	"referral-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	in, closeInfra, err := openInfra(rootCtx, cfg)
	if err != nil {
		log.Error("infra init failed", "err", err, "store", cfg.Store.Driver)
		os.Exit(1)
	}
	defer closeInfra()

	handler, err := newHandler(cfg, log, in)
	if err != nil {
		log.Error("app init failed", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "store", cfg.Store.Driver,
			"revoke_on_logout", cfg.Auth.RevokeOnLogout)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// infra holds the storage backends selected by configuration.
type infra struct {
	users    users.Repository
	audit    audit.Repository
	denylist auth.Denylist
	ready    func(ctx context.Context) error
}

func openInfra(ctx context.Context, cfg config.Config) (infra, func(), error) {
	var (
		in      infra
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		in.users = users.NewMemoryRepo()
		in.audit = audit.NewMemoryRepo()
		in.ready = func(context.Context) error { return nil }
	default:
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PoolConfig{
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			return infra{}, nil, fmt.Errorf("postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })

		if err := ensureSchemas(ctx, db); err != nil {
			closeAll()
			return infra{}, nil, err
		}
		in.users = users.NewPostgresRepo(db)
		in.audit = audit.NewPostgresRepo(db)
		in.ready = func(ctx context.Context) error { return utils.HealthCheck(ctx, db, 2*time.Second) }
	}

	if cfg.Auth.RevokeOnLogout {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			closeAll()
			return infra{}, nil, fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		in.denylist = revocation.NewRedisDenylist(rdb)
		in.ready = withRedisPing(in.ready, rdb)
	}

	return in, closeAll, nil
}

func ensureSchemas(ctx context.Context, db *sql.DB) error {
	if err := users.NewPostgresRepo(db).EnsureSchema(ctx); err != nil {
		return fmt.Errorf("users schema: %w", err)
	}
	if err := audit.NewPostgresRepo(db).EnsureSchema(ctx); err != nil {
		return fmt.Errorf("audit schema: %w", err)
	}
	return nil
}

func withRedisPing(next func(context.Context) error, rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := next(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	}
}
