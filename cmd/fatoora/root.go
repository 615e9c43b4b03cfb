package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/fatoora/internal/app"
	"github.com/odyssey-erp/fatoora/internal/platform/cache"
	"github.com/odyssey-erp/fatoora/internal/platform/db"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fatoora",
		Short:         "ZATCA-aware invoicing service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newTenantCmd(), newQRCmd(), newJobsCmd())
	return root
}

// runtime bundles what every database-backed subcommand needs.
type runtime struct {
	cfg    *app.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	rdb, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, pool: pool, redis: rdb}, nil
}

func (r *runtime) Close() {
	if err := r.redis.Close(); err != nil {
		r.logger.Warn("redis close", slog.Any("error", err))
	}
	r.pool.Close()
}
