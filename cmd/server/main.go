package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/taxref/internal/config"
	"github.com/JonMunkholm/taxref/internal/database"
	"github.com/JonMunkholm/taxref/internal/logging"
	"github.com/JonMunkholm/taxref/internal/rules"
	"github.com/JonMunkholm/taxref/internal/sheet"
	"github.com/JonMunkholm/taxref/internal/tax"
	"github.com/JonMunkholm/taxref/internal/upload"
	"github.com/JonMunkholm/taxref/internal/validation"
	"github.com/JonMunkholm/taxref/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// run wires the service and blocks until it has shut down. Deferred cleanup
// runs only after the HTTP server has finished draining.
func run() error {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"upload_strategy", cfg.Upload.Strategy,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	registry, err := rules.Load(cfg.Rules.File)
	if err != nil {
		return fmt.Errorf("load rule sets from %q: %w", cfg.Rules.File, err)
	}
	slog.Info("rule sets loaded", "count", registry.Len(), "file", cfg.Rules.File)

	decoder, err := sheet.NewDecoder(cfg.Upload.Strategy)
	if err != nil {
		return fmt.Errorf("UPLOAD_STRATEGY: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	procs := database.NewProcs(pool, cfg.Database.QueryTimeout)

	server := web.NewServer(cfg, web.Deps{
		Tax:     tax.NewService(tax.NewProcRepository(procs)),
		Engine:  validation.NewEngine(registry),
		Reader:  sheet.NewReader(decoder),
		Limiter: upload.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		DB:      pool,
	})

	return server.Run(ctx)
}
