package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/loggo"
	"github.com/restopos/api/internal/config"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/router"
	"github.com/restopos/api/internal/service"
	"github.com/restopos/api/internal/ws"
)

var logger = loggo.GetLogger("restopos")

func main() {
	if err := run(); err != nil {
		logger.Criticalf("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := loggo.ConfigureLoggers(cfg.LogLevel); err != nil {
		return fmt.Errorf("configure loggers: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	queries := database.New(pool)

	ledger := service.NewLedgerService(pool, func(db database.DBTX) service.LedgerStore {
		return database.New(db)
	})
	if _, err := ledger.Balance(ctx); errors.Is(err, service.ErrCashNotInitialized) {
		logger.Warningf("cash register is not initialized; run `seed cash --opening <amount>` before taking payments")
	} else if err != nil {
		return fmt.Errorf("read cash balance: %w", err)
	}

	hub := ws.NewHub()
	go hub.Run()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, queries, pool, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting server on :%s", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
