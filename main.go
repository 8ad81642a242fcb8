////////////////////////////////////////////////////////////////////////////////
// crowdfundr: goal-based crowdfunding campaigns with refunds and badges
////////////////////////////////////////////////////////////////////////////////

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

	"go.uber.org/zap"

	"crowdfundr/api"
	"crowdfundr/config"
	"crowdfundr/contract"
	"crowdfundr/logging"
	"crowdfundr/sdk"
	"crowdfundr/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "crowdfundr: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, logFile, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logFile.Close()
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.StoreOptions(), log)
	if err != nil {
		return err
	}
	defer store.Close()

	ledger := sdk.NewMemoryLedger()
	hub := api.NewHub(log)
	defer hub.Close()
	reg := contract.NewRegistry(store, ledger, contract.WithLogger(log), contract.WithSink(hub))
	if err := reg.Load(ctx); err != nil {
		return fmt.Errorf("load campaigns: %w", err)
	}

	srv := api.NewServer(reg, ledger, hub, log, api.Options{
		Faucet: cfg.Faucet,
		Health: store.Ping,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Faucet {
		log.Warn("faucet enabled, anyone can mint ledger funds")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
