package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medibook-dev/medibook/internal/api"
	"github.com/medibook-dev/medibook/internal/auth"
	"github.com/medibook-dev/medibook/internal/backup"
	"github.com/medibook-dev/medibook/internal/config"
	"github.com/medibook-dev/medibook/internal/payment"
	"github.com/medibook-dev/medibook/internal/server"
	"github.com/medibook-dev/medibook/internal/store"
	"github.com/medibook-dev/medibook/internal/undo"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	cfg := config.Load()

	// 1. Open the record store. The JSON-file backend is the default; the
	// Mongo backend is the document-database variant.
	var (
		st  store.Store
		err error
	)
	switch cfg.StoreDriver {
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		st, err = store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
		cancel()
	default:
		st, err = store.NewFileStore(cfg.DataDir)
	}
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	slog.Info("store opened", "driver", cfg.StoreDriver)

	// 2. Snapshots always live on disk, whichever store backend is in use.
	backups, err := backup.NewManager(cfg.BackupDir, st)
	if err != nil {
		slog.Error("failed to open backup dir", "dir", cfg.BackupDir, "err", err)
		os.Exit(1)
	}

	// 3. Wire the handlers and the route tree.
	engine := undo.NewEngine(st, backups)
	h := &api.Handler{
		Store:    st,
		Engine:   engine,
		Payments: payment.NewVerifier(cfg.PaymentSecret),
	}
	gate := &auth.Handler{Username: cfg.AdminUser, Password: cfg.AdminPassword}
	r := server.New(h, gate, cfg.SessionSecret)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("medibookd listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// 4. Graceful shutdown on SIGINT/SIGTERM.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
}
