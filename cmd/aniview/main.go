// Command aniview serves the anime catalog application: it proxies the
// public catalog API, synchronizes the user's session and preferences with
// the remote account service, and exposes both to the browser view layer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"gopkg.in/natefinch/lumberjack.v2"

	"aniview/config"
	"aniview/handlers"
	"aniview/internal/localstore"
	"aniview/services/account"
	"aniview/services/catalog"
	"aniview/services/session"
	"aniview/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath(), "path to the config file")
	flag.Parse()

	manager := config.NewManager(*configPath)
	settings, err := manager.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(settings.Log)
	slog.SetDefault(logger)

	store, err := localstore.Open(settings.Storage.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer store.Close()

	accountClient := account.NewClient(settings.Account.BaseURL)
	catalogClient := catalog.NewClient(settings.Catalog.BaseURL)

	sessions := session.NewService(accountClient, store, logger, clockwork.NewRealClock())
	sessions.Bootstrap(context.Background())
	defer sessions.Close()

	router := utils.NewRouter()
	handlers.NewAuthHandler(sessions, accountClient).Register(router)
	handlers.NewUserHandler(sessions).Register(router)
	handlers.NewCatalogHandler(catalogClient).Register(router)

	srv := &http.Server{
		Addr:              settings.Server.Bind,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", settings.Server.Bind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg config.LogSettings) *slog.Logger {
	var writer io.Writer = os.Stdout
	if cfg.File != "" {
		writer = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
	}

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level}))
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "aniview.toml"
	}
	return home + "/.config/aniview/config.toml"
}
