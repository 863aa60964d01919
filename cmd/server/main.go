package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rss-herald/app/api"
	"github.com/lysyi3m/rss-herald/app/cfg"
	"github.com/lysyi3m/rss-herald/app/database"
	"github.com/lysyi3m/rss-herald/app/feed"
	"github.com/lysyi3m/rss-herald/app/logging"
	"github.com/lysyi3m/rss-herald/app/notify"
	"github.com/lysyi3m/rss-herald/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logCloser := logging.Setup()
	defer logCloser.Close()

	slog.Info("Starting RSS Herald", "version", appCfg.Version, "data_dir", appCfg.DataDir)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	seenRepo := database.NewSeenRepository(db)
	if feeds, entries, err := seenRepo.Count(); err == nil {
		slog.Info("Seen-entry store loaded", "feeds", feeds, "entries", entries)
	}

	configStore := feed.NewConfigStore(appCfg.ConfigFile, appCfg.DefaultCheckInterval)
	settings, err := configStore.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "path", appCfg.ConfigFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Configuration loaded",
		"path", appCfg.ConfigFile,
		"feeds", len(settings.Feeds),
		"check_interval", settings.CheckInterval,
		"webhook_configured", settings.HasWebhook())

	httpClient := &http.Client{}
	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), appCfg.UserAgent, appCfg.HTTPTimeout)
	discoverer := feed.NewDiscoverer(fetcher)
	notifier := notify.NewNotifier(httpClient, appCfg.HTTPTimeout, appCfg.SendDelay)

	runner := tasks.NewRunner(configStore, seenRepo, fetcher, notifier)
	scheduler := tasks.NewScheduler(runner, appCfg.DefaultCheckInterval, time.Second)

	if appCfg.AutoStart {
		scheduler.Start()
	}

	handler := api.NewHandler(runner, scheduler, discoverer, notifier)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // manual checks and discovery run inline
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	scheduler.Close()
	slog.Info("RSS Herald shutdown complete")
}
