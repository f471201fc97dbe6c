package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"splatdle/internal/api"
	"splatdle/internal/archive"
	"splatdle/internal/auth"
	"splatdle/internal/backend"
	"splatdle/internal/catalog"
	"splatdle/internal/config"
	"splatdle/internal/discord"
	"splatdle/internal/live"
	"splatdle/internal/logger"
	"splatdle/internal/puzzle"
	"splatdle/internal/scheduler"
	"splatdle/internal/stats"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	// A broken catalog is fatal
	weapons, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	logger.Info("Loaded %d weapons from %s", weapons.Len(), cfg.CatalogPath)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := backend.Open(startCtx, cfg)
	cancelStart()
	if err != nil {
		logger.Error("Failed to open %s store: %v", cfg.StoreDriver, err)
		os.Exit(1)
	}
	defer store.Close()

	puzzles := puzzle.NewService(weapons, backend.PuzzleStore(cfg, store))
	statsService := stats.NewService(store)

	bot := discord.NewBotClient(cfg.DiscordToken, discord.WithDiscordBaseURL(cfg.DiscordAPIURL))
	announcer := discord.NewAnnouncer(bot, cfg.ImageBaseURL, cfg.PlayURL, cfg.ThemeColour)

	history, err := archive.New(cfg.ArchivePath)
	if err != nil {
		logger.Error("Failed to open archive: %v", err)
		os.Exit(1)
	}

	hub := live.NewHub(cfg.AllowedOrigin)

	schedCfg := scheduler.DefaultConfig()
	schedCfg.AnnouncementsEnabled = cfg.AnnouncementsEnabled && cfg.DiscordToken != ""
	schedCfg.RetryInterval = cfg.RetryInterval
	if cfg.AnnouncementsEnabled && cfg.DiscordToken == "" {
		logger.Warning("DISCORD_TOKEN not set, announcements disabled")
	}

	schedOpts := []scheduler.Option{
		scheduler.WithArchiver(history),
		scheduler.WithListener(hub),
	}
	if cfg.OpsWebhookURL != "" {
		schedOpts = append(schedOpts, scheduler.WithNotify(discord.NewWebhookClient(cfg.OpsWebhookURL).Notify))
	}
	sched := scheduler.New(schedCfg, puzzles, store, announcer, schedOpts...)

	authenticator := auth.New(bot, auth.NewTokenCache(auth.DefaultCacheTTL))
	server := api.NewServer(puzzles, statsService, authenticator,
		api.WithLiveFeed(hub),
		api.WithHistory(history),
		api.WithAllowedOrigin(cfg.AllowedOrigin),
	)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx := scheduler.ShutdownOnSignal(hub.Close)

	// Load rollover progress before the first request can rotate the puzzle
	if err := sched.Prepare(ctx); err != nil {
		logger.Warning("%v, the scheduler will retry", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Scheduler stopped: %v", err)
		}
	}()

	go func() {
		logger.Success("Splatdle listening on http://localhost%s", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed: %v", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Warning("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown: %v", err)
	}
	wg.Wait()
	logger.Success("Shutdown complete")
}
