package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tubewatch/tubewatch/app/api"
	"github.com/tubewatch/tubewatch/app/cfg"
	"github.com/tubewatch/tubewatch/app/database"
	"github.com/tubewatch/tubewatch/app/notify"
	"github.com/tubewatch/tubewatch/app/procstate"
	"github.com/tubewatch/tubewatch/app/source"
	"github.com/tubewatch/tubewatch/app/summarize"
	"github.com/tubewatch/tubewatch/app/tasks"
	"github.com/tubewatch/tubewatch/app/tracker"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was requested.
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting TubeWatch", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	channelRepo := database.NewChannelRepository(db)
	videoRepo := database.NewVideoRepository(db)
	notificationRepo := database.NewNotificationRepository(db)
	retryRepo := database.NewRetryQueueRepository(db)

	httpClient := &http.Client{Timeout: 60 * time.Second}

	videoSource := source.NewClient(httpClient, source.DefaultBaseURL, appCfg.UserAgent)
	summarizer := summarize.NewClient(httpClient, appCfg.SummarizerURL, appCfg.SummarizerKey, appCfg.SummarizerModel)
	telegram := notify.NewTelegram(httpClient, notify.DefaultAPIBaseURL, appCfg.TelegramBotToken)

	if err := telegram.CheckAuth(context.Background()); err != nil {
		slog.Error("Telegram bot token rejected", "error", err)
		os.Exit(1)
	}

	breaker := tracker.NewCircuitBreaker(tracker.DefaultFailureThreshold, tracker.DefaultOpenTimeout)
	processor := tracker.NewProcessor(videoRepo, notificationRepo, retryRepo, summarizer, telegram,
		appCfg.MaxRetryAttempts, time.Duration(appCfg.RetryInterval)*time.Second).
		WithDescriptionExtractor(source.NewWatchPageExtractor(httpClient, appCfg.UserAgent))
	workflow := tracker.NewWorkflow(channelRepo, videoSource, processor, telegram, appCfg.MaxVideosPerCheck)
	orchestrator := tracker.NewOrchestrator(channelRepo, videoRepo, notificationRepo, retryRepo,
		workflow, breaker, videoSource)

	registerSeedChannels(channelRepo, appCfg.ChannelsDir)

	if removed, err := retryRepo.Cleanup(appCfg.MaxRetryAttempts); err != nil {
		slog.Warn("Retry queue cleanup failed", "error", err)
	} else if removed > 0 {
		slog.Info("Retry queue cleaned up", "removed", removed)
	}

	procState := procstate.NewManager(appCfg.DataDir)
	if existing, err := procState.ReadState(); err == nil && existing != nil {
		slog.Error("Another instance is already running", "pid", existing.PID, "started_at", existing.StartedAt)
		os.Exit(1)
	}
	if err := procState.WriteState(appCfg.Port); err != nil {
		slog.Warn("Failed to write process state file", "error", err)
	}
	defer procState.Cleanup()

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount,
		"interval", appCfg.SchedulerInterval, "retry_interval", appCfg.RetryInterval)
	scheduler := tasks.NewScheduler(channelRepo, videoRepo, notificationRepo, retryRepo, workflow, telegram)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(orchestrator, channelRepo, appCfg.Version)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	stopPoll := time.NewTicker(5 * time.Second)
	defer stopPoll.Stop()

	slog.Info("TubeWatch started")

	running := true
	for running {
		select {
		case sig := <-sigChan:
			slog.Info("Received signal", "signal", sig.String())
			running = false
		case err := <-serverErrChan:
			slog.Error("HTTP server error", "error", err)
			running = false
		case <-stopPoll.C:
			if procState.StopRequested() {
				slog.Info("Stop requested via state file")
				running = false
			}
		}
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}

	// Scheduler and process state are stopped via defers.
	slog.Info("Shutdown complete")
}

// registerSeedChannels applies declarative channel definitions from the
// channels directory. Seeds update configuration but never touch watermarks,
// so restarts do not re-trigger old notifications.
func registerSeedChannels(channelRepo database.ChannelRepository, dir string) {
	seeds, err := tracker.LoadSeeds(dir)
	if err != nil {
		slog.Warn("Failed to load channel seeds", "dir", dir, "error", err)
		return
	}
	if len(seeds) == 0 {
		return
	}

	registered := 0
	for _, seed := range seeds {
		if err := channelRepo.UpsertChannel(seed.ChannelID, seed.Name, seed.TelegramChatID, seed.CheckInterval); err != nil {
			slog.Warn("Failed to register seed channel", "channel_id", seed.ChannelID, "error", err)
			continue
		}
		registered++
	}

	slog.Info("Seed channels registered", "registered", registered, "total", len(seeds))
}
