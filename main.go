package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	telego "github.com/mymmrac/telego"

	appBot "github.com/dn0sh/travel-content-bot/bot"
	"github.com/dn0sh/travel-content-bot/internal/auth"
	"github.com/dn0sh/travel-content-bot/internal/config"
	"github.com/dn0sh/travel-content-bot/internal/database"
	"github.com/dn0sh/travel-content-bot/internal/generation"
	"github.com/dn0sh/travel-content-bot/internal/handlers"
	"github.com/dn0sh/travel-content-bot/internal/locales"
	"github.com/dn0sh/travel-content-bot/internal/notifier"
	"github.com/dn0sh/travel-content-bot/internal/publication"
	"github.com/dn0sh/travel-content-bot/internal/publisher"
	"github.com/dn0sh/travel-content-bot/internal/scheduler"
	"github.com/dn0sh/travel-content-bot/internal/stats"
	"github.com/dn0sh/travel-content-bot/internal/themes"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize localization bundle
	locales.Init()

	// Initialize Sentry (if DSN is provided)
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	// Creating context for application lifecycle
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to Postgres and run migrations
	db, err := database.Connect(ctx, cfg.DatabaseURI)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		} else {
			log.Println("Disconnected from database.")
		}
	}()
	postRepo := database.NewPostgresPostRepository(db)

	// Create the raw telego bot instance
	var bot *telego.Bot
	if cfg.Debug {
		bot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultDebugLogger())
	} else {
		bot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultLogger(false, false))
	}
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create telego bot: %v", err)
	}

	// Publication path: publisher -> handler -> scheduler
	channelPublisher, err := publisher.NewTelegramPublisher(bot)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	adminNotifier, err := notifier.NewAdminNotifier(bot, cfg.AdminIDs)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	pubHandler, err := publication.NewHandler(postRepo, channelPublisher, adminNotifier, cfg.ChannelID)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	sched, err := scheduler.New(pubHandler.Fire)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	if _, err := sched.Restore(ctx, postRepo); err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to restore pending jobs: %v", err)
	}

	// Stats poller (optional, needs the stats sidecar)
	if cfg.StatsAPIURL != "" {
		statsClient, err := stats.NewHTTPStatsClient(cfg.StatsAPIURL)
		if err != nil {
			sentry.CaptureException(err)
			log.Fatal(err)
		}
		statsPoller, err := stats.NewPoller(postRepo, statsClient, cfg.StatsSchedule)
		if err != nil {
			sentry.CaptureException(err)
			log.Fatal(err)
		}
		statsPoller.Start()
		defer statsPoller.Stop()
	} else {
		log.Println("STATS_API_URL is not set, stats poller disabled")
	}

	// Dialog layer dependencies
	adminChecker, err := auth.NewAdminChecker(cfg.AdminIDs)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create admin checker: %v", err)
	}
	textGen := generation.NewTextGenerator(cfg)
	imageGen := generation.NewYandexArtClient(cfg.Yandex, cfg.MediaDir)
	themeCache := themes.NewCache()
	themeCache.Set(generation.FallbackThemes)

	messageHandler, err := handlers.NewMessageHandler(handlers.MessageHandlerDeps{
		ChannelID:  cfg.ChannelID,
		Version:    cfg.Version,
		Timezone:   cfg.Timezone,
		Repo:       postRepo,
		Scheduler:  sched,
		TextGen:    textGen,
		ImageGen:   imageGen,
		ThemeCache: themeCache,
		Checker:    adminChecker,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to start long polling: %v", err)
	}

	wrapper, err := appBot.New(appBot.BotDeps{
		Bot:         bot,
		UpdatesChan: updates,
		Debug:       cfg.Debug,
		Handler:     messageHandler,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	go wrapper.Start(ctx)

	<-ctx.Done()

	log.Println("Shutting down bot...")
	sched.Stop()
	log.Println("Bot shutdown complete.")
}
