package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chatarr/chatarr/internal/api"
	"github.com/chatarr/chatarr/internal/approval"
	"github.com/chatarr/chatarr/internal/chat"
	"github.com/chatarr/chatarr/internal/config"
	"github.com/chatarr/chatarr/internal/conversation"
	"github.com/chatarr/chatarr/internal/database"
	"github.com/chatarr/chatarr/internal/logger"
	"github.com/chatarr/chatarr/internal/provider"
	"github.com/chatarr/chatarr/internal/request"
	"github.com/chatarr/chatarr/internal/scheduler"
	"github.com/chatarr/chatarr/internal/scheduler/tasks"
	"github.com/chatarr/chatarr/internal/search"
	"github.com/chatarr/chatarr/internal/services"
	"github.com/chatarr/chatarr/internal/startup"
	"github.com/chatarr/chatarr/internal/websocket"
)

func main() {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Path:     cfg.Logging.Path,
		Compress: true,
	})
	defer log.Close()

	log.Info().
		Str("logLevel", cfg.Logging.Level).
		Str("database", cfg.Database.Path).
		Msg("starting chatarr")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	log.Info().Msg("running database migrations")
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	conn := db.Conn()
	svcStore := services.NewStore(conn, log.Logger)
	reqStore := request.NewStore(conn, log.Logger)
	sessions := conversation.NewStore(conn, log.Logger)
	contacts := conversation.NewContactStore(conn, log.Logger)

	if err := svcStore.ImportSeed(context.Background(), cfg.Services.SeedPath); err != nil {
		log.Warn().Err(err).Str("path", cfg.Services.SeedPath).Msg("failed to import service seed file")
	}

	hub := websocket.NewHub()
	go hub.Run()

	// Stream log entries to dashboard clients now that the hub exists.
	log.SetHub(api.NewLogHub(hub))

	factory := provider.NewFactory(log.Logger)

	cacheTTL := time.Duration(cfg.Search.CacheTTLMinutes) * time.Minute
	if cacheTTL <= 0 {
		cacheTTL = search.DefaultCacheTTL
	}
	cache := search.NewCache(cacheTTL)
	aggregator := search.NewAggregator(svcStore, api.NewSearchFactory(factory), cache, hub, log.Logger)

	sender := chat.NewWebhookSender(cfg.Chat.WebhookURL, cfg.Chat.WebhookToken, log.Logger)

	workflow := approval.NewWorkflow(reqStore, aggregator, factory, sender, approval.Config{
		OperatorID: cfg.Approval.OperatorID,
		Policy:     approval.Policy(cfg.Approval.Policy),
	}, log.Logger)

	engine := conversation.NewEngine(sessions, contacts, reqStore, aggregator, workflow, log.Logger)
	dispatcher := chat.NewDispatcher(engine, sender, log.Logger)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if err := tasks.RegisterCacheSweepTask(sched, cache); err != nil {
		log.Fatal().Err(err).Msg("failed to register cache sweep task")
	}
	if err := tasks.RegisterSessionPurgeTask(sched, sessions); err != nil {
		log.Fatal().Err(err).Msg("failed to register session purge task")
	}
	sched.Start()

	// Reachability probe runs in the background; unreachable services only
	// degrade searches, they never block startup.
	go startup.ProbeServices(context.Background(), svcStore, log.Logger)

	server := api.NewServer(cfg, api.Dependencies{
		Services:   svcStore,
		Requests:   reqStore,
		Contacts:   contacts,
		Aggregator: aggregator,
		Workflow:   workflow,
		Dispatcher: dispatcher,
		Sender:     sender,
		Scheduler:  sched,
		Hub:        hub,
		Logs:       log,
	}, log.Logger)

	go func() {
		addr := cfg.Server.Address()
		log.Info().Str("address", addr).Msg("HTTP server listening")
		if err := server.Start(addr); err != nil {
			log.Info().Msg("server stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown error")
	}

	log.Info().Msg("chatarr stopped")
}
