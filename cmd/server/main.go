package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/ai-research-backend/internal/chat/bridge"
	chatdata "github.com/lk2023060901/ai-research-backend/internal/chat/data"
	"github.com/lk2023060901/ai-research-backend/internal/chat/history"
	"github.com/lk2023060901/ai-research-backend/internal/chat/service"
	"github.com/lk2023060901/ai-research-backend/internal/chat/store"
	"github.com/lk2023060901/ai-research-backend/internal/chat/stream"
	"github.com/lk2023060901/ai-research-backend/internal/conf"
	"github.com/lk2023060901/ai-research-backend/internal/data"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/eventbus"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/sse"
	"github.com/lk2023060901/ai-research-backend/internal/pkg/workerpool"
	"github.com/lk2023060901/ai-research-backend/internal/server"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger with config
	logConfig := &logger.Config{
		Level:            config.Log.Level,
		Format:           config.Log.Format,
		Output:           config.Log.Output,
		EnableCaller:     config.Log.EnableCaller,
		EnableStacktrace: config.Log.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   config.Log.File.Filename,
			MaxSize:    config.Log.File.MaxSize,
			MaxAge:     config.Log.File.MaxAge,
			MaxBackups: config.Log.File.MaxBackups,
			Compress:   config.Log.File.Compress,
		},
	}

	log, err := logger.New(logConfig)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("config loaded successfully")

	// Initialize data layer
	d, cleanup, err := data.NewData(config, log.Logger)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	// Core conversation state
	bus := eventbus.New(log.Logger)
	chatStore := store.New(bus, log.Logger)

	// History index with Redis persistence
	historyIndex := history.NewIndex(history.NewRedisStorage(d.RedisClient), log.Logger)
	if err := historyIndex.Load(context.Background()); err != nil {
		log.Warn("failed to load history index", zap.Error(err))
	}

	// Repositories and persistence bridge
	messageRepo := chatdata.NewMessageRepo(d.DB)
	conversationRepo := chatdata.NewConversationRepo(d.DB)

	pool, err := workerpool.New(workerpool.DefaultConfig(), log.Logger)
	if err != nil {
		log.Fatal("failed to create worker pool", zap.Error(err))
	}
	defer pool.Release(10 * time.Second)

	persistence := bridge.New(bus, pool, d.DB, messageRepo, conversationRepo, log.Logger)
	if err := persistence.Start(context.Background()); err != nil {
		log.Warn("persistence bridge inactive, running without database mirror", zap.Error(err))
	}
	defer persistence.Stop()

	// SSE fan-out
	hub := sse.NewHub()
	forwarder := service.NewForwarder(bus, hub)
	forwarder.Start()
	defer forwarder.Stop()

	notifier := service.NewHubNotifier(chatStore, hub)

	// Backend stream client and driver
	client := stream.NewClient(&config.Backend, log.Logger)
	driver := stream.NewDriver(chatStore, historyIndex, client, bus, config.Chat, notifier, log.Logger)

	// Initialize services
	chatService := service.NewChatService(chatStore, driver, historyIndex, hub, log)
	historyService := service.NewHistoryService(chatStore, historyIndex, messageRepo, log)
	podcastService := service.NewPodcastService(chatStore, client, notifier, log)

	// Initialize server
	httpServer := server.NewHTTPServer(config, log, chatService, historyService, podcastService)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Abort any in-flight stream before the listener closes
	driver.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
