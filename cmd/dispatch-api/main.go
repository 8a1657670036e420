// README: Entry point; loads config, wires stores and services, starts the HTTP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"dispatch/internal/config"
	httptransport "dispatch/internal/http"
	"dispatch/internal/http/handlers"
	"dispatch/internal/infra"
	"dispatch/internal/modules/call"
	"dispatch/internal/modules/directory"
	"dispatch/internal/modules/notify"
	"dispatch/internal/modules/tracking"
	"dispatch/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger := infra.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := call.Deps{Logger: logger}

	switch cfg.Store {
	case config.StorePostgres:
		dbPool, err := infra.NewDB(ctx, cfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect database")
		}
		defer dbPool.Close()
		dir := directory.NewStore(dbPool)
		deps.Store = call.NewPGStore(dbPool)
		deps.Clients = dir
		deps.Drivers = dir
	case config.StoreMemory:
		logger.Warn().Msg("using in-memory call store; data is lost on restart")
		dir := seedDirectory(cfg.Memory)
		deps.Store = call.NewMemoryStore()
		deps.Clients = dir
		deps.Drivers = dir
	default:
		logger.Fatal().Str("store", cfg.Store).Msg("unknown store backend")
	}

	var live handlers.LivePositions
	if cfg.Redis.Addr != "" {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect redis")
		}
		defer redisClient.Close()
		trackingStore := tracking.NewStore(redisClient)
		deps.Tracker = trackingStore
		live = trackingStore
		if cfg.Notify.Backend == config.NotifyRedis {
			deps.Notifier = notify.NewRedisPublisher(redisClient)
		}
	}

	switch cfg.Notify.Backend {
	case config.NotifyRabbitMQ:
		pub, err := notify.NewAMQPPublisher(cfg.Notify.RabbitMQURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect rabbitmq")
		}
		defer pub.Close()
		deps.Notifier = pub
	case config.NotifyRedis:
		if deps.Notifier == nil {
			logger.Fatal().Msg("redis notifications require DISPATCH_REDIS_ADDR")
		}
	case config.NotifyNone:
	default:
		logger.Fatal().Str("backend", cfg.Notify.Backend).Msg("unknown notify backend")
	}

	server := httptransport.NewServer(httptransport.ServerDeps{
		Call:   call.NewService(deps),
		Live:   live,
		Logger: logger,
		Config: cfg.HTTP,
	})

	if err := server.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func seedDirectory(cfg config.MemoryConfig) *directory.Memory {
	dir := directory.NewMemory()
	for _, id := range cfg.Clients {
		if id = strings.TrimSpace(id); id != "" {
			dir.AddClient(types.ID(id))
		}
	}
	for _, entry := range cfg.Drivers {
		driverID, vehicleID, _ := strings.Cut(strings.TrimSpace(entry), ":")
		if driverID != "" {
			dir.AddDriver(types.ID(driverID), types.ID(vehicleID))
		}
	}
	return dir
}
