package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"tableside_server/api"
	"tableside_server/bus"
	"tableside_server/config"
	"tableside_server/database"
	"tableside_server/services"
	"tableside_server/structs"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/joho/godotenv"
)

var logger *gecho.Logger
var cfg *structs.Config

// init function to load environment variables and initialize logger and database
func init() {
	envErr := godotenv.Load()

	cfg = config.GetConfig()
	logger = config.InitializeLogger()

	if envErr != nil {
		logger.Warn("No .env file found or error loading .env file, proceeding with system environment variables")
	}

	if err := config.Validate(cfg); err != nil {
		logger.Fatal("Invalid configuration", gecho.Field("error", err))
	}

	if err := database.Initialize(); err != nil {
		logger.Fatal("Failed to initialize database", gecho.Field("error", err))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := database.GetInstance()
	redisClient := services.NewRedisClient(cfg.Cache)

	changeBus, err := bus.New(ctx, cfg.Bus, bus.Deps{
		Logger:      logger,
		Redis:       redisClient,
		PostgresDSN: database.DSN(cfg.Database),
	})
	if err != nil {
		logger.Fatal("Failed to initialize change bus", gecho.Field("driver", cfg.Bus.Driver), gecho.Field("error", err))
	}

	sm := services.NewServiceManager(logger, cfg, db, redisClient, changeBus)
	sm.Surfaces.Start(ctx)

	server := &http.Server{
		Addr:           cfg.Server.Port,
		Handler:        api.App(cfg, sm),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		// Open surface streams end with the signal instead of holding Shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info(fmt.Sprintf("Starting server (%s) on %s", cfg.Server.AppName, cfg.Server.Port),
			gecho.Field("bus", changeBus.Name()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start server", gecho.Field("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal, draining connections")
	shutdown(server, sm, changeBus)
}

// shutdown stops accepting requests, waits for the surfaces to stop and
// releases every connection.
func shutdown(server *http.Server, sm *services.ServiceManager, changeBus bus.Bus) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("Server shutdown did not complete", gecho.Field("error", err))
	}

	sm.Surfaces.Wait()

	if err := changeBus.Close(); err != nil {
		logger.Warn("Failed to close change bus", gecho.Field("error", err))
	}
	if err := sm.CacheService.Close(); err != nil {
		logger.Warn("Failed to close redis client", gecho.Field("error", err))
	}
	if err := database.CloseInstance(); err != nil {
		logger.Warn("Failed to close database", gecho.Field("error", err))
	}

	logger.Info("Shutdown complete")
}
