package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/mdreader/mdreaderd/adapter/inbound/rest"
	"github.com/mdreader/mdreaderd/adapter/inbound/websocket"
	"github.com/mdreader/mdreaderd/adapter/outbound/crypto"
	"github.com/mdreader/mdreaderd/adapter/outbound/filewatcher"
	"github.com/mdreader/mdreaderd/adapter/outbound/logging"
	"github.com/mdreader/mdreaderd/adapter/outbound/machineid"
	"github.com/mdreader/mdreaderd/adapter/outbound/storage"
	"github.com/mdreader/mdreaderd/config"
	"github.com/mdreader/mdreaderd/domain/service"
)

const version = "1.0.0"

func main() {
	var configPath string
	var generateConfig bool
	var showVersion bool

	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.BoolVar(&generateConfig, "generate-config", false, "Generate default configuration file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("mdreaderd %s\n", version)
		os.Exit(0)
	}

	if generateConfig {
		cfg := config.DefaultConfig()
		if err := config.SaveConfig(cfg, configPath); err != nil {
			fmt.Printf("Error generating config file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration file generated at: %s\n", configPath)
		os.Exit(0)
	}

	cfg := config.DefaultConfig()
	if _, statErr := os.Stat(configPath); statErr == nil {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := logging.NewSlogAdapter(cfg)
	defer logger.Shutdown()

	logger.Info("starting mdreaderd", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Outbound adapters
	configRepo, err := storage.NewWorkspaceConfigRepository(logger)
	if err != nil {
		logger.Error("cannot resolve config directory", "error", err)
		os.Exit(1)
	}
	machineIDService := machineid.NewHardwareMachineID()
	secretService := crypto.NewSecretService()
	watchFactory := filewatcher.NewFactory(cfg.Workspace.WatchDebounce, logger)

	// WebSocket hub doubles as the change notifier for the watcher pipeline
	wsHandler := websocket.NewHandler(cfg.HTTP.CORS.AllowedOrigins, logger)

	// Domain services
	registry := service.NewWatchRegistry(logger)
	workspaceService := service.NewWorkspaceService(registry, configRepo, logger)
	pathGuard := service.NewPathGuardService(logger)
	extensions := cfg.Workspace.DocumentExtensions
	fileService := service.NewFileService(workspaceService, pathGuard, extensions, logger)
	transferService := service.NewTransferService(workspaceService, pathGuard, extensions, logger)
	watcherService := service.NewWatcherService(
		workspaceService, pathGuard, registry, watchFactory, wsHandler, extensions, logger)

	authService, err := service.NewAuthService(
		machineIDService, secretService, logger,
		cfg.HTTP.JWT.Secret, cfg.HTTP.JWT.ExpirationMinutes)
	if err != nil {
		logger.Error("cannot initialize auth service", "error", err)
		os.Exit(1)
	}

	// Inbound adapters
	router := mux.NewRouter()

	restHandler := rest.NewHandler(
		workspaceService, fileService, watcherService, transferService,
		authService, cfg, logger)
	restHandler.SetupRoutes(router)

	router.HandleFunc("/api/ws/changes", wsHandler.HandleConnection)

	authMiddleware := rest.NewAuthMiddleware(authService, logger, cfg.Security.EnableAuthentication)
	corsMiddleware := rest.NewCORSMiddleware(cfg)
	router.Use(corsMiddleware.Middleware)
	router.Use(authMiddleware.Middleware)

	httpAddr := fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)
	server := &http.Server{
		Addr:         httpAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", httpAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", "error", err)
	}

	stopped := watcherService.StopAll()
	logger.Info("watchers stopped", "count", stopped)
	wsHandler.Cleanup()
	cancel()

	logger.Info("shutdown complete")
}
