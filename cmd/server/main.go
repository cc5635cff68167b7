package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sdr-enthusiasts/acarshub-server/internal/alerts"
	"github.com/sdr-enthusiasts/acarshub-server/internal/api"
	"github.com/sdr-enthusiasts/acarshub-server/internal/config"
	"github.com/sdr-enthusiasts/acarshub-server/internal/datalink"
	"github.com/sdr-enthusiasts/acarshub-server/internal/ingest"
	"github.com/sdr-enthusiasts/acarshub-server/internal/mqtt"
	"github.com/sdr-enthusiasts/acarshub-server/internal/storage/sqlite"
	"github.com/sdr-enthusiasts/acarshub-server/internal/websocket"
	"github.com/sdr-enthusiasts/acarshub-server/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting ACARS Hub server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Create SQLite message archive, one database file per day
	today := time.Now().Format("2006-01-02")
	dbFilename := fmt.Sprintf("acarshub-%s.db", today)
	dbPath := filepath.Join(cfg.Storage.SQLiteBasePath, dbFilename)

	if err := os.MkdirAll(cfg.Storage.SQLiteBasePath, 0755); err != nil {
		log.Error("Failed to create database directory",
			logger.Error(err),
			logger.String("path", cfg.Storage.SQLiteBasePath))
		os.Exit(1)
	}

	messageStorage, err := sqlite.NewMessageStorage(dbPath, log)
	if err != nil {
		log.Error("Failed to create SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer messageStorage.Close()
	log.Info("Using daily database", logger.String("path", dbPath))

	// Create WebSocket server and start the hub loop
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	// Create alert matcher and runtime display settings
	alertMatcher := alerts.NewMatcher(cfg.Alerts, log)
	settings := datalink.NewSettingsStore(cfg.Filters, cfg.Engine.MaxPlanes)

	// Optional MQTT mirror of the processed message stream
	var publisher datalink.Publisher
	var mqttPublisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		mqttPublisher, err = mqtt.NewPublisher(cfg.MQTT, log)
		if err != nil {
			log.Error("Failed to connect MQTT publisher", logger.Error(err))
			os.Exit(1)
		}
		defer mqttPublisher.Close()
		publisher = mqttPublisher
	}

	// Create the correlation engine
	engine := datalink.NewMessageHandler(
		cfg.Engine,
		settings,
		alertMatcher,
		messageStorage,
		wsServer,
		publisher,
		log,
	)

	// Route inbound WebSocket messages to the engine
	wsServer.SetMessageHandler(datalink.NewWebSocketHandler(engine, log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start a UDP listener per enabled protocol
	var listeners []*ingest.UDPListener
	for _, src := range []struct {
		protocol string
		cfg      config.DatalinkSourceConfig
	}{
		{"acars", cfg.Sources.ACARS},
		{"vdlm2", cfg.Sources.VDLM2},
		{"hfdl", cfg.Sources.HFDL},
	} {
		if !src.cfg.Enabled {
			continue
		}
		l := ingest.NewUDPListener(src.protocol, src.cfg.Port, engine, log)
		if err := l.Start(ctx); err != nil {
			log.Error("Failed to start listener",
				logger.Error(err),
				logger.String("protocol", src.protocol))
			os.Exit(1)
		}
		listeners = append(listeners, l)
	}

	// Start the ADS-B position poller if configured
	var poller *ingest.ADSBPoller
	if cfg.Sources.ADSB.Enabled {
		poller = ingest.NewADSBPoller(
			cfg.Sources.ADSB.SourceURL,
			time.Duration(cfg.Sources.ADSB.FetchIntervalSecs)*time.Second,
			engine,
			log,
		)
		if err := poller.Start(ctx); err != nil {
			log.Error("Failed to start ADS-B poller", logger.Error(err))
			os.Exit(1)
		}
	} else {
		log.Info("ADS-B position feed disabled in configuration")
	}

	// Broadcast engine counters to dashboard clients periodically
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				status := engine.Status()
				wsServer.Broadcast(&websocket.Message{
					Type: websocket.MessageTypeSystemStatus,
					Data: map[string]any{
						"status":  status,
						"clients": wsServer.ClientCount(),
					},
				})
			case <-ctx.Done():
				return
			}
		}
	}()

	// Create API router and HTTP server
	router := api.NewRouter(engine, settings, messageStorage, cfg, log, wsServer)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("Shutting down", logger.String("signal", sig.String()))

	// Stop accepting new work first, then drain the ingest paths
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	if poller != nil {
		poller.Stop()
	}
	for _, l := range listeners {
		l.Stop()
	}
	cancel()

	log.Info("Shutdown complete")
}
