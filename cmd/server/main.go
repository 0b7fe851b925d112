package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/mediapulse/media-pulse-bot/internal/alerting"
	"github.com/mediapulse/media-pulse-bot/internal/config"
	"github.com/mediapulse/media-pulse-bot/internal/notifications"
	"github.com/mediapulse/media-pulse-bot/internal/realtime"
	"github.com/mediapulse/media-pulse-bot/internal/scheduler"
	"github.com/mediapulse/media-pulse-bot/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Media Pulse alerting service")

	// Storage port. The production persistence layer is owned by the main
	// application; the in-memory store backs standalone operation.
	store := storage.NewMemoryStore()

	// Optional alert-run snapshot archive
	var archive storage.Archive
	if cfg.StorageAccount != "" {
		azureArchive, err := storage.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Errorf("Failed to initialize run archive, continuing without it: %v", err)
		} else {
			archive = azureArchive
		}
	}

	// Initialize notification service
	notifier := notifications.NewService(cfg)

	// Realtime hub and buffered dispatcher
	hub := realtime.NewHub(time.Duration(cfg.HeartbeatIntervalMinutes) * time.Minute)
	hub.Start()

	buffer := realtime.NewUpdateBuffer(hub,
		time.Duration(cfg.BufferCycleMinutes)*time.Minute,
		time.Duration(cfg.MinFlushDelaySeconds)*time.Second)
	buffer.Start()

	// Alert engine
	alertService := alerting.NewService(cfg, store, notifier, buffer)

	// Scheduler
	schedulerService := scheduler.NewService(cfg, alertService, archive)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}

	// Raw websocket multiplexer with the application paths
	rawMux := realtime.NewRawMux(hub)
	rawMux.RegisterHandler("/ws-diagnostic", func(conn *realtime.Connection, r *http.Request) {
		logrus.Infof("Diagnostic WebSocket connection: %s", conn.ID)
	})
	rawMux.RegisterHandler("/ws", func(conn *realtime.Connection, r *http.Request) {
		logrus.Debugf("Dashboard WebSocket connection: %s", conn.ID)
	})
	rawMux.RegisterHandler("/api/ws", func(conn *realtime.Connection, r *http.Request) {
		logrus.Debugf("Application WebSocket connection: %s (tenant %s)", conn.ID, conn.TenantID)
	})

	roomServer := realtime.NewRoomServer(hub)

	// Set up HTTP server
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Metrics endpoint
	router.HandleFunc("/metrics", metricsHandler(alertService)).Methods("GET")

	// Manual trigger endpoint
	router.HandleFunc("/trigger", triggerHandler(schedulerService)).Methods("POST")

	// Live connection stats
	router.HandleFunc("/connections", connectionsHandler(hub)).Methods("GET")

	// Realtime endpoints
	router.Handle("/rt", roomServer)
	router.PathPrefix("/ws").Handler(rawMux)
	router.PathPrefix("/api/ws").Handler(rawMux)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
		// No write timeout: websocket connections outlive any sane value
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	schedulerService.Stop()
	buffer.Stop()
	hub.Stop()

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(alertService *alerting.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(alertService.GetMetrics()))
	}
}

func triggerHandler(schedulerService *scheduler.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := schedulerService.RunOnce(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(result)
	}
}

func connectionsHandler(hub *realtime.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := hub.ConnectionStats()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"total_connections": len(stats),
			"connections":       stats,
		})
	}
}
