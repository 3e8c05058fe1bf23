// sentinel-server runs the emergency video orchestrator: it accepts an
// uploaded incident video, fans work out to the vision/agent/XAI
// collaborators, and streams per-frame assessments over SSE while a
// background monitor tracks the phone bridge's liveness.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/monkedh/sentinel/internal/api"
	"github.com/monkedh/sentinel/internal/clients"
	"github.com/monkedh/sentinel/internal/config"
	"github.com/monkedh/sentinel/internal/eventbus"
	"github.com/monkedh/sentinel/internal/orchestrator"
	"github.com/monkedh/sentinel/internal/phone"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to directory holding the .env file")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)

	log.Printf("Starting sentinel")
	log.Printf("HTTP Port: %s", httpPort)

	cfg := config.Load()

	tempDir, err := os.MkdirTemp("", "sentinel-uploads-*")
	if err != nil {
		log.Fatalf("Failed to create upload temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	registry := eventbus.NewRegistry()
	visionClient := clients.NewVisionClient(cfg.VisionServiceURL, cfg.VisionTimeout)
	agentClient := clients.NewAgentClient(cfg.AgentServiceURL, cfg.AgentTimeout)
	xaiClient := clients.NewXaiClient(cfg.XAIServiceURL, cfg.XAITimeout)
	phoneProbeClient := clients.NewPhoneStatusClient(cfg.PhoneTimeout)

	phoneState := phone.NewState(cfg.PhoneIP)
	phoneMonitor := phone.NewMonitor(phoneState, phoneProbeClient, cfg.PhoneHealthInterval, cfg.PhoneBridgePort)

	orch := orchestrator.New(registry, visionClient, xaiClient, agentClient, phoneState, cfg, tempDir)

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	go phoneMonitor.Run(monitorCtx)
	defer cancelMonitor()

	server := api.NewServer(cfg, registry, orch, visionClient, phoneState, phoneMonitor, orch)

	slog.Info("sentinel ready", "http_port", httpPort, "xai_enabled", cfg.XAIEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Run(":" + httpPort); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("HTTP server failed: %v", err)
	case sig := <-sigCh:
		log.Printf("Received signal %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}
