// Package api implements the HTTP surface: the upload, health, and phone
// endpoints plus the per-session SSE stream, built on gin.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/monkedh/sentinel/internal/clients"
	"github.com/monkedh/sentinel/internal/config"
	"github.com/monkedh/sentinel/internal/eventbus"
	"github.com/monkedh/sentinel/internal/frames"
	"github.com/monkedh/sentinel/internal/phone"
)

// sessionTracker is the subset of orchestrator.Orchestrator the API needs:
// kept as an interface so handler tests can fake it without spinning up a
// real pipeline.
type sessionTracker interface {
	StartSession(videoBytes []byte) (string, error)
}

// Server wires the HTTP surface to its collaborators: the event registry
// feeding the SSE endpoint, the orchestrator that starts pipeline sessions,
// the vision client the synchronous /analyze/frame proxy calls directly,
// and the phone bridge's state/monitor.
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	cfg          *config.Config
	registry     *eventbus.Registry
	orchestrator sessionTracker
	vision       *clients.VisionClient
	phoneState   *phone.State
	phoneMonitor *phone.Monitor
	frameLookup  frameLookup
	logger       *slog.Logger
}

// frameLookup backs the GET /frame/:id/:frame_number diagnostic endpoint:
// looking up a still-open extractor by session id to re-pull one frame by
// index.
type frameLookup interface {
	Lookup(sessionID string) (*frames.Extractor, bool)
}

// NewServer builds a Server and registers its routes. orch and lookup are
// interfaces so handler tests can fake the pipeline without spinning up a
// real orchestrator; cmd/sentinel-server wires in the real
// *orchestrator.Orchestrator for both.
func NewServer(cfg *config.Config, registry *eventbus.Registry, orch sessionTracker, vision *clients.VisionClient, phoneState *phone.State, phoneMonitor *phone.Monitor, frameLookup frameLookup) *Server {
	s := &Server{
		router:       gin.New(),
		cfg:          cfg,
		registry:     registry,
		orchestrator: orch,
		vision:       vision,
		phoneState:   phoneState,
		phoneMonitor: phoneMonitor,
		frameLookup:  frameLookup,
		logger:       slog.Default().With("component", "api"),
	}
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.rootHandler)
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/phone/status", s.phoneStatusHandler)
	s.router.POST("/phone/update_ip", s.updateIPHandler)
	s.router.POST("/analyze/frame", s.analyzeFrameHandler)
	s.router.POST("/analyze/video-emergency", s.analyzeVideoHandler)
	s.router.GET("/stream/video/:id", s.streamVideoHandler)
	s.router.GET("/frame/:id/:frame_number", s.frameAtHandler)
}

// Run starts the HTTP server on addr and blocks until it returns, normally
// via Shutdown from another goroutine.
func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the underlying gin.Engine for tests that drive the
// server with httptest.NewServer/ResponseRecorder.
func (s *Server) Handler() http.Handler { return s.router }
