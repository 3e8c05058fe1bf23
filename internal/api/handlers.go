package api

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/monkedh/sentinel/internal/eventbus"
)

// rootHandler handles GET /.
func (s *Server) rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, rootResponse{
		Message: "sentinel emergency video orchestrator",
		Status:  "ok",
	})
}

// healthHandler handles GET /health. Status is "degraded" when the phone
// bridge is not currently connected; one collaborator's state folds into
// the overall status without failing the request outright.
func (s *Server) healthHandler(c *gin.Context) {
	phoneSnap := s.phoneState.Get()

	status := "healthy"
	if !phoneSnap.Connected {
		status = "degraded"
	}

	c.JSON(http.StatusOK, healthResponse{
		Status: status,
		Services: healthServices{
			Vision: s.cfg.VisionServiceURL != "",
			Agent:  s.cfg.AgentServiceURL != "",
			XAI:    s.cfg.XAIEnabled && s.cfg.XAIServiceURL != "",
		},
		LlamaServer: false,
		Phone:       phoneSnap,
	})
}

// phoneStatusHandler handles GET /phone/status.
func (s *Server) phoneStatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.phoneState.Get())
}

// updateIPHandler handles POST /phone/update_ip: validates, updates the
// phone state, forces an immediate probe, and responds with {saved, ip}.
func (s *Server) updateIPHandler(c *gin.Context) {
	var req updateIPRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IP == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "ip is required"})
		return
	}

	s.phoneState.SetIP(req.IP)
	if s.phoneMonitor != nil {
		s.phoneMonitor.ForceProbe()
	}

	c.JSON(http.StatusOK, updateIPResponse{Saved: true, IP: req.IP})
}

// analyzeFrameHandler handles POST /analyze/frame: a synchronous proxy to
// the VisionClient for a single frame, used by clients that want an
// assessment outside the streaming pipeline.
func (s *Server) analyzeFrameHandler(c *gin.Context) {
	var req frameAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.VisionTimeout)
	defer cancel()

	metrics, cerr := s.vision.Analyze(ctx, req.ImageBase64, req.Timestamp, req.FrameNumber)
	if cerr != nil {
		c.JSON(http.StatusBadGateway, errorResponse{Error: cerr.Error()})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

const maxUploadBytes = 512 << 20 // 512MiB, generous for an incident video upload

// analyzeVideoHandler handles POST /analyze/video-emergency: accepts a
// multipart "file", spawns a pipeline session, and returns immediately
// with {session_id, status: "processing"}.
func (s *Server) analyzeVideoHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "file is required"})
		return
	}

	videoBytes, err := readMultipartFile(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	sessionID, err := s.orchestrator.StartSession(videoBytes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, videoUploadResponse{SessionID: sessionID, Status: "processing"})
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadBytes))
}

// streamVideoHandler handles GET /stream/video/:id: attaches the session's
// single SSE consumer and drains it until an end event.
func (s *Server) streamVideoHandler(c *gin.Context) {
	id := c.Param("id")

	events, err := s.registry.Subscribe(id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(evt.Kind), evt.Data)
			return evt.Kind != eventbus.KindEnd
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// frameAtHandler handles GET /frame/:id/:frame_number: re-extracts and
// returns one frame's base64 JPEG from a still-running session, for report
// rendering/debugging.
func (s *Server) frameAtHandler(c *gin.Context) {
	id := c.Param("id")
	n, err := strconv.ParseUint(c.Param("frame_number"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid frame_number"})
		return
	}

	extractor, ok := s.frameLookup.Lookup(id)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}

	frame, err := extractor.FrameAt(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, frame)
}
