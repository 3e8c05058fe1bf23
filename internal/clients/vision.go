package clients

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/monkedh/sentinel/internal/hazard"
)

// VisionClient analyzes a single frame's image via the vision service.
type VisionClient struct {
	base
}

// NewVisionClient builds a VisionClient pointed at baseURL with the given
// per-call timeout.
func NewVisionClient(baseURL string, timeout time.Duration) *VisionClient {
	return &VisionClient{base: newBase(baseURL, timeout, rate.NewLimiter(rate.Limit(20), 20))}
}

type visionRequest struct {
	ImageBase64 string `json:"image_base64"`
	Timestamp   string `json:"timestamp"`
	FrameNumber uint64 `json:"frame_number"`
}

// visionResponse accepts either shape the vision service may return: a raw
// caption (we run the hazard parser locally) or an already-parsed
// EmergencyMetrics (the service hosts the parser itself).
type visionResponse struct {
	Caption *string `json:"caption,omitempty"`
	hazard.EmergencyMetrics
}

// Analyze POSTs the frame to /analyze and returns its EmergencyMetrics. A
// non-2xx response is a *ClientError with Kind BadStatus; the orchestrator
// skips the frame on any error.
func (c *VisionClient) Analyze(ctx context.Context, imageBase64, timestamp string, frameNumber uint64) (hazard.EmergencyMetrics, *ClientError) {
	req := visionRequest{ImageBase64: imageBase64, Timestamp: timestamp, FrameNumber: frameNumber}
	var resp visionResponse
	if cerr := c.postJSON(ctx, "/analyze", req, &resp); cerr != nil {
		return hazard.EmergencyMetrics{}, cerr
	}

	if resp.Caption != nil {
		return hazard.Parse(*resp.Caption, timestamp, frameNumber), nil
	}
	resp.EmergencyMetrics.Timestamp = timestamp
	resp.EmergencyMetrics.FrameNumber = frameNumber
	return resp.EmergencyMetrics, nil
}
