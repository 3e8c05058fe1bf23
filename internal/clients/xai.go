package clients

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/monkedh/sentinel/internal/hazard"
)

// XaiClient requests a per-patch importance heatmap for one frame from the
// XAI attributor. At most one call per session.
type XaiClient struct {
	base
}

// NewXaiClient builds an XaiClient. Heatmap generation is slow; the
// configured timeout is 45s.
func NewXaiClient(baseURL string, timeout time.Duration) *XaiClient {
	return &XaiClient{base: newBase(baseURL, timeout, rate.NewLimiter(rate.Limit(5), 5))}
}

// XaiCell is one scored grid patch.
type XaiCell struct {
	Row     int     `json:"row"`
	Col     int     `json:"col"`
	Score   float64 `json:"score"`
	Summary string  `json:"summary"`
}

// XaiResult is the heatmap response.
type XaiResult struct {
	GridSize           int       `json:"grid_size"`
	Cells              []XaiCell `json:"cells"`
	MaxScore           float64   `json:"max_score"`
	HeatmapImageBase64 string    `json:"heatmap_image_base64"`
	Explanation        string    `json:"explanation"`
}

type xaiRequest struct {
	ImageBase64      string          `json:"image_base64"`
	FrameNumber      uint64          `json:"frame_number"`
	Timestamp        string          `json:"timestamp"`
	SceneDescription string          `json:"scene_description"`
	DetectedHazards  []hazard.Hazard `json:"detected_hazards"`
	GridSize         int             `json:"grid_size"`
}

// Heatmap POSTs the qualifying frame to /analyze and returns the scored
// grid. Any failure is a *ClientError; the orchestrator turns it into an
// xai_error event rather than aborting the session.
func (c *XaiClient) Heatmap(ctx context.Context, imageBase64 string, frameNumber uint64, timestamp, sceneDescription string, detectedHazards []hazard.Hazard, gridSize int) (XaiResult, *ClientError) {
	req := xaiRequest{
		ImageBase64:      imageBase64,
		FrameNumber:      frameNumber,
		Timestamp:        timestamp,
		SceneDescription: sceneDescription,
		DetectedHazards:  detectedHazards,
		GridSize:         gridSize,
	}
	var resp XaiResult
	if cerr := c.postJSON(ctx, "/analyze", req, &resp); cerr != nil {
		return XaiResult{}, cerr
	}
	return resp, nil
}
