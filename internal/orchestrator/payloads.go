package orchestrator

import (
	"github.com/monkedh/sentinel/internal/clients"
	"github.com/monkedh/sentinel/internal/frames"
	"github.com/monkedh/sentinel/internal/hazard"
	"github.com/monkedh/sentinel/internal/toolcall"
)

// The payload types below mirror the SSE wire format one-to-one: one
// struct per event kind, each doc comment naming the Kind that produces
// it.

// FramePayload backs event: frame.
type FramePayload struct {
	SessionID           string              `json:"session_id"`
	FrameNumber         uint64              `json:"frame_number"`
	Timestamp           string              `json:"timestamp"`
	UrgencyLevel        hazard.UrgencyLevel `json:"urgency_level"`
	SceneDescription    string              `json:"scene_description"`
	DetectedHazards     []hazard.Hazard     `json:"detected_hazards"`
	PeopleCount         *int                `json:"people_count,omitempty"`
	VisibleInjuries     bool                `json:"visible_injuries"`
	DispatchRecommended bool                `json:"dispatch_recommended"`
	RecommendedAction   string              `json:"recommended_action"`
}

// IncidentPayload backs event: incident, a superset of FramePayload.
type IncidentPayload struct {
	FramePayload
	XaiAnalysis   *clients.XaiResult        `json:"xai_analysis,omitempty"`
	AgentResponse string                    `json:"agent_response,omitempty"`
	ActionsTaken  []toolcall.ToolInvocation `json:"actions_taken,omitempty"`
}

// XaiHeatmapPayload backs event: xai_heatmap.
type XaiHeatmapPayload struct {
	SessionID          string            `json:"session_id"`
	FrameNumber        uint64            `json:"frame_number"`
	Timestamp          string            `json:"timestamp"`
	GridSize           int               `json:"grid_size"`
	HeatmapImageBase64 string            `json:"heatmap_image_base64"`
	Cells              []clients.XaiCell `json:"cells"`
	Explanation        string            `json:"explanation"`
	MaxScore           float64           `json:"max_score"`
}

// XaiErrorPayload backs event: xai_error.
type XaiErrorPayload struct {
	FrameNumber uint64 `json:"frame_number"`
	Timestamp   string `json:"timestamp"`
	Detail      string `json:"detail"`
}

// XaiDisabledPayload backs event: xai_disabled.
type XaiDisabledPayload struct {
	FrameNumber uint64 `json:"frame_number"`
	Timestamp   string `json:"timestamp"`
	Reason      string `json:"reason"`
}

// AgentCallPayload backs event: agent_call.
type AgentCallPayload struct {
	SessionID          string                    `json:"session_id"`
	FrameNumber        uint64                    `json:"frame_number"`
	AgentResponse      string                    `json:"agent_response"`
	EmergencyResponses []toolcall.ToolInvocation `json:"emergency_responses"`
	ActionsTaken       []toolcall.ToolInvocation `json:"actions_taken"`
	ToolCalls          int                       `json:"tool_calls"`
}

// ToolCallPayload backs event: tool_call, one ToolInvocation merged with
// session/frame identity.
type ToolCallPayload struct {
	toolcall.ToolInvocation
	SessionID   string `json:"session_id"`
	FrameNumber uint64 `json:"frame_number"`
}

// AnalysisSummary is the complete event's analysis_summary object.
type AnalysisSummary struct {
	TotalFramesAnalyzed       int                 `json:"total_frames_analyzed"`
	ThreatLevel               hazard.UrgencyLevel `json:"threat_level"`
	DominantUrgencyLevel      hazard.UrgencyLevel `json:"dominant_urgency_level"`
	HighUrgencyFrames         int                 `json:"high_urgency_frames"`
	MediumUrgencyFrames       int                 `json:"medium_urgency_frames"`
	NormalUrgencyFrames       int                 `json:"normal_urgency_frames"`
	LowUrgencyFrames          int                 `json:"low_urgency_frames"`
	MaxSeverityIndex          float64             `json:"max_severity_index"`
	AverageSeverityIndex      float64             `json:"average_severity_index"`
	UniqueHazardsDetected     []hazard.Hazard     `json:"unique_hazards_detected"`
	TotalIncidents            int                 `json:"total_incidents"`
	RequiresImmediateResponse bool                `json:"requires_immediate_response"`
	PhoneBridgeConnected      bool                `json:"phone_bridge_connected"`
	PhoneBridgeIP             *string             `json:"phone_bridge_ip,omitempty"`
}

// TimelinePoint is one entry of the complete event's urgency_timeline.
type TimelinePoint struct {
	Timestamp        string              `json:"timestamp"`
	FrameNumber      uint64              `json:"frame_number"`
	UrgencyLevel     hazard.UrgencyLevel `json:"urgency_level"`
	SceneDescription string              `json:"scene_description"`
	DetectedHazards  []hazard.Hazard     `json:"detected_hazards"`
}

// CompletePayload backs event: complete.
type CompletePayload struct {
	SessionID          string                    `json:"session_id"`
	VideoInfo          frames.VideoInfo          `json:"video_info"`
	AnalysisSummary    AnalysisSummary           `json:"analysis_summary"`
	EmergencyResponses []toolcall.ToolInvocation `json:"emergency_responses"`
	CriticalIncidents  []IncidentPayload         `json:"critical_incidents"`
	UrgencyTimeline    []TimelinePoint           `json:"urgency_timeline"`
	XaiAnalysis        *clients.XaiResult        `json:"xai_analysis,omitempty"`
	XaiEnabled         bool                      `json:"xai_enabled"`
}

// ErrorPayload backs event: error.
type ErrorPayload struct {
	Detail string `json:"detail"`
}

// EndPayload backs event: end.
type EndPayload struct {
	SessionID string `json:"session_id"`
}
