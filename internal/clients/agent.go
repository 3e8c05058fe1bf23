package clients

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/monkedh/sentinel/internal/hazard"
	"github.com/monkedh/sentinel/internal/toolcall"
)

// AgentClient invokes the LLM-driven agent executor at end-of-stream for
// the one selected dispatch frame. At most one call per session.
type AgentClient struct {
	base
}

// NewAgentClient builds an AgentClient with the configured agent timeout.
func NewAgentClient(baseURL string, timeout time.Duration) *AgentClient {
	return &AgentClient{base: newBase(baseURL, timeout, rate.NewLimiter(rate.Limit(2), 2))}
}

// RedirectContext carries the "last known service/hazard/situation" the
// agent uses to phrase a redirect_to_chat_tool confirmation. Not persisted
// across sessions; the orchestrator fills it in from the dispatched
// frame's own metrics.
type RedirectContext struct {
	Service   string `json:"service,omitempty"`
	Hazard    string `json:"hazard,omitempty"`
	Situation string `json:"situation,omitempty"`
}

// AgentRequest is the dispatch payload for the selected frame. UrgencyLevel
// is passed raw (may be "critical"); the agent is the only consumer that
// ever sees the unmapped value.
type AgentRequest struct {
	UrgencyScore     float64         `json:"urgency_score"`
	UrgencyLevel     string          `json:"urgency_level"`
	SceneDescription string          `json:"scene_description"`
	DetectedHazards  []hazard.Hazard `json:"detected_hazards"`
	PeopleCount      *int            `json:"people_count,omitempty"`
	VisibleInjuries  bool            `json:"visible_injuries"`
	Timestamp        string          `json:"timestamp"`
	FrameNumber      uint64          `json:"frame_number"`
	SeverityIndex    float64         `json:"severity_index"`

	RedirectContext *RedirectContext `json:"redirect_context,omitempty"`
}

// agentResponse accepts either shape the agent service may return: already
// canonicalized ToolInvocation lists, or a raw output/intermediate_steps
// trace that we adapt locally via internal/toolcall.
type agentResponse struct {
	AgentResponse string `json:"agent_response"`

	EmergencyCalls []toolcall.ToolInvocation `json:"emergency_calls,omitempty"`
	ActionsTaken   []toolcall.ToolInvocation `json:"actions_taken,omitempty"`

	Output            string          `json:"output,omitempty"`
	IntermediateSteps []toolcall.Step `json:"intermediate_steps,omitempty"`
}

// AgentResult is AgentClient.Analyze's success value.
type AgentResult struct {
	AgentResponse  string
	EmergencyCalls []toolcall.ToolInvocation
	ActionsTaken   []toolcall.ToolInvocation
}

// Analyze POSTs the dispatch payload to /analyze. On any error it returns a
// *ClientError; the orchestrator logs it and still publishes complete
// without an agent_call event.
func (c *AgentClient) Analyze(ctx context.Context, req AgentRequest) (AgentResult, *ClientError) {
	var resp agentResponse
	if cerr := c.postJSON(ctx, "/analyze", req, &resp); cerr != nil {
		return AgentResult{}, cerr
	}

	if resp.EmergencyCalls != nil || resp.ActionsTaken != nil {
		return AgentResult{
			AgentResponse:  resp.AgentResponse,
			EmergencyCalls: resp.EmergencyCalls,
			ActionsTaken:   resp.ActionsTaken,
		}, nil
	}

	agentText, invocations := toolcall.Adapt(resp.Output, resp.IntermediateSteps)
	return AgentResult{
		AgentResponse:  agentText,
		EmergencyCalls: invocations,
	}, nil
}
