package toolcall

import (
	"strings"

	"github.com/monkedh/sentinel/internal/hazard"
)

// Action is one tool invocation from the agent executor's
// intermediate_steps trace.
type Action struct {
	Tool      string         `json:"tool"`
	ToolInput map[string]any `json:"tool_input"`
}

// Step pairs an Action with the text the tool produced.
type Step struct {
	Action Action `json:"action"`
	Output string `json:"output"`
}

// aliasTable normalizes free-text service descriptions, case-insensitive,
// to the canonical three-service enum.
var aliasTable = []struct {
	tokens  []string
	service ServiceType
}{
	{[]string{"fire", "fire dept", "firefighters", "flames", "smoke", "explosion"}, ServiceFire},
	{[]string{"police", "law enforcement", "security", "sheriff"}, ServicePolice},
	{[]string{"911", "medical", "ambulance", "ems", "paramedics", "injury", "samu"}, ServiceSamu},
}

// normalizeService maps free text to a canonical ServiceType. Unrecognized
// text defaults to SAMU, matching the fallback service inference.
func normalizeService(raw string) ServiceType {
	lower := strings.ToLower(raw)
	for _, row := range aliasTable {
		for _, tok := range row.tokens {
			if strings.Contains(lower, tok) {
				return row.service
			}
		}
	}
	return ServiceSamu
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Adapt parses an agent's raw output plus its tool-call trace into the
// agent's free-text response and the canonical ToolInvocation list.
// Unrecognized or rejected tool calls are skipped.
func Adapt(output string, steps []Step) (string, []ToolInvocation) {
	invocations := make([]ToolInvocation, 0, len(steps))
	for _, step := range steps {
		inv, ok := adaptOne(step)
		if ok {
			invocations = append(invocations, inv)
		}
	}
	return output, invocations
}

func adaptOne(step Step) (ToolInvocation, bool) {
	input := step.Action.ToolInput
	output := map[string]any{"text": step.Output}

	switch Tool(step.Action.Tool) {
	case CallAuthorities:
		service := normalizeService(stringField(input, "service_type"))
		return ToolInvocation{
			Tool:                   CallAuthorities,
			ServiceType:            service,
			ServiceLabel:           labelFor(service),
			Urgency:                stringField(input, "urgency_level"),
			Situation:              stringField(input, "situation_description"),
			RequiresManualDispatch: true,
			DispatchStatus:         StatusPending,
			Channel:                "frontend_queue",
			ToolInput:              input,
			ToolOutput:             output,
		}, true

	case PhoneCallTool:
		hazardType := strings.ToLower(stringField(input, "hazard_type"))
		if hazardType != "fire" && hazardType != "medical" {
			return ToolInvocation{}, false
		}
		service := ServiceFire
		if hazardType == "medical" {
			service = ServiceSamu
		}
		return ToolInvocation{
			Tool:                   PhoneCallTool,
			ServiceType:            service,
			ServiceLabel:           labelFor(service),
			Situation:              stringField(input, "situation_summary"),
			RequiresManualDispatch: false,
			DispatchStatus:         StatusCompleted,
			ToolInput:              input,
			ToolOutput:             output,
		}, true

	case PhoneSMSTool:
		message := stringField(input, "message")
		if message == "" {
			return ToolInvocation{}, false
		}
		if !strings.Contains(message, "Sent by Monkedh:") {
			message = "Sent by Monkedh: " + message
		}
		return ToolInvocation{
			Tool:           PhoneSMSTool,
			ServiceType:    ServiceSMS,
			Message:        message,
			DispatchStatus: StatusCompleted,
			ToolInput:      input,
			ToolOutput:     output,
		}, true

	case RedirectToChatTool:
		return ToolInvocation{
			Tool:           RedirectToChatTool,
			ServiceType:    ServiceRedirect,
			Message:        stringField(input, "message"),
			Urgency:        "critical",
			DispatchStatus: StatusPending,
			Channel:        "frontend_redirect",
			ToolInput:      input,
			ToolOutput:     output,
		}, true

	default:
		return ToolInvocation{}, false
	}
}

// Fire/police token sets backing the fallback service inference below.
var (
	fireTokens   = []string{"fire", "flame", "smoke", "explosion", "burn"}
	policeTokens = []string{"weapon", "assault", "violence", "police", "attack", "threat", "kidnap"}
)

func containsAny(text string, tokens []string) bool {
	lower := strings.ToLower(text)
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// Fallback builds a synthetic fallback_virtual_call invocation when the
// agent emits no tool calls, inferring the service from the dispatched
// frame's metrics.
func Fallback(m hazard.EmergencyMetrics) ToolInvocation {
	service := inferService(m)
	return ToolInvocation{
		Tool:           FallbackVirtualCall,
		ServiceType:    service,
		ServiceLabel:   labelFor(service),
		Situation:      m.SceneDescription,
		Timestamp:      m.Timestamp,
		DispatchStatus: StatusPending,
		Channel:        "frontend_queue",
	}
}

func inferService(m hazard.EmergencyMetrics) ServiceType {
	hazardText := m.SceneDescription + " " + joinHazards(m.DetectedHazards)
	if containsAny(hazardText, fireTokens) || m.HasHazard(hazard.Fire) {
		return ServiceFire
	}
	if m.VisibleInjuries || (m.PeopleCount != nil && *m.PeopleCount > 0) {
		return ServiceSamu
	}
	if containsAny(hazardText, policeTokens) || m.HasHazard(hazard.Violence) {
		return ServicePolice
	}
	return ServiceSamu
}

func joinHazards(hazards []hazard.Hazard) string {
	parts := make([]string, len(hazards))
	for i, h := range hazards {
		parts[i] = string(h)
	}
	return strings.Join(parts, " ")
}
