package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monkedh/sentinel/internal/toolcall"
)

func TestAgentClient_Analyze_CanonicalInvocationsPassThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req AgentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "critical", req.UrgencyLevel, "AgentClient sees the raw urgency level, unmapped")

		json.NewEncoder(w).Encode(map[string]any{
			"agent_response": "dispatched",
			"emergency_calls": []toolcall.ToolInvocation{
				{Tool: toolcall.CallAuthorities, ServiceType: toolcall.ServiceFire},
			},
		})
	}))
	defer srv.Close()

	c := NewAgentClient(srv.URL, time.Second)
	res, cerr := c.Analyze(context.Background(), AgentRequest{UrgencyLevel: "critical"})
	require.Nil(t, cerr)
	assert.Equal(t, "dispatched", res.AgentResponse)
	require.Len(t, res.EmergencyCalls, 1)
	assert.Equal(t, toolcall.ServiceFire, res.EmergencyCalls[0].ServiceType)
}

func TestAgentClient_Analyze_RawTraceIsAdaptedLocally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"output": "calling fire department",
			"intermediate_steps": []toolcall.Step{
				{
					Action: toolcall.Action{
						Tool:      string(toolcall.CallAuthorities),
						ToolInput: map[string]any{"service_type": "fire", "urgency_level": "high"},
					},
					Output: "ok",
				},
			},
		})
	}))
	defer srv.Close()

	c := NewAgentClient(srv.URL, time.Second)
	res, cerr := c.Analyze(context.Background(), AgentRequest{})
	require.Nil(t, cerr)
	assert.Equal(t, "calling fire department", res.AgentResponse)
	require.Len(t, res.EmergencyCalls, 1)
	assert.Equal(t, toolcall.ServiceFire, res.EmergencyCalls[0].ServiceType)
	assert.True(t, res.EmergencyCalls[0].RequiresManualDispatch)
}

func TestAgentClient_Analyze_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewAgentClient(srv.URL, time.Second)
	_, cerr := c.Analyze(context.Background(), AgentRequest{})
	require.NotNil(t, cerr)
	assert.Equal(t, BadStatus, cerr.Kind)
}
