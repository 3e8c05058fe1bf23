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

	"github.com/monkedh/sentinel/internal/hazard"
)

func TestVisionClient_Analyze_RawCaptionIsParsedLocally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req visionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, uint64(7), req.FrameNumber)
		json.NewEncoder(w).Encode(map[string]string{"caption": "A calm street. No danger."})
	}))
	defer srv.Close()

	c := NewVisionClient(srv.URL, time.Second)
	m, cerr := c.Analyze(context.Background(), "base64img", "00:00:07", 7)
	require.Nil(t, cerr)
	assert.Equal(t, hazard.UrgencyLow, m.UrgencyLevel)
	assert.Equal(t, "00:00:07", m.Timestamp)
	assert.Equal(t, uint64(7), m.FrameNumber)
}

func TestVisionClient_Analyze_PreParsedMetricsPassThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(hazard.EmergencyMetrics{
			UrgencyLevel: hazard.UrgencyHigh,
			UrgencyScore: 7.5,
		})
	}))
	defer srv.Close()

	c := NewVisionClient(srv.URL, time.Second)
	m, cerr := c.Analyze(context.Background(), "base64img", "00:00:01", 1)
	require.Nil(t, cerr)
	assert.Equal(t, hazard.UrgencyHigh, m.UrgencyLevel)
	assert.Equal(t, "00:00:01", m.Timestamp, "timestamp is always stamped from the call, not the response body")
	assert.Equal(t, uint64(1), m.FrameNumber)
}

func TestVisionClient_Analyze_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewVisionClient(srv.URL, time.Second)
	_, cerr := c.Analyze(context.Background(), "x", "t", 0)
	require.NotNil(t, cerr)
	assert.Equal(t, BadStatus, cerr.Kind)
	assert.Equal(t, http.StatusInternalServerError, cerr.StatusCode)
}

func TestVisionClient_Analyze_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewVisionClient(srv.URL, time.Second)
	_, cerr := c.Analyze(context.Background(), "x", "t", 0)
	require.NotNil(t, cerr)
	assert.Equal(t, Decode, cerr.Kind)
}

func TestVisionClient_Analyze_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewVisionClient(srv.URL, 5*time.Millisecond)
	_, cerr := c.Analyze(context.Background(), "x", "t", 0)
	require.NotNil(t, cerr)
	assert.Equal(t, Timeout, cerr.Kind)
}

func TestVisionClient_Analyze_Unreachable(t *testing.T) {
	c := NewVisionClient("http://127.0.0.1:1", time.Second)
	_, cerr := c.Analyze(context.Background(), "x", "t", 0)
	require.NotNil(t, cerr)
	assert.Equal(t, Unreachable, cerr.Kind)
}
