package phone

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monkedh/sentinel/internal/clients"
)

func TestMonitor_ProbeOnce_NoIPConfigured(t *testing.T) {
	state := NewState("")
	client := clients.NewPhoneStatusClient(time.Second)
	m := NewMonitor(state, client, time.Minute, 8765)

	m.probeOnce(context.Background())

	snap := state.Get()
	assert.False(t, snap.Connected)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, "Phone IP not configured", *snap.LastError)
}

func TestMonitor_ProbeOnce_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detail":"ok"}`))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	state := NewState(host)
	client := clients.NewPhoneStatusClient(time.Second)
	m := NewMonitor(state, client, time.Minute, 0)
	m.probeOnce(context.Background())

	snap := state.Get()
	assert.True(t, snap.Connected)
	assert.Nil(t, snap.LastError)
}

func TestMonitor_ProbeOnce_Unreachable(t *testing.T) {
	state := NewState("127.0.0.1:1")
	client := clients.NewPhoneStatusClient(100 * time.Millisecond)
	m := NewMonitor(state, client, time.Minute, 0)
	m.probeOnce(context.Background())

	snap := state.Get()
	assert.False(t, snap.Connected)
	require.NotNil(t, snap.LastError)
}

func TestMonitor_Run_StopsOnContextCancel(t *testing.T) {
	state := NewState("")
	client := clients.NewPhoneStatusClient(time.Second)
	m := NewMonitor(state, client, time.Hour, 8765)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestMonitor_ForceProbe_RateLimited(t *testing.T) {
	state := NewState("")
	client := clients.NewPhoneStatusClient(time.Second)
	m := NewMonitor(state, client, time.Hour, 8765)

	m.ForceProbe()
	assert.Len(t, m.force, 1)

	<-m.force
	m.ForceProbe()
	m.ForceProbe()
	assert.Empty(t, m.force, "a burst of ForceProbe calls should be rate-limited")
}

func TestMonitor_PollInterval_WithinJitterBounds(t *testing.T) {
	m := &Monitor{interval: 10 * time.Second}
	for i := 0; i < 50; i++ {
		d := m.pollInterval()
		assert.GreaterOrEqual(t, d, 8*time.Second)
		assert.LessOrEqual(t, d, 12*time.Second)
	}
}
