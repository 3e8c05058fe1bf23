package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState_NoIPRecordsError(t *testing.T) {
	s := NewState("")
	snap := s.Get()
	assert.False(t, snap.Connected)
	assert.Nil(t, snap.IP)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, "Phone IP not configured", *snap.LastError)
}

func TestNewState_WithIPNormalizes(t *testing.T) {
	s := NewState("https://192.168.1.5/")
	snap := s.Get()
	require.NotNil(t, snap.IP)
	assert.Equal(t, "192.168.1.5", *snap.IP)
}

func TestSetIP_Normalizes(t *testing.T) {
	s := NewState("")
	s.SetIP("http://10.0.0.9:9000/")
	assert.Equal(t, "10.0.0.9:9000", s.IP())
}

func TestRecordProbe_UpdatesSnapshot(t *testing.T) {
	s := NewState("10.0.0.1")
	s.recordProbe(true, "")
	snap := s.Get()
	assert.True(t, snap.Connected)
	assert.Nil(t, snap.LastError)
	require.NotNil(t, snap.LastChecked)

	s.recordProbe(false, "connection refused")
	snap = s.Get()
	assert.False(t, snap.Connected)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, "connection refused", *snap.LastError)
}

func TestNormalizeIP(t *testing.T) {
	tests := []struct{ in, want string }{
		{"192.168.1.1", "192.168.1.1"},
		{"http://192.168.1.1", "192.168.1.1"},
		{"https://192.168.1.1/", "192.168.1.1"},
		{"  192.168.1.1  ", "192.168.1.1"},
		{"192.168.1.1:8080/", "192.168.1.1:8080"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeIP(tt.in))
	}
}

func TestCanonicalBaseURL(t *testing.T) {
	assert.Equal(t, "http://192.168.1.1:8765", CanonicalBaseURL("192.168.1.1", 8765))
	assert.Equal(t, "http://192.168.1.1:9000", CanonicalBaseURL("192.168.1.1:9000", 8765))
}
