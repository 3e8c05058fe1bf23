package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	for _, k := range []string{
		"VISION_SERVICE_URL", "AGENT_SERVICE_URL", "XAI_SERVICE_URL",
		"XAI_ENABLED", "XAI_REQUEST_GRID", "PHONE_IP", "PHONE_BRIDGE_PORT",
		"PHONE_HEALTH_INTERVAL", "VISION_TIMEOUT_SECONDS", "AGENT_TIMEOUT_SECONDS",
		"XAI_TIMEOUT_SECONDS", "PHONE_TIMEOUT_SECONDS", "FRAME_SAMPLE_INTERVAL_SECONDS",
	} {
		os.Unsetenv(k)
	}

	cfg := Load()
	assert.Equal(t, Defaults.VisionServiceURL, cfg.VisionServiceURL)
	assert.Equal(t, Defaults.AgentServiceURL, cfg.AgentServiceURL)
	assert.Equal(t, Defaults.XAIServiceURL, cfg.XAIServiceURL)
	assert.True(t, cfg.XAIEnabled)
	assert.Equal(t, Defaults.XAIRequestGrid, cfg.XAIRequestGrid)
	assert.Equal(t, "", cfg.PhoneIP)
	assert.Equal(t, Defaults.PhoneBridgePort, cfg.PhoneBridgePort)
	assert.Equal(t, Defaults.PhoneHealthInterval, cfg.PhoneHealthInterval)
	assert.Equal(t, Defaults.FrameInterval, cfg.FrameInterval)
}

func TestLoad_PhoneIPExpandsEnvTemplate(t *testing.T) {
	os.Setenv("PHONE_HOST", "192.168.1.50")
	os.Setenv("PHONE_IP", "${PHONE_HOST}")
	defer os.Unsetenv("PHONE_HOST")
	defer os.Unsetenv("PHONE_IP")

	cfg := Load()
	assert.Equal(t, "192.168.1.50", cfg.PhoneIP)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	os.Setenv("XAI_ENABLED", "false")
	os.Setenv("XAI_REQUEST_GRID", "4")
	os.Setenv("PHONE_HEALTH_INTERVAL", "10")
	os.Setenv("FRAME_SAMPLE_INTERVAL_SECONDS", "2.5")
	defer os.Unsetenv("XAI_ENABLED")
	defer os.Unsetenv("XAI_REQUEST_GRID")
	defer os.Unsetenv("PHONE_HEALTH_INTERVAL")
	defer os.Unsetenv("FRAME_SAMPLE_INTERVAL_SECONDS")

	cfg := Load()
	assert.False(t, cfg.XAIEnabled)
	assert.Equal(t, 4, cfg.XAIRequestGrid)
	assert.Equal(t, 10*time.Second, cfg.PhoneHealthInterval)
	assert.InDelta(t, 2.5, cfg.FrameInterval, 0.0001)
}

func TestExpandEnv(t *testing.T) {
	os.Setenv("SENTINEL_TEST_VAR", "value")
	defer os.Unsetenv("SENTINEL_TEST_VAR")
	assert.Equal(t, "value", ExpandEnv("${SENTINEL_TEST_VAR}"))
	assert.Equal(t, "literal", ExpandEnv("literal"))
}
