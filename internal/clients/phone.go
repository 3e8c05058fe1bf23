package clients

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// PhoneStatusClient probes the phone bridge's /health endpoint.
type PhoneStatusClient struct {
	base
}

// NewPhoneStatusClient builds a PhoneStatusClient. Probe takes an explicit
// base URL per call since the target changes whenever the configured phone
// IP is updated.
func NewPhoneStatusClient(timeout time.Duration) *PhoneStatusClient {
	return &PhoneStatusClient{base: newBase("", timeout, rate.NewLimiter(rate.Limit(5), 5))}
}

// ProbeResult is the phone bridge's /health payload.
type ProbeResult struct {
	Connected bool   `json:"connected"`
	Detail    string `json:"detail,omitempty"`
}

// Probe GETs <baseURL>/health. A non-2xx or transport failure is a
// *ClientError; the Phone Health Monitor folds it into PhoneState.last_error.
func (c *PhoneStatusClient) Probe(ctx context.Context, baseURL string) (ProbeResult, *ClientError) {
	b := newBase(strings.TrimSuffix(baseURL, "/"), c.httpClient.Timeout, c.limiter)
	var resp ProbeResult
	if cerr := b.getJSON(ctx, "/health", &resp); cerr != nil {
		return ProbeResult{}, cerr
	}
	resp.Connected = true
	return resp, nil
}
