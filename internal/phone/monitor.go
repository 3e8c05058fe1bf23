package phone

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/monkedh/sentinel/internal/clients"
)

// Monitor is the single background task probing the phone bridge's /health
// on a jittered interval.
type Monitor struct {
	state    *State
	client   *clients.PhoneStatusClient
	interval time.Duration
	port     int
	limiter  *rate.Limiter

	force  chan struct{}
	logger *slog.Logger
}

// NewMonitor builds a Monitor. The limiter bounds how often a forced probe
// (via update_ip) can preempt the regular schedule.
func NewMonitor(state *State, client *clients.PhoneStatusClient, interval time.Duration, port int) *Monitor {
	return &Monitor{
		state:    state,
		client:   client,
		interval: interval,
		port:     port,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		force:    make(chan struct{}, 1),
		logger:   slog.Default().With("component", "phone_monitor"),
	}
}

// Run blocks, probing on a jittered interval until ctx is cancelled at
// process shutdown.
func (m *Monitor) Run(ctx context.Context) {
	m.probeOnce(ctx)

	timer := time.NewTimer(m.pollInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.force:
			m.probeOnce(ctx)
			timer.Reset(m.pollInterval())
		case <-timer.C:
			m.probeOnce(ctx)
			timer.Reset(m.pollInterval())
		}
	}
}

// ForceProbe requests an immediate probe, used by POST /phone/update_ip.
// Non-blocking: a probe already queued is left in place. The limiter caps
// how often a client can force a probe ahead of schedule.
func (m *Monitor) ForceProbe() {
	if !m.limiter.Allow() {
		return
	}
	select {
	case m.force <- struct{}{}:
	default:
	}
}

func (m *Monitor) probeOnce(ctx context.Context) {
	ip := m.state.IP()
	if ip == "" {
		m.state.recordProbe(false, "Phone IP not configured")
		return
	}

	baseURL := CanonicalBaseURL(ip, m.port)
	result, cerr := m.client.Probe(ctx, baseURL)
	if cerr != nil {
		m.logger.Warn("phone probe failed", "base_url", baseURL, "error", cerr)
		m.state.recordProbe(false, cerr.Error())
		return
	}
	m.state.recordProbe(result.Connected, "")
}

// pollInterval applies +/-20% jitter around the configured interval so
// probes from many processes don't align.
func (m *Monitor) pollInterval() time.Duration {
	jitter := m.interval / 5
	if jitter <= 0 {
		return m.interval
	}
	offset := time.Duration(rand.Int63n(int64(2 * jitter)))
	return m.interval - jitter + offset
}
