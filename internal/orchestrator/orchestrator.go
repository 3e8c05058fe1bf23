// Package orchestrator drives one video session end-to-end: extract
// sampled frames, analyze each through the vision service, score and
// publish events, trigger at most one XAI heatmap, and dispatch the agent
// once at end-of-stream. A session is spawned directly on upload and runs
// on its own detached goroutine.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/monkedh/sentinel/internal/clients"
	"github.com/monkedh/sentinel/internal/config"
	"github.com/monkedh/sentinel/internal/eventbus"
	"github.com/monkedh/sentinel/internal/frames"
	"github.com/monkedh/sentinel/internal/hazard"
	"github.com/monkedh/sentinel/internal/phone"
	"github.com/monkedh/sentinel/internal/severity"
	"github.com/monkedh/sentinel/internal/toolcall"
)

// Orchestrator owns everything one pipeline task needs to run a session:
// the shared registry and remote clients, plus process-wide phone state for
// the complete report's phone_bridge_connected/ip fields.
type Orchestrator struct {
	registry   *eventbus.Registry
	vision     *clients.VisionClient
	xai        *clients.XaiClient
	agent      *clients.AgentClient
	phoneState *phone.State
	cfg        *config.Config
	tempDir    string
	logger     *slog.Logger

	extractorsMu sync.RWMutex
	extractors   map[string]*frames.Extractor
}

// New builds an Orchestrator.
func New(registry *eventbus.Registry, vision *clients.VisionClient, xai *clients.XaiClient, agent *clients.AgentClient, phoneState *phone.State, cfg *config.Config, tempDir string) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		vision:     vision,
		xai:        xai,
		agent:      agent,
		phoneState: phoneState,
		cfg:        cfg,
		tempDir:    tempDir,
		logger:     slog.Default().With("component", "orchestrator"),
		extractors: make(map[string]*frames.Extractor),
	}
}

// Lookup returns the still-open Extractor for a running session, backing
// the GET /frame/:id/:frame_number re-extraction endpoint. It is only
// valid while the session's pipeline task is still running.
func (o *Orchestrator) Lookup(sessionID string) (*frames.Extractor, bool) {
	o.extractorsMu.RLock()
	defer o.extractorsMu.RUnlock()
	e, ok := o.extractors[sessionID]
	return e, ok
}

// StartSession writes video bytes to a temp file, registers a session,
// spawns a detached pipeline task, and returns immediately.
func (o *Orchestrator) StartSession(videoBytes []byte) (string, error) {
	id := uuid.NewString()

	path := filepath.Join(o.tempDir, id+".upload")
	if err := os.WriteFile(path, videoBytes, 0o600); err != nil {
		return "", fmt.Errorf("orchestrator: write temp file: %w", err)
	}

	// Detached from the HTTP request context: the pipeline outlives the
	// request that started it.
	taskCtx, cancel := context.WithCancel(context.Background())
	if err := o.registry.Register(id, cancel); err != nil {
		cancel()
		_ = frames.Release(path)
		return "", fmt.Errorf("orchestrator: register session: %w", err)
	}

	go o.run(taskCtx, id, path)

	return id, nil
}

// dispatchCandidate pairs a frame's metrics/severity with its originating
// Frame, so the selection in step 4 can still publish frame_number/timestamp.
type dispatchCandidate struct {
	frame    frames.Frame
	metrics  hazard.EmergencyMetrics
	severity float64
}

// accumulators holds the per-session running state the frame loop builds
// up and the final report is composed from.
type accumulators struct {
	metrics             []hazard.EmergencyMetrics
	hazards             map[hazard.Hazard]bool
	severities          []float64
	urgencyCounts       map[hazard.UrgencyLevel]int
	maxUrgency          hazard.UrgencyLevel
	dispatchCandidates  []dispatchCandidate
	best                *dispatchCandidate
	xaiResult           *clients.XaiResult
	xaiFrameNumber      uint64
	xaiStarted          bool
	xaiDisabledSent     bool
	xaiGroup            errgroup.Group
	frameCount          int
	incidentCount       int
	criticalIncidents   []IncidentPayload
	timeline            []TimelinePoint
	finalAgentResponses []toolcall.ToolInvocation
	agentText           string
	agentActions        []toolcall.ToolInvocation
	agentFrameNumber    uint64
	agentReturned       bool
}

func newAccumulators() *accumulators {
	return &accumulators{
		hazards:       make(map[hazard.Hazard]bool),
		urgencyCounts: make(map[hazard.UrgencyLevel]int),
		maxUrgency:    hazard.UrgencyLow,
	}
}

// run is the pipeline task body.
func (o *Orchestrator) run(ctx context.Context, id, path string) {
	defer frames.Release(path)

	extractor, err := frames.Open(ctx, path)
	if err != nil {
		o.publish(ctx, id, eventbus.KindError, ErrorPayload{Detail: err.Error()})
		o.publishEnd(ctx, id)
		return
	}

	o.extractorsMu.Lock()
	o.extractors[id] = extractor
	o.extractorsMu.Unlock()
	defer func() {
		o.extractorsMu.Lock()
		delete(o.extractors, id)
		o.extractorsMu.Unlock()
	}()

	info := extractor.Info()
	acc := newAccumulators()

	for frame := range extractor.Frames(ctx, o.cfg.FrameInterval) {
		o.processFrame(ctx, id, frame, acc)
	}

	if ctx.Err() != nil {
		// Cancelled via Cleanup: the terminal pair is error{cancelled} + end,
		// not a normal complete, and partial results are discarded.
		o.publish(context.Background(), id, eventbus.KindError, ErrorPayload{Detail: "cancelled"})
		o.publishEnd(context.Background(), id)
		return
	}

	// The end-of-stream agent dispatch and a still-running background XAI
	// call (see maybeRunXAI) share no state, so they join concurrently here;
	// complete() only runs once both finish, which keeps xai_heatmap ahead
	// of complete on the stream.
	var eg errgroup.Group
	eg.Go(func() error {
		o.dispatch(ctx, id, acc)
		return nil
	})
	eg.Go(acc.xaiGroup.Wait)
	_ = eg.Wait()

	o.complete(ctx, id, info, acc)
}

// processFrame runs one frame through vision analysis, scoring, event
// publication, and the XAI trigger, updating the session accumulators.
func (o *Orchestrator) processFrame(ctx context.Context, id string, frame frames.Frame, acc *accumulators) {
	acc.frameCount++

	visionCtx, cancel := context.WithTimeout(ctx, o.cfg.VisionTimeout)
	m, cerr := o.vision.Analyze(visionCtx, frame.ImageBase64, frame.Timestamp, frame.FrameNumber)
	cancel()
	if cerr != nil {
		o.logger.Warn("vision call failed, skipping frame", "session_id", id, "frame_number", frame.FrameNumber, "error", cerr)
		return
	}

	sev := severity.Severity(m)
	acc.severities = append(acc.severities, sev)
	acc.metrics = append(acc.metrics, m)
	for _, h := range m.DetectedHazards {
		acc.hazards[h] = true
	}
	if acc.best == nil || sev > acc.best.severity {
		acc.best = &dispatchCandidate{frame: frame, metrics: m, severity: sev}
	}

	label := severity.PublicUrgency(m)
	acc.urgencyCounts[label]++
	acc.maxUrgency = severity.MaxByPriority(acc.maxUrgency, label)

	dispatchRecommended := severity.DispatchRequired(m, sev)
	if dispatchRecommended {
		acc.dispatchCandidates = append(acc.dispatchCandidates, dispatchCandidate{frame: frame, metrics: m, severity: sev})
	}

	framePayload := FramePayload{
		SessionID:           id,
		FrameNumber:         frame.FrameNumber,
		Timestamp:           frame.Timestamp,
		UrgencyLevel:        label,
		SceneDescription:    m.SceneDescription,
		DetectedHazards:     m.DetectedHazards,
		PeopleCount:         m.PeopleCount,
		VisibleInjuries:     m.VisibleInjuries,
		DispatchRecommended: dispatchRecommended,
		RecommendedAction:   m.RecommendedAction,
	}
	o.publish(ctx, id, eventbus.KindFrame, framePayload)

	isIncident := severity.Priority(label) >= severity.Priority(hazard.UrgencyHigh) || sev >= 6.0
	if isIncident {
		acc.incidentCount++
		acc.criticalIncidents = append(acc.criticalIncidents, IncidentPayload{FramePayload: framePayload})
		o.publish(ctx, id, eventbus.KindIncident, IncidentPayload{FramePayload: framePayload})
	}

	o.maybeRunXAI(ctx, id, frame, m, label, sev, acc)

	acc.timeline = append(acc.timeline, TimelinePoint{
		Timestamp:        frame.Timestamp,
		FrameNumber:      frame.FrameNumber,
		UrgencyLevel:     label,
		SceneDescription: m.SceneDescription,
		DetectedHazards:  m.DetectedHazards,
	})
}

// maybeRunXAI starts at most one XAI call per session, on the first frame
// that crosses the trigger threshold. The call itself is hoisted onto
// acc.xaiGroup so it runs in the background while subsequent frames keep
// streaming through the vision/severity/publish steps; run() joins the
// group before composing the complete report, which keeps xai_heatmap
// ahead of complete without blocking the per-frame loop on a 45s call.
func (o *Orchestrator) maybeRunXAI(ctx context.Context, id string, frame frames.Frame, m hazard.EmergencyMetrics, label hazard.UrgencyLevel, sev float64, acc *accumulators) {
	if acc.xaiStarted {
		return
	}

	qualifies := severity.Priority(label) >= severity.Priority(hazard.UrgencyHigh) || sev >= 7.0 || m.VisibleInjuries
	if !qualifies {
		return
	}

	if !o.cfg.XAIEnabled {
		if !acc.xaiDisabledSent {
			acc.xaiDisabledSent = true
			o.publish(ctx, id, eventbus.KindXaiDisabled, XaiDisabledPayload{
				FrameNumber: frame.FrameNumber,
				Timestamp:   frame.Timestamp,
				Reason:      "XAI attribution disabled via environment variable",
			})
		}
		return
	}
	acc.xaiStarted = true

	acc.xaiGroup.Go(func() error {
		xaiCtx, cancel := context.WithTimeout(ctx, o.cfg.XAITimeout)
		defer cancel()

		result, cerr := o.xai.Heatmap(xaiCtx, frame.ImageBase64, frame.FrameNumber, frame.Timestamp, m.SceneDescription, m.DetectedHazards, o.cfg.XAIRequestGrid)
		if cerr != nil {
			o.publish(ctx, id, eventbus.KindXaiError, XaiErrorPayload{
				FrameNumber: frame.FrameNumber,
				Timestamp:   frame.Timestamp,
				Detail:      cerr.Error(),
			})
			return nil
		}

		acc.xaiResult = &result
		acc.xaiFrameNumber = frame.FrameNumber
		o.publish(ctx, id, eventbus.KindXaiHeatmap, XaiHeatmapPayload{
			SessionID:          id,
			FrameNumber:        frame.FrameNumber,
			Timestamp:          frame.Timestamp,
			GridSize:           result.GridSize,
			HeatmapImageBase64: result.HeatmapImageBase64,
			Cells:              result.Cells,
			Explanation:        result.Explanation,
			MaxScore:           result.MaxScore,
		})
		return nil
	})
}

// selectDispatch picks the frame the agent is dispatched for: the highest
// severity dispatch-required frame, falling back to the session's best
// frame when it scored at least 5.0.
func selectDispatch(acc *accumulators) *dispatchCandidate {
	if len(acc.dispatchCandidates) > 0 {
		best := acc.dispatchCandidates[0]
		for _, c := range acc.dispatchCandidates[1:] {
			if c.severity > best.severity {
				best = c
			}
		}
		return &best
	}
	if acc.best != nil && acc.best.severity >= 5.0 {
		return acc.best
	}
	return nil
}

// dispatch performs the end-of-stream dispatch selection and agent
// invocation.
func (o *Orchestrator) dispatch(ctx context.Context, id string, acc *accumulators) {
	selection := selectDispatch(acc)
	if selection == nil {
		return
	}

	req := clients.AgentRequest{
		UrgencyScore:     selection.metrics.UrgencyScore,
		UrgencyLevel:     string(selection.metrics.UrgencyLevel), // raw, may be "critical"; only the agent sees the unmapped value
		SceneDescription: selection.metrics.SceneDescription,
		DetectedHazards:  selection.metrics.DetectedHazards,
		PeopleCount:      selection.metrics.PeopleCount,
		VisibleInjuries:  selection.metrics.VisibleInjuries,
		Timestamp:        selection.metrics.Timestamp,
		FrameNumber:      selection.metrics.FrameNumber,
		SeverityIndex:    selection.severity,
		RedirectContext: &clients.RedirectContext{
			Hazard:    dominantHazardName(selection.metrics.DetectedHazards),
			Situation: selection.metrics.SceneDescription,
		},
	}

	agentCtx, cancel := context.WithTimeout(ctx, o.cfg.AgentTimeout)
	result, cerr := o.agent.Analyze(agentCtx, req)
	cancel()
	if cerr != nil {
		o.logger.Warn("agent call failed", "session_id", id, "error", cerr)
		return
	}

	invocations := result.EmergencyCalls
	if len(invocations) == 0 && len(result.ActionsTaken) == 0 {
		invocations = []toolcall.ToolInvocation{toolcall.Fallback(selection.metrics)}
	}

	o.publish(ctx, id, eventbus.KindAgentCall, AgentCallPayload{
		SessionID:          id,
		FrameNumber:        selection.frame.FrameNumber,
		AgentResponse:      result.AgentResponse,
		EmergencyResponses: invocations,
		ActionsTaken:       result.ActionsTaken,
		ToolCalls:          len(invocations),
	})

	for _, inv := range invocations {
		o.publish(ctx, id, eventbus.KindToolCall, ToolCallPayload{
			ToolInvocation: inv,
			SessionID:      id,
			FrameNumber:    selection.frame.FrameNumber,
		})
	}

	acc.finalAgentResponses = invocations
	acc.agentText = result.AgentResponse
	acc.agentActions = result.ActionsTaken
	acc.agentFrameNumber = selection.frame.FrameNumber
	acc.agentReturned = true
}

func dominantHazardName(hazards []hazard.Hazard) string {
	if len(hazards) == 0 {
		return ""
	}
	return string(hazards[0])
}

// complete composes and publishes the final report, then ends the session.
func (o *Orchestrator) complete(ctx context.Context, id string, info frames.VideoInfo, acc *accumulators) {
	dominant := severity.DominantLabel(acc.urgencyCounts)

	var maxSev, sumSev float64
	for _, s := range acc.severities {
		sumSev += s
		if s > maxSev {
			maxSev = s
		}
	}
	avgSev := 0.0
	if len(acc.severities) > 0 {
		avgSev = sumSev / float64(len(acc.severities))
	}

	uniqueHazards := make([]hazard.Hazard, 0, len(acc.hazards))
	for h := range acc.hazards {
		uniqueHazards = append(uniqueHazards, h)
	}

	// Attach the heatmap to the incident that triggered it, so the report's
	// critical_incidents carry their xai_analysis like the incident event
	// stream would have after the fact.
	if acc.xaiResult != nil {
		for i := range acc.criticalIncidents {
			if acc.criticalIncidents[i].FrameNumber == acc.xaiFrameNumber {
				acc.criticalIncidents[i].XaiAnalysis = acc.xaiResult
				break
			}
		}
	}
	if acc.agentReturned {
		for i := range acc.criticalIncidents {
			if acc.criticalIncidents[i].FrameNumber == acc.agentFrameNumber {
				acc.criticalIncidents[i].AgentResponse = acc.agentText
				acc.criticalIncidents[i].ActionsTaken = acc.agentActions
				break
			}
		}
	}

	phoneSnap := o.phoneState.Get()

	summary := AnalysisSummary{
		TotalFramesAnalyzed:       acc.frameCount,
		ThreatLevel:               dominant,
		DominantUrgencyLevel:      dominant,
		HighUrgencyFrames:         acc.urgencyCounts[hazard.UrgencyHigh],
		MediumUrgencyFrames:       acc.urgencyCounts[hazard.UrgencyMedium],
		NormalUrgencyFrames:       acc.urgencyCounts[hazard.UrgencyNormal],
		LowUrgencyFrames:          acc.urgencyCounts[hazard.UrgencyLow],
		MaxSeverityIndex:          maxSev,
		AverageSeverityIndex:      avgSev,
		UniqueHazardsDetected:     uniqueHazards,
		TotalIncidents:            acc.incidentCount,
		RequiresImmediateResponse: len(acc.dispatchCandidates) > 0,
		PhoneBridgeConnected:      phoneSnap.Connected,
		PhoneBridgeIP:             phoneSnap.IP,
	}

	o.publish(ctx, id, eventbus.KindComplete, CompletePayload{
		SessionID:          id,
		VideoInfo:          info,
		AnalysisSummary:    summary,
		EmergencyResponses: acc.finalAgentResponses,
		CriticalIncidents:  acc.criticalIncidents,
		UrgencyTimeline:    acc.timeline,
		XaiAnalysis:        acc.xaiResult,
		XaiEnabled:         o.cfg.XAIEnabled,
	})
	o.publishEnd(ctx, id)
}

func (o *Orchestrator) publish(ctx context.Context, id string, kind eventbus.Kind, data any) {
	o.registry.Publish(ctx, id, eventbus.Event{Kind: kind, Data: data})
}

func (o *Orchestrator) publishEnd(ctx context.Context, id string) {
	o.publish(ctx, id, eventbus.KindEnd, EndPayload{SessionID: id})
}
