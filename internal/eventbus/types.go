// Package eventbus holds the per-session event registry: each running video
// analysis gets a bounded in-memory mailbox, filled by its pipeline task and
// drained by a single SSE subscriber. Nothing is persisted; once a session
// ends, its queue is gone.
package eventbus

import "errors"

// Kind tags a session event.
type Kind string

const (
	KindFrame       Kind = "frame"
	KindIncident    Kind = "incident"
	KindXaiHeatmap  Kind = "xai_heatmap"
	KindXaiError    Kind = "xai_error"
	KindXaiDisabled Kind = "xai_disabled"
	KindAgentCall   Kind = "agent_call"
	KindToolCall    Kind = "tool_call"
	KindComplete    Kind = "complete"
	KindError       Kind = "error"
	KindEnd         Kind = "end"
)

// Event is one session event. Data is the JSON-serializable payload for
// Kind, as written onto the SSE stream.
type Event struct {
	Kind Kind
	Data any
}

// queueCapacity bounds each session's mailbox; a publish beyond it blocks
// until the subscriber catches up.
const queueCapacity = 64

var (
	ErrSessionExists     = errors.New("eventbus: session already registered")
	ErrSessionNotFound   = errors.New("eventbus: session not found")
	ErrAlreadySubscribed = errors.New("eventbus: session already subscribed")
)
