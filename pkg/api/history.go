package api

import "time"

// RunEventType identifies a run history event.
type RunEventType string

const (
	RunEventStarted   RunEventType = "run.started"
	RunEventResumed   RunEventType = "run.resumed"
	RunEventCompleted RunEventType = "run.completed"
	RunEventFailed    RunEventType = "run.failed"

	RunEventStepStarted   RunEventType = "step.started"
	RunEventStepCompleted RunEventType = "step.completed"
	RunEventStepFailed    RunEventType = "step.failed"
)

// RunEvent is a minimal append-only history record for audit and
// debugging. It is intentionally small and stable; richer history can
// be layered later.
type RunEvent struct {
	RunID string
	At    time.Time
	Type  RunEventType

	// Optional context.
	Function string
	Step     string

	// Small, human-oriented details (e.g. an error string).
	// Keep this low-volume: do NOT dump large payloads here.
	Detail string
}
