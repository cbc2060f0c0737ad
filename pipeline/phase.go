package pipeline

// Phase is the stage a search attempt reached. A run moves forward only:
// Idle → Awaiting → (Recovering) → Captured | Failed.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseAwaiting   Phase = "awaiting"
	PhaseRecovering Phase = "recovering"
	PhaseCaptured   Phase = "captured"
	PhaseFailed     Phase = "failed"
)
