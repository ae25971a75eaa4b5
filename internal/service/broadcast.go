package service

// Event types published while a simulation runs.
const (
	EventSimulationStarted   = "simulation_started"
	EventSimulationProgress  = "simulation_progress"
	EventSimulationCompleted = "simulation_completed"
	EventSimulationCancelled = "simulation_cancelled"
	EventSimulationFailed    = "simulation_failed"
	EventSpreadChanged       = "spread_changed"

	// EventSimulationSnapshot carries the full driver state to one client,
	// on connect or on request.
	EventSimulationSnapshot = "simulation_snapshot"
)

// Broadcaster sends real-time events to connected clients.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastEvent(runID string, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastEvent(string, string, any) {}
