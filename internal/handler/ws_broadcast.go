package handler

// BroadcastEvent implements service.Broadcaster using the WebSocket hub.
func (h *Hub) BroadcastEvent(runID string, eventType string, data any) {
	h.BroadcastToRun(runID, WSEvent{
		Type:  eventType,
		RunID: runID,
		Data:  data,
	})
}
