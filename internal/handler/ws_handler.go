package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gorilla/websocket"

	"github.com/freeeve/civ-balance/api/internal/auth"
	"github.com/freeeve/civ-balance/api/internal/model"
	"github.com/freeeve/civ-balance/api/internal/service"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 4096
	sendBufSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS handled by middleware; tighten in production
	},
}

// SnapshotSource reports the live simulation state.
type SnapshotSource interface {
	Snapshot() model.Snapshot
}

// WSHandler streams simulation events over WebSocket.
type WSHandler struct {
	hub       *Hub
	jwtMgr    *auth.JWTManager
	snapshots SnapshotSource
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(hub *Hub, jwtMgr *auth.JWTManager, snapshots SnapshotSource) *WSHandler {
	return &WSHandler{hub: hub, jwtMgr: jwtMgr, snapshots: snapshots}
}

// ServeWS handles GET /api/v1/ws and upgrades to WebSocket.
// Auth via ?token= (browsers can't set headers on the upgrade) or a Bearer header.
// The first message is the current simulation snapshot, so a client that
// connects mid-run can render progress before the next batch. Clients start on
// the AllRuns topic and may narrow to one run with
// {"action":"subscribe","run_id":...} then {"action":"unsubscribe","run_id":"*"};
// {"action":"snapshot"} requests a fresh snapshot.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	operator, err := auth.Authenticate(h.jwtMgr, r)
	if err != nil {
		auth.Unauthorized(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		conn:     conn,
		operator: operator,
		send:     make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)
	h.sendSnapshot(client)

	go h.writePump(client)
	go h.readPump(client)

	log.Info().Str("operator", operator).Int("total", h.hub.ConnectionCount()).Msg("WebSocket client connected")
}

// sendSnapshot queues the current simulation state for one client, dropping
// it if the client's buffer is full.
func (h *WSHandler) sendSnapshot(c *WSConn) {
	snap := h.snapshots.Snapshot()
	data, err := json.Marshal(WSEvent{Type: service.EventSimulationSnapshot, RunID: snap.RunID, Data: snap})
	if err != nil {
		log.Error().Err(err).Msg("Error encoding snapshot")
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().Str("operator", c.operator).Msg("WebSocket send buffer full, snapshot dropped")
	}
}

// readPump reads messages from the WebSocket connection.
func (h *WSHandler) readPump(c *WSConn) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		log.Info().Str("operator", c.operator).Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("operator", c.operator).Msg("WebSocket unexpected close")
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Action {
		case "subscribe":
			if msg.RunID != "" {
				h.hub.Subscribe(c, msg.RunID)
			}
		case "unsubscribe":
			if msg.RunID != "" {
				h.hub.Unsubscribe(c, msg.RunID)
			}
		case "snapshot":
			h.sendSnapshot(c)
		}
	}
}

// writePump writes messages to the WebSocket connection.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
