package http

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/osmmap/internal/core/domain"
)

// wsMessage is what a viewer may send: currently only viewport reports.
// {"type":"viewport","view":{"center":[48.85,2.35],"zoom":13}}
type wsMessage struct {
	Type string          `json:"type"`
	View *domain.MapView `json:"view"`
}

// WebSocketHandler serves the same event stream as /api/sse over a
// WebSocket. A single goroutine writes; a reader goroutine handles
// viewport reports and notices when the browser goes away.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		sub := deps.Map.Connect(domain.ViewerInfo{
			Transport:   "websocket",
			RemoteAddr:  c.RemoteAddr().String(),
			ConnectedAt: time.Now(),
		})
		id := sub.Info().ID
		log := deps.logger().With("viewer", id)

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				_, data, err := c.ReadMessage()
				if err != nil {
					return
				}
				var m wsMessage
				if err := json.Unmarshal(data, &m); err != nil || m.Type != "viewport" || m.View == nil {
					log.Debug("ignoring viewer message", "bytes", len(data))
					continue
				}
				if err := deps.Map.ReportViewport(*m.View); err != nil {
					log.Debug("rejected viewport report", "error", err)
				}
			}
		}()

		ticker := time.NewTicker(deps.pingInterval())
		defer ticker.Stop()

		var cause error
	loop:
		for {
			select {
			case ev := <-sub.Events():
				if err := c.WriteJSON(ev); err != nil {
					cause = err
					break loop
				}
			case <-ticker.C:
				if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					cause = err
					break loop
				}
			case <-closed:
				break loop
			case <-sub.Done():
				break loop
			}
		}
		deps.Map.Disconnect(id, cause)
	}
}
