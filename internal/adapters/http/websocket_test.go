package http_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/samirrijal/osmmap/internal/core/domain"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocket_SnapshotReportsAndDisconnect(t *testing.T) {
	deps, hub := makeDeps()
	ctx := context.Background()
	deps.Map.SetTitle(ctx, "Paris", domain.TitleStyle{})

	app := setupApp(deps)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = app.Listener(ln) }()
	defer func() {
		hub.Close()
		_ = app.ShutdownWithTimeout(2 * time.Second)
	}()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	events := make(chan domain.Event, 4)
	go func() {
		for {
			var ev domain.Event
			if err := conn.ReadJSON(&ev); err != nil {
				close(events)
				return
			}
			events <- ev
		}
	}()
	next := func() domain.Event {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("connection closed")
			}
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for an event")
			return domain.Event{}
		}
	}

	snap := next()
	if snap.Type != domain.EventSnapshot || snap.Seq != 1 {
		t.Fatalf("expected snapshot at seq 1, got %+v", snap)
	}
	if title := snap.Data.(map[string]any)["title"].(map[string]any)["text"]; title != "Paris" {
		t.Errorf("snapshot title %v", title)
	}
	if n := len(deps.Map.Viewers()); n != 1 {
		t.Fatalf("expected 1 viewer, got %d", n)
	}

	// Out-of-range and unknown messages are dropped without closing.
	for _, msg := range []string{
		`{"type":"viewport","view":{"center":[200,0],"zoom":5}}`,
		`{"type":"chat","text":"hi"}`,
		`not json`,
		`{"type":"viewport","view":{"center":[48.8584,2.2945],"zoom":15}}`,
	} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	waitFor(t, "viewport report", func() bool {
		v := deps.Map.GetView()
		return v.Zoom == 15 && v.Center == domain.GeoPoint{Lat: 48.8584, Lon: 2.2945}
	})

	if _, err := deps.Map.AddMarker(ctx, domain.MarkerInput{Position: domain.GeoPoint{Lat: 48.8584, Lon: 2.2945}, Label: "Eiffel Tower"}); err != nil {
		t.Fatal(err)
	}
	delta := next()
	if delta.Type != domain.EventDelta || delta.Kind != domain.KindMarker || delta.Seq != 2 {
		t.Fatalf("expected marker delta at seq 2, got %+v", delta)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitFor(t, "viewer removal", func() bool { return len(deps.Map.Viewers()) == 0 })
}
