package http

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/samirrijal/osmmap/internal/core/domain"
	"github.com/samirrijal/osmmap/internal/core/ports"
)

// SSEHandler opens a Server-Sent Events push channel. The first event is
// the snapshot; every later event is a delta, with the sequence number as
// the SSE id.
func SSEHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		sub := deps.Map.Connect(domain.ViewerInfo{
			Transport:   "sse",
			RemoteAddr:  c.IP(),
			ConnectedAt: time.Now(),
		})
		id := sub.Info().ID
		interval := deps.pingInterval()

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			err := streamEvents(w, sub, interval)
			deps.Map.Disconnect(id, err)
		}))
		return nil
	}
}

// streamEvents drains sub into w until the viewer is dropped or a write
// fails. The write error is returned.
func streamEvents(w *bufio.Writer, sub ports.Subscription, ping time.Duration) error {
	ticker := time.NewTicker(ping)
	defer ticker.Stop()

	for {
		select {
		case ev := <-sub.Events():
			if err := writeSSE(w, ev); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		case <-sub.Done():
			return nil
		}
	}
}

func writeSSE(w *bufio.Writer, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event %d: %w", ev.Seq, err)
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Type, data); err != nil {
		return err
	}
	return w.Flush()
}
