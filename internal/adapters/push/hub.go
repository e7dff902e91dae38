// Package push fans map events out to connected viewers.
package push

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samirrijal/osmmap/internal/core/domain"
	"github.com/samirrijal/osmmap/internal/core/ports"
	"github.com/samirrijal/osmmap/internal/pkg/metrics"
)

// DefaultQueueSize is the per-viewer outbound buffer when none is configured.
const DefaultQueueSize = 256

// ErrQueueFull means a viewer fell a whole queue behind.
var ErrQueueFull = errors.New("outbound queue full")

// Subscriber is one registered viewer.
type Subscriber struct {
	info   domain.ViewerInfo
	events chan domain.Event
	done   chan struct{}
	once   sync.Once
}

func (s *Subscriber) Info() domain.ViewerInfo     { return s.info }
func (s *Subscriber) Events() <-chan domain.Event { return s.events }
func (s *Subscriber) Done() <-chan struct{}       { return s.done }

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// Hub is the observer registry. Broadcast never waits on a viewer: each has
// its own bounded queue, and a viewer whose queue is full is dropped.
type Hub struct {
	mu        sync.Mutex
	subs      map[uint64]*Subscriber
	order     []uint64 // ascending; ids are never reused
	nextID    atomic.Uint64
	queueSize int
	log       *slog.Logger
}

var _ ports.Broadcaster = (*Hub)(nil)

// NewHub creates a Hub. queueSize <= 0 uses DefaultQueueSize.
func NewHub(queueSize int, log *slog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		subs:      make(map[uint64]*Subscriber),
		queueSize: queueSize,
		log:       log.With("component", "push"),
	}
}

// Register adds a viewer and queues first as its opening event.
func (h *Hub) Register(info domain.ViewerInfo, first domain.Event) ports.Subscription {
	info.ID = h.nextID.Add(1)
	if info.ConnectedAt.IsZero() {
		info.ConnectedAt = time.Now()
	}
	first.Viewer = info.ID

	sub := &Subscriber{
		info:   info,
		events: make(chan domain.Event, h.queueSize),
		done:   make(chan struct{}),
	}
	sub.events <- first

	h.mu.Lock()
	h.subs[info.ID] = sub
	h.order = append(h.order, info.ID)
	h.mu.Unlock()

	metrics.ActiveViewers.Inc()
	metrics.PushEvents.WithLabelValues(string(first.Type), string(first.Kind)).Inc()
	h.log.Info("viewer connected", "viewer", info.ID, "transport", info.Transport, "remote", info.RemoteAddr)
	return sub
}

// Unregister drops a viewer. A non-nil cause is logged as a TransportError.
func (h *Hub) Unregister(id uint64, cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id, cause)
}

// Broadcast enqueues ev for every viewer in registration order.
func (h *Hub) Broadcast(ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var full []uint64
	for _, id := range h.order {
		sub := h.subs[id]
		select {
		case sub.events <- ev:
			metrics.PushEvents.WithLabelValues(string(ev.Type), string(ev.Kind)).Inc()
		default:
			full = append(full, id)
		}
	}
	for _, id := range full {
		h.removeLocked(id, ErrQueueFull)
	}
}

// Viewers lists connected viewers in registration order.
func (h *Hub) Viewers() []domain.ViewerInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]domain.ViewerInfo, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.subs[id].info)
	}
	return out
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.order)
}

// Close drops every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for len(h.order) > 0 {
		h.removeLocked(h.order[0], nil)
	}
}

func (h *Hub) removeLocked(id uint64, cause error) {
	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	sub.close()
	metrics.ActiveViewers.Dec()

	if cause == nil {
		h.log.Info("viewer disconnected", "viewer", id)
		return
	}
	reason := "write_failed"
	if errors.Is(cause, ErrQueueFull) {
		reason = "queue_full"
	}
	metrics.ViewersPruned.WithLabelValues(reason).Inc()
	terr := &domain.TransportError{Viewer: id, Err: cause}
	h.log.Warn("viewer dropped", "viewer", id, "reason", reason, "error", terr)
}
