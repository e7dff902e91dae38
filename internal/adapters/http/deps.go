package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/samirrijal/osmmap/internal/core/usecases"
)

// Pinger is anything whose reachability can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnChecker reports whether a broker connection is up.
type ConnChecker interface {
	IsConnected() bool
}

// Dependencies holds all services needed by HTTP handlers. DB, NATS and
// Cache are optional; leave them nil when the backend is not configured.
type Dependencies struct {
	Map     *usecases.MapService
	Queries *usecases.QueryService

	DB    Pinger
	NATS  ConnChecker
	Cache Pinger

	PingInterval time.Duration
	Version      string
	Logger       *slog.Logger
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Dependencies) pingInterval() time.Duration {
	if d.PingInterval > 0 {
		return d.PingInterval
	}
	return 30 * time.Second
}
