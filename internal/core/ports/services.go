package ports

import (
	"context"
	"errors"

	"github.com/samirrijal/osmmap/internal/core/domain"
)

// Subscription is one viewer's end of the push channel. Done is closed
// once the viewer has been dropped; Events is never closed.
type Subscription interface {
	Info() domain.ViewerInfo
	Events() <-chan domain.Event
	Done() <-chan struct{}
}

// Broadcaster fans map events out to connected viewers. Broadcast must not
// block on any single viewer.
type Broadcaster interface {
	Register(info domain.ViewerInfo, first domain.Event) Subscription
	Unregister(id uint64, cause error)
	Broadcast(ev domain.Event)
	Viewers() []domain.ViewerInfo
}

// EventPublisher mirrors map events to a message broker.
type EventPublisher interface {
	PublishMapEvent(ctx context.Context, ev *domain.Event) error
}

// EventSubscriber consumes mirrored map events.
type EventSubscriber interface {
	SubscribeMapEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.Event) error) error
}

// ErrCacheMiss is returned by CacheService.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// CacheService is a key/value store with expiry.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
