package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/osmmap/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	subject string
	durable string
	subs    []*nats.Subscription
}

// NewSubscriber creates a subscriber on <subject>.>. With a durable name the
// consumer survives restarts and acks each event; without one it is an
// ordered, ephemeral consumer starting at the newest event.
func NewSubscriber(url, subject, durable string) (*Subscriber, error) {
	conn, err := Connect(url, "osmmap-subscriber")
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js, subject: subject, durable: durable}, nil
}

func (s *Subscriber) SubscribeMapEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.Event) error) error {
	var (
		sub *nats.Subscription
		err error
	)
	if s.durable == "" {
		sub, err = s.js.Subscribe(s.subject+".>", func(msg *nats.Msg) {
			var ev domain.Event
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				return
			}
			_ = handler(ctx, &ev)
		},
			nats.OrderedConsumer(),
			nats.DeliverNew(),
		)
	} else {
		sub, err = s.js.Subscribe(s.subject+".>", func(msg *nats.Msg) {
			var ev domain.Event
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				_ = msg.Term()
				return
			}
			if err := handler(ctx, &ev); err != nil {
				_ = msg.Nak()
				return
			}
			_ = msg.Ack()
		},
			nats.Durable(s.durable),
			nats.ManualAck(),
			nats.MaxDeliver(3),
		)
	}
	if err != nil {
		return fmt.Errorf("subscribe %s.>: %w", s.subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
