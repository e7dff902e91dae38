package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/osmmap/internal/core/domain"
)

// StreamName holds mirrored map events.
const StreamName = "OSMMAP_EVENTS"

// Publisher implements ports.EventPublisher. Events go out as core NATS
// publishes into a JetStream stream, so publishing never waits for an ack.
type Publisher struct {
	conn     *nats.Conn
	subject  string
	instance string
}

// Connect opens a NATS connection that keeps reconnecting in the background.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// NewPublisher connects to NATS and makes sure the event stream exists.
// Events are published on <subject>.<kind>.
func NewPublisher(url, subject string) (*Publisher, error) {
	conn, err := Connect(url, "osmmap-publisher")
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{subject + ".>"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     24 * time.Hour,
		Storage:    nats.FileStorage,
		Duplicates: 2 * time.Minute,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, subject: subject, instance: uuid.NewString()}, nil
}

// PublishMapEvent publishes one delta. The message id lets the stream drop
// duplicates after a reconnect.
func (p *Publisher) PublishMapEvent(ctx context.Context, ev *domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(p.subject + "." + string(ev.Kind))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, p.instance+"-"+strconv.FormatUint(ev.Seq, 10))
	return p.conn.PublishMsg(msg)
}

// IsConnected reports the connection state for readiness checks.
func (p *Publisher) IsConnected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
