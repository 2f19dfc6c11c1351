package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

const (
	// EventSubmitted is the CloudEvent type of a published quote.
	EventSubmitted = "autoquote.quote.submitted"
	// DefaultSubject is the NATS subject quotes are published on.
	DefaultSubject = "autoquote.quotes"
	// DefaultSource is the CloudEvent source attribute.
	DefaultSource = "autoquote"
)

// Publisher receives every flattened quote handed to the backend form.
type Publisher interface {
	Publish(ctx context.Context, flat map[string]string) error
}

// NATSPublisher publishes flattened quotes as CloudEvents on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	source  string
}

func NewNATSPublisher(conn *nats.Conn, subject, source string) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if source == "" {
		source = DefaultSource
	}
	return &NATSPublisher{conn: conn, subject: subject, source: source}
}

func (p *NATSPublisher) Subject() string { return p.subject }

func (p *NATSPublisher) Publish(ctx context.Context, flat map[string]string) error {
	if p == nil || p.conn == nil {
		return errors.New("submit: nats connection not configured")
	}
	event, err := NewEvent(p.source, flat)
	if err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("submit: encode event: %w", err)
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set("Content-Type", "application/cloudevents+json")
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("submit: publish %s: %w", p.subject, err)
	}
	return nil
}

// NewEvent wraps a flattened quote in a CloudEvent.
func NewEvent(source string, flat map[string]string) (cloudevents.Event, error) {
	event := cloudevents.NewEvent()
	event.SetID(eventID())
	event.SetSource(source)
	event.SetType(EventSubmitted)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)
	if err := event.SetData(cloudevents.ApplicationJSON, flat); err != nil {
		return event, fmt.Errorf("submit: event data: %w", err)
	}
	if err := event.Validate(); err != nil {
		return event, fmt.Errorf("submit: invalid event: %w", err)
	}
	return event, nil
}

func eventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// natsHeaderCarrier adapts nats.Msg headers to a TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// LogPublisher writes quotes to a logger. It is the fallback when no NATS
// connection is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(_ context.Context, flat map[string]string) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("submit: quote ready", "fields", len(flat))
	return nil
}

// Embedded is an in-process NATS server with a connection to it.
type Embedded struct {
	Server *server.Server
	Conn   *nats.Conn
}

// StartEmbedded starts a NATS server that listens on no ports and connects
// to it in-process.
func StartEmbedded(timeout time.Duration) (*Embedded, error) {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	ns, err := server.NewServer(&server.Options{DontListen: true})
	if err != nil {
		return nil, fmt.Errorf("submit: nats server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(timeout) {
		ns.Shutdown()
		return nil, errors.New("submit: nats server failed to start within timeout")
	}
	conn, err := nats.Connect("", nats.InProcessServer(ns))
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("submit: nats connect: %w", err)
	}
	return &Embedded{Server: ns, Conn: conn}, nil
}

// Close drains the connection and stops the server.
func (e *Embedded) Close() {
	if e == nil {
		return
	}
	if e.Conn != nil {
		_ = e.Conn.Drain()
	}
	if e.Server != nil {
		e.Server.Shutdown()
		e.Server.WaitForShutdown()
	}
}
