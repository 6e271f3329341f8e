// Package amqpsink publishes gate audit events to a RabbitMQ queue.
package amqpsink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	adminGate "github.com/MrEthical07/adminGate"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultQueue is used when Config.Queue is empty.
const DefaultQueue = "admin-gate-audit"

// Publisher is the subset of *amqp.Channel the sink uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Config struct {
	Exchange string
	Queue    string
	// PublishTimeout bounds one publish; the dispatcher goroutine waits on it.
	PublishTimeout time.Duration
}

// Sink implements adminGate.AuditSink. Publish failures are logged and counted,
// never returned to the gate.
type Sink struct {
	pub     Publisher
	cfg     Config
	log     *zap.Logger
	failed  atomic.Uint64
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
}

// New wraps an existing publisher.
func New(pub Publisher, cfg Config, log *zap.Logger) *Sink {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{pub: pub, cfg: cfg, log: log}
}

// Dial connects to url, declares the durable queue and returns a sink that owns the
// connection.
func Dial(url string, cfg Config, log *zap.Logger) (*Sink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	queue := cfg.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	s := New(ch, cfg, log)
	s.conn = conn
	s.channel = ch
	return s, nil
}

func (s *Sink) Emit(ctx context.Context, event adminGate.AuditEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		s.failed.Add(1)
		s.log.Error("failed to marshal audit event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	defer cancel()

	s.mu.Lock()
	err = s.pub.PublishWithContext(
		ctx,
		s.cfg.Exchange,
		s.cfg.Queue, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Timestamp:    event.Timestamp,
			Type:         event.EventType,
			Body:         body,
		},
	)
	s.mu.Unlock()
	if err != nil {
		s.failed.Add(1)
		s.log.Warn("failed to publish audit event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
	}
}

// Failed reports events that could not be published.
func (s *Sink) Failed() uint64 {
	return s.failed.Load()
}

// Ping checks connectivity when the sink owns its connection.
func (s *Sink) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	if s.conn.IsClosed() {
		return fmt.Errorf("connection closed")
	}
	if s.channel == nil || s.channel.IsClosed() {
		return fmt.Errorf("channel closed")
	}
	return nil
}

// Close closes an owned connection.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

var _ adminGate.AuditSink = (*Sink)(nil)
