package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/config"
	"github.com/iliyamo/farmhub/internal/metrics"
)

// Publisher sends notification events to a durable RabbitMQ queue.
// Publishing goes through a circuit breaker; when the broker is disabled,
// unreachable or the breaker is open, the event is handed to the inline
// fallback so the notification is still stored.
type Publisher struct {
	cfg      config.BrokerConfig
	log      *zap.Logger
	cb       *gobreaker.CircuitBreaker
	fallback Handler

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher builds a publisher.  fallback must not be nil.
func NewPublisher(cfg config.BrokerConfig, log *zap.Logger, fallback Handler) *Publisher {
	p := &Publisher{cfg: cfg, log: log, fallback: fallback}
	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "amqp-publisher",
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(cfg.BreakerFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return p
}

// Publish never fails the caller's request: broker errors are logged and
// the event is processed inline instead.  The returned error is only
// non-nil when the inline fallback also failed.
func (p *Publisher) Publish(ctx context.Context, ev NotificationEvent) error {
	if p.cfg.Enabled {
		_, err := p.cb.Execute(func() (interface{}, error) {
			return nil, p.send(ctx, ev)
		})
		if err == nil {
			metrics.RecordEvent("broker")
			return nil
		}
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.log.Warn("rabbitmq: publish failed, storing inline",
				zap.String("event_id", ev.ID), zap.Error(err))
		}
	}
	if err := p.fallback(ctx, ev); err != nil {
		metrics.RecordEvent("failed")
		p.log.Error("notification: inline handling failed",
			zap.String("event_id", ev.ID), zap.Uint64("user_id", ev.UserID), zap.Error(err))
		return err
	}
	metrics.RecordEvent("inline")
	return nil
}

func (p *Publisher) send(ctx context.Context, ev NotificationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.cfg.Queue, false, false, pub); err != nil {
		p.reset()
		return err
	}
	return nil
}

// channel lazily dials and declares the queue.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := declareQueues(ch, p.cfg.Queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}
