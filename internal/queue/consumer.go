package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/config"
	"github.com/iliyamo/farmhub/internal/metrics"
)

// errMalformed marks a message that can never be handled.
var errMalformed = errors.New("malformed event")

// DeadLetterQueue names the queue that collects messages the consumer
// gave up on.
func DeadLetterQueue(queue string) string { return queue + ".dead" }

// declareQueues declares queue with dead-lettering into its ".dead"
// sibling.  Publisher and consumer must declare identical arguments.
func declareQueues(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(DeadLetterQueue(queue), true, false, false, false, nil); err != nil {
		return fmt.Errorf("dead letter queue declare: %w", err)
	}
	_, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": DeadLetterQueue(queue),
	})
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return nil
}

// Consumer reads notification events from the broker and hands each to
// a Handler.  Broken connections are re-dialled with exponential backoff
// until the context is cancelled.
type Consumer struct {
	cfg    config.BrokerConfig
	log    *zap.Logger
	handle Handler
}

func NewConsumer(cfg config.BrokerConfig, log *zap.Logger, h Handler) *Consumer {
	return &Consumer{cfg: cfg, log: log, handle: h}
}

// Run blocks until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // retry forever

	for {
		var conn *amqp.Connection
		err := backoff.RetryNotify(func() error {
			var err error
			conn, err = amqp.Dial(c.cfg.URL)
			return err
		}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
			c.log.Warn("event consumer: dial failed", zap.Error(err), zap.Duration("retry_in", wait))
		})
		if err != nil {
			return ctx.Err()
		}
		bo.Reset()

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("event consumer: loop ended, reconnecting", zap.Error(err))
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		c.log.Warn("event consumer: set QoS failed", zap.Error(err))
	}
	if err := declareQueues(ch, c.cfg.Queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.settle(d, c.process(ctx, d.Body))
		}
	}
}

// settle acks a handled delivery.  A malformed event is dead-lettered at
// once; a handler failure is requeued once and dead-lettered when it
// fails again on redelivery.
func (c *Consumer) settle(d amqp.Delivery, err error) {
	if err == nil {
		_ = d.Ack(false)
		return
	}
	requeue := !errors.Is(err, errMalformed) && !d.Redelivered
	c.log.Error("event consumer: handle message failed",
		zap.String("message_id", d.MessageId), zap.Bool("requeue", requeue), zap.Error(err))
	if !requeue {
		metrics.RecordEvent("dead_lettered")
	}
	_ = d.Nack(false, requeue)
}

func (c *Consumer) process(ctx context.Context, body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if ev.UserID == 0 {
		return fmt.Errorf("%w: no user_id", errMalformed)
	}
	if err := c.handle(ctx, ev); err != nil {
		return err
	}
	metrics.RecordEvent("consumed")
	return nil
}
