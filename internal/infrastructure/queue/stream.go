package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/config"
)

// payloadField is the stream entry field carrying the JSON-encoded event
const payloadField = "payload"

// maxDeliveries is how many times a message is retried before it is dropped
// with an error log. Poison messages must not wedge the consumer group.
const maxDeliveries = 5

// ErrConsumerRunning is returned when Start is called twice
var ErrConsumerRunning = errors.New("queue: consumer already running")

// Handler processes one dequeued event. A non-nil error leaves the message
// pending so the claim loop redelivers it.
type Handler interface {
	HandleEvent(ctx context.Context, event sync.Event) error
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, event sync.Event) error

// HandleEvent implements Handler
func (f HandlerFunc) HandleEvent(ctx context.Context, event sync.Event) error {
	return f(ctx, event)
}

// ---------------------------------------------------------------------------
// Publisher
// ---------------------------------------------------------------------------

// Publisher appends validated events to the Redis Stream. The webhook handler
// returns 200 as soon as the event is durably queued; processing happens in
// the consumer group.
type Publisher struct {
	client *redis.Client
	stream string
}

// NewPublisher creates a stream publisher
func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

// Enqueue appends one event to the stream
func (p *Publisher) Enqueue(ctx context.Context, event sync.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	encoded, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("queue: failed to encode event: %w", err)
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{payloadField: string(encoded)},
	}).Err()
}

// ---------------------------------------------------------------------------
// Consumer
// ---------------------------------------------------------------------------

// Consumer reads events from the stream through a consumer group and fans
// them out to a worker pool. Messages are acked individually after their
// handler returns, so one failing event in a batch does not block the others;
// unacked messages are redelivered by the claim loop after ClaimMinIdle.
type Consumer struct {
	client  *redis.Client
	cfg     config.QueueConfig
	handler Handler
	logger  *zap.Logger

	mu      stdsync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      stdsync.WaitGroup
}

// NewConsumer creates a stream consumer
func NewConsumer(client *redis.Client, cfg config.QueueConfig, handler Handler, logger *zap.Logger) *Consumer {
	return &Consumer{
		client:  client,
		cfg:     cfg,
		handler: handler,
		logger:  logger.Named("queue"),
	}
}

// Start creates the consumer group and launches the worker pool plus the
// claim loop
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrConsumerRunning
	}

	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("queue: failed to create consumer group: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.running = true

	for i := 0; i < c.cfg.Workers; i++ {
		consumerName := fmt.Sprintf("%s-%d", c.cfg.Consumer, i)
		c.wg.Add(1)
		go c.readLoop(runCtx, consumerName)
	}

	c.wg.Add(1)
	go c.claimLoop(runCtx)

	c.logger.Info("Consumer started",
		zap.String("stream", c.cfg.Stream),
		zap.String("group", c.cfg.Group),
		zap.Int("workers", c.cfg.Workers))
	return nil
}

// Stop cancels the workers and waits for in-flight handlers to finish
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info("Consumer stopped")
}

// readLoop reads fresh messages for one worker
func (c *Consumer) readLoop(ctx context.Context, consumerName string) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: consumerName,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    int64(c.cfg.BatchSize),
			Block:    c.cfg.BlockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			c.logger.Error("Failed to read from stream", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				c.process(ctx, message, 1)
			}
		}
	}
}

// claimLoop periodically reclaims messages that have been pending longer than
// ClaimMinIdle: crashed workers and failed handlers end up here
func (c *Consumer) claimLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.ClaimInterval)
	defer ticker.Stop()

	consumerName := c.cfg.Consumer + "-claim"
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.claimOnce(ctx, consumerName)
		}
	}
}

func (c *Consumer) claimOnce(ctx context.Context, consumerName string) {
	start := "0-0"
	for {
		messages, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.cfg.Stream,
			Group:    c.cfg.Group,
			Consumer: consumerName,
			MinIdle:  c.cfg.ClaimMinIdle,
			Start:    start,
			Count:    int64(c.cfg.BatchSize),
		}).Result()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.logger.Error("Failed to claim pending messages", zap.Error(err))
			}
			return
		}

		deliveries := c.deliveryCounts(ctx, messages)
		for _, message := range messages {
			c.process(ctx, message, deliveries[message.ID])
		}

		if next == "0-0" || len(messages) == 0 {
			return
		}
		start = next
	}
}

// deliveryCounts reads retry counters for claimed messages from the pending
// entries list
func (c *Consumer) deliveryCounts(ctx context.Context, messages []redis.XMessage) map[string]int64 {
	counts := make(map[string]int64, len(messages))
	if len(messages) == 0 {
		return counts
	}

	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Start:  messages[0].ID,
		End:    messages[len(messages)-1].ID,
		Count:  int64(len(messages)),
	}).Result()
	if err != nil {
		return counts
	}
	for _, p := range pending {
		counts[p.ID] = p.RetryCount
	}
	return counts
}

// process decodes and handles one message, acking on success or when the
// message is poison
func (c *Consumer) process(ctx context.Context, message redis.XMessage, delivery int64) {
	raw, ok := message.Values[payloadField].(string)
	if !ok {
		c.logger.Error("Dropping message without payload", zap.String("id", message.ID))
		c.ack(ctx, message.ID)
		return
	}

	var event sync.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		c.logger.Error("Dropping undecodable message",
			zap.String("id", message.ID), zap.Error(err))
		c.ack(ctx, message.ID)
		return
	}

	if err := c.handler.HandleEvent(ctx, event); err != nil {
		if delivery >= maxDeliveries {
			c.logger.Error("Dropping message after delivery limit",
				zap.String("id", message.ID),
				zap.String("sku", event.SKU),
				zap.Int64("deliveries", delivery),
				zap.Error(err))
			c.ack(ctx, message.ID)
			return
		}
		c.logger.Warn("Event handling failed, leaving pending for redelivery",
			zap.String("id", message.ID),
			zap.String("sku", event.SKU),
			zap.Error(err))
		return
	}

	c.ack(ctx, message.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Failed to ack message", zap.String("id", id), zap.Error(err))
	}
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}
