package redis

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"payments/internal/config"
)

const (
	streamPrefix = "events:"
	payloadField = "payload"
)

// Handler processes a single delivered event payload.
// A nil return acknowledges the delivery; an error leaves it pending so the
// transport redelivers it (at-least-once).
type Handler func(ctx context.Context, payload []byte) error

type delivery struct {
	stream string
	id     string
	data   []byte
}

// StreamBus is an event channel backed by Redis Streams with consumer groups.
// Publishes are XADDs; consumption is XREADGROUP within a single group, so a
// given entry is dispatched to only one consumer of the group at a time.
// Entries left pending by a crashed consumer are reclaimed with XAUTOCLAIM.
type StreamBus struct {
	client *redis.Client
	cfg    config.ConsumerConfig

	handlers map[string]Handler
	ack      func(stream, id string)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStreamBus creates a new StreamBus.
func NewStreamBus(client *redis.Client, cfg config.ConsumerConfig) *StreamBus {
	b := &StreamBus{
		client:   client,
		cfg:      cfg,
		handlers: make(map[string]Handler),
	}
	b.ack = b.ackRedis
	return b
}

// Publish marshals the payload and appends it to the topic's stream.
func (b *StreamBus) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamPrefix + topic,
		Values: map[string]any{payloadField: payload},
	}).Err()
}

// Subscribe registers a handler for a topic. All subscriptions must be
// registered before Start; there is no runtime discovery.
func (b *StreamBus) Subscribe(topic string, handler Handler) {
	b.handlers[topic] = handler
}

// Start creates the consumer group on every subscribed stream and launches
// the reader and worker goroutines. It returns once consumption is running.
func (b *StreamBus) Start(ctx context.Context) error {
	streams := make([]string, 0, len(b.handlers))
	for topic := range b.handlers {
		stream := streamPrefix + topic
		err := b.client.XGroupCreateMkStream(ctx, stream, b.cfg.Group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return err
		}
		streams = append(streams, stream)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	deliveries := make(chan delivery)

	for i := 0; i < b.cfg.Concurrency; i++ {
		b.wg.Add(1)
		go b.worker(runCtx, deliveries)
	}

	b.wg.Add(1)
	go b.read(runCtx, streams, deliveries)

	return nil
}

// Stop halts consumption and waits for in-flight handlers to finish.
func (b *StreamBus) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

// read blocks on XREADGROUP and feeds deliveries to the workers, reclaiming
// stale pending entries between reads.
func (b *StreamBus) read(ctx context.Context, streams []string, deliveries chan<- delivery) {
	defer b.wg.Done()
	defer close(deliveries)

	// XREADGROUP wants all stream names followed by a ">" per stream.
	args := make([]string, 0, len(streams)*2)
	args = append(args, streams...)
	for range streams {
		args = append(args, ">")
	}

	lastClaim := time.Time{}

	for {
		if ctx.Err() != nil {
			return
		}

		if time.Since(lastClaim) >= b.cfg.ClaimMinIdle {
			b.reclaim(ctx, streams, deliveries)
			lastClaim = time.Now()
		}

		result, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.cfg.Group,
			Consumer: b.cfg.ConsumerName,
			Streams:  args,
			Count:    b.cfg.BatchSize,
			Block:    b.cfg.BlockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Printf("event read failed: %v", err)
			// Back off briefly so a dead Redis does not spin the loop.
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, stream := range result {
			for _, msg := range stream.Messages {
				b.dispatch(ctx, deliveries, stream.Stream, msg)
			}
		}
	}
}

// reclaim takes over pending entries whose consumer has been idle too long.
func (b *StreamBus) reclaim(ctx context.Context, streams []string, deliveries chan<- delivery) {
	for _, stream := range streams {
		msgs, _, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    b.cfg.Group,
			Consumer: b.cfg.ConsumerName,
			MinIdle:  b.cfg.ClaimMinIdle,
			Start:    "0-0",
			Count:    b.cfg.BatchSize,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
				log.Printf("event reclaim failed for %s: %v", stream, err)
			}
			continue
		}
		for _, msg := range msgs {
			b.dispatch(ctx, deliveries, stream, msg)
		}
	}
}

func (b *StreamBus) dispatch(ctx context.Context, deliveries chan<- delivery, stream string, msg redis.XMessage) {
	raw, ok := msg.Values[payloadField].(string)
	if !ok {
		// Malformed entry: ack it so it does not redeliver forever.
		log.Printf("dropping malformed event %s on %s", msg.ID, stream)
		b.ack(stream, msg.ID)
		return
	}

	select {
	case deliveries <- delivery{stream: stream, id: msg.ID, data: []byte(raw)}:
	case <-ctx.Done():
	}
}

// worker drains deliveries.
func (b *StreamBus) worker(ctx context.Context, deliveries <-chan delivery) {
	defer b.wg.Done()

	for d := range deliveries {
		b.handle(ctx, d)
	}
}

// handle routes one delivery to its topic's handler and acks it unless the
// handler asked for redelivery by returning an error.
func (b *StreamBus) handle(ctx context.Context, d delivery) {
	topic := strings.TrimPrefix(d.stream, streamPrefix)
	handler, ok := b.handlers[topic]
	if !ok {
		b.ack(d.stream, d.id)
		return
	}

	if err := handler(ctx, d.data); err != nil {
		// Leave the entry pending; it will be reclaimed and redelivered.
		log.Printf("handler failed for %s event %s: %v", topic, d.id, err)
		return
	}

	b.ack(d.stream, d.id)
}

func (b *StreamBus) ackRedis(stream, id string) {
	// Ack with a fresh context so shutdown does not lose completed work.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.client.XAck(ctx, stream, b.cfg.Group, id).Err(); err != nil {
		log.Printf("ack failed for %s event %s: %v", stream, id, err)
	}
}
