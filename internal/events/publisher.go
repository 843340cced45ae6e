// Package events publishes create-flow outcomes to a Redis Stream so other
// services can react to new or rejected projects.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cortexhub/orchestrator-gateway/internal/config"
	"github.com/cortexhub/orchestrator-gateway/internal/logging"
)

// Publisher emits flow events
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event. Used when events are disabled.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Message is an entry read back from the stream
type Message struct {
	ID    string
	Event *Event
}

// RedisPublisher writes events to a Redis Stream with XADD
type RedisPublisher struct {
	rdb    *redis.Client
	stream string
	logger *slog.Logger
}

// NewRedisPublisher connects to Redis and validates the connection
func NewRedisPublisher(cfg config.EventsConfig) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	stream := cfg.Stream
	if stream == "" {
		stream = DefaultStream
	}

	return &RedisPublisher{
		rdb:    rdb,
		stream: stream,
		logger: logging.WithComponent("events"),
	}, nil
}

// Open returns a Redis publisher when events are enabled, Nop otherwise.
func Open(cfg config.EventsConfig) (Publisher, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}
	return NewRedisPublisher(cfg)
}

// Stream returns the stream events are written to
func (p *RedisPublisher) Stream() string {
	return p.stream
}

// Ping checks if Redis is reachable
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Publish appends e to the stream, retrying transient failures
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	if e.RequestID == "" {
		e.RequestID = logging.RequestID(ctx)
	}
	return p.withRetry(ctx, 3, func() error {
		_, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: 10000,
			Approx: true,
			Values: e.ToRedisValues(),
		}).Result()
		if err != nil {
			return fmt.Errorf("xadd failed: %w", err)
		}
		return nil
	})
}

// Subscribe reads events through a consumer group with XREADGROUP. The
// channel closes when ctx is cancelled.
func (p *RedisPublisher) Subscribe(ctx context.Context, group, consumer string) (<-chan Message, error) {
	err := p.rdb.XGroupCreateMkStream(ctx, p.stream, group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	out := make(chan Message, 100)
	go p.readLoop(ctx, group, consumer, out)
	return out, nil
}

func (p *RedisPublisher) readLoop(ctx context.Context, group, consumer string, out chan<- Message) {
	defer close(out)

	for {
		if ctx.Err() != nil {
			return
		}
		results, err := p.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{p.stream, ">"},
			Count:    10,
			Block:    time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("stream read failed", "error", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, result := range results {
			for _, msg := range result.Messages {
				e, err := FromRedisValues(msg.Values)
				if err != nil {
					p.logger.Warn("dead-lettering malformed event", "id", msg.ID, "error", err)
					if dlqErr := p.sendToDeadLetter(ctx, msg, err); dlqErr != nil {
						p.logger.Error("failed to dead-letter event", "id", msg.ID, "error", dlqErr)
					}
				} else {
					select {
					case out <- Message{ID: msg.ID, Event: e}:
					case <-ctx.Done():
						return
					}
				}
				p.rdb.XAck(ctx, p.stream, group, msg.ID)
			}
		}
	}
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

func (p *RedisPublisher) withRetry(ctx context.Context, maxRetries int, fn func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < maxRetries-1 {
			select {
			case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
