package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeadLetter is a stream entry that could not be decoded into an Event.
type DeadLetter struct {
	ID         string         `json:"id"`
	OriginalID string         `json:"original_id"`
	Values     map[string]any `json:"values"`
	Error      string         `json:"error"`
	DeadAt     int64          `json:"dead_at"`
}

// DeadLetterStream returns the stream malformed entries are parked on.
func (p *RedisPublisher) DeadLetterStream() string {
	return p.stream + ":dlq"
}

func (p *RedisPublisher) sendToDeadLetter(ctx context.Context, msg redis.XMessage, cause error) error {
	raw, _ := json.Marshal(msg.Values)
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.DeadLetterStream(),
		MaxLen: 1000,
		Approx: true,
		Values: map[string]any{
			"original_id": msg.ID,
			"original":    string(raw),
			"error":       cause.Error(),
			"dead_at":     strconv.FormatInt(time.Now().Unix(), 10),
		},
	}).Err()
}

// DeadLetters returns up to count entries, newest first.
func (p *RedisPublisher) DeadLetters(ctx context.Context, count int) ([]DeadLetter, error) {
	results, err := p.rdb.XRevRangeN(ctx, p.DeadLetterStream(), "+", "-", int64(count)).Result()
	if errors.Is(err, redis.Nil) {
		return []DeadLetter{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dead letters: %w", err)
	}

	letters := make([]DeadLetter, 0, len(results))
	for _, msg := range results {
		letters = append(letters, parseDeadLetter(msg))
	}
	return letters, nil
}

// DeleteDeadLetter removes one entry from the dead-letter stream.
func (p *RedisPublisher) DeleteDeadLetter(ctx context.Context, id string) error {
	return p.rdb.XDel(ctx, p.DeadLetterStream(), id).Err()
}

func parseDeadLetter(msg redis.XMessage) DeadLetter {
	letter := DeadLetter{ID: msg.ID}
	if v, ok := msg.Values["original_id"].(string); ok {
		letter.OriginalID = v
	}
	if v, ok := msg.Values["original"].(string); ok {
		json.Unmarshal([]byte(v), &letter.Values)
	}
	if v, ok := msg.Values["error"].(string); ok {
		letter.Error = v
	}
	if v, ok := msg.Values["dead_at"].(string); ok {
		letter.DeadAt, _ = strconv.ParseInt(v, 10, 64)
	}
	return letter
}
