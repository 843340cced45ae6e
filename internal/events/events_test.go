package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexhub/orchestrator-gateway/internal/config"
)

// setupTestPublisher connects to REDIS_TEST_ADDR (default localhost:6379)
// and skips when Redis is not running.
func setupTestPublisher(t *testing.T) *RedisPublisher {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	p, err := NewRedisPublisher(config.EventsConfig{Enabled: true, Addr: addr, Stream: "test:events:" + t.Name()})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return p
}

func TestEvent_RedisValuesRoundTrip(t *testing.T) {
	e := New(TypeProjectCreated, "ab12cd34", map[string]any{"project_id": float64(7), "code": "AP01"})
	e.RequestID = "req-1"

	values := e.ToRedisValues()
	assert.Equal(t, "project.created", values["type"])
	assert.IsType(t, "", values["payload"])

	back, err := FromRedisValues(values)
	require.NoError(t, err)
	assert.Equal(t, e, *back)
}

func TestFromRedisValues_BadPayload(t *testing.T) {
	_, err := FromRedisValues(map[string]any{"payload": "{not json"})
	assert.Error(t, err)
}

func TestFromRedisValues_BadCreated(t *testing.T) {
	_, err := FromRedisValues(map[string]any{"created": "yesterday"})
	assert.Error(t, err)
}

func TestNew_GeneratesIDs(t *testing.T) {
	a := New(TypeProjectCancelled, "", nil)
	b := New(TypeProjectCancelled, "", nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotZero(t, a.Created)
}

func TestOpen_DisabledIsNop(t *testing.T) {
	p, err := Open(config.EventsConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), New(TypeProjectFailed, "", nil)))
}

func TestRedisPublisher_PublishAndSubscribe(t *testing.T) {
	p := setupTestPublisher(t)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer p.rdb.Del(context.Background(), p.Stream())

	msgs, err := p.Subscribe(ctx, "test-group", "test-consumer")
	require.NoError(t, err)

	sent := New(TypeProjectDuplicate, "tok", map[string]any{"code": "AP01"})
	require.NoError(t, p.Publish(ctx, sent))

	select {
	case msg := <-msgs:
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, sent.ID, msg.Event.ID)
		assert.Equal(t, "AP01", msg.Event.Payload["code"])
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestParseDeadLetter(t *testing.T) {
	letter := parseDeadLetter(redis.XMessage{ID: "9-0", Values: map[string]any{
		"original_id": "5-0",
		"original":    `{"payload":"{not json"}`,
		"error":       "decode payload: boom",
		"dead_at":     "1760000000",
	}})
	assert.Equal(t, "9-0", letter.ID)
	assert.Equal(t, "5-0", letter.OriginalID)
	assert.Equal(t, "{not json", letter.Values["payload"])
	assert.Equal(t, "decode payload: boom", letter.Error)
	assert.Equal(t, int64(1760000000), letter.DeadAt)
}

func TestRedisPublisher_MalformedEntryIsDeadLettered(t *testing.T) {
	p := setupTestPublisher(t)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer p.rdb.Del(context.Background(), p.Stream(), p.DeadLetterStream())

	msgs, err := p.Subscribe(ctx, "test-group", "test-consumer")
	require.NoError(t, err)

	require.NoError(t, p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.Stream(),
		Values: map[string]any{"payload": "{not json"},
	}).Err())
	good := New(TypeProjectCreated, "tok", nil)
	require.NoError(t, p.Publish(ctx, good))

	select {
	case msg := <-msgs:
		assert.Equal(t, good.ID, msg.Event.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	letters, err := p.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "{not json", letters[0].Values["payload"])

	require.NoError(t, p.DeleteDeadLetter(ctx, letters[0].ID))
	letters, err = p.DeadLetters(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, letters)
}
