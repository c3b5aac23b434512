package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This test requires a running redis instance
func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	publisher := NewRedisPublisher("localhost:6379", 0, "", "test_activity_stream", 100)
	defer publisher.Close()

	// Test if Redis is available
	if err := publisher.Ping(ctx); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()
	client.Del(ctx, "test_activity_stream")

	err := publisher.Publish(ctx, ActivityEvent{ID: "e1", SourceID: "javdb", Status: "success"})
	require.NoError(t, err)
	require.NoError(t, publisher.TrimStream(ctx))

	entries, err := client.XRange(ctx, "test_activity_stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	decoded, err := base64.StdEncoding.DecodeString(entries[0].Values[streamField].(string))
	require.NoError(t, err)
	var event ActivityEvent
	require.NoError(t, json.Unmarshal(decoded, &event))
	assert.Equal(t, "e1", event.ID)
	assert.Equal(t, "javdb", event.SourceID)
}
