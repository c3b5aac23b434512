package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// streamField is the stream entry field carrying the encoded event
const streamField = "b64_activity"

// RedisPublisher implements Publisher on a Redis stream
type RedisPublisher struct {
	client          *redis.Client
	stream          string
	streamMaxLength int64
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, password, stream string, streamMaxLength int64) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       db,
		Password: password,
	})

	return &RedisPublisher{
		client:          client,
		stream:          stream,
		streamMaxLength: streamMaxLength,
	}
}

// Publish appends the event to the stream
// The JSON document is base64 encoded before publishing
func (p *RedisPublisher) Publish(ctx context.Context, event ActivityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(data)

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			streamField: encoded,
		},
	}
	if p.streamMaxLength > 0 {
		args.MaxLen = p.streamMaxLength
		args.Approx = true
	}
	return p.client.XAdd(ctx, args).Err()
}

// TrimStream trims the stream to the configured maximum length
func (p *RedisPublisher) TrimStream(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}
	return p.client.XTrimMaxLen(ctx, p.stream, p.streamMaxLength).Err()
}

// Ping reports whether the server answers
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
