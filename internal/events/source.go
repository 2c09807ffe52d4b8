package events

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Source yields raw change messages until ctx is done or stop is called.
type Source interface {
	Listen(ctx context.Context) (messages <-chan []byte, stop func(), err error)
}

// RedisSource reads the change feed channel written by ChangeFeed.
type RedisSource struct {
	client  *redis.Client
	channel string
}

// NewRedisSource builds a source over channel.
func NewRedisSource(client *redis.Client, channel string) *RedisSource {
	return &RedisSource{client: client, channel: channel}
}

// Listen subscribes and waits for the subscription to be confirmed.
func (s *RedisSource) Listen(ctx context.Context) (<-chan []byte, func(), error) {
	sub := s.client.Subscribe(ctx, s.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, func() { _ = sub.Close() }, nil
}
