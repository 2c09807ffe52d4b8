package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher is the slice of the redis client the feed writes through.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// ChangeFeed relays domain events to a redis channel so every connected
// client sees ticket changes live.
type ChangeFeed struct {
	publisher Publisher
	channel   string
	logger    *zap.Logger
}

// NewChangeFeed builds a feed over publisher.
func NewChangeFeed(publisher Publisher, channel string, logger *zap.Logger) *ChangeFeed {
	return &ChangeFeed{publisher: publisher, channel: channel, logger: logger}
}

// Channel returns the redis channel name.
func (f *ChangeFeed) Channel() string {
	return f.channel
}

// Attach subscribes the feed to every event type on d.
func (f *ChangeFeed) Attach(d Dispatcher) {
	if d == nil || f.publisher == nil {
		return
	}
	for _, eventType := range AllEventTypes {
		d.Subscribe(eventType, f.relay)
	}
}

func (f *ChangeFeed) relay(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := f.publisher.Publish(ctx, f.channel, body).Err(); err != nil {
		return err
	}
	f.logger.Debug("change published",
		zap.String("channel", f.channel),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
	return nil
}
