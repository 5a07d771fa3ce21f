package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBroker fans relay emits out to other instances over a Redis pub/sub channel.
type RedisBroker struct {
	client  *redis.Client
	channel string
	log     *slog.Logger
}

func NewRedisBroker(client *redis.Client, channel string, log *slog.Logger) *RedisBroker {
	return &RedisBroker{client: client, channel: channel, log: log.With("component", "relay_broker")}
}

func (b *RedisBroker) Publish(ctx context.Context, m Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Run subscribes and passes every message to deliver until ctx ends.
func (b *RedisBroker) Run(ctx context.Context, deliver func(Message)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.log.Info("relay_subscribed", "channel", b.channel)
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m Message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				b.log.Warn("relay_bad_message", "err", err)
				continue
			}
			deliver(m)
		}
	}
}
