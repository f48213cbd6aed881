package websocket

import (
	"context"
	"strings"
)

// Subscriber delivers frames published on pub/sub channels by external
// collaborators (the friend-graph service publishes friendRequest and
// friendRequestResponded envelopes on channel:user:<id>).
type Subscriber interface {
	Subscribe(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) error
}

// RedisBridge forwards externally published user-addressed events into the
// hub. Payloads pass through opaquely.
type RedisBridge struct {
	subscriber Subscriber
	hub        *Hub
}

const userChannelPrefix = "channel:user:"

func NewRedisBridge(subscriber Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub}
}

func (b *RedisBridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, []string{userChannelPrefix + "*"}, func(channel string, payload []byte) {
		userID := strings.TrimPrefix(channel, userChannelPrefix)
		if userID == "" || userID == channel {
			return
		}
		b.hub.RouteToUser(userID, payload)
	})
}
