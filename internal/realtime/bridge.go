package realtime

// This file relays hub events across server instances through Redis
// pub/sub. Each instance publishes its local events onto one channel and
// replays events from other instances into its own hub, so a customer
// connected to instance A still sees edits made through instance B. When
// Redis is unavailable the bridge is simply not installed and delivery
// stays single-instance.

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// bridgeChannel is the Redis pub/sub channel all instances share.
const bridgeChannel = "realtime.events"

// bridgeMessage wraps an envelope with its room and the originating
// instance, so an instance can skip its own messages.
type bridgeMessage struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Data   json.RawMessage `json:"data"`
}

// Bridge connects a Hub to the shared Redis channel.
type Bridge struct {
	rdb        *redis.Client
	hub        *Hub
	instanceID string
}

// NewBridge wires the hub to Redis and starts the replay loop. The
// returned Bridge keeps running until ctx is cancelled.
func NewBridge(ctx context.Context, rdb *redis.Client, hub *Hub) *Bridge {
	b := &Bridge{rdb: rdb, hub: hub, instanceID: uuid.NewString()}
	hub.SetBridge(b.publish)
	go b.run(ctx)
	return b
}

// publish sends one locally delivered event to the other instances.
// Failures are logged and dropped; local delivery already happened.
func (b *Bridge) publish(room string, data []byte) {
	msg := bridgeMessage{Origin: b.instanceID, Room: room, Data: data}
	raw, err := json.Marshal(msg)
	if err != nil {
		log.Printf("realtime bridge: marshal: %v", err)
		return
	}
	if err := b.rdb.Publish(context.Background(), bridgeChannel, raw).Err(); err != nil {
		log.Printf("realtime bridge: publish: %v", err)
	}
}

// run subscribes to the shared channel and replays remote events into the
// local hub. go-redis re-establishes the subscription after connection
// loss, so the loop only ends with the context.
func (b *Bridge) run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, bridgeChannel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg bridgeMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				log.Printf("realtime bridge: bad message: %v", err)
				continue
			}
			if msg.Origin == b.instanceID {
				continue
			}
			b.hub.deliver(msg.Room, msg.Data)
		}
	}
}
