package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"readit/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// BroadcastChannel carries events for every connected client on every instance.
const BroadcastChannel = "notifications:broadcast"

// Event types sent to websocket clients.
const (
	EventVoteScoreUpdated = "vote_score_updated"
	EventMessagesDropped  = "messages_dropped"
	EventPong             = "pong"
)

// Event is the envelope of every websocket message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Encode marshals the event for the wire.
func (e Event) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return b, nil
}

var droppedNotice = mustEncode(Event{Type: EventMessagesDropped, Payload: map[string]string{"reason": "buffer_full"}})

func mustEncode(e Event) []byte {
	b, err := e.Encode()
	if err != nil {
		panic(err)
	}
	return b
}

// Notifier publishes events into redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a redis client is attached.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishBroadcast sends payload to every subscribed instance.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, BroadcastChannel, payload).Err()
}

// StartBroadcastSubscriber subscribes to the broadcast channel and calls
// onMessage for each payload until ctx is done. The subscription is confirmed
// before it returns.
func (n *Notifier) StartBroadcastSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, BroadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", BroadcastChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in broadcast subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
