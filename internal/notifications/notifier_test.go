package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishBroadcast(context.Background(), []byte("payload")))
	assert.NoError(t, n.StartBroadcastSubscriber(context.Background(), func(string) {}))
}

func TestEvent_Encode(t *testing.T) {
	b, err := Event{Type: EventVoteScoreUpdated, Payload: map[string]int{"voteScore": 3}}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"vote_score_updated","payload":{"voteScore":3}}`, string(b))
	assert.JSONEq(t, `{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`, string(droppedNotice))
}

func TestHub_WiringDeliversBroadcasts(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	n := NewNotifier(rdb)
	hub := NewHub()
	client, err := hub.Register(0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	require.NoError(t, n.PublishBroadcast(context.Background(), []byte("before-cancel")))
	assert.Eventually(t, func() bool {
		select {
		case msg := <-client.send:
			return string(msg) == "before-cancel"
		default:
			return false
		}
	}, testEventuallyTimeout, testPollInterval)

	cancel()
	time.Sleep(20 * time.Millisecond)

	_ = n.PublishBroadcast(context.Background(), []byte("after-cancel"))
	assert.Never(t, func() bool {
		select {
		case msg := <-client.send:
			return string(msg) == "after-cancel"
		default:
			return false
		}
	}, 200*time.Millisecond, testPollInterval)
}
