package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/messaging/redis"
)

func TestRelay_DeliversBrokerEventsIntoHub(t *testing.T) {
	mr := miniredis.RunT(t)
	zl := zerolog.Nop()
	broker, err := redis.NewRedisBroker(redis.Config{URL: "redis://" + mr.Addr()}, &zl)
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })

	hub := newTestHub()
	userID := uuid.New()
	s := NewSession(userID)
	hub.Register(s)
	hub.Join(s, UserRoom(userID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := NewRelay(broker, hub, "", logger.Nop())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	pub := NewBrokerPublisher(broker, "")
	require.Eventually(t, func() bool {
		if err := pub.Publish(ctx, EventNotificationNew, map[string]string{"title": "hi"}, Room(UserRoom(userID))); err != nil {
			return false
		}
		select {
		case raw := <-s.Send:
			assert.Contains(t, string(raw), `"type":"notification:new"`)
			assert.Contains(t, string(raw), `"title":"hi"`)
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
