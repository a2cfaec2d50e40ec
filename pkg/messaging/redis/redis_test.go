package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/pkg/messaging"
)

func setupTestBroker(t *testing.T) messaging.Broker {
	mr := miniredis.RunT(t)
	logger := zerolog.Nop()

	broker, err := NewRedisBroker(Config{URL: "redis://" + mr.Addr()}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })
	return broker
}

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	broker := setupTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := broker.Subscribe(ctx, "practice:events")
	require.NoError(t, err)

	err = broker.Publish(ctx, "practice:events", messaging.Message{
		Type:    "appointment:status_changed",
		Payload: map[string]string{"status": "overdue"},
	})
	require.NoError(t, err)

	select {
	case raw := <-msgs:
		var got messaging.Message
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "appointment:status_changed", got.Type)
		assert.Empty(t, got.Room)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestRedisBroker_SubscriptionClosesOnCancel(t *testing.T) {
	broker := setupTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())

	msgs, err := broker.Subscribe(ctx, "practice:events")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestNewRedisBroker_InvalidURL(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewRedisBroker(Config{URL: "://nope"}, &logger)
	assert.Error(t, err)
}
