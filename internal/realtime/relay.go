package realtime

import (
	"context"
	"encoding/json"

	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/messaging"
)

// DefaultChannel is the broker channel shared by BrokerPublisher and Relay.
const DefaultChannel = "practice:realtime"

// BrokerPublisher forwards events to a message broker. Processes without connected
// sessions, like the worker, publish through it and a Relay delivers them.
type BrokerPublisher struct {
	broker  messaging.Broker
	channel string
}

func NewBrokerPublisher(broker messaging.Broker, channel string) *BrokerPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &BrokerPublisher{broker: broker, channel: channel}
}

func (p *BrokerPublisher) Publish(ctx context.Context, event string, payload interface{}, scope Scope) error {
	return p.broker.Publish(ctx, p.channel, messaging.Message{
		Type:    event,
		Room:    scope.RoomName(),
		Payload: payload,
	})
}

// Relay subscribes to the broker channel and republishes every message into a local
// Publisher, normally the Hub.
type Relay struct {
	broker  messaging.Broker
	target  Publisher
	channel string
	logger  *logger.Logger
}

func NewRelay(broker messaging.Broker, target Publisher, channel string, log *logger.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{
		broker:  broker,
		target:  target,
		channel: channel,
		logger:  log.With("realtime_relay"),
	}
}

// Run blocks until ctx is cancelled or the subscription closes.
func (r *Relay) Run(ctx context.Context) error {
	messages, err := r.broker.Subscribe(ctx, r.channel)
	if err != nil {
		return err
	}
	r.logger.Info("relay subscribed", "channel", r.channel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-messages:
			if !ok {
				return nil
			}
			r.forward(ctx, raw)
		}
	}
}

func (r *Relay) forward(ctx context.Context, raw []byte) {
	var msg struct {
		Type    string          `json:"type"`
		Room    string          `json:"room"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.logger.Warn("dropping malformed relay message", "error", err.Error())
		return
	}

	scope := Global()
	if msg.Room != "" {
		scope = Room(msg.Room)
	}
	if err := r.target.Publish(ctx, msg.Type, msg.Payload, scope); err != nil {
		r.logger.Error(err, "relay publish failed", "event", msg.Type)
	}
}
