package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelBalanceEvents = "balance_events"
)

// Balance event kinds
const (
	EventDeducted = "tokens_deducted"
	EventCredited = "tokens_credited"
)

// BalanceEvent notifies connected clients that a user's balance changed, so
// the UI can refresh without polling.
type BalanceEvent struct {
	Type          string `json:"type"`
	UserID        int64  `json:"user_id"`
	Amount        int    `json:"amount"`
	Balance       int    `json:"balance"`
	Unlimited     bool   `json:"unlimited"`
	TransactionID string `json:"transaction_id,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Publisher sends balance events over Redis.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishBalance publishes one balance event.
func (p *Publisher) PublishBalance(ctx context.Context, event *BalanceEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal balance event: %w", err)
	}
	return p.client.Publish(ctx, ChannelBalanceEvents, data).Err()
}

// Subscriber receives balance events.
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe delivers events to handler until ctx is canceled.
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*BalanceEvent)) error {
	pubsub := s.client.Subscribe(ctx, ChannelBalanceEvents)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event BalanceEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // skip malformed payloads
			}

			handler(&event)
		}
	}
}
