package redis

import (
	"context"
	"fmt"

	"kipu-bank/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// vaultEventStream is the Redis stream deposit and withdrawal
// notifications are appended to.
const vaultEventStream = "vault:events"

// EventPublisher implements ports.EventPublisher using Redis streams.
// Consumers read the stream independently; publishing is fire-and-forget
// from the service's point of view.
type EventPublisher struct {
	client *goredis.Client
	stream string
}

// NewEventPublisher creates a Redis-backed event publisher.
func NewEventPublisher(client *goredis.Client) *EventPublisher {
	return &EventPublisher{
		client: client,
		stream: vaultEventStream,
	}
}

// Publish appends a vault event to the stream via XADD.
func (p *EventPublisher) Publish(ctx context.Context, event domain.VaultEvent) error {
	err := p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"type":        string(event.Type),
			"account_id":  event.AccountID.String(),
			"amount":      event.Amount,
			"balance":     event.Balance,
			"occurred_at": event.OccurredAt.UnixMilli(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd vault event: %w", err)
	}
	return nil
}
