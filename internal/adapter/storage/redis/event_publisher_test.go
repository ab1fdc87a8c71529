package redis_test

import (
	"context"
	"testing"
	"time"

	"kipu-bank/internal/adapter/storage/redis"
	"kipu-bank/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	pub := redis.NewEventPublisher(client)
	ctx := context.Background()

	accountID := uuid.New()
	movement := &domain.Movement{
		ID:           uuid.New(),
		VaultID:      uuid.New(),
		AccountID:    accountID,
		MovementType: domain.MovementTypeDeposit,
		Amount:       100,
		BalanceAfter: 100,
		CreatedAt:    time.Now().UTC(),
	}

	err := pub.Publish(ctx, domain.NewDepositedEvent(movement))
	require.NoError(t, err)

	entries, err := client.XRange(ctx, "vault:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	values := entries[0].Values
	assert.Equal(t, string(domain.EventDeposited), values["type"])
	assert.Equal(t, accountID.String(), values["account_id"])
	assert.Equal(t, "100", values["amount"])
	assert.Equal(t, "100", values["balance"])
}

func TestEventPublisher_Publish_WithdrawnEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	pub := redis.NewEventPublisher(client)
	ctx := context.Background()

	movement := &domain.Movement{
		ID:           uuid.New(),
		VaultID:      uuid.New(),
		AccountID:    uuid.New(),
		MovementType: domain.MovementTypeWithdrawal,
		Amount:       40,
		BalanceAfter: 60,
		CreatedAt:    time.Now().UTC(),
	}

	err := pub.Publish(ctx, domain.NewWithdrawnEvent(movement))
	require.NoError(t, err)

	entries, err := client.XRange(ctx, "vault:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(domain.EventWithdrawn), entries[0].Values["type"])
	assert.Equal(t, "60", entries[0].Values["balance"])
}
