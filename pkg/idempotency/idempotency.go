// Package idempotency deduplicates at-least-once event deliveries with a
// Redis claim per (consumer, event) pair.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/commission-engine/pkg/redis"
)

// DefaultTTL covers the longest Pub/Sub redelivery window.
const DefaultTTL = 30 * 24 * time.Hour

var (
	errConsumerRequired = errors.New("consumer name is required")
	errEventRequired    = errors.New("event id is required")
)

// Manager issues claims stored as cm:idempotency:<consumer>:<event_id>. The
// stored value is the claim time, for operators.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

// NewManager builds a Manager. A zero ttl selects DefaultTTL.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	case ttl == 0:
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// Claim marks eventID as taken by consumer. It reports false when an earlier
// delivery already holds the claim.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return m.store.SetNX(ctx, key, m.now().UTC().Format(time.RFC3339), m.ttl)
}

// Release drops the claim so a redelivery is processed again.
func (m *Manager) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errConsumerRequired
	}
	if eventID == uuid.Nil {
		return "", errEventRequired
	}
	return m.store.IdempotencyKey(consumer, eventID.String()), nil
}
