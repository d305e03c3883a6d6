// Package events announces entitlement changes so open sessions know to
// re-resolve their effective settings.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Type names what changed.
type Type string

const (
	TierUpdated       Type = "tier.updated"
	TierDeleted       Type = "tier.deleted"
	OverrideUpserted  Type = "override.upserted"
	OverrideDeleted   Type = "override.deleted"
	AddonPurchased    Type = "addon.purchased"
	AddonCancelled    Type = "addon.cancelled"
	InventoryModified Type = "inventory.modified"
)

// Event is the JSON payload published on the channel. OrganizationID is nil
// for tier events, which affect every subscriber of the tier.
type Event struct {
	Type           Type       `json:"type"`
	OrganizationID *uuid.UUID `json:"organizationId,omitempty"`
	TierID         *uuid.UUID `json:"tierId,omitempty"`
	OccurredAt     time.Time  `json:"occurredAt"`
}

// Publisher sends events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// RedisPublisher publishes events with Redis PUBLISH.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects to the Redis server at url and verifies the
// connection.
func NewRedisPublisher(ctx context.Context, url, channel string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisPublisher{client: client, channel: channel}, nil
}

// Publish sends e as JSON. A zero OccurredAt is set to now.
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Notify publishes e, logging a failure instead of returning it.
func Notify(ctx context.Context, p Publisher, e Event) {
	if err := p.Publish(ctx, e); err != nil {
		slog.Warn("failed to publish entitlement event", "error", err, "type", e.Type)
	}
}

// ForOrganization builds an event about one organization.
func ForOrganization(t Type, orgID uuid.UUID) Event {
	return Event{Type: t, OrganizationID: &orgID}
}

// ForTier builds an event about a tier.
func ForTier(t Type, tierID uuid.UUID) Event {
	return Event{Type: t, TierID: &tierID}
}
