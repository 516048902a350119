package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	presenceKey    = "project:%s:presence:%s" // heartbeat key per (projectID, identityID)
	presenceSetKey = "project:%s:online"      // Set: identities seen recently
	presenceSetTTL = 24 * time.Hour
)

// PresenceCache mirrors project presence into Redis so other instances can
// read who is connected. The in-process coordinator stays authoritative;
// mirror failures are never fatal.
type PresenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPresenceCache creates a presence cache. ttl is how long a heartbeat
// stays valid.
func NewPresenceCache(client *redis.Client, ttl time.Duration) *PresenceCache {
	return &PresenceCache{client: client, ttl: ttl}
}

// Touch refreshes an identity's heartbeat key and membership.
func (c *PresenceCache) Touch(ctx context.Context, projectID, identityID string) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	hbKey := fmt.Sprintf(presenceKey, projectID, identityID)
	setKey := fmt.Sprintf(presenceSetKey, projectID)

	pipe := c.client.Pipeline()
	pipe.Set(ctx, hbKey, time.Now().UnixMilli(), c.ttl)
	pipe.SAdd(ctx, setKey, identityID)
	pipe.Expire(ctx, setKey, presenceSetTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Remove drops an identity's presence.
func (c *PresenceCache) Remove(ctx context.Context, projectID, identityID string) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	hbKey := fmt.Sprintf(presenceKey, projectID, identityID)
	setKey := fmt.Sprintf(presenceSetKey, projectID)

	pipe := c.client.Pipeline()
	pipe.Del(ctx, hbKey)
	pipe.SRem(ctx, setKey, identityID)
	_, err := pipe.Exec(ctx)
	return err
}

// ListPresent returns identities with a live heartbeat, pruning expired
// entries from the membership set as a side effect.
func (c *PresenceCache) ListPresent(ctx context.Context, projectID string) ([]string, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	setKey := fmt.Sprintf(presenceSetKey, projectID)
	members, err := c.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []string{}, nil
	}

	present := make([]string, 0, len(members))
	expired := make([]interface{}, 0)
	for _, identityID := range members {
		hbKey := fmt.Sprintf(presenceKey, projectID, identityID)
		exists, err := c.client.Exists(ctx, hbKey).Result()
		if err != nil {
			continue
		}
		if exists > 0 {
			present = append(present, identityID)
		} else {
			expired = append(expired, identityID)
		}
	}

	if len(expired) > 0 {
		c.client.SRem(ctx, setKey, expired...)
	}
	return present, nil
}
