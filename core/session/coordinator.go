// Package session tracks which collaborators are currently present in a
// project and answers what is playing. Presence is transient process state
// rebuilt from heartbeats; it is eventually consistent and tolerant of
// out-of-order heartbeats. Playback authority stays with the track store.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"orpheus/cache"
	"orpheus/core/tracks"
	"orpheus/logger"
)

// DefaultPresenceTTL is how long an identity stays present without a
// heartbeat before the sweeper evicts it.
const DefaultPresenceTTL = 30 * time.Second

// Coordinator arbitrates presence per project. The optional Redis mirror
// lets other instances observe presence; the in-memory map is authoritative
// for this process.
type Coordinator struct {
	mu       sync.RWMutex
	presence map[string]map[string]time.Time // projectID -> identityID -> lastSeen

	store  *tracks.Store
	mirror *cache.PresenceCache
	ttl    time.Duration
	now    func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewCoordinator creates a session coordinator. mirror may be nil; ttl <= 0
// falls back to DefaultPresenceTTL.
func NewCoordinator(store *tracks.Store, mirror *cache.PresenceCache, ttl time.Duration) *Coordinator {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &Coordinator{
		presence: make(map[string]map[string]time.Time),
		store:    store,
		mirror:   mirror,
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// MarkPresent records a heartbeat for the identity. Idempotent: duplicate
// calls only refresh the lastSeen timestamp.
func (c *Coordinator) MarkPresent(ctx context.Context, projectID, identityID string) {
	c.mu.Lock()
	ids, ok := c.presence[projectID]
	if !ok {
		ids = make(map[string]time.Time)
		c.presence[projectID] = ids
	}
	ids[identityID] = c.now()
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.Touch(ctx, projectID, identityID); err != nil {
			logger.Warn("failed to mirror presence", logger.ErrorField(err))
		}
	}
}

// MarkAbsent removes the identity from the project's presence set.
func (c *Coordinator) MarkAbsent(ctx context.Context, projectID, identityID string) {
	c.mu.Lock()
	if ids, ok := c.presence[projectID]; ok {
		delete(ids, identityID)
		if len(ids) == 0 {
			delete(c.presence, projectID)
		}
	}
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.Remove(ctx, projectID, identityID); err != nil {
			logger.Warn("failed to remove mirrored presence", logger.ErrorField(err))
		}
	}
}

// ListPresent returns a sorted snapshot of identities currently present.
func (c *Coordinator) ListPresent(_ context.Context, projectID string) []string {
	cutoff := c.now().Add(-c.ttl)

	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.presence[projectID]
	out := make([]string, 0, len(ids))
	for identityID, lastSeen := range ids {
		if lastSeen.After(cutoff) {
			out = append(out, identityID)
		}
	}
	sort.Strings(out)
	return out
}

// CurrentlyPlaying returns the project's playing track id, or "" when
// nothing is playing. The coordinator holds no separate playback truth; it
// queries the track store.
func (c *Coordinator) CurrentlyPlaying(ctx context.Context, projectID string) (string, error) {
	return c.store.PlayingTrack(ctx, projectID)
}

// StartEviction runs a background sweep that evicts identities whose
// heartbeats have gone silent for longer than the TTL. Best-effort, not a
// correctness requirement: ListPresent filters stale entries regardless.
func (c *Coordinator) StartEviction(interval time.Duration) {
	if interval <= 0 {
		interval = c.ttl / 2
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop halts the eviction sweep.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Coordinator) sweep() {
	cutoff := c.now().Add(-c.ttl)
	evicted := 0

	c.mu.Lock()
	for projectID, ids := range c.presence {
		for identityID, lastSeen := range ids {
			if !lastSeen.After(cutoff) {
				delete(ids, identityID)
				evicted++
			}
		}
		if len(ids) == 0 {
			delete(c.presence, projectID)
		}
	}
	c.mu.Unlock()

	if evicted > 0 {
		logger.Debug("evicted stale presence entries", logger.Int("count", evicted))
	}
}
