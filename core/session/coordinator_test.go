package session

import (
	"context"
	"testing"
	"time"

	"orpheus/config"
	"orpheus/core/registry"
	"orpheus/core/tracks"
	"orpheus/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *tracks.Store, string) {
	t.Helper()
	ctx := context.Background()
	reg := registry.NewRegistry(repository.NewMemoryProjectRepository(), nil, config.InviteAnyCollaborator)
	store := tracks.NewStore(reg, repository.NewMemoryTrackRepository(), nil)
	coord := NewCoordinator(store, nil, DefaultPresenceTTL)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	return coord, store, project.ID
}

func TestMarkPresentIdempotent(t *testing.T) {
	ctx := context.Background()
	coord, _, projectID := newTestCoordinator(t)

	coord.MarkPresent(ctx, projectID, "alice")
	coord.MarkPresent(ctx, projectID, "alice")
	coord.MarkPresent(ctx, projectID, "bob")

	assert.Equal(t, []string{"alice", "bob"}, coord.ListPresent(ctx, projectID))
}

func TestMarkAbsent(t *testing.T) {
	ctx := context.Background()
	coord, _, projectID := newTestCoordinator(t)

	coord.MarkPresent(ctx, projectID, "alice")
	coord.MarkPresent(ctx, projectID, "bob")
	coord.MarkAbsent(ctx, projectID, "alice")

	assert.Equal(t, []string{"bob"}, coord.ListPresent(ctx, projectID))

	// Absent for an identity never marked present is a no-op.
	coord.MarkAbsent(ctx, projectID, "carol")
	assert.Equal(t, []string{"bob"}, coord.ListPresent(ctx, projectID))
}

func TestListPresentFiltersStaleHeartbeats(t *testing.T) {
	ctx := context.Background()
	coord, _, projectID := newTestCoordinator(t)

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	coord.now = func() time.Time { return clock }

	coord.MarkPresent(ctx, projectID, "alice")
	clock = clock.Add(10 * time.Second)
	coord.MarkPresent(ctx, projectID, "bob")

	// alice's heartbeat is now older than the TTL, bob's is not.
	clock = clock.Add(25 * time.Second)
	assert.Equal(t, []string{"bob"}, coord.ListPresent(ctx, projectID))

	// A fresh heartbeat brings alice back.
	coord.MarkPresent(ctx, projectID, "alice")
	assert.Equal(t, []string{"alice", "bob"}, coord.ListPresent(ctx, projectID))
}

func TestSweepEvictsStaleEntries(t *testing.T) {
	ctx := context.Background()
	coord, _, projectID := newTestCoordinator(t)

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	coord.now = func() time.Time { return clock }

	coord.MarkPresent(ctx, projectID, "alice")
	clock = clock.Add(DefaultPresenceTTL + time.Second)
	coord.sweep()

	coord.mu.RLock()
	_, ok := coord.presence[projectID]
	coord.mu.RUnlock()
	assert.False(t, ok)
	assert.Empty(t, coord.ListPresent(ctx, projectID))
}

func TestCurrentlyPlayingDelegatesToStore(t *testing.T) {
	ctx := context.Background()
	coord, store, projectID := newTestCoordinator(t)

	playing, err := coord.CurrentlyPlaying(ctx, projectID)
	require.NoError(t, err)
	assert.Empty(t, playing)

	track, err := store.BeginUpload(ctx, projectID, "alice", "one.wav", 10)
	require.NoError(t, err)
	require.NoError(t, store.CompleteUpload(ctx, track.ID, 10, 1))
	require.NoError(t, store.TogglePlayback(ctx, projectID, track.ID))

	playing, err = coord.CurrentlyPlaying(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, track.ID, playing)
}
