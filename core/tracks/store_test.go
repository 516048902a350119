package tracks

import (
	"context"
	"errors"
	"testing"

	"orpheus/config"
	"orpheus/core/registry"
	"orpheus/fault"
	"orpheus/model"
	"orpheus/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*registry.Registry, *Store, string) {
	t.Helper()
	ctx := context.Background()
	reg := registry.NewRegistry(repository.NewMemoryProjectRepository(), nil, config.InviteAnyCollaborator)
	store := NewStore(reg, repository.NewMemoryTrackRepository(), nil)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "bob"))
	return reg, store, project.ID
}

func TestUploadLifecycle(t *testing.T) {
	ctx := context.Background()
	_, store, projectID := newTestStore(t)

	track, err := store.BeginUpload(ctx, projectID, "bob", "Main Melody.wav", 1024)
	require.NoError(t, err)
	assert.Equal(t, model.TrackStatusUploading, track.Status)
	assert.Equal(t, "bob", track.UploadedBy)

	require.NoError(t, store.CompleteUpload(ctx, track.ID, 2048, 187.5))

	got, err := store.GetTrack(ctx, track.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TrackStatusReady, got.Status)
	assert.Equal(t, int64(2048), got.SizeBytes)
	assert.Equal(t, 187.5, got.DurationSeconds)

	// Completing twice is an invalid transition.
	err = store.CompleteUpload(ctx, track.ID, 2048, 187.5)
	assert.True(t, errors.Is(err, fault.ErrInvalidState))
}

func TestBeginUploadPermissionAndValidation(t *testing.T) {
	ctx := context.Background()
	_, store, projectID := newTestStore(t)

	_, err := store.BeginUpload(ctx, projectID, "mallory", "intruder.wav", 10)
	assert.True(t, errors.Is(err, fault.ErrPermission))

	_, err = store.BeginUpload(ctx, projectID, "alice", "", 10)
	assert.True(t, errors.Is(err, fault.ErrValidation))

	_, err = store.BeginUpload(ctx, projectID, "alice", "demo.wav", -1)
	assert.True(t, errors.Is(err, fault.ErrValidation))

	_, err = store.BeginUpload(ctx, "missing", "alice", "demo.wav", 10)
	assert.True(t, errors.Is(err, fault.ErrNotFound))
}

func TestFailUploadIsTerminalAndIdempotent(t *testing.T) {
	ctx := context.Background()
	_, store, projectID := newTestStore(t)

	track, err := store.BeginUpload(ctx, projectID, "alice", "broken.wav", 10)
	require.NoError(t, err)

	require.NoError(t, store.FailUpload(ctx, track.ID, "connection reset"))
	require.NoError(t, store.FailUpload(ctx, track.ID, "again"))

	got, err := store.GetTrack(ctx, track.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TrackStatusFailed, got.Status)
	assert.Equal(t, "connection reset", got.FailReason)

	// Failed is terminal.
	err = store.CompleteUpload(ctx, track.ID, 10, 1)
	assert.True(t, errors.Is(err, fault.ErrInvalidState))
	err = store.TogglePlayback(ctx, projectID, track.ID)
	assert.True(t, errors.Is(err, fault.ErrInvalidState))

	// Failing a ready track is also invalid.
	ready, err := store.BeginUpload(ctx, projectID, "alice", "fine.wav", 10)
	require.NoError(t, err)
	require.NoError(t, store.CompleteUpload(ctx, ready.ID, 10, 1))
	err = store.FailUpload(ctx, ready.ID, "late failure")
	assert.True(t, errors.Is(err, fault.ErrInvalidState))
}

func uploadReady(t *testing.T, store *Store, projectID, uploader, name string) *model.Track {
	t.Helper()
	ctx := context.Background()
	track, err := store.BeginUpload(ctx, projectID, uploader, name, 100)
	require.NoError(t, err)
	require.NoError(t, store.CompleteUpload(ctx, track.ID, 100, 60))
	return track
}

func TestTogglePlaybackSingle(t *testing.T) {
	ctx := context.Background()
	_, store, projectID := newTestStore(t)

	track := uploadReady(t, store, projectID, "alice", "one.wav")

	require.NoError(t, store.TogglePlayback(ctx, projectID, track.ID))
	playing, err := store.PlayingTrack(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, track.ID, playing)

	// Toggling again pauses.
	require.NoError(t, store.TogglePlayback(ctx, projectID, track.ID))
	playing, err = store.PlayingTrack(ctx, projectID)
	require.NoError(t, err)
	assert.Empty(t, playing)
}

func TestTogglePlaybackDemotesOthers(t *testing.T) {
	ctx := context.Background()
	_, store, projectID := newTestStore(t)

	first := uploadReady(t, store, projectID, "alice", "one.wav")
	second := uploadReady(t, store, projectID, "bob", "two.wav")

	require.NoError(t, store.TogglePlayback(ctx, projectID, first.ID))
	require.NoError(t, store.TogglePlayback(ctx, projectID, second.ID))

	got, err := store.GetTrack(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TrackStatusReady, got.Status)

	playing, err := store.PlayingTrack(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, playing)

	// Never more than one playing track, across any toggle sequence.
	for _, id := range []string{first.ID, second.ID, first.ID, first.ID, second.ID} {
		require.NoError(t, store.TogglePlayback(ctx, projectID, id))
		tracks, err := store.ListTracks(ctx, projectID)
		require.NoError(t, err)
		playingCount := 0
		for _, tr := range tracks {
			if tr.Status == model.TrackStatusPlaying {
				playingCount++
			}
		}
		assert.LessOrEqual(t, playingCount, 1)
	}
}

func TestTogglePlaybackWrongProject(t *testing.T) {
	ctx := context.Background()
	reg, store, projectID := newTestStore(t)

	other, err := reg.CreateProject(ctx, "alice", "Other Project")
	require.NoError(t, err)
	track := uploadReady(t, store, projectID, "alice", "one.wav")

	err = store.TogglePlayback(ctx, other.ID, track.ID)
	assert.True(t, errors.Is(err, fault.ErrNotFound))
}

func TestDeleteTrack(t *testing.T) {
	ctx := context.Background()
	_, store, projectID := newTestStore(t)

	track := uploadReady(t, store, projectID, "bob", "one.wav")

	// Neither uploader nor owner.
	err := store.DeleteTrack(ctx, track.ID, "mallory")
	assert.True(t, errors.Is(err, fault.ErrPermission))

	// The project owner may delete another collaborator's track.
	require.NoError(t, store.DeleteTrack(ctx, track.ID, "alice"))
	_, err = store.GetTrack(ctx, track.ID)
	assert.True(t, errors.Is(err, fault.ErrNotFound))
}

func TestDeletePlayingTrackClearsPlayback(t *testing.T) {
	ctx := context.Background()
	_, store, projectID := newTestStore(t)

	track := uploadReady(t, store, projectID, "bob", "one.wav")
	require.NoError(t, store.TogglePlayback(ctx, projectID, track.ID))

	require.NoError(t, store.DeleteTrack(ctx, track.ID, "bob"))

	playing, err := store.PlayingTrack(ctx, projectID)
	require.NoError(t, err)
	assert.Empty(t, playing)
}

func TestListTracksUploadOrder(t *testing.T) {
	ctx := context.Background()
	_, store, projectID := newTestStore(t)

	first := uploadReady(t, store, projectID, "alice", "one.wav")
	second := uploadReady(t, store, projectID, "alice", "two.wav")

	tracks, err := store.ListTracks(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, first.ID, tracks[0].ID)
	assert.Equal(t, second.ID, tracks[1].ID)
}

func TestStoreLoadRebuildsArena(t *testing.T) {
	ctx := context.Background()
	projectRepo := repository.NewMemoryProjectRepository()
	trackRepo := repository.NewMemoryTrackRepository()
	reg := registry.NewRegistry(projectRepo, nil, config.InviteAnyCollaborator)
	store := NewStore(reg, trackRepo, nil)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	track, err := store.BeginUpload(ctx, project.ID, "alice", "one.wav", 10)
	require.NoError(t, err)
	require.NoError(t, store.CompleteUpload(ctx, track.ID, 10, 1))

	reloadedReg := registry.NewRegistry(projectRepo, nil, config.InviteAnyCollaborator)
	require.NoError(t, reloadedReg.Load(ctx))
	reloaded := NewStore(reloadedReg, trackRepo, nil)
	require.NoError(t, reloaded.Load(ctx))

	got, err := reloaded.GetTrack(ctx, track.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TrackStatusReady, got.Status)
}
