// Package tracks is the per-project track store. A track's lifecycle is
// uploading -> {ready, failed}; ready <-> playing; failed is terminal. At
// most one track per project is playing at any time.
package tracks

import (
	"context"
	"sync"
	"time"

	"orpheus/core/event"
	"orpheus/core/registry"
	"orpheus/fault"
	"orpheus/logger"
	"orpheus/model"
	"orpheus/repository"

	"github.com/google/uuid"
)

// Store is the track store. Mutations run inside the owning project's
// critical section, shared with the registry and ledger.
type Store struct {
	registry *registry.Registry

	mu        sync.RWMutex // guards the arena maps themselves
	tracks    map[string]*model.Track
	byProject map[string][]string // project id -> track ids in upload order
	nextSeq   int64

	repo repository.TrackRepository
	bus  *event.Bus
	now  func() time.Time
}

// NewStore creates a track store bound to the registry's critical sections.
// repo may be nil when running without durable storage.
func NewStore(reg *registry.Registry, repo repository.TrackRepository, bus *event.Bus) *Store {
	return &Store{
		registry:  reg,
		tracks:    make(map[string]*model.Track),
		byProject: make(map[string][]string),
		repo:      repo,
		bus:       bus,
		now:       time.Now,
	}
}

// Load rebuilds the arena from the repository at startup.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	stored, err := s.repo.LoadTracks(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range stored {
		track := *t
		s.tracks[track.ID] = &track
		s.byProject[track.ProjectID] = append(s.byProject[track.ProjectID], track.ID)
		if track.Seq > s.nextSeq {
			s.nextSeq = track.Seq
		}
	}

	logger.Info("track store loaded", logger.Int("tracks", len(stored)))
	return nil
}

// BeginUpload registers a new track in the uploading state. The uploader
// must be a collaborator of the project; binary bytes travel out of band.
func (s *Store) BeginUpload(ctx context.Context, projectID, uploaderID, name string, expectedSizeBytes int64) (*model.Track, error) {
	if name == "" {
		return nil, fault.Validationf("track name cannot be empty")
	}
	if expectedSizeBytes < 0 {
		return nil, fault.Validationf("expected size cannot be negative")
	}

	var created model.Track
	err := s.registry.WithProject(projectID, func(v *registry.View) error {
		if !v.IsCollaborator(uploaderID) {
			return fault.Permissionf("identity %s is not a collaborator of project %s", uploaderID, projectID)
		}

		now := s.now()
		s.mu.Lock()
		s.nextSeq++
		created = model.Track{
			ID:         uuid.NewString(),
			ProjectID:  projectID,
			Name:       name,
			UploadedBy: uploaderID,
			SizeBytes:  expectedSizeBytes,
			Status:     model.TrackStatusUploading,
			Seq:        s.nextSeq,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		stored := created
		s.tracks[created.ID] = &stored
		s.byProject[projectID] = append(s.byProject[projectID], created.ID)
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.persist(ctx, &created)
	s.publishStatus(&created)

	logger.Info("upload started",
		logger.String("projectId", projectID),
		logger.String("trackId", created.ID),
		logger.String("uploader", uploaderID),
		logger.String("name", name))
	return &created, nil
}

// CompleteUpload transitions uploading -> ready with the observed metadata.
func (s *Store) CompleteUpload(ctx context.Context, trackID string, actualSizeBytes int64, durationSeconds float64) error {
	if actualSizeBytes < 0 {
		return fault.Validationf("actual size cannot be negative")
	}
	if durationSeconds < 0 {
		return fault.Validationf("duration cannot be negative")
	}

	return s.transition(ctx, trackID, func(track *model.Track) error {
		if track.Status != model.TrackStatusUploading {
			return fault.InvalidStatef("track %s is %s, not uploading", trackID, track.Status)
		}
		track.Status = model.TrackStatusReady
		track.SizeBytes = actualSizeBytes
		track.DurationSeconds = durationSeconds
		return nil
	})
}

// FailUpload transitions uploading -> failed (terminal). Idempotent when
// the track already failed.
func (s *Store) FailUpload(ctx context.Context, trackID, reason string) error {
	return s.transition(ctx, trackID, func(track *model.Track) error {
		if track.Status == model.TrackStatusFailed {
			return nil
		}
		if track.Status != model.TrackStatusUploading {
			return fault.InvalidStatef("track %s is %s, not uploading", trackID, track.Status)
		}
		track.Status = model.TrackStatusFailed
		track.FailReason = reason
		return nil
	})
}

// TogglePlayback starts playback of a ready track, demoting any other
// playing track in the project, or pauses the track when it is already
// playing.
func (s *Store) TogglePlayback(ctx context.Context, projectID, trackID string) error {
	var changed []model.Track
	err := s.registry.WithProject(projectID, func(*registry.View) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		track, ok := s.tracks[trackID]
		if !ok || track.ProjectID != projectID {
			return fault.NotFoundf("track %s in project %s", trackID, projectID)
		}

		now := s.now()
		switch track.Status {
		case model.TrackStatusPlaying:
			track.Status = model.TrackStatusReady
			track.UpdatedAt = now
			changed = append(changed, *track)
		case model.TrackStatusReady:
			for _, otherID := range s.byProject[projectID] {
				other := s.tracks[otherID]
				if other.Status == model.TrackStatusPlaying {
					other.Status = model.TrackStatusReady
					other.UpdatedAt = now
					changed = append(changed, *other)
				}
			}
			track.Status = model.TrackStatusPlaying
			track.UpdatedAt = now
			changed = append(changed, *track)
		default:
			return fault.InvalidStatef("track %s is %s and cannot be played", trackID, track.Status)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i := range changed {
		s.persist(ctx, &changed[i])
		s.publishStatus(&changed[i])
	}
	return nil
}

// DeleteTrack removes a track. Only the uploader or the project owner may
// delete. Deleting the playing track leaves the project with no playback.
func (s *Store) DeleteTrack(ctx context.Context, trackID, requesterID string) error {
	s.mu.RLock()
	track, ok := s.tracks[trackID]
	s.mu.RUnlock()
	if !ok {
		return fault.NotFoundf("track %s", trackID)
	}
	projectID := track.ProjectID

	var removed model.Track
	err := s.registry.WithProject(projectID, func(v *registry.View) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		track, ok := s.tracks[trackID]
		if !ok {
			return fault.NotFoundf("track %s", trackID)
		}
		if requesterID != track.UploadedBy && requesterID != v.Project.OwnerID {
			return fault.Permissionf("identity %s may not delete track %s", requesterID, trackID)
		}

		removed = *track
		delete(s.tracks, trackID)
		ids := s.byProject[projectID]
		for i, id := range ids {
			if id == trackID {
				s.byProject[projectID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.repo != nil {
		if err := s.repo.DeleteTrack(ctx, trackID); err != nil {
			logger.Error("failed to delete track row", logger.ErrorField(err))
		}
	}
	if s.bus != nil {
		s.bus.Publish(model.EventTrackStatusChanged, projectID, map[string]string{
			"trackId": trackID,
			"status":  "deleted",
		})
	}

	logger.Info("track deleted",
		logger.String("projectId", projectID),
		logger.String("trackId", trackID),
		logger.String("requester", requesterID),
		logger.String("lastStatus", removed.Status))
	return nil
}

// ListTracks returns the project's tracks in upload order. Read-only:
// returned values are copies.
func (s *Store) ListTracks(_ context.Context, projectID string) ([]model.Track, error) {
	var out []model.Track
	err := s.registry.WithProject(projectID, func(*registry.View) error {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for _, id := range s.byProject[projectID] {
			out = append(out, *s.tracks[id])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetTrack returns a copy of one track.
func (s *Store) GetTrack(_ context.Context, trackID string) (*model.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	track, ok := s.tracks[trackID]
	if !ok {
		return nil, fault.NotFoundf("track %s", trackID)
	}
	copied := *track
	return &copied, nil
}

// PlayingTrack returns the id of the project's playing track, or "" when
// nothing is playing.
func (s *Store) PlayingTrack(_ context.Context, projectID string) (string, error) {
	var playing string
	err := s.registry.WithProject(projectID, func(*registry.View) error {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for _, id := range s.byProject[projectID] {
			if s.tracks[id].Status == model.TrackStatusPlaying {
				playing = id
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return playing, nil
}

// transition applies fn to a track inside its project's critical section
// and persists the result when the state changed.
func (s *Store) transition(ctx context.Context, trackID string, fn func(track *model.Track) error) error {
	s.mu.RLock()
	track, ok := s.tracks[trackID]
	s.mu.RUnlock()
	if !ok {
		return fault.NotFoundf("track %s", trackID)
	}
	projectID := track.ProjectID

	var updated model.Track
	var statusChanged bool
	err := s.registry.WithProject(projectID, func(*registry.View) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		track, ok := s.tracks[trackID]
		if !ok {
			return fault.NotFoundf("track %s", trackID)
		}
		before := track.Status
		if err := fn(track); err != nil {
			return err
		}
		if track.Status != before {
			track.UpdatedAt = s.now()
			statusChanged = true
		}
		updated = *track
		return nil
	})
	if err != nil {
		return err
	}

	if statusChanged {
		s.persist(ctx, &updated)
		s.publishStatus(&updated)
	}
	return nil
}

func (s *Store) persist(ctx context.Context, track *model.Track) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveTrack(ctx, track); err != nil {
		logger.Error("failed to persist track", logger.ErrorField(err))
	}
}

func (s *Store) publishStatus(track *model.Track) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(model.EventTrackStatusChanged, track.ProjectID, map[string]string{
		"trackId": track.ID,
		"status":  track.Status,
	})
}
