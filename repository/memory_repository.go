package repository

import (
	"context"
	"sync"

	"orpheus/model"
)

// MemoryProjectRepository is an in-memory ProjectRepository. Used by tests
// and when the server runs without a database.
type MemoryProjectRepository struct {
	mu            sync.Mutex
	projects      map[string]model.Project
	collaborators []model.ProjectCollaborator
	splits        map[string]model.OwnershipSplit
	audits        map[string][]model.SplitAudit
	nextAuditID   int64
}

// NewMemoryProjectRepository creates an empty in-memory project repository.
func NewMemoryProjectRepository() *MemoryProjectRepository {
	return &MemoryProjectRepository{
		projects: make(map[string]model.Project),
		splits:   make(map[string]model.OwnershipSplit),
		audits:   make(map[string][]model.SplitAudit),
	}
}

func (r *MemoryProjectRepository) SaveProject(_ context.Context, project *model.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[project.ID] = *project
	return nil
}

func (r *MemoryProjectRepository) SaveCollaborator(_ context.Context, collaborator *model.ProjectCollaborator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.collaborators {
		if c.ProjectID == collaborator.ProjectID && c.IdentityID == collaborator.IdentityID {
			return nil
		}
	}
	collaborator.ID = int64(len(r.collaborators) + 1)
	r.collaborators = append(r.collaborators, *collaborator)
	return nil
}

func (r *MemoryProjectRepository) SaveSplit(_ context.Context, split *model.OwnershipSplit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *split
	stored.Entries = append(model.SplitEntryList(nil), split.Entries...)
	r.splits[split.ProjectID] = stored
	return nil
}

func (r *MemoryProjectRepository) AppendAudit(_ context.Context, audit *model.SplitAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextAuditID++
	audit.ID = r.nextAuditID
	r.audits[audit.ProjectID] = append(r.audits[audit.ProjectID], *audit)
	return nil
}

func (r *MemoryProjectRepository) LoadProjects(_ context.Context) ([]*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Project, 0, len(r.projects))
	for id := range r.projects {
		p := r.projects[id]
		out = append(out, &p)
	}
	return out, nil
}

func (r *MemoryProjectRepository) LoadCollaborators(_ context.Context) ([]*model.ProjectCollaborator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.ProjectCollaborator, 0, len(r.collaborators))
	for i := range r.collaborators {
		c := r.collaborators[i]
		out = append(out, &c)
	}
	return out, nil
}

func (r *MemoryProjectRepository) LoadSplits(_ context.Context) ([]*model.OwnershipSplit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.OwnershipSplit, 0, len(r.splits))
	for id := range r.splits {
		s := r.splits[id]
		out = append(out, &s)
	}
	return out, nil
}

func (r *MemoryProjectRepository) LoadAudits(_ context.Context) ([]*model.SplitAudit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SplitAudit
	for _, stored := range r.audits {
		for i := range stored {
			a := stored[i]
			out = append(out, &a)
		}
	}
	return out, nil
}

// MemoryTrackRepository is an in-memory TrackRepository.
type MemoryTrackRepository struct {
	mu      sync.Mutex
	tracks  map[string]model.Track
	nextSeq int64
}

// NewMemoryTrackRepository creates an empty in-memory track repository.
func NewMemoryTrackRepository() *MemoryTrackRepository {
	return &MemoryTrackRepository{tracks: make(map[string]model.Track)}
}

func (r *MemoryTrackRepository) SaveTrack(_ context.Context, track *model.Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if track.Seq == 0 {
		r.nextSeq++
		track.Seq = r.nextSeq
	}
	r.tracks[track.ID] = *track
	return nil
}

func (r *MemoryTrackRepository) DeleteTrack(_ context.Context, trackID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tracks, trackID)
	return nil
}

func (r *MemoryTrackRepository) LoadTracks(_ context.Context) ([]*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Track, 0, len(r.tracks))
	for id := range r.tracks {
		t := r.tracks[id]
		out = append(out, &t)
	}
	return out, nil
}
