// Package registry owns the project arena: project records, collaborator
// membership and the per-project critical section that the ledger and track
// store share. All mutating operations on one project are serialized behind
// that project's mutex; unrelated projects proceed concurrently.
package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"orpheus/config"
	"orpheus/core/event"
	"orpheus/fault"
	"orpheus/logger"
	"orpheus/model"
	"orpheus/repository"

	"github.com/google/uuid"
)

// projectState is one project's live record plus its critical section.
type projectState struct {
	mu            sync.Mutex
	project       model.Project
	collaborators []model.ProjectCollaborator // join order
}

// View exposes a project's record and membership to sibling components
// while they hold its critical section.
type View struct {
	Project       *model.Project
	Collaborators []model.ProjectCollaborator
}

// IsCollaborator reports whether the identity is a current member.
func (v *View) IsCollaborator(identityID string) bool {
	for _, c := range v.Collaborators {
		if c.IdentityID == identityID {
			return true
		}
	}
	return false
}

// JoinIndex returns the identity's join order, or -1 when not a member.
func (v *View) JoinIndex(identityID string) int {
	for i, c := range v.Collaborators {
		if c.IdentityID == identityID {
			return i
		}
	}
	return -1
}

// Registry is the project registry.
type Registry struct {
	mu       sync.RWMutex // guards projects and order, never held across a project lock
	projects map[string]*projectState
	order    []string // project ids in creation order

	repo   repository.ProjectRepository
	bus    *event.Bus
	policy config.InvitePolicy
	now    func() time.Time
}

// NewRegistry creates a project registry. repo may be nil when running
// without durable storage.
func NewRegistry(repo repository.ProjectRepository, bus *event.Bus, policy config.InvitePolicy) *Registry {
	return &Registry{
		projects: make(map[string]*projectState),
		repo:     repo,
		bus:      bus,
		policy:   policy,
		now:      time.Now,
	}
}

// Load rebuilds the arena from the repository at startup.
func (r *Registry) Load(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}

	projects, err := r.repo.LoadProjects(ctx)
	if err != nil {
		return err
	}
	collaborators, err := r.repo.LoadCollaborators(ctx)
	if err != nil {
		return err
	}

	byProject := make(map[string][]model.ProjectCollaborator)
	for _, c := range collaborators {
		byProject[c.ProjectID] = append(byProject[c.ProjectID], *c)
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].Seq < projects[j].Seq })

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range projects {
		r.projects[p.ID] = &projectState{
			project:       *p,
			collaborators: byProject[p.ID],
		}
		r.order = append(r.order, p.ID)
	}

	logger.Info("project registry loaded", logger.Int("projects", len(projects)))
	return nil
}

// state returns a project's state, or nil when unknown.
func (r *Registry) state(projectID string) *projectState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.projects[projectID]
}

// withProjectState runs fn while holding the project's mutex.
func (r *Registry) withProjectState(projectID string, fn func(ps *projectState) error) error {
	ps := r.state(projectID)
	if ps == nil {
		return fault.NotFoundf("project %s", projectID)
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	return fn(ps)
}

// WithProject runs fn inside the project's exclusive critical section.
// Sibling components (ledger, track store) mutate their per-project state
// through this so that every invariant-sensitive change is serialized.
func (r *Registry) WithProject(projectID string, fn func(v *View) error) error {
	return r.withProjectState(projectID, func(ps *projectState) error {
		return fn(&View{Project: &ps.project, Collaborators: ps.collaborators})
	})
}

// CreateProject creates a project owned by ownerID with the owner as the
// sole collaborator. The ownership split defaults to owner = 100% until the
// first rebalance.
func (r *Registry) CreateProject(ctx context.Context, ownerID, name string) (*model.ProjectInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fault.Validationf("project name cannot be empty")
	}
	if ownerID == "" {
		return nil, fault.Validationf("owner identity cannot be empty")
	}

	now := r.now()
	project := model.Project{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := model.ProjectCollaborator{
		ProjectID:  project.ID,
		IdentityID: ownerID,
		Role:       model.CollaboratorRoleOwner,
		JoinedAt:   now,
	}

	r.mu.Lock()
	project.Seq = int64(len(r.order) + 1)
	r.projects[project.ID] = &projectState{
		project:       project,
		collaborators: []model.ProjectCollaborator{owner},
	}
	r.order = append(r.order, project.ID)
	r.mu.Unlock()

	r.persistProject(ctx, &project, &owner)
	if r.bus != nil {
		r.bus.Publish(model.EventProjectCreated, project.ID, map[string]string{
			"name":  project.Name,
			"owner": project.OwnerID,
		})
	}

	logger.Info("project created",
		logger.String("projectId", project.ID),
		logger.String("owner", ownerID),
		logger.String("name", name))

	return &model.ProjectInfo{Project: project, Collaborators: []string{ownerID}}, nil
}

// InviteCollaborator adds newID to the project's membership. Who may invite
// is governed by the configured invite policy. A duplicate invite fails
// with an already-member error. The ownership split is not touched: new
// collaborators hold 0% until the owner rebalances.
func (r *Registry) InviteCollaborator(ctx context.Context, projectID, requesterID, newID string) error {
	if newID == "" {
		return fault.Validationf("collaborator identity cannot be empty")
	}

	var added model.ProjectCollaborator
	err := r.withProjectState(projectID, func(ps *projectState) error {
		v := View{Project: &ps.project, Collaborators: ps.collaborators}
		switch r.policy {
		case config.InviteOwnerOnly:
			if ps.project.OwnerID != requesterID {
				return fault.Permissionf("only the owner may invite collaborators")
			}
		default:
			if !v.IsCollaborator(requesterID) {
				return fault.Permissionf("identity %s is not a collaborator of project %s", requesterID, projectID)
			}
		}
		if v.IsCollaborator(newID) {
			return fault.AlreadyMemberf("identity %s is already a collaborator of project %s", newID, projectID)
		}

		added = model.ProjectCollaborator{
			ProjectID:  projectID,
			IdentityID: newID,
			Role:       model.CollaboratorRoleMember,
			JoinedAt:   r.now(),
		}
		ps.collaborators = append(ps.collaborators, added)
		ps.project.UpdatedAt = added.JoinedAt
		return nil
	})
	if err != nil {
		return err
	}

	if r.repo != nil {
		if err := r.repo.SaveCollaborator(ctx, &added); err != nil {
			logger.Error("failed to persist collaborator", logger.ErrorField(err))
		}
	}
	if r.bus != nil {
		r.bus.Publish(model.EventCollaboratorInvited, projectID, map[string]string{
			"invitedBy": requesterID,
			"identity":  newID,
		})
	}

	logger.Info("collaborator invited",
		logger.String("projectId", projectID),
		logger.String("invitedBy", requesterID),
		logger.String("identity", newID))
	return nil
}

// RenameProject changes the project name. Owner only.
func (r *Registry) RenameProject(ctx context.Context, projectID, requesterID, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fault.Validationf("project name cannot be empty")
	}

	var updated model.Project
	err := r.WithProject(projectID, func(v *View) error {
		if v.Project.OwnerID != requesterID {
			return fault.Permissionf("only the owner may rename project %s", projectID)
		}
		v.Project.Name = newName
		v.Project.UpdatedAt = r.now()
		updated = *v.Project
		return nil
	})
	if err != nil {
		return err
	}

	if r.repo != nil {
		if err := r.repo.SaveProject(ctx, &updated); err != nil {
			logger.Error("failed to persist project rename", logger.ErrorField(err))
		}
	}
	return nil
}

// ListProjects returns projects where identityID is a collaborator, ordered
// by creation time ascending. Read-only: returned values are copies.
func (r *Registry) ListProjects(_ context.Context, identityID string) []*model.ProjectInfo {
	r.mu.RLock()
	order := append([]string(nil), r.order...)
	r.mu.RUnlock()

	out := make([]*model.ProjectInfo, 0)
	for _, id := range order {
		ps := r.state(id)
		if ps == nil {
			continue
		}
		ps.mu.Lock()
		v := View{Project: &ps.project, Collaborators: ps.collaborators}
		if v.IsCollaborator(identityID) {
			out = append(out, snapshot(&ps.project, ps.collaborators))
		}
		ps.mu.Unlock()
	}
	return out
}

// GetProject returns a consistent copy of one project.
func (r *Registry) GetProject(_ context.Context, projectID string) (*model.ProjectInfo, error) {
	ps := r.state(projectID)
	if ps == nil {
		return nil, fault.NotFoundf("project %s", projectID)
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return snapshot(&ps.project, ps.collaborators), nil
}

func snapshot(p *model.Project, collaborators []model.ProjectCollaborator) *model.ProjectInfo {
	ids := make([]string, 0, len(collaborators))
	for _, c := range collaborators {
		ids = append(ids, c.IdentityID)
	}
	return &model.ProjectInfo{Project: *p, Collaborators: ids}
}

func (r *Registry) persistProject(ctx context.Context, project *model.Project, owner *model.ProjectCollaborator) {
	if r.repo == nil {
		return
	}
	if err := r.repo.SaveProject(ctx, project); err != nil {
		logger.Error("failed to persist project", logger.ErrorField(err))
		return
	}
	if err := r.repo.SaveCollaborator(ctx, owner); err != nil {
		logger.Error("failed to persist project owner membership", logger.ErrorField(err))
	}
}
