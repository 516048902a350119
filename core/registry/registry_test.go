package registry

import (
	"context"
	"errors"
	"testing"

	"orpheus/config"
	"orpheus/fault"
	"orpheus/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, policy config.InvitePolicy) *Registry {
	t.Helper()
	return NewRegistry(repository.NewMemoryProjectRepository(), nil, policy)
}

func TestCreateProject(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, config.InviteAnyCollaborator)

	project, err := reg.CreateProject(ctx, "alice", "  Neon Dreams  ")
	require.NoError(t, err)
	assert.Equal(t, "Neon Dreams", project.Name)
	assert.Equal(t, "alice", project.OwnerID)
	assert.Equal(t, []string{"alice"}, project.Collaborators)
	assert.NotEmpty(t, project.ID)
}

func TestCreateProjectEmptyName(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, config.InviteAnyCollaborator)

	_, err := reg.CreateProject(ctx, "alice", "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrValidation))
}

func TestInviteCollaborator(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, config.InviteAnyCollaborator)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)

	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "bob"))

	info, err := reg.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, info.Collaborators)

	// A non-owner collaborator may invite under the default policy.
	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "bob", "carol"))

	// Non-members may not.
	err = reg.InviteCollaborator(ctx, project.ID, "mallory", "dave")
	assert.True(t, errors.Is(err, fault.ErrPermission))
}

func TestInviteCollaboratorDuplicate(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, config.InviteAnyCollaborator)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)

	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "bob"))
	err = reg.InviteCollaborator(ctx, project.ID, "alice", "bob")
	assert.True(t, errors.Is(err, fault.ErrAlreadyMember))

	// Inviting the owner is also a duplicate.
	err = reg.InviteCollaborator(ctx, project.ID, "bob", "alice")
	assert.True(t, errors.Is(err, fault.ErrAlreadyMember))
}

func TestInviteOwnerOnlyPolicy(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, config.InviteOwnerOnly)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "bob"))

	err = reg.InviteCollaborator(ctx, project.ID, "bob", "carol")
	assert.True(t, errors.Is(err, fault.ErrPermission))
}

func TestListProjectsOrderAndMembership(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, config.InviteAnyCollaborator)

	first, err := reg.CreateProject(ctx, "alice", "First")
	require.NoError(t, err)
	second, err := reg.CreateProject(ctx, "bob", "Second")
	require.NoError(t, err)
	third, err := reg.CreateProject(ctx, "alice", "Third")
	require.NoError(t, err)

	require.NoError(t, reg.InviteCollaborator(ctx, second.ID, "bob", "alice"))

	projects := reg.ListProjects(ctx, "alice")
	require.Len(t, projects, 3)
	assert.Equal(t, first.ID, projects[0].ID)
	assert.Equal(t, second.ID, projects[1].ID)
	assert.Equal(t, third.ID, projects[2].ID)

	assert.Len(t, reg.ListProjects(ctx, "bob"), 1)
	assert.Empty(t, reg.ListProjects(ctx, "mallory"))
}

func TestRenameProject(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, config.InviteAnyCollaborator)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "bob"))

	err = reg.RenameProject(ctx, project.ID, "bob", "Bob's Project")
	assert.True(t, errors.Is(err, fault.ErrPermission))

	err = reg.RenameProject(ctx, project.ID, "alice", "")
	assert.True(t, errors.Is(err, fault.ErrValidation))

	require.NoError(t, reg.RenameProject(ctx, project.ID, "alice", "Midnight Drive"))
	info, err := reg.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Midnight Drive", info.Name)
}

func TestGetProjectNotFound(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, config.InviteAnyCollaborator)

	_, err := reg.GetProject(ctx, "missing")
	assert.True(t, errors.Is(err, fault.ErrNotFound))
}

func TestLoadRebuildsArena(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryProjectRepository()

	reg := NewRegistry(repo, nil, config.InviteAnyCollaborator)
	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "bob"))

	reloaded := NewRegistry(repo, nil, config.InviteAnyCollaborator)
	require.NoError(t, reloaded.Load(ctx))

	info, err := reloaded.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Neon Dreams", info.Name)
	assert.Equal(t, []string{"alice", "bob"}, info.Collaborators)
}
