package repository

import (
	"context"
	"fmt"

	"orpheus/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectRepository persists projects, memberships, splits and audit entries.
// The ledger core mutates its in-memory state first and writes through here
// outside the project critical section.
type ProjectRepository interface {
	SaveProject(ctx context.Context, project *model.Project) error
	SaveCollaborator(ctx context.Context, collaborator *model.ProjectCollaborator) error
	SaveSplit(ctx context.Context, split *model.OwnershipSplit) error
	AppendAudit(ctx context.Context, audit *model.SplitAudit) error
	LoadProjects(ctx context.Context) ([]*model.Project, error)
	LoadCollaborators(ctx context.Context) ([]*model.ProjectCollaborator, error)
	LoadSplits(ctx context.Context) ([]*model.OwnershipSplit, error)
	LoadAudits(ctx context.Context) ([]*model.SplitAudit, error)
}

// gormProjectRepository implements ProjectRepository on MySQL via GORM.
type gormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a new instance of gormProjectRepository.
func NewGormProjectRepository(db *gorm.DB) ProjectRepository {
	return &gormProjectRepository{db: db}
}

// SaveProject inserts or updates a project row.
func (r *gormProjectRepository) SaveProject(ctx context.Context, project *model.Project) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(project).Error
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", project.ID, err)
	}
	return nil
}

// SaveCollaborator inserts a membership row if it does not exist yet.
func (r *gormProjectRepository) SaveCollaborator(ctx context.Context, collaborator *model.ProjectCollaborator) error {
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND identity_id = ?", collaborator.ProjectID, collaborator.IdentityID).
		FirstOrCreate(collaborator).Error
	if err != nil {
		return fmt.Errorf("failed to save collaborator %s in project %s: %w",
			collaborator.IdentityID, collaborator.ProjectID, err)
	}
	return nil
}

// SaveSplit replaces the stored split for a project.
func (r *gormProjectRepository) SaveSplit(ctx context.Context, split *model.OwnershipSplit) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}},
		UpdateAll: true,
	}).Create(split).Error
	if err != nil {
		return fmt.Errorf("failed to save split for project %s: %w", split.ProjectID, err)
	}
	return nil
}

// AppendAudit appends an immutable rebalance audit entry.
func (r *gormProjectRepository) AppendAudit(ctx context.Context, audit *model.SplitAudit) error {
	if err := r.db.WithContext(ctx).Create(audit).Error; err != nil {
		return fmt.Errorf("failed to append split audit for project %s: %w", audit.ProjectID, err)
	}
	return nil
}

// LoadProjects loads all projects in creation order.
func (r *gormProjectRepository) LoadProjects(ctx context.Context) ([]*model.Project, error) {
	var projects []*model.Project
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	return projects, nil
}

// LoadCollaborators loads all membership rows in join order.
func (r *gormProjectRepository) LoadCollaborators(ctx context.Context) ([]*model.ProjectCollaborator, error) {
	var collaborators []*model.ProjectCollaborator
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&collaborators).Error; err != nil {
		return nil, fmt.Errorf("failed to load collaborators: %w", err)
	}
	return collaborators, nil
}

// LoadSplits loads all current splits.
func (r *gormProjectRepository) LoadSplits(ctx context.Context) ([]*model.OwnershipSplit, error) {
	var splits []*model.OwnershipSplit
	if err := r.db.WithContext(ctx).Find(&splits).Error; err != nil {
		return nil, fmt.Errorf("failed to load splits: %w", err)
	}
	return splits, nil
}

// LoadAudits loads every audit entry, oldest first.
func (r *gormProjectRepository) LoadAudits(ctx context.Context) ([]*model.SplitAudit, error) {
	var audits []*model.SplitAudit
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&audits).Error; err != nil {
		return nil, fmt.Errorf("failed to load audits: %w", err)
	}
	return audits, nil
}
