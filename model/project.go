package model

import "time"

// Project is a collaborative production project.
type Project struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	OwnerID   string    `json:"ownerId" gorm:"size:64;index;not null"`
	Seq       int64     `json:"-" gorm:"autoIncrement;uniqueIndex"` // creation order for stable listing
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName sets the projects table name.
func (Project) TableName() string {
	return "projects"
}

// ProjectCollaborator is a membership row. The owner always has one.
type ProjectCollaborator struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ProjectID  string    `json:"projectId" gorm:"size:36;index;not null"`
	IdentityID string    `json:"identityId" gorm:"size:64;index;not null"`
	Role       string    `json:"role" gorm:"size:20;default:'member'"` // owner, member
	JoinedAt   time.Time `json:"joinedAt"`
}

// TableName sets the project_collaborators table name.
func (ProjectCollaborator) TableName() string {
	return "project_collaborators"
}

// ProjectInfo is the API projection of a project with its membership.
type ProjectInfo struct {
	Project
	Collaborators []string `json:"collaborators"`
}

const (
	CollaboratorRoleOwner  = "owner"
	CollaboratorRoleMember = "member"
)
