package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the identity and timestamps shared by every persisted entity.
type Base struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a random id when none was set.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// All lists every model for schema migration.
func All() []any {
	return []any{
		&User{},
		&Workspace{},
		&WorkspaceMember{},
		&WorkspaceInvite{},
		&Project{},
		&ProjectMember{},
		&TaskStatus{},
		&Milestone{},
		&MilestoneAssignee{},
		&Label{},
		&Tag{},
		&Task{},
		&TaskLabel{},
		&TaskTag{},
		&Comment{},
		&Attachment{},
		&ActivityLog{},
		&SavedView{},
		&TaskTemplate{},
	}
}
