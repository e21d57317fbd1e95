package models

import "gorm.io/datatypes"

// TaskTemplate prefills new tasks.
type TaskTemplate struct {
	Base
	WorkspaceID string                      `json:"workspaceId" gorm:"size:36;not null;uniqueIndex:idx_template_name"`
	Name        string                      `json:"name" gorm:"not null;uniqueIndex:idx_template_name"`
	Title       string                      `json:"title"`
	Description string                      `json:"description"`
	Priority    TaskPriority                `json:"priority" gorm:"not null;default:'none'"`
	LabelIDs    datatypes.JSONSlice[string] `json:"labelIds"`
	CreatorID   string                      `json:"creatorId" gorm:"size:36"`
}

// TableName specifies the table name for TaskTemplate Model
func (TaskTemplate) TableName() string {
	return "task_templates"
}
