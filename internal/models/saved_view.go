package models

import "gorm.io/datatypes"

// SavedView is a persisted filter/sort/grouping configuration for task lists.
type SavedView struct {
	Base
	WorkspaceID string         `json:"workspaceId" gorm:"size:36;not null;index"`
	ProjectID   *string        `json:"projectId" gorm:"size:36"`
	OwnerID     string         `json:"ownerId" gorm:"size:36;not null;index"`
	Name        string         `json:"name" gorm:"not null"`
	Filters     datatypes.JSON `json:"filters"`
	Sort        datatypes.JSON `json:"sort"`
	GroupBy     string         `json:"groupBy"`
	Layout      string         `json:"layout" gorm:"not null;default:'list'"`
	IsPublic    bool           `json:"isPublic"`
}

// TableName specifies the table name for SavedView Model
func (SavedView) TableName() string {
	return "saved_views"
}
