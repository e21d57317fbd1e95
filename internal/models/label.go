package models

import (
	"strings"

	"gorm.io/gorm"
)

// Label is a coloured marker, workspace-wide or scoped to one project.
type Label struct {
	Base
	WorkspaceID string  `json:"workspaceId" gorm:"size:36;not null;uniqueIndex:idx_label_name"`
	ProjectID   *string `json:"projectId" gorm:"size:36"`
	Scope       string  `json:"-" gorm:"size:36;not null;default:'';uniqueIndex:idx_label_name"`
	Name        string  `json:"name" gorm:"not null;uniqueIndex:idx_label_name"`
	Color       string  `json:"color"`
}

// TableName specifies the table name for Label Model
func (Label) TableName() string {
	return "labels"
}

// BeforeSave derives the scope key from the project reference.
func (l *Label) BeforeSave(tx *gorm.DB) error {
	l.Scope = ScopeKey(l.ProjectID)
	return nil
}

// Tag is a free-form keyword; names are unique per workspace ignoring case.
type Tag struct {
	Base
	WorkspaceID string `json:"workspaceId" gorm:"size:36;not null;uniqueIndex:idx_tag_name"`
	Name        string `json:"name" gorm:"not null"`
	NameKey     string `json:"-" gorm:"not null;uniqueIndex:idx_tag_name"`
	Color       string `json:"color"`
}

// TableName specifies the table name for Tag Model
func (Tag) TableName() string {
	return "tags"
}

// BeforeSave normalizes the lookup key.
func (t *Tag) BeforeSave(tx *gorm.DB) error {
	t.NameKey = TagKey(t.Name)
	return nil
}

// TagKey is the case-insensitive comparison key for a tag name.
func TagKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
