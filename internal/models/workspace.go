package models

import (
	"time"
)

// Workspace is the top-level tenant.
type Workspace struct {
	Base
	Name        string `json:"name" gorm:"not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex;not null"`
	Description string `json:"description"`
	CreatorID   string `json:"creatorId" gorm:"size:36;index"`
}

// TableName specifies the table name for Workspace Model
func (Workspace) TableName() string {
	return "workspaces"
}

// MemberStatus is the lifecycle state of a membership row.
type MemberStatus string

const (
	MemberActive  MemberStatus = "active"
	MemberInvited MemberStatus = "invited"
)

// WorkspaceMember grants a user a role in a workspace.
type WorkspaceMember struct {
	Base
	WorkspaceID string       `json:"workspaceId" gorm:"size:36;not null;uniqueIndex:idx_workspace_member"`
	UserID      string       `json:"userId" gorm:"size:36;not null;uniqueIndex:idx_workspace_member"`
	Role        Role         `json:"role" gorm:"not null;default:'member'"`
	Status      MemberStatus `json:"status" gorm:"not null;default:'active'"`
	InvitedByID *string      `json:"invitedById" gorm:"size:36"`
	JoinedAt    *time.Time   `json:"joinedAt"`
	User        *User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for WorkspaceMember Model
func (WorkspaceMember) TableName() string {
	return "workspace_members"
}

// InviteStatus is the lifecycle state of an invitation.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRevoked  InviteStatus = "revoked"
)

// WorkspaceInvite is a single-use invitation to join a workspace.
type WorkspaceInvite struct {
	Base
	WorkspaceID string       `json:"workspaceId" gorm:"size:36;not null;index"`
	Email       string       `json:"email" gorm:"not null;index"`
	Role        Role         `json:"role" gorm:"not null"`
	Token       string       `json:"token,omitempty" gorm:"uniqueIndex;not null"`
	Status      InviteStatus `json:"status" gorm:"not null;default:'pending'"`
	InvitedByID string       `json:"invitedById" gorm:"size:36"`
	InvitedAt   time.Time    `json:"invitedAt"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	AcceptedAt  *time.Time   `json:"acceptedAt"`
	InvitedBy   *User        `json:"invitedBy,omitempty" gorm:"foreignKey:InvitedByID"`
	Workspace   *Workspace   `json:"workspace,omitempty" gorm:"foreignKey:WorkspaceID"`
}

// TableName specifies the table name for WorkspaceInvite Model
func (WorkspaceInvite) TableName() string {
	return "workspace_invites"
}

// Expired reports whether the invite can no longer be accepted at now.
func (i WorkspaceInvite) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
