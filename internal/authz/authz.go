// Package authz is the single authorization capability consulted by every
// handler. Roles follow the fixed hierarchy viewer < member < admin < owner.
package authz

import (
	"context"
	"strings"
	"time"

	"project-management-api/internal/apperr"
	"project-management-api/internal/cache"
	"project-management-api/internal/database"
	"project-management-api/internal/models"

	"gorm.io/gorm"
)

const defaultRoleTTL = 30 * time.Second

// Service answers membership and role questions.
type Service struct {
	db    *database.DB
	roles cache.Cache[string, models.WorkspaceMember]
}

// NewService returns a Service caching roles for ttl (<= 0 uses a default).
func NewService(db *database.DB, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = defaultRoleTTL
	}
	return &Service{
		db:    db,
		roles: cache.NewTTLCache[string, models.WorkspaceMember](ttl),
	}
}

func key(workspaceID, userID string) string {
	return workspaceID + "|" + userID
}

// Membership returns the caller's active membership, or nil when there is none.
func (s *Service) Membership(ctx context.Context, workspaceID, userID string) (*models.WorkspaceMember, error) {
	if workspaceID == "" || userID == "" {
		return nil, nil
	}
	k := key(workspaceID, userID)
	if m, ok := s.roles.Get(k); ok {
		return &m, nil
	}

	var members []models.WorkspaceMember
	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Where("workspace_id = ? AND user_id = ? AND status = ?", workspaceID, userID, models.MemberActive).
			Limit(1).Find(&members).Error
	})
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	s.roles.Set(k, members[0])
	return &members[0], nil
}

// HasWorkspaceAccess reports whether userID is an active member of the
// workspace and, when required is given, holds at least that role.
func (s *Service) HasWorkspaceAccess(ctx context.Context, workspaceID, userID string, required ...models.Role) (bool, error) {
	m, err := s.Membership(ctx, workspaceID, userID)
	if err != nil || m == nil {
		return false, err
	}
	for _, r := range required {
		if !m.Role.AtLeast(r) {
			return false, nil
		}
	}
	return true, nil
}

// Require returns the caller's membership if it satisfies required, otherwise a
// forbidden error.
func (s *Service) Require(ctx context.Context, workspaceID, userID string, required models.Role) (*models.WorkspaceMember, error) {
	m, err := s.Membership(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.Forbidden("You are not a member of this workspace")
	}
	if !m.Role.AtLeast(required) {
		return nil, apperr.Newf(apperr.KindForbidden, "This action requires the %s role", required)
	}
	return m, nil
}

// CanManageRole reports whether actor may grant target or change a member who
// holds target. Owners may manage any role; everyone else only roles strictly
// below their own.
func CanManageRole(actor, target models.Role) bool {
	if !actor.Valid() || !target.Valid() {
		return false
	}
	if actor == models.RoleOwner {
		return true
	}
	return actor.Rank() > target.Rank()
}

// Forget drops the cached membership of one user.
func (s *Service) Forget(workspaceID, userID string) {
	s.roles.Delete(key(workspaceID, userID))
}

// ForgetWorkspace drops every cached membership of a workspace.
func (s *Service) ForgetWorkspace(workspaceID string) {
	prefix := workspaceID + "|"
	s.roles.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })
}
