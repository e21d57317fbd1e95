package handlers

import (
	"errors"
	"net/http"

	"project-management-api/internal/apperr"
	"project-management-api/internal/authz"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AddMemberRequest adds an existing user to a workspace directly.
type AddMemberRequest struct {
	Email string      `json:"email" binding:"required,email"`
	Role  models.Role `json:"role" binding:"required"`
}

// UpdateMemberRequest changes a member's role.
type UpdateMemberRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

const msgLastOwner = "A workspace must keep at least one owner"

// ListMembers handles GET /api/workspaces/:workspaceId/members
func (h *Handler) ListMembers(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}

	var members []models.WorkspaceMember
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		return tx.Preload("User").Where("workspace_id = ?", ws.ID).Order("created_at asc").Find(&members).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"members": members,
		"count":   len(members),
	})
}

// AddMember handles POST /api/workspaces/:workspaceId/members
func (h *Handler) AddMember(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}
	var req AddMemberRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if !req.Role.Valid() {
		h.fail(c, apperr.Invalid("Invalid role"))
		return
	}
	if !authz.CanManageRole(actor.Role, req.Role) {
		h.fail(c, apperr.Newf(apperr.KindForbidden, "You cannot grant the %s role", req.Role))
		return
	}

	now := h.now()
	actorID := actor.UserID
	member := models.WorkspaceMember{
		WorkspaceID: ws.ID,
		Role:        req.Role,
		Status:      models.MemberActive,
		InvitedByID: &actorID,
		JoinedAt:    &now,
	}
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("email = ?", models.NormalizeEmail(req.Email)).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("User not found")
			}
			return err
		}
		member.UserID = user.ID
		member.User = &user
		if err := tx.Omit("User").Create(&member).Error; err != nil {
			return err
		}
		return recordActivity(tx, ws.ID, nil, actorID, "member.added", map[string]any{
			"userId": user.ID,
			"role":   req.Role,
		})
	})
	if apperr.Is(err, apperr.KindConflict) {
		err = apperr.Conflict("User is already a member of this workspace")
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.authz.Forget(ws.ID, member.UserID)

	h.publish(c, ws.ID, "member", "added", member.ID)
	c.JSON(http.StatusCreated, member)
}

// findMember loads :memberId inside ws.
func findMember(tx *gorm.DB, wsID, memberID string) (*models.WorkspaceMember, error) {
	var m models.WorkspaceMember
	err := tx.Where("id = ? AND workspace_id = ?", memberID, wsID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Member not found")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ensureAnotherOwner fails when target is the last active owner.
func ensureAnotherOwner(tx *gorm.DB, target *models.WorkspaceMember) error {
	if target.Role != models.RoleOwner {
		return nil
	}
	var owners int64
	err := tx.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND role = ? AND status = ? AND id <> ?", target.WorkspaceID, models.RoleOwner, models.MemberActive, target.ID).
		Count(&owners).Error
	if err != nil {
		return err
	}
	if owners == 0 {
		return apperr.Conflict(msgLastOwner)
	}
	return nil
}

// UpdateMember handles PUT /api/workspaces/:workspaceId/members/:memberId
func (h *Handler) UpdateMember(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}
	var req UpdateMemberRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if !req.Role.Valid() {
		h.fail(c, apperr.Invalid("Invalid role"))
		return
	}

	var target *models.WorkspaceMember
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		var err error
		target, err = findMember(tx, ws.ID, c.Param("memberId"))
		if err != nil {
			return err
		}
		if !authz.CanManageRole(actor.Role, target.Role) || !authz.CanManageRole(actor.Role, req.Role) {
			return apperr.Forbidden("You cannot change this member's role")
		}
		if target.Role == req.Role {
			return nil
		}
		if req.Role != models.RoleOwner {
			if err := ensureAnotherOwner(tx, target); err != nil {
				return err
			}
		}
		previous := target.Role
		if err := tx.Model(target).Update("role", req.Role).Error; err != nil {
			return err
		}
		target.Role = req.Role
		return recordActivity(tx, ws.ID, nil, actor.UserID, "member.role_changed", map[string]any{
			"userId": target.UserID,
			"from":   previous,
			"to":     req.Role,
		})
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.authz.Forget(ws.ID, target.UserID)

	h.publish(c, ws.ID, "member", "updated", target.ID)
	c.JSON(http.StatusOK, target)
}

// RemoveMember handles DELETE /api/workspaces/:workspaceId/members/:memberId
// Any member may remove themselves; removing others needs admin and a role
// above the target's.
func (h *Handler) RemoveMember(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}

	var target *models.WorkspaceMember
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		var err error
		target, err = findMember(tx, ws.ID, c.Param("memberId"))
		if err != nil {
			return err
		}
		leaving := target.UserID == actor.UserID
		if !leaving && (!actor.Role.AtLeast(models.RoleAdmin) || !authz.CanManageRole(actor.Role, target.Role)) {
			return apperr.Forbidden("You cannot remove this member")
		}
		if err := ensureAnotherOwner(tx, target); err != nil {
			return err
		}
		if err := tx.Model(&models.Task{}).
			Where("workspace_id = ? AND assignee_id = ?", ws.ID, target.UserID).
			Update("assignee_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(target).Error; err != nil {
			return err
		}
		action := "member.removed"
		if leaving {
			action = "member.left"
		}
		return recordActivity(tx, ws.ID, nil, actor.UserID, action, map[string]any{"userId": target.UserID})
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.authz.Forget(ws.ID, target.UserID)

	h.publish(c, ws.ID, "member", "removed", target.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}
