package handlers

import (
	"errors"
	"net/http"
	"strings"

	"project-management-api/internal/apperr"
	"project-management-api/internal/authz"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateInvitationRequest invites an email address into a workspace.
type CreateInvitationRequest struct {
	Email string      `json:"email" binding:"required,email"`
	Role  models.Role `json:"role" binding:"required"`
}

// AcceptInviteRequest redeems an invitation token.
type AcceptInviteRequest struct {
	Token string `json:"token" binding:"required"`
	Type  string `json:"type"`
}

func newInviteToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// ListInvitations handles GET /api/workspaces/:workspaceId/invitations
func (h *Handler) ListInvitations(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}

	query := func(tx *gorm.DB) *gorm.DB {
		q := tx.Preload("InvitedBy").Where("workspace_id = ?", ws.ID)
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}
	var invites []models.WorkspaceInvite
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		return query(tx).Order("invited_at desc").Find(&invites).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invitations": invites,
		"count":       len(invites),
	})
}

// CreateInvitation handles POST /api/workspaces/:workspaceId/invitations
func (h *Handler) CreateInvitation(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}
	var req CreateInvitationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if !req.Role.Valid() {
		h.fail(c, apperr.Invalid("Invalid role"))
		return
	}
	if !authz.CanManageRole(actor.Role, req.Role) {
		h.fail(c, apperr.Newf(apperr.KindForbidden, "You cannot invite someone as %s", req.Role))
		return
	}

	email := models.NormalizeEmail(req.Email)
	now := h.now()
	invite := models.WorkspaceInvite{
		WorkspaceID: ws.ID,
		Email:       email,
		Role:        req.Role,
		Token:       newInviteToken(),
		Status:      models.InvitePending,
		InvitedByID: actor.UserID,
		InvitedAt:   now,
		ExpiresAt:   now.Add(h.cfg.Invites.TTL),
	}
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		var existing int64
		err := tx.Model(&models.WorkspaceMember{}).
			Joins("JOIN users ON users.id = workspace_members.user_id").
			Where("workspace_members.workspace_id = ? AND users.email = ? AND workspace_members.status = ?", ws.ID, email, models.MemberActive).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Conflict("This user is already a member of the workspace")
		}

		var pending int64
		err = tx.Model(&models.WorkspaceInvite{}).
			Where("workspace_id = ? AND email = ? AND status = ? AND expires_at > ?", ws.ID, email, models.InvitePending, now).
			Count(&pending).Error
		if err != nil {
			return err
		}
		if pending > 0 {
			return apperr.Conflict("An invitation is already pending for this email")
		}

		if err := tx.Create(&invite).Error; err != nil {
			return err
		}
		return recordActivity(tx, ws.ID, nil, actor.UserID, "invitation.created", map[string]any{
			"email": email,
			"role":  req.Role,
		})
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "invitation", "created", invite.ID)
	c.JSON(http.StatusCreated, invite)
}

// RevokeInvitation handles DELETE /api/workspaces/:workspaceId/invitations/:inviteId
func (h *Handler) RevokeInvitation(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}

	inviteID := c.Param("inviteId")
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		res := tx.Model(&models.WorkspaceInvite{}).
			Where("id = ? AND workspace_id = ? AND status = ?", inviteID, ws.ID, models.InvitePending).
			Update("status", models.InviteRevoked)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Pending invitation not found")
		}
		return recordActivity(tx, ws.ID, nil, actor.UserID, "invitation.revoked", map[string]any{"invitationId": inviteID})
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "invitation", "revoked", inviteID)
	c.JSON(http.StatusOK, gin.H{"message": "Invitation revoked"})
}

// AcceptInvite handles POST /api/invites/accept
// The invite is consumed by a conditional update, so of two concurrent accepts
// exactly one wins. Expired or foreign invites never create a membership.
func (h *Handler) AcceptInvite(c *gin.Context) {
	var req AcceptInviteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Type != "" && req.Type != "workspace" {
		h.fail(c, apperr.Invalid("Unsupported invitation type"))
		return
	}

	ctx := c.Request.Context()
	user, err := h.auth.User(ctx, currentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	var (
		invite models.WorkspaceInvite
		member models.WorkspaceMember
	)
	err = h.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Preload("Workspace").Where("token = ?", strings.TrimSpace(req.Token)).First(&invite).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Invitation not found")
			}
			return err
		}
		switch invite.Status {
		case models.InviteAccepted:
			return apperr.Conflict("Invitation has already been used")
		case models.InviteRevoked:
			return apperr.New(apperr.KindExpired, "Invitation has been revoked")
		}
		now := h.now()
		if invite.Expired(now) {
			return apperr.New(apperr.KindExpired, "Invitation has expired")
		}
		if models.NormalizeEmail(invite.Email) != user.Email {
			return apperr.Forbidden("This invitation was sent to a different email address")
		}

		res := tx.Model(&models.WorkspaceInvite{}).
			Where("id = ? AND status = ?", invite.ID, models.InvitePending).
			Updates(map[string]any{"status": models.InviteAccepted, "accepted_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("Invitation has already been used")
		}

		err := tx.Where("workspace_id = ? AND user_id = ?", invite.WorkspaceID, user.ID).First(&member).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			inviter := invite.InvitedByID
			member = models.WorkspaceMember{
				WorkspaceID: invite.WorkspaceID,
				UserID:      user.ID,
				Role:        invite.Role,
				Status:      models.MemberActive,
				InvitedByID: &inviter,
				JoinedAt:    &now,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case member.Status != models.MemberActive || invite.Role.Rank() > member.Role.Rank():
			role := member.Role
			if invite.Role.Rank() > role.Rank() {
				role = invite.Role
			}
			if err := tx.Model(&member).Updates(map[string]any{
				"status":    models.MemberActive,
				"role":      role,
				"joined_at": now,
			}).Error; err != nil {
				return err
			}
			member.Status, member.Role, member.JoinedAt = models.MemberActive, role, &now
		}
		return recordActivity(tx, invite.WorkspaceID, nil, user.ID, "member.joined", map[string]any{
			"invitationId": invite.ID,
			"role":         member.Role,
		})
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.authz.Forget(invite.WorkspaceID, user.ID)

	h.publish(c, invite.WorkspaceID, "member", "joined", member.ID)
	c.JSON(http.StatusOK, gin.H{
		"workspace": invite.Workspace,
		"member":    member,
	})
}
