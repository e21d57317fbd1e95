package handlers

import (
	"net/http"
	"strings"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"
	"project-management-api/internal/workspace"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateWorkspaceRequest represents the request payload for creating a workspace
type CreateWorkspaceRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	Slug        string `json:"slug" binding:"omitempty,max=48"`
	Description string `json:"description" binding:"max=2000"`
}

// UpdateWorkspaceRequest represents the request payload for updating a workspace
type UpdateWorkspaceRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=120"`
	Slug        *string `json:"slug" binding:"omitempty,max=48"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// WorkspaceResponse is a workspace annotated with the caller's role.
type WorkspaceResponse struct {
	models.Workspace
	Role models.Role `json:"role"`
}

const msgSlugTaken = "Workspace slug is already taken"

// ListWorkspaces handles GET /api/workspaces
// Returns every workspace the caller is an active member of.
func (h *Handler) ListWorkspaces(c *gin.Context) {
	userID := currentUserID(c)

	var out []WorkspaceResponse
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		var members []models.WorkspaceMember
		if err := tx.Where("user_id = ? AND status = ?", userID, models.MemberActive).Find(&members).Error; err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		roles := make(map[string]models.Role, len(members))
		ids := make([]string, 0, len(members))
		for _, m := range members {
			roles[m.WorkspaceID] = m.Role
			ids = append(ids, m.WorkspaceID)
		}

		var workspaces []models.Workspace
		if err := tx.Where("id IN ?", ids).Order("created_at asc").Find(&workspaces).Error; err != nil {
			return err
		}
		out = make([]WorkspaceResponse, 0, len(workspaces))
		for _, ws := range workspaces {
			out = append(out, WorkspaceResponse{Workspace: ws, Role: roles[ws.ID]})
		}
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if out == nil {
		out = []WorkspaceResponse{}
	}

	c.JSON(http.StatusOK, gin.H{
		"workspaces": out,
		"count":      len(out),
	})
}

// CreateWorkspace handles POST /api/workspaces
// The caller becomes the sole owner.
func (h *Handler) CreateWorkspace(c *gin.Context) {
	var req CreateWorkspaceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.fail(c, apperr.Invalid("Name is required"))
		return
	}
	slugSource := req.Slug
	if strings.TrimSpace(slugSource) == "" {
		slugSource = name
	}
	slug := workspace.Slugify(slugSource)
	if slug == "" {
		h.fail(c, apperr.Invalid("Slug must contain letters or digits"))
		return
	}

	ws := &models.Workspace{Name: name, Slug: slug, Description: strings.TrimSpace(req.Description)}
	userID := currentUserID(c)
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Workspace{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict(msgSlugTaken)
		}
		_, err := workspace.CreateWithOwner(tx, ws, userID)
		return err
	})
	if apperr.Is(err, apperr.KindConflict) {
		err = apperr.Conflict(msgSlugTaken)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "workspace", "created", ws.ID)
	c.JSON(http.StatusCreated, WorkspaceResponse{Workspace: *ws, Role: models.RoleOwner})
}

// GetWorkspace handles GET /api/workspaces/:workspaceId
// A workspace that does not exist yields 200 with a null body so clients can
// probe slugs; an existing workspace is only shown to its members.
func (h *Handler) GetWorkspace(c *gin.Context) {
	ctx := c.Request.Context()
	var ws *models.Workspace
	err := h.db.Do(ctx, func(tx *gorm.DB) error {
		var err error
		ws, err = workspace.Find(tx, c.Param("workspaceId"))
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if ws == nil {
		c.JSON(http.StatusOK, gin.H{"workspace": nil})
		return
	}

	member, err := h.authz.Require(ctx, ws.ID, currentUserID(c), models.RoleViewer)
	if err != nil {
		h.fail(c, err)
		return
	}

	var memberCount, projectCount int64
	err = h.db.Do(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&models.WorkspaceMember{}).
			Where("workspace_id = ? AND status = ?", ws.ID, models.MemberActive).
			Count(&memberCount).Error; err != nil {
			return err
		}
		return tx.Model(&models.Project{}).Where("workspace_id = ?", ws.ID).Count(&projectCount).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workspace":    WorkspaceResponse{Workspace: *ws, Role: member.Role},
		"memberCount":  memberCount,
		"projectCount": projectCount,
	})
}

// UpdateWorkspace handles PUT /api/workspaces/:workspaceId
func (h *Handler) UpdateWorkspace(c *gin.Context) {
	ws, member, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}
	var req UpdateWorkspaceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			h.fail(c, apperr.Invalid("Name cannot be empty"))
			return
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Slug != nil {
		slug := workspace.Slugify(*req.Slug)
		if slug == "" {
			h.fail(c, apperr.Invalid("Slug must contain letters or digits"))
			return
		}
		if slug != ws.Slug {
			updates["slug"] = slug
		}
	}

	if len(updates) > 0 {
		err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
			if slug, ok := updates["slug"]; ok {
				var count int64
				if err := tx.Model(&models.Workspace{}).Where("slug = ? AND id <> ?", slug, ws.ID).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return apperr.Conflict(msgSlugTaken)
				}
			}
			if err := tx.Model(ws).Updates(updates).Error; err != nil {
				return err
			}
			return tx.First(ws, "id = ?", ws.ID).Error
		})
		if apperr.Is(err, apperr.KindConflict) {
			err = apperr.Conflict(msgSlugTaken)
		}
		if err != nil {
			h.fail(c, err)
			return
		}
		h.publish(c, ws.ID, "workspace", "updated", ws.ID)
	}

	c.JSON(http.StatusOK, WorkspaceResponse{Workspace: *ws, Role: member.Role})
}

// DeleteWorkspace handles DELETE /api/workspaces/:workspaceId
// Everything the workspace owns is removed in one transaction.
func (h *Handler) DeleteWorkspace(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleOwner)
	if !ok {
		return
	}

	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		return deleteWorkspaceData(tx, ws.ID)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.authz.ForgetWorkspace(ws.ID)

	h.publish(c, ws.ID, "workspace", "deleted", ws.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Workspace deleted successfully"})
}

// deleteWorkspaceData removes children before parents so it also holds with
// foreign keys enforced.
func deleteWorkspaceData(tx *gorm.DB, wsID string) error {
	tasks := func() *gorm.DB { return tx.Model(&models.Task{}).Select("id").Where("workspace_id = ?", wsID) }
	milestones := func() *gorm.DB { return tx.Model(&models.Milestone{}).Select("id").Where("workspace_id = ?", wsID) }
	projects := func() *gorm.DB { return tx.Model(&models.Project{}).Select("id").Where("workspace_id = ?", wsID) }

	steps := []func() error{
		func() error { return tx.Where("task_id IN (?)", tasks()).Delete(&models.TaskLabel{}).Error },
		func() error { return tx.Where("task_id IN (?)", tasks()).Delete(&models.TaskTag{}).Error },
		func() error { return tx.Where("task_id IN (?)", tasks()).Delete(&models.Comment{}).Error },
		func() error { return tx.Where("task_id IN (?)", tasks()).Delete(&models.Attachment{}).Error },
		func() error { return tx.Where("workspace_id = ?", wsID).Delete(&models.ActivityLog{}).Error },
		func() error {
			return tx.Model(&models.Task{}).Where("workspace_id = ?", wsID).Update("parent_id", nil).Error
		},
		func() error { return tx.Where("workspace_id = ?", wsID).Delete(&models.Task{}).Error },
		func() error { return tx.Where("milestone_id IN (?)", milestones()).Delete(&models.MilestoneAssignee{}).Error },
		func() error { return tx.Where("workspace_id = ?", wsID).Delete(&models.Milestone{}).Error },
		func() error { return tx.Where("project_id IN (?)", projects()).Delete(&models.ProjectMember{}).Error },
		func() error { return tx.Where("workspace_id = ?", wsID).Delete(&models.Label{}).Error },
		func() error { return tx.Where("workspace_id = ?", wsID).Delete(&models.Tag{}).Error },
		func() error { return tx.Where("workspace_id = ?", wsID).Delete(&models.TaskStatus{}).Error },
		func() error { return tx.Where("workspace_id = ?", wsID).Delete(&models.SavedView{}).Error },
		func() error { return tx.Where("workspace_id = ?", wsID).Delete(&models.TaskTemplate{}).Error },
		func() error { return tx.Where("workspace_id = ?", wsID).Delete(&models.Project{}).Error },
		func() error { return tx.Where("workspace_id = ?", wsID).Delete(&models.WorkspaceInvite{}).Error },
		func() error { return tx.Where("workspace_id = ?", wsID).Delete(&models.WorkspaceMember{}).Error },
		func() error { return tx.Where("id = ?", wsID).Delete(&models.Workspace{}).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
