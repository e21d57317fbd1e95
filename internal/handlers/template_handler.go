package handlers

import (
	"net/http"
	"strings"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TemplateRequest creates a task template.
type TemplateRequest struct {
	Name        string              `json:"name" binding:"required,max=120"`
	Title       string              `json:"title" binding:"max=500"`
	Description string              `json:"description" binding:"max=20000"`
	Priority    models.TaskPriority `json:"priority"`
	LabelIDs    []string            `json:"labelIds"`
}

// UpdateTemplateRequest changes a task template.
type UpdateTemplateRequest struct {
	Name        *string              `json:"name" binding:"omitempty,max=120"`
	Title       *string              `json:"title" binding:"omitempty,max=500"`
	Description *string              `json:"description" binding:"omitempty,max=20000"`
	Priority    *models.TaskPriority `json:"priority"`
	LabelIDs    []string             `json:"labelIds"`
}

const msgTemplateExists = "A template with this name already exists"

// workspaceLabels checks every id is a workspace-wide label of wsID.
func workspaceLabels(tx *gorm.DB, wsID string, ids []string) error {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil
	}
	var n int64
	if err := tx.Model(&models.Label{}).Where("id IN ? AND workspace_id = ?", ids, wsID).Count(&n).Error; err != nil {
		return err
	}
	if int(n) != len(ids) {
		return apperr.Invalid("Every label must belong to this workspace")
	}
	return nil
}

// ListTemplates handles GET /api/workspaces/:workspaceId/templates
func (h *Handler) ListTemplates(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}

	var templates []models.TaskTemplate
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		return tx.Where("workspace_id = ?", ws.ID).Order("name asc").Find(&templates).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": templates, "count": len(templates)})
}

// CreateTemplate handles POST /api/workspaces/:workspaceId/templates
func (h *Handler) CreateTemplate(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req TemplateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.fail(c, apperr.Invalid("Name is required"))
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNone
	}
	if !priority.Valid() {
		h.fail(c, apperr.Invalid("Invalid priority"))
		return
	}

	tmpl := models.TaskTemplate{
		WorkspaceID: ws.ID,
		Name:        name,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Priority:    priority,
		LabelIDs:    datatypes.JSONSlice[string](uniqueStrings(req.LabelIDs)),
		CreatorID:   actor.UserID,
	}
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		if err := workspaceLabels(tx, ws.ID, req.LabelIDs); err != nil {
			return err
		}
		return tx.Create(&tmpl).Error
	})
	if apperr.Is(err, apperr.KindConflict) {
		err = apperr.Conflict(msgTemplateExists)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "template", "created", tmpl.ID)
	c.JSON(http.StatusCreated, tmpl)
}

// UpdateTemplate handles PUT /api/workspaces/:workspaceId/templates/:itemId
func (h *Handler) UpdateTemplate(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req UpdateTemplateRequest
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
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			h.fail(c, apperr.Invalid("Invalid priority"))
			return
		}
		updates["priority"] = *req.Priority
	}
	if req.LabelIDs != nil {
		updates["label_ids"] = datatypes.JSONSlice[string](uniqueStrings(req.LabelIDs))
	}

	var tmpl models.TaskTemplate
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND workspace_id = ?", c.Param("itemId"), ws.ID).First(&tmpl).Error; err != nil {
			if isNotFound(err) {
				return apperr.NotFound("Template not found")
			}
			return err
		}
		if err := workspaceLabels(tx, ws.ID, req.LabelIDs); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&tmpl).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&tmpl, "id = ?", tmpl.ID).Error
	})
	if apperr.Is(err, apperr.KindConflict) {
		err = apperr.Conflict(msgTemplateExists)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "template", "updated", tmpl.ID)
	c.JSON(http.StatusOK, tmpl)
}

// DeleteTemplate handles DELETE /api/workspaces/:workspaceId/templates/:itemId
func (h *Handler) DeleteTemplate(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}

	id := c.Param("itemId")
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND workspace_id = ?", id, ws.ID).Delete(&models.TaskTemplate{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Template not found")
		}
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "template", "deleted", id)
	c.JSON(http.StatusOK, gin.H{"message": "Template deleted successfully"})
}
