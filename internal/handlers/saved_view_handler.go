package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SavedViewRequest creates a saved view.
type SavedViewRequest struct {
	Name      string          `json:"name" binding:"required,max=120"`
	ProjectID *string         `json:"projectId"`
	Filters   json.RawMessage `json:"filters"`
	Sort      json.RawMessage `json:"sort"`
	GroupBy   string          `json:"groupBy" binding:"max=60"`
	Layout    string          `json:"layout" binding:"omitempty,oneof=list board calendar timeline"`
	IsPublic  bool            `json:"isPublic"`
}

// UpdateSavedViewRequest changes a saved view.
type UpdateSavedViewRequest struct {
	Name     *string         `json:"name" binding:"omitempty,max=120"`
	Filters  json.RawMessage `json:"filters"`
	Sort     json.RawMessage `json:"sort"`
	GroupBy  *string         `json:"groupBy" binding:"omitempty,max=60"`
	Layout   *string         `json:"layout" binding:"omitempty,oneof=list board calendar timeline"`
	IsPublic *bool           `json:"isPublic"`
}

func jsonOr(raw json.RawMessage, fallback string) datatypes.JSON {
	if len(raw) == 0 || string(raw) == "null" {
		return datatypes.JSON(fallback)
	}
	return datatypes.JSON(raw)
}

// ListSavedViews handles GET /api/workspaces/:workspaceId/saved-views
// Returns the caller's views and the workspace's public ones.
func (h *Handler) ListSavedViews(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}

	var views []models.SavedView
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		q := tx.Where("workspace_id = ? AND (owner_id = ? OR is_public = ?)", ws.ID, actor.UserID, true)
		if v := c.Query("projectId"); v != "" {
			q = q.Where("project_id = ?", v)
		}
		return q.Order("name asc").Find(&views).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"views": views, "count": len(views)})
}

// CreateSavedView handles POST /api/workspaces/:workspaceId/saved-views
func (h *Handler) CreateSavedView(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}
	var req SavedViewRequest
	if !h.bindJSON(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.fail(c, apperr.Invalid("Name is required"))
		return
	}
	layout := req.Layout
	if layout == "" {
		layout = "list"
	}

	view := models.SavedView{
		WorkspaceID: ws.ID,
		ProjectID:   optionalID(req.ProjectID),
		OwnerID:     actor.UserID,
		Name:        name,
		Filters:     jsonOr(req.Filters, "{}"),
		Sort:        jsonOr(req.Sort, "[]"),
		GroupBy:     req.GroupBy,
		Layout:      layout,
		IsPublic:    req.IsPublic,
	}
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		if err := projectInWorkspace(tx, ws.ID, view.ProjectID); err != nil {
			return err
		}
		return tx.Create(&view).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// ownedView scopes a query to :itemId owned by the caller. Views owned by
// someone else are indistinguishable from missing ones.
func ownedView(tx *gorm.DB, c *gin.Context, wsID, ownerID string) *gorm.DB {
	return tx.Where("id = ? AND workspace_id = ? AND owner_id = ?", c.Param("itemId"), wsID, ownerID)
}

// UpdateSavedView handles PUT /api/workspaces/:workspaceId/saved-views/:itemId
func (h *Handler) UpdateSavedView(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}
	var req UpdateSavedViewRequest
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
	if len(req.Filters) > 0 {
		updates["filters"] = jsonOr(req.Filters, "{}")
	}
	if len(req.Sort) > 0 {
		updates["sort"] = jsonOr(req.Sort, "[]")
	}
	if req.GroupBy != nil {
		updates["group_by"] = *req.GroupBy
	}
	if req.Layout != nil {
		updates["layout"] = *req.Layout
	}
	if req.IsPublic != nil {
		updates["is_public"] = *req.IsPublic
	}

	var view models.SavedView
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		if err := ownedView(tx, c, ws.ID, actor.UserID).First(&view).Error; err != nil {
			if isNotFound(err) {
				return apperr.NotFound("Saved view not found")
			}
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&view).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&view, "id = ?", view.ID).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// DeleteSavedView handles DELETE /api/workspaces/:workspaceId/saved-views/:itemId
func (h *Handler) DeleteSavedView(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}

	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		res := ownedView(tx, c, ws.ID, actor.UserID).Delete(&models.SavedView{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Saved view not found")
		}
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Saved view deleted successfully"})
}
