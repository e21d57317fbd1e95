package handlers

import (
	"net/http"
	"strings"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LabelRequest creates a label; ProjectID narrows it to one project.
type LabelRequest struct {
	Name      string  `json:"name" binding:"required,max=60"`
	Color     string  `json:"color" binding:"max=32"`
	ProjectID *string `json:"projectId"`
}

// TagRequest creates a tag.
type TagRequest struct {
	Name  string `json:"name" binding:"required,max=60"`
	Color string `json:"color" binding:"max=32"`
}

// UpdateMarkerRequest renames or recolours a label or tag.
type UpdateMarkerRequest struct {
	Name  *string `json:"name" binding:"omitempty,max=60"`
	Color *string `json:"color" binding:"omitempty,max=32"`
}

const (
	msgLabelExists = "A label with this name already exists"
	msgTagExists   = "A tag with this name already exists"
)

// ListLabels handles GET /api/workspaces/:workspaceId/labels
// With ?projectId the project's own labels are listed alongside workspace ones.
func (h *Handler) ListLabels(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}

	var labels []models.Label
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		q := tx.Where("workspace_id = ?", ws.ID)
		if projectID := c.Query("projectId"); projectID != "" {
			q = q.Where("scope = '' OR scope = ?", projectID)
		} else {
			q = q.Where("scope = ''")
		}
		return q.Order("name asc").Find(&labels).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"labels": labels, "count": len(labels)})
}

// CreateLabel handles POST /api/workspaces/:workspaceId/labels
func (h *Handler) CreateLabel(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req LabelRequest
	if !h.bindJSON(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.fail(c, apperr.Invalid("Name is required"))
		return
	}

	label := models.Label{WorkspaceID: ws.ID, ProjectID: optionalID(req.ProjectID), Name: name, Color: req.Color}
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		if err := projectInWorkspace(tx, ws.ID, label.ProjectID); err != nil {
			return err
		}
		return tx.Create(&label).Error
	})
	if apperr.Is(err, apperr.KindConflict) {
		err = apperr.Conflict(msgLabelExists)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "label", "created", label.ID)
	c.JSON(http.StatusCreated, label)
}

// UpdateLabel handles PUT /api/workspaces/:workspaceId/labels/:itemId
func (h *Handler) UpdateLabel(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req UpdateMarkerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	updates, err := markerUpdates(req)
	if err != nil {
		h.fail(c, err)
		return
	}

	var label models.Label
	err = h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND workspace_id = ?", c.Param("itemId"), ws.ID).First(&label).Error; err != nil {
			if isNotFound(err) {
				return apperr.NotFound("Label not found")
			}
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&label).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&label, "id = ?", label.ID).Error
	})
	if apperr.Is(err, apperr.KindConflict) {
		err = apperr.Conflict(msgLabelExists)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "label", "updated", label.ID)
	c.JSON(http.StatusOK, label)
}

// DeleteLabel handles DELETE /api/workspaces/:workspaceId/labels/:itemId
func (h *Handler) DeleteLabel(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}

	id := c.Param("itemId")
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&models.Label{}).Where("id = ? AND workspace_id = ?", id, ws.ID).Count(&owned).Error; err != nil {
			return err
		}
		if owned == 0 {
			return apperr.NotFound("Label not found")
		}
		if err := tx.Where("label_id = ?", id).Delete(&models.TaskLabel{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Label{}).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "label", "deleted", id)
	c.JSON(http.StatusOK, gin.H{"message": "Label deleted successfully"})
}

func markerUpdates(req UpdateMarkerRequest) (map[string]any, error) {
	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Invalid("Name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	return updates, nil
}

// ListTags handles GET /api/workspaces/:workspaceId/tags
func (h *Handler) ListTags(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}

	var tags []models.Tag
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		q := tx.Where("workspace_id = ?", ws.ID)
		if search := c.Query("search"); search != "" {
			q = q.Where("name_key LIKE ?", models.TagKey(search)+"%")
		}
		return q.Order("name_key asc").Find(&tags).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags, "count": len(tags)})
}

// CreateTag handles POST /api/workspaces/:workspaceId/tags
// Names are unique per workspace ignoring case.
func (h *Handler) CreateTag(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req TagRequest
	if !h.bindJSON(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.fail(c, apperr.Invalid("Name is required"))
		return
	}

	tag := models.Tag{WorkspaceID: ws.ID, Name: name, Color: req.Color}
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		return tx.Create(&tag).Error
	})
	if apperr.Is(err, apperr.KindConflict) {
		err = apperr.Conflict(msgTagExists)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "tag", "created", tag.ID)
	c.JSON(http.StatusCreated, tag)
}

// UpdateTag handles PUT /api/workspaces/:workspaceId/tags/:itemId
func (h *Handler) UpdateTag(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req UpdateMarkerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	updates, err := markerUpdates(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if name, ok := updates["name"].(string); ok {
		// hooks do not run for map updates
		updates["name_key"] = models.TagKey(name)
	}

	var tag models.Tag
	err = h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND workspace_id = ?", c.Param("itemId"), ws.ID).First(&tag).Error; err != nil {
			if isNotFound(err) {
				return apperr.NotFound("Tag not found")
			}
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&tag).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&tag, "id = ?", tag.ID).Error
	})
	if apperr.Is(err, apperr.KindConflict) {
		err = apperr.Conflict(msgTagExists)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "tag", "updated", tag.ID)
	c.JSON(http.StatusOK, tag)
}

// DeleteTag handles DELETE /api/workspaces/:workspaceId/tags/:itemId
func (h *Handler) DeleteTag(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}

	id := c.Param("itemId")
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&models.Tag{}).Where("id = ? AND workspace_id = ?", id, ws.ID).Count(&owned).Error; err != nil {
			return err
		}
		if owned == 0 {
			return apperr.NotFound("Tag not found")
		}
		if err := tx.Where("tag_id = ?", id).Delete(&models.TaskTag{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Tag{}).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "tag", "deleted", id)
	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted successfully"})
}
