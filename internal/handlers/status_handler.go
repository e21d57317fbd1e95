package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"slices"
	"strings"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateStatusRequest represents the request payload for creating a status
type CreateStatusRequest struct {
	Name      string  `json:"name" binding:"required,max=60"`
	ProjectID *string `json:"projectId"`
	Color     string  `json:"color" binding:"max=32"`
	BgColor   string  `json:"bgColor" binding:"max=32"`
	TextColor string  `json:"textColor" binding:"max=32"`
	IsDone    bool    `json:"isDone"`
}

// UpdateStatusRequest represents the request payload for updating a status
type UpdateStatusRequest struct {
	Name      *string `json:"name" binding:"omitempty,max=60"`
	Color     *string `json:"color" binding:"omitempty,max=32"`
	BgColor   *string `json:"bgColor" binding:"omitempty,max=32"`
	TextColor *string `json:"textColor" binding:"omitempty,max=32"`
	IsDone    *bool   `json:"isDone"`
}

// ReorderStatusesRequest lists status ids in their new order.
type ReorderStatusesRequest struct {
	ProjectID *string  `json:"projectId"`
	IDs       []string `json:"ids" binding:"required,min=1"`
}

const msgStatusExists = "A status with this name already exists"

func loadStatuses(tx *gorm.DB, wsID, scope string, out *[]models.TaskStatus) error {
	return tx.Where("workspace_id = ? AND scope = ?", wsID, scope).
		Order("sort_order asc, created_at asc").
		Find(out).Error
}

// ensureStatuses returns the workspace-level statuses, provisioning the
// default set the first time they are read. Concurrent first reads collapse
// into one insert, and the unique index absorbs races across processes.
func (h *Handler) ensureStatuses(ctx context.Context, wsID string) ([]models.TaskStatus, error) {
	var statuses []models.TaskStatus
	if err := h.db.Do(ctx, func(tx *gorm.DB) error {
		return loadStatuses(tx, wsID, models.ScopeKey(nil), &statuses)
	}); err != nil {
		return nil, err
	}
	if len(statuses) > 0 {
		return statuses, nil
	}

	v, err, _ := h.statuses.Do(wsID, func() (any, error) {
		return h.provisionDefaultStatuses(ctx, wsID)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]models.TaskStatus)), nil
}

// provisionDefaultStatuses inserts the default set and returns the workspace
// statuses. Its result is shared by every collapsed caller, so it ignores the
// cancellation of the caller that happened to start it.
func (h *Handler) provisionDefaultStatuses(ctx context.Context, wsID string) ([]models.TaskStatus, error) {
	var out []models.TaskStatus
	err := h.db.Transaction(context.WithoutCancel(ctx), func(tx *gorm.DB) error {
		defaults := models.DefaultTaskStatuses(wsID)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
			return err
		}
		return loadStatuses(tx, wsID, models.ScopeKey(nil), &out)
	})
	if err != nil {
		return nil, err
	}
	h.log.Debug().Str("workspace_id", wsID).Msg("provisioned default statuses")
	return out, nil
}

// effectiveStatuses returns the statuses tasks of a project may use: the
// project's own set once it has one, the workspace set otherwise.
func (h *Handler) effectiveStatuses(ctx context.Context, wsID string, projectID *string) ([]models.TaskStatus, error) {
	if projectID != nil {
		var own []models.TaskStatus
		if err := h.db.Do(ctx, func(tx *gorm.DB) error {
			return loadStatuses(tx, wsID, *projectID, &own)
		}); err != nil {
			return nil, err
		}
		if len(own) > 0 {
			return own, nil
		}
	}
	return h.ensureStatuses(ctx, wsID)
}

// forkProjectStatuses gives a project its own copy of the workspace statuses
// and moves the project's tasks onto the copies. The returned map takes each
// workspace status id to its copy; it is empty when the project already had
// its own set. The workspace set must already exist.
func forkProjectStatuses(tx *gorm.DB, wsID, projectID string) (map[string]string, error) {
	var own int64
	if err := tx.Model(&models.TaskStatus{}).
		Where("workspace_id = ? AND scope = ?", wsID, projectID).
		Count(&own).Error; err != nil {
		return nil, err
	}
	if own > 0 {
		return nil, nil
	}

	var shared []models.TaskStatus
	if err := loadStatuses(tx, wsID, models.ScopeKey(nil), &shared); err != nil {
		return nil, err
	}
	if len(shared) == 0 {
		return nil, nil
	}
	copies := make([]models.TaskStatus, 0, len(shared))
	for _, s := range shared {
		copies = append(copies, models.TaskStatus{
			WorkspaceID: wsID,
			ProjectID:   &projectID,
			Name:        s.Name,
			Color:       s.Color,
			BgColor:     s.BgColor,
			TextColor:   s.TextColor,
			Order:       s.Order,
			IsDone:      s.IsDone,
			IsSystem:    s.IsSystem,
		})
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&copies).Error; err != nil {
		return nil, err
	}

	var forked []models.TaskStatus
	if err := loadStatuses(tx, wsID, projectID, &forked); err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(forked))
	for _, s := range forked {
		byName[s.Name] = s.ID
	}
	moved := make(map[string]string, len(shared))
	for _, s := range shared {
		target, ok := byName[s.Name]
		if !ok {
			continue
		}
		if err := tx.Model(&models.Task{}).
			Where("project_id = ? AND status_id = ?", projectID, s.ID).
			Update("status_id", target).Error; err != nil {
			return nil, err
		}
		moved[s.ID] = target
	}
	return moved, nil
}

// projectInWorkspace checks an optional project reference belongs to wsID.
func projectInWorkspace(tx *gorm.DB, wsID string, projectID *string) error {
	if projectID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Project{}).Where("id = ? AND workspace_id = ?", *projectID, wsID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.Invalid("Project not found in this workspace")
	}
	return nil
}

// ListStatuses handles GET /api/workspaces/:workspaceId/task-statuses
func (h *Handler) ListStatuses(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}
	projectID := optionalID(ptr(c.Query("projectId")))
	ctx := c.Request.Context()
	if err := h.db.Do(ctx, func(tx *gorm.DB) error { return projectInWorkspace(tx, ws.ID, projectID) }); err != nil {
		h.fail(c, err)
		return
	}

	statuses, err := h.effectiveStatuses(ctx, ws.ID, projectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"statuses": statuses,
		"count":    len(statuses),
	})
}

// CreateStatus handles POST /api/workspaces/:workspaceId/task-statuses
func (h *Handler) CreateStatus(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}
	var req CreateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.fail(c, apperr.Invalid("Name is required"))
		return
	}
	projectID := optionalID(req.ProjectID)
	ctx := c.Request.Context()

	// Provision defaults first so a custom status is appended after them.
	if _, err := h.ensureStatuses(ctx, ws.ID); err != nil {
		h.fail(c, err)
		return
	}

	status := models.TaskStatus{
		WorkspaceID: ws.ID,
		ProjectID:   projectID,
		Name:        name,
		Color:       req.Color,
		BgColor:     req.BgColor,
		TextColor:   req.TextColor,
		IsDone:      req.IsDone,
	}
	err := h.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := projectInWorkspace(tx, ws.ID, projectID); err != nil {
			return err
		}
		if projectID != nil {
			if _, err := forkProjectStatuses(tx, ws.ID, *projectID); err != nil {
				return err
			}
		}
		var maxOrder sql.NullInt64
		if err := tx.Model(&models.TaskStatus{}).
			Where("workspace_id = ? AND scope = ?", ws.ID, models.ScopeKey(projectID)).
			Select("MAX(sort_order)").Scan(&maxOrder).Error; err != nil {
			return err
		}
		if maxOrder.Valid {
			status.Order = int(maxOrder.Int64) + 1
		}
		if err := tx.Create(&status).Error; err != nil {
			return err
		}
		return recordActivity(tx, ws.ID, nil, actor.UserID, "status.created", map[string]any{
			"statusId": status.ID,
			"name":     status.Name,
		})
	})
	if apperr.Is(err, apperr.KindConflict) {
		err = apperr.Conflict(msgStatusExists)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "status", "created", status.ID)
	c.JSON(http.StatusCreated, status)
}

func findStatus(tx *gorm.DB, wsID, id string) (*models.TaskStatus, error) {
	var s models.TaskStatus
	if err := tx.Where("id = ? AND workspace_id = ?", id, wsID).First(&s).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Status not found")
		}
		return nil, err
	}
	return &s, nil
}

// UpdateStatus handles PUT /api/workspaces/:workspaceId/task-statuses/:itemId
func (h *Handler) UpdateStatus(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}
	var req UpdateStatusRequest
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
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.BgColor != nil {
		updates["bg_color"] = *req.BgColor
	}
	if req.TextColor != nil {
		updates["text_color"] = *req.TextColor
	}
	if req.IsDone != nil {
		updates["is_done"] = *req.IsDone
	}

	var status *models.TaskStatus
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		var err error
		status, err = findStatus(tx, ws.ID, c.Param("itemId"))
		if err != nil || len(updates) == 0 {
			return err
		}
		if err := tx.Model(status).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(status, "id = ?", status.ID).Error
	})
	if apperr.Is(err, apperr.KindConflict) {
		err = apperr.Conflict(msgStatusExists)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "status", "updated", status.ID)
	c.JSON(http.StatusOK, status)
}

// DeleteStatus handles DELETE /api/workspaces/:workspaceId/task-statuses/:itemId
// Tasks still in the column must be moved with ?moveTo=<statusId>.
func (h *Handler) DeleteStatus(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}
	moveTo := strings.TrimSpace(c.Query("moveTo"))

	var status *models.TaskStatus
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		var err error
		status, err = findStatus(tx, ws.ID, c.Param("itemId"))
		if err != nil {
			return err
		}

		var siblings int64
		if err := tx.Model(&models.TaskStatus{}).
			Where("workspace_id = ? AND scope = ? AND id <> ?", ws.ID, status.Scope, status.ID).
			Count(&siblings).Error; err != nil {
			return err
		}
		if siblings == 0 {
			return apperr.Conflict("Cannot delete the last status")
		}

		var inUse int64
		if err := tx.Model(&models.Task{}).Where("status_id = ?", status.ID).Count(&inUse).Error; err != nil {
			return err
		}
		if inUse > 0 {
			if moveTo == "" {
				return apperr.Newf(apperr.KindConflict, "Status is used by %d tasks", inUse)
			}
			target, err := findStatus(tx, ws.ID, moveTo)
			if err != nil {
				return err
			}
			if target.Scope != status.Scope || target.ID == status.ID {
				return apperr.Invalid("Tasks can only move to another status of the same scope")
			}
			if err := tx.Model(&models.Task{}).Where("status_id = ?", status.ID).Update("status_id", target.ID).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(status).Error; err != nil {
			return err
		}
		return recordActivity(tx, ws.ID, nil, actor.UserID, "status.deleted", map[string]any{
			"statusId": status.ID,
			"name":     status.Name,
			"movedTo":  moveTo,
		})
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "status", "deleted", status.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Status deleted successfully"})
}

// ReorderStatuses handles PUT /api/workspaces/:workspaceId/task-statuses/reorder
func (h *Handler) ReorderStatuses(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}
	var req ReorderStatusesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	projectID := optionalID(req.ProjectID)
	scope := models.ScopeKey(projectID)
	ids := uniqueStrings(req.IDs)

	ctx := c.Request.Context()
	if _, err := h.ensureStatuses(ctx, ws.ID); err != nil {
		h.fail(c, err)
		return
	}

	var statuses []models.TaskStatus
	err := h.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := projectInWorkspace(tx, ws.ID, projectID); err != nil {
			return err
		}
		if projectID != nil {
			moved, err := forkProjectStatuses(tx, ws.ID, *projectID)
			if err != nil {
				return err
			}
			for i, id := range ids {
				if copied, ok := moved[id]; ok {
					ids[i] = copied
				}
			}
		}
		var count int64
		if err := tx.Model(&models.TaskStatus{}).
			Where("workspace_id = ? AND scope = ? AND id IN ?", ws.ID, scope, ids).
			Count(&count).Error; err != nil {
			return err
		}
		if int(count) != len(ids) {
			return apperr.Invalid("Every id must be a status of this scope")
		}
		for i, id := range ids {
			if err := tx.Model(&models.TaskStatus{}).Where("id = ?", id).Update("sort_order", i).Error; err != nil {
				return err
			}
		}
		return loadStatuses(tx, ws.ID, scope, &statuses)
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "status", "reordered", ws.ID)
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}
