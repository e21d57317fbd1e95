package handlers

import (
	"net/http"

	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func (h *Handler) listActivity(c *gin.Context, scope func(tx *gorm.DB) *gorm.DB) {
	page, limit, offset := pagination(c, 30)

	var (
		total   int64
		entries []models.ActivityLog
	)
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		if err := scope(tx.Model(&models.ActivityLog{})).Count(&total).Error; err != nil {
			return err
		}
		return scope(tx.Preload("Actor")).
			Order("created_at desc").
			Limit(limit).Offset(offset).
			Find(&entries).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if entries == nil {
		entries = []models.ActivityLog{}
	}

	c.JSON(http.StatusOK, gin.H{
		"activity": entries,
		"count":    len(entries),
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// WorkspaceActivity handles GET /api/workspaces/:workspaceId/activity
// Optional filters: taskId, actorId, action.
func (h *Handler) WorkspaceActivity(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}
	h.listActivity(c, func(tx *gorm.DB) *gorm.DB {
		q := tx.Where("workspace_id = ?", ws.ID)
		if v := c.Query("taskId"); v != "" {
			q = q.Where("task_id = ?", v)
		}
		if v := c.Query("actorId"); v != "" {
			q = q.Where("actor_id = ?", v)
		}
		if v := c.Query("action"); v != "" {
			q = q.Where("action = ?", v)
		}
		return q
	})
}

// TaskActivity handles GET /api/tasks/:taskId/activity
func (h *Handler) TaskActivity(c *gin.Context) {
	task, _, ok := h.taskFor(c, models.RoleViewer)
	if !ok {
		return
	}
	h.listActivity(c, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("task_id = ?", task.ID)
	})
}
