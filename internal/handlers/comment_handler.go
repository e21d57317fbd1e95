package handlers

import (
	"net/http"
	"strings"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CommentRequest carries a comment body.
type CommentRequest struct {
	Body string `json:"body" binding:"required,max=10000"`
}

// ListComments handles GET /api/tasks/:taskId/comments
func (h *Handler) ListComments(c *gin.Context) {
	task, _, ok := h.taskFor(c, models.RoleViewer)
	if !ok {
		return
	}

	var comments []models.Comment
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		return tx.Preload("Author").Where("task_id = ?", task.ID).Order("created_at asc").Find(&comments).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"count":    len(comments),
	})
}

// CreateComment handles POST /api/tasks/:taskId/comments
func (h *Handler) CreateComment(c *gin.Context) {
	task, actor, ok := h.taskFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req CommentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		h.fail(c, apperr.Invalid("Comment cannot be empty"))
		return
	}

	comment := models.Comment{TaskID: task.ID, AuthorID: actor.UserID, Body: body}
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		if err := tx.Omit("Author").Create(&comment).Error; err != nil {
			return err
		}
		if err := recordActivity(tx, task.WorkspaceID, &task.ID, actor.UserID, "comment.created", map[string]any{
			"commentId": comment.ID,
		}); err != nil {
			return err
		}
		return tx.Preload("Author").First(&comment, "id = ?", comment.ID).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, task.WorkspaceID, "comment", "created", comment.ID)
	c.JSON(http.StatusCreated, comment)
}

// commentFor loads :commentId with its task and checks the caller may change
// it: authors always, admins for anyone's comment.
func (h *Handler) commentFor(c *gin.Context) (*models.Comment, *models.Task, *models.WorkspaceMember, bool) {
	ctx := c.Request.Context()
	var comment models.Comment
	if err := h.load(ctx, &comment, c.Param("commentId"), "Comment not found"); err != nil {
		h.fail(c, err)
		return nil, nil, nil, false
	}
	var task models.Task
	if err := h.load(ctx, &task, comment.TaskID, "Comment not found"); err != nil {
		h.fail(c, err)
		return nil, nil, nil, false
	}
	member, err := h.authz.Require(ctx, task.WorkspaceID, currentUserID(c), models.RoleViewer)
	if err != nil {
		h.fail(c, err)
		return nil, nil, nil, false
	}
	if comment.AuthorID != member.UserID && !member.Role.AtLeast(models.RoleAdmin) {
		h.fail(c, apperr.Forbidden("You can only change your own comments"))
		return nil, nil, nil, false
	}
	return &comment, &task, member, true
}

// UpdateComment handles PUT /api/comments/:commentId
func (h *Handler) UpdateComment(c *gin.Context) {
	comment, task, _, ok := h.commentFor(c)
	if !ok {
		return
	}
	if comment.AuthorID != currentUserID(c) {
		h.fail(c, apperr.Forbidden("You can only edit your own comments"))
		return
	}
	var req CommentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		h.fail(c, apperr.Invalid("Comment cannot be empty"))
		return
	}

	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		if err := tx.Model(comment).Update("body", body).Error; err != nil {
			return err
		}
		return tx.Preload("Author").First(comment, "id = ?", comment.ID).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, task.WorkspaceID, "comment", "updated", comment.ID)
	c.JSON(http.StatusOK, comment)
}

// DeleteComment handles DELETE /api/comments/:commentId
func (h *Handler) DeleteComment(c *gin.Context) {
	comment, task, member, ok := h.commentFor(c)
	if !ok {
		return
	}

	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		if err := tx.Delete(comment).Error; err != nil {
			return err
		}
		return recordActivity(tx, task.WorkspaceID, &task.ID, member.UserID, "comment.deleted", map[string]any{
			"commentId": comment.ID,
		})
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, task.WorkspaceID, "comment", "deleted", comment.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
