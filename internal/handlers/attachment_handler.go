package handlers

import (
	"errors"
	"net/http"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// multipart framing allowance on top of the file limit
const uploadOverhead = 1 << 20

// ListAttachments handles GET /api/tasks/:taskId/attachments
func (h *Handler) ListAttachments(c *gin.Context) {
	task, _, ok := h.taskFor(c, models.RoleViewer)
	if !ok {
		return
	}

	var attachments []models.Attachment
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		return tx.Where("task_id = ?", task.ID).Order("created_at asc").Find(&attachments).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attachments": attachments,
		"count":       len(attachments),
	})
}

// UploadAttachment handles POST /api/tasks/:taskId/attachments (multipart field "file")
func (h *Handler) UploadAttachment(c *gin.Context) {
	task, actor, ok := h.taskFor(c, models.RoleMember)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploads.MaxBytes()+uploadOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, apperr.Newf(apperr.KindTooLarge, "File exceeds the %d byte limit", h.uploads.MaxBytes()))
			return
		}
		h.fail(c, apperr.Invalid("A file is required in the \"file\" field"))
		return
	}
	src, err := header.Open()
	if err != nil {
		h.fail(c, apperr.Wrap(err, apperr.KindInvalid, "Could not read upload"))
		return
	}
	defer src.Close()

	stored, err := h.uploads.Save(task.ID, header.Filename, src)
	if err != nil {
		h.fail(c, err)
		return
	}

	attachment := models.Attachment{
		TaskID:     task.ID,
		UploaderID: actor.UserID,
		FileName:   header.Filename,
		URL:        stored.URL,
		Size:       stored.Size,
		MimeType:   stored.MimeType,
	}
	err = h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		if err := tx.Create(&attachment).Error; err != nil {
			return err
		}
		return recordActivity(tx, task.WorkspaceID, &task.ID, actor.UserID, "attachment.created", map[string]any{
			"attachmentId": attachment.ID,
			"fileName":     attachment.FileName,
			"size":         attachment.Size,
		})
	})
	if err != nil {
		if rmErr := h.uploads.Remove(stored.URL); rmErr != nil {
			log := h.logger(c)
			log.Warn().Err(rmErr).Str("path", stored.Path).Msg("removing orphaned upload")
		}
		h.fail(c, err)
		return
	}

	h.publish(c, task.WorkspaceID, "attachment", "created", attachment.ID)
	c.JSON(http.StatusCreated, attachment)
}

// DeleteAttachment handles DELETE /api/attachments/:attachmentId
// Uploaders may delete their own files; admins may delete any. Only the record
// goes; the stored file stays where it is.
func (h *Handler) DeleteAttachment(c *gin.Context) {
	ctx := c.Request.Context()
	var attachment models.Attachment
	if err := h.load(ctx, &attachment, c.Param("attachmentId"), "Attachment not found"); err != nil {
		h.fail(c, err)
		return
	}
	var task models.Task
	if err := h.load(ctx, &task, attachment.TaskID, "Attachment not found"); err != nil {
		h.fail(c, err)
		return
	}
	member, err := h.authz.Require(ctx, task.WorkspaceID, currentUserID(c), models.RoleMember)
	if err != nil {
		h.fail(c, err)
		return
	}
	if attachment.UploaderID != member.UserID && !member.Role.AtLeast(models.RoleAdmin) {
		h.fail(c, apperr.Forbidden("You can only delete your own attachments"))
		return
	}

	err = h.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Delete(&attachment).Error; err != nil {
			return err
		}
		return recordActivity(tx, task.WorkspaceID, &task.ID, member.UserID, "attachment.deleted", map[string]any{
			"attachmentId": attachment.ID,
			"fileName":     attachment.FileName,
		})
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, task.WorkspaceID, "attachment", "deleted", attachment.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Attachment deleted successfully"})
}
