package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateProjectRequest represents the request payload for creating a project
type CreateProjectRequest struct {
	Name        string   `json:"name" binding:"required,max=120"`
	Key         string   `json:"key" binding:"omitempty,max=10"`
	Description string   `json:"description" binding:"max=5000"`
	MemberIDs   []string `json:"memberIds"`
}

// UpdateProjectRequest represents the request payload for updating a project
type UpdateProjectRequest struct {
	Name        *string  `json:"name" binding:"omitempty,max=120"`
	Key         *string  `json:"key" binding:"omitempty,max=10"`
	Description *string  `json:"description" binding:"omitempty,max=5000"`
	MemberIDs   []string `json:"memberIds"`
}

var (
	projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)
	nonKeyChars       = regexp.MustCompile(`[^A-Z0-9 ]+`)
)

const msgKeyTaken = "Project key is already in use in this workspace"

// deriveProjectKey builds a key from the initials of name, or its first
// letters for single-word names.
func deriveProjectKey(name string) string {
	words := strings.Fields(nonKeyChars.ReplaceAllString(strings.ToUpper(name), " "))
	var key string
	if len(words) > 1 {
		for _, w := range words {
			key += w[:1]
		}
	} else if len(words) == 1 {
		key = words[0]
	}
	key = strings.TrimLeft(key, "0123456789")
	if len(key) > 4 {
		key = key[:4]
	}
	if len(key) < 2 {
		key = "PRJ"
	}
	return key
}

// checkWorkspaceUsers verifies every id is an active member of wsID.
func checkWorkspaceUsers(tx *gorm.DB, wsID string, ids []string) error {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil
	}
	var count int64
	err := tx.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND status = ? AND user_id IN ?", wsID, models.MemberActive, ids).
		Count(&count).Error
	if err != nil {
		return err
	}
	if int(count) != len(ids) {
		return apperr.Invalid("Every member must belong to the workspace")
	}
	return nil
}

func replaceProjectMembers(tx *gorm.DB, projectID string, ids []string) error {
	if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
		return err
	}
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil
	}
	rows := make([]models.ProjectMember, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.ProjectMember{ProjectID: projectID, UserID: id})
	}
	return tx.Create(&rows).Error
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ListProjects handles GET /api/workspaces/:workspaceId/projects
func (h *Handler) ListProjects(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}

	var projects []models.Project
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		q := tx.Where("workspace_id = ?", ws.ID)
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
		}
		return q.Order("name asc").Find(&projects).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"count":    len(projects),
	})
}

// CreateProject handles POST /api/workspaces/:workspaceId/projects
func (h *Handler) CreateProject(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req CreateProjectRequest
	if !h.bindJSON(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.fail(c, apperr.Invalid("Name is required"))
		return
	}
	key := strings.ToUpper(strings.TrimSpace(req.Key))
	if key == "" {
		key = deriveProjectKey(name)
	}
	if !projectKeyPattern.MatchString(key) {
		h.fail(c, apperr.Invalid("Key must be 2-10 uppercase letters or digits, starting with a letter"))
		return
	}

	project := models.Project{
		WorkspaceID: ws.ID,
		Name:        name,
		Key:         key,
		Description: strings.TrimSpace(req.Description),
		CreatorID:   actor.UserID,
	}
	members := append([]string{actor.UserID}, req.MemberIDs...)
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		if err := checkWorkspaceUsers(tx, ws.ID, members); err != nil {
			return err
		}
		if err := tx.Omit("Members").Create(&project).Error; err != nil {
			return err
		}
		if err := replaceProjectMembers(tx, project.ID, members); err != nil {
			return err
		}
		if err := recordActivity(tx, ws.ID, nil, actor.UserID, "project.created", map[string]any{
			"projectId": project.ID,
			"name":      project.Name,
		}); err != nil {
			return err
		}
		return tx.Preload("Members").First(&project, "id = ?", project.ID).Error
	})
	if apperr.Is(err, apperr.KindConflict) {
		err = apperr.Conflict(msgKeyTaken)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "project", "created", project.ID)
	c.JSON(http.StatusCreated, project)
}

// GetProject handles GET /api/projects/:projectId
func (h *Handler) GetProject(c *gin.Context) {
	project, _, ok := h.projectFor(c, models.RoleViewer)
	if !ok {
		return
	}

	var taskCount int64
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		if err := tx.Preload("Members").First(project, "id = ?", project.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Task{}).Where("project_id = ?", project.ID).Count(&taskCount).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project":   project,
		"taskCount": taskCount,
	})
}

// UpdateProject handles PUT /api/projects/:projectId
func (h *Handler) UpdateProject(c *gin.Context) {
	project, actor, ok := h.projectFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req UpdateProjectRequest
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
	if req.Key != nil {
		key := strings.ToUpper(strings.TrimSpace(*req.Key))
		if !projectKeyPattern.MatchString(key) {
			h.fail(c, apperr.Invalid("Key must be 2-10 uppercase letters or digits, starting with a letter"))
			return
		}
		if key != project.Key {
			if !actor.Role.AtLeast(models.RoleAdmin) {
				h.fail(c, apperr.Forbidden("Only admins can change a project key"))
				return
			}
			updates["key"] = key
		}
	}

	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(project).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.MemberIDs != nil {
			if err := checkWorkspaceUsers(tx, project.WorkspaceID, req.MemberIDs); err != nil {
				return err
			}
			if err := replaceProjectMembers(tx, project.ID, req.MemberIDs); err != nil {
				return err
			}
		}
		if err := recordActivity(tx, project.WorkspaceID, nil, actor.UserID, "project.updated", map[string]any{
			"projectId": project.ID,
		}); err != nil {
			return err
		}
		return tx.Preload("Members").First(project, "id = ?", project.ID).Error
	})
	if apperr.Is(err, apperr.KindConflict) {
		err = apperr.Conflict(msgKeyTaken)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, project.WorkspaceID, "project", "updated", project.ID)
	c.JSON(http.StatusOK, project)
}

// DeleteProject handles DELETE /api/projects/:projectId
// Tasks and project-scoped configuration go with it.
func (h *Handler) DeleteProject(c *gin.Context) {
	project, actor, ok := h.projectFor(c, models.RoleAdmin)
	if !ok {
		return
	}

	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		tasks := func() *gorm.DB { return tx.Model(&models.Task{}).Select("id").Where("project_id = ?", project.ID) }
		steps := []func() error{
			func() error { return tx.Where("task_id IN (?)", tasks()).Delete(&models.TaskLabel{}).Error },
			func() error { return tx.Where("task_id IN (?)", tasks()).Delete(&models.TaskTag{}).Error },
			func() error { return tx.Where("task_id IN (?)", tasks()).Delete(&models.Comment{}).Error },
			func() error { return tx.Where("task_id IN (?)", tasks()).Delete(&models.Attachment{}).Error },
			func() error {
				return tx.Model(&models.Task{}).Where("project_id = ?", project.ID).Update("parent_id", nil).Error
			},
			func() error { return tx.Where("project_id = ?", project.ID).Delete(&models.Task{}).Error },
			func() error {
				return tx.Model(&models.Milestone{}).Where("project_id = ?", project.ID).Update("project_id", nil).Error
			},
			func() error { return tx.Where("project_id = ?", project.ID).Delete(&models.Label{}).Error },
			func() error { return tx.Where("project_id = ?", project.ID).Delete(&models.TaskStatus{}).Error },
			func() error { return tx.Where("project_id = ?", project.ID).Delete(&models.SavedView{}).Error },
			func() error { return tx.Where("project_id = ?", project.ID).Delete(&models.ProjectMember{}).Error },
			func() error { return tx.Delete(project).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return recordActivity(tx, project.WorkspaceID, nil, actor.UserID, "project.deleted", map[string]any{
			"projectId": project.ID,
			"name":      project.Name,
		})
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, project.WorkspaceID, "project", "deleted", project.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}
