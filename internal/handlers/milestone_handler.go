package handlers

import (
	"net/http"
	"strings"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateMilestoneRequest represents the request payload for creating a milestone
type CreateMilestoneRequest struct {
	Name        string                 `json:"name" binding:"required,max=120"`
	Description string                 `json:"description" binding:"max=5000"`
	ProjectID   *string                `json:"projectId"`
	StartDate   *string                `json:"startDate"`
	DueDate     *string                `json:"dueDate"`
	Priority    models.TaskPriority    `json:"priority"`
	Status      models.MilestoneStatus `json:"status"`
	AssigneeIDs []string               `json:"assigneeIds"`
}

// UpdateMilestoneRequest represents the request payload for updating a milestone
type UpdateMilestoneRequest struct {
	Name        *string                 `json:"name" binding:"omitempty,max=120"`
	Description *string                 `json:"description" binding:"omitempty,max=5000"`
	ProjectID   *string                 `json:"projectId"`
	StartDate   *string                 `json:"startDate"`
	DueDate     *string                 `json:"dueDate"`
	Priority    *models.TaskPriority    `json:"priority"`
	Status      *models.MilestoneStatus `json:"status"`
	AssigneeIDs []string                `json:"assigneeIds"`
}

// replaceMilestoneAssignees swaps the join rows in one bulk insert.
func replaceMilestoneAssignees(tx *gorm.DB, milestoneID string, ids []string) error {
	if err := tx.Where("milestone_id = ?", milestoneID).Delete(&models.MilestoneAssignee{}).Error; err != nil {
		return err
	}
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil
	}
	rows := make([]models.MilestoneAssignee, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.MilestoneAssignee{MilestoneID: milestoneID, UserID: id})
	}
	return tx.Create(&rows).Error
}

// withTaskCounts fills TaskCount for each milestone with one grouped query.
func withTaskCounts(tx *gorm.DB, milestones []models.Milestone) error {
	if len(milestones) == 0 {
		return nil
	}
	ids := make([]string, len(milestones))
	for i, m := range milestones {
		ids[i] = m.ID
	}
	type row struct {
		MilestoneID string
		Count       int64
	}
	var rows []row
	if err := tx.Model(&models.Task{}).
		Select("milestone_id, COUNT(*) as count").
		Where("milestone_id IN ?", ids).
		Group("milestone_id").
		Scan(&rows).Error; err != nil {
		return err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.MilestoneID] = r.Count
	}
	for i := range milestones {
		milestones[i].TaskCount = counts[milestones[i].ID]
	}
	return nil
}

func findMilestone(tx *gorm.DB, wsID, id string) (*models.Milestone, error) {
	var m models.Milestone
	if err := tx.Preload("Assignees").Where("id = ? AND workspace_id = ?", id, wsID).First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Milestone not found")
		}
		return nil, err
	}
	list := []models.Milestone{m}
	if err := withTaskCounts(tx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListMilestones handles GET /api/workspaces/:workspaceId/milestones
// Optional filters: projectId, status.
func (h *Handler) ListMilestones(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}

	var milestones []models.Milestone
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		q := tx.Preload("Assignees").Where("workspace_id = ?", ws.ID)
		if v := c.Query("projectId"); v != "" {
			q = q.Where("project_id = ?", v)
		}
		if v := c.Query("status"); v != "" {
			q = q.Where("status = ?", v)
		}
		if err := q.Order("due_date asc").Order("created_at asc").Find(&milestones).Error; err != nil {
			return err
		}
		return withTaskCounts(tx, milestones)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if milestones == nil {
		milestones = []models.Milestone{}
	}

	c.JSON(http.StatusOK, gin.H{"milestones": milestones, "count": len(milestones)})
}

// CreateMilestone handles POST /api/workspaces/:workspaceId/milestones
func (h *Handler) CreateMilestone(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req CreateMilestoneRequest
	if !h.bindJSON(c, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.fail(c, apperr.Invalid("Name is required"))
		return
	}
	priority, status := req.Priority, req.Status
	if priority == "" {
		priority = models.PriorityNone
	}
	if status == "" {
		status = models.MilestonePlanned
	}
	if !priority.Valid() || !status.Valid() {
		h.fail(c, apperr.Invalid("Invalid priority or status"))
		return
	}
	start, err := parseOptionalDate("startDate", req.StartDate)
	if err != nil {
		h.fail(c, err)
		return
	}
	due, err := parseOptionalDate("dueDate", req.DueDate)
	if err != nil {
		h.fail(c, err)
		return
	}
	if start != nil && due != nil && due.Before(*start) {
		h.fail(c, apperr.Invalid("dueDate cannot be before startDate"))
		return
	}

	milestone := &models.Milestone{
		WorkspaceID: ws.ID,
		ProjectID:   optionalID(req.ProjectID),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		StartDate:   start,
		DueDate:     due,
		Priority:    priority,
		Status:      status,
		CreatorID:   actor.UserID,
	}
	err = h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		if err := projectInWorkspace(tx, ws.ID, milestone.ProjectID); err != nil {
			return err
		}
		if err := checkWorkspaceUsers(tx, ws.ID, req.AssigneeIDs); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(milestone).Error; err != nil {
			return err
		}
		if err := replaceMilestoneAssignees(tx, milestone.ID, req.AssigneeIDs); err != nil {
			return err
		}
		if err := recordActivity(tx, ws.ID, nil, actor.UserID, "milestone.created", map[string]any{
			"milestoneId": milestone.ID,
			"name":        milestone.Name,
		}); err != nil {
			return err
		}
		var err error
		milestone, err = findMilestone(tx, ws.ID, milestone.ID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "milestone", "created", milestone.ID)
	c.JSON(http.StatusCreated, milestone)
}

// GetMilestone handles GET /api/workspaces/:workspaceId/milestones/:itemId
func (h *Handler) GetMilestone(c *gin.Context) {
	ws, _, ok := h.workspaceFor(c, models.RoleViewer)
	if !ok {
		return
	}

	var milestone *models.Milestone
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		var err error
		milestone, err = findMilestone(tx, ws.ID, c.Param("itemId"))
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, milestone)
}

// UpdateMilestone handles PUT /api/workspaces/:workspaceId/milestones/:itemId
func (h *Handler) UpdateMilestone(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req UpdateMilestoneRequest
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
	if req.Priority != nil {
		if !req.Priority.Valid() {
			h.fail(c, apperr.Invalid("Invalid priority"))
			return
		}
		updates["priority"] = *req.Priority
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			h.fail(c, apperr.Invalid("Invalid status"))
			return
		}
		updates["status"] = *req.Status
	}
	if req.StartDate != nil {
		d, err := parseOptionalDate("startDate", req.StartDate)
		if err != nil {
			h.fail(c, err)
			return
		}
		updates["start_date"] = d
	}
	if req.DueDate != nil {
		d, err := parseOptionalDate("dueDate", req.DueDate)
		if err != nil {
			h.fail(c, err)
			return
		}
		updates["due_date"] = d
	}
	var projectID *string
	if req.ProjectID != nil {
		projectID = optionalID(req.ProjectID)
		updates["project_id"] = projectID
	}

	var milestone *models.Milestone
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		current, err := findMilestone(tx, ws.ID, c.Param("itemId"))
		if err != nil {
			return err
		}
		if err := projectInWorkspace(tx, ws.ID, projectID); err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(current).Omit(clause.Associations).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.AssigneeIDs != nil {
			if err := checkWorkspaceUsers(tx, ws.ID, req.AssigneeIDs); err != nil {
				return err
			}
			if err := replaceMilestoneAssignees(tx, current.ID, req.AssigneeIDs); err != nil {
				return err
			}
		}
		if err := recordActivity(tx, ws.ID, nil, actor.UserID, "milestone.updated", map[string]any{
			"milestoneId": current.ID,
		}); err != nil {
			return err
		}
		milestone, err = findMilestone(tx, ws.ID, current.ID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "milestone", "updated", milestone.ID)
	c.JSON(http.StatusOK, milestone)
}

// DeleteMilestone handles DELETE /api/workspaces/:workspaceId/milestones/:itemId
// Tasks keep existing and lose the reference.
func (h *Handler) DeleteMilestone(c *gin.Context) {
	ws, actor, ok := h.workspaceFor(c, models.RoleAdmin)
	if !ok {
		return
	}

	id := c.Param("itemId")
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		m, err := findMilestone(tx, ws.ID, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Task{}).Where("milestone_id = ?", m.ID).Update("milestone_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("milestone_id = ?", m.ID).Delete(&models.MilestoneAssignee{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Milestone{}, "id = ?", m.ID).Error; err != nil {
			return err
		}
		return recordActivity(tx, ws.ID, nil, actor.UserID, "milestone.deleted", map[string]any{
			"milestoneId": m.ID,
			"name":        m.Name,
		})
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, ws.ID, "milestone", "deleted", id)
	c.JSON(http.StatusOK, gin.H{"message": "Milestone deleted successfully"})
}
