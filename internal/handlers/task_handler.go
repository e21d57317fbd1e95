package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title            string              `json:"title" binding:"max=500"`
	Description      string              `json:"description" binding:"max=20000"`
	StatusID         *string             `json:"statusId"`
	Priority         models.TaskPriority `json:"priority"`
	AssigneeID       *string             `json:"assigneeId"`
	MilestoneID      *string             `json:"milestoneId"`
	ParentID         *string             `json:"parentId"`
	StartDate        *string             `json:"startDate"`
	DueDate          *string             `json:"dueDate"`
	Progress         int                 `json:"progress" binding:"min=0,max=100"`
	EstimatedMinutes *int                `json:"estimatedMinutes" binding:"omitempty,min=0"`
	LabelIDs         []string            `json:"labelIds"`
	TagIDs           []string            `json:"tagIds"`
	TemplateID       *string             `json:"templateId"`
}

// UpdateTaskRequest represents the request payload for updating a task.
// Absent fields are left alone; an empty string clears a reference or date.
type UpdateTaskRequest struct {
	Title            *string              `json:"title" binding:"omitempty,max=500"`
	Description      *string              `json:"description" binding:"omitempty,max=20000"`
	StatusID         *string              `json:"statusId"`
	Priority         *models.TaskPriority `json:"priority"`
	AssigneeID       *string              `json:"assigneeId"`
	MilestoneID      *string              `json:"milestoneId"`
	ParentID         *string              `json:"parentId"`
	StartDate        *string              `json:"startDate"`
	DueDate          *string              `json:"dueDate"`
	Progress         *int                 `json:"progress" binding:"omitempty,min=0,max=100"`
	EstimatedMinutes *int                 `json:"estimatedMinutes" binding:"omitempty,min=0"`
	SpentMinutes     *int                 `json:"spentMinutes" binding:"omitempty,min=0"`
	Position         *float64             `json:"position"`
	LabelIDs         []string             `json:"labelIds"`
	TagIDs           []string             `json:"tagIds"`
}

// MoveTaskRequest places a task in a status column.
type MoveTaskRequest struct {
	StatusID string   `json:"statusId" binding:"required"`
	Position *float64 `json:"position"`
}

const positionStep = 1000

// withTaskRelations preloads what task responses embed.
func withTaskRelations(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Status").
		Preload("Assignee").
		Preload("Creator").
		Preload("Milestone").
		Preload("Labels").
		Preload("Tags")
}

// nextTaskNumber bumps the project's counter. The UPDATE takes the row lock,
// so concurrent creators in the same project serialize here.
func nextTaskNumber(tx *gorm.DB, projectID string) (int, error) {
	res := tx.Model(&models.Project{}).Where("id = ?", projectID).
		UpdateColumn("task_counter", gorm.Expr("task_counter + ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, apperr.NotFound("Project not found")
	}
	var n int
	err := tx.Model(&models.Project{}).Where("id = ?", projectID).Select("task_counter").Scan(&n).Error
	return n, err
}

// nextPosition is one step past the last task in the column.
func nextPosition(tx *gorm.DB, projectID string, statusID *string) (float64, error) {
	q := tx.Model(&models.Task{}).Where("project_id = ?", projectID)
	if statusID != nil {
		q = q.Where("status_id = ?", *statusID)
	} else {
		q = q.Where("status_id IS NULL")
	}
	var max sql.NullFloat64
	if err := q.Select("MAX(position)").Scan(&max).Error; err != nil {
		return 0, err
	}
	if !max.Valid {
		return positionStep, nil
	}
	return max.Float64 + positionStep, nil
}

// statusValue copies a status id out of a task before an update rewrites it.
func statusValue(id *string) any {
	if id == nil {
		return nil
	}
	return *id
}

func statusIn(statuses []models.TaskStatus, id string) *models.TaskStatus {
	for i := range statuses {
		if statuses[i].ID == id {
			return &statuses[i]
		}
	}
	return nil
}

// taskRefs are the foreign references a task write may set.
type taskRefs struct {
	assigneeID  *string
	milestoneID *string
	parentID    *string
	labelIDs    []string
	tagIDs      []string
}

// validateTaskRefs checks every reference points inside the task's workspace
// and project. selfID is empty for new tasks.
func validateTaskRefs(tx *gorm.DB, project *models.Project, selfID string, refs taskRefs) error {
	count := func(q *gorm.DB) (int64, error) {
		var n int64
		err := q.Count(&n).Error
		return n, err
	}

	if refs.assigneeID != nil {
		n, err := count(tx.Model(&models.WorkspaceMember{}).
			Where("workspace_id = ? AND user_id = ? AND status = ?", project.WorkspaceID, *refs.assigneeID, models.MemberActive))
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.Invalid("Assignee must be a member of the workspace")
		}
	}
	if refs.milestoneID != nil {
		n, err := count(tx.Model(&models.Milestone{}).
			Where("id = ? AND workspace_id = ? AND (project_id IS NULL OR project_id = ?)", *refs.milestoneID, project.WorkspaceID, project.ID))
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.Invalid("Milestone not found in this project")
		}
	}
	if refs.parentID != nil {
		if err := validateParent(tx, project.ID, selfID, *refs.parentID); err != nil {
			return err
		}
	}
	if ids := uniqueStrings(refs.labelIDs); len(ids) > 0 {
		n, err := count(tx.Model(&models.Label{}).
			Where("id IN ? AND workspace_id = ? AND (scope = '' OR scope = ?)", ids, project.WorkspaceID, project.ID))
		if err != nil {
			return err
		}
		if int(n) != len(ids) {
			return apperr.Invalid("Every label must belong to this workspace or project")
		}
	}
	if ids := uniqueStrings(refs.tagIDs); len(ids) > 0 {
		n, err := count(tx.Model(&models.Tag{}).Where("id IN ? AND workspace_id = ?", ids, project.WorkspaceID))
		if err != nil {
			return err
		}
		if int(n) != len(ids) {
			return apperr.Invalid("Every tag must belong to this workspace")
		}
	}
	return nil
}

// validateParent rejects parents outside the project and parent cycles.
func validateParent(tx *gorm.DB, projectID, selfID, parentID string) error {
	if parentID == selfID {
		return apperr.Invalid("A task cannot be its own parent")
	}
	current := parentID
	for depth := 0; current != ""; depth++ {
		if depth > 32 {
			return apperr.Invalid("Task hierarchy is too deep")
		}
		var t models.Task
		if err := tx.Select("id", "project_id", "parent_id").First(&t, "id = ?", current).Error; err != nil {
			if isNotFound(err) {
				return apperr.Invalid("Parent task not found")
			}
			return err
		}
		if depth == 0 && t.ProjectID != projectID {
			return apperr.Invalid("Parent task must be in the same project")
		}
		if selfID != "" && t.ID == selfID {
			return apperr.Invalid("Task hierarchy cannot contain cycles")
		}
		current = ""
		if t.ParentID != nil {
			current = *t.ParentID
		}
	}
	return nil
}

func replaceTaskLabels(tx *gorm.DB, taskID string, ids []string) error {
	if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskLabel{}).Error; err != nil {
		return err
	}
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil
	}
	rows := make([]models.TaskLabel, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.TaskLabel{TaskID: taskID, LabelID: id})
	}
	return tx.Create(&rows).Error
}

func replaceTaskTags(tx *gorm.DB, taskID string, ids []string) error {
	if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskTag{}).Error; err != nil {
		return err
	}
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil
	}
	rows := make([]models.TaskTag, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.TaskTag{TaskID: taskID, TagID: id})
	}
	return tx.Create(&rows).Error
}

/*
*
GetTasks handles GET /api/projects/:projectId/tasks
Optional filters: statusId, assigneeId (or "me"/"none"), priority, milestoneId,
labelId, tagId, parentId (or "none"), search, dueBefore, dueAfter.
*/
func (h *Handler) GetTasks(c *gin.Context) {
	project, _, ok := h.projectFor(c, models.RoleViewer)
	if !ok {
		return
	}

	page, limit, offset := pagination(c, 50)
	sortParam := strings.ToLower(c.DefaultQuery("sort", "asc"))
	orderBy := c.DefaultQuery("orderBy", "position")
	column, known := map[string]string{
		"position":  "position",
		"number":    "number",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
		"dueDate":   "due_date",
		"priority":  "priority",
	}[orderBy]
	if !known {
		h.fail(c, apperr.Invalid("Invalid orderBy"))
		return
	}
	direction := "asc"
	if sortParam == "desc" {
		direction = "desc"
	}

	filter := func(tx *gorm.DB) (*gorm.DB, error) {
		q := tx.Model(&models.Task{}).Where("project_id = ?", project.ID)
		if v := c.Query("statusId"); v != "" {
			q = q.Where("status_id = ?", v)
		}
		switch v := c.Query("assigneeId"); v {
		case "":
		case "none":
			q = q.Where("assignee_id IS NULL")
		case "me":
			q = q.Where("assignee_id = ?", currentUserID(c))
		default:
			q = q.Where("assignee_id = ?", v)
		}
		if v := c.Query("priority"); v != "" {
			if !models.TaskPriority(v).Valid() {
				return nil, apperr.Invalid("Invalid priority")
			}
			q = q.Where("priority = ?", v)
		}
		if v := c.Query("milestoneId"); v != "" {
			q = q.Where("milestone_id = ?", v)
		}
		if v := c.Query("labelId"); v != "" {
			q = q.Where("id IN (?)", tx.Model(&models.TaskLabel{}).Select("task_id").Where("label_id = ?", v))
		}
		if v := c.Query("tagId"); v != "" {
			q = q.Where("id IN (?)", tx.Model(&models.TaskTag{}).Select("task_id").Where("tag_id = ?", v))
		}
		switch v := c.Query("parentId"); v {
		case "":
		case "none":
			q = q.Where("parent_id IS NULL")
		default:
			q = q.Where("parent_id = ?", v)
		}
		if v := strings.TrimSpace(c.Query("search")); v != "" {
			q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(v)+"%")
		}
		for param, op := range map[string]string{"dueBefore": "<=", "dueAfter": ">="} {
			if v := c.Query(param); v != "" {
				t, ok := parseDateFlexible(v)
				if !ok {
					return nil, apperr.Newf(apperr.KindInvalid, "Invalid %s", param)
				}
				q = q.Where("due_date "+op+" ?", t)
			}
		}
		return q, nil
	}

	var (
		total int64
		tasks []models.Task
	)
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		query, err := filter(tx)
		if err != nil {
			return err
		}
		if err := query.Count(&total).Error; err != nil {
			return err
		}
		return withTaskRelations(query.Session(&gorm.Session{})).
			Order(column + " " + direction).Order("number asc").
			Limit(limit).Offset(offset).
			Find(&tasks).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks), // number of items in this page
		"total": total,      // total tasks (all pages) for current filter
		"page":  page,
		"limit": limit,
		"sort":  direction,
	})
}

/*
*
CreateTask handles POST /api/projects/:projectId/tasks
Numbers are allocated from the project's counter inside the insert transaction.
*/
func (h *Handler) CreateTask(c *gin.Context) {
	project, actor, ok := h.projectFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	if tmplID := optionalID(req.TemplateID); tmplID != nil {
		var tmpl models.TaskTemplate
		err := h.db.Do(ctx, func(tx *gorm.DB) error {
			return tx.Where("id = ? AND workspace_id = ?", *tmplID, project.WorkspaceID).First(&tmpl).Error
		})
		if apperr.Is(err, apperr.KindNotFound) {
			err = apperr.Invalid("Template not found in this workspace")
		}
		if err != nil {
			h.fail(c, err)
			return
		}
		applyTemplate(&req, &tmpl)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		h.fail(c, apperr.Invalid("Title is required"))
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
	startDate, err := parseOptionalDate("startDate", req.StartDate)
	if err != nil {
		h.fail(c, err)
		return
	}
	dueDate, err := parseOptionalDate("dueDate", req.DueDate)
	if err != nil {
		h.fail(c, err)
		return
	}
	if startDate != nil && dueDate != nil && dueDate.Before(*startDate) {
		h.fail(c, apperr.Invalid("dueDate cannot be before startDate"))
		return
	}

	statuses, err := h.effectiveStatuses(ctx, project.WorkspaceID, &project.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := &statuses[0]
	if id := optionalID(req.StatusID); id != nil {
		if status = statusIn(statuses, *id); status == nil {
			h.fail(c, apperr.Invalid("Status does not belong to this project"))
			return
		}
	}

	task := models.Task{
		WorkspaceID:      project.WorkspaceID,
		ProjectID:        project.ID,
		Title:            title,
		Description:      req.Description,
		StatusID:         &status.ID,
		Priority:         priority,
		AssigneeID:       optionalID(req.AssigneeID),
		CreatorID:        actor.UserID,
		MilestoneID:      optionalID(req.MilestoneID),
		ParentID:         optionalID(req.ParentID),
		Progress:         req.Progress,
		EstimatedMinutes: req.EstimatedMinutes,
		StartDate:        startDate,
		DueDate:          dueDate,
	}
	refs := taskRefs{
		assigneeID:  task.AssigneeID,
		milestoneID: task.MilestoneID,
		parentID:    task.ParentID,
		labelIDs:    req.LabelIDs,
		tagIDs:      req.TagIDs,
	}

	err = h.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := validateTaskRefs(tx, project, "", refs); err != nil {
			return err
		}
		number, err := nextTaskNumber(tx, project.ID)
		if err != nil {
			return err
		}
		task.Number = number
		if task.Position, err = nextPosition(tx, project.ID, task.StatusID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&task).Error; err != nil {
			return err
		}
		if err := replaceTaskLabels(tx, task.ID, req.LabelIDs); err != nil {
			return err
		}
		if err := replaceTaskTags(tx, task.ID, req.TagIDs); err != nil {
			return err
		}
		if err := recordActivity(tx, task.WorkspaceID, &task.ID, actor.UserID, "task.created", map[string]any{
			"number": task.Number,
			"title":  task.Title,
		}); err != nil {
			return err
		}
		return withTaskRelations(tx).First(&task, "id = ?", task.ID).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, task.WorkspaceID, "task", "created", task.ID)
	c.JSON(http.StatusCreated, task)
}

// applyTemplate fills fields the request left empty.
func applyTemplate(req *CreateTaskRequest, tmpl *models.TaskTemplate) {
	if strings.TrimSpace(req.Title) == "" {
		req.Title = tmpl.Title
	}
	if req.Description == "" {
		req.Description = tmpl.Description
	}
	if req.Priority == "" {
		req.Priority = tmpl.Priority
	}
	if len(req.LabelIDs) == 0 {
		req.LabelIDs = append([]string(nil), tmpl.LabelIDs...)
	}
}

// GetTaskByID handles GET /api/tasks/:taskId
func (h *Handler) GetTaskByID(c *gin.Context) {
	task, _, ok := h.taskFor(c, models.RoleViewer)
	if !ok {
		return
	}

	var comments, attachments int64
	err := h.db.Do(c.Request.Context(), func(tx *gorm.DB) error {
		err := withTaskRelations(tx).
			Preload("Children", func(db *gorm.DB) *gorm.DB { return db.Order("number asc") }).
			First(task, "id = ?", task.ID).Error
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).Where("task_id = ?", task.ID).Count(&comments).Error; err != nil {
			return err
		}
		return tx.Model(&models.Attachment{}).Where("task_id = ?", task.ID).Count(&attachments).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task":            task,
		"commentCount":    comments,
		"attachmentCount": attachments,
	})
}

// UpdateTask handles PUT /api/tasks/:taskId
func (h *Handler) UpdateTask(c *gin.Context) {
	task, actor, ok := h.taskFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	updates := map[string]any{}
	refs := taskRefs{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			h.fail(c, apperr.Invalid("Title cannot be empty"))
			return
		}
		updates["title"] = title
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
	if req.AssigneeID != nil {
		refs.assigneeID = optionalID(req.AssigneeID)
		updates["assignee_id"] = refs.assigneeID
	}
	if req.MilestoneID != nil {
		refs.milestoneID = optionalID(req.MilestoneID)
		updates["milestone_id"] = refs.milestoneID
	}
	if req.ParentID != nil {
		refs.parentID = optionalID(req.ParentID)
		updates["parent_id"] = refs.parentID
	}
	start, due := task.StartDate, task.DueDate
	if req.StartDate != nil {
		d, err := parseOptionalDate("startDate", req.StartDate)
		if err != nil {
			h.fail(c, err)
			return
		}
		start = d
		updates["start_date"] = d
	}
	if req.DueDate != nil {
		d, err := parseOptionalDate("dueDate", req.DueDate)
		if err != nil {
			h.fail(c, err)
			return
		}
		due = d
		updates["due_date"] = d
	}
	if start != nil && due != nil && due.Before(*start) {
		h.fail(c, apperr.Invalid("dueDate cannot be before startDate"))
		return
	}
	if req.Progress != nil {
		updates["progress"] = *req.Progress
	}
	if req.EstimatedMinutes != nil {
		updates["estimated_minutes"] = *req.EstimatedMinutes
	}
	if req.SpentMinutes != nil {
		updates["spent_minutes"] = *req.SpentMinutes
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}

	var newStatus *models.TaskStatus
	if id := optionalID(req.StatusID); id != nil && (task.StatusID == nil || *id != *task.StatusID) {
		statuses, err := h.effectiveStatuses(ctx, task.WorkspaceID, &task.ProjectID)
		if err != nil {
			h.fail(c, err)
			return
		}
		if newStatus = statusIn(statuses, *id); newStatus == nil {
			h.fail(c, apperr.Invalid("Status does not belong to this project"))
			return
		}
		updates["status_id"] = newStatus.ID
	}
	refs.labelIDs, refs.tagIDs = req.LabelIDs, req.TagIDs
	from := statusValue(task.StatusID)

	err := h.db.Transaction(ctx, func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, "id = ?", task.ProjectID).Error; err != nil {
			return err
		}
		if err := validateTaskRefs(tx, &project, task.ID, refs); err != nil {
			return err
		}
		if newStatus != nil && req.Position == nil {
			pos, err := nextPosition(tx, task.ProjectID, &newStatus.ID)
			if err != nil {
				return err
			}
			updates["position"] = pos
		}
		if len(updates) > 0 {
			if err := tx.Model(task).Omit(clause.Associations).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.LabelIDs != nil {
			if err := replaceTaskLabels(tx, task.ID, req.LabelIDs); err != nil {
				return err
			}
		}
		if req.TagIDs != nil {
			if err := replaceTaskTags(tx, task.ID, req.TagIDs); err != nil {
				return err
			}
		}

		fields := make([]string, 0, len(updates)+2)
		for k := range updates {
			fields = append(fields, k)
		}
		if req.LabelIDs != nil {
			fields = append(fields, "labels")
		}
		if req.TagIDs != nil {
			fields = append(fields, "tags")
		}
		if err := recordActivity(tx, task.WorkspaceID, &task.ID, actor.UserID, "task.updated", map[string]any{"fields": fields}); err != nil {
			return err
		}
		if newStatus != nil {
			if err := recordActivity(tx, task.WorkspaceID, &task.ID, actor.UserID, "task.status_changed", map[string]any{
				"from": from,
				"to":   newStatus.ID,
			}); err != nil {
				return err
			}
		}
		return withTaskRelations(tx).First(task, "id = ?", task.ID).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, task.WorkspaceID, "task", "updated", task.ID)
	c.JSON(http.StatusOK, task)
}

// MoveTask handles PATCH /api/tasks/:taskId/move
func (h *Handler) MoveTask(c *gin.Context) {
	task, actor, ok := h.taskFor(c, models.RoleMember)
	if !ok {
		return
	}
	var req MoveTaskRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	statuses, err := h.effectiveStatuses(ctx, task.WorkspaceID, &task.ProjectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	target := statusIn(statuses, req.StatusID)
	if target == nil {
		h.fail(c, apperr.Invalid("Status does not belong to this project"))
		return
	}

	from := statusValue(task.StatusID)
	err = h.db.Transaction(ctx, func(tx *gorm.DB) error {
		position := 0.0
		if req.Position != nil {
			position = *req.Position
		} else {
			var err error
			if position, err = nextPosition(tx, task.ProjectID, &target.ID); err != nil {
				return err
			}
		}
		if err := tx.Model(task).Omit(clause.Associations).Updates(map[string]any{
			"status_id": target.ID,
			"position":  position,
		}).Error; err != nil {
			return err
		}
		if err := recordActivity(tx, task.WorkspaceID, &task.ID, actor.UserID, "task.moved", map[string]any{
			"from":     from,
			"to":       target.ID,
			"position": position,
		}); err != nil {
			return err
		}
		return withTaskRelations(tx).First(task, "id = ?", task.ID).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, task.WorkspaceID, "task", "moved", task.ID)
	c.JSON(http.StatusOK, task)
}

// DuplicateTask handles POST /api/tasks/:taskId/duplicate
// The copy gets the next number and the source's labels and tags.
func (h *Handler) DuplicateTask(c *gin.Context) {
	src, actor, ok := h.taskFor(c, models.RoleMember)
	if !ok {
		return
	}

	var copied models.Task
	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		number, err := nextTaskNumber(tx, src.ProjectID)
		if err != nil {
			return err
		}
		position, err := nextPosition(tx, src.ProjectID, src.StatusID)
		if err != nil {
			return err
		}
		copied = models.Task{
			WorkspaceID:      src.WorkspaceID,
			ProjectID:        src.ProjectID,
			Number:           number,
			Title:            src.Title + " (copy)",
			Description:      src.Description,
			StatusID:         src.StatusID,
			Priority:         src.Priority,
			Position:         position,
			AssigneeID:       src.AssigneeID,
			CreatorID:        actor.UserID,
			MilestoneID:      src.MilestoneID,
			ParentID:         src.ParentID,
			EstimatedMinutes: src.EstimatedMinutes,
			StartDate:        src.StartDate,
			DueDate:          src.DueDate,
		}
		if err := tx.Omit(clause.Associations).Create(&copied).Error; err != nil {
			return err
		}

		var labelIDs, tagIDs []string
		if err := tx.Model(&models.TaskLabel{}).Where("task_id = ?", src.ID).Pluck("label_id", &labelIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.TaskTag{}).Where("task_id = ?", src.ID).Pluck("tag_id", &tagIDs).Error; err != nil {
			return err
		}
		if err := replaceTaskLabels(tx, copied.ID, labelIDs); err != nil {
			return err
		}
		if err := replaceTaskTags(tx, copied.ID, tagIDs); err != nil {
			return err
		}
		if err := recordActivity(tx, copied.WorkspaceID, &copied.ID, actor.UserID, "task.duplicated", map[string]any{
			"sourceId": src.ID,
			"number":   copied.Number,
		}); err != nil {
			return err
		}
		return withTaskRelations(tx).First(&copied, "id = ?", copied.ID).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, copied.WorkspaceID, "task", "created", copied.ID)
	c.JSON(http.StatusCreated, copied)
}

// DeleteTask handles DELETE /api/tasks/:taskId
// Subtasks are detached rather than deleted.
func (h *Handler) DeleteTask(c *gin.Context) {
	task, actor, ok := h.taskFor(c, models.RoleMember)
	if !ok {
		return
	}

	err := h.db.Transaction(c.Request.Context(), func(tx *gorm.DB) error {
		steps := []func() error{
			func() error { return tx.Where("task_id = ?", task.ID).Delete(&models.TaskLabel{}).Error },
			func() error { return tx.Where("task_id = ?", task.ID).Delete(&models.TaskTag{}).Error },
			func() error { return tx.Where("task_id = ?", task.ID).Delete(&models.Comment{}).Error },
			func() error { return tx.Where("task_id = ?", task.ID).Delete(&models.Attachment{}).Error },
			func() error {
				return tx.Model(&models.Task{}).Where("parent_id = ?", task.ID).Update("parent_id", nil).Error
			},
			func() error { return tx.Delete(task).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return recordActivity(tx, task.WorkspaceID, &task.ID, actor.UserID, "task.deleted", map[string]any{
			"number": task.Number,
			"title":  task.Title,
		})
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(c, task.WorkspaceID, "task", "deleted", task.ID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// GetProjectStats handles GET /api/projects/:projectId/stats
// Optional query param: assigneeId to restrict the counts to one user.
func (h *Handler) GetProjectStats(c *gin.Context) {
	project, _, ok := h.projectFor(c, models.RoleViewer)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	statuses, err := h.effectiveStatuses(ctx, project.WorkspaceID, &project.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	type row struct {
		StatusID *string
		Count    int64
	}
	var (
		rows    []row
		overdue int64
	)
	err = h.db.Do(ctx, func(tx *gorm.DB) error {
		scoped := func() *gorm.DB {
			q := tx.Model(&models.Task{}).Where("project_id = ?", project.ID)
			if assignee := c.Query("assigneeId"); assignee != "" {
				q = q.Where("assignee_id = ?", assignee)
			}
			return q
		}
		if err := scoped().Select("status_id, COUNT(*) as count").Group("status_id").Scan(&rows).Error; err != nil {
			return err
		}
		var done []string
		for _, s := range statuses {
			if s.IsDone {
				done = append(done, s.ID)
			}
		}
		q := scoped().Where("due_date < ?", h.now())
		if len(done) > 0 {
			q = q.Where("(status_id IS NULL OR status_id NOT IN ?)", done)
		}
		return q.Count(&overdue).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	type statusCount struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		IsDone bool   `json:"isDone"`
		Count  int64  `json:"count"`
	}
	// Initialize with zeros
	byStatus := make([]statusCount, 0, len(statuses))
	index := make(map[string]int, len(statuses))
	for i, s := range statuses {
		byStatus = append(byStatus, statusCount{ID: s.ID, Name: s.Name, IsDone: s.IsDone})
		index[s.ID] = i
	}
	var total, done int64
	for _, r := range rows {
		total += r.Count
		if r.StatusID == nil {
			continue
		}
		if i, ok := index[*r.StatusID]; ok {
			byStatus[i].Count = r.Count
			if byStatus[i].IsDone {
				done += r.Count
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses": byStatus,
		"total":    total,
		"done":     done,
		"overdue":  overdue,
		"asOf":     h.now().UTC().Format(time.RFC3339),
	})
}
