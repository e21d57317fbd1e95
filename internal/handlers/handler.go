package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"project-management-api/internal/apperr"
	"project-management-api/internal/auth"
	"project-management-api/internal/authz"
	"project-management-api/internal/config"
	"project-management-api/internal/database"
	"project-management-api/internal/middleware"
	"project-management-api/internal/models"
	"project-management-api/internal/realtime"
	"project-management-api/internal/uploads"
	"project-management-api/internal/workspace"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Deps are the collaborators a Handler needs.
type Deps struct {
	Config  *config.Config
	DB      *database.DB
	Auth    *auth.Service
	Authz   *authz.Service
	Hub     *realtime.Hub
	Uploads *uploads.Store
	Log     zerolog.Logger
}

// Handler serves every /api route. It holds no per-request state.
type Handler struct {
	cfg      *config.Config
	db       *database.DB
	auth     *auth.Service
	authz    *authz.Service
	hub      *realtime.Hub
	uploads  *uploads.Store
	log      zerolog.Logger
	statuses singleflight.Group
	now      func() time.Time
}

// New builds a Handler.
func New(d Deps) *Handler {
	return &Handler{
		cfg:     d.Config,
		db:      d.DB,
		auth:    d.Auth,
		authz:   d.Authz,
		hub:     d.Hub,
		uploads: d.Uploads,
		log:     d.Log,
		now:     time.Now,
	}
}

// fail writes the JSON error body for err. Unexpected failures are logged.
func (h *Handler) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal || kind == apperr.KindUnavailable {
		log := h.logger(c)
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(kind.Status(), gin.H{
		"error": apperr.Message(err),
		"code":  kind.String(),
	})
}

func (h *Handler) logger(c *gin.Context) zerolog.Logger {
	return middleware.Logger(c, h.log)
}

// bindJSON decodes the body into dst, answering 400 on failure.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  apperr.KindInvalid.String(),
		})
		return false
	}
	return true
}

func currentUserID(c *gin.Context) string {
	return middleware.UserID(c)
}

// workspaceFor resolves :workspaceId (id or slug) and checks the caller holds
// at least required.
func (h *Handler) workspaceFor(c *gin.Context, required models.Role) (*models.Workspace, *models.WorkspaceMember, bool) {
	ctx := c.Request.Context()
	var ws *models.Workspace
	err := h.db.Do(ctx, func(tx *gorm.DB) error {
		var err error
		ws, err = workspace.Resolve(tx, c.Param("workspaceId"))
		return err
	})
	if err != nil {
		h.fail(c, err)
		return nil, nil, false
	}
	member, err := h.authz.Require(ctx, ws.ID, currentUserID(c), required)
	if err != nil {
		h.fail(c, err)
		return nil, nil, false
	}
	return ws, member, true
}

// load fetches one row by id into dst, mapping a miss to a not-found error
// with msg.
func (h *Handler) load(ctx context.Context, dst any, id, msg string) error {
	err := h.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.First(dst, "id = ?", id).Error
	})
	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.NotFound(msg)
	}
	return err
}

// projectFor loads :projectId and authorizes the caller in its workspace.
func (h *Handler) projectFor(c *gin.Context, required models.Role) (*models.Project, *models.WorkspaceMember, bool) {
	ctx := c.Request.Context()
	var project models.Project
	if err := h.load(ctx, &project, c.Param("projectId"), "Project not found"); err != nil {
		h.fail(c, err)
		return nil, nil, false
	}
	member, err := h.authz.Require(ctx, project.WorkspaceID, currentUserID(c), required)
	if err != nil {
		h.fail(c, err)
		return nil, nil, false
	}
	return &project, member, true
}

// taskFor loads :taskId and authorizes the caller in its workspace.
func (h *Handler) taskFor(c *gin.Context, required models.Role) (*models.Task, *models.WorkspaceMember, bool) {
	ctx := c.Request.Context()
	var task models.Task
	if err := h.load(ctx, &task, c.Param("taskId"), "Task not found"); err != nil {
		h.fail(c, err)
		return nil, nil, false
	}
	member, err := h.authz.Require(ctx, task.WorkspaceID, currentUserID(c), required)
	if err != nil {
		h.fail(c, err)
		return nil, nil, false
	}
	return &task, member, true
}

// recordActivity appends an audit row using tx, so it commits with the caller's
// mutation.
func recordActivity(tx *gorm.DB, workspaceID string, taskID *string, actorID, action string, details map[string]any) error {
	entry := models.ActivityLog{
		WorkspaceID: workspaceID,
		TaskID:      taskID,
		ActorID:     actorID,
		Action:      action,
		Details:     datatypes.JSONMap(details),
	}
	return tx.Create(&entry).Error
}

// publish notifies realtime subscribers of a committed change.
func (h *Handler) publish(c *gin.Context, workspaceID, entity, action, entityID string) {
	if h.hub == nil {
		return
	}
	h.hub.Publish(realtime.Event{
		Type:        entity + "." + action,
		WorkspaceID: workspaceID,
		Entity:      entity,
		EntityID:    entityID,
		ActorID:     currentUserID(c),
	})
}

// pagination reads page/limit query params with the same bounds everywhere.
func pagination(c *gin.Context, defaultLimit int) (page, limit, offset int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}

// optionalID turns "" into nil so callers can clear nullable references.
func optionalID(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func parseDateFlexible(dateStr string) (time.Time, bool) {
	if dateStr == "" {
		return time.Time{}, false
	}
	layouts := []string{
		"2006-01-02",  // ISO date
		"2 Jan 2006",  // e.g., 30 Oct 2025
		time.RFC3339,  // full RFC3339
		"02 Jan 2006", // zero-padded day
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseOptionalDate parses a request date. nil means absent, "" means clear.
func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, ok := parseDateFlexible(strings.TrimSpace(*s))
	if !ok {
		return nil, apperr.Newf(apperr.KindInvalid, "Invalid %s", field)
	}
	return &t, nil
}

func ptr[T any](v T) *T { return &v }

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
