package routes

import (
	"project-management-api/internal/auth"
	"project-management-api/internal/authz"
	"project-management-api/internal/config"
	"project-management-api/internal/database"
	"project-management-api/internal/handlers"
	"project-management-api/internal/middleware"
	"project-management-api/internal/realtime"
	"project-management-api/internal/uploads"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Deps are what the router needs beyond the handlers themselves.
type Deps struct {
	Config  *config.Config
	Tokens  *auth.TokenIssuer
	Handler *handlers.Handler
	Log     zerolog.Logger
}

// Build wires every service over db and returns the router.
func Build(cfg *config.Config, db *database.DB, log zerolog.Logger) *gin.Engine {
	tokens := auth.NewTokenIssuer(cfg.Auth)
	h := handlers.New(handlers.Deps{
		Config:  cfg,
		DB:      db,
		Auth:    auth.NewService(db, tokens, log),
		Authz:   authz.NewService(db, 0),
		Hub:     realtime.NewHub(log),
		Uploads: uploads.NewStore(cfg.Uploads),
		Log:     log,
	})
	return SetupRoutes(Deps{Config: cfg, Tokens: tokens, Handler: h, Log: log})
}

func SetupRoutes(d Deps) *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.New()
	ginRouter.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(d.Log),
		middleware.CORS(d.Config.Server.AllowedOrigins),
	)
	h := d.Handler

	// Health check endpoint
	ginRouter.GET("/health", h.Health)

	// Uploaded attachments
	ginRouter.Static(d.Config.Uploads.URLPrefix, d.Config.Uploads.Dir)

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/oauth", h.OAuthSignIn)
		api.POST("/auth/logout", h.Logout)
	}

	// Protected routes (authentication required)
	protected := api.Group("")
	protected.Use(middleware.RequireAuth(d.Tokens, d.Config.Auth))
	{
		protected.GET("/auth/session", h.Session)
		protected.PUT("/users/me", h.UpdateMe)

		protected.GET("/workspaces", h.ListWorkspaces)
		protected.POST("/workspaces", h.CreateWorkspace)
		protected.POST("/invites/accept", h.AcceptInvite)

		ws := protected.Group("/workspaces/:workspaceId")
		ws.GET("", h.GetWorkspace)
		ws.PUT("", h.UpdateWorkspace)
		ws.DELETE("", h.DeleteWorkspace)
		ws.GET("/ws", h.WebSocketHandler)
		ws.GET("/activity", h.WorkspaceActivity)

		ws.GET("/members", h.ListMembers)
		ws.POST("/members", h.AddMember)
		ws.PUT("/members/:memberId", h.UpdateMember)
		ws.DELETE("/members/:memberId", h.RemoveMember)

		ws.GET("/invitations", h.ListInvitations)
		ws.POST("/invitations", h.CreateInvitation)
		ws.DELETE("/invitations/:inviteId", h.RevokeInvitation)

		ws.GET("/projects", h.ListProjects)
		ws.POST("/projects", h.CreateProject)

		ws.GET("/labels", h.ListLabels)
		ws.POST("/labels", h.CreateLabel)
		ws.PUT("/labels/:itemId", h.UpdateLabel)
		ws.DELETE("/labels/:itemId", h.DeleteLabel)

		ws.GET("/tags", h.ListTags)
		ws.POST("/tags", h.CreateTag)
		ws.PUT("/tags/:itemId", h.UpdateTag)
		ws.DELETE("/tags/:itemId", h.DeleteTag)

		ws.GET("/milestones", h.ListMilestones)
		ws.POST("/milestones", h.CreateMilestone)
		ws.GET("/milestones/:itemId", h.GetMilestone)
		ws.PUT("/milestones/:itemId", h.UpdateMilestone)
		ws.DELETE("/milestones/:itemId", h.DeleteMilestone)

		ws.GET("/task-statuses", h.ListStatuses)
		ws.POST("/task-statuses", h.CreateStatus)
		ws.PUT("/task-statuses/reorder", h.ReorderStatuses)
		ws.PUT("/task-statuses/:itemId", h.UpdateStatus)
		ws.DELETE("/task-statuses/:itemId", h.DeleteStatus)

		ws.GET("/saved-views", h.ListSavedViews)
		ws.POST("/saved-views", h.CreateSavedView)
		ws.PUT("/saved-views/:itemId", h.UpdateSavedView)
		ws.DELETE("/saved-views/:itemId", h.DeleteSavedView)

		ws.GET("/templates", h.ListTemplates)
		ws.POST("/templates", h.CreateTemplate)
		ws.PUT("/templates/:itemId", h.UpdateTemplate)
		ws.DELETE("/templates/:itemId", h.DeleteTemplate)

		protected.GET("/projects/:projectId", h.GetProject)
		protected.PUT("/projects/:projectId", h.UpdateProject)
		protected.DELETE("/projects/:projectId", h.DeleteProject)
		protected.GET("/projects/:projectId/stats", h.GetProjectStats)
		protected.GET("/projects/:projectId/tasks", h.GetTasks)
		protected.POST("/projects/:projectId/tasks", h.CreateTask)

		protected.GET("/tasks/:taskId", h.GetTaskByID)
		protected.PUT("/tasks/:taskId", h.UpdateTask)
		protected.DELETE("/tasks/:taskId", h.DeleteTask)
		protected.PATCH("/tasks/:taskId/move", h.MoveTask)
		protected.POST("/tasks/:taskId/duplicate", h.DuplicateTask)
		protected.GET("/tasks/:taskId/activity", h.TaskActivity)
		protected.GET("/tasks/:taskId/comments", h.ListComments)
		protected.POST("/tasks/:taskId/comments", h.CreateComment)
		protected.GET("/tasks/:taskId/attachments", h.ListAttachments)
		protected.POST("/tasks/:taskId/attachments", h.UploadAttachment)

		protected.PUT("/comments/:commentId", h.UpdateComment)
		protected.DELETE("/comments/:commentId", h.DeleteComment)
		protected.DELETE("/attachments/:attachmentId", h.DeleteAttachment)
	}

	return ginRouter
}
