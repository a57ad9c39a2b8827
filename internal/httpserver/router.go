package httpserver

import (
	"context"
	"net/http"
	"time"

	"bizportal/internal/handler"
	"bizportal/pkg/rbac"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Readiness reports 503 until the database answers a ping.
func Readiness(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

type Handlers struct {
	Intake   *handler.IntakeHandler
	Auth     *handler.AuthHandler
	CRM      *handler.CRMHandler
	Projects *handler.ProjectHandler
	Invoices *handler.InvoiceHandler
	Messages *handler.MessageHandler
	Files    *handler.FileHandler
	Admin    *handler.AdminHandler
}

type Deps struct {
	JWTSecret    string
	Revoked      RevocationChecker
	Idempotency  OnceStore
	Limiter      Limiter
	IntakeLimit  int64
	ContactLimit int64
	DB           Pinger
	Logger       *zap.Logger
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, d Deps) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), RequestLogger(d.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", Readiness(d.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Public marketing-site forms
	api.POST("/intake", RateLimit(d.Limiter, "intake", d.IntakeLimit, d.Logger), h.Intake.SubmitLead)
	api.POST("/contact", RateLimit(d.Limiter, "contact", d.ContactLimit, d.Logger), h.Intake.SubmitContact)
	api.POST("/auth/login", h.Auth.Login)

	auth := api.Group("/")
	auth.Use(AuthMiddleware(d.JWTSecret, d.Revoked), Idempotency(d.Idempotency, d.Logger))
	{
		auth.GET("/auth/me", h.Auth.Me)
		auth.POST("/auth/logout", h.Auth.Logout)
	}

	admin := auth.Group("/admin")
	{
		leads := admin.Group("/", RequirePermission(rbac.PermissionManageLeads))
		leads.GET("/leads", h.CRM.ListLeads)
		leads.PUT("/leads/:id/status", h.CRM.UpdateLeadStatus)
		leads.POST("/leads/:id/activate", h.CRM.ActivateLead)
		leads.GET("/contacts", h.CRM.ListContacts)
		leads.PUT("/contacts/:id/status", h.CRM.UpdateContactStatus)
		leads.POST("/contacts/:id/convert", h.CRM.ConvertContact)

		clients := admin.Group("/clients", RequirePermission(rbac.PermissionManageClients))
		clients.GET("", h.CRM.ListClients)
		clients.GET("/:id", h.CRM.GetClient)

		admin.GET("/analytics", RequirePermission(rbac.PermissionViewAnalytics), h.Admin.Analytics)

		outbox := admin.Group("/outbox", RequirePermission(rbac.PermissionReplayOutbox))
		outbox.POST("/replay", h.Admin.ReplayOutboxEvent)
		outbox.POST("/replay-failed", h.Admin.ReplayFailedEvents)
	}

	projects := auth.Group("/projects", RequirePermission(rbac.PermissionManageProjects))
	{
		projects.GET("", h.Projects.ListProjects)
		projects.GET("/:id", h.Projects.GetProject)
		projects.PUT("/:id", h.Projects.UpdateProject)
		projects.PUT("/:id/progress", h.Projects.SetProgress)
		projects.GET("/:id/milestones", h.Projects.ListMilestones)
		projects.POST("/:id/milestones", h.Projects.CreateMilestone)
	}

	milestones := auth.Group("/milestones", RequirePermission(rbac.PermissionManageProjects))
	{
		milestones.GET("/upcoming", h.Projects.UpcomingMilestones)
		milestones.PUT("/:id", h.Projects.UpdateMilestone)
		milestones.DELETE("/:id", h.Projects.DeleteMilestone)
	}

	invoices := auth.Group("/invoices", RequirePermission(rbac.PermissionManageInvoices))
	{
		invoices.GET("", h.Invoices.List)
		invoices.POST("", h.Invoices.Create)
		invoices.GET("/project/:id", h.Invoices.ListByProject)
		invoices.GET("/:id", h.Invoices.Get)
		invoices.GET("/:id/pdf", h.Invoices.Download)
		invoices.PUT("/:id/status", h.Invoices.SetStatus())
		invoices.POST("/:id/send", h.Invoices.Send())
		invoices.POST("/:id/mark-paid", h.Invoices.MarkPaid())
		invoices.POST("/:id/credit", h.Invoices.ApplyCredit())
		invoices.POST("/:id/duplicate", h.Invoices.Duplicate())
		invoices.POST("/:id/void", h.Invoices.Void())
	}

	// Threads are scoped per actor by the service, so both roles share these routes.
	messages := auth.Group("/messages", RequirePermission(rbac.PermissionSendMessage))
	{
		messages.GET("/threads", h.Messages.ListThreads)
		messages.POST("/threads", h.Messages.CreateThread)
		messages.GET("/threads/:id/messages", h.Messages.Messages)
		messages.POST("/threads/:id/messages", h.Messages.Send)
		messages.PUT("/threads/:id/read", h.Messages.MarkRead)
	}

	uploads := auth.Group("/uploads", RequirePermission(rbac.PermissionManageFiles))
	{
		uploads.POST("/project/:id", h.Files.Upload)
		uploads.GET("/project/:id", h.Files.List)
		uploads.PUT("/:id/share", h.Files.SetShared)
		uploads.GET("/:id/download", h.Files.Download)
		uploads.DELETE("/:id", h.Files.Delete)
	}

	portal := auth.Group("/portal", RequireRole(rbac.RoleClient))
	{
		portal.GET("/projects", RequirePermission(rbac.PermissionReadOwnProjects), h.Projects.ListProjects)
		portal.GET("/projects/:id", RequirePermission(rbac.PermissionReadOwnProjects), h.Projects.GetProject)
		portal.GET("/projects/:id/milestones", RequirePermission(rbac.PermissionReadOwnProjects), h.Projects.ListMilestones)
		portal.GET("/projects/:id/files", RequirePermission(rbac.PermissionReadSharedFiles), h.Files.List)
		portal.POST("/projects/:id/files", RequirePermission(rbac.PermissionReadSharedFiles), h.Files.Upload)
		portal.GET("/files/:id/download", RequirePermission(rbac.PermissionReadSharedFiles), h.Files.Download)
		portal.GET("/invoices", RequirePermission(rbac.PermissionReadOwnInvoices), h.Invoices.List)
		portal.GET("/invoices/:id", RequirePermission(rbac.PermissionReadOwnInvoices), h.Invoices.Get)
		portal.GET("/invoices/:id/pdf", RequirePermission(rbac.PermissionReadOwnInvoices), h.Invoices.Download)
	}

	return &Router{Engine: r}
}
