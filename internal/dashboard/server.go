package dashboard

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bizportal/internal/apiclient"
	"bizportal/internal/httpserver"
	"bizportal/pkg/logger"
	"bizportal/pkg/rbac"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Options struct {
	APIBaseURL        string
	AuthProbeAttempts int
	AuthProbeDelay    time.Duration
	SecureCookie      bool
}

// Server serves the admin dashboard.
type Server struct {
	opts     Options
	sessions *SessionManager
	hub      *Hub
	views    *ViewCache
	logger   *zap.Logger
	engine   *gin.Engine
}

func NewServer(opts Options, sessions *SessionManager, hub *Hub, views *ViewCache, log *zap.Logger) *Server {
	s := &Server{
		opts:     opts,
		sessions: sessions,
		hub:      hub,
		views:    views,
		logger:   log,
	}
	sessions.OnDelete(hub.CloseSession)

	r := gin.New()
	r.Use(gin.Recovery(), httpserver.TraceMiddleware(), httpserver.RequestLogger(log))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusSeeOther, "/admin") })
	r.GET("/login", s.loginPage)
	r.POST("/login", s.login)
	r.POST("/logout", s.logout)

	admin := r.Group("/admin", s.requireSession)
	{
		admin.GET("", func(c *gin.Context) { c.Redirect(http.StatusSeeOther, tabHref(TabOverview)) })
		admin.GET("/tab/:name", s.tab)
		admin.GET("/section", s.section)
		admin.POST("/action", s.action)
		admin.POST("/dirty", s.dirty)
		admin.GET("/download/invoice/:id", s.downloadInvoice)
		admin.GET("/download/file/:id", s.downloadFile)
		admin.POST("/projects/:id/files", s.upload)
		admin.GET("/ws", s.ws)
	}

	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

const sessionKey = "dashboard_session"

func (s *Server) requireSession(c *gin.Context) {
	id, err := c.Cookie(SessionCookieName)
	if err == nil {
		if sess, ok := s.sessions.Get(id); ok {
			c.Set(sessionKey, sess)
			c.Next()
			return
		}
	}
	c.Redirect(http.StatusSeeOther, "/login")
	c.Abort()
}

func session(c *gin.Context) *Session {
	return c.MustGet(sessionKey).(*Session)
}

func (s *Server) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, value, maxAge, "/", "", s.opts.SecureCookie, true)
}

type loginData struct {
	Email string
	Error string
}

func (s *Server) renderView(c *gin.Context, status int, view string, data any) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := s.views.Render(c.Writer, view, data); err != nil {
		logger.WithTrace(c.Request.Context(), s.logger).Error("Failed to render view",
			zap.String("view", view), zap.Error(err))
	}
}

func (s *Server) loginPage(c *gin.Context) {
	s.renderView(c, http.StatusOK, "login", loginData{})
}

func (s *Server) login(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), s.logger)
	email := c.PostForm("email")
	password := c.PostForm("password")
	log.Info("Dashboard login request received", zap.String("email", email))

	if email == "" || password == "" {
		s.renderView(c, http.StatusBadRequest, "login", loginData{Email: email, Error: "Email and password are required"})
		return
	}

	token, user, err := apiclient.Login(c.Request.Context(), s.opts.APIBaseURL, email, password, s.logger)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			log.Warn("Dashboard login rejected", zap.String("email", email))
			s.renderView(c, http.StatusUnauthorized, "login", loginData{Email: email, Error: "Invalid email or password"})
			return
		}
		log.Error("Dashboard login failed", zap.Error(err))
		s.renderView(c, http.StatusBadGateway, "login", loginData{Email: email, Error: "The server is unavailable, please try again"})
		return
	}
	if user == nil || user.Role != rbac.RoleAdmin {
		log.Warn("Non-admin dashboard login", zap.String("email", email))
		s.renderView(c, http.StatusForbidden, "login", loginData{Email: email, Error: "Admin access required"})
		return
	}

	id := s.sessions.NewID()
	client := apiclient.New(s.opts.APIBaseURL, token, s.logger,
		apiclient.WithAuthProbe(s.opts.AuthProbeAttempts, s.opts.AuthProbeDelay))
	if _, err := client.ProbeAuth(c.Request.Context()); err != nil {
		log.Error("Auth probe failed", zap.Error(err))
		s.renderView(c, http.StatusUnauthorized, "login", loginData{Email: email, Error: "Could not verify your session"})
		return
	}
	client.OnUnauthorized = func() { s.sessions.Delete(id) }

	s.sessions.Put(&Session{
		ID:         id,
		User:       user,
		Client:     client,
		Controller: NewController(client, user, s.views, s.logger.With(zap.String("session_id", id))),
	})
	s.setCookie(c, id, 0)
	log.Info("Dashboard login: success", zap.Int("user_id", user.ID))
	c.Redirect(http.StatusSeeOther, tabHref(TabOverview))
}

func (s *Server) logout(c *gin.Context) {
	if id, err := c.Cookie(SessionCookieName); err == nil {
		if sess, ok := s.sessions.Get(id); ok {
			if err := sess.Client.Logout(c.Request.Context()); err != nil {
				s.logger.Warn("API logout failed", zap.Error(err))
			}
		}
		s.sessions.Delete(id)
	}
	s.setCookie(c, "", -1)
	c.Redirect(http.StatusSeeOther, "/login")
}

// renderPage writes the layout, or sends the browser to login when the API
// rejected the session.
func (s *Server) renderPage(c *gin.Context, status int, page Page, err error) {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		s.setCookie(c, "", -1)
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	s.renderView(c, status, "layout", page)
}

func (s *Server) tab(c *gin.Context) {
	sess := session(c)
	page, err := sess.Controller.SwitchTab(c.Request.Context(), c.Param("name"), c.Request.URL.Query())
	s.renderPage(c, http.StatusOK, page, err)
}

func (s *Server) section(c *gin.Context) {
	sess := session(c)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(sess.Controller.Content()))
}

func (s *Server) action(c *gin.Context) {
	sess := session(c)
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "invalid form")
		return
	}
	a := ParseAction(c.Request.PostForm)
	logger.WithTrace(c.Request.Context(), s.logger).Info("Dashboard action received", zap.String("action", a.Name))

	page, err := sess.Controller.Dispatch(c.Request.Context(), a)
	status := http.StatusOK
	switch {
	case errors.Is(err, ErrConfirmationRequired):
		status = http.StatusConflict
		page.Error = "Please confirm this action"
	case errors.Is(err, ErrUnknownAction):
		status = http.StatusBadRequest
		page.Error = "Unknown action: " + a.Name
	case err != nil && !errors.Is(err, apiclient.ErrUnauthorized):
		var se *apiclient.StatusError
		if errors.As(err, &se) && se.StatusCode < http.StatusInternalServerError {
			status = se.StatusCode
		}
	}
	s.renderPage(c, status, page, err)
}

func (s *Server) dirty(c *gin.Context) {
	dirty, _ := strconv.ParseBool(c.PostForm("dirty"))
	session(c).Controller.SetDirty(dirty)
	c.Status(http.StatusNoContent)
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) sendBlob(c *gin.Context, blob *apiclient.Blob, err error, fallbackName string) {
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			c.Redirect(http.StatusSeeOther, "/login")
			return
		}
		logger.WithTrace(c.Request.Context(), s.logger).Error("Download failed", zap.Error(err))
		c.String(http.StatusBadGateway, "download failed")
		return
	}
	defer blob.Body.Close()

	disposition := blob.ContentDisposition
	if disposition == "" {
		disposition = fmt.Sprintf("attachment; filename=%q", fallbackName)
	}
	contentType := blob.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, blob.ContentLength, contentType, blob.Body, map[string]string{
		"Content-Disposition": disposition,
	})
}

func (s *Server) downloadInvoice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	blob, err := session(c).Client.DownloadInvoice(c.Request.Context(), id)
	s.sendBlob(c, blob, err, fmt.Sprintf("invoice-%d.txt", id))
}

func (s *Server) downloadFile(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	blob, err := session(c).Client.DownloadFile(c.Request.Context(), id)
	s.sendBlob(c, blob, err, fmt.Sprintf("file-%d", id))
}

func (s *Server) upload(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	sess := session(c)
	log := logger.WithTrace(c.Request.Context(), s.logger)

	fh, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.String(http.StatusBadRequest, "unreadable file")
		return
	}
	defer f.Close()

	if _, err := sess.Client.UploadFile(c.Request.Context(), id, fh.Filename, f); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			c.Redirect(http.StatusSeeOther, "/login")
			return
		}
		log.Error("Upload failed", zap.Int("project_id", id), zap.Error(err))
		c.String(http.StatusBadGateway, "upload failed")
		return
	}
	log.Info("Upload: success", zap.Int("project_id", id), zap.String("filename", fh.Filename))

	sess.Controller.Details().Forget()
	q := url.Values{"id": {strconv.Itoa(id)}, "sub": {SubTabFiles}}
	c.Redirect(http.StatusSeeOther, tabHref(TabProjectDetail)+"?"+q.Encode())
}

func (s *Server) ws(c *gin.Context) {
	s.hub.ServeWS(c.Writer, c.Request, session(c).ID)
}
