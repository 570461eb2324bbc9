package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"habitweb/internal/handler"
	"habitweb/internal/ui"
	"habitweb/pkg/rbac"
)

// Pinger is a database that can report readiness. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Connector reports whether a broker connection is up. *mq.Publisher satisfies it.
type Connector interface {
	IsConnected() bool
}

type Handlers struct {
	Auth  *handler.AuthHandler
	Pages *handler.PageHandler
	Live  *handler.LiveHandler
}

// Probes are the dependencies checked by /readyz. Nil ones are skipped.
type Probes struct {
	DB Pinger
	MQ Connector
}

// NewRouter mounts the public routes at / and the signed-in pages under mountPath.
func NewRouter(h Handlers, tokens TokenParser, mountPath string, probes Probes, logger *zap.Logger) (*gin.Engine, error) {
	tmpl, err := ui.Templates()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), RequestLogMiddleware(logger))
	r.SetHTMLTemplate(tmpl)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if probes.DB != nil {
			if err := probes.DB.Ping(ctx); err != nil {
				c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
				return
			}
		}

		if probes.MQ != nil && !probes.MQ.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.StaticFS(ui.StaticPrefix, http.FS(ui.Static()))

	// Public
	r.GET("/login", h.Auth.LoginPage)
	r.POST("/login", h.Auth.Login)
	r.GET("/register", h.Auth.RegisterPage)
	r.POST("/register", h.Auth.Register)
	r.POST("/logout", h.Auth.Logout)

	// Protected
	root := ui.Join(mountPath)
	auth := r.Group(root)
	auth.Use(AuthMiddleware(tokens, "/login"))
	{
		auth.GET("/", h.Pages.Index)
		if root != "/" {
			auth.GET("", h.Pages.Index)
		}
		auth.GET("/fragments/habits", h.Pages.HabitsFragment)
		auth.GET("/add", h.Pages.Add)
		auth.GET("/order", h.Pages.Order)
		auth.POST("/order", RequirePermission(rbac.PermissionWriteHabit), h.Pages.SaveOrder)
		auth.GET("/habits/:id", h.Pages.Habit)
		auth.POST("/habits/:id", RequirePermission(rbac.PermissionWriteHabit), h.Pages.UpdateHabit)
		auth.GET("/ws", h.Live.Serve)
		auth.GET("/export", RequirePermission(rbac.PermissionExport), h.Pages.Export)

		lists := auth.Group("/lists")
		lists.GET("", h.Pages.Lists)
		lists.POST("", RequirePermission(rbac.PermissionManageLists), h.Pages.CreateList)
		lists.POST("/:id", RequirePermission(rbac.PermissionManageLists), h.Pages.UpdateList)
		lists.POST("/:id/delete", RequirePermission(rbac.PermissionManageLists), h.Pages.DeleteList)

		imports := auth.Group("/import", RequirePermission(rbac.PermissionImport))
		imports.GET("", h.Pages.ImportPage)
		imports.POST("", h.Pages.Import)
	}

	return r, nil
}
