package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitweb/internal/handler"
	"habitweb/internal/util"
	"habitweb/pkg/logger"
	"habitweb/pkg/metrics"
	"habitweb/pkg/rbac"
	"habitweb/pkg/trace"
)

// TokenParser validates session tokens. *auth.Service satisfies it.
type TokenParser interface {
	Authenticate(token string) (*util.Claims, error)
}

// TraceMiddleware propagates or assigns the request id.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := trace.FromHeader(c.GetHeader(trace.HeaderName()))
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)
		c.Next()
	}
}

// RequestLogMiddleware logs one line per request and records its latency.
func RequestLogMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), latency)

		logger.WithTrace(c.Request.Context(), log).Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// AuthMiddleware requires a valid session. Page requests without one are
// sent to loginPath; everything else gets a 401.
func AuthMiddleware(tokens TokenParser, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			unauthorized(c, loginPath, "missing token")
			return
		}

		claims, err := tokens.Authenticate(token)
		if err != nil {
			unauthorized(c, loginPath, "invalid token")
			return
		}

		c.Set(handler.ContextUserID, claims.UserID)
		c.Set(handler.ContextEmail, claims.Email)
		c.Set(handler.ContextRole, claims.Role)

		c.Next()
	}
}

func unauthorized(c *gin.Context, loginPath, reason string) {
	if c.Request.Method == http.MethodGet && !isWebsocket(c.Request) {
		c.Redirect(http.StatusSeeOther, loginPath)
		c.Abort()
		return
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": reason})
	c.Abort()
}

func isWebsocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// RequirePermission rejects users whose role lacks permission.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(handler.ContextUserID); !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		if err := rbac.CheckPermission(c.GetString(handler.ContextRole), permission); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Next()
	}
}
