package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitweb/config"
	"habitweb/internal/service/auth"
	"habitweb/internal/ui"
	"habitweb/internal/util"
	"habitweb/pkg/metrics"
)

type AuthHandler struct {
	auth   *auth.Service
	cfg    config.UIConfig
	logger *zap.Logger
}

func NewAuthHandler(authService *auth.Service, cfg config.UIConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, cfg: cfg, logger: logger}
}

func (h *AuthHandler) page(register bool, email, msg string) ui.AuthPage {
	title := "Login"
	if register {
		title = "Register"
	}
	return ui.AuthPage{
		Head:     ui.NewHead(h.cfg, title),
		Title:    title,
		Register: register,
		Email:    email,
		Error:    msg,
		Demo:     h.cfg.Demo,
	}
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	metrics.IncrementPageRender("login")
	c.HTML(http.StatusOK, "login.html", h.page(false, "", ""))
}

func (h *AuthHandler) RegisterPage(c *gin.Context) {
	metrics.IncrementPageRender("register")
	c.HTML(http.StatusOK, "login.html", h.page(true, "", ""))
}

func (h *AuthHandler) Login(c *gin.Context) {
	email := c.PostForm("email")
	h.logger.Info("Login request received",
		zap.String("client_ip", c.ClientIP()),
	)

	token, u, err := h.auth.Login(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Error("Login: failed to issue token", zap.Error(err))
			c.HTML(http.StatusInternalServerError, "login.html", h.page(false, email, "Login failed, try again"))
			return
		}
		h.logger.Warn("Login: invalid credentials", zap.String("client_ip", c.ClientIP()))
		c.HTML(http.StatusUnauthorized, "login.html", h.page(false, email, "Invalid email or password"))
		return
	}

	h.setSession(c, token)
	h.logger.Info("Login: success", zap.Int("user_id", u.ID))
	c.Redirect(http.StatusSeeOther, ui.Join(h.cfg.MountPath))
}

func (h *AuthHandler) Register(c *gin.Context) {
	email := c.PostForm("email")
	h.logger.Info("Register request received",
		zap.String("client_ip", c.ClientIP()),
	)

	u, err := h.auth.Register(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		status, msg := registerError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Register: failed to create user", zap.Error(err))
		} else {
			h.logger.Warn("Register: rejected", zap.Error(err))
		}
		c.HTML(status, "login.html", h.page(true, email, msg))
		return
	}

	token, err := h.auth.Issue(u)
	if err != nil {
		h.logger.Error("Register: failed to issue token", zap.Int("user_id", u.ID), zap.Error(err))
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	h.setSession(c, token)
	h.logger.Info("Register: success", zap.Int("user_id", u.ID))
	c.Redirect(http.StatusSeeOther, ui.Join(h.cfg.MountPath))
}

func registerError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, "Email is already registered"
	case errors.Is(err, auth.ErrInvalidEmail):
		return http.StatusBadRequest, "Invalid email address"
	case errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, "Password is too short"
	case errors.Is(err, auth.ErrDuplicateSubmit):
		return http.StatusTooManyRequests, "Registration already in progress"
	}
	return http.StatusInternalServerError, "Registration failed, try again"
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(util.SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h *AuthHandler) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(util.SessionCookie, token, int(h.auth.TokenTTL().Seconds()), "/", "", c.Request.TLS != nil, true)
}
