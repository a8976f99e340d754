package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"internboard/internal/services"
	"internboard/internal/session"
)

type AuthHandler struct {
	credentials services.CredentialService
	sessions    services.SessionService
	cookie      session.CookieOptions
	log         *zap.Logger
}

func NewAuthHandler(credentials services.CredentialService, sessions services.SessionService, cookie session.CookieOptions, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		sessions:    sessions,
		cookie:      cookie,
		log:         log.Named("auth"),
	}
}

func (h *AuthHandler) Root(c *gin.Context) {
	c.Redirect(http.StatusFound, "/login")
}

func (h *AuthHandler) SignupPage(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", gin.H{"title": "Sign up"})
}

func (h *AuthHandler) Signup(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	page := gin.H{"title": "Sign up", "email": email}

	user, err := h.credentials.Create(c.Request.Context(), email, password)
	switch {
	case errors.Is(err, services.ErrInvalidIdentity):
		page["error1"] = "Invalid email format"
		c.HTML(http.StatusBadRequest, "signup.html", page)
		return
	case errors.Is(err, services.ErrDuplicateIdentity):
		page["error1"] = "Email already exists"
		c.HTML(http.StatusConflict, "signup.html", page)
		return
	case errors.Is(err, services.ErrWeakCredential):
		page["error2"] = "Password must be at least 6 characters long"
		c.HTML(http.StatusBadRequest, "signup.html", page)
		return
	case err != nil:
		internalError(c, h.log, "signup failed", err)
		return
	}

	sess, err := h.sessions.Start(c.Request.Context(), user)
	if err != nil {
		internalError(c, h.log, "session start failed", err)
		return
	}
	session.SetCookie(c.Writer, sess.Token, sess.ExpiresAt, h.cookie)
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"title": "Log in"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	email := c.PostForm("email")
	page := gin.H{"title": "Log in", "email": email}

	sess, err := h.sessions.Login(c.Request.Context(), email, c.PostForm("password"))
	switch {
	case errors.Is(err, services.ErrNotFound):
		page["error3"] = "Invalid Email"
		c.HTML(http.StatusUnauthorized, "login.html", page)
		return
	case errors.Is(err, services.ErrBadCredential):
		page["error4"] = "Wrong password"
		c.HTML(http.StatusUnauthorized, "login.html", page)
		return
	case err != nil:
		internalError(c, h.log, "login failed", err)
		return
	}

	h.log.Info("user logged in", zap.Int64("user_id", sess.UserID))
	session.SetCookie(c.Writer, sess.Token, sess.ExpiresAt, h.cookie)
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), session.TokenFromRequest(c.Request)); err != nil {
		internalError(c, h.log, "logout failed", err)
		return
	}
	session.ClearCookie(c.Writer, h.cookie)
	c.Redirect(http.StatusFound, "/login")
}
