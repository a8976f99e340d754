package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"internboard/internal/services"
	"internboard/internal/session"
)

const sessionKey = "session"

// RequireSession redirects to /login unless the request carries a live session.
func RequireSession(sessions services.SessionService, cookie session.CookieOptions, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := session.TokenFromRequest(c.Request)
		sess, err := sessions.Require(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, services.ErrUnauthenticated) {
				if token != "" {
					session.ClearCookie(c.Writer, cookie)
				}
				c.Redirect(http.StatusFound, "/login")
				c.Abort()
				return
			}
			log.Error("session lookup failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			c.HTML(http.StatusInternalServerError, "error.html", gin.H{
				"title": "Error",
				"error": "Something went wrong. Please try again.",
			})
			c.Abort()
			return
		}

		c.Set(sessionKey, sess)
		c.Set("user_id", sess.UserID)
		c.Next()
	}
}

// CurrentSession returns the session stored by RequireSession.
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok
}
