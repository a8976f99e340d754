package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const genericError = "Something went wrong. Please try again."

func getInt64FromCtx(c *gin.Context, key string) (int64, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}

func getUserID(c *gin.Context) (int64, bool) {
	return getInt64FromCtx(c, "user_id")
}

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// internalError logs the cause and renders the generic failure page.
func internalError(c *gin.Context, log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err), zap.String("request_id", c.GetString("request_id")))
	c.HTML(http.StatusInternalServerError, "error.html", gin.H{
		"title": "Error",
		"error": genericError,
	})
}
