package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func Abort(c *gin.Context, status int, tag, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: tag, Message: message})
}

func AbortInternal(c *gin.Context) {
	Abort(c, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred")
}
