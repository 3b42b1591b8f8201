package utils

import (
	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "request_id"

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":     status,
		"message":    message,
		"data":       data,
		"request_id": c.GetString(RequestIDKey),
	})
}

// JSONError sends a structured error response. Server errors never echo internal details.
func JSONError(c *gin.Context, status int, err error, message string) {
	detail := err.Error()
	if status >= 500 {
		detail = message
	}
	c.JSON(status, gin.H{
		"status":     status,
		"message":    message,
		"error":      detail,
		"request_id": c.GetString(RequestIDKey),
	})
}
