// Package response writes the JSON envelope shared by every endpoint:
// {"status": "success"|"error", "message": "...", "data": {...}}.
package response

import (
	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success writes a success envelope. A nil data is rendered as {}.
func Success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Envelope{Status: StatusSuccess, Message: message, Data: orEmpty(data)})
}

// Error writes an error envelope. A nil data is rendered as {}.
func Error(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Envelope{Status: StatusError, Message: message, Data: orEmpty(data)})
}

// AbortError writes an error envelope and stops the handler chain.
func AbortError(c *gin.Context, code int, message string, data interface{}) {
	Error(c, code, message, data)
	c.Abort()
}

func orEmpty(data interface{}) interface{} {
	if data == nil {
		return gin.H{}
	}
	return data
}
