package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/apierr"
)

// Envelope is the body of every /main response.
type Envelope struct {
	IsSuccess bool    `json:"isSuccess"`
	Message   string  `json:"message"`
	Error     *string `json:"error"`
	UserID    string  `json:"userId,omitempty"`
	VideoID   string  `json:"videoId,omitempty"`
	Data      any     `json:"data,omitempty"`
}

func RespondOK(c *gin.Context, env Envelope) {
	env.IsSuccess = true
	c.JSON(http.StatusOK, env)
}

// RespondError maps err to its status. Server-side failures get a generic
// error text; the cause stays in the logs.
func RespondError(c *gin.Context, env Envelope, err error) {
	status := apierr.StatusOf(err)
	text := "internal server error"
	if status < http.StatusInternalServerError {
		text = err.Error()
	}
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Message != "" {
		text = ae.Message
	}
	env.IsSuccess = false
	if env.Message == "" {
		env.Message = domain.MsgErrorOccurred
	}
	env.Error = &text
	_ = c.Error(err)
	c.JSON(status, env)
}
