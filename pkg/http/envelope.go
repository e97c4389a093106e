package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/speaker-energy-service/pkg/energy"
)

// envelope is the body of every /api response
type envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data"`
	Message   string    `json:"message,omitempty"`
	Error     *apiError `json:"error,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
	Timestamp string    `json:"timestamp"`
}

type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Issues  any    `json:"issues,omitempty"`
}

func (rs *RestfulServer) now() time.Time {
	if rs.Energy != nil && rs.Energy.Clock != nil {
		return rs.Energy.Clock.Now()
	}
	return time.Now()
}

func (rs *RestfulServer) respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{
		Success:   true,
		Data:      data,
		Message:   message,
		RequestID: c.GetString(contextKeyRequestID),
		Timestamp: rs.now().UTC().Format(time.RFC3339Nano),
	})
}

func (rs *RestfulServer) fail(c *gin.Context, status int, apiErr *apiError) {
	c.AbortWithStatusJSON(status, envelope{
		Success:   false,
		Error:     apiErr,
		RequestID: c.GetString(contextKeyRequestID),
		Timestamp: rs.now().UTC().Format(time.RFC3339Nano),
	})
}

func (rs *RestfulServer) failValidation(c *gin.Context, issues any) {
	rs.fail(c, http.StatusBadRequest, &apiError{Kind: "bad_request", Message: "validation failed", Issues: issues})
}

// failWith maps a core error to its status. Internal errors are logged in
// full and answered with a generic message.
func (rs *RestfulServer) failWith(c *gin.Context, err error) {
	switch energy.ErrorKind(err) {
	case energy.ErrNotFound:
		rs.fail(c, http.StatusNotFound, &apiError{Kind: "not_found", Message: err.Error()})
	case energy.ErrBadRequest:
		rs.fail(c, http.StatusBadRequest, &apiError{Kind: "bad_request", Message: err.Error()})
	case energy.ErrConflict:
		rs.fail(c, http.StatusConflict, &apiError{Kind: "conflict", Message: err.Error()})
	default:
		logger().Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.String("requestId", c.GetString(contextKeyRequestID)),
			zap.Error(err),
		)
		rs.fail(c, http.StatusInternalServerError, &apiError{Kind: "internal", Message: "internal error"})
	}
}

var errInvalidID = errors.New("invalid id")
