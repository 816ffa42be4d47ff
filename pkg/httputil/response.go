package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Mihirdhami7/hms-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// StatusForKind maps an application error kind to an HTTP status code.
func StatusForKind(kind errors.Kind) int {
	switch kind {
	case errors.KindValidation, errors.KindConflict, errors.KindInvalidState:
		return http.StatusBadRequest
	case errors.KindForbidden:
		return http.StatusForbidden
	case errors.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a success response for a newly created resource
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, err error) {
	var statusCode int
	var kind errors.Kind
	var message string

	if appErr, ok := err.(*errors.AppError); ok {
		kind = appErr.Kind
		statusCode = StatusForKind(kind)
		message = appErr.Message
	} else {
		kind = errors.KindDependency
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	}

	c.JSON(statusCode, Response{
		Success: false,
		Error: &Error{
			Code:    statusCode,
			Kind:    string(kind),
			Message: message,
		},
	})
}

// RespondWithValidationError sends a 400 for a request that failed binding.
func RespondWithValidationError(c *gin.Context, err error) {
	RespondWithError(c, errors.Validation("%s", err.Error()))
}
