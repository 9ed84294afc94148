package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-users-api/pkg/validation"
)

// MessageBody is returned for not-found, conflict and rate-limit outcomes.
type MessageBody struct {
	Message string `json:"message"`
}

// ErrorsBody carries itemized request validation failures.
type ErrorsBody struct {
	Errors []validation.ValidationsError `json:"errors"`
}

// StorageErrorBody echoes the underlying storage error to the client.
type StorageErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// JSON writes data with the given status.
func JSON(ctx *gin.Context, status int, data any) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, data)
}

func Message(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, MessageBody{Message: message})
}

// Invalid renders validation errors; callers choose 400 or 422.
func Invalid(ctx *gin.Context, status int, errs []validation.ValidationsError) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	ctx.JSON(status, ErrorsBody{Errors: errs})
}

// StorageError writes a 500 with the raw error text.
func StorageError(ctx *gin.Context, message string, err error) {
	body := StorageErrorBody{Message: message}
	if err != nil {
		body.Error = err.Error()
	}
	ctx.JSON(http.StatusInternalServerError, body)
}

// Abort writes a message body and stops the handler chain.
func Abort(ctx *gin.Context, status int, message string) {
	ctx.AbortWithStatusJSON(status, MessageBody{Message: message})
}

func NoContent(ctx *gin.Context) {
	ctx.Status(http.StatusNoContent)
}
