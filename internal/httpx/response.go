// Package httpx implements the §6 "Exit conditions at the system boundary"
// response envelope, grounded on the teacher's internal/utils/response.go
// success/error helper shape.
package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoice-pipeline/internal/apperr"
)

type envelope struct {
	OK      bool        `json:"ok"`
	Payload interface{} `json:"payload,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// OK writes a successful {ok:true, payload} response.
func OK(c *gin.Context, statusCode int, payload interface{}) {
	c.JSON(statusCode, envelope{OK: true, Payload: payload})
}

// Fail writes a failed {ok:false, code, message} response, mapping the
// apperr.Code to an HTTP status.
func Fail(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	c.JSON(statusForCode(code), envelope{OK: false, Code: string(code), Message: err.Error()})
}

func statusForCode(code apperr.Code) int {
	switch code {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Inactive, apperr.AuthFailed:
		return http.StatusUnauthorized
	case apperr.Locked:
		return http.StatusConflict
	case apperr.InvalidInput, apperr.FileTooLarge:
		return http.StatusBadRequest
	case apperr.FeatureDisabled:
		return http.StatusForbidden
	case apperr.Unreachable, apperr.UploadError:
		return http.StatusBadGateway
	case apperr.ProcessingError, apperr.Integrity:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
