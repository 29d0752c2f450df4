package httpapi

import (
	"errors"
	"net/http"

	"github.com/NgigiN/wallet/internal/storage"
	"github.com/gin-gonic/gin"
)

// Application error codes carried next to the HTTP status.
const (
	CodeOK        = 0
	CodeInvalid   = 40001
	CodeNotFound  = 40401
	CodeDuplicate = 40901
	CodeConflict  = 40902
	CodeServerErr = 50001
)

func success(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"code": CodeOK,
		"data": data,
	})
}

func errorJSON(c *gin.Context, status, code int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": msg,
	})
}

// fail maps an error kind onto its status and code. Store failures are logged and
// their details kept out of the response.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalid):
		errorJSON(c, http.StatusBadRequest, CodeInvalid, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		errorJSON(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, storage.ErrDuplicate):
		errorJSON(c, http.StatusConflict, CodeDuplicate, err.Error())
	case errors.Is(err, storage.ErrConflictRetry):
		c.Header("Retry-After", "1")
		errorJSON(c, http.StatusConflict, CodeConflict, "conflicting update, retry")
	default:
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		errorJSON(c, http.StatusInternalServerError, CodeServerErr, "internal error")
	}
}
