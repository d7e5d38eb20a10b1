package httperr

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	OK     bool `json:"ok"`
	Error  struct {
		Code    string `json:"code,omitempty"`
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// preserves original error for the logging middleware
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	AbortWithCode(c, status, err, "", msg, detail)
}

func AbortWithCode(c *gin.Context, status int, err error, code, msg string, detail any) {
	if err == nil {
		panic("AbortWithCode: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Code = code
	resp.Error.Message = msg
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

var codeStatus = map[string]int{
	"VALIDATION":                 http.StatusBadRequest,
	"SYSTEM_RED":                 http.StatusUnprocessableEntity,
	"IDEMPOTENT_REPLAY_CONFLICT": http.StatusConflict,
	"LOCK_CONFLICT":              http.StatusConflict,
	"NOT_HOLDER":                 http.StatusConflict,
	"ALREADY_PENDING":            http.StatusConflict,
	"INTEGRITY":                  http.StatusConflict,
	"NO_ACTIVE_LEASE":            http.StatusConflict,
	"ALREADY_HOLDER":             http.StatusConflict,
	"TAKEOVER_NOT_PENDING":       http.StatusConflict,
	"TAKEOVER_NOT_FOUND":         http.StatusNotFound,
	"TAKEOVER_EXPIRED":           http.StatusGone,
	"UNAUTHENTICATED":            http.StatusUnauthorized,
}

// StatusForCode falls back to 500 for unknown codes.
func StatusForCode(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
