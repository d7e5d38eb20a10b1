//go:build unit

package httperr_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"packsend-service/internal/handler/httperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"VALIDATION", http.StatusBadRequest},
		{"SYSTEM_RED", http.StatusUnprocessableEntity},
		{"IDEMPOTENT_REPLAY_CONFLICT", http.StatusConflict},
		{"LOCK_CONFLICT", http.StatusConflict},
		{"NOT_HOLDER", http.StatusConflict},
		{"ALREADY_PENDING", http.StatusConflict},
		{"INTEGRITY", http.StatusConflict},
		{"TAKEOVER_NOT_FOUND", http.StatusNotFound},
		{"TAKEOVER_EXPIRED", http.StatusGone},
		{"UNEXPECTED_ERROR", http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, httperr.StatusForCode(tt.code))
		})
	}
}

func TestAbortWithCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	httperr.AbortWithCode(c, http.StatusConflict, errors.New("boom"), "NOT_HOLDER", "not yours", nil)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":{"code":"NOT_HOLDER","message":"not yours"}}`, w.Body.String())
	require.Len(t, c.Errors, 1)
	assert.EqualError(t, c.Errors[0].Err, "boom")
}

func TestAbortWithCode_PanicsOnNilError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Panics(t, func() {
		httperr.AbortWithCode(c, http.StatusBadRequest, nil, "", "x", nil)
	})
}
