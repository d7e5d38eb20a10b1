package api

import (
	"net/http"
	"strconv"

	"packsend-service/internal/handler/httperr"
	"packsend-service/internal/handler/middleware"
	"packsend-service/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

var errUnauthenticated = errs.New("unauthenticated")

// pathID parses a positive integer path parameter, aborting with 400 otherwise.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err == nil && id <= 0 {
		err = errs.New(name + " must be positive")
	}
	if err != nil {
		httperr.AbortWithCode(c, http.StatusBadRequest, err, "VALIDATION", "Invalid "+name, nil)
		return 0, false
	}
	return id, true
}

func actorID(c *gin.Context) (string, bool) {
	id, ok := middleware.GetActorID(c)
	if !ok {
		httperr.AbortWithCode(c, http.StatusUnauthorized, errUnauthenticated, "UNAUTHENTICATED", "Unauthorized", nil)
	}
	return id, ok
}
