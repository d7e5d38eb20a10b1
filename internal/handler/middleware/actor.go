package middleware

import (
	"net/http"
	"strings"

	"packsend-service/internal/handler/httperr"
	"packsend-service/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

const (
	HeaderStaffID = "X-Staff-ID"

	ctxActorIDKey = "actor_id"
	maxActorLen   = 64
)

var errMissingActor = errs.New("missing staff identity")

// RequireActor trusts the staff id forwarded by the auth gateway.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(HeaderStaffID))
		if actorID == "" || len(actorID) > maxActorLen {
			httperr.AbortWithCode(c, http.StatusUnauthorized, errMissingActor,
				"UNAUTHENTICATED", "Missing or invalid "+HeaderStaffID+" header", nil)
			return
		}
		c.Set(ctxActorIDKey, actorID)
		c.Next()
	}
}

func GetActorID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxActorIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
