package api

import (
	"errors"
	"io"
	"net/http"

	reqdto "packsend-service/internal/handler/dto/request"
	resdto "packsend-service/internal/handler/dto/response"
	"packsend-service/internal/handler/httperr"
	"packsend-service/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

const headerFingerprint = "X-Client-Fingerprint"

var lockMessages = map[string]string{
	"VALIDATION":           "Invalid lock request",
	"LOCK_CONFLICT":        "Transfer is locked by another user",
	"NOT_HOLDER":           "Caller does not hold the lock",
	"ALREADY_PENDING":      "A takeover request is already pending",
	"NO_ACTIVE_LEASE":      "Transfer is not locked",
	"ALREADY_HOLDER":       "Caller already holds the lock",
	"TAKEOVER_NOT_FOUND":   "Takeover request not found",
	"TAKEOVER_NOT_PENDING": "Takeover request is no longer pending",
	"TAKEOVER_EXPIRED":     "Takeover request expired",
}

type LockHandler struct {
	cmds commands.LockCommands
}

func NewLockHandler(cmds commands.LockCommands) *LockHandler {
	return &LockHandler{cmds: cmds}
}

// @Summary Acquire transfer lock
// @Description Acquire or refresh the edit lease on a transfer
// @Tags locks
// @Accept json
// @Produce json
// @Param X-Staff-ID header string true "Staff id"
// @Param id path int true "Transfer ID"
// @Param request body reqdto.AcquireLockRequest false "Acquire request"
// @Success 200 {object} resdto.LeaseResponse
// @Failure 400 {object} httperr.Response
// @Failure 409 {object} resdto.LockConflictResponse
// @Router /transfers/{id}/lock [post]
func (h *LockHandler) Acquire(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	transferID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reqdto.AcquireLockRequest
	// the body is optional
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httperr.AbortWithCode(c, http.StatusBadRequest, err, "VALIDATION", "Invalid request", nil)
		return
	}

	view, err := h.cmds.Acquire(c.Request.Context(), transferID, actor, req.FingerprintOr(c.GetHeader(headerFingerprint)), req.TTL())
	if err != nil {
		if conflict, ok := commands.AsLockConflict(err); ok {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusConflict,
				resdto.FromLockConflict(conflict, "LOCK_CONFLICT", lockMessages["LOCK_CONFLICT"]))
			return
		}
		abortLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromLeaseView(view))
}

// @Summary Heartbeat transfer lock
// @Description Extend the caller's lease by the configured TTL
// @Tags locks
// @Produce json
// @Param X-Staff-ID header string true "Staff id"
// @Param id path int true "Transfer ID"
// @Success 200 {object} resdto.LeaseResponse
// @Failure 409 {object} httperr.Response
// @Router /transfers/{id}/lock/heartbeat [post]
func (h *LockHandler) Heartbeat(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	transferID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.cmds.Heartbeat(c.Request.Context(), transferID, actor)
	if err != nil {
		abortLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromLeaseView(view))
}

// @Summary Release transfer lock
// @Description Release the caller's lease. Releasing a lease held by someone else is a no-op.
// @Tags locks
// @Produce json
// @Param X-Staff-ID header string true "Staff id"
// @Param id path int true "Transfer ID"
// @Success 200 {object} resdto.ReleaseResponse
// @Router /transfers/{id}/lock [delete]
func (h *LockHandler) Release(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	transferID, ok := pathID(c, "id")
	if !ok {
		return
	}
	released, err := h.cmds.Release(c.Request.Context(), transferID, actor)
	if err != nil {
		abortLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.ReleaseResponse{OK: true, Released: released})
}

// @Summary Transfer lock status
// @Description Current holder and pending takeover for a transfer
// @Tags locks
// @Produce json
// @Param id path int true "Transfer ID"
// @Success 200 {object} resdto.LockStatusResponse
// @Router /transfers/{id}/lock [get]
func (h *LockHandler) Status(c *gin.Context) {
	transferID, ok := pathID(c, "id")
	if !ok {
		return
	}
	status, err := h.cmds.Status(c.Request.Context(), transferID)
	if err != nil {
		abortLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromLockStatus(status))
}

func abortLockError(c *gin.Context, err error) {
	code := commands.LockErrorCode(err)
	msg, ok := lockMessages[code]
	if !ok {
		msg = "Internal server error"
	}
	httperr.AbortWithCode(c, httperr.StatusForCode(code), err, code, msg, nil)
}
