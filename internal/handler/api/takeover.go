package api

import (
	"net/http"

	reqdto "packsend-service/internal/handler/dto/request"
	resdto "packsend-service/internal/handler/dto/response"
	"packsend-service/internal/handler/httperr"

	"github.com/gin-gonic/gin"
)

// @Summary Request lock takeover
// @Description Ask the current holder to hand over the transfer lock
// @Tags takeovers
// @Produce json
// @Param X-Staff-ID header string true "Staff id"
// @Param id path int true "Transfer ID"
// @Success 201 {object} resdto.TakeoverResponse
// @Failure 409 {object} httperr.Response
// @Router /transfers/{id}/takeovers [post]
func (h *LockHandler) RequestTakeover(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	transferID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.cmds.RequestTakeover(c.Request.Context(), transferID, actor)
	if err != nil {
		abortLockError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resdto.FromTakeoverView(view))
}

// @Summary Respond to takeover
// @Description Holder accepts or declines a pending takeover request
// @Tags takeovers
// @Accept json
// @Produce json
// @Param X-Staff-ID header string true "Staff id"
// @Param id path int true "Takeover request ID"
// @Param request body reqdto.RespondTakeoverRequest true "Response"
// @Success 200 {object} resdto.TakeoverResponse
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 410 {object} httperr.Response
// @Router /takeovers/{id}/respond [post]
func (h *LockHandler) RespondTakeover(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reqdto.RespondTakeoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithCode(c, http.StatusBadRequest, err, "VALIDATION", "Invalid request", nil)
		return
	}
	view, err := h.cmds.RespondTakeover(c.Request.Context(), requestID, actor, *req.Accept)
	if err != nil {
		abortLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromTakeoverView(view))
}

// @Summary Cancel takeover
// @Description Requester withdraws a pending takeover request
// @Tags takeovers
// @Produce json
// @Param X-Staff-ID header string true "Staff id"
// @Param id path int true "Takeover request ID"
// @Success 200 {object} resdto.TakeoverResponse
// @Failure 404 {object} httperr.Response
// @Router /takeovers/{id} [delete]
func (h *LockHandler) CancelTakeover(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.cmds.CancelTakeover(c.Request.Context(), requestID, actor)
	if err != nil {
		abortLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromTakeoverView(view))
}
