package api

import (
	"net/http"

	reqdto "packsend-service/internal/handler/dto/request"
	"packsend-service/internal/handler/httperr"
	"packsend-service/internal/handler/middleware"
	"packsend-service/internal/pkg/errs"
	"packsend-service/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

const headerReplay = "Idempotent-Replay"

var errTransferMismatch = errs.New("body transfer_id does not match path")

type PackSendHandler struct {
	cmds commands.PackSendCommands
}

func NewPackSendHandler(cmds commands.PackSendCommands) *PackSendHandler {
	return &PackSendHandler{cmds: cmds}
}

// @Summary Pack and send a transfer
// @Description Persist parcels for a transfer and optionally dispatch it. Safe to retry with the same idempotency key.
// @Tags pack-send
// @Accept json
// @Produce json
// @Param X-Staff-ID header string true "Staff id"
// @Param Idempotency-Key header string false "Overrides idempotency_key in the body"
// @Param id path int true "Transfer ID"
// @Param request body reqdto.PackSendRequest true "Pack/send request"
// @Success 200 {object} commands.Envelope "idempotent replay"
// @Success 201 {object} commands.Envelope
// @Failure 400 {object} commands.Envelope
// @Failure 409 {object} commands.Envelope
// @Failure 422 {object} commands.Envelope
// @Failure 500 {object} commands.Envelope
// @Router /transfers/{id}/pack-send [post]
func (h *PackSendHandler) Submit(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	transferID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body reqdto.PackSendRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.AbortWithCode(c, http.StatusBadRequest, err, "VALIDATION", "Invalid request body", nil)
		return
	}
	if body.TransferMismatch(transferID) {
		httperr.AbortWithCode(c, http.StatusBadRequest, errTransferMismatch, "VALIDATION", "transfer_id does not match path", nil)
		return
	}

	env := h.cmds.Submit(c.Request.Context(), body.ToDomain(transferID, c.GetHeader(middleware.HeaderIdempotencyKey)), actor)

	status := envelopeStatus(env)
	if env.Meta.IdempotentReplay {
		c.Header(headerReplay, "true")
	}
	if !env.OK {
		_ = c.Error(errs.New(string(env.ErrorCode())))
	}
	c.JSON(status, env)
}

func envelopeStatus(env *commands.Envelope) int {
	switch {
	case env.OK && env.Meta.IdempotentReplay:
		return http.StatusOK
	case env.OK:
		return http.StatusCreated
	default:
		return httperr.StatusForCode(string(env.ErrorCode()))
	}
}
