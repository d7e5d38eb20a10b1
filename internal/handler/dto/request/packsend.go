package request

import (
	"strings"

	"packsend-service/internal/domain/packsend"
)

// PackSendRequest is the pack/send body. Its JSON shape is the domain request.
type PackSendRequest packsend.Request

// ToDomain pins the transfer to the path id and lets a non-empty
// Idempotency-Key header override the body key.
func (r PackSendRequest) ToDomain(transferID int64, headerKey string) packsend.Request {
	req := packsend.Request(r)
	req.TransferID = transferID
	if key := strings.TrimSpace(headerKey); key != "" {
		req.IdempotencyKey = key
	}
	return req
}

// TransferMismatch reports a body transfer_id that disagrees with the path.
func (r PackSendRequest) TransferMismatch(transferID int64) bool {
	return r.TransferID != 0 && r.TransferID != transferID
}
