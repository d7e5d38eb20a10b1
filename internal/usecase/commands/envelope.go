package commands

import (
	"time"

	"packsend-service/internal/domain/packsend"
)

// Envelope is the uniform pack/send response. A replay returns the stored
// envelope unchanged apart from Meta.IdempotentReplay.
type Envelope struct {
	OK        bool            `json:"ok"`
	RequestID string          `json:"request_id"`
	Data      *PackSendResult `json:"data"`
	Error     *EnvelopeError  `json:"error"`
	Warnings  []string        `json:"warnings"`
	Meta      EnvelopeMeta    `json:"meta"`
}

type EnvelopeError struct {
	Code    packsend.ErrorCode    `json:"code"`
	Message string                `json:"message"`
	Fields  []packsend.FieldError `json:"fields,omitempty"`
}

type EnvelopeMeta struct {
	GuardianTier     packsend.Tier `json:"guardian_tier"`
	Handler          string        `json:"handler"`
	IdempotentReplay bool          `json:"idempotent_replay"`
}

type PackSendResult struct {
	TransferID      int64                 `json:"transfer_id"`
	ShipmentID      int64                 `json:"shipment_id"`
	Status          string                `json:"status"`
	Mode            packsend.Mode         `json:"mode"`
	DeliveryMode    string                `json:"delivery_mode"`
	CarrierLabel    string                `json:"carrier_label"`
	BoxCount        int                   `json:"box_count"`
	TotalWeightKg   float64               `json:"total_weight_kg"`
	DispatchedAt    *time.Time            `json:"dispatched_at"`
	Parcels         []packsend.ParcelSpec `json:"parcels"`
	MirrorReference string                `json:"mirror_reference,omitempty"`
}

// ErrorCode is empty for successful envelopes.
func (e *Envelope) ErrorCode() packsend.ErrorCode {
	if e == nil || e.Error == nil {
		return ""
	}
	return e.Error.Code
}

func (e *Envelope) outcome() string {
	switch {
	case e.OK && e.Meta.IdempotentReplay:
		return "replay"
	case e.OK:
		return "ok"
	default:
		return string(e.ErrorCode())
	}
}
