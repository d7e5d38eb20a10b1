package response

import (
	"time"

	"packsend-service/internal/usecase/commands"
)

type LeaseResponse struct {
	OK          bool      `json:"ok"`
	TransferID  int64     `json:"transfer_id"`
	HolderID    string    `json:"holder_id"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	AcquiredAt  time.Time `json:"acquired_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type LockConflictResponse struct {
	OK         bool      `json:"ok"`
	Conflict   bool      `json:"conflict"`
	HolderID   string    `json:"holder_id"`
	HolderName string    `json:"holder_name"`
	ExpiresAt  time.Time `json:"expires_at"`
	Error      struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type ReleaseResponse struct {
	OK       bool `json:"ok"`
	Released bool `json:"released"`
}

type HolderResponse struct {
	HolderID   string    `json:"holder_id"`
	HolderName string    `json:"holder_name"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type TakeoverResponse struct {
	OK          bool       `json:"ok"`
	RequestID   int64      `json:"request_id"`
	TransferID  int64      `json:"transfer_id"`
	RequesterID string     `json:"requester_id"`
	HolderID    string     `json:"holder_id"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

type LockStatusResponse struct {
	TransferID int64             `json:"transfer_id"`
	Locked     bool              `json:"locked"`
	Holder     *HolderResponse   `json:"holder,omitempty"`
	Pending    *TakeoverResponse `json:"pending_takeover,omitempty"`
}

func FromLeaseView(v *commands.LeaseView) LeaseResponse {
	return LeaseResponse{
		OK:          true,
		TransferID:  v.TransferID,
		HolderID:    v.HolderID,
		Fingerprint: v.Fingerprint,
		AcquiredAt:  v.AcquiredAt,
		ExpiresAt:   v.ExpiresAt,
	}
}

func FromLockConflict(c *commands.LockConflictError, code, message string) LockConflictResponse {
	resp := LockConflictResponse{
		Conflict:   true,
		HolderID:   c.HolderID,
		HolderName: c.HolderName,
		ExpiresAt:  c.ExpiresAt,
	}
	resp.Error.Code = code
	resp.Error.Message = message
	return resp
}

func FromTakeoverView(v *commands.TakeoverView) *TakeoverResponse {
	if v == nil {
		return nil
	}
	return &TakeoverResponse{
		OK:          true,
		RequestID:   v.ID,
		TransferID:  v.TransferID,
		RequesterID: v.RequesterID,
		HolderID:    v.HolderID,
		Status:      string(v.Status),
		RequestedAt: v.RequestedAt,
		ExpiresAt:   v.ExpiresAt,
		RespondedAt: v.RespondedAt,
	}
}

func FromLockStatus(s *commands.LockStatus) LockStatusResponse {
	resp := LockStatusResponse{
		TransferID: s.TransferID,
		Locked:     s.Holder != nil,
		Pending:    FromTakeoverView(s.Pending),
	}
	if s.Holder != nil {
		resp.Holder = &HolderResponse{
			HolderID:   s.Holder.HolderID,
			HolderName: s.Holder.HolderName,
			ExpiresAt:  s.Holder.ExpiresAt,
		}
	}
	return resp
}
