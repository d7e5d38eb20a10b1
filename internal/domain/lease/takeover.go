package lease

import (
	"strings"
	"time"

	"packsend-service/internal/pkg/errs"
)

type TakeoverStatus string

const (
	TakeoverPending   TakeoverStatus = "pending"
	TakeoverAccepted  TakeoverStatus = "accepted"
	TakeoverDeclined  TakeoverStatus = "declined"
	TakeoverExpired   TakeoverStatus = "expired"
	TakeoverCancelled TakeoverStatus = "cancelled"
)

var (
	ErrRequesterRequired   = errs.New("requester id required")
	ErrSelfTakeover        = errs.New("requester already holds the lease")
	ErrInvalidWindow       = errs.New("takeover window must be positive")
	ErrTakeoverNotPending  = errs.New("takeover request is not pending")
	ErrInvalidTakeoverStep = errs.New("invalid takeover status transition")
)

func (s TakeoverStatus) IsTerminal() bool {
	switch s {
	case TakeoverAccepted, TakeoverDeclined, TakeoverExpired, TakeoverCancelled:
		return true
	default:
		return false
	}
}

// TakeoverRequest asks the current holder to hand the lease to the requester.
// An unanswered request is resolved when expiresAt passes.
type TakeoverRequest struct {
	id          int64
	transferID  int64
	requesterID string
	holderID    string
	status      TakeoverStatus
	requestedAt time.Time
	expiresAt   time.Time
	respondedAt *time.Time
}

func NewTakeoverRequest(transferID int64, requesterID, holderID string, now time.Time, window time.Duration) (*TakeoverRequest, error) {
	if transferID <= 0 {
		return nil, ErrInvalidTransferID
	}
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return nil, ErrRequesterRequired
	}
	if holderID == "" {
		return nil, ErrHolderRequired
	}
	if requesterID == holderID {
		return nil, ErrSelfTakeover
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}

	return &TakeoverRequest{
		transferID:  transferID,
		requesterID: requesterID,
		holderID:    holderID,
		status:      TakeoverPending,
		requestedAt: now,
		expiresAt:   now.Add(window),
	}, nil
}

func ReconstructTakeoverRequest(
	id, transferID int64,
	requesterID, holderID string,
	status TakeoverStatus,
	requestedAt, expiresAt time.Time,
	respondedAt *time.Time,
) *TakeoverRequest {
	return &TakeoverRequest{
		id:          id,
		transferID:  transferID,
		requesterID: requesterID,
		holderID:    holderID,
		status:      status,
		requestedAt: requestedAt,
		expiresAt:   expiresAt,
		respondedAt: respondedAt,
	}
}

func (r *TakeoverRequest) ID() int64               { return r.id }
func (r *TakeoverRequest) TransferID() int64       { return r.transferID }
func (r *TakeoverRequest) RequesterID() string     { return r.requesterID }
func (r *TakeoverRequest) HolderID() string        { return r.holderID }
func (r *TakeoverRequest) Status() TakeoverStatus  { return r.status }
func (r *TakeoverRequest) RequestedAt() time.Time  { return r.requestedAt }
func (r *TakeoverRequest) ExpiresAt() time.Time    { return r.expiresAt }
func (r *TakeoverRequest) RespondedAt() *time.Time { return r.respondedAt }

// AssignID records the identity given by storage on insert.
func (r *TakeoverRequest) AssignID(id int64) { r.id = id }

func (r *TakeoverRequest) IsPending() bool {
	return r.status == TakeoverPending
}

// IsOverdue reports a pending request whose response window has closed.
func (r *TakeoverRequest) IsOverdue(now time.Time) bool {
	return r.IsPending() && !now.Before(r.expiresAt)
}

func (r *TakeoverRequest) Resolve(status TakeoverStatus, now time.Time) error {
	if !r.IsPending() {
		return ErrTakeoverNotPending
	}
	if !status.IsTerminal() {
		return ErrInvalidTakeoverStep
	}
	r.status = status
	at := now
	r.respondedAt = &at
	return nil
}
