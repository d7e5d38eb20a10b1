package lease

import (
	"strings"
	"time"

	"packsend-service/internal/pkg/errs"
)

var (
	ErrInvalidTransferID = errs.New("transfer id must be positive")
	ErrHolderRequired    = errs.New("holder id required")
	ErrInvalidTTL        = errs.New("lease ttl must be positive")
)

// Lease grants one actor exclusive edit rights on a transfer until expiresAt.
type Lease struct {
	transferID  int64
	holderID    string
	fingerprint string
	acquiredAt  time.Time
	heartbeatAt time.Time
	expiresAt   time.Time
}

func New(transferID int64, holderID, fingerprint string, now time.Time, ttl time.Duration) (*Lease, error) {
	if transferID <= 0 {
		return nil, ErrInvalidTransferID
	}
	holderID = strings.TrimSpace(holderID)
	if holderID == "" {
		return nil, ErrHolderRequired
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	return &Lease{
		transferID:  transferID,
		holderID:    holderID,
		fingerprint: strings.TrimSpace(fingerprint),
		acquiredAt:  now,
		heartbeatAt: now,
		expiresAt:   now.Add(ttl),
	}, nil
}

func Reconstruct(transferID int64, holderID, fingerprint string, acquiredAt, heartbeatAt, expiresAt time.Time) *Lease {
	return &Lease{
		transferID:  transferID,
		holderID:    holderID,
		fingerprint: fingerprint,
		acquiredAt:  acquiredAt,
		heartbeatAt: heartbeatAt,
		expiresAt:   expiresAt,
	}
}

func (l *Lease) TransferID() int64      { return l.transferID }
func (l *Lease) HolderID() string       { return l.holderID }
func (l *Lease) Fingerprint() string    { return l.fingerprint }
func (l *Lease) AcquiredAt() time.Time  { return l.acquiredAt }
func (l *Lease) HeartbeatAt() time.Time { return l.heartbeatAt }
func (l *Lease) ExpiresAt() time.Time   { return l.expiresAt }

func (l *Lease) AliveAt(now time.Time) bool {
	return now.Before(l.expiresAt)
}

func (l *Lease) HeldBy(actorID string, now time.Time) bool {
	return l.holderID == actorID && l.AliveAt(now)
}

// Refresh keeps acquiredAt and moves the heartbeat and expiry forward.
func (l *Lease) Refresh(now time.Time, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	return &Lease{
		transferID:  l.transferID,
		holderID:    l.holderID,
		fingerprint: l.fingerprint,
		acquiredAt:  l.acquiredAt,
		heartbeatAt: now,
		expiresAt:   now.Add(ttl),
	}, nil
}

func (l *Lease) Remaining(now time.Time) time.Duration {
	if !l.AliveAt(now) {
		return 0
	}
	return l.expiresAt.Sub(now)
}
