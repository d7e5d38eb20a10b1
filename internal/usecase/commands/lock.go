package commands

//go:generate mockgen -source=lock.go -destination=../../../tests/mock/commands/mock_lock.go -package=commandsmock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"packsend-service/internal/domain/lease"
	"packsend-service/internal/infra"
	"packsend-service/internal/pkg/clock"
	"packsend-service/internal/pkg/errs"
	"packsend-service/internal/usecase/shared"
)

var (
	ErrInvalidLockInput   = errs.New("invalid lock input")
	ErrLockConflict       = errs.New("transfer is locked by another user")
	ErrNotHolder          = errs.New("caller does not hold the lease")
	ErrAlreadyPending     = errs.New("a takeover request is already pending")
	ErrNoActiveLease      = errs.New("no active lease to take over")
	ErrAlreadyHolder      = errs.New("requester already holds the lease")
	ErrTakeoverNotFound   = errs.New("takeover request not found")
	ErrTakeoverNotPending = errs.New("takeover request is not pending")
	ErrTakeoverExpired    = errs.New("takeover request expired")
)

// LockConflictError describes the live lease that blocked an acquire.
// It is marked with ErrLockConflict.
type LockConflictError struct {
	HolderID   string
	HolderName string
	ExpiresAt  time.Time
}

func (e *LockConflictError) Error() string {
	return fmt.Sprintf("transfer is locked by %s until %s", e.HolderName, e.ExpiresAt.Format(time.RFC3339))
}

var lockErrorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidLockInput, "VALIDATION"},
	{ErrLockConflict, "LOCK_CONFLICT"},
	{ErrNotHolder, "NOT_HOLDER"},
	{ErrAlreadyPending, "ALREADY_PENDING"},
	{ErrNoActiveLease, "NO_ACTIVE_LEASE"},
	{ErrAlreadyHolder, "ALREADY_HOLDER"},
	{ErrTakeoverNotFound, "TAKEOVER_NOT_FOUND"},
	{ErrTakeoverNotPending, "TAKEOVER_NOT_PENDING"},
	{ErrTakeoverExpired, "TAKEOVER_EXPIRED"},
}

// LockErrorCode maps a lock command error to its caller-facing code.
func LockErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range lockErrorCodes {
		if errs.Is(err, c.err) {
			return c.code
		}
	}
	return "UNEXPECTED_ERROR"
}

const sweepBatchSize = 200

type LockConfig struct {
	TTL            time.Duration
	TakeoverWindow time.Duration
	// TimeoutAccept hands the lease to the requester when the holder never answers.
	TimeoutAccept bool
}

type LeaseView struct {
	TransferID  int64
	HolderID    string
	Fingerprint string
	AcquiredAt  time.Time
	ExpiresAt   time.Time
}

type TakeoverView struct {
	ID          int64
	TransferID  int64
	RequesterID string
	HolderID    string
	Status      lease.TakeoverStatus
	RequestedAt time.Time
	ExpiresAt   time.Time
	RespondedAt *time.Time
}

type HolderView struct {
	HolderID   string
	HolderName string
	ExpiresAt  time.Time
}

type LockStatus struct {
	TransferID int64
	Holder     *HolderView
	Pending    *TakeoverView
}

type SweepResult struct {
	ExpiredTakeovers  int
	TransferredLeases int
	PurgedLeases      int64
}

type LockCommands interface {
	Acquire(ctx context.Context, transferID int64, actorID, fingerprint string, ttl time.Duration) (*LeaseView, error)
	Heartbeat(ctx context.Context, transferID int64, actorID string) (*LeaseView, error)
	Release(ctx context.Context, transferID int64, actorID string) (bool, error)
	RequestTakeover(ctx context.Context, transferID int64, requesterID string) (*TakeoverView, error)
	RespondTakeover(ctx context.Context, requestID int64, holderID string, accept bool) (*TakeoverView, error)
	CancelTakeover(ctx context.Context, requestID int64, requesterID string) (*TakeoverView, error)
	Status(ctx context.Context, transferID int64) (*LockStatus, error)
	Sweep(ctx context.Context) (*SweepResult, error)
}

type lockUseCaseImpl struct {
	uow      shared.UnitOfWork
	staff    StaffDirectory
	clock    clock.Clock
	recorder LockRecorder
	cfg      LockConfig
}

func NewLockUseCase(
	uow shared.UnitOfWork,
	staff StaffDirectory,
	clock clock.Clock,
	recorder LockRecorder,
	cfg LockConfig,
) LockCommands {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.TakeoverWindow <= 0 {
		cfg.TakeoverWindow = time.Minute
	}
	return &lockUseCaseImpl{
		uow:      uow,
		staff:    staff,
		clock:    clock,
		recorder: recorder,
		cfg:      cfg,
	}
}

// =============================================================================
// Lease operations
// =============================================================================

func (u *lockUseCaseImpl) Acquire(ctx context.Context, transferID int64, actorID, fingerprint string, ttl time.Duration) (view *LeaseView, err error) {
	defer u.observe("acquire", time.Now(), &err)

	if ttl <= 0 {
		ttl = u.cfg.TTL
	}
	now := u.clock.Now()
	candidate, err := lease.New(transferID, actorID, fingerprint, now, ttl)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidLockInput)
	}

	var blocker *lease.Lease
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := u.settle(ctx, tx, transferID, now); err != nil {
			return err
		}
		stored, ok, err := tx.Leases().TryAcquire(ctx, tx.DB(), candidate)
		if err != nil {
			return errs.Wrap(err, "acquire lease")
		}
		if !ok {
			blocker, err = tx.Leases().Get(ctx, tx.DB(), transferID)
			if err != nil {
				return errs.Wrap(err, "load blocking lease")
			}
			return nil
		}
		view = toLeaseView(stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if blocker != nil {
		return nil, errs.Mark(&LockConflictError{
			HolderID:   blocker.HolderID(),
			HolderName: u.holderName(ctx, blocker.HolderID()),
			ExpiresAt:  blocker.ExpiresAt(),
		}, ErrLockConflict)
	}
	return view, nil
}

func (u *lockUseCaseImpl) Heartbeat(ctx context.Context, transferID int64, actorID string) (view *LeaseView, err error) {
	defer u.observe("heartbeat", time.Now(), &err)

	now := u.clock.Now()
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := u.settle(ctx, tx, transferID, now); err != nil {
			return err
		}
		current, err := tx.Leases().GetForUpdate(ctx, tx.DB(), transferID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrNotHolder
			}
			return errs.Wrap(err, "load lease")
		}
		if !current.HeldBy(actorID, now) {
			return ErrNotHolder
		}
		refreshed, err := current.Refresh(now, u.cfg.TTL)
		if err != nil {
			return errs.Mark(err, ErrInvalidLockInput)
		}
		if err := tx.Leases().Save(ctx, tx.DB(), refreshed); err != nil {
			return errs.Wrap(err, "save lease")
		}
		view = toLeaseView(refreshed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Release is a no-op when the caller does not hold the lease.
func (u *lockUseCaseImpl) Release(ctx context.Context, transferID int64, actorID string) (released bool, err error) {
	defer u.observe("release", time.Now(), &err)

	now := u.clock.Now()
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := u.settle(ctx, tx, transferID, now); err != nil {
			return err
		}
		deleted, err := tx.Leases().Delete(ctx, tx.DB(), transferID, actorID)
		if err != nil {
			return errs.Wrap(err, "delete lease")
		}
		released = deleted
		return nil
	})
	if err != nil {
		return false, err
	}
	return released, nil
}

// =============================================================================
// Takeover negotiation
// =============================================================================

func (u *lockUseCaseImpl) RequestTakeover(ctx context.Context, transferID int64, requesterID string) (view *TakeoverView, err error) {
	defer u.observe("takeover_request", time.Now(), &err)

	now := u.clock.Now()
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := u.settle(ctx, tx, transferID, now); err != nil {
			return err
		}
		if _, err := tx.Takeovers().PendingForTransfer(ctx, tx.DB(), transferID); err == nil {
			return ErrAlreadyPending
		} else if !infra.IsKind(err, infra.KindNotFound) {
			return errs.Wrap(err, "load pending takeover")
		}

		current, err := u.liveLease(ctx, tx, transferID, now)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNoActiveLease
		}
		if current.HolderID() == requesterID {
			return ErrAlreadyHolder
		}

		req, err := lease.NewTakeoverRequest(transferID, requesterID, current.HolderID(), now, u.cfg.TakeoverWindow)
		if err != nil {
			return errs.Mark(err, ErrInvalidLockInput)
		}
		id, err := tx.Takeovers().Create(ctx, tx.DB(), req)
		if err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return ErrAlreadyPending
			}
			return errs.Wrap(err, "create takeover request")
		}
		req.AssignID(id)
		view = toTakeoverView(req)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (u *lockUseCaseImpl) RespondTakeover(ctx context.Context, requestID int64, holderID string, accept bool) (view *TakeoverView, err error) {
	defer u.observe("takeover_respond", time.Now(), &err)

	now := u.clock.Now()
	expired := false
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		req, err := u.loadTakeover(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if !req.IsPending() {
			return ErrTakeoverNotPending
		}
		// An overdue answer still settles the request so the outcome is durable.
		if req.IsOverdue(now) {
			if err := u.expire(ctx, tx, req, now); err != nil {
				return err
			}
			expired = true
			view = toTakeoverView(req)
			return nil
		}

		current, err := u.liveLease(ctx, tx, req.TransferID(), now)
		if err != nil {
			return err
		}
		if req.HolderID() != holderID || current == nil || current.HolderID() != holderID {
			return ErrNotHolder
		}

		status := lease.TakeoverDeclined
		if accept {
			status = lease.TakeoverAccepted
		}
		if err := req.Resolve(status, now); err != nil {
			return ErrTakeoverNotPending
		}
		if err := u.updateTakeover(ctx, tx, req); err != nil {
			return err
		}
		if accept {
			if err := u.grant(ctx, tx, req, now); err != nil {
				return err
			}
		}
		view = toTakeoverView(req)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		u.recorder.ObserveTakeover(string(lease.TakeoverExpired))
		return view, ErrTakeoverExpired
	}
	u.recorder.ObserveTakeover(string(view.Status))
	return view, nil
}

// CancelTakeover lets the requester withdraw. Other callers see not found.
func (u *lockUseCaseImpl) CancelTakeover(ctx context.Context, requestID int64, requesterID string) (view *TakeoverView, err error) {
	defer u.observe("takeover_cancel", time.Now(), &err)

	now := u.clock.Now()
	expired := false
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		req, err := u.loadTakeover(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.RequesterID() != requesterID {
			return ErrTakeoverNotFound
		}
		if !req.IsPending() {
			return ErrTakeoverNotPending
		}
		if req.IsOverdue(now) {
			if err := u.expire(ctx, tx, req, now); err != nil {
				return err
			}
			expired = true
			view = toTakeoverView(req)
			return nil
		}
		if err := req.Resolve(lease.TakeoverCancelled, now); err != nil {
			return ErrTakeoverNotPending
		}
		if err := u.updateTakeover(ctx, tx, req); err != nil {
			return err
		}
		view = toTakeoverView(req)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		u.recorder.ObserveTakeover(string(lease.TakeoverExpired))
		return view, ErrTakeoverExpired
	}
	u.recorder.ObserveTakeover(string(lease.TakeoverCancelled))
	return view, nil
}

func (u *lockUseCaseImpl) Status(ctx context.Context, transferID int64) (status *LockStatus, err error) {
	defer u.observe("status", time.Now(), &err)

	if transferID <= 0 {
		return nil, errs.Mark(lease.ErrInvalidTransferID, ErrInvalidLockInput)
	}
	now := u.clock.Now()
	status = &LockStatus{TransferID: transferID}
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := u.settle(ctx, tx, transferID, now); err != nil {
			return err
		}
		current, err := u.liveLease(ctx, tx, transferID, now)
		if err != nil {
			return err
		}
		if current != nil {
			status.Holder = &HolderView{HolderID: current.HolderID(), ExpiresAt: current.ExpiresAt()}
		}
		pending, err := tx.Takeovers().PendingForTransfer(ctx, tx.DB(), transferID)
		switch {
		case err == nil:
			status.Pending = toTakeoverView(pending)
		case !infra.IsKind(err, infra.KindNotFound):
			return errs.Wrap(err, "load pending takeover")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if status.Holder != nil {
		status.Holder.HolderName = u.holderName(ctx, status.Holder.HolderID)
	}
	return status, nil
}

// Sweep resolves overdue takeovers before purging expired leases so an
// implicit accept is never undone by the purge.
func (u *lockUseCaseImpl) Sweep(ctx context.Context) (result *SweepResult, err error) {
	defer u.observe("sweep", time.Now(), &err)

	now := u.clock.Now()
	result = &SweepResult{}
	var outcomes []bool
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		*result = SweepResult{}
		outcomes = outcomes[:0]

		overdue, err := tx.Takeovers().ListOverdue(ctx, tx.DB(), now, sweepBatchSize)
		if err != nil {
			return errs.Wrap(err, "list overdue takeovers")
		}
		for _, req := range overdue {
			transferred, err := u.expireRequest(ctx, tx, req, now)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, transferred)
		}

		purged, err := tx.Leases().DeleteExpired(ctx, tx.DB(), now)
		if err != nil {
			return errs.Wrap(err, "delete expired leases")
		}
		result.PurgedLeases = purged
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, transferred := range outcomes {
		result.ExpiredTakeovers++
		if transferred {
			result.TransferredLeases++
		}
		u.recorder.ObserveTakeover(string(lease.TakeoverExpired))
	}
	u.recorder.AddExpired(result.PurgedLeases)
	return result, nil
}

// =============================================================================
// Helpers
// =============================================================================

// settle resolves an overdue takeover for the transfer inside the caller's
// transaction so lock decisions never wait for the sweeper.
func (u *lockUseCaseImpl) settle(ctx context.Context, tx shared.Tx, transferID int64, now time.Time) error {
	pending, err := tx.Takeovers().PendingForTransfer(ctx, tx.DB(), transferID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil
		}
		return errs.Wrap(err, "load pending takeover")
	}
	if !pending.IsOverdue(now) {
		return nil
	}
	return u.expire(ctx, tx, pending, now)
}

func (u *lockUseCaseImpl) expire(ctx context.Context, tx shared.Tx, req *lease.TakeoverRequest, now time.Time) error {
	_, err := u.expireRequest(ctx, tx, req, now)
	return err
}

// expireRequest marks req expired and, when configured, hands the lease to the
// requester unless someone other than the addressed holder owns it now.
func (u *lockUseCaseImpl) expireRequest(ctx context.Context, tx shared.Tx, req *lease.TakeoverRequest, now time.Time) (bool, error) {
	if err := req.Resolve(lease.TakeoverExpired, now); err != nil {
		return false, ErrTakeoverNotPending
	}
	if err := u.updateTakeover(ctx, tx, req); err != nil {
		return false, err
	}
	if !u.cfg.TimeoutAccept {
		return false, nil
	}

	current, err := u.liveLease(ctx, tx, req.TransferID(), now)
	if err != nil {
		return false, err
	}
	if current != nil && current.HolderID() != req.HolderID() {
		slog.Info("takeover expired without transfer; lease changed hands",
			"request_id", req.ID(), "transfer_id", req.TransferID(), "holder_id", current.HolderID())
		return false, nil
	}
	if err := u.grant(ctx, tx, req, now); err != nil {
		return false, err
	}
	return true, nil
}

func (u *lockUseCaseImpl) grant(ctx context.Context, tx shared.Tx, req *lease.TakeoverRequest, now time.Time) error {
	next, err := lease.New(req.TransferID(), req.RequesterID(), "", now, u.cfg.TTL)
	if err != nil {
		return errs.Mark(err, ErrInvalidLockInput)
	}
	if err := tx.Leases().Save(ctx, tx.DB(), next); err != nil {
		return errs.Wrap(err, "transfer lease")
	}
	return nil
}

func (u *lockUseCaseImpl) updateTakeover(ctx context.Context, tx shared.Tx, req *lease.TakeoverRequest) error {
	if err := tx.Takeovers().UpdateStatus(ctx, tx.DB(), req); err != nil {
		if infra.IsKind(err, infra.KindConflict) {
			return ErrTakeoverNotPending
		}
		return errs.Wrap(err, "update takeover request")
	}
	return nil
}

func (u *lockUseCaseImpl) loadTakeover(ctx context.Context, tx shared.Tx, requestID int64) (*lease.TakeoverRequest, error) {
	req, err := tx.Takeovers().GetForUpdate(ctx, tx.DB(), requestID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrTakeoverNotFound
		}
		return nil, errs.Wrap(err, "load takeover request")
	}
	return req, nil
}

// liveLease returns nil when no lease exists or the stored one has lapsed.
func (u *lockUseCaseImpl) liveLease(ctx context.Context, tx shared.Tx, transferID int64, now time.Time) (*lease.Lease, error) {
	current, err := tx.Leases().GetForUpdate(ctx, tx.DB(), transferID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "load lease")
	}
	if !current.AliveAt(now) {
		return nil, nil
	}
	return current, nil
}

func (u *lockUseCaseImpl) holderName(ctx context.Context, holderID string) string {
	if u.staff == nil {
		return holderID
	}
	name, err := u.staff.ResolveName(ctx, holderID)
	if err != nil || name == "" {
		if err != nil && !infra.IsKind(err, infra.KindNotFound) {
			slog.Warn("failed to resolve holder name", "holder_id", holderID, "error", err.Error())
		}
		return holderID
	}
	return name
}

func (u *lockUseCaseImpl) observe(op string, started time.Time, err *error) {
	result := "ok"
	if *err != nil {
		result = LockErrorCode(*err)
	}
	u.recorder.ObserveLockOp(op, result, time.Since(started))
}

func toLeaseView(l *lease.Lease) *LeaseView {
	return &LeaseView{
		TransferID:  l.TransferID(),
		HolderID:    l.HolderID(),
		Fingerprint: l.Fingerprint(),
		AcquiredAt:  l.AcquiredAt(),
		ExpiresAt:   l.ExpiresAt(),
	}
}

func toTakeoverView(r *lease.TakeoverRequest) *TakeoverView {
	return &TakeoverView{
		ID:          r.ID(),
		TransferID:  r.TransferID(),
		RequesterID: r.RequesterID(),
		HolderID:    r.HolderID(),
		Status:      r.Status(),
		RequestedAt: r.RequestedAt(),
		ExpiresAt:   r.ExpiresAt(),
		RespondedAt: r.RespondedAt(),
	}
}

// AsLockConflict extracts the blocking lease details from an Acquire error.
func AsLockConflict(err error) (*LockConflictError, bool) {
	var conflict *LockConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
