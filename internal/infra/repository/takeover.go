package repository

import (
	"context"
	"time"

	"packsend-service/internal/domain/lease"
	"packsend-service/internal/infra"
	"packsend-service/internal/infra/db"
	"packsend-service/internal/pkg/pgconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const takeoverColumns = `id, transfer_id, requester_id, holder_id, status, requested_at, expires_at, responded_at`

type TakeoverRepository struct{}

func NewTakeoverRepository() *TakeoverRepository {
	return &TakeoverRepository{}
}

// Create fails with KindDuplicateKey while another request for the transfer is pending.
func (r *TakeoverRepository) Create(ctx context.Context, tx db.DBTX, req *lease.TakeoverRequest) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO takeover_requests (transfer_id, requester_id, holder_id, status, requested_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		req.TransferID(), req.RequesterID(), req.HolderID(), string(req.Status()), req.RequestedAt(), req.ExpiresAt(),
	).Scan(&id)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to create takeover request", err)
	}
	return id, nil
}

func (r *TakeoverRepository) GetForUpdate(ctx context.Context, tx db.DBTX, id int64) (*lease.TakeoverRequest, error) {
	row := tx.QueryRow(ctx, `SELECT `+takeoverColumns+` FROM takeover_requests WHERE id = $1 FOR UPDATE`, id)
	req, err := scanTakeover(row)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get takeover request", err)
	}
	return req, nil
}

func (r *TakeoverRepository) PendingForTransfer(ctx context.Context, tx db.DBTX, transferID int64) (*lease.TakeoverRequest, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+takeoverColumns+`
		FROM takeover_requests
		WHERE transfer_id = $1 AND status = 'pending'
		FOR UPDATE`, transferID)
	req, err := scanTakeover(row)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get pending takeover request", err)
	}
	return req, nil
}

// ListOverdue skips rows another sweeper or request already holds.
func (r *TakeoverRepository) ListOverdue(ctx context.Context, tx db.DBTX, now time.Time, limit int) ([]*lease.TakeoverRequest, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+takeoverColumns+`
		FROM takeover_requests
		WHERE status = 'pending' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED`, now, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list overdue takeover requests", err)
	}
	defer rows.Close()

	var out []*lease.TakeoverRequest
	for rows.Next() {
		req, err := scanTakeover(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan takeover request", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate takeover requests", err)
	}
	return out, nil
}

func (r *TakeoverRepository) UpdateStatus(ctx context.Context, tx db.DBTX, req *lease.TakeoverRequest) error {
	tag, err := tx.Exec(ctx, `
		UPDATE takeover_requests
		SET status = $2, responded_at = $3
		WHERE id = $1 AND status = 'pending'`,
		req.ID(), string(req.Status()), pgconv.TimePtrToPgtype(req.RespondedAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update takeover request", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("takeover request already resolved", nil, infra.KindConflict)
	}
	return nil
}

func scanTakeover(row pgx.Row) (*lease.TakeoverRequest, error) {
	var id, transferID int64
	var requesterID, holderID, status string
	var requestedAt, expiresAt time.Time
	var respondedAt pgtype.Timestamptz
	if err := row.Scan(&id, &transferID, &requesterID, &holderID, &status, &requestedAt, &expiresAt, &respondedAt); err != nil {
		return nil, err
	}
	return lease.ReconstructTakeoverRequest(
		id, transferID,
		requesterID, holderID,
		lease.TakeoverStatus(status),
		requestedAt.UTC(), expiresAt.UTC(),
		pgconv.TimePtrFromPgtype(respondedAt),
	), nil
}
