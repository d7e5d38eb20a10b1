package repository

import (
	"context"
	"time"

	"packsend-service/internal/domain/lease"
	"packsend-service/internal/infra"
	"packsend-service/internal/infra/db"
	"packsend-service/internal/pkg/pgconv"

	"github.com/jackc/pgx/v5"
)

const leaseColumns = `transfer_id, holder_id, client_fingerprint, acquired_at, heartbeat_at, expires_at`

// The WHERE clause lets the same holder refresh and anyone replace an expired lease.
// A refresh keeps the original acquired_at.
const tryAcquireLeaseSQL = `
INSERT INTO transfer_leases (` + leaseColumns + `)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (transfer_id) DO UPDATE SET
    holder_id          = EXCLUDED.holder_id,
    client_fingerprint = EXCLUDED.client_fingerprint,
    acquired_at        = CASE
        WHEN transfer_leases.holder_id = EXCLUDED.holder_id
         AND transfer_leases.expires_at > EXCLUDED.heartbeat_at
        THEN transfer_leases.acquired_at
        ELSE EXCLUDED.acquired_at
    END,
    heartbeat_at       = EXCLUDED.heartbeat_at,
    expires_at         = EXCLUDED.expires_at
WHERE transfer_leases.holder_id = EXCLUDED.holder_id
   OR transfer_leases.expires_at <= EXCLUDED.heartbeat_at
RETURNING ` + leaseColumns

const saveLeaseSQL = `
INSERT INTO transfer_leases (` + leaseColumns + `)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (transfer_id) DO UPDATE SET
    holder_id          = EXCLUDED.holder_id,
    client_fingerprint = EXCLUDED.client_fingerprint,
    acquired_at        = EXCLUDED.acquired_at,
    heartbeat_at       = EXCLUDED.heartbeat_at,
    expires_at         = EXCLUDED.expires_at`

type LeaseRepository struct{}

func NewLeaseRepository() *LeaseRepository {
	return &LeaseRepository{}
}

func (r *LeaseRepository) TryAcquire(ctx context.Context, tx db.DBTX, l *lease.Lease) (*lease.Lease, bool, error) {
	row := tx.QueryRow(ctx, tryAcquireLeaseSQL, leaseArgs(l)...)
	stored, err := scanLease(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, false, nil
		}
		return nil, false, infra.WrapRepoErr("failed to acquire lease", err)
	}
	return stored, true, nil
}

func (r *LeaseRepository) Get(ctx context.Context, tx db.DBTX, transferID int64) (*lease.Lease, error) {
	row := tx.QueryRow(ctx, `SELECT `+leaseColumns+` FROM transfer_leases WHERE transfer_id = $1`, transferID)
	l, err := scanLease(row)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get lease", err)
	}
	return l, nil
}

func (r *LeaseRepository) GetForUpdate(ctx context.Context, tx db.DBTX, transferID int64) (*lease.Lease, error) {
	row := tx.QueryRow(ctx, `SELECT `+leaseColumns+` FROM transfer_leases WHERE transfer_id = $1 FOR UPDATE`, transferID)
	l, err := scanLease(row)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to lock lease", err)
	}
	return l, nil
}

func (r *LeaseRepository) Save(ctx context.Context, tx db.DBTX, l *lease.Lease) error {
	if _, err := tx.Exec(ctx, saveLeaseSQL, leaseArgs(l)...); err != nil {
		return infra.WrapRepoErr("failed to save lease", err)
	}
	return nil
}

func (r *LeaseRepository) Delete(ctx context.Context, tx db.DBTX, transferID int64, holderID string) (bool, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM transfer_leases WHERE transfer_id = $1 AND holder_id = $2`, transferID, holderID)
	if err != nil {
		return false, infra.WrapRepoErr("failed to delete lease", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *LeaseRepository) DeleteExpired(ctx context.Context, tx db.DBTX, now time.Time) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM transfer_leases WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to delete expired leases", err)
	}
	return tag.RowsAffected(), nil
}

func leaseArgs(l *lease.Lease) []any {
	return []any{
		l.TransferID(),
		l.HolderID(),
		l.Fingerprint(),
		l.AcquiredAt(),
		l.HeartbeatAt(),
		l.ExpiresAt(),
	}
}

func scanLease(row pgx.Row) (*lease.Lease, error) {
	var transferID int64
	var holderID, fingerprint string
	var acquiredAt, heartbeatAt, expiresAt time.Time
	if err := row.Scan(&transferID, &holderID, &fingerprint, &acquiredAt, &heartbeatAt, &expiresAt); err != nil {
		return nil, err
	}
	return lease.Reconstruct(transferID, holderID, fingerprint, acquiredAt.UTC(), heartbeatAt.UTC(), expiresAt.UTC()), nil
}
