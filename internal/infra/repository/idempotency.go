package repository

import (
	"context"
	"time"

	"packsend-service/internal/infra"
	"packsend-service/internal/infra/db"
	"packsend-service/internal/usecase/shared"
)

type IdempotencyRepository struct{}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{}
}

// Get never filters by age; retention is enforced by PurgeBefore.
func (r *IdempotencyRepository) Get(ctx context.Context, tx db.DBTX, cacheKey string) (*shared.IdempotencyRecord, error) {
	rec := &shared.IdempotencyRecord{}
	err := tx.QueryRow(ctx, `
		SELECT cache_key, body_hash, response_envelope, stored_at
		FROM idempotency_records
		WHERE cache_key = $1`, cacheKey,
	).Scan(&rec.CacheKey, &rec.BodyHash, &rec.Envelope, &rec.StoredAt)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get idempotency record", err)
	}
	rec.StoredAt = rec.StoredAt.UTC()
	return rec, nil
}

// Put keeps the first stored envelope for a key and returns whichever row won.
// The no-op update makes RETURNING yield the existing row on conflict, including
// one committed by a concurrent writer after this statement started.
func (r *IdempotencyRepository) Put(ctx context.Context, tx db.DBTX, rec shared.IdempotencyRecord) (*shared.IdempotencyRecord, error) {
	stored := &shared.IdempotencyRecord{}
	err := tx.QueryRow(ctx, `
		INSERT INTO idempotency_records (cache_key, body_hash, response_envelope, stored_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cache_key) DO UPDATE SET cache_key = idempotency_records.cache_key
		RETURNING cache_key, body_hash, response_envelope, stored_at`,
		rec.CacheKey, rec.BodyHash, rec.Envelope, rec.StoredAt,
	).Scan(&stored.CacheKey, &stored.BodyHash, &stored.Envelope, &stored.StoredAt)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to store idempotency record", err)
	}
	stored.StoredAt = stored.StoredAt.UTC()
	return stored, nil
}

func (r *IdempotencyRepository) PurgeBefore(ctx context.Context, tx db.DBTX, cutoff time.Time) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM idempotency_records WHERE stored_at < $1`, cutoff)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to purge idempotency records", err)
	}
	return tag.RowsAffected(), nil
}
