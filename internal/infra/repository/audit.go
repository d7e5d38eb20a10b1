package repository

import (
	"context"
	"encoding/json"

	"packsend-service/internal/infra"
	"packsend-service/internal/infra/db"
	"packsend-service/internal/pkg/pgconv"
	"packsend-service/internal/pkg/ptr"
	"packsend-service/internal/usecase/shared"
)

type AuditRepository struct{}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Insert(ctx context.Context, tx db.DBTX, rec shared.AuditRecord) error {
	warnings := rec.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return infra.WrapRepoErr("failed to encode audit warnings", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO pack_send_audit (
			request_id, transfer_id, actor_id, idempotency_key, ok, error_code,
			guardian_tier, handler, request_json, plan_json, warnings,
			mirror_outcome, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.RequestID,
		rec.TransferID,
		rec.ActorID,
		rec.IdempotencyKey,
		rec.OK,
		pgconv.StringPtrToPgtype(ptr.NonEmpty(rec.ErrorCode)),
		rec.GuardianTier,
		rec.Handler,
		jsonOrEmpty(rec.RequestJSON),
		jsonOrEmpty(rec.PlanJSON),
		warningsJSON,
		rec.MirrorOutcome,
		rec.DurationMs,
		rec.CreatedAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to insert audit row", err)
	}
	return nil
}

func jsonOrEmpty(b []byte) []byte {
	if len(b) == 0 {
		return []byte(`{}`)
	}
	return b
}
