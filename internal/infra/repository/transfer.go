package repository

import (
	"context"

	"packsend-service/internal/infra"
	"packsend-service/internal/infra/db"
	"packsend-service/internal/usecase/shared"
)

type TransferRepository struct{}

func NewTransferRepository() *TransferRepository {
	return &TransferRepository{}
}

// UpdateSummary fails with KindNotFound when the transfer row is missing.
func (r *TransferRepository) UpdateSummary(ctx context.Context, tx db.DBTX, summary shared.TransferSummary) error {
	tag, err := tx.Exec(ctx, `
		UPDATE transfers
		SET state = $2, box_count = $3, total_weight_kg = $4, updated_by = $5, updated_at = $6
		WHERE id = $1`,
		summary.TransferID,
		summary.State,
		summary.BoxCount,
		summary.TotalWeightKg,
		summary.UpdatedBy,
		summary.UpdatedAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update transfer summary", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("transfer not found", nil, infra.KindNotFound)
	}
	return nil
}

type CarrierOrderRepository struct{}

func NewCarrierOrderRepository() *CarrierOrderRepository {
	return &CarrierOrderRepository{}
}

// Upsert keeps one carrier order per transfer, pointing at the latest shipment.
func (r *CarrierOrderRepository) Upsert(ctx context.Context, tx db.DBTX, rec shared.CarrierOrderRecord) error {
	payload := rec.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO carrier_orders (transfer_id, shipment_id, order_number, carrier_label, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (transfer_id) DO UPDATE SET
			shipment_id   = EXCLUDED.shipment_id,
			order_number  = EXCLUDED.order_number,
			carrier_label = EXCLUDED.carrier_label,
			payload       = EXCLUDED.payload,
			updated_at    = EXCLUDED.updated_at`,
		rec.TransferID,
		rec.ShipmentID,
		rec.OrderNumber,
		rec.CarrierLabel,
		payload,
		rec.UpdatedAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to upsert carrier order", err)
	}
	return nil
}

type LifecycleLogRepository struct{}

func NewLifecycleLogRepository() *LifecycleLogRepository {
	return &LifecycleLogRepository{}
}

func (r *LifecycleLogRepository) Append(ctx context.Context, tx db.DBTX, ev shared.LifecycleEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transfer_lifecycle_logs (transfer_id, shipment_id, event, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		ev.TransferID, ev.ShipmentID, ev.Event, ev.ActorID, ev.OccurredAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to append lifecycle log", err)
	}
	return nil
}
