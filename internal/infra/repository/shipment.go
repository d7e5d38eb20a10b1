package repository

import (
	"context"

	"packsend-service/internal/domain/packsend"
	"packsend-service/internal/infra"
	"packsend-service/internal/infra/db"
	"packsend-service/internal/pkg/pgconv"
	"packsend-service/internal/pkg/ptr"
	"packsend-service/internal/usecase/shared"
)

type ShipmentRepository struct{}

func NewShipmentRepository() *ShipmentRepository {
	return &ShipmentRepository{}
}

func (r *ShipmentRepository) Create(ctx context.Context, tx db.DBTX, rec shared.ShipmentRecord) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO shipments (
			transfer_id, mode, delivery_mode, status, carrier_label, carrier_lane,
			dispatched_at, contact_name, contact_phone, scheduled_at, location,
			driver_name, vehicle, box_count, total_weight_kg, notes, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`,
		rec.TransferID,
		rec.Mode,
		rec.DeliveryMode,
		rec.Status,
		rec.CarrierLabel,
		rec.CarrierLane,
		pgconv.TimePtrToPgtype(rec.DispatchedAt),
		pgconv.StringPtrToPgtype(ptr.NonEmpty(rec.ContactName)),
		pgconv.StringPtrToPgtype(ptr.NonEmpty(rec.ContactPhone)),
		pgconv.TimePtrToPgtype(rec.ScheduledAt),
		pgconv.StringPtrToPgtype(ptr.NonEmpty(rec.Location)),
		pgconv.StringPtrToPgtype(ptr.NonEmpty(rec.DriverName)),
		pgconv.StringPtrToPgtype(ptr.NonEmpty(rec.Vehicle)),
		rec.BoxCount,
		rec.TotalWeightKg,
		pgconv.StringPtrToPgtype(ptr.NonEmpty(rec.Notes)),
		rec.CreatedBy,
		rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to create shipment", err)
	}
	return id, nil
}

type ParcelRepository struct{}

func NewParcelRepository() *ParcelRepository {
	return &ParcelRepository{}
}

const insertParcelSQL = `
INSERT INTO parcels (
    shipment_id, box_number, weight_kg, container_code,
    length_cm, width_cm, height_cm, tracking_number, estimated
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// CreateBatch inserts in box order. A repeated box number surfaces as
// KindDuplicateKey from the (shipment_id, box_number) index.
func (r *ParcelRepository) CreateBatch(ctx context.Context, tx db.DBTX, shipmentID int64, parcels []packsend.ParcelSpec) error {
	for _, p := range parcels {
		_, err := tx.Exec(ctx, insertParcelSQL,
			shipmentID,
			p.BoxNumber,
			p.WeightKg,
			pgconv.StringPtrToPgtype(ptr.NonEmpty(p.ContainerCode)),
			pgconv.Float64PtrToPgtype(p.LengthCm),
			pgconv.Float64PtrToPgtype(p.WidthCm),
			pgconv.Float64PtrToPgtype(p.HeightCm),
			pgconv.StringPtrToPgtype(ptr.NonEmpty(p.TrackingNumber)),
			p.Estimated,
		)
		if err != nil {
			return infra.WrapRepoErr("failed to create parcel", err)
		}
	}
	return nil
}
