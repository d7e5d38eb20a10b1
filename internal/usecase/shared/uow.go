package shared

import (
	"context"
	"time"

	"packsend-service/internal/domain/lease"
	"packsend-service/internal/domain/packsend"
	"packsend-service/internal/infra/db"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithinReadOnly: Read-only transaction for multi-table consistent reads
	WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: Single statements on the pool using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	Leases() LeaseRepository
	Takeovers() TakeoverRepository
	Shipments() ShipmentRepository
	Parcels() ParcelRepository
	Transfers() TransferRepository
	CarrierOrders() CarrierOrderRepository
	LifecycleLogs() LifecycleLogRepository
	Audits() AuditRepository
	Idempotency() IdempotencyRepository
	DB() db.DBTX
}

type LeaseRepository interface {
	// TryAcquire returns the stored lease, or false when a different holder owns a live one.
	TryAcquire(ctx context.Context, tx db.DBTX, l *lease.Lease) (*lease.Lease, bool, error)
	Get(ctx context.Context, tx db.DBTX, transferID int64) (*lease.Lease, error)
	GetForUpdate(ctx context.Context, tx db.DBTX, transferID int64) (*lease.Lease, error)
	Save(ctx context.Context, tx db.DBTX, l *lease.Lease) error
	Delete(ctx context.Context, tx db.DBTX, transferID int64, holderID string) (bool, error)
	DeleteExpired(ctx context.Context, tx db.DBTX, now time.Time) (int64, error)
}

type TakeoverRepository interface {
	Create(ctx context.Context, tx db.DBTX, req *lease.TakeoverRequest) (int64, error)
	GetForUpdate(ctx context.Context, tx db.DBTX, id int64) (*lease.TakeoverRequest, error)
	PendingForTransfer(ctx context.Context, tx db.DBTX, transferID int64) (*lease.TakeoverRequest, error)
	ListOverdue(ctx context.Context, tx db.DBTX, now time.Time, limit int) ([]*lease.TakeoverRequest, error)
	UpdateStatus(ctx context.Context, tx db.DBTX, req *lease.TakeoverRequest) error
}

type ShipmentRepository interface {
	Create(ctx context.Context, tx db.DBTX, rec ShipmentRecord) (int64, error)
}

type ParcelRepository interface {
	CreateBatch(ctx context.Context, tx db.DBTX, shipmentID int64, parcels []packsend.ParcelSpec) error
}

type TransferRepository interface {
	UpdateSummary(ctx context.Context, tx db.DBTX, summary TransferSummary) error
}

type CarrierOrderRepository interface {
	Upsert(ctx context.Context, tx db.DBTX, rec CarrierOrderRecord) error
}

type LifecycleLogRepository interface {
	Append(ctx context.Context, tx db.DBTX, ev LifecycleEvent) error
}

type AuditRepository interface {
	Insert(ctx context.Context, tx db.DBTX, rec AuditRecord) error
}

type IdempotencyRepository interface {
	Get(ctx context.Context, tx db.DBTX, cacheKey string) (*IdempotencyRecord, error)
	Put(ctx context.Context, tx db.DBTX, rec IdempotencyRecord) (*IdempotencyRecord, error)
	PurgeBefore(ctx context.Context, tx db.DBTX, cutoff time.Time) (int64, error)
}
