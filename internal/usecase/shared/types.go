package shared

import (
	"time"

	"github.com/google/uuid"
)

const (
	ShipmentStatusInTransit = "in_transit"
	ShipmentStatusPacked    = "packed"

	TransferStateSent   = "SENT"
	TransferStatePacked = "PACKED"

	LifecyclePacked = "packed"
	LifecycleSent   = "sent"
)

type ShipmentRecord struct {
	TransferID    int64
	Mode          string
	DeliveryMode  string
	Status        string
	CarrierLabel  string
	CarrierLane   string
	DispatchedAt  *time.Time
	ContactName   string
	ContactPhone  string
	ScheduledAt   *time.Time
	Location      string
	DriverName    string
	Vehicle       string
	BoxCount      int
	TotalWeightKg float64
	Notes         string
	CreatedBy     string
	CreatedAt     time.Time
}

type TransferSummary struct {
	TransferID    int64
	State         string
	BoxCount      int
	TotalWeightKg float64
	UpdatedBy     string
	UpdatedAt     time.Time
}

type CarrierOrderRecord struct {
	TransferID   int64
	ShipmentID   int64
	OrderNumber  string
	CarrierLabel string
	Payload      []byte
	UpdatedAt    time.Time
}

type LifecycleEvent struct {
	TransferID int64
	ShipmentID int64
	Event      string
	ActorID    string
	OccurredAt time.Time
}

type AuditRecord struct {
	RequestID      uuid.UUID
	TransferID     int64
	ActorID        string
	IdempotencyKey string
	OK             bool
	ErrorCode      string
	GuardianTier   string
	Handler        string
	RequestJSON    []byte
	PlanJSON       []byte
	Warnings       []string
	MirrorOutcome  string
	DurationMs     int64
	CreatedAt      time.Time
}

// IdempotencyRecord stores the full response envelope for replay.
type IdempotencyRecord struct {
	CacheKey string
	BodyHash string
	Envelope []byte
	StoredAt time.Time
}

// MirrorResult is the downstream system's answer to a consignment upsert.
type MirrorResult struct {
	OK        bool
	Reference string
	Message   string
}
