//go:build unit || e2e

package builder

import (
	"packsend-service/internal/domain/packsend"
	"packsend-service/internal/pkg/ptr"
)

const (
	DefaultFromOutlet = "0a6f6e3c-9d1e-4f57-8a0b-2d7c1e5b9f01"
	DefaultToOutlet   = "5b2c7d4e-1f3a-4b6c-9d8e-7f0a1b2c3d4e"
	DefaultActor      = "staff-a"
)

type PackSendBuilder struct {
	TransferID     int64
	IdempotencyKey string
	FromOutletID   string
	ToOutletID     string
	Mode           packsend.Mode
	DispatchNow    bool
	Parcels        []packsend.ParcelInput
	Totals         *packsend.TotalsInput
	Pickup         *packsend.PickupInput
	Internal       *packsend.InternalInput
	Depot          *packsend.DepotInput
	Notes          string
}

// NewPackSendBuilder starts from a valid two-box courier request for transfer 42.
func NewPackSendBuilder() *PackSendBuilder {
	return &PackSendBuilder{
		TransferID:     42,
		IdempotencyKey: "k1",
		FromOutletID:   DefaultFromOutlet,
		ToOutletID:     DefaultToOutlet,
		Mode:           packsend.ModeCourierManualNZC,
		DispatchNow:    true,
		Parcels: []packsend.ParcelInput{
			{BoxNumber: ptr.To(1), WeightKg: 5.2},
			{BoxNumber: ptr.To(2), WeightKg: 3.1},
		},
	}
}

func (b *PackSendBuilder) With(mutate func(*PackSendBuilder)) *PackSendBuilder {
	mutate(b)
	return b
}

func (b *PackSendBuilder) WithMode(mode packsend.Mode) *PackSendBuilder {
	b.Mode = mode
	return b
}

func (b *PackSendBuilder) WithKey(key string) *PackSendBuilder {
	b.IdempotencyKey = key
	return b
}

func (b *PackSendBuilder) WithParcels(parcels ...packsend.ParcelInput) *PackSendBuilder {
	b.Parcels = parcels
	return b
}

func (b *PackSendBuilder) WithTotals(weightKg float64, boxCount int) *PackSendBuilder {
	t := &packsend.TotalsInput{WeightKg: ptr.To(weightKg)}
	if boxCount > 0 {
		t.BoxCount = ptr.To(boxCount)
	}
	b.Totals = t
	return b
}

func (b *PackSendBuilder) WithPickup() *PackSendBuilder {
	b.Mode = packsend.ModePickup
	b.Pickup = &packsend.PickupInput{
		ContactName:  "Aroha Smith",
		ContactPhone: "021 555 0101",
		PickupAt:     "2026-03-02T15:00:00Z",
		BoxCount:     ptr.To(2),
	}
	return b
}

func (b *PackSendBuilder) WithInternal() *PackSendBuilder {
	b.Mode = packsend.ModeInternalDrive
	b.Internal = &packsend.InternalInput{
		DriverName:  "Tane",
		Vehicle:     "Van 3",
		DepartureAt: "2026-03-02T16:30:00Z",
		BoxCount:    ptr.To(2),
	}
	return b
}

func (b *PackSendBuilder) WithDepot() *PackSendBuilder {
	b.Mode = packsend.ModeDepotDrop
	b.Depot = &packsend.DepotInput{
		Location: "Penrose depot",
		DropAt:   "2026-03-02T17:00:00Z",
		BoxCount: ptr.To(2),
	}
	return b
}

func (b *PackSendBuilder) Build() packsend.Request {
	parcels := make([]packsend.ParcelInput, len(b.Parcels))
	copy(parcels, b.Parcels)
	return packsend.Request{
		TransferID:     b.TransferID,
		IdempotencyKey: b.IdempotencyKey,
		FromOutletID:   b.FromOutletID,
		ToOutletID:     b.ToOutletID,
		Mode:           string(b.Mode),
		DispatchNow:    b.DispatchNow,
		Parcels:        parcels,
		Totals:         b.Totals,
		Pickup:         b.Pickup,
		Internal:       b.Internal,
		Depot:          b.Depot,
		Notes:          b.Notes,
	}
}

func (b *PackSendBuilder) BuildCommand() (*packsend.Command, packsend.Validation) {
	return packsend.Validate(b.Build(), DefaultActor)
}
