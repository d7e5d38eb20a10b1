package packsend

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Command is the validated, immutable form of a Request.
type Command struct {
	TransferID     int64
	ActorID        string
	IdempotencyKey string
	FromOutletID   uuid.UUID
	ToOutletID     uuid.UUID
	Mode           Mode
	DispatchNow    bool
	Parcels        []Parcel
	Totals         Totals
	Pickup         *PickupDetails
	Internal       *InternalDetails
	Depot          *DepotDetails
	Notes          string
	BodyHash       string
}

// BoxNumber zero means "assign the next free number".
type Parcel struct {
	BoxNumber      int
	WeightKg       float64
	LengthCm       *float64
	WidthCm        *float64
	HeightCm       *float64
	TrackingNumber string
}

// BoxCount zero means the caller did not state one.
type Totals struct {
	WeightKg float64
	BoxCount int
}

type PickupDetails struct {
	ContactName  string
	ContactPhone string
	PickupAt     time.Time
	BoxCount     *int
}

type InternalDetails struct {
	DriverName  string
	Vehicle     string
	DepartureAt time.Time
	BoxCount    *int
}

type DepotDetails struct {
	Location string
	DropAt   time.Time
	BoxCount *int
}

// TotalWeightKg prefers measured parcel weights over the declared total.
func (c Command) TotalWeightKg() float64 {
	if len(c.Parcels) == 0 {
		return RoundWeight(c.Totals.WeightKg)
	}
	var sum float64
	for _, p := range c.Parcels {
		sum += p.WeightKg
	}
	return RoundWeight(sum)
}

// PreferredBoxCount is the box count pinned by totals or the mode payload, or zero.
func (c Command) PreferredBoxCount() int {
	if c.Totals.BoxCount > 0 {
		return c.Totals.BoxCount
	}
	if n := c.modeBoxCount(); n != nil {
		return *n
	}
	return 0
}

func (c Command) modeBoxCount() *int {
	switch {
	case c.Pickup != nil:
		return c.Pickup.BoxCount
	case c.Internal != nil:
		return c.Internal.BoxCount
	case c.Depot != nil:
		return c.Depot.BoxCount
	default:
		return nil
	}
}

// weightGrams converts kilograms to whole grams.
func weightGrams(kg float64) int64 {
	return int64(math.Round(kg * 1000))
}

// RoundWeight rounds kilograms to grams.
func RoundWeight(kg float64) float64 {
	return math.Round(kg*1000) / 1000
}
