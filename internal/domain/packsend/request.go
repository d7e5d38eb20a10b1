package packsend

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Request is the untrusted pack/send input as received from the caller.
type Request struct {
	TransferID     int64          `json:"transfer_id"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	FromOutletID   string         `json:"from_outlet_id"`
	ToOutletID     string         `json:"to_outlet_id"`
	Mode           string         `json:"mode"`
	DispatchNow    bool           `json:"dispatch_now"`
	Parcels        []ParcelInput  `json:"parcels,omitempty"`
	Totals         *TotalsInput   `json:"totals,omitempty"`
	Pickup         *PickupInput   `json:"pickup,omitempty"`
	Internal       *InternalInput `json:"internal,omitempty"`
	Depot          *DepotInput    `json:"depot,omitempty"`
	Notes          string         `json:"notes,omitempty"`
}

type ParcelInput struct {
	BoxNumber      *int     `json:"box_number,omitempty"`
	WeightKg       float64  `json:"weight_kg"`
	LengthCm       *float64 `json:"length_cm,omitempty"`
	WidthCm        *float64 `json:"width_cm,omitempty"`
	HeightCm       *float64 `json:"height_cm,omitempty"`
	TrackingNumber string   `json:"tracking_number,omitempty"`
}

type TotalsInput struct {
	WeightKg *float64 `json:"weight_kg,omitempty"`
	BoxCount *int     `json:"box_count,omitempty"`
}

type PickupInput struct {
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	PickupAt     string `json:"pickup_at"`
	BoxCount     *int   `json:"box_count,omitempty"`
}

type InternalInput struct {
	DriverName  string `json:"driver_name"`
	Vehicle     string `json:"vehicle,omitempty"`
	DepartureAt string `json:"departure_at"`
	BoxCount    *int   `json:"box_count,omitempty"`
}

type DepotInput struct {
	Location string `json:"location"`
	DropAt   string `json:"drop_at"`
	BoxCount *int   `json:"box_count,omitempty"`
}

// ContentHash fingerprints the request body for replay detection.
// The idempotency key is excluded so header and body keys hash the same.
func (r Request) ContentHash() string {
	canonical := r
	canonical.IdempotencyKey = ""
	data, _ := json.Marshal(canonical)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
