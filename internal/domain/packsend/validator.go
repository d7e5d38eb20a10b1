package packsend

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxIdempotencyKeyLength = 128
	// MaxBoxCount bounds parcels per shipment, declared or estimated.
	MaxBoxCount = 999
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Validation struct {
	Errors   []FieldError
	Warnings []string
}

func (v Validation) OK() bool { return len(v.Errors) == 0 }

func (v *Validation) fail(field, format string, args ...any) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *Validation) warn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

// Validate turns raw input into a Command. It never touches storage.
// The returned command is nil whenever the validation has errors.
func Validate(req Request, actorID string) (*Command, Validation) {
	var v Validation

	if req.TransferID <= 0 {
		v.fail("transfer_id", "must be a positive integer")
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		v.fail("actor_id", "required")
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	switch {
	case key == "":
		v.fail("idempotency_key", "required")
	case len(key) > MaxIdempotencyKeyLength:
		v.fail("idempotency_key", "must be at most %d characters", MaxIdempotencyKeyLength)
	}

	from := parseOutlet(&v, "from_outlet_id", req.FromOutletID)
	to := parseOutlet(&v, "to_outlet_id", req.ToOutletID)

	mode, known := ParseMode(req.Mode)
	if !known {
		v.fail("mode", "must be one of %s", joinModes())
	}
	if mode == ModePackedNotSent && req.DispatchNow {
		v.fail("dispatch_now", "%s cannot request immediate dispatch", ModePackedNotSent)
	}

	cmd := Command{
		TransferID:     req.TransferID,
		ActorID:        actorID,
		IdempotencyKey: key,
		FromOutletID:   from,
		ToOutletID:     to,
		Mode:           mode,
		DispatchNow:    req.DispatchNow,
		Parcels:        validateParcels(&v, req.Parcels),
		Totals:         validateTotals(&v, req.Totals),
		Notes:          strings.TrimSpace(req.Notes),
		BodyHash:       req.ContentHash(),
	}

	switch mode {
	case ModePickup:
		cmd.Pickup = validatePickup(&v, req.Pickup)
	case ModeInternalDrive:
		cmd.Internal = validateInternal(&v, req.Internal)
	case ModeDepotDrop:
		cmd.Depot = validateDepot(&v, req.Depot)
	}

	checkPinnedBoxCount(&v, cmd)

	if !v.OK() {
		return nil, v
	}
	return &cmd, v
}

// checkPinnedBoxCount rejects a box count the planner could not fill with at
// least one gram per box. Explicit parcels are never estimated, so they skip it.
func checkPinnedBoxCount(v *Validation, cmd Command) {
	if len(cmd.Parcels) > 0 || cmd.Totals.WeightKg <= 0 {
		return
	}
	count := cmd.PreferredBoxCount()
	if count <= 0 || int64(count) <= weightGrams(cmd.Totals.WeightKg) {
		return
	}
	field := "totals.box_count"
	if cmd.Totals.BoxCount <= 0 {
		field = cmd.Mode.payloadField() + ".box_count"
	}
	v.fail(field, "must not exceed the total weight in grams")
}

func parseOutlet(v *Validation, field, raw string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		v.fail(field, "must be a well-formed outlet id")
		return uuid.Nil
	}
	return id
}

func validateParcels(v *Validation, in []ParcelInput) []Parcel {
	if len(in) == 0 {
		return nil
	}
	if len(in) > MaxBoxCount {
		v.fail("parcels", "must list at most %d parcels", MaxBoxCount)
	}
	out := make([]Parcel, 0, len(in))
	for i, p := range in {
		prefix := fmt.Sprintf("parcels[%d]", i)
		if p.WeightKg <= 0 {
			v.fail(prefix+".weight_kg", "must be greater than zero")
		}
		boxNumber := 0
		if p.BoxNumber != nil {
			if *p.BoxNumber <= 0 {
				v.fail(prefix+".box_number", "must be a positive integer")
			}
			boxNumber = *p.BoxNumber
		}
		checkDimension(v, prefix+".length_cm", p.LengthCm)
		checkDimension(v, prefix+".width_cm", p.WidthCm)
		checkDimension(v, prefix+".height_cm", p.HeightCm)

		out = append(out, Parcel{
			BoxNumber:      boxNumber,
			WeightKg:       p.WeightKg,
			LengthCm:       p.LengthCm,
			WidthCm:        p.WidthCm,
			HeightCm:       p.HeightCm,
			TrackingNumber: strings.TrimSpace(p.TrackingNumber),
		})
	}
	return out
}

func checkDimension(v *Validation, field string, value *float64) {
	if value != nil && *value < 0 {
		v.fail(field, "must not be negative")
	}
}

func validateTotals(v *Validation, in *TotalsInput) Totals {
	var t Totals
	if in == nil {
		return t
	}
	if in.WeightKg != nil {
		if *in.WeightKg < 0 {
			v.fail("totals.weight_kg", "must not be negative")
		}
		t.WeightKg = *in.WeightKg
	}
	if in.BoxCount != nil {
		switch {
		case *in.BoxCount < 0:
			v.fail("totals.box_count", "must not be negative")
		case *in.BoxCount > MaxBoxCount:
			v.fail("totals.box_count", "must be at most %d", MaxBoxCount)
		}
		t.BoxCount = *in.BoxCount
	}
	return t
}

func validatePickup(v *Validation, in *PickupInput) *PickupDetails {
	if in == nil {
		v.fail("pickup", "required for %s", ModePickup)
		return nil
	}
	d := &PickupDetails{
		ContactName:  strings.TrimSpace(in.ContactName),
		ContactPhone: strings.TrimSpace(in.ContactPhone),
		PickupAt:     requireTime(v, "pickup.pickup_at", in.PickupAt),
		BoxCount:     checkBoxCount(v, "pickup.box_count", in.BoxCount),
	}
	if d.ContactName == "" {
		v.fail("pickup.contact_name", "required")
	}
	if d.ContactPhone == "" {
		v.fail("pickup.contact_phone", "required")
	}
	return d
}

func validateInternal(v *Validation, in *InternalInput) *InternalDetails {
	if in == nil {
		v.fail("internal", "required for %s", ModeInternalDrive)
		return nil
	}
	d := &InternalDetails{
		DriverName:  strings.TrimSpace(in.DriverName),
		Vehicle:     strings.TrimSpace(in.Vehicle),
		DepartureAt: requireTime(v, "internal.departure_at", in.DepartureAt),
		BoxCount:    checkBoxCount(v, "internal.box_count", in.BoxCount),
	}
	if d.DriverName == "" {
		v.fail("internal.driver_name", "required")
	}
	return d
}

func validateDepot(v *Validation, in *DepotInput) *DepotDetails {
	if in == nil {
		v.fail("depot", "required for %s", ModeDepotDrop)
		return nil
	}
	d := &DepotDetails{
		Location: strings.TrimSpace(in.Location),
		DropAt:   requireTime(v, "depot.drop_at", in.DropAt),
		BoxCount: checkBoxCount(v, "depot.box_count", in.BoxCount),
	}
	if d.Location == "" {
		v.fail("depot.location", "required")
	}
	return d
}

func requireTime(v *Validation, field, raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		v.fail(field, "required")
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		v.fail(field, "must be an RFC3339 timestamp")
		return time.Time{}
	}
	return t.UTC()
}

// A missing box count degrades to a warning; a bad one is an error.
func checkBoxCount(v *Validation, field string, n *int) *int {
	if n == nil {
		v.warn("%s not provided", field)
		return nil
	}
	if *n <= 0 {
		v.fail(field, "must be a positive integer")
		return nil
	}
	if *n > MaxBoxCount {
		v.fail(field, "must be at most %d", MaxBoxCount)
		return nil
	}
	count := *n
	return &count
}

func joinModes() string {
	names := make([]string, len(knownModes))
	for i, m := range knownModes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
