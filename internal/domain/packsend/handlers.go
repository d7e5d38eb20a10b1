package packsend

import (
	"context"
	"slices"
	"time"
)

type modeProfile struct {
	name         string
	deliveryMode string
	carrierLabel string
	lane         string
	autoPlan     bool
	details      func(cmd Command, plan *Plan)
}

var modeProfiles = map[Mode]modeProfile{
	ModeCourierManualNZC: {
		name:         "courier_manual_nzc",
		deliveryMode: "courier",
		carrierLabel: "NZ Couriers",
		lane:         "nzc",
		autoPlan:     true,
	},
	ModeCourierManualNZP: {
		name:         "courier_manual_nzp",
		deliveryMode: "courier",
		carrierLabel: "NZ Post",
		lane:         "nzp",
		autoPlan:     true,
	},
	ModePickup: {
		name:         "pickup",
		deliveryMode: "pickup",
		carrierLabel: "Customer pickup",
		lane:         "manual",
		autoPlan:     true,
		details: func(cmd Command, plan *Plan) {
			if cmd.Pickup == nil {
				return
			}
			plan.ContactName = cmd.Pickup.ContactName
			plan.ContactPhone = cmd.Pickup.ContactPhone
			plan.ScheduledAt = timePtr(cmd.Pickup.PickupAt)
		},
	},
	ModeInternalDrive: {
		name:         "internal_drive",
		deliveryMode: "internal_drive",
		carrierLabel: "Internal drive",
		lane:         "manual",
		autoPlan:     true,
		details: func(cmd Command, plan *Plan) {
			if cmd.Internal == nil {
				return
			}
			plan.DriverName = cmd.Internal.DriverName
			plan.Vehicle = cmd.Internal.Vehicle
			plan.ScheduledAt = timePtr(cmd.Internal.DepartureAt)
		},
	},
	ModeDepotDrop: {
		name:         "depot_drop",
		deliveryMode: "depot_drop",
		carrierLabel: "Depot drop",
		lane:         "manual",
		autoPlan:     true,
		details: func(cmd Command, plan *Plan) {
			if cmd.Depot == nil {
				return
			}
			plan.Location = cmd.Depot.Location
			plan.ScheduledAt = timePtr(cmd.Depot.DropAt)
		},
	},
	ModePackedNotSent: {
		name:         "packed_not_sent",
		deliveryMode: "packed_only",
		carrierLabel: "Not sent",
		lane:         "none",
	},
	ModeReceiveOnly: {
		name:         "receive_only",
		deliveryMode: "receive_only",
		carrierLabel: "Receive only",
		lane:         "none",
	},
}

type profileHandler struct {
	profile modeProfile
}

func (h *profileHandler) Name() string { return h.profile.name }

func (h *profileHandler) Plan(ctx context.Context, cmd Command, validation Validation, estimator Estimator) (Plan, error) {
	p := h.profile
	plan := Plan{
		Mode:           cmd.Mode,
		Handler:        p.name,
		DeliveryMode:   p.deliveryMode,
		CarrierLabel:   p.carrierLabel,
		CarrierLane:    p.lane,
		ShouldDispatch: cmd.Mode.Sends() && cmd.DispatchNow,
		Warnings:       slices.Clone(validation.Warnings),
	}
	if plan.Warnings == nil {
		plan.Warnings = []string{}
	}

	switch {
	case len(cmd.Parcels) > 0:
		plan.Parcels = explicitParcels(cmd.Parcels)
	case p.autoPlan && cmd.TotalWeightKg() > 0 && estimator != nil:
		specs, err := estimator.Estimate(ctx, cmd.TotalWeightKg(), p.lane, cmd.PreferredBoxCount())
		if err != nil {
			return Plan{}, err
		}
		if len(specs) == 0 {
			plan.Warnings = append(plan.Warnings, "cannot auto-plan parcels for lane "+p.lane)
		}
		plan.Parcels = specs
	}
	if plan.Parcels == nil {
		plan.Parcels = []ParcelSpec{}
	}
	if len(plan.Parcels) == 0 && cmd.Mode != ModeReceiveOnly {
		plan.Warnings = append(plan.Warnings, "no parcels recorded for this shipment")
	}

	plan.TotalWeightKg = sumParcels(plan.Parcels, cmd.TotalWeightKg())
	plan.BoxCount = len(plan.Parcels)
	if plan.BoxCount == 0 {
		plan.BoxCount = cmd.PreferredBoxCount()
	}

	if p.details != nil {
		p.details(cmd, &plan)
	}
	return plan, nil
}

// explicitParcels fills unnumbered boxes with the lowest unused numbers.
func explicitParcels(in []Parcel) []ParcelSpec {
	used := make(map[int]struct{}, len(in))
	for _, p := range in {
		if p.BoxNumber > 0 {
			used[p.BoxNumber] = struct{}{}
		}
	}

	next := 1
	out := make([]ParcelSpec, len(in))
	for i, p := range in {
		number := p.BoxNumber
		if number == 0 {
			for {
				if _, taken := used[next]; !taken {
					break
				}
				next++
			}
			number = next
			used[number] = struct{}{}
		}
		out[i] = ParcelSpec{
			BoxNumber:      number,
			WeightKg:       RoundWeight(p.WeightKg),
			LengthCm:       p.LengthCm,
			WidthCm:        p.WidthCm,
			HeightCm:       p.HeightCm,
			TrackingNumber: p.TrackingNumber,
		}
	}
	return out
}

func sumParcels(parcels []ParcelSpec, fallback float64) float64 {
	if len(parcels) == 0 {
		return RoundWeight(fallback)
	}
	var sum float64
	for _, p := range parcels {
		sum += p.WeightKg
	}
	return RoundWeight(sum)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
