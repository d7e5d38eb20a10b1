package packsend

import (
	"context"
	"time"
)

const FailureLane = "failure"

// Plan is the in-memory outcome of a mode handler, consumed by the commit step.
type Plan struct {
	Mode           Mode         `json:"mode"`
	Handler        string       `json:"handler"`
	DeliveryMode   string       `json:"delivery_mode"`
	CarrierLabel   string       `json:"carrier_label"`
	CarrierLane    string       `json:"carrier_lane"`
	ShouldDispatch bool         `json:"should_dispatch"`
	Parcels        []ParcelSpec `json:"parcels"`
	TotalWeightKg  float64      `json:"total_weight_kg"`
	BoxCount       int          `json:"box_count"`
	ContactName    string       `json:"contact_name,omitempty"`
	ContactPhone   string       `json:"contact_phone,omitempty"`
	ScheduledAt    *time.Time   `json:"scheduled_at,omitempty"`
	Location       string       `json:"location,omitempty"`
	DriverName     string       `json:"driver_name,omitempty"`
	Vehicle        string       `json:"vehicle,omitempty"`
	Warnings       []string     `json:"warnings"`
}

// FailedPlan describes a run that never produced a usable plan.
func FailedPlan(mode Mode) Plan {
	return Plan{
		Mode:           mode,
		Handler:        "none",
		DeliveryMode:   "none",
		CarrierLane:    FailureLane,
		ShouldDispatch: false,
		Parcels:        []ParcelSpec{},
		Warnings:       []string{},
	}
}

type ModeHandler interface {
	Name() string
	Plan(ctx context.Context, cmd Command, validation Validation, estimator Estimator) (Plan, error)
}

// HandlerRegistry binds each closed-enum mode to its strategy.
type HandlerRegistry map[Mode]ModeHandler

func NewHandlerRegistry() HandlerRegistry {
	registry := make(HandlerRegistry, len(modeProfiles))
	for mode, profile := range modeProfiles {
		registry[mode] = &profileHandler{profile: profile}
	}
	return registry
}

func (r HandlerRegistry) Lookup(mode Mode) (ModeHandler, error) {
	h, ok := r[mode]
	if !ok {
		return nil, ErrUnknownMode
	}
	return h, nil
}
