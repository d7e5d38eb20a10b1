package packsend

import (
	"context"
	"math"
	"slices"
)

type ContainerCapacity struct {
	Code       string
	CapacityKg float64
	TareKg     float64
}

type CapacitySource interface {
	CapacitiesForLane(ctx context.Context, lane string) ([]ContainerCapacity, error)
}

type ParcelSpec struct {
	BoxNumber      int      `json:"box_number"`
	WeightKg       float64  `json:"weight_kg"`
	ContainerCode  string   `json:"container_code,omitempty"`
	LengthCm       *float64 `json:"length_cm,omitempty"`
	WidthCm        *float64 `json:"width_cm,omitempty"`
	HeightCm       *float64 `json:"height_cm,omitempty"`
	TrackingNumber string   `json:"tracking_number,omitempty"`
	Estimated      bool     `json:"estimated"`
}

type Estimator interface {
	Estimate(ctx context.Context, totalWeightKg float64, lane string, preferredBoxCount int) ([]ParcelSpec, error)
}

// ParcelPlanner estimates parcels from a total weight when no boxes were measured.
type ParcelPlanner struct {
	source CapacitySource
}

func NewParcelPlanner(source CapacitySource) *ParcelPlanner {
	return &ParcelPlanner{source: source}
}

// Estimate returns an empty slice when the lane has no usable container metadata
// or the weight would need more than MaxBoxCount containers. A pinned count that
// cannot give every box at least one gram fails with ErrBoxCountExceedsWeight.
func (p *ParcelPlanner) Estimate(ctx context.Context, totalWeightKg float64, lane string, preferredBoxCount int) ([]ParcelSpec, error) {
	if totalWeightKg <= 0 {
		return nil, nil
	}
	capacities, err := p.source.CapacitiesForLane(ctx, lane)
	if err != nil {
		return nil, err
	}
	if len(capacities) == 0 {
		return nil, nil
	}

	sorted := slices.Clone(capacities)
	slices.SortStableFunc(sorted, func(a, b ContainerCapacity) int {
		switch {
		case a.CapacityKg < b.CapacityKg:
			return -1
		case a.CapacityKg > b.CapacityKg:
			return 1
		default:
			return 0
		}
	})
	working := sorted[0]
	content := working.CapacityKg - working.TareKg
	if content <= 0 {
		return nil, nil
	}

	grams := weightGrams(totalWeightKg)
	if grams <= 0 {
		return nil, nil
	}
	count := preferredBoxCount
	if count <= 0 {
		needed := math.Ceil(totalWeightKg / content)
		if needed > MaxBoxCount {
			return nil, nil
		}
		count = int(needed)
	}
	if count > MaxBoxCount || int64(count) > grams {
		return nil, ErrBoxCountExceedsWeight
	}

	// Whole grams: every box gets the floor, the first boxes one extra gram each.
	each, extra := grams/int64(count), grams%int64(count)
	specs := make([]ParcelSpec, count)
	for i := range specs {
		g := each
		if int64(i) < extra {
			g++
		}
		specs[i] = ParcelSpec{
			BoxNumber:     i + 1,
			WeightKg:      float64(g) / 1000,
			ContainerCode: working.Code,
			Estimated:     true,
		}
	}
	return specs, nil
}
