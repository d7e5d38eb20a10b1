//go:build unit

package packsend_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"packsend-service/internal/domain/packsend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCapacities struct {
	byLane map[string][]packsend.ContainerCapacity
	err    error
	calls  []string
}

func (s *stubCapacities) CapacitiesForLane(_ context.Context, lane string) ([]packsend.ContainerCapacity, error) {
	s.calls = append(s.calls, lane)
	if s.err != nil {
		return nil, s.err
	}
	return s.byLane[lane], nil
}

func TestParcelPlanner_Estimate(t *testing.T) {
	source := &stubCapacities{byLane: map[string][]packsend.ContainerCapacity{
		"nzc": {
			{Code: "NZC-L", CapacityKg: 30, TareKg: 1},
			{Code: "NZC-S", CapacityKg: 15, TareKg: 0.5},
		},
		"broken": {
			{Code: "BAD", CapacityKg: 1, TareKg: 2},
		},
	}}
	planner := packsend.NewParcelPlanner(source)
	ctx := context.Background()

	tests := []struct {
		name          string
		totalKg       float64
		lane          string
		preferred     int
		expectWeights []float64
		expectCode    string
	}{
		{
			name:          "smallest container decides the count",
			totalKg:       30,
			lane:          "nzc",
			expectWeights: []float64{10, 10, 10},
			expectCode:    "NZC-S",
		},
		{
			name:          "pinned count splits evenly",
			totalKg:       10,
			lane:          "nzc",
			preferred:     3,
			expectWeights: []float64{3.334, 3.333, 3.333},
			expectCode:    "NZC-S",
		},
		{
			name:          "single box under capacity",
			totalKg:       4.2,
			lane:          "nzc",
			expectWeights: []float64{4.2},
			expectCode:    "NZC-S",
		},
		{
			name:          "gram remainder goes to the first boxes",
			totalKg:       0.011,
			lane:          "nzc",
			preferred:     4,
			expectWeights: []float64{0.003, 0.003, 0.003, 0.002},
			expectCode:    "NZC-S",
		},
		{
			name:          "one gram per box",
			totalKg:       0.007,
			lane:          "nzc",
			preferred:     7,
			expectWeights: []float64{0.001, 0.001, 0.001, 0.001, 0.001, 0.001, 0.001},
			expectCode:    "NZC-S",
		},
		{name: "weight needs too many containers", totalKg: 1e9, lane: "nzc"},
		{name: "below one gram", totalKg: 0.0004, lane: "nzc"},
		{name: "unknown lane", totalKg: 10, lane: "manual"},
		{name: "tare heavier than capacity", totalKg: 10, lane: "broken"},
		{name: "zero weight", totalKg: 0, lane: "nzc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs, err := planner.Estimate(ctx, tt.totalKg, tt.lane, tt.preferred)
			require.NoError(t, err)

			if tt.expectWeights == nil {
				assert.Empty(t, specs)
				return
			}
			require.Len(t, specs, len(tt.expectWeights))
			for i, spec := range specs {
				assert.Equal(t, i+1, spec.BoxNumber)
				assert.Equal(t, tt.expectWeights[i], spec.WeightKg)
				assert.Equal(t, tt.expectCode, spec.ContainerCode)
				assert.True(t, spec.Estimated)
			}
		})
	}

	t.Run("pinned count heavier than the weight in grams", func(t *testing.T) {
		specs, err := planner.Estimate(ctx, 0.005, "nzc", 7)
		assert.ErrorIs(t, err, packsend.ErrBoxCountExceedsWeight)
		assert.Empty(t, specs)
	})

	t.Run("pinned count above the box limit", func(t *testing.T) {
		specs, err := planner.Estimate(ctx, 5000, "nzc", packsend.MaxBoxCount+1)
		assert.ErrorIs(t, err, packsend.ErrBoxCountExceedsWeight)
		assert.Empty(t, specs)
	})

	t.Run("split sums to the total and never drops below a gram", func(t *testing.T) {
		for _, tc := range []struct {
			totalKg float64
			count   int
		}{{0.005, 5}, {1, 999}, {10, 3}, {7.777, 13}, {400, 0}} {
			specs, err := planner.Estimate(ctx, tc.totalKg, "nzc", tc.count)
			require.NoError(t, err)
			require.NotEmpty(t, specs)

			var grams int64
			for _, spec := range specs {
				assert.GreaterOrEqual(t, spec.WeightKg, 0.001, "box %d of %v kg", spec.BoxNumber, tc.totalKg)
				grams += int64(math.Round(spec.WeightKg * 1000))
			}
			assert.Equal(t, int64(math.Round(tc.totalKg*1000)), grams)
		}
	})

	t.Run("source failure propagates", func(t *testing.T) {
		boom := errors.New("capacity lookup failed")
		failing := packsend.NewParcelPlanner(&stubCapacities{err: boom})

		_, err := failing.Estimate(ctx, 5, "nzc", 0)
		assert.ErrorIs(t, err, boom)
	})
}

func TestCheckUniqueBoxNumbers(t *testing.T) {
	assert.NoError(t, packsend.CheckUniqueBoxNumbers([]packsend.ParcelSpec{{BoxNumber: 1}, {BoxNumber: 2}}))
	assert.ErrorIs(t,
		packsend.CheckUniqueBoxNumbers([]packsend.ParcelSpec{{BoxNumber: 1}, {BoxNumber: 1}}),
		packsend.ErrDuplicateBoxNumber)
}
