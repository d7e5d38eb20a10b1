//go:build unit

package packsend_test

import (
	"context"
	"testing"
	"time"

	"packsend-service/internal/domain/packsend"
	"packsend-service/internal/pkg/ptr"
	"packsend-service/tests/common/builder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEstimator struct {
	specs []packsend.ParcelSpec
	lanes []string
}

func (f *fixedEstimator) Estimate(_ context.Context, _ float64, lane string, _ int) ([]packsend.ParcelSpec, error) {
	f.lanes = append(f.lanes, lane)
	return f.specs, nil
}

func TestHandlerRegistry(t *testing.T) {
	registry := packsend.NewHandlerRegistry()

	t.Run("every mode has a handler", func(t *testing.T) {
		for _, mode := range packsend.Modes() {
			h, err := registry.Lookup(mode)
			require.NoError(t, err, mode)
			assert.NotEmpty(t, h.Name())
		}
		assert.Len(t, registry, 7)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := registry.Lookup(packsend.Mode("TELEPORT"))
		assert.ErrorIs(t, err, packsend.ErrUnknownMode)
	})
}

func TestModeHandlers_Plan(t *testing.T) {
	registry := packsend.NewHandlerRegistry()
	ctx := context.Background()

	tests := []struct {
		name           string
		builder        *builder.PackSendBuilder
		expectHandler  string
		expectDelivery string
		expectLane     string
		expectDispatch bool
	}{
		{
			name:           "nz couriers",
			builder:        builder.NewPackSendBuilder(),
			expectHandler:  "courier_manual_nzc",
			expectDelivery: "courier",
			expectLane:     "nzc",
			expectDispatch: true,
		},
		{
			name:           "nz post",
			builder:        builder.NewPackSendBuilder().WithMode(packsend.ModeCourierManualNZP),
			expectHandler:  "courier_manual_nzp",
			expectDelivery: "courier",
			expectLane:     "nzp",
			expectDispatch: true,
		},
		{
			name:           "pickup",
			builder:        builder.NewPackSendBuilder().WithPickup(),
			expectHandler:  "pickup",
			expectDelivery: "pickup",
			expectLane:     "manual",
			expectDispatch: true,
		},
		{
			name:           "internal drive",
			builder:        builder.NewPackSendBuilder().WithInternal(),
			expectHandler:  "internal_drive",
			expectDelivery: "internal_drive",
			expectLane:     "manual",
			expectDispatch: true,
		},
		{
			name:           "depot drop",
			builder:        builder.NewPackSendBuilder().WithDepot(),
			expectHandler:  "depot_drop",
			expectDelivery: "depot_drop",
			expectLane:     "manual",
			expectDispatch: true,
		},
		{
			name: "packed not sent",
			builder: builder.NewPackSendBuilder().WithMode(packsend.ModePackedNotSent).With(func(b *builder.PackSendBuilder) {
				b.DispatchNow = false
			}),
			expectHandler:  "packed_not_sent",
			expectDelivery: "packed_only",
			expectLane:     "none",
		},
		{
			name:           "receive only never dispatches",
			builder:        builder.NewPackSendBuilder().WithMode(packsend.ModeReceiveOnly),
			expectHandler:  "receive_only",
			expectDelivery: "receive_only",
			expectLane:     "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, v := tt.builder.BuildCommand()
			require.True(t, v.OK(), "%+v", v.Errors)

			h, err := registry.Lookup(cmd.Mode)
			require.NoError(t, err)
			plan, err := h.Plan(ctx, *cmd, v, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.expectHandler, plan.Handler)
			assert.Equal(t, tt.expectDelivery, plan.DeliveryMode)
			assert.Equal(t, tt.expectLane, plan.CarrierLane)
			assert.Equal(t, tt.expectDispatch, plan.ShouldDispatch)
			assert.Equal(t, 2, plan.BoxCount)
			assert.Equal(t, 8.3, plan.TotalWeightKg)
		})
	}

	t.Run("mode details are carried into the plan", func(t *testing.T) {
		cmd, v := builder.NewPackSendBuilder().WithInternal().BuildCommand()
		h, _ := registry.Lookup(cmd.Mode)
		plan, err := h.Plan(ctx, *cmd, v, nil)
		require.NoError(t, err)

		assert.Equal(t, "Tane", plan.DriverName)
		assert.Equal(t, "Van 3", plan.Vehicle)
		require.NotNil(t, plan.ScheduledAt)
		assert.Equal(t, time.Date(2026, 3, 2, 16, 30, 0, 0, time.UTC), *plan.ScheduledAt)
	})

	t.Run("unnumbered boxes take the lowest free numbers", func(t *testing.T) {
		cmd, v := builder.NewPackSendBuilder().WithParcels(
			packsend.ParcelInput{WeightKg: 1},
			packsend.ParcelInput{BoxNumber: ptr.To(1), WeightKg: 2},
			packsend.ParcelInput{WeightKg: 3},
			packsend.ParcelInput{BoxNumber: ptr.To(3), WeightKg: 4},
		).BuildCommand()
		h, _ := registry.Lookup(cmd.Mode)
		plan, err := h.Plan(ctx, *cmd, v, nil)
		require.NoError(t, err)

		numbers := make([]int, len(plan.Parcels))
		for i, p := range plan.Parcels {
			numbers[i] = p.BoxNumber
		}
		assert.Equal(t, []int{2, 1, 4, 3}, numbers)
		assert.NoError(t, packsend.CheckUniqueBoxNumbers(plan.Parcels))
	})

	t.Run("totals only falls back to the estimator", func(t *testing.T) {
		estimator := &fixedEstimator{specs: []packsend.ParcelSpec{
			{BoxNumber: 1, WeightKg: 6, Estimated: true},
			{BoxNumber: 2, WeightKg: 6, Estimated: true},
		}}
		cmd, v := builder.NewPackSendBuilder().WithParcels().WithTotals(12, 0).BuildCommand()
		h, _ := registry.Lookup(cmd.Mode)
		plan, err := h.Plan(ctx, *cmd, v, estimator)
		require.NoError(t, err)

		assert.Equal(t, []string{"nzc"}, estimator.lanes)
		assert.Equal(t, 2, plan.BoxCount)
		assert.Equal(t, 12.0, plan.TotalWeightKg)
		assert.Empty(t, plan.Warnings)
	})

	t.Run("empty estimate warns", func(t *testing.T) {
		cmd, v := builder.NewPackSendBuilder().WithParcels().WithTotals(12, 0).BuildCommand()
		h, _ := registry.Lookup(cmd.Mode)
		plan, err := h.Plan(ctx, *cmd, v, &fixedEstimator{})
		require.NoError(t, err)

		assert.Empty(t, plan.Parcels)
		assert.Equal(t, 12.0, plan.TotalWeightKg)
		assert.Contains(t, plan.Warnings, "cannot auto-plan parcels for lane nzc")
		assert.Contains(t, plan.Warnings, "no parcels recorded for this shipment")
	})

	t.Run("receive only does not auto-plan", func(t *testing.T) {
		estimator := &fixedEstimator{}
		cmd, v := builder.NewPackSendBuilder().WithMode(packsend.ModeReceiveOnly).WithParcels().WithTotals(12, 0).BuildCommand()
		h, _ := registry.Lookup(cmd.Mode)
		plan, err := h.Plan(ctx, *cmd, v, estimator)
		require.NoError(t, err)

		assert.Empty(t, estimator.lanes)
		assert.Empty(t, plan.Warnings)
		assert.False(t, plan.ShouldDispatch)
	})
}

func TestFailedPlan(t *testing.T) {
	plan := packsend.FailedPlan(packsend.ModePickup)

	assert.Equal(t, packsend.FailureLane, plan.CarrierLane)
	assert.Equal(t, "none", plan.Handler)
	assert.False(t, plan.ShouldDispatch)
	assert.NotNil(t, plan.Parcels)
}

func TestMode_Sends(t *testing.T) {
	sending := map[packsend.Mode]bool{
		packsend.ModeCourierManualNZC: true,
		packsend.ModeCourierManualNZP: true,
		packsend.ModePickup:           true,
		packsend.ModeInternalDrive:    true,
		packsend.ModeDepotDrop:        true,
		packsend.ModePackedNotSent:    false,
		packsend.ModeReceiveOnly:      false,
	}
	for _, m := range packsend.Modes() {
		assert.Equal(t, sending[m], m.Sends(), "mode %s", m)
	}
}
