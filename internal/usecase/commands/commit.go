package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"packsend-service/internal/domain/packsend"
	"packsend-service/internal/infra"
	"packsend-service/internal/pkg/errs"
	"packsend-service/internal/usecase/shared"
)

type commitResult struct {
	ShipmentID    int64
	Status        string
	BoxCount      int
	TotalWeightKg float64
	DispatchedAt  *time.Time
}

type carrierOrderPayload struct {
	Mode          packsend.Mode         `json:"mode"`
	Handler       string                `json:"handler"`
	CarrierLane   string                `json:"carrier_lane"`
	DeliveryMode  string                `json:"delivery_mode"`
	BoxCount      int                   `json:"box_count"`
	TotalWeightKg float64               `json:"total_weight_kg"`
	Parcels       []packsend.ParcelSpec `json:"parcels"`
	FromOutletID  string                `json:"from_outlet_id"`
	ToOutletID    string                `json:"to_outlet_id"`
}

// commit writes the shipment and every side record in one transaction.
// Any failure leaves no trace.
func (u *packSendUseCaseImpl) commit(ctx context.Context, cmd *packsend.Command, plan packsend.Plan) (*commitResult, error) {
	if err := packsend.CheckUniqueBoxNumbers(plan.Parcels); err != nil {
		return nil, err
	}

	now := u.clock.Now()
	res := &commitResult{
		Status:        shared.ShipmentStatusPacked,
		BoxCount:      plan.BoxCount,
		TotalWeightKg: packsend.RoundWeight(plan.TotalWeightKg),
	}
	transferState := shared.TransferStatePacked
	if plan.ShouldDispatch {
		res.Status = shared.ShipmentStatusInTransit
		res.DispatchedAt = &now
		transferState = shared.TransferStateSent
	}

	payload, err := json.Marshal(carrierOrderPayload{
		Mode:          plan.Mode,
		Handler:       plan.Handler,
		CarrierLane:   plan.CarrierLane,
		DeliveryMode:  plan.DeliveryMode,
		BoxCount:      res.BoxCount,
		TotalWeightKg: res.TotalWeightKg,
		Parcels:       plan.Parcels,
		FromOutletID:  cmd.FromOutletID.String(),
		ToOutletID:    cmd.ToOutletID.String(),
	})
	if err != nil {
		return nil, errs.Wrap(err, "marshal carrier order payload")
	}

	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if u.requireLease {
			if err := u.verifyLease(ctx, tx, cmd, now); err != nil {
				return err
			}
		}

		shipmentID, err := tx.Shipments().Create(ctx, tx.DB(), shared.ShipmentRecord{
			TransferID:    cmd.TransferID,
			Mode:          plan.Mode.String(),
			DeliveryMode:  plan.DeliveryMode,
			Status:        res.Status,
			CarrierLabel:  plan.CarrierLabel,
			CarrierLane:   plan.CarrierLane,
			DispatchedAt:  res.DispatchedAt,
			ContactName:   plan.ContactName,
			ContactPhone:  plan.ContactPhone,
			ScheduledAt:   plan.ScheduledAt,
			Location:      plan.Location,
			DriverName:    plan.DriverName,
			Vehicle:       plan.Vehicle,
			BoxCount:      res.BoxCount,
			TotalWeightKg: res.TotalWeightKg,
			Notes:         cmd.Notes,
			CreatedBy:     cmd.ActorID,
			CreatedAt:     now,
		})
		if err != nil {
			return errs.Wrap(err, "insert shipment")
		}

		if err := tx.Parcels().CreateBatch(ctx, tx.DB(), shipmentID, plan.Parcels); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return errs.Mark(err, packsend.ErrDuplicateBoxNumber)
			}
			return errs.Wrap(err, "insert parcels")
		}

		if err := tx.Transfers().UpdateSummary(ctx, tx.DB(), shared.TransferSummary{
			TransferID:    cmd.TransferID,
			State:         transferState,
			BoxCount:      res.BoxCount,
			TotalWeightKg: res.TotalWeightKg,
			UpdatedBy:     cmd.ActorID,
			UpdatedAt:     now,
		}); err != nil {
			return errs.Wrapf(err, "update transfer %d", cmd.TransferID)
		}

		if err := tx.CarrierOrders().Upsert(ctx, tx.DB(), shared.CarrierOrderRecord{
			TransferID:   cmd.TransferID,
			ShipmentID:   shipmentID,
			OrderNumber:  fmt.Sprintf("TX-%d", cmd.TransferID),
			CarrierLabel: plan.CarrierLabel,
			Payload:      payload,
			UpdatedAt:    now,
		}); err != nil {
			return errs.Wrap(err, "upsert carrier order")
		}

		events := []string{shared.LifecyclePacked}
		if plan.ShouldDispatch {
			events = append(events, shared.LifecycleSent)
		}
		for _, event := range events {
			if err := tx.LifecycleLogs().Append(ctx, tx.DB(), shared.LifecycleEvent{
				TransferID: cmd.TransferID,
				ShipmentID: shipmentID,
				Event:      event,
				ActorID:    cmd.ActorID,
				OccurredAt: now,
			}); err != nil {
				return errs.Wrapf(err, "append lifecycle %s", event)
			}
		}

		res.ShipmentID = shipmentID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// verifyLease closes the window between a lock check at the calling layer and the commit.
func (u *packSendUseCaseImpl) verifyLease(ctx context.Context, tx shared.Tx, cmd *packsend.Command, now time.Time) error {
	current, err := tx.Leases().GetForUpdate(ctx, tx.DB(), cmd.TransferID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return ErrNotHolder
		}
		return errs.Wrap(err, "verify lease")
	}
	if !current.HeldBy(cmd.ActorID, now) {
		return ErrNotHolder
	}
	return nil
}
