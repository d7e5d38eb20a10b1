package packsend

import "fmt"

type Tier string

const (
	TierGreen Tier = "green"
	TierAmber Tier = "amber"
	TierRed   Tier = "red"
)

const DefaultLargeShipmentKg = 400.0

type Verdict struct {
	Tier     Tier     `json:"tier"`
	Messages []string `json:"messages"`
}

func (v Verdict) Blocked() bool { return v.Tier == TierRed }

// Guardian is the policy gate run before any write. Red blocks, amber warns.
type Guardian struct {
	largeShipmentKg float64
}

func NewGuardian(largeShipmentKg float64) *Guardian {
	if largeShipmentKg <= 0 {
		largeShipmentKg = DefaultLargeShipmentKg
	}
	return &Guardian{largeShipmentKg: largeShipmentKg}
}

func (g *Guardian) Evaluate(cmd *Command, validation Validation) Verdict {
	if !validation.OK() || cmd == nil {
		return Verdict{Tier: TierRed, Messages: []string{"request failed validation"}}
	}
	if cmd.Mode == ModePackedNotSent && cmd.DispatchNow {
		return Verdict{Tier: TierRed, Messages: []string{"packed-not-sent cannot be dispatched immediately"}}
	}

	verdict := Verdict{Tier: TierGreen, Messages: []string{}}
	if cmd.Mode == ModeReceiveOnly {
		verdict.Tier = TierAmber
		verdict.Messages = append(verdict.Messages, "receive-only mode is not fully supported; review the transfer manually")
	}
	if w := cmd.TotalWeightKg(); w > g.largeShipmentKg {
		verdict.Tier = TierAmber
		verdict.Messages = append(verdict.Messages,
			fmt.Sprintf("large shipment: %.3f kg exceeds %.0f kg threshold", w, g.largeShipmentKg))
	}
	return verdict
}
