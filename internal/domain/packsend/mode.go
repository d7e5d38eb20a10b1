package packsend

import "strings"

type Mode string

const (
	ModeCourierManualNZC Mode = "COURIER_MANUAL_NZC"
	ModeCourierManualNZP Mode = "COURIER_MANUAL_NZP"
	ModePickup           Mode = "PICKUP"
	ModeInternalDrive    Mode = "INTERNAL_DRIVE"
	ModeDepotDrop        Mode = "DEPOT_DROP"
	ModePackedNotSent    Mode = "PACKED_NOT_SENT"
	ModeReceiveOnly      Mode = "RECEIVE_ONLY"
)

var knownModes = []Mode{
	ModeCourierManualNZC,
	ModeCourierManualNZP,
	ModePickup,
	ModeInternalDrive,
	ModeDepotDrop,
	ModePackedNotSent,
	ModeReceiveOnly,
}

func Modes() []Mode {
	out := make([]Mode, len(knownModes))
	copy(out, knownModes)
	return out
}

// ParseMode accepts any casing and surrounding whitespace.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range knownModes {
		if m == known {
			return m, true
		}
	}
	return "", false
}

func (m Mode) String() string { return string(m) }

// Sends reports whether the mode physically moves stock off the source site.
// Only these modes let dispatch_now mark the shipment in transit.
func (m Mode) Sends() bool {
	switch m {
	case ModeCourierManualNZC, ModeCourierManualNZP, ModePickup, ModeInternalDrive, ModeDepotDrop:
		return true
	default:
		return false
	}
}

// payloadField names the request payload that carries the mode's own details.
func (m Mode) payloadField() string {
	switch m {
	case ModePickup:
		return "pickup"
	case ModeInternalDrive:
		return "internal"
	case ModeDepotDrop:
		return "depot"
	default:
		return "totals"
	}
}
