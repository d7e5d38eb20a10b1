package packsend

import "packsend-service/internal/pkg/errs"

// ErrorCode is the stable, caller-facing failure category of a pack/send run.
type ErrorCode string

const (
	CodeValidation      ErrorCode = "VALIDATION"
	CodeSystemRed       ErrorCode = "SYSTEM_RED"
	CodeReplayConflict  ErrorCode = "IDEMPOTENT_REPLAY_CONFLICT"
	CodeLockConflict    ErrorCode = "LOCK_CONFLICT"
	CodeNotHolder       ErrorCode = "NOT_HOLDER"
	CodeAlreadyPending  ErrorCode = "ALREADY_PENDING"
	CodeIntegrity       ErrorCode = "INTEGRITY"
	CodeUnexpectedError ErrorCode = "UNEXPECTED_ERROR"
)

var (
	ErrDuplicateBoxNumber    = errs.New("duplicate box number in shipment")
	ErrUnknownMode           = errs.New("no handler registered for mode")
	ErrBoxCountExceedsWeight = errs.New("box count exceeds the shipment weight in grams")
)

// CheckUniqueBoxNumbers fails when two parcels share a box number.
func CheckUniqueBoxNumbers(parcels []ParcelSpec) error {
	seen := make(map[int]struct{}, len(parcels))
	for _, p := range parcels {
		if _, dup := seen[p.BoxNumber]; dup {
			return ErrDuplicateBoxNumber
		}
		seen[p.BoxNumber] = struct{}{}
	}
	return nil
}
