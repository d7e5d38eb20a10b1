package commands

import (
	"context"
	"time"

	"packsend-service/internal/domain/packsend"
	"packsend-service/internal/usecase/shared"
)

// Collaborators the commands reach through narrow interfaces. Infra provides
// the implementations; tests substitute fakes.

type StaffDirectory interface {
	ResolveName(ctx context.Context, staffID string) (string, error)
}

// PolicyGate is satisfied by *packsend.Guardian.
type PolicyGate interface {
	Evaluate(cmd *packsend.Command, validation packsend.Validation) packsend.Verdict
}

type Mirror interface {
	Enabled() bool
	UpsertConsignment(ctx context.Context, transferID int64) (shared.MirrorResult, error)
}

type IdempotencyStore interface {
	// Fetch returns nil, nil when the key has never been saved.
	Fetch(ctx context.Context, key string) (*shared.IdempotencyRecord, error)
	Save(ctx context.Context, key, bodyHash string, envelope []byte) error
}

type LockRecorder interface {
	ObserveLockOp(op, result string, elapsed time.Duration)
	ObserveTakeover(outcome string)
	AddExpired(n int64)
}

type PackSendRecorder interface {
	ObservePackSend(outcome string, elapsed time.Duration)
	ObserveMirror(result string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveLockOp(string, string, time.Duration) {}
func (noopRecorder) ObserveTakeover(string)                      {}
func (noopRecorder) AddExpired(int64)                            {}
func (noopRecorder) ObservePackSend(string, time.Duration)       {}
func (noopRecorder) ObserveMirror(string)                        {}
