package commands

//go:generate mockgen -source=packsend.go -destination=../../../tests/mock/commands/mock_packsend.go -package=commandsmock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"packsend-service/internal/domain/packsend"
	"packsend-service/internal/infra"
	"packsend-service/internal/pkg/clock"
	"packsend-service/internal/pkg/errs"
	"packsend-service/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	msgValidation     = "request failed validation"
	msgReplayConflict = "idempotency key was already used with a different request body"
	msgIntegrity      = "shipment data violates an integrity rule"
	msgLockConflict   = "caller does not hold the lock for this transfer"
	msgUnexpected     = "unexpected error while processing pack/send"

	mirrorOK       = "ok"
	mirrorDeclined = "declined"
	mirrorError    = "error"
	mirrorDisabled = "disabled"
	mirrorSkipped  = "skipped"
)

type PackSendConfig struct {
	// RequireLease re-checks the actor's lease inside the commit transaction.
	RequireLease bool
}

type PackSendCommands interface {
	// Submit never returns an error: every outcome is an Envelope.
	Submit(ctx context.Context, req packsend.Request, actorID string) *Envelope
}

type packSendUseCaseImpl struct {
	uow          shared.UnitOfWork
	idempotency  IdempotencyStore
	guardian     PolicyGate
	handlers     packsend.HandlerRegistry
	estimator    packsend.Estimator
	mirror       Mirror
	clock        clock.Clock
	recorder     PackSendRecorder
	requireLease bool
	newRequestID func() uuid.UUID
}

func NewPackSendUseCase(
	uow shared.UnitOfWork,
	idempotency IdempotencyStore,
	guardian PolicyGate,
	handlers packsend.HandlerRegistry,
	estimator packsend.Estimator,
	mirror Mirror,
	clock clock.Clock,
	recorder PackSendRecorder,
	cfg PackSendConfig,
) PackSendCommands {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &packSendUseCaseImpl{
		uow:          uow,
		idempotency:  idempotency,
		guardian:     guardian,
		handlers:     handlers,
		estimator:    estimator,
		mirror:       mirror,
		clock:        clock,
		recorder:     recorder,
		requireLease: cfg.RequireLease,
		newRequestID: uuid.New,
	}
}

// run accumulates what the audit row and the envelope need as the pipeline advances.
type run struct {
	requestID string
	started   time.Time
	actorID   string
	req       packsend.Request
	tier      packsend.Tier
	handler   string
	plan      *packsend.Plan
	warnings  []string
	mirror    string
}

func (u *packSendUseCaseImpl) Submit(ctx context.Context, req packsend.Request, actorID string) (env *Envelope) {
	r := &run{
		requestID: u.newRequestID().String(),
		started:   time.Now(),
		actorID:   actorID,
		req:       req,
		handler:   "none",
		warnings:  []string{},
		mirror:    mirrorSkipped,
	}
	defer func() {
		if p := recover(); p != nil {
			err := errs.New(fmt.Sprint(p))
			slog.Error("pack/send panicked",
				"request_id", r.requestID, "transfer_id", req.TransferID, "panic", fmt.Sprint(p))
			r.plan = nil
			env = u.fail(ctx, r, packsend.CodeUnexpectedError, msgUnexpected, nil, err)
		}
		u.recorder.ObservePackSend(env.outcome(), time.Since(r.started))
	}()

	cmd, validation := packsend.Validate(req, actorID)
	verdict := u.guardian.Evaluate(cmd, validation)
	r.tier = verdict.Tier

	if !validation.OK() {
		r.warnings = append(r.warnings, validation.Warnings...)
		return u.fail(ctx, r, packsend.CodeValidation, msgValidation, validation.Errors, nil)
	}
	if verdict.Blocked() {
		return u.fail(ctx, r, packsend.CodeSystemRed, strings.Join(verdict.Messages, "; "), nil, nil)
	}
	r.warnings = append(r.warnings, verdict.Messages...)

	stored, err := u.idempotency.Fetch(ctx, cmd.IdempotencyKey)
	if err != nil {
		return u.fail(ctx, r, packsend.CodeUnexpectedError, msgUnexpected, nil, err)
	}
	if stored != nil {
		if stored.BodyHash != cmd.BodyHash {
			return u.fail(ctx, r, packsend.CodeReplayConflict, msgReplayConflict, nil, nil)
		}
		replay, err := decodeReplay(stored.Envelope)
		if err != nil {
			return u.fail(ctx, r, packsend.CodeUnexpectedError, msgUnexpected, nil, err)
		}
		return replay
	}

	handler, err := u.handlers.Lookup(cmd.Mode)
	if err != nil {
		return u.fail(ctx, r, packsend.CodeUnexpectedError, msgUnexpected, nil, err)
	}
	r.handler = handler.Name()

	plan, err := handler.Plan(ctx, *cmd, validation, u.estimator)
	if err != nil {
		return u.fail(ctx, r, packsend.CodeUnexpectedError, msgUnexpected, nil, errs.Wrap(err, "plan"))
	}
	r.plan = &plan
	r.warnings = append(r.warnings, plan.Warnings...)

	committed, err := u.commit(ctx, cmd, plan)
	if err != nil {
		code, msg := classifyCommitError(err)
		r.plan = nil
		return u.fail(ctx, r, code, msg, nil, err)
	}

	reference := u.mirrorTransfer(ctx, r, cmd.TransferID)

	env = &Envelope{
		OK:        true,
		RequestID: r.requestID,
		Data: &PackSendResult{
			TransferID:      cmd.TransferID,
			ShipmentID:      committed.ShipmentID,
			Status:          committed.Status,
			Mode:            plan.Mode,
			DeliveryMode:    plan.DeliveryMode,
			CarrierLabel:    plan.CarrierLabel,
			BoxCount:        committed.BoxCount,
			TotalWeightKg:   committed.TotalWeightKg,
			DispatchedAt:    committed.DispatchedAt,
			Parcels:         plan.Parcels,
			MirrorReference: reference,
		},
		Warnings: r.warnings,
		Meta: EnvelopeMeta{
			GuardianTier: r.tier,
			Handler:      r.handler,
		},
	}

	raw, err := json.Marshal(env)
	if err == nil {
		err = u.idempotency.Save(ctx, cmd.IdempotencyKey, cmd.BodyHash, raw)
	}
	if err != nil {
		slog.Error("failed to save idempotency record",
			"request_id", r.requestID, "transfer_id", cmd.TransferID, "error", err.Error())
	}

	u.audit(ctx, r, env)
	return env
}

// fail builds an error envelope and audits it with a failed plan.
// cause is logged but never shown to the caller.
func (u *packSendUseCaseImpl) fail(
	ctx context.Context,
	r *run,
	code packsend.ErrorCode,
	message string,
	fields []packsend.FieldError,
	cause error,
) *Envelope {
	if cause != nil {
		slog.Error("pack/send failed",
			"request_id", r.requestID,
			"transfer_id", r.req.TransferID,
			"code", string(code),
			"error", cause.Error(),
			"stack", errs.ExtractStackLines(cause, 12),
		)
	}

	env := &Envelope{
		OK:        false,
		RequestID: r.requestID,
		Error: &EnvelopeError{
			Code:    code,
			Message: message,
			Fields:  fields,
		},
		Warnings: r.warnings,
		Meta: EnvelopeMeta{
			GuardianTier: r.tier,
			Handler:      r.handler,
		},
	}
	u.audit(ctx, r, env)
	return env
}

func classifyCommitError(err error) (packsend.ErrorCode, string) {
	switch {
	case errs.Is(err, packsend.ErrDuplicateBoxNumber), infra.IsKind(err, infra.KindDuplicateKey):
		return packsend.CodeIntegrity, msgIntegrity
	case errs.Is(err, ErrNotHolder), errs.Is(err, ErrLockConflict):
		return packsend.CodeLockConflict, msgLockConflict
	default:
		return packsend.CodeUnexpectedError, msgUnexpected
	}
}

// mirrorTransfer is best effort: failures become warnings, never errors.
func (u *packSendUseCaseImpl) mirrorTransfer(ctx context.Context, r *run, transferID int64) string {
	if u.mirror == nil || !u.mirror.Enabled() {
		r.mirror = mirrorDisabled
		u.recorder.ObserveMirror(r.mirror)
		return ""
	}

	res, err := u.mirror.UpsertConsignment(ctx, transferID)
	switch {
	case err != nil:
		r.mirror = mirrorError
		r.warnings = append(r.warnings, "downstream mirror unavailable; consignment not synced")
		slog.Warn("mirror upsert failed", "transfer_id", transferID, "error", err.Error())
	case !res.OK:
		r.mirror = mirrorDeclined
		msg := "downstream mirror declined consignment"
		if res.Message != "" {
			msg += ": " + res.Message
		}
		r.warnings = append(r.warnings, msg)
	default:
		r.mirror = mirrorOK
	}
	u.recorder.ObserveMirror(r.mirror)
	return res.Reference
}

// audit records one row per terminal outcome. Failures only reach the log.
func (u *packSendUseCaseImpl) audit(ctx context.Context, r *run, env *Envelope) {
	plan := r.plan
	if plan == nil {
		failed := packsend.FailedPlan(auditMode(r.req.Mode))
		plan = &failed
	}
	requestJSON, _ := json.Marshal(r.req)
	planJSON, _ := json.Marshal(plan)

	requestID, err := uuid.Parse(r.requestID)
	if err != nil {
		requestID = uuid.New()
	}

	rec := shared.AuditRecord{
		RequestID:      requestID,
		TransferID:     r.req.TransferID,
		ActorID:        r.actorID,
		IdempotencyKey: r.req.IdempotencyKey,
		OK:             env.OK,
		ErrorCode:      string(env.ErrorCode()),
		GuardianTier:   string(r.tier),
		Handler:        r.handler,
		RequestJSON:    requestJSON,
		PlanJSON:       planJSON,
		Warnings:       slices.Clone(env.Warnings),
		MirrorOutcome:  r.mirror,
		DurationMs:     time.Since(r.started).Milliseconds(),
		CreatedAt:      u.clock.Now(),
	}

	err = u.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Audits().Insert(ctx, tx.DB(), rec)
	})
	if err != nil {
		slog.Warn("failed to write pack/send audit",
			"request_id", r.requestID, "transfer_id", r.req.TransferID, "error", err.Error())
	}
}

func auditMode(raw string) packsend.Mode {
	if m, ok := packsend.ParseMode(raw); ok {
		return m
	}
	return packsend.Mode(raw)
}

func decodeReplay(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errs.Wrap(err, "decode stored envelope")
	}
	if env.Warnings == nil {
		env.Warnings = []string{}
	}
	env.Meta.IdempotentReplay = true
	return &env, nil
}
