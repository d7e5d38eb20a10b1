//go:build unit || e2e

// Package fakestore is an in-memory shared.UnitOfWork. Each unit of work runs
// against a private copy of the state that replaces the committed state only
// when the callback succeeds, so failed commits leave nothing behind.
package fakestore

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"packsend-service/internal/domain/lease"
	"packsend-service/internal/domain/packsend"
	"packsend-service/internal/infra"
	"packsend-service/internal/infra/db"
	"packsend-service/internal/pkg/errs"
	"packsend-service/internal/usecase/shared"
)

// Operation names accepted by FailOn.
const (
	OpShipmentCreate     = "shipments.create"
	OpParcelCreate       = "parcels.create"
	OpTransferUpdate     = "transfers.update"
	OpCarrierOrderUpsert = "carrier_orders.upsert"
	OpLifecycleAppend    = "lifecycle.append"
	OpAuditInsert        = "audits.insert"
	OpIdempotencyGet     = "idempotency.get"
	OpIdempotencyPut     = "idempotency.put"
)

var errMissing = errs.New("row not found")

type ShipmentRow struct {
	ID     int64
	Record shared.ShipmentRecord
}

type state struct {
	leases        map[int64]*lease.Lease
	takeovers     map[int64]*lease.TakeoverRequest
	shipments     []ShipmentRow
	parcels       map[int64][]packsend.ParcelSpec
	transfers     map[int64]shared.TransferSummary
	carrierOrders map[int64]shared.CarrierOrderRecord
	lifecycle     []shared.LifecycleEvent
	audits        []shared.AuditRecord
	idempotency   map[string]shared.IdempotencyRecord
	nextShipment  int64
	nextTakeover  int64
}

func newState() *state {
	return &state{
		leases:        map[int64]*lease.Lease{},
		takeovers:     map[int64]*lease.TakeoverRequest{},
		parcels:       map[int64][]packsend.ParcelSpec{},
		transfers:     map[int64]shared.TransferSummary{},
		carrierOrders: map[int64]shared.CarrierOrderRecord{},
		idempotency:   map[string]shared.IdempotencyRecord{},
		nextShipment:  1000,
	}
}

func (s *state) clone() *state {
	c := &state{
		leases:        maps.Clone(s.leases),
		takeovers:     make(map[int64]*lease.TakeoverRequest, len(s.takeovers)),
		shipments:     slices.Clone(s.shipments),
		parcels:       maps.Clone(s.parcels),
		transfers:     maps.Clone(s.transfers),
		carrierOrders: maps.Clone(s.carrierOrders),
		lifecycle:     slices.Clone(s.lifecycle),
		audits:        slices.Clone(s.audits),
		idempotency:   maps.Clone(s.idempotency),
		nextShipment:  s.nextShipment,
		nextTakeover:  s.nextTakeover,
	}
	// Takeover requests mutate in place on Resolve.
	for id, req := range s.takeovers {
		cp := *req
		c.takeovers[id] = &cp
	}
	return c
}

type Store struct {
	mu        sync.Mutex
	committed *state
	failures  map[string]error
	commits   int
}

func New() *Store {
	return &Store{committed: newState(), failures: map[string]error{}}
}

var _ shared.UnitOfWork = (*Store)(nil)

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return s.run(ctx, fn, true)
}

func (s *Store) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return s.run(ctx, fn, false)
}

func (s *Store) WithDB(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return s.run(ctx, fn, true)
}

func (s *Store) run(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error, commit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.committed.clone()
	if err := fn(ctx, &fakeTx{store: s, st: work}); err != nil {
		return err
	}
	if commit {
		s.committed = work
		s.commits++
	}
	return nil
}

// FailOn makes every later call of op fail with err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) injected(op string) error {
	return s.failures[op]
}

// =============================================================================
// Seeding and inspection
// =============================================================================

func (s *Store) SeedTransfer(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.transfers[id] = shared.TransferSummary{TransferID: id, State: "OPEN"}
}

func (s *Store) SeedLease(l *lease.Lease) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.leases[l.TransferID()] = l
}

func (s *Store) Lease(transferID int64) *lease.Lease {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed.leases[transferID]
}

func (s *Store) Takeover(id int64) *lease.TakeoverRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.committed.takeovers[id]
	if !ok {
		return nil
	}
	cp := *req
	return &cp
}

func (s *Store) Shipments() []ShipmentRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.committed.shipments)
}

func (s *Store) Parcels(shipmentID int64) []packsend.ParcelSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.committed.parcels[shipmentID])
}

func (s *Store) Transfer(id int64) shared.TransferSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed.transfers[id]
}

func (s *Store) CarrierOrder(transferID int64) (shared.CarrierOrderRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.committed.carrierOrders[transferID]
	return rec, ok
}

func (s *Store) LifecycleEvents() []shared.LifecycleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.committed.lifecycle)
}

func (s *Store) Audits() []shared.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.committed.audits)
}

func (s *Store) IdempotencyRecord(cacheKey string) (shared.IdempotencyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.committed.idempotency[cacheKey]
	return rec, ok
}

// =============================================================================
// Tx and repositories
// =============================================================================

type fakeTx struct {
	store *Store
	st    *state
}

func (t *fakeTx) Leases() shared.LeaseRepository               { return leaseRepo{t} }
func (t *fakeTx) Takeovers() shared.TakeoverRepository         { return takeoverRepo{t} }
func (t *fakeTx) Shipments() shared.ShipmentRepository         { return shipmentRepo{t} }
func (t *fakeTx) Parcels() shared.ParcelRepository             { return parcelRepo{t} }
func (t *fakeTx) Transfers() shared.TransferRepository         { return transferRepo{t} }
func (t *fakeTx) CarrierOrders() shared.CarrierOrderRepository { return carrierOrderRepo{t} }
func (t *fakeTx) LifecycleLogs() shared.LifecycleLogRepository { return lifecycleRepo{t} }
func (t *fakeTx) Audits() shared.AuditRepository               { return auditRepo{t} }
func (t *fakeTx) Idempotency() shared.IdempotencyRepository    { return idempotencyRepo{t} }
func (t *fakeTx) DB() db.DBTX                                  { return nil }

type leaseRepo struct{ tx *fakeTx }

func (r leaseRepo) TryAcquire(_ context.Context, _ db.DBTX, l *lease.Lease) (*lease.Lease, bool, error) {
	now := l.HeartbeatAt()
	existing, ok := r.tx.st.leases[l.TransferID()]
	if ok && existing.AliveAt(now) && existing.HolderID() != l.HolderID() {
		return nil, false, nil
	}
	stored := l
	if ok && existing.HeldBy(l.HolderID(), now) {
		stored = lease.Reconstruct(l.TransferID(), l.HolderID(), l.Fingerprint(), existing.AcquiredAt(), l.HeartbeatAt(), l.ExpiresAt())
	}
	r.tx.st.leases[l.TransferID()] = stored
	return stored, true, nil
}

func (r leaseRepo) Get(_ context.Context, _ db.DBTX, transferID int64) (*lease.Lease, error) {
	l, ok := r.tx.st.leases[transferID]
	if !ok {
		return nil, infra.WrapRepoErr("lease", errMissing, infra.KindNotFound)
	}
	return l, nil
}

func (r leaseRepo) GetForUpdate(ctx context.Context, tx db.DBTX, transferID int64) (*lease.Lease, error) {
	return r.Get(ctx, tx, transferID)
}

func (r leaseRepo) Save(_ context.Context, _ db.DBTX, l *lease.Lease) error {
	r.tx.st.leases[l.TransferID()] = l
	return nil
}

func (r leaseRepo) Delete(_ context.Context, _ db.DBTX, transferID int64, holderID string) (bool, error) {
	l, ok := r.tx.st.leases[transferID]
	if !ok || l.HolderID() != holderID {
		return false, nil
	}
	delete(r.tx.st.leases, transferID)
	return true, nil
}

func (r leaseRepo) DeleteExpired(_ context.Context, _ db.DBTX, now time.Time) (int64, error) {
	var n int64
	for id, l := range r.tx.st.leases {
		if !l.AliveAt(now) {
			delete(r.tx.st.leases, id)
			n++
		}
	}
	return n, nil
}

type takeoverRepo struct{ tx *fakeTx }

func (r takeoverRepo) Create(_ context.Context, _ db.DBTX, req *lease.TakeoverRequest) (int64, error) {
	for _, existing := range r.tx.st.takeovers {
		if existing.TransferID() == req.TransferID() && existing.IsPending() {
			return 0, infra.WrapRepoErr("takeover", errs.New("pending request exists"), infra.KindDuplicateKey)
		}
	}
	r.tx.st.nextTakeover++
	id := r.tx.st.nextTakeover
	cp := *req
	cp.AssignID(id)
	r.tx.st.takeovers[id] = &cp
	return id, nil
}

func (r takeoverRepo) GetForUpdate(_ context.Context, _ db.DBTX, id int64) (*lease.TakeoverRequest, error) {
	req, ok := r.tx.st.takeovers[id]
	if !ok {
		return nil, infra.WrapRepoErr("takeover", errMissing, infra.KindNotFound)
	}
	cp := *req
	return &cp, nil
}

func (r takeoverRepo) PendingForTransfer(_ context.Context, _ db.DBTX, transferID int64) (*lease.TakeoverRequest, error) {
	for _, req := range r.tx.st.takeovers {
		if req.TransferID() == transferID && req.IsPending() {
			cp := *req
			return &cp, nil
		}
	}
	return nil, infra.WrapRepoErr("takeover", errMissing, infra.KindNotFound)
}

func (r takeoverRepo) ListOverdue(_ context.Context, _ db.DBTX, now time.Time, limit int) ([]*lease.TakeoverRequest, error) {
	ids := slices.Sorted(maps.Keys(r.tx.st.takeovers))
	var out []*lease.TakeoverRequest
	for _, id := range ids {
		req := r.tx.st.takeovers[id]
		if req.IsOverdue(now) {
			cp := *req
			out = append(out, &cp)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r takeoverRepo) UpdateStatus(_ context.Context, _ db.DBTX, req *lease.TakeoverRequest) error {
	current, ok := r.tx.st.takeovers[req.ID()]
	if !ok || !current.IsPending() {
		return infra.WrapRepoErr("takeover", errs.New("request already resolved"), infra.KindConflict)
	}
	cp := *req
	r.tx.st.takeovers[req.ID()] = &cp
	return nil
}

type shipmentRepo struct{ tx *fakeTx }

func (r shipmentRepo) Create(_ context.Context, _ db.DBTX, rec shared.ShipmentRecord) (int64, error) {
	if err := r.tx.store.injected(OpShipmentCreate); err != nil {
		return 0, err
	}
	r.tx.st.nextShipment++
	id := r.tx.st.nextShipment
	r.tx.st.shipments = append(r.tx.st.shipments, ShipmentRow{ID: id, Record: rec})
	return id, nil
}

type parcelRepo struct{ tx *fakeTx }

func (r parcelRepo) CreateBatch(_ context.Context, _ db.DBTX, shipmentID int64, parcels []packsend.ParcelSpec) error {
	if err := r.tx.store.injected(OpParcelCreate); err != nil {
		return err
	}
	existing := slices.Clone(r.tx.st.parcels[shipmentID])
	for _, p := range parcels {
		for _, e := range existing {
			if e.BoxNumber == p.BoxNumber {
				return infra.WrapRepoErr("parcel", errs.New("duplicate box number"), infra.KindDuplicateKey)
			}
		}
		existing = append(existing, p)
	}
	r.tx.st.parcels[shipmentID] = existing
	return nil
}

type transferRepo struct{ tx *fakeTx }

func (r transferRepo) UpdateSummary(_ context.Context, _ db.DBTX, summary shared.TransferSummary) error {
	if err := r.tx.store.injected(OpTransferUpdate); err != nil {
		return err
	}
	if _, ok := r.tx.st.transfers[summary.TransferID]; !ok {
		return infra.WrapRepoErr("transfer", errMissing, infra.KindNotFound)
	}
	r.tx.st.transfers[summary.TransferID] = summary
	return nil
}

type carrierOrderRepo struct{ tx *fakeTx }

func (r carrierOrderRepo) Upsert(_ context.Context, _ db.DBTX, rec shared.CarrierOrderRecord) error {
	if err := r.tx.store.injected(OpCarrierOrderUpsert); err != nil {
		return err
	}
	r.tx.st.carrierOrders[rec.TransferID] = rec
	return nil
}

type lifecycleRepo struct{ tx *fakeTx }

func (r lifecycleRepo) Append(_ context.Context, _ db.DBTX, ev shared.LifecycleEvent) error {
	if err := r.tx.store.injected(OpLifecycleAppend); err != nil {
		return err
	}
	r.tx.st.lifecycle = append(r.tx.st.lifecycle, ev)
	return nil
}

type auditRepo struct{ tx *fakeTx }

func (r auditRepo) Insert(_ context.Context, _ db.DBTX, rec shared.AuditRecord) error {
	if err := r.tx.store.injected(OpAuditInsert); err != nil {
		return err
	}
	r.tx.st.audits = append(r.tx.st.audits, rec)
	return nil
}

type idempotencyRepo struct{ tx *fakeTx }

func (r idempotencyRepo) Get(_ context.Context, _ db.DBTX, cacheKey string) (*shared.IdempotencyRecord, error) {
	if err := r.tx.store.injected(OpIdempotencyGet); err != nil {
		return nil, err
	}
	rec, ok := r.tx.st.idempotency[cacheKey]
	if !ok {
		return nil, infra.WrapRepoErr("idempotency", errMissing, infra.KindNotFound)
	}
	return &rec, nil
}

func (r idempotencyRepo) Put(_ context.Context, _ db.DBTX, rec shared.IdempotencyRecord) (*shared.IdempotencyRecord, error) {
	if err := r.tx.store.injected(OpIdempotencyPut); err != nil {
		return nil, err
	}
	stored, ok := r.tx.st.idempotency[rec.CacheKey]
	if !ok {
		r.tx.st.idempotency[rec.CacheKey] = rec
		stored = rec
	}
	return &stored, nil
}

func (r idempotencyRepo) PurgeBefore(_ context.Context, _ db.DBTX, cutoff time.Time) (int64, error) {
	var n int64
	for key, rec := range r.tx.st.idempotency {
		if rec.StoredAt.Before(cutoff) {
			delete(r.tx.st.idempotency, key)
			n++
		}
	}
	return n, nil
}
