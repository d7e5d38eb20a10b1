package idempotency

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"packsend-service/internal/infra"
	"packsend-service/internal/infra/cache"
	"packsend-service/internal/pkg/clock"
	"packsend-service/internal/pkg/errs"
	"packsend-service/internal/usecase/shared"
)

const DefaultRetention = 72 * time.Hour

// entry is the cached form of a durable idempotency record.
type entry struct {
	BodyHash string          `json:"body_hash"`
	Envelope json.RawMessage `json:"envelope"`
	StoredAt time.Time       `json:"stored_at"`
}

// Store is two-tier: a fast cache in front of the durable Postgres table.
type Store struct {
	cache     cache.Cache
	uow       shared.UnitOfWork
	prefix    string
	retention time.Duration
	clock     clock.Clock
	logger    *slog.Logger
}

func NewStore(c cache.Cache, uow shared.UnitOfWork, prefix string, retention time.Duration, clk clock.Clock, logger *slog.Logger) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		cache:     c,
		uow:       uow,
		prefix:    prefix,
		retention: retention,
		clock:     clk,
		logger:    logger,
	}
}

func (s *Store) CacheKey(key string) string {
	return s.prefix + key
}

// Fetch returns nil on a miss. Cache errors degrade to the durable tier.
func (s *Store) Fetch(ctx context.Context, key string) (*shared.IdempotencyRecord, error) {
	cacheKey := s.CacheKey(key)

	if raw, ok, err := s.cache.Get(ctx, cacheKey); err != nil {
		s.logger.Warn("idempotency cache read failed", "key", cacheKey, "error", err.Error())
	} else if ok {
		var e entry
		if err := json.Unmarshal(raw, &e); err == nil {
			return &shared.IdempotencyRecord{CacheKey: cacheKey, BodyHash: e.BodyHash, Envelope: e.Envelope, StoredAt: e.StoredAt}, nil
		}
		s.logger.Warn("idempotency cache entry unreadable", "key", cacheKey)
	}

	var rec *shared.IdempotencyRecord
	err := s.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		rec, err = tx.Idempotency().Get(ctx, tx.DB(), cacheKey)
		return err
	})
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "idempotency fetch")
	}

	s.backfill(ctx, cacheKey, &entry{BodyHash: rec.BodyHash, Envelope: rec.Envelope, StoredAt: rec.StoredAt})
	return rec, nil
}

// Save writes the durable tier first; a cache failure is only logged.
// The cache always receives the durable winner, which may be an earlier
// writer's envelope when two runs with the same key overlap.
func (s *Store) Save(ctx context.Context, key, bodyHash string, envelope []byte) error {
	cacheKey := s.CacheKey(key)

	var stored *shared.IdempotencyRecord
	err := s.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		stored, err = tx.Idempotency().Put(ctx, tx.DB(), shared.IdempotencyRecord{
			CacheKey: cacheKey,
			BodyHash: bodyHash,
			Envelope: envelope,
			StoredAt: s.clock.Now(),
		})
		return err
	})
	if err != nil {
		return errs.Wrap(err, "idempotency save")
	}

	s.backfill(ctx, cacheKey, &entry{BodyHash: stored.BodyHash, Envelope: stored.Envelope, StoredAt: stored.StoredAt})
	return nil
}

// Purge drops durable records past retention. Fetch itself never filters by age.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.retention)
	var n int64
	err := s.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		n, err = tx.Idempotency().PurgeBefore(ctx, tx.DB(), cutoff)
		return err
	})
	return n, err
}

func (s *Store) backfill(ctx context.Context, cacheKey string, e *entry) {
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, raw, s.retention); err != nil {
		s.logger.Warn("idempotency cache write failed", "key", cacheKey, "error", err.Error())
	}
}
