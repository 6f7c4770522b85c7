package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"car-landed-cost/internal/config"
	"car-landed-cost/internal/rates"
	"car-landed-cost/internal/scheduler"
	"car-landed-cost/internal/storage"
)

// Refresher keeps the rate snapshot warm and records each successful fetch
// into the rate history. Multiple instances coordinate through a postgres
// advisory lock so only one fetches upstream at a time.
type Refresher struct {
	scheduler *scheduler.Scheduler
	provider  *rates.Provider
	history   storage.RateHistoryStore
	logger    zerolog.Logger

	locker  storage.AdvisoryLocker
	lockKey int64
}

// NewRefresher constructs the refresh orchestrator. history may be nil.
func NewRefresher(cfg *config.Config, sched *scheduler.Scheduler, provider *rates.Provider, history storage.RateHistoryStore, logger zerolog.Logger) *Refresher {
	var locker storage.AdvisoryLocker
	if l, ok := history.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Refresher{
		scheduler: sched,
		provider:  provider,
		history:   history,
		logger:    logger.With().Str("component", "refresher").Logger(),
		locker:    locker,
		lockKey:   cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the periodic refresh loop.
func (r *Refresher) Run(ctx context.Context) error {
	if r.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return r.scheduler.Run(ctx, r.RefreshOnce)
}

// RefreshOnce performs a single guarded refresh.
func (r *Refresher) RefreshOnce(ctx context.Context, at time.Time) error {
	unlock, proceed, err := r.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		r.logger.Debug().Time("at", at).Msg("skip refresh because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	snapshot, err := r.provider.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh rates: %w", err)
	}

	if r.history != nil {
		record := storage.RateRecord{
			FetchedAt: snapshot.FetchedAt,
			USDToKRW:  snapshot.USDToKRW,
			USDToRUB:  snapshot.USDToRUB,
			KRWToRUB:  snapshot.KRWToRUB,
			USDTToKRW: snapshot.USDTToKRW,
		}
		if err := r.history.InsertRateSample(ctx, record); err != nil {
			r.logger.Error().Err(err).Time("at", at).Msg("failed to persist rate sample")
		}
	}

	return nil
}

func (r *Refresher) acquireLock(ctx context.Context) (func(), bool, error) {
	if r.lockKey == 0 || r.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := r.locker.TryAdvisoryLock(ctx, r.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
