package rates

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider fetches and holds the current exchange-rate snapshot. Reads return
// the snapshot by value; a failed refresh never replaces a valid one with
// partial data, and no snapshot exists until every rate has been fetched.
type Provider struct {
	usdKRW USDKRWFetcher
	usdRUB USDRUBFetcher
	stable StablecoinFetcher
	maxAge time.Duration
	logger zerolog.Logger

	mu      sync.RWMutex
	current *Snapshot
}

// NewProvider wires the three fetchers into a provider. maxAge bounds how old
// a held snapshot may be before Snapshot forces a refresh.
func NewProvider(usdKRW USDKRWFetcher, usdRUB USDRUBFetcher, stable StablecoinFetcher, maxAge time.Duration, logger zerolog.Logger) *Provider {
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &Provider{
		usdKRW: usdKRW,
		usdRUB: usdRUB,
		stable: stable,
		maxAge: maxAge,
		logger: logger.With().Str("component", "rate_provider").Logger(),
	}
}

// Refresh fetches all rates and replaces the held snapshot wholesale. On any
// failure the previous snapshot stays in place and the error is returned.
func (p *Provider) Refresh(ctx context.Context) (Snapshot, error) {
	usdKRW, err := p.usdKRW.FetchUSDKRW(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	usdRUB, err := p.usdRUB.FetchUSDRUB(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	usdtKRW, err := p.stable.FetchUSDTToKRW(ctx, usdKRW)
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{
		USDToKRW:  usdKRW,
		USDToRUB:  usdRUB,
		KRWToRUB:  usdRUB.Div(usdKRW),
		USDTToKRW: usdtKRW,
		FetchedAt: time.Now().UTC(),
	}
	if err := snapshot.Validate(); err != nil {
		return Snapshot{}, err
	}

	p.mu.Lock()
	p.current = &snapshot
	p.mu.Unlock()

	p.logger.Info().
		Str("usd_krw", snapshot.USDToKRW.String()).
		Str("usd_rub", snapshot.USDToRUB.String()).
		Str("usdt_krw", snapshot.USDTToKRW.String()).
		Msg("rates refreshed")

	return snapshot, nil
}

// Snapshot returns a snapshot no older than the provider's max age,
// refreshing first when the held one is stale or absent. A stale snapshot is
// never returned silently: if the refresh fails, so does Snapshot.
func (p *Provider) Snapshot(ctx context.Context) (Snapshot, error) {
	p.mu.RLock()
	held := p.current
	p.mu.RUnlock()

	if held != nil && time.Since(held.FetchedAt) <= p.maxAge {
		return *held, nil
	}
	return p.Refresh(ctx)
}

// Current returns the held snapshot by value, or ErrRateUnavailable if no
// successful refresh has happened yet.
func (p *Provider) Current() (Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.current == nil {
		return Snapshot{}, fmt.Errorf("%w: no snapshot fetched yet", ErrRateUnavailable)
	}
	return *p.current, nil
}
