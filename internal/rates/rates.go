package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateUnavailable indicates an exchange rate could not be obtained or failed
// validation. Calculations must not start while it is in effect.
var ErrRateUnavailable = errors.New("rates: exchange rate unavailable")

// Snapshot is an immutable point-in-time capture of every rate a calculation
// needs. It is passed by value so one calculation never observes two refresh
// cycles.
type Snapshot struct {
	USDToKRW  decimal.Decimal
	USDToRUB  decimal.Decimal
	KRWToRUB  decimal.Decimal
	USDTToKRW decimal.Decimal
	FetchedAt time.Time
}

// Validate rejects snapshots with missing or non-positive rates.
func (s Snapshot) Validate() error {
	check := func(name string, v decimal.Decimal) error {
		if !v.IsPositive() {
			return fmt.Errorf("%w: %s = %s", ErrRateUnavailable, name, v)
		}
		return nil
	}

	if err := check("usd_krw", s.USDToKRW); err != nil {
		return err
	}
	if err := check("usd_rub", s.USDToRUB); err != nil {
		return err
	}
	if err := check("krw_rub", s.KRWToRUB); err != nil {
		return err
	}
	return check("usdt_krw", s.USDTToKRW)
}

// USDKRWFetcher retrieves the current USD→KRW quote.
type USDKRWFetcher interface {
	FetchUSDKRW(ctx context.Context) (decimal.Decimal, error)
}

// USDRUBFetcher retrieves the current USD→RUB quote.
type USDRUBFetcher interface {
	FetchUSDRUB(ctx context.Context) (decimal.Decimal, error)
}

// StablecoinFetcher retrieves the auxiliary USDT→KRW display rate. Sources
// quoting USDT in USD derive the KRW rate through the supplied USD→KRW pivot.
type StablecoinFetcher interface {
	FetchUSDTToKRW(ctx context.Context, usdToKRW decimal.Decimal) (decimal.Decimal, error)
}
