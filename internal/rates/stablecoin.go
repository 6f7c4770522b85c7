package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CoinbaseOptions parameterise the Coinbase exchange-rates fetcher.
type CoinbaseOptions struct {
	BaseURL string
	Markup  decimal.Decimal
	Timeout time.Duration
}

// Coinbase fetches the USDT→KRW quote from the Coinbase exchange-rates API.
type Coinbase struct {
	opts   CoinbaseOptions
	logger zerolog.Logger
	client *http.Client
}

// NewCoinbase constructs a Coinbase stablecoin fetcher.
func NewCoinbase(opts CoinbaseOptions, logger zerolog.Logger) *Coinbase {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.coinbase.com"
	}

	return &Coinbase{
		opts:   opts,
		logger: logger.With().Str("component", "coinbase_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

type coinbasePayload struct {
	Data struct {
		Rates map[string]string `json:"rates"`
	} `json:"data"`
}

// FetchUSDTToKRW reads the KRW rate from the USDT exchange-rate table. The
// USD→KRW pivot is unused; Coinbase quotes KRW directly.
func (c *Coinbase) FetchUSDTToKRW(ctx context.Context, _ decimal.Decimal) (decimal.Decimal, error) {
	url := c.opts.BaseURL + "/v2/exchange-rates?currency=USDT"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: %w", ErrRateUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: %w", ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: %w", ErrRateUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: status %d", ErrRateUnavailable, resp.StatusCode)
	}

	var payload coinbasePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: decode payload: %w", ErrRateUnavailable, err)
	}

	raw, ok := payload.Data.Rates["KRW"]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: KRW missing from rate table", ErrRateUnavailable)
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: non-numeric rate %q", ErrRateUnavailable, raw)
	}

	rate = rate.Add(c.opts.Markup)
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: non-positive rate %s", ErrRateUnavailable, rate)
	}

	c.logger.Debug().Str("rate", rate.String()).Msg("fetched usdt-krw")
	return rate, nil
}

var _ StablecoinFetcher = (*Coinbase)(nil)
