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

// FiatOptions parameterise the two fiat quote fetchers.
type FiatOptions struct {
	USDKRWBaseURL string
	USDRUBBaseURL string
	USDRUBToken   string
	KRWMarkup     decimal.Decimal
	Timeout       time.Duration
	UserAgent     string
}

// Fiat fetches the USD→KRW and USD→RUB quotes from their HTTP sources.
type Fiat struct {
	opts   FiatOptions
	logger zerolog.Logger
	client *http.Client
}

// NewFiat constructs a fiat rate fetcher.
func NewFiat(opts FiatOptions, logger zerolog.Logger) *Fiat {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts.USDKRWBaseURL = strings.TrimRight(opts.USDKRWBaseURL, "/")
	if opts.USDKRWBaseURL == "" {
		opts.USDKRWBaseURL = "https://api.manana.kr"
	}
	opts.USDRUBBaseURL = strings.TrimRight(opts.USDRUBBaseURL, "/")

	return &Fiat{
		opts:   opts,
		logger: logger.With().Str("component", "fiat_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

type krwQuote struct {
	Rate decimal.Decimal `json:"rate"`
}

// FetchUSDKRW retrieves USD→KRW and applies the configured exchange-office markup.
func (f *Fiat) FetchUSDKRW(ctx context.Context) (decimal.Decimal, error) {
	payload, err := f.get(ctx, f.opts.USDKRWBaseURL+"/exchange/rate/KRW/USD.json", nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: usd-krw: %w", ErrRateUnavailable, err)
	}

	var quotes []krwQuote
	if err := json.Unmarshal(payload, &quotes); err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: usd-krw: decode payload: %w", ErrRateUnavailable, err)
	}
	if len(quotes) == 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: usd-krw: empty payload", ErrRateUnavailable)
	}

	rate := quotes[0].Rate.Add(f.opts.KRWMarkup)
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: usd-krw: non-positive rate %s", ErrRateUnavailable, rate)
	}

	f.logger.Debug().Str("rate", rate.String()).Msg("fetched usd-krw")
	return rate, nil
}

type rubQuote struct {
	Buy decimal.Decimal `json:"buy"`
}

// FetchUSDRUB retrieves the USD→RUB buy quote from the exchange office API.
func (f *Fiat) FetchUSDRUB(ctx context.Context) (decimal.Decimal, error) {
	if f.opts.USDRUBBaseURL == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: usd-rub: source url not configured", ErrRateUnavailable)
	}

	headers := map[string]string{}
	if f.opts.USDRUBToken != "" {
		headers["Access-Token"] = f.opts.USDRUBToken
	}

	payload, err := f.get(ctx, f.opts.USDRUBBaseURL+"/api/v1/rate/", headers)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: usd-rub: %w", ErrRateUnavailable, err)
	}

	var quote rubQuote
	if err := json.Unmarshal(payload, &quote); err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: usd-rub: decode payload: %w", ErrRateUnavailable, err)
	}
	if !quote.Buy.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: usd-rub: non-positive rate %s", ErrRateUnavailable, quote.Buy)
	}

	f.logger.Debug().Str("rate", quote.Buy.String()).Msg("fetched usd-rub")
	return quote.Buy, nil
}

func (f *Fiat) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return payload, nil
}

var _ USDKRWFetcher = (*Fiat)(nil)
var _ USDRUBFetcher = (*Fiat)(nil)
