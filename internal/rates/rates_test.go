package rates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFetchUSDKRWAppliesMarkup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exchange/rate/KRW/USD.json" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{"rate": 1350.0}})
	}))
	defer srv.Close()

	fiat := NewFiat(FiatOptions{
		USDKRWBaseURL: srv.URL,
		KRWMarkup:     decimal.NewFromInt(25),
		Timeout:       time.Second,
	}, noopLogger())

	rate, err := fiat.FetchUSDKRW(context.Background())
	if err != nil {
		t.Fatalf("FetchUSDKRW failed: %v", err)
	}
	if want := decimal.NewFromInt(1375); !rate.Equal(want) {
		t.Fatalf("rate = %s, want %s", rate, want)
	}
}

func TestFetchUSDKRWRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty array", `[]`},
		{"not json", `oops`},
		{"zero rate", `[{"rate": 0}]`},
		{"negative rate", `[{"rate": -3}]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			fiat := NewFiat(FiatOptions{USDKRWBaseURL: srv.URL, Timeout: time.Second}, noopLogger())
			if _, err := fiat.FetchUSDKRW(context.Background()); !errors.Is(err, ErrRateUnavailable) {
				t.Fatalf("should fail with ErrRateUnavailable, got %v", err)
			}
		})
	}
}

func TestFetchUSDRUBSendsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Access-Token"); got != "secret" {
			t.Fatalf("Access-Token = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"buy": 90.5})
	}))
	defer srv.Close()

	fiat := NewFiat(FiatOptions{USDRUBBaseURL: srv.URL, USDRUBToken: "secret", Timeout: time.Second}, noopLogger())
	rate, err := fiat.FetchUSDRUB(context.Background())
	if err != nil {
		t.Fatalf("FetchUSDRUB failed: %v", err)
	}
	if want := decimal.RequireFromString("90.5"); !rate.Equal(want) {
		t.Fatalf("rate = %s, want %s", rate, want)
	}
}

func TestFetchUSDRUBUnconfigured(t *testing.T) {
	fiat := NewFiat(FiatOptions{Timeout: time.Second}, noopLogger())
	if _, err := fiat.FetchUSDRUB(context.Background()); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("missing source url should fail, got %v", err)
	}
}

func TestCoinbaseFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"rates": map[string]string{"KRW": "1350"}},
		})
	}))
	defer srv.Close()

	cb := NewCoinbase(CoinbaseOptions{BaseURL: srv.URL, Markup: decimal.NewFromInt(4), Timeout: time.Second}, noopLogger())
	rate, err := cb.FetchUSDTToKRW(context.Background(), decimal.Decimal{})
	if err != nil {
		t.Fatalf("FetchUSDTToKRW failed: %v", err)
	}
	if want := decimal.NewFromInt(1354); !rate.Equal(want) {
		t.Fatalf("rate = %s, want %s", rate, want)
	}
}

func TestCoinbaseMissingKRW(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"rates": map[string]string{"EUR": "0.9"}},
		})
	}))
	defer srv.Close()

	cb := NewCoinbase(CoinbaseOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := cb.FetchUSDTToKRW(context.Background(), decimal.Decimal{}); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("missing KRW entry should fail, got %v", err)
	}
}

func TestChainlinkMissingConfig(t *testing.T) {
	cl := NewChainlink(ChainlinkOptions{}, noopLogger())
	if _, err := cl.FetchUSDTToKRW(context.Background(), decimal.NewFromInt(1350)); !errors.Is(err, ErrRateUnavailable) {
		t.Fatal("missing rpc url should fail with ErrRateUnavailable")
	}

	cl = NewChainlink(ChainlinkOptions{RPCURL: "http://localhost:8545"}, noopLogger())
	if _, err := cl.FetchUSDTToKRW(context.Background(), decimal.NewFromInt(1350)); !errors.Is(err, ErrRateUnavailable) {
		t.Fatal("missing feed address should fail with ErrRateUnavailable")
	}
}

type staticFetchers struct {
	usdKRW  decimal.Decimal
	usdRUB  decimal.Decimal
	usdtKRW decimal.Decimal
	err     error
}

func (s *staticFetchers) FetchUSDKRW(context.Context) (decimal.Decimal, error) {
	return s.usdKRW, s.err
}

func (s *staticFetchers) FetchUSDRUB(context.Context) (decimal.Decimal, error) {
	return s.usdRUB, s.err
}

func (s *staticFetchers) FetchUSDTToKRW(context.Context, decimal.Decimal) (decimal.Decimal, error) {
	return s.usdtKRW, s.err
}

func TestProviderRefreshDerivesCrossRate(t *testing.T) {
	static := &staticFetchers{
		usdKRW:  decimal.NewFromInt(1350),
		usdRUB:  decimal.NewFromInt(90),
		usdtKRW: decimal.NewFromInt(1354),
	}
	provider := NewProvider(static, static, static, 0, noopLogger())

	snapshot, err := provider.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	want := decimal.NewFromInt(90).Div(decimal.NewFromInt(1350))
	if !snapshot.KRWToRUB.Equal(want) {
		t.Fatalf("KRWToRUB = %s, want %s", snapshot.KRWToRUB, want)
	}
	if snapshot.FetchedAt.IsZero() {
		t.Fatal("FetchedAt should be set")
	}

	current, err := provider.Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if !current.USDToKRW.Equal(snapshot.USDToKRW) {
		t.Fatal("Current should return the refreshed snapshot")
	}
}

func TestProviderCurrentBeforeRefresh(t *testing.T) {
	static := &staticFetchers{}
	provider := NewProvider(static, static, static, 0, noopLogger())
	if _, err := provider.Current(); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("Current before refresh should fail, got %v", err)
	}
}

func TestProviderKeepsOldSnapshotOnFailure(t *testing.T) {
	static := &staticFetchers{
		usdKRW:  decimal.NewFromInt(1350),
		usdRUB:  decimal.NewFromInt(90),
		usdtKRW: decimal.NewFromInt(1354),
	}
	provider := NewProvider(static, static, static, 0, noopLogger())
	if _, err := provider.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}

	static.err = errors.New("upstream down")
	if _, err := provider.Refresh(context.Background()); err == nil {
		t.Fatal("failing refresh should return an error")
	}

	current, err := provider.Current()
	if err != nil {
		t.Fatalf("previous snapshot should survive a failed refresh: %v", err)
	}
	if !current.USDToKRW.Equal(decimal.NewFromInt(1350)) {
		t.Fatal("previous snapshot was clobbered")
	}
}

func TestProviderSnapshotRefreshesWhenStale(t *testing.T) {
	static := &staticFetchers{
		usdKRW:  decimal.NewFromInt(1350),
		usdRUB:  decimal.NewFromInt(90),
		usdtKRW: decimal.NewFromInt(1354),
	}
	provider := NewProvider(static, static, static, time.Hour, noopLogger())

	first, err := provider.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	// Within maxAge the held snapshot is reused even if upstream is down.
	static.err = errors.New("upstream down")
	second, err := provider.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("fresh snapshot should be served without a refetch: %v", err)
	}
	if !second.FetchedAt.Equal(first.FetchedAt) {
		t.Fatal("fresh snapshot should not have been refetched")
	}

	// Mark the held snapshot stale: a failing refresh must surface, not fall
	// back to the stale data.
	provider.mu.Lock()
	provider.current.FetchedAt = time.Now().Add(-2 * time.Hour)
	provider.mu.Unlock()

	if _, err := provider.Snapshot(context.Background()); err == nil {
		t.Fatal("stale snapshot with failing upstream should return an error")
	}
}

func TestSnapshotValidate(t *testing.T) {
	good := Snapshot{
		USDToKRW:  decimal.NewFromInt(1350),
		USDToRUB:  decimal.NewFromInt(90),
		KRWToRUB:  decimal.RequireFromString("0.066"),
		USDTToKRW: decimal.NewFromInt(1354),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}

	zeroed := good
	zeroed.USDToRUB = decimal.Zero
	if err := zeroed.Validate(); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("zero rate should fail validation, got %v", err)
	}

	negative := good
	negative.USDTToKRW = decimal.NewFromInt(-1)
	if err := negative.Validate(); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("negative rate should fail validation, got %v", err)
	}
}
