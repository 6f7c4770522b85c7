package rates

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const aggregatorABIJSON = `[{"inputs":[],"name":"latestRoundData","outputs":[{"internalType":"uint80","name":"roundId","type":"uint80"},{"internalType":"int256","name":"answer","type":"int256"},{"internalType":"uint256","name":"startedAt","type":"uint256"},{"internalType":"uint256","name":"updatedAt","type":"uint256"},{"internalType":"uint80","name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"}]`

// Chainlink price feeds report with 8 fraction digits for USD pairs.
const feedDecimals = -8

var aggregatorABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		panic("failed to parse aggregator ABI: " + err.Error())
	}
	aggregatorABI = parsed
}

// ChainlinkOptions parameterise the on-chain stablecoin fetcher.
type ChainlinkOptions struct {
	RPCURL      string
	FeedAddress string
	Markup      decimal.Decimal
	Timeout     time.Duration
}

// Chainlink reads the USDT/USD aggregator over Ethereum RPC and derives the
// KRW quote through the USD→KRW pivot.
type Chainlink struct {
	opts      ChainlinkOptions
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewChainlink builds an on-chain stablecoin fetcher.
func NewChainlink(opts ChainlinkOptions, logger zerolog.Logger) *Chainlink {
	return &Chainlink{opts: opts, logger: logger.With().Str("component", "chainlink_fetcher").Logger()}
}

// FetchUSDTToKRW reads latestRoundData from the configured feed.
func (c *Chainlink) FetchUSDTToKRW(ctx context.Context, usdToKRW decimal.Decimal) (decimal.Decimal, error) {
	if c.opts.RPCURL == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: ethereum rpc url not configured", ErrRateUnavailable)
	}
	if c.opts.FeedAddress == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: feed address not configured", ErrRateUnavailable)
	}
	if !usdToKRW.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: usd-krw pivot %s", ErrRateUnavailable, usdToKRW)
	}

	timeout := c.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: %w", ErrRateUnavailable, err)
	}

	addr := common.HexToAddress(c.opts.FeedAddress)
	payload, err := aggregatorABI.Pack("latestRoundData")
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: %w", ErrRateUnavailable, err)
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: %w", ErrRateUnavailable, err)
	}

	outputs, err := aggregatorABI.Unpack("latestRoundData", res)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: %w", ErrRateUnavailable, err)
	}
	if len(outputs) != 5 {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: unexpected latestRoundData response", ErrRateUnavailable)
	}

	answer, ok := outputs[1].(*big.Int)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: failed to decode feed answer", ErrRateUnavailable)
	}

	usdtUSD := decimal.NewFromBigInt(answer, feedDecimals)
	if !usdtUSD.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: feed answer %s", ErrRateUnavailable, usdtUSD)
	}

	rate := usdtUSD.Mul(usdToKRW).Add(c.opts.Markup)
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: usdt-krw: non-positive rate %s", ErrRateUnavailable, rate)
	}

	c.logger.Debug().Str("usdt_usd", usdtUSD.String()).Str("rate", rate.String()).Msg("fetched usdt-krw from feed")
	return rate, nil
}

func (c *Chainlink) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	client, err := ethclient.DialContext(ctx, c.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

var _ StablecoinFetcher = (*Chainlink)(nil)
