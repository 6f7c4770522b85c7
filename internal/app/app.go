package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"car-landed-cost/internal/bot"
	"car-landed-cost/internal/config"
	"car-landed-cost/internal/customs"
	"car-landed-cost/internal/listing"
	"car-landed-cost/internal/quote"
	"car-landed-cost/internal/rates"
	"car-landed-cost/internal/scheduler"
	"car-landed-cost/internal/service"
	"car-landed-cost/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newRateProvider() *rates.Provider {
	cfg := a.Config.Rates

	fiat := rates.NewFiat(rates.FiatOptions{
		USDKRWBaseURL: cfg.USDKRWBaseURL,
		USDRUBBaseURL: cfg.USDRUBBaseURL,
		USDRUBToken:   cfg.USDRUBToken,
		KRWMarkup:     decimal.NewFromFloat(cfg.USDKRWMarkup),
		Timeout:       cfg.RequestTimeout,
	}, a.Logger)

	var stable rates.StablecoinFetcher
	if cfg.StablecoinSource == "chainlink" {
		stable = rates.NewChainlink(rates.ChainlinkOptions{
			RPCURL:      cfg.EthereumRPCURL,
			FeedAddress: cfg.USDTFeedAddress,
			Markup:      decimal.NewFromFloat(cfg.StablecoinMarkup),
			Timeout:     cfg.RequestTimeout,
		}, a.Logger)
	} else {
		stable = rates.NewCoinbase(rates.CoinbaseOptions{
			BaseURL: cfg.CoinbaseBaseURL,
			Markup:  decimal.NewFromFloat(cfg.StablecoinMarkup),
			Timeout: cfg.RequestTimeout,
		}, a.Logger)
	}

	return rates.NewProvider(fiat, fiat, stable, cfg.MaxAge, a.Logger)
}

func (a *App) newListingClient() *listing.Client {
	cfg := a.Config.Listing
	return listing.NewClient(listing.Options{
		BaseURL:      cfg.BaseURL,
		PhotoBaseURL: cfg.PhotoBaseURL,
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.RequestTimeout,
		MaxPhotos:    cfg.MaxPhotos,
	}, a.Logger)
}

func (a *App) newQuoteService(provider *rates.Provider, listings *listing.Client, store *storage.Store) (*quote.Service, error) {
	charges, err := quote.FixedChargesFromConfig(a.Config.Fees)
	if err != nil {
		return nil, err
	}

	var history quote.HistoryStore
	if store != nil {
		history = store
	}
	return quote.NewService(provider, listings, customs.DefaultSchedule(), charges, history, a.Logger), nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running assistant: the rate refresh loop plus, when
// enabled, the chat bot.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	provider := a.newRateProvider()
	listings := a.newListingClient()
	quotes, err := a.newQuoteService(provider, listings, store)
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	var history storage.RateHistoryStore
	if store != nil {
		history = store
	}
	refresher := service.NewRefresher(a.Config, sched, provider, history, a.Logger)

	errCh := make(chan error, 2)
	go func() {
		errCh <- refresher.Run(ctx)
	}()

	if a.Config.Bot.Enabled {
		client := bot.NewClient(a.Config.Bot.Token, a.Config.Bot.APIBase, a.Config.Bot.PollTimeout, a.Logger)

		var users storage.UserStore
		if store != nil {
			users = store
		}
		assistant := bot.New(client, quotes, listings, users, a.Config.Bot.PollTimeout, a.Logger)

		go func() {
			errCh <- assistant.Run(ctx)
		}()
		a.Logger.Info().Msg("starting assistant with chat bot")
	} else {
		a.Logger.Info().Msg("starting assistant (bot disabled)")
	}

	err = <-errCh
	cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("assistant terminated with error")
		return err
	}

	a.Logger.Info().Msg("assistant stopped")
	return nil
}

// ExportOptions hold parameters for exporting historical rate samples.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Quotes bool
}
