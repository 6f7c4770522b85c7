package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"car-landed-cost/internal/customs"
	"car-landed-cost/internal/listing"
	"car-landed-cost/internal/numfmt"
	"car-landed-cost/internal/rates"
	"car-landed-cost/internal/storage"
)

// SnapshotSource serves the exchange-rate snapshot a calculation runs on.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (rates.Snapshot, error)
}

// ListingSource fetches marketplace advertisements.
type ListingSource interface {
	FetchListing(ctx context.Context, id int64) (*listing.VehicleListing, error)
}

// HistoryStore persists finished quotes. May be nil when no database is
// configured; persistence failures never fail a calculation.
type HistoryStore interface {
	InsertQuote(ctx context.Context, record storage.QuoteRecord) error
}

var (
	_ SnapshotSource = (*rates.Provider)(nil)
	_ ListingSource  = (*listing.Client)(nil)
)

const nativePriceUnit = 10_000 // marketplace prices are published in 10,000 KRW units

// ManualInput is a calculation request typed in by the user instead of read
// from a listing.
type ManualInput struct {
	Age            customs.AgeBracket
	DisplacementCC int64
	PriceKRW       decimal.Decimal
}

func (in ManualInput) validate() error {
	if in.DisplacementCC <= 0 {
		return fmt.Errorf("%w: displacement must be positive, got %d", numfmt.ErrInvalidInput, in.DisplacementCC)
	}
	if !in.PriceKRW.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", numfmt.ErrInvalidInput, in.PriceKRW)
	}
	return nil
}

// Quote is a finished landed-cost calculation.
type Quote struct {
	// Vehicle is nil for manual-entry quotes.
	Vehicle        *listing.VehicleListing
	Age            customs.AgeBracket
	DisplacementCC int64
	PriceKRW       decimal.Decimal
	Fees           customs.Fees
	Breakdown      CostBreakdown
	CreatedAt      time.Time
}

// Service runs landed-cost calculations against the current rate snapshot and
// the shared customs schedule. Listing and manual quotes go through the same
// fee and aggregation path.
type Service struct {
	snapshots SnapshotSource
	listings  ListingSource
	schedule  *customs.Schedule
	fixed     FixedCharges
	history   HistoryStore
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService wires a calculation service. history may be nil.
func NewService(snapshots SnapshotSource, listings ListingSource, schedule *customs.Schedule, fixed FixedCharges, history HistoryStore, logger zerolog.Logger) *Service {
	return &Service{
		snapshots: snapshots,
		listings:  listings,
		schedule:  schedule,
		fixed:     fixed,
		history:   history,
		now:       time.Now,
		logger:    logger.With().Str("component", "quote_service").Logger(),
	}
}

// CalculateFromListing fetches an advertisement and quotes its landed cost.
func (s *Service) CalculateFromListing(ctx context.Context, id int64) (*Quote, error) {
	snapshot, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.listings.FetchListing(ctx, id)
	if err != nil {
		return nil, err
	}

	age, err := customs.Classify(vehicle.RegistrationYear, vehicle.RegistrationMonth, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: listing %d: %w", listing.ErrListingUnavailable, id, err)
	}

	priceKRW := decimal.NewFromInt(vehicle.PriceNative).Mul(decimal.NewFromInt(nativePriceUnit))
	quote, err := s.build(vehicle, age, vehicle.DisplacementCC, priceKRW, snapshot)
	if err != nil {
		return nil, err
	}

	s.record(ctx, quote, storage.QuoteSourceListing)
	s.logger.Info().
		Int64("listing_id", id).
		Str("age", age.String()).
		Str("total_rub", quote.Breakdown.Total.RUB.Round(2).String()).
		Msg("calculated listing quote")
	return quote, nil
}

// CalculateManual quotes a landed cost from user-supplied parameters. For the
// same age, displacement and price it produces exactly the fees and breakdown
// a listing quote would.
func (s *Service) CalculateManual(ctx context.Context, in ManualInput) (*Quote, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	snapshot, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	quote, err := s.build(nil, in.Age, in.DisplacementCC, in.PriceKRW, snapshot)
	if err != nil {
		return nil, err
	}

	s.record(ctx, quote, storage.QuoteSourceManual)
	s.logger.Info().
		Str("age", in.Age.String()).
		Int64("displacement_cc", in.DisplacementCC).
		Str("total_rub", quote.Breakdown.Total.RUB.Round(2).String()).
		Msg("calculated manual quote")
	return quote, nil
}

// CurrentRates returns the snapshot a calculation would run on right now.
func (s *Service) CurrentRates(ctx context.Context) (rates.Snapshot, error) {
	return s.snapshots.Snapshot(ctx)
}

func (s *Service) build(vehicle *listing.VehicleListing, age customs.AgeBracket, displacementCC int64, priceKRW decimal.Decimal, snapshot rates.Snapshot) (*Quote, error) {
	fees, err := s.schedule.ComputeFees(displacementCC, priceKRW, age, customs.EngineCombustion)
	if err != nil {
		return nil, err
	}

	return &Quote{
		Vehicle:        vehicle,
		Age:            age,
		DisplacementCC: displacementCC,
		PriceKRW:       priceKRW,
		Fees:           fees,
		Breakdown:      Aggregate(priceKRW, fees, s.fixed, snapshot),
		CreatedAt:      s.now().UTC(),
	}, nil
}

func (s *Service) record(ctx context.Context, quote *Quote, source string) {
	if s.history == nil {
		return
	}

	record := storage.QuoteRecord{
		Source:         source,
		AgeBracket:     quote.Age.String(),
		DisplacementCC: quote.DisplacementCC,
		PriceKRW:       quote.PriceKRW,
		TotalKRW:       quote.Breakdown.Total.KRW,
		TotalUSD:       quote.Breakdown.Total.USD,
		TotalRUB:       quote.Breakdown.Total.RUB,
		CreatedAt:      quote.CreatedAt,
	}
	if quote.Vehicle != nil {
		record.ListingID = &quote.Vehicle.ID
		record.Title = quote.Vehicle.Title()
	}

	if err := s.history.InsertQuote(ctx, record); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist quote")
	}
}
