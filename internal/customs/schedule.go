package customs

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedBracket indicates the displacement/price/age combination has no
// schedule entry. Callers must treat it as a hard failure, never as zero fees.
var ErrUnsupportedBracket = errors.New("customs: no schedule entry for input")

// EngineType narrows the schedule to a propulsion class.
type EngineType int

// EngineCombustion is the only engine class the current schedule covers.
const EngineCombustion EngineType = 1

// Fees carries the three customs charges, all in KRW.
type Fees struct {
	Duty      decimal.Decimal
	Clearance decimal.Decimal
	Recycling decimal.Decimal
}

// priceTier is one row of the under-3-years duty table: duty is the greater of
// a price percentage and a per-cc floor.
type priceTier struct {
	maxPriceKRW decimal.Decimal
	pricePct    decimal.Decimal
	perCCKRW    decimal.Decimal
}

// ccTier is one row of the per-cc duty table used for vehicles older than 3 years.
type ccTier struct {
	maxCC    int64
	perCCKRW decimal.Decimal
}

// clearanceTier is one step of the flat clearance fee by displacement.
type clearanceTier struct {
	maxCC  int64
	feeKRW decimal.Decimal
}

// Schedule is the customs fee table consulted by both the listing-driven and
// the manual calculation paths.
type Schedule struct {
	maxDisplacementCC int64

	under3    []priceTier
	from3To5  []ccTier
	over5     []ccTier // shared by 5-7y and over-7y, the table merges them
	clearance []clearanceTier
	recycling map[AgeBracket]decimal.Decimal
}

func krw(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func pct(v int64) decimal.Decimal { return decimal.NewFromInt(v).Div(decimal.NewFromInt(100)) }

// DefaultSchedule returns the current private-import schedule, amounts in KRW.
func DefaultSchedule() *Schedule {
	return &Schedule{
		maxDisplacementCC: 8000,
		under3: []priceTier{
			{maxPriceKRW: krw(14_000_000), pricePct: pct(54), perCCKRW: krw(3_800)},
			{maxPriceKRW: krw(23_000_000), pricePct: pct(48), perCCKRW: krw(5_300)},
			{maxPriceKRW: krw(58_000_000), pricePct: pct(48), perCCKRW: krw(8_300)},
			{maxPriceKRW: krw(116_000_000), pricePct: pct(48), perCCKRW: krw(11_300)},
			{maxPriceKRW: krw(232_000_000), pricePct: pct(48), perCCKRW: krw(22_500)},
			{maxPriceKRW: krw(1_500_000_000), pricePct: pct(48), perCCKRW: krw(30_000)},
		},
		from3To5: []ccTier{
			{maxCC: 1000, perCCKRW: krw(2_300)},
			{maxCC: 1500, perCCKRW: krw(2_500)},
			{maxCC: 1800, perCCKRW: krw(3_800)},
			{maxCC: 2300, perCCKRW: krw(4_100)},
			{maxCC: 3000, perCCKRW: krw(4_500)},
			{maxCC: 8000, perCCKRW: krw(5_400)},
		},
		over5: []ccTier{
			{maxCC: 1000, perCCKRW: krw(4_500)},
			{maxCC: 1500, perCCKRW: krw(4_800)},
			{maxCC: 1800, perCCKRW: krw(5_300)},
			{maxCC: 2300, perCCKRW: krw(7_200)},
			{maxCC: 3000, perCCKRW: krw(7_500)},
			{maxCC: 8000, perCCKRW: krw(8_600)},
		},
		clearance: []clearanceTier{
			{maxCC: 1000, feeKRW: krw(15_000)},
			{maxCC: 2000, feeKRW: krw(25_000)},
			{maxCC: 3000, feeKRW: krw(45_000)},
			{maxCC: 8000, feeKRW: krw(75_000)},
		},
		recycling: map[AgeBracket]decimal.Decimal{
			BracketUnder3: krw(51_000),
			Bracket3To5:   krw(79_000),
			Bracket5To7:   krw(79_000),
			BracketOver7:  krw(79_000),
		},
	}
}

// ComputeFees returns duty, clearance and recycling charges in KRW for a
// private combustion vehicle. Inputs outside every schedule tier fail with
// ErrUnsupportedBracket.
func (s *Schedule) ComputeFees(displacementCC int64, priceKRW decimal.Decimal, age AgeBracket, engine EngineType) (Fees, error) {
	if engine != EngineCombustion {
		return Fees{}, fmt.Errorf("%w: engine type %d", ErrUnsupportedBracket, engine)
	}
	if displacementCC <= 0 || displacementCC > s.maxDisplacementCC {
		return Fees{}, fmt.Errorf("%w: displacement %d cc", ErrUnsupportedBracket, displacementCC)
	}
	if !priceKRW.IsPositive() {
		return Fees{}, fmt.Errorf("%w: price %s KRW", ErrUnsupportedBracket, priceKRW)
	}

	duty, err := s.duty(displacementCC, priceKRW, age)
	if err != nil {
		return Fees{}, err
	}

	clearance, err := s.clearanceFee(displacementCC)
	if err != nil {
		return Fees{}, err
	}

	recycling, ok := s.recycling[age]
	if !ok {
		return Fees{}, fmt.Errorf("%w: age bracket %s", ErrUnsupportedBracket, age)
	}

	return Fees{Duty: duty, Clearance: clearance, Recycling: recycling}, nil
}

func (s *Schedule) duty(displacementCC int64, priceKRW decimal.Decimal, age AgeBracket) (decimal.Decimal, error) {
	cc := decimal.NewFromInt(displacementCC)

	if age == BracketUnder3 {
		for _, tier := range s.under3 {
			if priceKRW.LessThanOrEqual(tier.maxPriceKRW) {
				byPrice := priceKRW.Mul(tier.pricePct)
				byVolume := cc.Mul(tier.perCCKRW)
				// Regulatory tie-break: whichever basis yields the higher duty applies.
				if byVolume.GreaterThan(byPrice) {
					return byVolume, nil
				}
				return byPrice, nil
			}
		}
		return decimal.Decimal{}, fmt.Errorf("%w: price %s KRW above top tier", ErrUnsupportedBracket, priceKRW)
	}

	table := s.from3To5
	if age == Bracket5To7 || age == BracketOver7 {
		table = s.over5
	}

	for _, tier := range table {
		if displacementCC <= tier.maxCC {
			return cc.Mul(tier.perCCKRW), nil
		}
	}
	return decimal.Decimal{}, fmt.Errorf("%w: displacement %d cc", ErrUnsupportedBracket, displacementCC)
}

func (s *Schedule) clearanceFee(displacementCC int64) (decimal.Decimal, error) {
	for _, tier := range s.clearance {
		if displacementCC <= tier.maxCC {
			return tier.feeKRW, nil
		}
	}
	return decimal.Decimal{}, fmt.Errorf("%w: displacement %d cc", ErrUnsupportedBracket, displacementCC)
}
