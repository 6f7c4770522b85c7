package customs

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		name  string
		year  int
		month int
		want  AgeBracket
	}{
		{"one month old", 2025, 2, BracketUnder3},
		{"just under 36 months", 2022, 4, BracketUnder3},
		{"exactly 36 months", 2022, 3, Bracket3To5},
		{"just under 60 months", 2020, 4, Bracket3To5},
		{"exactly 60 months", 2020, 3, Bracket5To7},
		{"just under 84 months", 2018, 4, Bracket5To7},
		{"exactly 84 months", 2018, 3, BracketOver7},
		{"ten years", 2015, 3, BracketOver7},
		{"same month", 2025, 3, BracketUnder3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Classify(tc.year, tc.month, testNow)
			if err != nil {
				t.Fatalf("Classify(%d, %d) returned error: %v", tc.year, tc.month, err)
			}
			if got != tc.want {
				t.Fatalf("Classify(%d, %d) = %s, want %s", tc.year, tc.month, got, tc.want)
			}
		})
	}
}

func TestClassifyRejectsBadDates(t *testing.T) {
	if _, err := Classify(2022, 0, testNow); err == nil {
		t.Fatal("month 0 should be rejected")
	}
	if _, err := Classify(2022, 13, testNow); err == nil {
		t.Fatal("month 13 should be rejected")
	}
	if _, err := Classify(2026, 1, testNow); err == nil {
		t.Fatal("future year should be rejected")
	}
	if _, err := Classify(2025, 6, testNow); err == nil {
		t.Fatal("future month should be rejected")
	}
}

func TestComputeFeesUnder3DocumentedBracket(t *testing.T) {
	// 1998cc, 15,000,000 KRW, under 3 years: second price tier, the per-cc
	// floor (1998 * 5300) beats 48% of price.
	sched := DefaultSchedule()
	fees, err := sched.ComputeFees(1998, decimal.NewFromInt(15_000_000), BracketUnder3, EngineCombustion)
	if err != nil {
		t.Fatalf("ComputeFees returned error: %v", err)
	}

	if want := decimal.NewFromInt(10_589_400); !fees.Duty.Equal(want) {
		t.Fatalf("duty = %s, want %s", fees.Duty, want)
	}
	if want := decimal.NewFromInt(25_000); !fees.Clearance.Equal(want) {
		t.Fatalf("clearance = %s, want %s", fees.Clearance, want)
	}
	if want := decimal.NewFromInt(51_000); !fees.Recycling.Equal(want) {
		t.Fatalf("recycling = %s, want %s", fees.Recycling, want)
	}
}

func TestComputeFeesUnder3PricePercentageWins(t *testing.T) {
	// Small displacement, expensive car: the percentage basis must win the max().
	sched := DefaultSchedule()
	fees, err := sched.ComputeFees(999, decimal.NewFromInt(50_000_000), BracketUnder3, EngineCombustion)
	if err != nil {
		t.Fatalf("ComputeFees returned error: %v", err)
	}

	byPrice := decimal.NewFromInt(50_000_000).Mul(decimal.RequireFromString("0.48"))
	if !fees.Duty.Equal(byPrice) {
		t.Fatalf("duty = %s, want price basis %s", fees.Duty, byPrice)
	}
}

func TestComputeFeesOlderBracketsPerCC(t *testing.T) {
	sched := DefaultSchedule()
	price := decimal.NewFromInt(15_000_000)

	fees, err := sched.ComputeFees(1998, price, Bracket3To5, EngineCombustion)
	if err != nil {
		t.Fatalf("3-5y: %v", err)
	}
	if want := decimal.NewFromInt(1998 * 4_100); !fees.Duty.Equal(want) {
		t.Fatalf("3-5y duty = %s, want %s", fees.Duty, want)
	}
	if want := decimal.NewFromInt(79_000); !fees.Recycling.Equal(want) {
		t.Fatalf("3-5y recycling = %s, want %s", fees.Recycling, want)
	}

	for _, age := range []AgeBracket{Bracket5To7, BracketOver7} {
		fees, err := sched.ComputeFees(1998, price, age, EngineCombustion)
		if err != nil {
			t.Fatalf("%s: %v", age, err)
		}
		if want := decimal.NewFromInt(1998 * 7_200); !fees.Duty.Equal(want) {
			t.Fatalf("%s duty = %s, want %s", age, fees.Duty, want)
		}
	}
}

func TestComputeFeesUnsupportedBracket(t *testing.T) {
	sched := DefaultSchedule()
	price := decimal.NewFromInt(15_000_000)

	if _, err := sched.ComputeFees(9000, price, BracketUnder3, EngineCombustion); !errors.Is(err, ErrUnsupportedBracket) {
		t.Fatalf("oversize displacement should fail with ErrUnsupportedBracket, got %v", err)
	}
	if _, err := sched.ComputeFees(0, price, BracketUnder3, EngineCombustion); !errors.Is(err, ErrUnsupportedBracket) {
		t.Fatalf("zero displacement should fail, got %v", err)
	}
	if _, err := sched.ComputeFees(1998, decimal.NewFromInt(2_000_000_000), BracketUnder3, EngineCombustion); !errors.Is(err, ErrUnsupportedBracket) {
		t.Fatalf("price above top tier should fail, got %v", err)
	}
	if _, err := sched.ComputeFees(1998, decimal.Zero, BracketUnder3, EngineCombustion); !errors.Is(err, ErrUnsupportedBracket) {
		t.Fatalf("zero price should fail, got %v", err)
	}
	if _, err := sched.ComputeFees(1998, price, BracketUnder3, EngineType(9)); !errors.Is(err, ErrUnsupportedBracket) {
		t.Fatalf("unknown engine type should fail, got %v", err)
	}
}

func TestClearanceSteps(t *testing.T) {
	sched := DefaultSchedule()
	price := decimal.NewFromInt(15_000_000)
	steps := []struct {
		cc   int64
		want int64
	}{
		{998, 15_000},
		{1000, 15_000},
		{1001, 25_000},
		{2000, 25_000},
		{2999, 45_000},
		{5000, 75_000},
	}

	for _, step := range steps {
		fees, err := sched.ComputeFees(step.cc, price, BracketOver7, EngineCombustion)
		if err != nil {
			t.Fatalf("%d cc: %v", step.cc, err)
		}
		if want := decimal.NewFromInt(step.want); !fees.Clearance.Equal(want) {
			t.Fatalf("%d cc clearance = %s, want %s", step.cc, fees.Clearance, want)
		}
	}
}

func TestParseBracketRoundTrip(t *testing.T) {
	for _, b := range []AgeBracket{BracketUnder3, Bracket3To5, Bracket5To7, BracketOver7} {
		parsed, err := ParseBracket(b.String())
		if err != nil {
			t.Fatalf("ParseBracket(%s): %v", b, err)
		}
		if parsed != b {
			t.Fatalf("round trip %s -> %s", b, parsed)
		}
	}
	if _, err := ParseBracket("ancient"); err == nil {
		t.Fatal("unknown label should fail")
	}
}
