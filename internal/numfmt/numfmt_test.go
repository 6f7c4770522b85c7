package numfmt

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "15000000", "15000000"},
		{"comma groups", "1,400,000", "1400000"},
		{"space groups", "120 000", "120000"},
		{"ruble sign", "50 000 ₽", "50000"},
		{"won sign", "₩440,000", "440000"},
		{"fraction", "1,234.56", "1234.56"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmount(tc.in)
			if err != nil {
				t.Fatalf("ParseAmount(%q) returned error: %v", tc.in, err)
			}
			want := decimal.RequireFromString(tc.want)
			if !got.Equal(want) {
				t.Fatalf("ParseAmount(%q) = %s, want %s", tc.in, got, want)
			}
		})
	}
}

func TestParseAmountInvalid(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "12x000", "-", "12,34,56cc"} {
		if _, err := ParseAmount(in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParseAmount(%q) should fail with ErrInvalidInput, got %v", in, err)
		}
	}
}

func TestParsePositiveAmount(t *testing.T) {
	if _, err := ParsePositiveAmount("0"); !errors.Is(err, ErrInvalidInput) {
		t.Fatal("zero should be rejected")
	}
	if _, err := ParsePositiveAmount("-120,000"); !errors.Is(err, ErrInvalidInput) {
		t.Fatal("negative should be rejected")
	}
	if _, err := ParsePositiveAmount("120,000"); err != nil {
		t.Fatalf("positive amount should parse: %v", err)
	}
}

func TestGroup(t *testing.T) {
	if got := Group(decimal.NewFromInt(15000000)); got != "15,000,000" {
		t.Fatalf("Group = %q", got)
	}
	if got := GroupWithDigits(decimal.RequireFromString("11111.111"), 2); got != "11,111.11" {
		t.Fatalf("GroupWithDigits = %q", got)
	}
	if got := Group(decimal.NewFromInt(600)); got != "600" {
		t.Fatalf("Group small = %q", got)
	}
}
