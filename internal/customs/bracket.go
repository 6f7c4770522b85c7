package customs

import (
	"fmt"
	"time"
)

// AgeBracket is the discrete vehicle age class the duty schedule is keyed by.
type AgeBracket int

const (
	BracketUnder3 AgeBracket = iota
	Bracket3To5
	Bracket5To7
	BracketOver7
)

// String returns the wire/storage label of the bracket.
func (b AgeBracket) String() string {
	switch b {
	case BracketUnder3:
		return "under_3"
	case Bracket3To5:
		return "3_to_5"
	case Bracket5To7:
		return "5_to_7"
	case BracketOver7:
		return "over_7"
	default:
		return fmt.Sprintf("age_bracket(%d)", int(b))
	}
}

// ParseBracket maps a stored label back to a bracket.
func ParseBracket(label string) (AgeBracket, error) {
	switch label {
	case "under_3":
		return BracketUnder3, nil
	case "3_to_5":
		return Bracket3To5, nil
	case "5_to_7":
		return Bracket5To7, nil
	case "over_7":
		return BracketOver7, nil
	}
	return 0, fmt.Errorf("unknown age bracket %q", label)
}

const (
	monthsUnder3 = 36
	monthsUnder5 = 60
	monthsUnder7 = 84
)

// Classify derives the age bracket from the first-registration year/month.
// Boundaries are inclusive on the older side: exactly 36 whole months is
// already Bracket3To5, 60 is Bracket5To7, 84 is BracketOver7.
func Classify(regYear, regMonth int, now time.Time) (AgeBracket, error) {
	if regMonth < 1 || regMonth > 12 {
		return 0, fmt.Errorf("registration month %d out of range", regMonth)
	}
	if regYear < 1980 || regYear > now.Year() {
		return 0, fmt.Errorf("registration year %d out of range", regYear)
	}

	months := (now.Year()-regYear)*12 + int(now.Month()) - regMonth
	if months < 0 {
		return 0, fmt.Errorf("registration date %d-%02d is in the future", regYear, regMonth)
	}

	switch {
	case months < monthsUnder3:
		return BracketUnder3, nil
	case months < monthsUnder5:
		return Bracket3To5, nil
	case months < monthsUnder7:
		return Bracket5To7, nil
	default:
		return BracketOver7, nil
	}
}
