package listing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrListingUnavailable indicates the vehicle data fetch failed or the payload
// was missing fields a calculation depends on.
var ErrListingUnavailable = errors.New("listing: vehicle data unavailable")

// VehicleListing is one marketplace advertisement, immutable once fetched.
type VehicleListing struct {
	ID    int64
	Make  string
	Model string
	Trim  string

	// PriceNative is the advertised price in units of 10,000 KRW, as the
	// marketplace publishes it.
	PriceNative       int64
	RegistrationYear  int
	RegistrationMonth int
	MileageKm         int64
	IsAutomatic       bool
	BodyType          string
	DisplacementCC    int64
	PhotoURLs         []string

	// VehicleNo and VehicleID key the inspection and insurance endpoints.
	VehicleNo string
	VehicleID int64
}

// Title joins make, model and trim the way the marketplace displays them.
func (v *VehicleListing) Title() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{v.Make, v.Model, v.Trim} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

func (v *VehicleListing) validate() error {
	if v.PriceNative <= 0 {
		return fmt.Errorf("%w: listing %d has no advertised price", ErrListingUnavailable, v.ID)
	}
	if v.DisplacementCC <= 0 {
		return fmt.Errorf("%w: listing %d has no engine displacement", ErrListingUnavailable, v.ID)
	}
	if v.RegistrationYear == 0 || v.RegistrationMonth < 1 || v.RegistrationMonth > 12 {
		return fmt.Errorf("%w: listing %d has no usable registration date", ErrListingUnavailable, v.ID)
	}
	return nil
}
