package quote

import (
	"fmt"

	"github.com/shopspring/decimal"

	"car-landed-cost/internal/config"
	"car-landed-cost/internal/numfmt"
)

// FixedChargesFromConfig parses the operator-facing fee strings into a
// charge schedule. Config validation has already checked the format, so a
// failure here means the configuration changed underneath us.
func FixedChargesFromConfig(cfg config.FeesConfig) (FixedCharges, error) {
	parse := func(key, raw string, dst *decimal.Decimal) error {
		value, err := numfmt.ParsePositiveAmount(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = value
		return nil
	}

	var charges FixedCharges
	fields := []struct {
		key string
		raw string
		dst *decimal.Decimal
	}{
		{"fees.company_service_krw", cfg.CompanyServiceKRW, &charges.CompanyServiceKRW},
		{"fees.freight_krw", cfg.FreightKRW, &charges.FreightKRW},
		{"fees.dealer_fee_krw", cfg.DealerFeeKRW, &charges.DealerFeeKRW},
		{"fees.domestic_delivery_krw", cfg.DomesticDeliveryKRW, &charges.DomesticDeliveryKRW},
		{"fees.domestic_transfer_krw", cfg.DomesticTransferKRW, &charges.DomesticTransferKRW},
		{"fees.broker_fee_rub", cfg.BrokerFeeRUB, &charges.BrokerFeeRUB},
		{"fees.port_transfer_rub", cfg.PortTransferRUB, &charges.PortTransferRUB},
		{"fees.warehouse_rub", cfg.WarehouseRUB, &charges.WarehouseRUB},
		{"fees.lab_certification_rub", cfg.LabCertificationRUB, &charges.LabCertificationRUB},
		{"fees.temp_registration_rub", cfg.TempRegistrationRUB, &charges.TempRegistrationRUB},
		{"fees.long_haul_transport_rub", cfg.LongHaulTransportRUB, &charges.LongHaulTransportRUB},
	}
	for _, field := range fields {
		if err := parse(field.key, field.raw, field.dst); err != nil {
			return FixedCharges{}, err
		}
	}
	return charges, nil
}
