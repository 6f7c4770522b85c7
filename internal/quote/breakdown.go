package quote

import (
	"github.com/shopspring/decimal"

	"car-landed-cost/internal/customs"
	"car-landed-cost/internal/rates"
)

// Currency names one of the three settlement currencies a breakdown carries.
type Currency string

const (
	CurrencyKRW Currency = "KRW"
	CurrencyUSD Currency = "USD"
	CurrencyRUB Currency = "RUB"
)

// Money is one amount expressed in all three currencies at once. All three
// legs come from the same snapshot, so sums stay mutually consistent.
type Money struct {
	KRW decimal.Decimal
	USD decimal.Decimal
	RUB decimal.Decimal
}

// Add returns the element-wise sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{
		KRW: m.KRW.Add(other.KRW),
		USD: m.USD.Add(other.USD),
		RUB: m.RUB.Add(other.RUB),
	}
}

// Convert expands a single-currency amount into all three currencies using
// one snapshot. Every conversion goes through USD via USDToKRW and USDToRUB;
// there is no second path that could disagree with this one.
func Convert(amount decimal.Decimal, from Currency, snapshot rates.Snapshot) Money {
	switch from {
	case CurrencyUSD:
		return Money{
			KRW: amount.Mul(snapshot.USDToKRW),
			USD: amount,
			RUB: amount.Mul(snapshot.USDToRUB),
		}
	case CurrencyRUB:
		usd := amount.Div(snapshot.USDToRUB)
		return Money{
			KRW: usd.Mul(snapshot.USDToKRW),
			USD: usd,
			RUB: amount,
		}
	default:
		usd := amount.Div(snapshot.USDToKRW)
		return Money{
			KRW: amount,
			USD: usd,
			RUB: usd.Mul(snapshot.USDToRUB),
		}
	}
}

// LineItem keys one row of a cost breakdown.
type LineItem string

const (
	ItemVehiclePrice      LineItem = "vehicle_price"
	ItemCompanyService    LineItem = "company_service"
	ItemFreight           LineItem = "freight"
	ItemDealerFee         LineItem = "dealer_fee"
	ItemDomesticDelivery  LineItem = "domestic_delivery"
	ItemDomesticTransfer  LineItem = "domestic_transfer"
	ItemBrokerFee         LineItem = "broker_fee"
	ItemCustomsDuty       LineItem = "customs_duty"
	ItemCustomsClearance  LineItem = "customs_clearance"
	ItemRecyclingFee      LineItem = "recycling_fee"
	ItemPortTransfer      LineItem = "port_transfer"
	ItemWarehouse         LineItem = "inland_warehouse"
	ItemLabCertification  LineItem = "lab_certification"
	ItemTempRegistration  LineItem = "temp_registration"
	ItemLongHaulTransport LineItem = "long_haul_transport"
)

// ItemOrder is the display order of a breakdown, vehicle first and the
// destination-side charges last.
var ItemOrder = []LineItem{
	ItemVehiclePrice,
	ItemCompanyService,
	ItemFreight,
	ItemDealerFee,
	ItemDomesticDelivery,
	ItemDomesticTransfer,
	ItemBrokerFee,
	ItemCustomsDuty,
	ItemCustomsClearance,
	ItemRecyclingFee,
	ItemPortTransfer,
	ItemWarehouse,
	ItemLabCertification,
	ItemTempRegistration,
	ItemLongHaulTransport,
}

// FixedCharges are the flat service fees added to every quote. KRW fields
// cover the origin side of the shipment, RUB fields the destination side.
type FixedCharges struct {
	CompanyServiceKRW   decimal.Decimal
	FreightKRW          decimal.Decimal
	DealerFeeKRW        decimal.Decimal
	DomesticDeliveryKRW decimal.Decimal
	DomesticTransferKRW decimal.Decimal

	BrokerFeeRUB         decimal.Decimal
	PortTransferRUB      decimal.Decimal
	WarehouseRUB         decimal.Decimal
	LabCertificationRUB  decimal.Decimal
	TempRegistrationRUB  decimal.Decimal
	LongHaulTransportRUB decimal.Decimal
}

// CostBreakdown is the finished quote: every line item in all three
// currencies, plus the grand total, which is exactly the element-wise sum of
// the items.
type CostBreakdown struct {
	Items    map[LineItem]Money
	Total    Money
	Snapshot rates.Snapshot
}

// Aggregate assembles a breakdown from the vehicle price, the computed
// customs fees and the fixed charge schedule, all converted through one
// snapshot. It is a pure function of its inputs.
func Aggregate(priceKRW decimal.Decimal, fees customs.Fees, fixed FixedCharges, snapshot rates.Snapshot) CostBreakdown {
	items := map[LineItem]Money{
		ItemVehiclePrice:      Convert(priceKRW, CurrencyKRW, snapshot),
		ItemCompanyService:    Convert(fixed.CompanyServiceKRW, CurrencyKRW, snapshot),
		ItemFreight:           Convert(fixed.FreightKRW, CurrencyKRW, snapshot),
		ItemDealerFee:         Convert(fixed.DealerFeeKRW, CurrencyKRW, snapshot),
		ItemDomesticDelivery:  Convert(fixed.DomesticDeliveryKRW, CurrencyKRW, snapshot),
		ItemDomesticTransfer:  Convert(fixed.DomesticTransferKRW, CurrencyKRW, snapshot),
		ItemBrokerFee:         Convert(fixed.BrokerFeeRUB, CurrencyRUB, snapshot),
		ItemCustomsDuty:       Convert(fees.Duty, CurrencyKRW, snapshot),
		ItemCustomsClearance:  Convert(fees.Clearance, CurrencyKRW, snapshot),
		ItemRecyclingFee:      Convert(fees.Recycling, CurrencyKRW, snapshot),
		ItemPortTransfer:      Convert(fixed.PortTransferRUB, CurrencyRUB, snapshot),
		ItemWarehouse:         Convert(fixed.WarehouseRUB, CurrencyRUB, snapshot),
		ItemLabCertification:  Convert(fixed.LabCertificationRUB, CurrencyRUB, snapshot),
		ItemTempRegistration:  Convert(fixed.TempRegistrationRUB, CurrencyRUB, snapshot),
		ItemLongHaulTransport: Convert(fixed.LongHaulTransportRUB, CurrencyRUB, snapshot),
	}

	var total Money
	for _, key := range ItemOrder {
		total = total.Add(items[key])
	}

	return CostBreakdown{Items: items, Total: total, Snapshot: snapshot}
}
