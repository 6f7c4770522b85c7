package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// InspectionReport is the marketplace's technical inspection card, with the
// Korean category terms already translated for display.
type InspectionReport struct {
	ModelYear       string
	FirstRegistered string
	Comments        string
	Usage           string
	RepairNeeded    []string
	PaintedParts    []string
	SeriousDamage   []string
	Tuning          []string
}

// InsuranceSummary aggregates recorded accident payouts in KRW.
type InsuranceSummary struct {
	OwnDamageKRW   int64
	OtherDamageKRW int64
}

var usageTranslations = map[string]string{
	"렌트":  "Аренда",
	"리스":  "Лизинг",
	"영업용": "Коммерческое использование",
}

var repairTranslations = map[string]string{
	"외장":    "Кузов",
	"내장":    "Интерьер",
	"광택":    "Полировка",
	"룸 클리링": "Чистка салона",
	"휠":     "Колёса",
	"타이어":   "Шины",
	"유리":    "Стекло",
}

const repairNeededTitle = "수리필요"

type inspectionPayload struct {
	Master struct {
		Detail struct {
			ModelYear             string   `json:"modelYear"`
			FirstRegistrationDate string   `json:"firstRegistrationDate"`
			Comments              string   `json:"comments"`
			UsageChangeTypes      []titled `json:"usageChangeTypes"`
			PaintPartTypes        []string `json:"paintPartTypes"`
			SeriousTypes          []string `json:"seriousTypes"`
			TuningStateTypes      []string `json:"tuningStateTypes"`
		} `json:"detail"`
	} `json:"master"`
	Etcs []struct {
		Type     titled `json:"type"`
		Children []struct {
			Type titled `json:"type"`
		} `json:"children"`
	} `json:"etcs"`
}

type titled struct {
	Title string `json:"title"`
}

// FetchInspection retrieves the technical card for a vehicle.
func (c *Client) FetchInspection(ctx context.Context, vehicleID int64) (*InspectionReport, error) {
	payload, err := c.get(ctx, fmt.Sprintf("%s/inspection/vehicle/%d", c.opts.BaseURL, vehicleID))
	if err != nil {
		return nil, fmt.Errorf("%w: inspection: %w", ErrListingUnavailable, err)
	}

	var raw inspectionPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: inspection: decode payload: %w", ErrListingUnavailable, err)
	}

	detail := raw.Master.Detail
	report := &InspectionReport{
		ModelYear:       detail.ModelYear,
		FirstRegistered: detail.FirstRegistrationDate,
		Comments:        detail.Comments,
		PaintedParts:    detail.PaintPartTypes,
		SeriousDamage:   detail.SeriousTypes,
		Tuning:          detail.TuningStateTypes,
	}

	if len(detail.UsageChangeTypes) > 0 {
		if translated, ok := usageTranslations[detail.UsageChangeTypes[0].Title]; ok {
			report.Usage = translated
		} else {
			report.Usage = detail.UsageChangeTypes[0].Title
		}
	}

	for _, etc := range raw.Etcs {
		if etc.Type.Title != repairNeededTitle {
			continue
		}
		for _, child := range etc.Children {
			item := child.Type.Title
			if translated, ok := repairTranslations[item]; ok {
				item = translated
			}
			report.RepairNeeded = append(report.RepairNeeded, item)
		}
	}

	c.logger.Debug().Int64("vehicle_id", vehicleID).Msg("fetched inspection report")
	return report, nil
}

type insurancePayload struct {
	MyAccidentCost    int64 `json:"myAccidentCost"`
	OtherAccidentCost int64 `json:"otherAccidentCost"`
}

// FetchInsurance retrieves recorded accident payouts for a vehicle.
func (c *Client) FetchInsurance(ctx context.Context, vehicleID int64, vehicleNo string) (*InsuranceSummary, error) {
	endpoint := fmt.Sprintf("%s/record/vehicle/%d/open?vehicleNo=%s",
		c.opts.BaseURL, vehicleID, url.QueryEscape(vehicleNo))

	payload, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: insurance: %w", ErrListingUnavailable, err)
	}

	var raw insurancePayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: insurance: decode payload: %w", ErrListingUnavailable, err)
	}

	c.logger.Debug().Int64("vehicle_id", vehicleID).Msg("fetched insurance summary")
	return &InsuranceSummary{
		OwnDamageKRW:   raw.MyAccidentCost,
		OtherDamageKRW: raw.OtherAccidentCost,
	}, nil
}
