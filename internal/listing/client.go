package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Options parameterise the marketplace readside client.
type Options struct {
	BaseURL      string
	PhotoBaseURL string
	Timeout      time.Duration
	UserAgent    string
	MaxPhotos    int
}

// Client reads vehicle, inspection and insurance data from the marketplace API.
type Client struct {
	opts   Options
	logger zerolog.Logger
	client *http.Client
}

// NewClient constructs a marketplace client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.encar.com/v1/readside"
	}
	opts.PhotoBaseURL = strings.TrimRight(opts.PhotoBaseURL, "/")
	if opts.PhotoBaseURL == "" {
		opts.PhotoBaseURL = "https://ci.encar.com"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxPhotos <= 0 {
		opts.MaxPhotos = 10
	}

	return &Client{
		opts:   opts,
		logger: logger.With().Str("component", "listing_client").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

type vehiclePayload struct {
	Category struct {
		ManufacturerEnglishName string `json:"manufacturerEnglishName"`
		ModelGroupEnglishName   string `json:"modelGroupEnglishName"`
		GradeDetailEnglishName  string `json:"gradeDetailEnglishName"`
		YearMonth               string `json:"yearMonth"`
	} `json:"category"`
	Advertisement struct {
		Price int64 `json:"price"`
	} `json:"advertisement"`
	Spec struct {
		Mileage          int64  `json:"mileage"`
		TransmissionName string `json:"transmissionName"`
		Displacement     int64  `json:"displacement"`
		BodyName         string `json:"bodyName"`
	} `json:"spec"`
	Photos []struct {
		Path string `json:"path"`
	} `json:"photos"`
	VehicleNo string `json:"vehicleNo"`
	VehicleID int64  `json:"vehicleId"`
}

// FetchListing retrieves one advertisement by its marketplace identifier.
func (c *Client) FetchListing(ctx context.Context, id int64) (*VehicleListing, error) {
	payload, err := c.get(ctx, fmt.Sprintf("%s/vehicle/%d", c.opts.BaseURL, id))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListingUnavailable, err)
	}

	var raw vehiclePayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %w", ErrListingUnavailable, err)
	}

	year, month, err := parseYearMonth(raw.Category.YearMonth)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %d: %w", ErrListingUnavailable, id, err)
	}

	vehicle := &VehicleListing{
		ID:                id,
		Make:              raw.Category.ManufacturerEnglishName,
		Model:             raw.Category.ModelGroupEnglishName,
		Trim:              raw.Category.GradeDetailEnglishName,
		PriceNative:       raw.Advertisement.Price,
		RegistrationYear:  year,
		RegistrationMonth: month,
		MileageKm:         raw.Spec.Mileage,
		IsAutomatic:       strings.Contains(raw.Spec.TransmissionName, "오토"),
		BodyType:          raw.Spec.BodyName,
		DisplacementCC:    raw.Spec.Displacement,
		VehicleNo:         raw.VehicleNo,
		VehicleID:         raw.VehicleID,
	}

	for _, photo := range raw.Photos {
		if len(vehicle.PhotoURLs) == c.opts.MaxPhotos {
			break
		}
		if url := c.photoURL(photo.Path); url != "" {
			vehicle.PhotoURLs = append(vehicle.PhotoURLs, url)
		}
	}

	if err := vehicle.validate(); err != nil {
		return nil, err
	}

	c.logger.Debug().Int64("listing_id", id).Str("title", vehicle.Title()).Msg("fetched listing")
	return vehicle, nil
}

func parseYearMonth(raw string) (int, int, error) {
	if len(raw) != 6 {
		return 0, 0, fmt.Errorf("yearMonth %q malformed", raw)
	}
	year, err := strconv.Atoi(raw[:4])
	if err != nil {
		return 0, 0, fmt.Errorf("yearMonth %q malformed", raw)
	}
	month, err := strconv.Atoi(raw[4:])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("yearMonth %q malformed", raw)
	}
	return year, month, nil
}

func (c *Client) photoURL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.opts.PhotoBaseURL + path
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Referer", "http://www.encar.com/")
	req.Header.Set("Cache-Control", "max-age=0")
	req.Header.Set("Connection", "keep-alive")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return payload, nil
}
