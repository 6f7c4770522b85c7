package listing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const vehicleJSON = `{
  "category": {
    "manufacturerEnglishName": "Hyundai",
    "modelGroupEnglishName": "Tucson",
    "gradeDetailEnglishName": "Premium",
    "yearMonth": "202303"
  },
  "advertisement": {"price": 1500},
  "spec": {
    "mileage": 42315,
    "transmissionName": "오토",
    "displacement": 1998,
    "bodyName": "SUV"
  },
  "photos": [
    {"path": "/carpicture/01.jpg"},
    {"path": "carpicture/02.jpg"},
    {"path": ""}
  ],
  "vehicleNo": "12가3456",
  "vehicleId": 987654
}`

func testClient(baseURL string) *Client {
	return NewClient(Options{BaseURL: baseURL, Timeout: time.Second}, zerolog.Nop())
}

func TestFetchListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vehicle/12345" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Fatal("User-Agent header missing")
		}
		_, _ = w.Write([]byte(vehicleJSON))
	}))
	defer srv.Close()

	vehicle, err := testClient(srv.URL).FetchListing(context.Background(), 12345)
	if err != nil {
		t.Fatalf("FetchListing failed: %v", err)
	}

	if vehicle.Title() != "Hyundai Tucson Premium" {
		t.Fatalf("Title = %q", vehicle.Title())
	}
	if vehicle.PriceNative != 1500 {
		t.Fatalf("PriceNative = %d", vehicle.PriceNative)
	}
	if vehicle.RegistrationYear != 2023 || vehicle.RegistrationMonth != 3 {
		t.Fatalf("registration = %d-%02d", vehicle.RegistrationYear, vehicle.RegistrationMonth)
	}
	if !vehicle.IsAutomatic {
		t.Fatal("오토 transmission should map to automatic")
	}
	if vehicle.DisplacementCC != 1998 {
		t.Fatalf("DisplacementCC = %d", vehicle.DisplacementCC)
	}
	if len(vehicle.PhotoURLs) != 2 {
		t.Fatalf("PhotoURLs = %v", vehicle.PhotoURLs)
	}
	if vehicle.PhotoURLs[0] != "https://ci.encar.com/carpicture/01.jpg" {
		t.Fatalf("photo url = %q", vehicle.PhotoURLs[0])
	}
	if vehicle.VehicleID != 987654 || vehicle.VehicleNo != "12가3456" {
		t.Fatalf("vehicle keys = %d %q", vehicle.VehicleID, vehicle.VehicleNo)
	}
}

func TestFetchListingIncompletePayload(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no price", `{"category":{"yearMonth":"202303"},"advertisement":{"price":0},"spec":{"displacement":1998}}`},
		{"no displacement", `{"category":{"yearMonth":"202303"},"advertisement":{"price":1500},"spec":{"displacement":0}}`},
		{"bad yearMonth", `{"category":{"yearMonth":"23-03"},"advertisement":{"price":1500},"spec":{"displacement":1998}}`},
		{"not json", `<html>`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			if _, err := testClient(srv.URL).FetchListing(context.Background(), 1); !errors.Is(err, ErrListingUnavailable) {
				t.Fatalf("should fail with ErrListingUnavailable, got %v", err)
			}
		})
	}
}

func TestFetchListingHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).FetchListing(context.Background(), 1); !errors.Is(err, ErrListingUnavailable) {
		t.Fatalf("HTTP 502 should map to ErrListingUnavailable, got %v", err)
	}
}

func TestFetchInspectionTranslations(t *testing.T) {
	const body = `{
	  "master": {"detail": {
	    "modelYear": "2023",
	    "firstRegistrationDate": "20230315",
	    "comments": " clean ",
	    "usageChangeTypes": [{"title": "렌트"}],
	    "paintPartTypes": ["hood"],
	    "seriousTypes": [],
	    "tuningStateTypes": []
	  }},
	  "etcs": [
	    {"type": {"title": "수리필요"}, "children": [{"type": {"title": "타이어"}}, {"type": {"title": "unknown"}}]},
	    {"type": {"title": "기타"}, "children": [{"type": {"title": "유리"}}]}
	  ]
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inspection/vehicle/987654" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	report, err := testClient(srv.URL).FetchInspection(context.Background(), 987654)
	if err != nil {
		t.Fatalf("FetchInspection failed: %v", err)
	}

	if report.Usage != "Аренда" {
		t.Fatalf("Usage = %q", report.Usage)
	}
	if len(report.RepairNeeded) != 2 || report.RepairNeeded[0] != "Шины" || report.RepairNeeded[1] != "unknown" {
		t.Fatalf("RepairNeeded = %v", report.RepairNeeded)
	}
	if len(report.PaintedParts) != 1 {
		t.Fatalf("PaintedParts = %v", report.PaintedParts)
	}
}

func TestFetchInsurance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("vehicleNo"); got != "12가3456" {
			t.Fatalf("vehicleNo = %q", got)
		}
		_, _ = w.Write([]byte(`{"myAccidentCost": 1200000, "otherAccidentCost": 0}`))
	}))
	defer srv.Close()

	summary, err := testClient(srv.URL).FetchInsurance(context.Background(), 987654, "12가3456")
	if err != nil {
		t.Fatalf("FetchInsurance failed: %v", err)
	}
	if summary.OwnDamageKRW != 1200000 || summary.OtherDamageKRW != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}
