package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/mwielgosz/flight-risk/internal/offers"
	"github.com/mwielgosz/flight-risk/internal/weather"
)

type fakeRiskReader struct {
	weather.Store
	rows []weather.DailyRisk
}

func (f *fakeRiskReader) ListDailyRisk(_ context.Context, _ string) ([]weather.DailyRisk, error) {
	return f.rows, nil
}

type fakeOfferReader struct {
	request *offers.Request
	offers  []offers.Offer
}

func (f *fakeOfferReader) EnsureRequest(_ context.Context, _, _, _ string, _ int) (int64, error) {
	return 0, nil
}

func (f *fakeOfferReader) ReplaceOffers(_ context.Context, _ int64, _ []offers.Offer, _ offers.RequestStatus, _ string) error {
	return nil
}

func (f *fakeOfferReader) GetRequest(_ context.Context, _, _, _ string, _ int) (*offers.Request, []offers.Offer, error) {
	return f.request, f.offers, nil
}

func newTestApp(h *Handlers) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app, h)
	return app
}

func TestValidationRejections(t *testing.T) {
	// Validation runs before any service is touched, so nil services are fine.
	app := newTestApp(&Handlers{})

	cases := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"ingest missing country", "POST", "/api/v1/weather/ingest?start=2026-02-01&end=2026-02-07", ""},
		{"ingest bad country", "POST", "/api/v1/weather/ingest?country=P1&start=2026-02-01&end=2026-02-07", ""},
		{"ingest bad date", "POST", "/api/v1/weather/ingest?country=PL&start=01-02-2026&end=2026-02-07", ""},
		{"ingest inverted range", "POST", "/api/v1/weather/ingest?country=PL&start=2026-02-07&end=2026-02-01", ""},
		{"risk missing country", "POST", "/api/v1/risk/compute", ""},
		{"risk list bad country", "GET", "/api/v1/risk?country=POL", ""},
		{"operations flights out of range", "POST", "/api/v1/operations/generate?country=PL&start=2026-02-01&end=2026-02-03&flights_per_day=500", ""},
		{"impact bad country", "POST", "/api/v1/impact/apply?country=1X", ""},
		{"offers bad origin", "POST", "/api/v1/offers/search", `{"origin":"WAWX","dest":"CDG","depart_date":"2026-03-01"}`},
		{"offers bad date", "POST", "/api/v1/offers/search", `{"origin":"WAW","dest":"CDG","depart_date":"03/01/2026"}`},
		{"offers adults out of range", "POST", "/api/v1/offers/search", `{"origin":"WAW","dest":"CDG","depart_date":"2026-03-01","adults":15}`},
		{"offers lookup missing dest", "GET", "/api/v1/offers?origin=WAW&depart_date=2026-03-01", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req *http.Request
			if tc.body != "" {
				req = httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tc.method, tc.target, nil)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Errorf("status %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestListRisk(t *testing.T) {
	reader := &fakeRiskReader{rows: []weather.DailyRisk{
		{AirportCode: "WAW", Day: "2026-02-01", Source: weather.SourceForecast, Score: 2.1, Level: weather.RiskHigh},
	}}
	app := newTestApp(&Handlers{RiskReader: reader})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/risk?country=PL", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}

	var payload struct {
		Country string `json:"country"`
		Risk    []struct {
			Airport   string  `json:"airport"`
			Day       string  `json:"day"`
			RiskScore float64 `json:"risk_score"`
			RiskLevel string  `json:"risk_level"`
		} `json:"risk"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Country != "PL" || len(payload.Risk) != 1 {
		t.Fatalf("payload %+v", payload)
	}
	if payload.Risk[0].Airport != "WAW" || payload.Risk[0].RiskLevel != "HIGH" {
		t.Errorf("risk row %+v", payload.Risk[0])
	}
}

func TestGetOffersNotFound(t *testing.T) {
	app := newTestApp(&Handlers{OfferReader: &fakeOfferReader{}})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/offers?origin=WAW&dest=CDG&depart_date=2026-03-01", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status %d, want 404", resp.StatusCode)
	}
}

func TestGetOffers(t *testing.T) {
	reader := &fakeOfferReader{
		request: &offers.Request{
			RequestID: 7, Origin: "WAW", Dest: "CDG", DepartDate: "2026-03-01",
			Adults: 1, Status: offers.StatusOK, OffersCount: 1,
		},
		offers: []offers.Offer{{
			OfferID: "abc", Source: offers.SourceAmadeus, PriceTotal: 120.5,
			Currency: "EUR", DurationMinutes: 130, CarrierCode: "LO",
		}},
	}
	app := newTestApp(&Handlers{OfferReader: reader})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/offers?origin=WAW&dest=CDG&depart_date=2026-03-01", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}

	var payload struct {
		Request struct {
			RequestID int64  `json:"request_id"`
			Status    string `json:"status"`
		} `json:"request"`
		Offers []struct {
			OfferID    string  `json:"offer_id"`
			PriceTotal float64 `json:"price_total"`
		} `json:"offers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Request.RequestID != 7 || payload.Request.Status != "ok" {
		t.Errorf("request %+v", payload.Request)
	}
	if len(payload.Offers) != 1 || payload.Offers[0].PriceTotal != 120.5 {
		t.Errorf("offers %+v", payload.Offers)
	}
}
