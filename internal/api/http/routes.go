package httpapi

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mwielgosz/flight-risk/internal/airports"
	"github.com/mwielgosz/flight-risk/internal/flights"
	"github.com/mwielgosz/flight-risk/internal/offers"
	"github.com/mwielgosz/flight-risk/internal/weather"
)

var validate = validator.New()

// Handlers bundles the pipeline services the HTTP surface triggers. Each
// fiber handler invocation is an independent worker; handlers share no state
// beyond the store the services write to.
type Handlers struct {
	Airports       *airports.Importer
	AirportsCSV    string
	Weather        *weather.Ingestor
	Risk           *weather.RiskScorer
	RiskReader     weather.Store
	Operations     *flights.Generator
	Impact         *flights.ImpactSimulator
	Offers         *offers.Ingestor
	OfferReader    offers.Store
	OfferFallbackN int
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, h *Handlers) {
	v1 := app.Group("/api/v1")

	v1.Post("/airports/import", func(c *fiber.Ctx) error {
		path := c.Query("path", h.AirportsCSV)
		summary, err := h.Airports.ImportCSV(c.Context(), path)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"summary": summary})
	})

	v1.Post("/weather/ingest", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		summary, err := h.Weather.IngestCountry(c.Context(), req.Country, req.start, req.end)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"summary": summary})
	})

	v1.Post("/risk/compute", func(c *fiber.Ctx) error {
		cc, err := parseCountry(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		summary, err := h.Risk.ComputeCountry(c.Context(), cc)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"summary": summary})
	})

	v1.Get("/risk", func(c *fiber.Ctx) error {
		cc, err := parseCountry(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		rows, err := h.RiskReader.ListDailyRisk(c.Context(), cc)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"country": cc, "risk": riskJSON(rows)})
	})

	v1.Post("/operations/generate", func(c *fiber.Ctx) error {
		var req operationsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		summary, err := h.Operations.GenerateCountry(c.Context(), req.Country, req.start, req.end, req.FlightsPerDay)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"summary": summary})
	})

	v1.Post("/impact/apply", func(c *fiber.Ctx) error {
		cc, err := parseCountry(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		summary, err := h.Impact.ApplyCountry(c.Context(), cc)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"summary": summary})
	})

	v1.Post("/offers/search", func(c *fiber.Ctx) error {
		var req offerSearchBody
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Adults == 0 {
			req.Adults = 1
		}
		if req.FallbackN == 0 {
			req.FallbackN = h.OfferFallbackN
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		summary, err := h.Offers.FetchWithFallback(c.Context(), req.Origin, req.Dest, req.DepartDate, req.Adults, req.FallbackN)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"summary": summary})
	})

	v1.Get("/offers", func(c *fiber.Ctx) error {
		req := offerLookupQuery{
			Origin:     c.Query("origin"),
			Dest:       c.Query("dest"),
			DepartDate: c.Query("depart_date"),
			Adults:     c.QueryInt("adults", 1),
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		request, list, err := h.OfferReader.GetRequest(c.Context(), req.Origin, req.Dest, req.DepartDate, req.Adults)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if request == nil {
			return fiber.NewError(fiber.StatusNotFound, "no offer request for given parameters")
		}
		return c.JSON(fiber.Map{"request": requestJSON(*request), "offers": offersJSON(list)})
	})
}

type rangeQuery struct {
	Country string `validate:"required,len=2,alpha"`
	Start   string `validate:"required,datetime=2006-01-02"`
	End     string `validate:"required,datetime=2006-01-02"`

	start time.Time
	end   time.Time
}

func (r *rangeQuery) bind(c *fiber.Ctx) error {
	r.Country = c.Query("country")
	r.Start = c.Query("start")
	r.End = c.Query("end")
	if err := validate.Struct(r); err != nil {
		return err
	}

	var err error
	if r.start, err = time.Parse("2006-01-02", r.Start); err != nil {
		return err
	}
	if r.end, err = time.Parse("2006-01-02", r.End); err != nil {
		return err
	}
	if r.end.Before(r.start) {
		return fiber.NewError(fiber.StatusBadRequest, "end must not be before start")
	}
	return nil
}

type operationsQuery struct {
	rangeQuery
	FlightsPerDay int `validate:"min=1,max=100"`
}

func (r *operationsQuery) bind(c *fiber.Ctx) error {
	if err := r.rangeQuery.bind(c); err != nil {
		return err
	}
	r.FlightsPerDay = c.QueryInt("flights_per_day", 10)
	return validate.Struct(r)
}

type offerSearchBody struct {
	Origin     string `json:"origin" validate:"required,len=3,alpha"`
	Dest       string `json:"dest" validate:"required,len=3,alpha"`
	DepartDate string `json:"depart_date" validate:"required,datetime=2006-01-02"`
	Adults     int    `json:"adults" validate:"min=1,max=9"`
	FallbackN  int    `json:"fallback_n" validate:"min=1,max=50"`
}

// offerLookupQuery identifies a persisted offer request; lookups never
// trigger a search, so there is no fallback knob.
type offerLookupQuery struct {
	Origin     string `validate:"required,len=3,alpha"`
	Dest       string `validate:"required,len=3,alpha"`
	DepartDate string `validate:"required,datetime=2006-01-02"`
	Adults     int    `validate:"min=1,max=9"`
}

func parseCountry(c *fiber.Ctx) (string, error) {
	q := struct {
		Country string `validate:"required,len=2,alpha"`
	}{Country: c.Query("country")}
	if err := validate.Struct(q); err != nil {
		return "", err
	}
	return q.Country, nil
}

func riskJSON(rows []weather.DailyRisk) []fiber.Map {
	out := make([]fiber.Map, 0, len(rows))
	for _, r := range rows {
		out = append(out, fiber.Map{
			"airport":    r.AirportCode,
			"day":        r.Day,
			"source":     r.Source,
			"risk_score": r.Score,
			"risk_level": r.Level,
		})
	}
	return out
}

func requestJSON(r offers.Request) fiber.Map {
	return fiber.Map{
		"request_id":   r.RequestID,
		"origin":       r.Origin,
		"dest":         r.Dest,
		"depart_date":  r.DepartDate,
		"adults":       r.Adults,
		"status":       r.Status,
		"offers_count": r.OffersCount,
		"error":        r.ErrorMessage,
	}
}

func offersJSON(list []offers.Offer) []fiber.Map {
	out := make([]fiber.Map, 0, len(list))
	for _, o := range list {
		out = append(out, fiber.Map{
			"offer_id":     o.OfferID,
			"source":       o.Source,
			"price_total":  o.PriceTotal,
			"currency":     o.Currency,
			"stops":        o.Stops,
			"duration_min": o.DurationMinutes,
			"carrier":      o.CarrierCode,
		})
	}
	return out
}
