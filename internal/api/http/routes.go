package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/should-i-shovel/internal/forecast"
	"github.com/i474232898/should-i-shovel/internal/store"
)

var validate = validator.New()

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *forecast.Service) {
	forecastHandler := func(c *fiber.Ctx) error {
		loc, err := parseCoordinatesQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.Assess(c.UserContext(), loc)
		if err != nil {
			return forecastError(err)
		}
		return c.JSON(report)
	}
	app.Get("/forecast/coordinates", forecastHandler)
	app.Get("/forecast", forecastHandler)

	app.Get("/address", func(c *fiber.Ctx) error {
		var q addressQuery
		q.Address = c.Query("address")
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, err := service.ResolveAddress(c.UserContext(), q.Address)
		if errors.Is(err, forecast.ErrAddressNotFound) {
			return c.JSON([]*float64{nil, nil})
		}
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to resolve address")
		}
		return c.JSON([]float64{loc.Latitude, loc.Longitude})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/verdict", func(c *fiber.Ctx) error {
		loc, err := parseCoordinatesQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.Assess(c.UserContext(), loc)
		if err != nil {
			return forecastError(err)
		}
		return c.JSON(fiber.Map{
			"location":     report.Location,
			"verdict":      report.Verdict,
			"message":      report.Message,
			"generated_at": report.GeneratedAt,
		})
	})

	v1.Get("/verdict/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reports, err := service.GetRange(c.UserContext(), req.Location, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no shovel history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch shovel history")
		}

		return c.JSON(fiber.Map{
			"location": req.Location,
			"from":     req.From,
			"to":       req.To,
			"reports":  reports,
		})
	})
}

// forecastError maps service errors to HTTP errors. A malformed forecast is
// reported to the user as missing data.
func forecastError(err error) error {
	switch {
	case forecast.IsInvalidInput(err):
		return fiber.NewError(fiber.StatusNotFound, "no forecast data available for this location")
	case errors.Is(err, forecast.ErrNoForecast):
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch forecast")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to compute shovel verdict")
	}
}

// coordinatesQuery holds query parameters for identifying a location.
type coordinatesQuery struct {
	Latitude  string `validate:"required,latitude"`
	Longitude string `validate:"required,longitude"`
}

func parseCoordinatesQuery(c *fiber.Ctx) (forecast.Coordinates, error) {
	q := coordinatesQuery{
		Latitude:  c.Query("latitude"),
		Longitude: c.Query("longitude"),
	}
	if err := validate.Struct(q); err != nil {
		return forecast.Coordinates{}, err
	}

	lat, err := strconv.ParseFloat(q.Latitude, 64)
	if err != nil {
		return forecast.Coordinates{}, err
	}
	lon, err := strconv.ParseFloat(q.Longitude, 64)
	if err != nil {
		return forecast.Coordinates{}, err
	}
	return forecast.Coordinates{Latitude: lat, Longitude: lon}, nil
}

type addressQuery struct {
	Address string `validate:"required,max=256"`
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location forecast.Coordinates
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	loc, err := parseCoordinatesQuery(c)
	if err != nil {
		return err
	}
	h.Location = loc

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
