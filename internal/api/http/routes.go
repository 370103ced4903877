package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tame-insitu/sensor-daily-stats/internal/statslog"
	"github.com/tame-insitu/sensor-daily-stats/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, status *store.MemoryStore, statsLog *statslog.FileLog) {
	v1 := app.Group("/api/v1")

	v1.Get("/sensors", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sensors": status.All(),
		})
	})

	v1.Get("/sensors/:sensor", func(c *fiber.Ctx) error {
		res, err := status.Get(c.Params("sensor"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no run result for requested sensor")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch run result")
		}
		return c.JSON(res)
	})

	v1.Get("/sensors/:sensor/stats", func(c *fiber.Ctx) error {
		var req statsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		recs, err := statsLog.Read(req.Sensor, req.From, req.To)
		if err != nil {
			if errors.Is(err, statslog.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no statistics log for requested sensor")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read statistics log")
		}

		return c.JSON(fiber.Map{
			"sensor":  req.Sensor,
			"from":    req.From,
			"to":      req.To,
			"records": recs,
		})
	})
}

// statsQuery holds parameters for the per-sensor statistics endpoint.
type statsQuery struct {
	Sensor string    `validate:"required"`
	From   time.Time `validate:"required"`
	To     time.Time `validate:"required,gtefield=From"`
}

func (q *statsQuery) bind(c *fiber.Ctx) error {
	q.Sensor = c.Params("sensor")

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

	q.From = from
	q.To = to
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
