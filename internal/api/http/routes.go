package httpapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/epi-age-comparison/internal/agegroup"
	"github.com/i474232898/epi-age-comparison/internal/epidemic"
	"github.com/i474232898/epi-age-comparison/internal/epidemic/sources"
	"github.com/i474232898/epi-age-comparison/internal/pyramid"
	"github.com/i474232898/epi-age-comparison/internal/store"
)

var validate = validator.New()

// Service is the subset of epidemic.Service the handlers use.
type Service interface {
	Compare(ctx context.Context, region string, start, end time.Time) (epidemic.Comparison, error)
	Latest(region string) (epidemic.Comparison, error)
	History(region string) ([]epidemic.Comparison, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Service, registry *agegroup.Registry, computeTimeout time.Duration) {
	v1 := app.Group("/api/v1")

	v1.Get("/age-buckets", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"buckets": registry.Buckets(),
			"labels":  registry.Labels(),
		})
	})

	compute := func(c *fiber.Ctx) (epidemic.Comparison, error) {
		var req comparisonQuery
		if err := req.bind(c); err != nil {
			return epidemic.Comparison{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), computeTimeout)
		defer cancel()

		cmp, err := service.Compare(ctx, req.Region, req.Start, req.End)
		if err != nil {
			return epidemic.Comparison{}, toHTTPError(err)
		}
		return cmp, nil
	}

	v1.Get("/comparison", func(c *fiber.Ctx) error {
		cmp, err := compute(c)
		if err != nil {
			return err
		}
		return c.JSON(cmp)
	})

	v1.Get("/comparison/pyramid", func(c *fiber.Ctx) error {
		cmp, err := compute(c)
		if err != nil {
			return err
		}
		p, err := pyramid.Build(registry, cmp)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(p)
	})

	v1.Get("/comparison/latest", func(c *fiber.Ctx) error {
		q, err := parseRegionQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		cmp, err := service.Latest(q.Region)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(cmp)
	})

	v1.Get("/comparison/history", func(c *fiber.Ctx) error {
		q, err := parseRegionQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		cmps, err := service.History(q.Region)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(fiber.Map{
			"region":      q.Region,
			"comparisons": cmps,
		})
	})
}

// toHTTPError maps domain errors onto HTTP status codes.
func toHTTPError(err error) error {
	var (
		fetchErr *sources.FetchError
		recErr   *agegroup.ReconciliationError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no comparison stored for requested region")
	case errors.Is(err, epidemic.ErrInvalidRequest):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "comparison timed out")
	case errors.As(err, &fetchErr):
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch upstream data: "+fetchErr.Resource)
	case errors.As(err, &recErr):
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("unrecognized age group %q", recErr.Label))
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to compute comparison")
	}
}

// regionQuery holds the region query parameter.
type regionQuery struct {
	Region string `validate:"required,max=16"`
}

func parseRegionQuery(c *fiber.Ctx) (regionQuery, error) {
	// The region outlives the request once stored, so detach it from fasthttp's buffer.
	q := regionQuery{Region: utils.CopyString(c.Query("region"))}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// comparisonQuery holds query parameters for the comparison endpoints.
type comparisonQuery struct {
	Region string    `validate:"required,max=16"`
	Start  time.Time `validate:"required"`
	End    time.Time `validate:"required,gtefield=Start"`
}

func (q *comparisonQuery) bind(c *fiber.Ctx) error {
	rq, err := parseRegionQuery(c)
	if err != nil {
		return err
	}
	q.Region = rq.Region

	startStr := c.Query("start")
	endStr := c.Query("end")
	if startStr == "" || endStr == "" {
		return errors.New("start and end query parameters are required")
	}

	if q.Start, err = parseDate(startStr); err != nil {
		return err
	}
	if q.End, err = parseDate(endStr); err != nil {
		return err
	}

	return validate.Struct(q)
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(epidemic.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; use YYYY-MM-DD", s)
	}
	return d, nil
}
