package httpapi

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/widget"
)

var validate = validator.New()

// StateReader exposes what each widget instance displays.
type StateReader interface {
	State(id widget.InstanceID) (widget.RenderState, bool)
}

// FixSink accepts location fixes pushed by the device.
type FixSink interface {
	Deliver(coords weather.Coordinates) int
}

// CoordinateReader reads the cached position.
type CoordinateReader interface {
	Read(ctx context.Context) (weather.Coordinates, bool, error)
}

// Deps are the handlers' collaborators. Fixes may be nil when fixes come
// from a static provider.
type Deps struct {
	Host    widget.Host
	Surface StateReader
	Fixes   FixSink
	Cache   CoordinateReader
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Post("/widgets/update", func(c *fiber.Ctx) error {
		var req batchUpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ids := make([]widget.InstanceID, 0, len(req.IDs))
		for _, id := range req.IDs {
			ids = append(ids, widget.InstanceID(id))
		}
		deps.Host.OnPlacementBatchUpdate(c.UserContext(), ids)

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"scheduled": len(ids)})
	})

	v1.Post("/widgets/:id/options", func(c *fiber.Ctx) error {
		id, err := parseInstanceID(c)
		if err != nil {
			return err
		}
		deps.Host.OnOptionsChanged(c.UserContext(), id)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"scheduled": 1})
	})

	v1.Delete("/widgets", func(c *fiber.Ctx) error {
		deps.Host.OnAllInstancesRemoved(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/widgets/:id", func(c *fiber.Ctx) error {
		id, err := parseInstanceID(c)
		if err != nil {
			return err
		}
		state, ok := deps.Surface.State(id)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "widget has not been rendered")
		}
		return c.JSON(state)
	})

	v1.Post("/location/fix", func(c *fiber.Ctx) error {
		if deps.Fixes == nil {
			return fiber.NewError(fiber.StatusConflict, "location fixes are not accepted in static mode")
		}

		var req fixRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		answered := deps.Fixes.Deliver(weather.Coordinates{Latitude: *req.Lat, Longitude: *req.Lon})
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"answered": answered})
	})

	v1.Get("/location", func(c *fiber.Ctx) error {
		coords, ok, err := deps.Cache.Read(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read cached location")
		}
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no location cached")
		}
		return c.JSON(coords)
	})
}

// batchUpdateRequest is the body of a batch update.
type batchUpdateRequest struct {
	IDs []int `json:"ids" validate:"required,min=1,dive,gte=0"`
}

// fixRequest is one device position; pointers tell "0" from "missing".
type fixRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

func parseInstanceID(c *fiber.Ctx) (widget.InstanceID, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid widget id")
	}
	return widget.InstanceID(id), nil
}
