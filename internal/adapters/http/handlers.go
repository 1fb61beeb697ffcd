package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/pkg/geospatial"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// EndpointsResponse lists the configured endpoints and the active one.
type EndpointsResponse struct {
	Endpoints []string `json:"endpoints"`
	Active    string   `json:"active"`
}

type selectEndpointRequest struct {
	Endpoint string `json:"endpoint"`
}

// StateHandler returns the current snapshot. Clients polling with
// If-None-Match get 304 until the state changes.
func StateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := deps.Machine.Snapshot()
		if notModified(c, snapshotETag(snap.Version)) {
			return c.SendStatus(fiber.StatusNotModified)
		}
		return c.JSON(snap)
	}
}

// EndpointsHandler returns the endpoint list in configured order.
func EndpointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(EndpointsResponse{
			Endpoints: deps.Machine.Endpoints(),
			Active:    deps.Machine.Snapshot().ActiveEndpoint,
		})
	}
}

// MapHandler returns the initial map view.
func MapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Map)
	}
}

// StartDrawingHandler opens a drawing session, discarding the current AOI and result.
func StartDrawingHandler(deps *Dependencies) fiber.Handler {
	return submitHandler(deps, func(*fiber.Ctx) (domain.Event, error) {
		return domain.StartDrawing{}, nil
	})
}

// StopDrawingHandler cancels the drawing session.
func StopDrawingHandler(deps *Dependencies) fiber.Handler {
	return submitHandler(deps, func(*fiber.Ctx) (domain.Event, error) {
		return domain.StopDrawing{}, nil
	})
}

// CapturePolygonHandler hands a finished polygon to the machine as the draw
// tool would. The body is a GeoJSON Polygon geometry or a Feature wrapping one.
func CapturePolygonHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ring, err := geospatial.ParsePolygon(c.Body())
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		snap, err := deps.Machine.Submit(c.UserContext(), domain.PolygonCaptured{Ring: ring})
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(snap)
	}
}

// SelectEndpointHandler switches the active endpoint. With an AOI present
// this issues a fresh query, also when the endpoint is unchanged.
func SelectEndpointHandler(deps *Dependencies) fiber.Handler {
	return submitHandler(deps, func(c *fiber.Ctx) (domain.Event, error) {
		var req selectEndpointRequest
		if err := c.BodyParser(&req); err != nil {
			return nil, errors.New("invalid request body")
		}
		id := strings.TrimSpace(req.Endpoint)
		if id == "" {
			return nil, errors.New("endpoint is required")
		}
		return domain.EndpointChanged{EndpointID: id}, nil
	})
}

// ClearErrorHandler dismisses a failed query and any capture error.
func ClearErrorHandler(deps *Dependencies) fiber.Handler {
	return submitHandler(deps, func(*fiber.Ctx) (domain.Event, error) {
		return domain.ClearError{}, nil
	})
}

// PingHandler starts a connectivity probe of the remote API. The outcome
// shows up as pong in later snapshots.
func PingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Machine.Dispatch(c.UserContext(), domain.PingRequested{}); err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "pinging"})
	}
}

// RecentQueriesHandler returns the most recent resolved queries from the
// query log, newest first.
func RecentQueriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.QueryLog == nil {
			return errFromDomain(c, domain.ErrNotConfigured)
		}

		limit := c.QueryInt("limit", defaultRecentLimit)
		if limit <= 0 || limit > maxRecentLimit {
			return errBadRequest(c, "limit must be between 1 and 500")
		}

		entries, err := deps.QueryLog.Recent(c.UserContext(), limit)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("query log read failed", "error", err)
			return errInternal(c, "could not read query log")
		}
		if entries == nil {
			entries = []domain.QueryLogEntry{}
		}
		return c.JSON(fiber.Map{"data": entries, "limit": limit})
	}
}

// submitHandler builds the event from the request, waits for the machine
// to apply it and answers with the resulting snapshot.
func submitHandler(deps *Dependencies, build func(*fiber.Ctx) (domain.Event, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ev, err := build(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		snap, err := deps.Machine.Submit(c.UserContext(), ev)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(snap)
	}
}
