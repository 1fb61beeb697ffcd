package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses unless the handler
// already did. Interaction state is never cached by intermediaries; the
// configured endpoint list and map view only change on restart.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string
		switch {
		case path == "/v1/endpoints", path == "/v1/map":
			ttl = "public, max-age=300"
		case path == "/v1/state":
			ttl = "no-cache"
		case strings.HasPrefix(path, "/v1/"):
			ttl = "no-store"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}
