package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// snapshotETag derives a weak validator from the snapshot version, which
// changes on every published state change.
func snapshotETag(version uint64) string {
	return `W/"v` + strconv.FormatUint(version, 10) + `"`
}

// notModified sets the ETag header and reports whether the client's
// If-None-Match already names it.
func notModified(c *fiber.Ctx, etag string) bool {
	c.Set(fiber.HeaderETag, etag)
	for _, candidate := range strings.Split(c.Get(fiber.HeaderIfNoneMatch), ",") {
		if strings.TrimSpace(candidate) == etag {
			return true
		}
	}
	return false
}
