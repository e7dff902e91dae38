package http

import (
	"hash/fnv"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// ETagMiddleware tags successful GET bodies with a weak validator and
// answers a matching If-None-Match with 304. Viewers that poll /api/state
// instead of holding a push channel only pay for changes.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}

		h := fnv.New64a()
		_, _ = h.Write(c.Response().Body())
		etag := `W/"` + strconv.FormatUint(h.Sum64(), 16) + `"`
		c.Set(fiber.HeaderETag, etag)

		if c.Get(fiber.HeaderIfNoneMatch) == etag {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}
