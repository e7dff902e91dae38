package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// cacheRules is matched in order against the request path.
var cacheRules = []struct {
	prefix string
	value  string
}{
	{"/api/sse", "no-cache"},
	{"/api/", "no-store"},
	{"/v1/", "no-store"},
	{"/metrics", "no-cache"},
	{"/docs", "public, max-age=3600"},
	{"/", "no-cache"},
}

// CachingMiddleware sets Cache-Control on GET responses that did not set it.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		path := c.Path()
		for _, r := range cacheRules {
			if strings.HasPrefix(path, r.prefix) {
				c.Set(fiber.HeaderCacheControl, r.value)
				break
			}
		}
		return err
	}
}
