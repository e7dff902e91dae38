package http

import (
	_ "embed"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/osmmap/internal/core/domain"
)

//go:embed web/index.html
var indexHTML []byte

// IndexHandler serves the Leaflet viewer.
func IndexHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(indexHTML)
	}
}

// StateHandler returns the full map snapshot.
func StateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Map.Snapshot())
	}
}

// ViewHandler returns what get_map_view would.
func ViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Map.GetView())
	}
}

// ViewChangedHandler accepts the viewport a browser is showing after the
// user panned or zoomed. The report is not broadcast.
func ViewChangedHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var view domain.MapView
		if err := c.BodyParser(&view); err != nil {
			return errBadRequest(c, "invalid view: "+err.Error())
		}
		if err := deps.Map.ReportViewport(view); err != nil {
			return errorFrom(c, err)
		}
		LoggerFromCtx(c.UserContext()).Debug("viewport reported",
			"center", view.Center, "zoom", view.Zoom)
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
