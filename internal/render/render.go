// Package render is the boundary to the templating collaborator. Handlers
// produce plain view data; how it becomes markup is a deployment concern.
package render

import (
	"github.com/gofiber/fiber/v2"
)

// Renderer turns a named page and its view data into a response body.
type Renderer interface {
	Render(c *fiber.Ctx, status int, page string, data fiber.Map) error
}

// JSON is the default Renderer: it emits the view data as JSON with the
// page name attached. A deployment that wants HTML plugs in its own
// Renderer without touching the handlers.
type JSON struct{}

// Render writes the page data as a JSON body.
func (JSON) Render(c *fiber.Ctx, status int, page string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["page"] = page
	return c.Status(status).JSON(data)
}
