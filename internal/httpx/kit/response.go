package kit

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// RequestID extracts request id from headers
func RequestID(c *fiber.Ctx) string {
	rid := c.GetRespHeader("X-Request-ID")
	return lo.Ternary(rid != "", rid, c.Get("X-Request-ID"))
}

func envelope(status int, code, msg string, data any, meta any, c *fiber.Ctx) error {
	body := fiber.Map{
		"code":       code,
		"message":    msg,
		"data":       data,
		"request_id": RequestID(c),
	}
	if meta != nil {
		body["meta"] = meta
	}
	return c.Status(status).JSON(body)
}

// OK sends a 200 OK response with data
func OK(c *fiber.Ctx, data any) error {
	return envelope(fiber.StatusOK, "OK", "success", data, nil, c)
}

// Created sends a 201 Created response with data
func Created(c *fiber.Ctx, data any) error {
	return envelope(fiber.StatusCreated, "OK", "success", data, nil, c)
}

// List sends a 200 OK response with paginated data and metadata
func List(c *fiber.Ctx, items any, meta PageMeta) error {
	return envelope(fiber.StatusOK, "OK", "success", items, meta, c)
}

// WantsJSON reports whether the client prefers JSON over HTML.
func WantsJSON(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

// Render writes data through the named template, or as the JSON envelope
// for JSON clients. meta, when set, is bound to the template as "meta".
func Render(c *fiber.Ctx, status int, name string, data fiber.Map, meta any) error {
	if WantsJSON(c) {
		return envelope(status, "OK", "success", data, meta, c)
	}
	bind := fiber.Map{}
	for k, v := range data {
		bind[k] = v
	}
	if meta != nil {
		bind["meta"] = meta
	}
	return c.Status(status).Render(name, bind)
}

// Redirect sends a 302. JSON clients also get the target in the envelope
// under "location".
func Redirect(c *fiber.Ctx, location string) error {
	if WantsJSON(c) {
		c.Location(location)
		return envelope(fiber.StatusFound, "OK", "redirect", fiber.Map{"location": location}, nil, c)
	}
	return c.Redirect(location, fiber.StatusFound)
}
