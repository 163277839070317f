package httpx

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"fiber-ent-blog/internal/httpx/kit"
	"fiber-ent-blog/internal/logx"
	"fiber-ent-blog/pkg"
)

var httpxLogger = logx.GetScope("httpx")

// RegisterCommonMiddlewares registers common middlewares and a structured access log.
func RegisterCommonMiddlewares(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New())

	// Structured access log
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)
		status := c.Response().StatusCode()
		if err != nil {
			// The error handler runs after this middleware returns.
			status = kit.AsAPIError(err).HTTPStatus
		}
		log := httpxLogger.Info
		switch {
		case status >= fiber.StatusInternalServerError:
			log = httpxLogger.Error
		case status >= fiber.StatusBadRequest && status != fiber.StatusNotFound:
			log = httpxLogger.Warn
		}
		log("access",
			zap.String("method", c.Method()),
			zap.String("path", c.OriginalURL()),
			zap.Int("status", status),
			zap.Int64("latency_ms", latency.Milliseconds()),
			zap.String("latency", pkg.SmartDurationFormat(latency)),
			zap.String("ip", c.IP()),
			zap.String("ua", c.Get("User-Agent")),
			zap.String("request_id", kit.RequestID(c)),
			zap.Bool("auth", c.Locals("auth") != nil),
		)
		return err
	})
}
