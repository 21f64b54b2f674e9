package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pharmacare/whatsapp-bot/internal/handlers"
	"github.com/pharmacare/whatsapp-bot/internal/middleware"
)

// SetupRoutes configures all API routes.
func SetupRoutes(app *fiber.App, health *handlers.HealthHandler, webhook *handlers.WebhookHandler, appSecret string) {
	app.Get("/", health.Root)
	app.Get("/health", health.Check)

	app.Get("/webhook", webhook.Verify)
	if appSecret != "" {
		app.Post("/webhook", middleware.ValidateSignature(appSecret), webhook.Receive)
	} else {
		app.Post("/webhook", webhook.Receive)
	}
}
