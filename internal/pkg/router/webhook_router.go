package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/synergychantilly/cgresbox-backend/app/controllers"
)

// WebhookRouter mounts the provider-facing endpoint. It is outside the
// /api group on purpose: no API key, no rate limiter - the provider
// authenticates with its signature header and must never be throttled
// into retry storms.
type WebhookRouter struct {
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	app.Post("/webhooks/docuseal", controllers.HandleDocusealWebhook)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
