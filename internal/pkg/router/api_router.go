package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/synergychantilly/cgresbox-backend/app/controllers"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware())

	// Employee-facing
	v1.Get("/documents", controllers.HandleGetMyDocuments)
	v1.Get("/categories", controllers.HandleListCategories)
	v1.Get("/templates", controllers.HandleListTemplates)

	// Administrative
	admin := v1.Group("/admin", middleware.RequireAdmin())
	admin.Post("/categories", controllers.HandleCreateCategory)
	admin.Patch("/categories/:id", controllers.HandleUpdateCategory)
	admin.Delete("/categories/:id", controllers.HandleDeleteCategory)

	admin.Post("/templates", controllers.HandleCreateTemplate)
	admin.Patch("/templates/:id", controllers.HandleUpdateTemplate)
	admin.Delete("/templates/:id", controllers.HandleDeleteTemplate)

	admin.Get("/documents", controllers.HandleGetAllDocuments)
	admin.Get("/users/:id/documents", controllers.HandleGetUserDocuments)
	admin.Get("/users/:id/documents/:templateId", controllers.HandleGetUserDocument)
	admin.Post("/documents/:id/complete", controllers.HandleManualComplete)
	admin.Get("/documents/reminders/due", controllers.HandleDueReminders)
	admin.Post("/documents/:id/reminder-sent", controllers.HandleMarkReminderSent)

	admin.Post("/users/:id/approve", controllers.HandleApproveUser)
	admin.Post("/sync/sweep", controllers.HandleRunSweep)
	admin.Get("/webhooks/unprocessed", controllers.HandleListUnprocessedWebhooks)
	admin.Post("/webhooks/:id/reprocess", controllers.HandleReprocessWebhook)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
