package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/synergychantilly/cgresbox-backend/app/models"
	"github.com/synergychantilly/cgresbox-backend/app/repository"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/database"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/docseal"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/middleware"
)

// HandleGetMyDocuments returns the authenticated employee's status rows
// with derived expiry projections.
func HandleGetMyDocuments(c *fiber.Ctx) error {
	userID := middleware.AuthenticatedUserID(c)
	repo := repository.GetGlobalFactory().GetDocumentStatusRepository()

	rows, err := repo.GetForUser(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "status_list_failed"})
	}
	return c.JSON(fiber.Map{"documents": toStatusViews(rows, time.Now())})
}

// HandleGetUserDocuments returns one employee's status rows (admin view).
func HandleGetUserDocuments(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}

	repo := repository.GetGlobalFactory().GetDocumentStatusRepository()
	rows, err := repo.GetForUser(uint(userID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "status_list_failed"})
	}
	return c.JSON(fiber.Map{"documents": toStatusViews(rows, time.Now())})
}

// HandleGetAllDocuments returns the full status table (admin view).
func HandleGetAllDocuments(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetDocumentStatusRepository()
	rows, err := repo.GetAll()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "status_list_failed"})
	}
	return c.JSON(fiber.Map{"documents": toStatusViews(rows, time.Now())})
}

// HandleManualComplete marks a status row completed on an administrator's
// say-so, bypassing the provider. Already-completed rows are a no-op.
func HandleManualComplete(c *fiber.Ctx) error {
	statusID, err := c.ParamsInt("id")
	if err != nil || statusID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}

	svc := docseal.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	row, err := svc.ManualComplete(ctx, uint(statusID), middleware.AuthenticatedUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "manual_complete_failed"})
	}

	// Re-read through the store so the response carries the template and
	// the derived expiry projections.
	repo := repository.GetGlobalFactory().GetDocumentStatusRepository()
	full, err := repo.GetByID(row.ID)
	if err != nil {
		return c.JSON(row)
	}
	return c.JSON(toStatusViews([]models.UserDocumentStatus{*full}, time.Now())[0])
}

// HandleGetUserDocument returns the single status row for one employee and
// one template (admin view), the lookup used when re-associating an
// unmatched webhook by hand.
func HandleGetUserDocument(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}
	templateID, err := c.ParamsInt("templateId")
	if err != nil || templateID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}

	repo := repository.GetGlobalFactory().GetDocumentStatusRepository()
	row, err := repo.GetOne(uint(userID), uint(templateID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "status_get_failed"})
	}
	return c.JSON(toStatusViews([]models.UserDocumentStatus{*row}, time.Now())[0])
}

// HandleDueReminders lists rows whose expiry has entered the template's
// reminder window. The external notifier consumes this and reports back
// via HandleMarkReminderSent.
func HandleDueReminders(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetDocumentStatusRepository()
	rows, err := repo.DueReminders(time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reminder_query_failed"})
	}
	return c.JSON(fiber.Map{"documents": toStatusViews(rows, time.Now())})
}

// HandleMarkReminderSent records that a reminder went out for a row.
func HandleMarkReminderSent(c *fiber.Ctx) error {
	statusID, err := c.ParamsInt("id")
	if err != nil || statusID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}

	repo := repository.GetGlobalFactory().GetDocumentStatusRepository()
	if err := repo.MarkReminderSent(uint(statusID), time.Now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reminder_update_failed"})
	}
	return c.JSON(fiber.Map{"ok": true})
}
