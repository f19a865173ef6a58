package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/synergychantilly/cgresbox-backend/app/models"
	"github.com/synergychantilly/cgresbox-backend/app/repository"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/database"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/docseal"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/docsync"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/middleware"
)

// HandleRunSweep runs a full reconciliation sweep on demand and reports
// created/skipped/failed counts rather than an all-or-nothing result.
func HandleRunSweep(c *fiber.Ctx) error {
	svc := docsync.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := svc.FullSweep(ctx)
	if err != nil {
		fiberlog.Errorf("[docsync] on-demand sweep failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "sweep_failed"})
	}
	return c.JSON(result)
}

// HandleApproveUser approves a pending employee and synchronizes their
// status rows against every active template.
func HandleApproveUser(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(uint(userID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "approve_failed"})
	}

	if user.Status != models.STATUS_APPROVED {
		user.Approve(middleware.AuthenticatedUserID(c))
		if err := repo.Update(user); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "approve_failed"})
		}
	}

	svc := docsync.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := svc.SyncUser(ctx, user.ID)
	if err != nil {
		fiberlog.Errorf("[docsync] user %d sync failed: %v", user.ID, err)
		result = &docsync.SweepResult{}
	}
	return c.JSON(fiber.Map{"user": user, "sync": result})
}

// HandleListUnprocessedWebhooks lists ledger entries that failed matching
// or processing, oldest first, for operator review.
func HandleListUnprocessedWebhooks(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	repo := repository.GetGlobalFactory().GetWebhookEventRepository()
	events, err := repo.GetUnprocessed(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_list_failed"})
	}
	return c.JSON(fiber.Map{"events": events})
}

// HandleReprocessWebhook re-runs reconciliation for a failed ledger entry,
// typically after a sweep created the missing status row.
func HandleReprocessWebhook(c *fiber.Ctx) error {
	eventID, err := c.ParamsInt("id")
	if err != nil || eventID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}

	svc := docseal.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	outcome, err := svc.ReprocessEvent(ctx, uint(eventID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reprocess_failed"})
	}
	return c.JSON(outcome)
}
