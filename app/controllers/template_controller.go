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
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/docsync"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/middleware"
)

type templateRequest struct {
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	CategoryID          uint     `json:"category_id"`
	ProviderTemplateID  string   `json:"provider_template_id"`
	ProviderTemplateURL string   `json:"provider_template_url"`
	IsRequired          *bool    `json:"is_required"`
	ExpiryDays          *int     `json:"expiry_days"`
	ReminderDays        *int     `json:"reminder_days"`
	Tags                []string `json:"tags"`
}

// HandleListTemplates returns active templates ordered by title; admins
// may pass ?all=1 to include deactivated ones.
func HandleListTemplates(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetTemplateRepository()

	var (
		templates []models.DocumentTemplate
		err       error
	)
	if c.Query("all") == "1" {
		templates, err = repo.GetAll()
	} else {
		templates, err = repo.GetActive()
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "template_list_failed"})
	}
	return c.JSON(fiber.Map{"templates": templates})
}

// HandleCreateTemplate creates a template and immediately synchronizes a
// not_started row for every eligible employee.
func HandleCreateTemplate(c *fiber.Ctx) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	catRepo := repository.GetGlobalFactory().GetCategoryRepository()
	if _, err := catRepo.GetByID(req.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "category does not exist"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "template_create_failed"})
	}

	isRequired := true
	if req.IsRequired != nil {
		isRequired = *req.IsRequired
	}
	template := &models.DocumentTemplate{
		Title:               req.Title,
		Description:         req.Description,
		CategoryID:          req.CategoryID,
		ProviderTemplateID:  req.ProviderTemplateID,
		ProviderTemplateURL: req.ProviderTemplateURL,
		IsRequired:          isRequired,
		ExpiryDays:          req.ExpiryDays,
		ReminderDays:        req.ReminderDays,
		IsActive:            true,
		CreatedBy:           middleware.AuthenticatedUserID(c),
	}
	if err := template.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	db := database.GetDB()
	for _, name := range req.Tags {
		tag := models.Tag{Name: name}
		if err := tag.FindOrCreate(db); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "template_create_failed"})
		}
		template.Tags = append(template.Tags, tag)
	}

	repo := repository.GetGlobalFactory().GetTemplateRepository()
	if err := repo.Create(template); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "template_create_failed"})
	}

	result := syncNewTemplate(template.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"template": template, "sync": result})
}

// HandleUpdateTemplate merges fields into a template. Reactivating a
// template re-runs its synchronization.
func HandleUpdateTemplate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}

	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	repo := repository.GetGlobalFactory().GetTemplateRepository()
	template, err := repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "template_update_failed"})
	}

	if req.Title != "" {
		template.Title = req.Title
	}
	if req.Description != "" {
		template.Description = req.Description
	}
	if req.CategoryID != 0 {
		catRepo := repository.GetGlobalFactory().GetCategoryRepository()
		if _, err := catRepo.GetByID(req.CategoryID); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "category does not exist"})
		}
		template.CategoryID = req.CategoryID
	}
	if req.ProviderTemplateID != "" {
		template.ProviderTemplateID = req.ProviderTemplateID
	}
	if req.ProviderTemplateURL != "" {
		template.ProviderTemplateURL = req.ProviderTemplateURL
	}
	if req.IsRequired != nil {
		template.IsRequired = *req.IsRequired
	}
	if req.ExpiryDays != nil {
		template.ExpiryDays = req.ExpiryDays
	}
	if req.ReminderDays != nil {
		template.ReminderDays = req.ReminderDays
	}
	if err := template.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	if err := repo.Update(template); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "template_update_failed"})
	}
	return c.JSON(template)
}

// HandleDeleteTemplate deactivates a template. Existing status rows stay;
// the template simply leaves future synchronization.
func HandleDeleteTemplate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}

	repo := repository.GetGlobalFactory().GetTemplateRepository()
	if err := repo.Deactivate(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "template_delete_failed"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

func syncNewTemplate(templateID uint) *docsync.SweepResult {
	svc := docsync.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := svc.SyncTemplate(ctx, templateID)
	if err != nil {
		fiberlog.Errorf("[docsync] template %d sync failed: %v", templateID, err)
		return &docsync.SweepResult{}
	}
	return result
}
