package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/synergychantilly/cgresbox-backend/app/models"
	"github.com/synergychantilly/cgresbox-backend/app/repository"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/middleware"
)

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// HandleListCategories returns all active categories ordered by name.
// Admins may pass ?all=1 to include deactivated ones.
func HandleListCategories(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetCategoryRepository()

	var (
		categories []models.DocumentCategory
		err        error
	)
	if c.Query("all") == "1" {
		categories, err = repo.GetAll()
	} else {
		categories, err = repo.GetActive()
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "category_list_failed"})
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// HandleCreateCategory creates a category. Names must be unique among
// active categories; deactivated ones may be shadowed.
func HandleCreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	category := &models.DocumentCategory{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		IsActive:    true,
		CreatedBy:   middleware.AuthenticatedUserID(c),
	}
	if err := validate.Struct(category); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	repo := repository.GetGlobalFactory().GetCategoryRepository()
	exists, err := repo.ActiveNameExists(category.Name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "category_create_failed"})
	}
	if exists {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "name_taken", "message": "An active category with this name already exists"})
	}

	if err := repo.Create(category); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "category_create_failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// HandleUpdateCategory merges fields into a category.
func HandleUpdateCategory(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}

	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	repo := repository.GetGlobalFactory().GetCategoryRepository()
	category, err := repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "category_update_failed"})
	}

	if req.Name != "" && req.Name != category.Name {
		taken, err := repo.ActiveNameExistsExceptID(req.Name, category.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "category_update_failed"})
		}
		if taken {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "name_taken"})
		}
		category.Name = req.Name
	}
	if req.Description != "" {
		category.Description = req.Description
	}
	if req.Color != "" {
		category.Color = req.Color
	}
	if err := validate.Struct(category); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	if err := repo.Update(category); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "category_update_failed"})
	}
	return c.JSON(category)
}

// HandleDeleteCategory deactivates a category. Historical templates keep
// their reference; only new-template pickers lose it.
func HandleDeleteCategory(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}

	repo := repository.GetGlobalFactory().GetCategoryRepository()
	if err := repo.Deactivate(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "category_delete_failed"})
	}
	return c.JSON(fiber.Map{"ok": true})
}
