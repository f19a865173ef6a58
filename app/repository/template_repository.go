package repository

import (
	"github.com/synergychantilly/cgresbox-backend/app/models"
	"gorm.io/gorm"
)

// templateRepository implements the TemplateRepository interface
type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new template repository instance
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

// Create creates a new document template in the database
func (r *templateRepository) Create(template *models.DocumentTemplate) error {
	return r.db.Create(template).Error
}

// GetByID retrieves a template by its ID
func (r *templateRepository) GetByID(id uint) (*models.DocumentTemplate, error) {
	var template models.DocumentTemplate
	err := r.db.Preload("Category").Preload("Tags").First(&template, id).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// GetActive retrieves all active templates ordered by title
func (r *templateRepository) GetActive() ([]models.DocumentTemplate, error) {
	var templates []models.DocumentTemplate
	err := r.db.Preload("Category").Preload("Tags").
		Where("is_active = ?", true).Order("title").Find(&templates).Error
	return templates, err
}

// GetAll retrieves every template including deactivated ones
func (r *templateRepository) GetAll() ([]models.DocumentTemplate, error) {
	var templates []models.DocumentTemplate
	err := r.db.Preload("Category").Preload("Tags").Order("title").Find(&templates).Error
	return templates, err
}

// GetByProviderTemplateID resolves the provider's template id to the active
// internal template. This is the linking field webhook payloads carry.
func (r *templateRepository) GetByProviderTemplateID(providerTemplateID string) (*models.DocumentTemplate, error) {
	var template models.DocumentTemplate
	err := r.db.Where("provider_template_id = ? AND is_active = ?", providerTemplateID, true).
		First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// Update updates an existing template in the database
func (r *templateRepository) Update(template *models.DocumentTemplate) error {
	return r.db.Save(template).Error
}

// Deactivate soft deletes a template. Existing status rows stay valid; the
// template just stops participating in future synchronization.
func (r *templateRepository) Deactivate(id uint) error {
	result := r.db.Model(&models.DocumentTemplate{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Count returns the total number of templates
func (r *templateRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.DocumentTemplate{}).Count(&count).Error
	return count, err
}
