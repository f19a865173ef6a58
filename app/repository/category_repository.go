package repository

import (
	"github.com/synergychantilly/cgresbox-backend/app/models"
	"gorm.io/gorm"
)

// categoryRepository implements the CategoryRepository interface
type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository instance
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// Create creates a new document category in the database
func (r *categoryRepository) Create(category *models.DocumentCategory) error {
	return r.db.Create(category).Error
}

// GetByID retrieves a category by its ID
func (r *categoryRepository) GetByID(id uint) (*models.DocumentCategory, error) {
	var category models.DocumentCategory
	err := r.db.First(&category, id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetActive retrieves all active categories ordered by name
func (r *categoryRepository) GetActive() ([]models.DocumentCategory, error) {
	var categories []models.DocumentCategory
	err := r.db.Where("is_active = ?", true).Order("name").Find(&categories).Error
	return categories, err
}

// GetAll retrieves every category including deactivated ones
func (r *categoryRepository) GetAll() ([]models.DocumentCategory, error) {
	var categories []models.DocumentCategory
	err := r.db.Order("name").Find(&categories).Error
	return categories, err
}

// Update updates an existing category in the database
func (r *categoryRepository) Update(category *models.DocumentCategory) error {
	return r.db.Save(category).Error
}

// Deactivate soft deletes a category by clearing its active flag. Rows are
// never removed because historical templates reference them.
func (r *categoryRepository) Deactivate(id uint) error {
	result := r.db.Model(&models.DocumentCategory{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ActiveNameExists checks whether an active category already uses the name.
// Deactivated categories may reuse names.
func (r *categoryRepository) ActiveNameExists(name string) (bool, error) {
	var count int64
	err := r.db.Model(&models.DocumentCategory{}).
		Where("name = ? AND is_active = ?", name, true).Count(&count).Error
	return count > 0, err
}

// ActiveNameExistsExceptID checks active-name uniqueness excluding one ID
func (r *categoryRepository) ActiveNameExistsExceptID(name string, id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.DocumentCategory{}).
		Where("name = ? AND is_active = ? AND id != ?", name, true, id).Count(&count).Error
	return count > 0, err
}
