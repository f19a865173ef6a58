package repository

import (
	"github.com/synergychantilly/cgresbox-backend/app/models"
	"gorm.io/gorm"
)

// webhookEventRepository implements the WebhookEventRepository interface.
// Writes to the ledger go through the reconciliation service; this
// repository only serves the administrative review surface.
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository instance
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// GetByID retrieves a ledger entry by its ID
func (r *webhookEventRepository) GetByID(id uint) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetUnprocessed retrieves ledger entries awaiting (re)processing, oldest first
func (r *webhookEventRepository) GetUnprocessed(limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Where("is_processed = ?", false).
		Order("created_at ASC").Limit(limit).Find(&events).Error
	return events, err
}

// List retrieves ledger entries with pagination, newest first
func (r *webhookEventRepository) List(offset, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&events).Error
	return events, err
}

// Count returns the total number of ledger entries
func (r *webhookEventRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.WebhookEvent{}).Count(&count).Error
	return count, err
}
