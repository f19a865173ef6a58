package docseal

import (
	"time"

	"github.com/synergychantilly/cgresbox-backend/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the reconciliation service.
type Repository interface {
	CreateEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	GetEvent(id uint) (*models.WebhookEvent, error)
	MarkEventProcessed(id uint, userID, templateID *uint) error
	MarkEventFailed(id uint, processingError string) error
	FindUserByEmail(email string) (*models.User, error)
	FindTemplateByProviderID(providerTemplateID string) (*models.DocumentTemplate, error)
	GetTemplate(id uint) (*models.DocumentTemplate, error)
	FindStatusRow(userID, templateID uint) (*models.UserDocumentStatus, error)
	GetStatusRow(id uint) (*models.UserDocumentStatus, error)
	AdvanceStatus(rowID uint, fromStatuses []string, updates map[string]interface{}) (bool, error)
	BackfillMilestone(rowID uint, column string, ts time.Time, rawPayload string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a reconciliation repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) GetEvent(id uint) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *gormRepository) MarkEventProcessed(id uint, userID, templateID *uint) error {
	now := time.Now()
	updates := map[string]interface{}{
		"is_processed":     true,
		"processed_at":     &now,
		"processing_error": "",
		"user_id":          userID,
		"template_id":      templateID,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) MarkEventFailed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"is_processed":     false,
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", models.CanonicalEmail(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) FindTemplateByProviderID(providerTemplateID string) (*models.DocumentTemplate, error) {
	var template models.DocumentTemplate
	err := r.db.Where("provider_template_id = ? AND is_active = ?", providerTemplateID, true).
		First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *gormRepository) GetTemplate(id uint) (*models.DocumentTemplate, error) {
	var template models.DocumentTemplate
	if err := r.db.First(&template, id).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *gormRepository) FindStatusRow(userID, templateID uint) (*models.UserDocumentStatus, error) {
	var row models.UserDocumentStatus
	err := r.db.Where("user_id = ? AND template_id = ?", userID, templateID).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *gormRepository) GetStatusRow(id uint) (*models.UserDocumentStatus, error) {
	var row models.UserDocumentStatus
	err := r.db.First(&row, id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// AdvanceStatus applies a transition as a conditional update keyed on the
// statuses the row is allowed to leave. With two concurrent deliveries the
// loser matches zero rows; callers treat that as an already-applied
// transition, which is exactly what the forward-only rule requires.
func (r *gormRepository) AdvanceStatus(rowID uint, fromStatuses []string, updates map[string]interface{}) (bool, error) {
	tx := r.db.Model(&models.UserDocumentStatus{}).
		Where("id = ? AND status IN ?", rowID, fromStatuses).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// BackfillMilestone records late-arriving detail from stale or duplicate
// events without moving the primary status: the milestone timestamp is set
// only if still empty, and the raw payload only if none was kept yet.
func (r *gormRepository) BackfillMilestone(rowID uint, column string, ts time.Time, rawPayload string) error {
	updates := map[string]interface{}{
		column:             gorm.Expr("COALESCE("+column+", ?)", ts),
		"raw_payload_json": gorm.Expr("IF(raw_payload_json IS NULL OR raw_payload_json = '', ?, raw_payload_json)", rawPayload),
	}
	return r.db.Model(&models.UserDocumentStatus{}).Where("id = ?", rowID).Updates(updates).Error
}
