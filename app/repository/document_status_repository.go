package repository

import (
	"time"

	"github.com/synergychantilly/cgresbox-backend/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentStatusRepository implements the DocumentStatusRepository interface
type documentStatusRepository struct {
	db *gorm.DB
}

// NewDocumentStatusRepository creates a new document status repository instance
func NewDocumentStatusRepository(db *gorm.DB) DocumentStatusRepository {
	return &documentStatusRepository{db: db}
}

// Create inserts a status row unless one already exists for the
// (user_id, template_id) pair. The unique index plus OnConflict DoNothing
// makes duplicate creation a no-op even when two writers race. Returns
// whether a row was actually inserted.
func (r *documentStatusRepository) Create(row *models.UserDocumentStatus) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "template_id"},
		},
		DoNothing: true,
	}).Create(row)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// GetByID retrieves a status row by its ID
func (r *documentStatusRepository) GetByID(id uint) (*models.UserDocumentStatus, error) {
	var row models.UserDocumentStatus
	err := r.db.Preload("Template").First(&row, id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetForUser retrieves all status rows for one employee
func (r *documentStatusRepository) GetForUser(userID uint) ([]models.UserDocumentStatus, error) {
	var rows []models.UserDocumentStatus
	err := r.db.Preload("Template").Preload("Template.Category").
		Where("user_id = ?", userID).Find(&rows).Error
	return rows, err
}

// GetAll retrieves the full status table for the administrative view
func (r *documentStatusRepository) GetAll() ([]models.UserDocumentStatus, error) {
	var rows []models.UserDocumentStatus
	err := r.db.Preload("Template").Find(&rows).Error
	return rows, err
}

// GetOne retrieves the single row for an (employee, template) pair
func (r *documentStatusRepository) GetOne(userID, templateID uint) (*models.UserDocumentStatus, error) {
	var row models.UserDocumentStatus
	err := r.db.Where("user_id = ? AND template_id = ?", userID, templateID).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateFields merges the given fields into a row and refreshes updated_at
func (r *documentStatusRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	result := r.db.Model(&models.UserDocumentStatus{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DueReminders returns completed rows whose expiry falls inside the
// template's reminder window and which have not been reminded since
// entering it. Consumed by the external notifier.
func (r *documentStatusRepository) DueReminders(now time.Time) ([]models.UserDocumentStatus, error) {
	var rows []models.UserDocumentStatus
	err := r.db.Preload("Template").
		Joins("JOIN document_templates ON document_templates.id = user_document_statuses.template_id").
		Where("document_templates.is_active = ?", true).
		Where("document_templates.reminder_days IS NOT NULL").
		Where("user_document_statuses.status = ?", models.DocStatusCompleted).
		Where("user_document_statuses.expires_at IS NOT NULL").
		Where("user_document_statuses.expires_at > ?", now).
		Where("user_document_statuses.expires_at <= DATE_ADD(?, INTERVAL document_templates.reminder_days DAY)", now).
		Where("user_document_statuses.last_reminder_sent IS NULL OR user_document_statuses.last_reminder_sent < DATE_SUB(user_document_statuses.expires_at, INTERVAL document_templates.reminder_days DAY)").
		Find(&rows).Error
	return rows, err
}

// MarkReminderSent records when a reminder went out for a row
func (r *documentStatusRepository) MarkReminderSent(id uint, at time.Time) error {
	return r.UpdateFields(id, map[string]interface{}{"last_reminder_sent": at})
}
