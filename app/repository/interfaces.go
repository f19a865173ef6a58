package repository

import (
	"time"

	"github.com/synergychantilly/cgresbox-backend/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for employee-directory operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	GetApprovedNonAdmin() ([]models.User, error)
	Update(user *models.User) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// CategoryRepository defines the interface for document-category operations
type CategoryRepository interface {
	Create(category *models.DocumentCategory) error
	GetByID(id uint) (*models.DocumentCategory, error)
	GetActive() ([]models.DocumentCategory, error)
	GetAll() ([]models.DocumentCategory, error)
	Update(category *models.DocumentCategory) error
	Deactivate(id uint) error
	ActiveNameExists(name string) (bool, error)
	ActiveNameExistsExceptID(name string, id uint) (bool, error)
}

// TemplateRepository defines the interface for document-template operations
type TemplateRepository interface {
	Create(template *models.DocumentTemplate) error
	GetByID(id uint) (*models.DocumentTemplate, error)
	GetActive() ([]models.DocumentTemplate, error)
	GetAll() ([]models.DocumentTemplate, error)
	GetByProviderTemplateID(providerTemplateID string) (*models.DocumentTemplate, error)
	Update(template *models.DocumentTemplate) error
	Deactivate(id uint) error
	Count() (int64, error)
}

// DocumentStatusRepository defines the interface for per-employee document
// progress rows. Create treats an existing (user_id, template_id) pair as a
// no-op so callers cannot introduce duplicates.
type DocumentStatusRepository interface {
	Create(row *models.UserDocumentStatus) (bool, error)
	GetByID(id uint) (*models.UserDocumentStatus, error)
	GetForUser(userID uint) ([]models.UserDocumentStatus, error)
	GetAll() ([]models.UserDocumentStatus, error)
	GetOne(userID, templateID uint) (*models.UserDocumentStatus, error)
	UpdateFields(id uint, fields map[string]interface{}) error
	DueReminders(now time.Time) ([]models.UserDocumentStatus, error)
	MarkReminderSent(id uint, at time.Time) error
}

// WebhookEventRepository defines the interface for the inbound-event ledger
type WebhookEventRepository interface {
	GetByID(id uint) (*models.WebhookEvent, error)
	GetUnprocessed(limit int) ([]models.WebhookEvent, error)
	List(offset, limit int) ([]models.WebhookEvent, error)
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User           UserRepository
	Category       CategoryRepository
	Template       TemplateRepository
	DocumentStatus DocumentStatusRepository
	WebhookEvent   WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:           NewUserRepository(db),
		Category:       NewCategoryRepository(db),
		Template:       NewTemplateRepository(db),
		DocumentStatus: NewDocumentStatusRepository(db),
		WebhookEvent:   NewWebhookEventRepository(db),
	}
}
