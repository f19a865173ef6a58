package models

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// DocumentTemplate is a document every employee has to complete, hosted at
// the external signing provider. ProviderTemplateID links the template to
// the provider's copy and is the key webhook payloads resolve against.
type DocumentTemplate struct {
	ID                  uint             `gorm:"primaryKey" json:"id"`
	Title               string           `gorm:"type:varchar(255) CHARACTER SET utf8 COLLATE utf8_bin" json:"title" validate:"required,min=2,max=255"`
	Description         string           `gorm:"type:text" json:"description" validate:"max=2000"`
	CategoryID          uint             `gorm:"index;not null" json:"category_id" validate:"required"`
	Category            DocumentCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	ProviderTemplateID  string           `gorm:"type:varchar(191);index" json:"provider_template_id"`
	ProviderTemplateURL string           `gorm:"type:varchar(500)" json:"provider_template_url" validate:"omitempty,url,max=500"`
	IsRequired          bool             `gorm:"default:true" json:"is_required"`
	ExpiryDays          *int             `gorm:"default:null" json:"expiry_days,omitempty"`
	ReminderDays        *int             `gorm:"default:null" json:"reminder_days,omitempty"`
	Tags                []Tag            `gorm:"many2many:template_tags;" json:"tags,omitempty"`
	IsActive            bool             `gorm:"default:true;index" json:"is_active"`
	CreatedBy           uint             `gorm:"index" json:"created_by"`
	CreatedAt           time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the DocumentTemplate model
func (DocumentTemplate) TableName() string {
	return "document_templates"
}

// Validate checks struct tags plus the expiry/reminder window invariants:
// expiryDays must be non-negative, and reminderDays must leave room inside
// the expiry window when both are set.
func (t *DocumentTemplate) Validate() error {
	v := validator.New()
	if err := v.Struct(t); err != nil {
		return err
	}

	if t.ExpiryDays != nil && *t.ExpiryDays < 0 {
		return errors.New("expiry_days must be >= 0")
	}
	if t.ReminderDays != nil && t.ExpiryDays != nil && *t.ReminderDays >= *t.ExpiryDays {
		return errors.New("reminder_days must be less than expiry_days")
	}
	return nil
}

// NeverExpires reports whether completions of this template stay valid forever.
func (t *DocumentTemplate) NeverExpires() bool {
	return t.ExpiryDays == nil
}
