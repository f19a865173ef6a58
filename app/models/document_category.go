package models

import (
	"time"
)

// DocumentCategory groups templates for display ("Onboarding", "Safety", ...).
// Categories are never hard-deleted because historical templates reference
// them; deactivation takes them out of new-template pickers only.
type DocumentCategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100) CHARACTER SET utf8 COLLATE utf8_bin;index" json:"name" validate:"required,min=2,max=100"`
	Description string    `gorm:"type:text" json:"description" validate:"max=1000"`
	Color       string    `gorm:"type:varchar(20);default:null" json:"color,omitempty" validate:"max=20"`
	IsActive    bool      `gorm:"default:true;index" json:"is_active"`
	CreatedBy   uint      `gorm:"index" json:"created_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the DocumentCategory model
func (DocumentCategory) TableName() string {
	return "document_categories"
}
