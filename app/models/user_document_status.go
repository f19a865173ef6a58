package models

import (
	"time"
)

const (
	DocStatusNotStarted = "not_started"
	DocStatusViewed     = "viewed"
	DocStatusStarted    = "started"
	DocStatusCompleted  = "completed"
	DocStatusDeclined   = "declined"

	// DocStatusExpired is a computed projection, never stored. It exists as
	// a constant only so read paths and API responses share one spelling.
	DocStatusExpired = "expired"
)

// UserDocumentStatus tracks one employee's progress on one template. Rows
// are created by the sync engine at not_started and from then on advanced
// only by webhook reconciliation or an explicit admin override.
type UserDocumentStatus struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	UserID     uint             `gorm:"not null;index;uniqueIndex:ux_user_document,priority:1" json:"user_id"`
	UserName   string           `gorm:"type:varchar(150)" json:"user_name"`
	TemplateID uint             `gorm:"not null;index;uniqueIndex:ux_user_document,priority:2" json:"template_id"`
	Template   DocumentTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Status     string           `gorm:"type:varchar(20);not null;default:'not_started';index" json:"status"`

	ProviderSubmissionID string `gorm:"type:varchar(191);default:null;index" json:"provider_submission_id,omitempty"`
	DocumentURL          string `gorm:"type:varchar(500);default:null" json:"document_url,omitempty"`
	DocumentName         string `gorm:"type:varchar(255);default:null" json:"document_name,omitempty"`
	AuditLogURL          string `gorm:"type:varchar(500);default:null" json:"audit_log_url,omitempty"`
	SubmissionURL        string `gorm:"type:varchar(500);default:null" json:"submission_url,omitempty"`

	ViewedAt    *time.Time `gorm:"type:timestamp;default:null" json:"viewed_at,omitempty"`
	StartedAt   *time.Time `gorm:"type:timestamp;default:null" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	DeclinedAt  *time.Time `gorm:"type:timestamp;default:null" json:"declined_at,omitempty"`

	ExpiresAt        *time.Time `gorm:"type:timestamp;default:null;index" json:"expires_at,omitempty"`
	LastReminderSent *time.Time `gorm:"type:timestamp;default:null" json:"last_reminder_sent,omitempty"`

	// Last raw provider payload that touched this row, kept for diagnostics.
	RawPayloadJSON string `gorm:"type:longtext" json:"-"`

	IsManuallyCompleted bool       `gorm:"default:false" json:"is_manually_completed"`
	ManuallyCompletedBy *uint      `gorm:"default:null" json:"manually_completed_by,omitempty"`
	ManuallyCompletedAt *time.Time `gorm:"type:timestamp;default:null" json:"manually_completed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the UserDocumentStatus model
func (UserDocumentStatus) TableName() string {
	return "user_document_statuses"
}

// IsTerminal reports whether the stored status can never advance again
// without an administrative override.
func (s *UserDocumentStatus) IsTerminal() bool {
	return s.Status == DocStatusCompleted || s.Status == DocStatusDeclined
}
