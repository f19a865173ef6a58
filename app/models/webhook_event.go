package models

import "time"

// WebhookEvent is the append-only ledger of inbound provider notifications.
// Every delivery is recorded before any state mutation; entries are only
// ever updated to mark processing outcome. It is deduplicated on
// (provider, provider_event_id) so client-side retries cannot double-append.
type WebhookEvent struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Provider             string     `gorm:"type:varchar(20);not null;index:ux_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID      string     `gorm:"type:varchar(191);not null;default:'';index:ux_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType            string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	ProviderSubmissionID string     `gorm:"type:varchar(191);default:null;index" json:"provider_submission_id,omitempty"`
	UserID               *uint      `gorm:"default:null;index" json:"user_id,omitempty"`
	TemplateID           *uint      `gorm:"default:null;index" json:"template_id,omitempty"`
	PayloadJSON          string     `gorm:"type:longtext;not null" json:"payload_json"`
	SignatureValid       bool       `gorm:"default:false;index" json:"signature_valid"`
	IsProcessed          bool       `gorm:"default:false;index" json:"is_processed"`
	ProcessedAt          *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError      string     `gorm:"type:text" json:"processing_error"`
	CreatedAt            time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the WebhookEvent model
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
