// Package docseal integrates the external DocuSeal e-signature provider:
// webhook payload parsing, signature verification and the reconciliation
// service that maps submission events onto UserDocumentStatus rows.
package docseal

import "time"

// Provider is the ledger tag for events originating from DocuSeal.
const Provider = "docuseal"

// Webhook event types DocuSeal delivers. Anything else is ledgered and
// acknowledged without touching state.
const (
	EventFormViewed          = "form.viewed"
	EventFormStarted         = "form.started"
	EventFormCompleted       = "form.completed"
	EventFormDeclined        = "form.declined"
	EventSubmissionCreated   = "submission.created"
	EventSubmissionCompleted = "submission.completed"
)

// WebhookPayload is the inbound event shape. Unknown fields at any level
// are ignored for forward compatibility.
type WebhookPayload struct {
	EventType string      `json:"event_type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      WebhookData `json:"data"`
}

// WebhookData carries the submission detail of a webhook payload.
type WebhookData struct {
	ID            int64             `json:"id"`
	Email         string            `json:"email"`
	Status        string            `json:"status"`
	CreatedAt     *time.Time        `json:"created_at"`
	UpdatedAt     *time.Time        `json:"updated_at"`
	Template      WebhookTemplate   `json:"template"`
	Documents     []WebhookDocument `json:"documents"`
	AuditLogURL   string            `json:"audit_log_url"`
	SubmissionURL string            `json:"submission_url"`
}

// WebhookTemplate identifies the provider-side template of a submission.
type WebhookTemplate struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// WebhookDocument is a completed document artifact attached to an event.
type WebhookDocument struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// WebhookEventInput is the normalized input for ledger persistence.
type WebhookEventInput struct {
	ProviderEventID      string
	EventType            string
	ProviderSubmissionID string
	PayloadJSON          string
	SignatureValid       bool
}

// ProcessOutcome reports what a webhook delivery did. The HTTP handler
// always acknowledges; the flags exist for the response body and logging.
type ProcessOutcome struct {
	EventID    uint
	Duplicate  bool
	Ignored    bool
	Applied    bool
	Unresolved bool
}
