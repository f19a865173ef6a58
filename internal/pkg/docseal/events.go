package docseal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/synergychantilly/cgresbox-backend/app/models"
)

// ParseWebhookPayload decodes a provider event. Only the fields we act on
// are validated; extra fields are silently dropped.
func ParseWebhookPayload(raw []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	if strings.TrimSpace(payload.EventType) == "" {
		return nil, errors.New("webhook payload missing event_type")
	}
	if payload.Data.ID == 0 {
		return nil, errors.New("webhook payload missing data.id")
	}
	return &payload, nil
}

// TargetStatus maps an event type to the status it drives a row toward.
// The second return is false for event types that carry no transition
// (submission.created and anything unrecognized).
func TargetStatus(eventType string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case EventFormViewed:
		return models.DocStatusViewed, true
	case EventFormStarted:
		return models.DocStatusStarted, true
	case EventFormCompleted, EventSubmissionCompleted:
		return models.DocStatusCompleted, true
	case EventFormDeclined:
		return models.DocStatusDeclined, true
	default:
		return "", false
	}
}

// IsKnownEvent reports whether the event type is one DocuSeal documents.
func IsKnownEvent(eventType string) bool {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case EventFormViewed, EventFormStarted, EventFormCompleted,
		EventFormDeclined, EventSubmissionCreated, EventSubmissionCompleted:
		return true
	default:
		return false
	}
}

// SubmissionID renders the provider submission identifier as stored on
// status rows and ledger entries.
func (d *WebhookData) SubmissionID() string {
	return strconv.FormatInt(d.ID, 10)
}

// ProviderTemplateID renders the provider template identifier used to
// resolve the internal template via its linking field.
func (d *WebhookData) ProviderTemplateID() string {
	if d.Template.ID == 0 {
		return ""
	}
	return strconv.FormatInt(d.Template.ID, 10)
}

// FirstDocument returns the first completed-document artifact, if any.
func (d *WebhookData) FirstDocument() (name, url string) {
	if len(d.Documents) == 0 {
		return "", ""
	}
	return d.Documents[0].Name, d.Documents[0].URL
}
