package docseal

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/synergychantilly/cgresbox-backend/app/models"
)

// fakeRepo is an in-memory Repository mirroring the conditional-update
// semantics of the real one: AdvanceStatus only fires when the stored
// status is in the allowed set.
type fakeRepo struct {
	nextEventID uint
	events      map[string]*models.WebhookEvent
	users       map[string]*models.User
	templates   map[string]*models.DocumentTemplate
	rows        map[uint]*models.UserDocumentStatus
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		events:    make(map[string]*models.WebhookEvent),
		users:     make(map[string]*models.User),
		templates: make(map[string]*models.DocumentTemplate),
		rows:      make(map[uint]*models.UserDocumentStatus),
	}
}

func (f *fakeRepo) CreateEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := f.events[key]; ok {
		return false, stored, nil
	}
	f.nextEventID++
	event.ID = f.nextEventID
	f.events[key] = event
	return true, event, nil
}

func (f *fakeRepo) GetEvent(id uint) (*models.WebhookEvent, error) {
	for _, event := range f.events {
		if event.ID == id {
			return event, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) MarkEventProcessed(id uint, userID, templateID *uint) error {
	event, err := f.GetEvent(id)
	if err != nil {
		return err
	}
	now := time.Now()
	event.IsProcessed = true
	event.ProcessedAt = &now
	event.ProcessingError = ""
	event.UserID = userID
	event.TemplateID = templateID
	return nil
}

func (f *fakeRepo) MarkEventFailed(id uint, processingError string) error {
	event, err := f.GetEvent(id)
	if err != nil {
		return err
	}
	now := time.Now()
	event.IsProcessed = false
	event.ProcessedAt = &now
	event.ProcessingError = processingError
	return nil
}

func (f *fakeRepo) FindUserByEmail(email string) (*models.User, error) {
	if user, ok := f.users[models.CanonicalEmail(email)]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindTemplateByProviderID(providerTemplateID string) (*models.DocumentTemplate, error) {
	if template, ok := f.templates[providerTemplateID]; ok && template.IsActive {
		return template, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetTemplate(id uint) (*models.DocumentTemplate, error) {
	for _, template := range f.templates {
		if template.ID == id {
			return template, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindStatusRow(userID, templateID uint) (*models.UserDocumentStatus, error) {
	for _, row := range f.rows {
		if row.UserID == userID && row.TemplateID == templateID {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetStatusRow(id uint) (*models.UserDocumentStatus, error) {
	if row, ok := f.rows[id]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) AdvanceStatus(rowID uint, fromStatuses []string, updates map[string]interface{}) (bool, error) {
	row, ok := f.rows[rowID]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, status := range fromStatuses {
		if row.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	applyUpdates(row, updates)
	return true, nil
}

func (f *fakeRepo) BackfillMilestone(rowID uint, column string, ts time.Time, rawPayload string) error {
	row, ok := f.rows[rowID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	slot := milestoneField(row, column)
	if *slot == nil {
		*slot = &ts
	}
	if row.RawPayloadJSON == "" {
		row.RawPayloadJSON = rawPayload
	}
	return nil
}

func applyUpdates(row *models.UserDocumentStatus, updates map[string]interface{}) {
	for column, value := range updates {
		switch column {
		case "status":
			row.Status = value.(string)
		case "provider_submission_id":
			row.ProviderSubmissionID = value.(string)
		case "raw_payload_json":
			row.RawPayloadJSON = value.(string)
		case "submission_url":
			row.SubmissionURL = value.(string)
		case "document_url":
			row.DocumentURL = value.(string)
		case "document_name":
			row.DocumentName = value.(string)
		case "audit_log_url":
			row.AuditLogURL = value.(string)
		case "viewed_at", "started_at", "completed_at", "declined_at", "expires_at", "manually_completed_at":
			ts := value.(time.Time)
			*milestoneField(row, column) = &ts
		case "is_manually_completed":
			row.IsManuallyCompleted = value.(bool)
		case "manually_completed_by":
			id := value.(uint)
			row.ManuallyCompletedBy = &id
		default:
			panic(fmt.Sprintf("unexpected update column %q", column))
		}
	}
}

func milestoneField(row *models.UserDocumentStatus, column string) **time.Time {
	switch column {
	case "viewed_at":
		return &row.ViewedAt
	case "started_at":
		return &row.StartedAt
	case "completed_at":
		return &row.CompletedAt
	case "declined_at":
		return &row.DeclinedAt
	case "expires_at":
		return &row.ExpiresAt
	case "manually_completed_at":
		return &row.ManuallyCompletedAt
	default:
		panic(fmt.Sprintf("unexpected timestamp column %q", column))
	}
}

func intPtr(v int) *int { return &v }

func seedFixture(repo *fakeRepo) (*models.User, *models.DocumentTemplate, *models.UserDocumentStatus) {
	user := &models.User{ID: 1, Name: "Jane Doe", Email: "jane.doe@example.com", Status: models.STATUS_APPROVED}
	template := &models.DocumentTemplate{ID: 7, Title: "W-4", ProviderTemplateID: "42", IsActive: true, ExpiryDays: intPtr(90)}
	row := &models.UserDocumentStatus{ID: 100, UserID: user.ID, TemplateID: template.ID, Status: models.DocStatusNotStarted}

	repo.users[user.Email] = user
	repo.templates[template.ProviderTemplateID] = template
	repo.rows[row.ID] = row
	return user, template, row
}

func completedPayload(eventType string) []byte {
	return []byte(fmt.Sprintf(`{
		"event_type": %q,
		"timestamp": "2024-01-01T10:00:00Z",
		"data": {
			"id": 991,
			"email": "Jane.Doe@EXAMPLE.com",
			"template": { "id": 42, "name": "W-4" },
			"documents": [ { "name": "w4.pdf", "url": "https://docuseal.test/d/w4.pdf" } ],
			"audit_log_url": "https://docuseal.test/a/991",
			"submission_url": "https://docuseal.test/s/991"
		}
	}`, eventType))
}

func TestProcessWebhook_CompletedTransition(t *testing.T) {
	repo := newFakeRepo()
	_, _, row := seedFixture(repo)
	svc := NewService(repo)

	outcome, err := svc.ProcessWebhook(context.Background(), completedPayload("form.completed"), "evt-1", true)
	if err != nil {
		t.Fatalf("ProcessWebhook returned error: %v", err)
	}
	if !outcome.Applied || outcome.Duplicate || outcome.Unresolved {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	if row.Status != models.DocStatusCompleted {
		t.Fatalf("status = %q, want completed", row.Status)
	}
	if row.CompletedAt == nil || !row.CompletedAt.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("completed_at = %v, want provider timestamp", row.CompletedAt)
	}
	wantExpiry := time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC)
	if row.ExpiresAt == nil || !row.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expires_at = %v, want %v", row.ExpiresAt, wantExpiry)
	}
	if row.DocumentURL != "https://docuseal.test/d/w4.pdf" || row.DocumentName != "w4.pdf" {
		t.Fatalf("document artifact not stored: %q %q", row.DocumentName, row.DocumentURL)
	}
	if row.AuditLogURL != "https://docuseal.test/a/991" {
		t.Fatalf("audit log url = %q", row.AuditLogURL)
	}
	if row.ProviderSubmissionID != "991" {
		t.Fatalf("provider submission id = %q", row.ProviderSubmissionID)
	}

	event, err := repo.GetEvent(outcome.EventID)
	if err != nil {
		t.Fatalf("ledger entry missing: %v", err)
	}
	if !event.IsProcessed || event.ProcessingError != "" {
		t.Fatalf("ledger entry not marked processed: %+v", event)
	}
	if event.UserID == nil || *event.UserID != 1 || event.TemplateID == nil || *event.TemplateID != 7 {
		t.Fatalf("ledger entry missing resolution: %+v", event)
	}
	if event.ProviderSubmissionID != "991" {
		t.Fatalf("ledger entry submission id = %q, want 991", event.ProviderSubmissionID)
	}
}

func TestProcessWebhook_DuplicateDeliveryIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	_, _, row := seedFixture(repo)
	svc := NewService(repo)

	first, err := svc.ProcessWebhook(context.Background(), completedPayload("form.completed"), "evt-1", true)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	second, err := svc.ProcessWebhook(context.Background(), completedPayload("form.completed"), "evt-1", true)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("second delivery not flagged duplicate: %+v", second)
	}
	if second.EventID != first.EventID {
		t.Fatalf("duplicate resolved to a different ledger entry")
	}
	if len(repo.events) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(repo.events))
	}
	if row.Status != models.DocStatusCompleted {
		t.Fatalf("status = %q after duplicate, want completed", row.Status)
	}
}

func TestProcessWebhook_StaleEventDoesNotRegress(t *testing.T) {
	repo := newFakeRepo()
	_, _, row := seedFixture(repo)
	svc := NewService(repo)

	if _, err := svc.ProcessWebhook(context.Background(), completedPayload("form.completed"), "evt-1", true); err != nil {
		t.Fatalf("completed delivery: %v", err)
	}
	outcome, err := svc.ProcessWebhook(context.Background(), completedPayload("form.viewed"), "evt-2", true)
	if err != nil {
		t.Fatalf("late viewed delivery: %v", err)
	}
	if outcome.Applied {
		t.Fatalf("stale viewed event must not apply")
	}

	if row.Status != models.DocStatusCompleted {
		t.Fatalf("status regressed to %q", row.Status)
	}
	// The late event still backfills its milestone slot.
	if row.ViewedAt == nil {
		t.Fatalf("viewed_at not backfilled from stale event")
	}
	event, _ := repo.GetEvent(outcome.EventID)
	if !event.IsProcessed {
		t.Fatalf("stale event should still be marked processed")
	}
}

func TestProcessWebhook_CompletedAndDeclinedDoNotOverwriteEachOther(t *testing.T) {
	repo := newFakeRepo()
	_, _, row := seedFixture(repo)
	svc := NewService(repo)

	if _, err := svc.ProcessWebhook(context.Background(), completedPayload("form.declined"), "evt-1", true); err != nil {
		t.Fatalf("declined delivery: %v", err)
	}
	if row.Status != models.DocStatusDeclined {
		t.Fatalf("status = %q, want declined", row.Status)
	}

	outcome, err := svc.ProcessWebhook(context.Background(), completedPayload("form.completed"), "evt-2", true)
	if err != nil {
		t.Fatalf("completed after declined: %v", err)
	}
	if outcome.Applied {
		t.Fatalf("completed must not overwrite declined")
	}
	if row.Status != models.DocStatusDeclined {
		t.Fatalf("status = %q, want declined to stick", row.Status)
	}
	// The terminal markers stay mutually exclusive.
	if row.CompletedAt != nil {
		t.Fatalf("completed_at = %v on a declined row", row.CompletedAt)
	}
	if row.DeclinedAt == nil {
		t.Fatalf("declined_at missing on a declined row")
	}
}

func TestProcessWebhook_StaleDeclinedDoesNotMarkCompletedRow(t *testing.T) {
	repo := newFakeRepo()
	_, _, row := seedFixture(repo)
	svc := NewService(repo)

	if _, err := svc.ProcessWebhook(context.Background(), completedPayload("form.completed"), "evt-1", true); err != nil {
		t.Fatalf("completed delivery: %v", err)
	}
	outcome, err := svc.ProcessWebhook(context.Background(), completedPayload("form.declined"), "evt-2", true)
	if err != nil {
		t.Fatalf("late declined delivery: %v", err)
	}
	if outcome.Applied {
		t.Fatalf("declined must not overwrite completed")
	}

	if row.Status != models.DocStatusCompleted {
		t.Fatalf("status = %q, want completed to stick", row.Status)
	}
	if row.DeclinedAt != nil {
		t.Fatalf("declined_at = %v on a completed row", row.DeclinedAt)
	}
	if row.CompletedAt == nil {
		t.Fatalf("completed_at missing on a completed row")
	}
	event, _ := repo.GetEvent(outcome.EventID)
	if !event.IsProcessed {
		t.Fatalf("stale declined event should still be marked processed")
	}
}

func TestProcessWebhook_UnmatchedEmailStaysOnLedger(t *testing.T) {
	repo := newFakeRepo()
	_, _, row := seedFixture(repo)
	svc := NewService(repo)

	raw := []byte(`{
		"event_type": "form.viewed",
		"data": { "id": 5, "email": "ghost@example.com", "template": { "id": 42 } }
	}`)
	outcome, err := svc.ProcessWebhook(context.Background(), raw, "evt-ghost", true)
	if err != nil {
		t.Fatalf("ProcessWebhook returned error: %v", err)
	}
	if !outcome.Unresolved || outcome.Applied {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if row.Status != models.DocStatusNotStarted {
		t.Fatalf("row mutated by unmatched event: %q", row.Status)
	}

	event, _ := repo.GetEvent(outcome.EventID)
	if event.IsProcessed {
		t.Fatalf("unresolved event must stay unprocessed")
	}
	if !strings.Contains(event.ProcessingError, "ghost@example.com") {
		t.Fatalf("processing error should name the email: %q", event.ProcessingError)
	}
}

func TestProcessWebhook_MissingRowNeverCreatesOne(t *testing.T) {
	repo := newFakeRepo()
	_, _, row := seedFixture(repo)
	delete(repo.rows, row.ID)
	svc := NewService(repo)

	outcome, err := svc.ProcessWebhook(context.Background(), completedPayload("form.started"), "evt-1", true)
	if err != nil {
		t.Fatalf("ProcessWebhook returned error: %v", err)
	}
	if !outcome.Unresolved {
		t.Fatalf("expected unresolved outcome: %+v", outcome)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("webhook path created a status row")
	}
}

func TestProcessWebhook_SubmissionCreatedIsLedgerOnly(t *testing.T) {
	repo := newFakeRepo()
	_, _, row := seedFixture(repo)
	svc := NewService(repo)

	outcome, err := svc.ProcessWebhook(context.Background(), completedPayload("submission.created"), "evt-1", true)
	if err != nil {
		t.Fatalf("ProcessWebhook returned error: %v", err)
	}
	if !outcome.Ignored || outcome.Applied {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if row.Status != models.DocStatusNotStarted {
		t.Fatalf("submission.created must not move the row: %q", row.Status)
	}
	event, _ := repo.GetEvent(outcome.EventID)
	if !event.IsProcessed {
		t.Fatalf("ledger-only event should be marked processed")
	}
}

func TestProcessWebhook_InvalidSignature(t *testing.T) {
	repo := newFakeRepo()
	_, _, row := seedFixture(repo)
	svc := NewService(repo)

	outcome, err := svc.ProcessWebhook(context.Background(), completedPayload("form.completed"), "evt-1", false)
	if err != nil {
		t.Fatalf("ProcessWebhook returned error: %v", err)
	}
	if outcome.Applied {
		t.Fatalf("unsigned event must not apply")
	}
	if row.Status != models.DocStatusNotStarted {
		t.Fatalf("row mutated by unsigned event: %q", row.Status)
	}
	event, _ := repo.GetEvent(outcome.EventID)
	if event.IsProcessed || event.ProcessingError == "" {
		t.Fatalf("unsigned event should carry a processing error: %+v", event)
	}
}

func TestProcessWebhook_MissingEventIDFallsBackToPayloadHash(t *testing.T) {
	repo := newFakeRepo()
	seedFixture(repo)
	svc := NewService(repo)

	raw := completedPayload("form.viewed")
	if _, err := svc.ProcessWebhook(context.Background(), raw, "", true); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	second, err := svc.ProcessWebhook(context.Background(), raw, "", true)
	if err != nil {
		t.Fatalf("retry delivery: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("byte-identical retry without event id should deduplicate")
	}
	for key := range repo.events {
		if !strings.Contains(key, "hash:") {
			t.Fatalf("fallback event id missing hash prefix: %q", key)
		}
	}
}

func TestReprocessEvent_AfterRowAppears(t *testing.T) {
	repo := newFakeRepo()
	user, template, row := seedFixture(repo)
	delete(repo.rows, row.ID)
	svc := NewService(repo)

	first, err := svc.ProcessWebhook(context.Background(), completedPayload("form.completed"), "evt-1", true)
	if err != nil {
		t.Fatalf("initial delivery: %v", err)
	}
	if !first.Unresolved {
		t.Fatalf("expected unresolved first pass: %+v", first)
	}

	// A sweep later creates the missing row; the event is retried.
	repo.rows[row.ID] = &models.UserDocumentStatus{ID: row.ID, UserID: user.ID, TemplateID: template.ID, Status: models.DocStatusNotStarted}

	second, err := svc.ReprocessEvent(context.Background(), first.EventID)
	if err != nil {
		t.Fatalf("ReprocessEvent returned error: %v", err)
	}
	if !second.Applied {
		t.Fatalf("reprocess did not apply: %+v", second)
	}
	if repo.rows[row.ID].Status != models.DocStatusCompleted {
		t.Fatalf("status = %q after reprocess, want completed", repo.rows[row.ID].Status)
	}

	third, err := svc.ReprocessEvent(context.Background(), first.EventID)
	if err != nil {
		t.Fatalf("second reprocess: %v", err)
	}
	if !third.Duplicate {
		t.Fatalf("reprocessing a processed event should be a no-op: %+v", third)
	}
}

func TestManualComplete(t *testing.T) {
	repo := newFakeRepo()
	_, _, row := seedFixture(repo)
	row.Status = models.DocStatusDeclined
	svc := NewService(repo)

	updated, err := svc.ManualComplete(context.Background(), row.ID, 9)
	if err != nil {
		t.Fatalf("ManualComplete returned error: %v", err)
	}
	if updated.Status != models.DocStatusCompleted {
		t.Fatalf("status = %q, want completed", updated.Status)
	}
	if !updated.IsManuallyCompleted || updated.ManuallyCompletedBy == nil || *updated.ManuallyCompletedBy != 9 {
		t.Fatalf("manual completion audit fields not set: %+v", updated)
	}
	if updated.ExpiresAt == nil {
		t.Fatalf("manual completion should derive expires_at from the template")
	}
}

func TestManualComplete_AlreadyCompletedIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	_, _, row := seedFixture(repo)
	completedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	row.Status = models.DocStatusCompleted
	row.CompletedAt = &completedAt
	svc := NewService(repo)

	updated, err := svc.ManualComplete(context.Background(), row.ID, 9)
	if err != nil {
		t.Fatalf("ManualComplete returned error: %v", err)
	}
	if updated.IsManuallyCompleted {
		t.Fatalf("already-completed row must not be rewritten")
	}
	if !updated.CompletedAt.Equal(completedAt) {
		t.Fatalf("completed_at overwritten: %v", updated.CompletedAt)
	}
}
