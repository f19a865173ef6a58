package docseal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/synergychantilly/cgresbox-backend/app/models"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/cache"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/docstatus"
)

// ErrUnresolvedReference marks webhook events that could not be matched to
// an employee, template or status row. These stay on the ledger with
// is_processed=false for manual review or reprocessing; they are not fatal.
var ErrUnresolvedReference = errors.New("webhook reference could not be resolved")

const templateCacheTTL = 10 * time.Minute

// ResolutionCache is the webhook-path lookup cache seam. Nil disables
// caching; errors from the cache are treated as misses.
type ResolutionCache interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, ttl time.Duration) error
}

type redisResolutionCache struct{}

func (redisResolutionCache) Get(key string) (string, error) { return cache.Get(key) }
func (redisResolutionCache) Set(key string, value interface{}, ttl time.Duration) error {
	return cache.Set(key, value, ttl)
}

// Service reconciles DocuSeal webhook events against document status rows.
type Service struct {
	repo  Repository
	cache ResolutionCache
}

// NewService creates a reconciliation service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a reconciliation service from a GORM DB handle
// with the redis resolution cache attached.
func NewServiceFromDB(db *gorm.DB) *Service {
	return &Service{repo: NewRepository(db), cache: redisResolutionCache{}}
}

// RecordWebhookEvent persists a delivery on the ledger idempotently. When
// the provider omits a delivery id, a payload digest stands in so retries
// of the same body cannot double-append.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:             Provider,
		ProviderEventID:      eventID,
		EventType:            strings.TrimSpace(in.EventType),
		ProviderSubmissionID: strings.TrimSpace(in.ProviderSubmissionID),
		PayloadJSON:          in.PayloadJSON,
		SignatureValid:       in.SignatureValid,
	}
	return s.repo.CreateEventIfNotExists(event)
}

// ProcessWebhook runs the full reconciliation for one delivery: ledger
// append first, then resolution and the forward-only transition. It never
// returns an error for matching or transition problems - those are
// recorded on the ledger entry so the provider still gets an ack. Only a
// failure to persist the ledger entry itself surfaces as an error.
func (s *Service) ProcessWebhook(ctx context.Context, raw []byte, providerEventID string, signatureValid bool) (*ProcessOutcome, error) {
	payload, parseErr := ParseWebhookPayload(raw)

	eventType := ""
	submissionID := ""
	if payload != nil {
		eventType = payload.EventType
		submissionID = payload.Data.SubmissionID()
	}
	created, stored, err := s.RecordWebhookEvent(ctx, WebhookEventInput{
		ProviderEventID:      providerEventID,
		EventType:            eventType,
		ProviderSubmissionID: submissionID,
		PayloadJSON:          string(raw),
		SignatureValid:       signatureValid,
	})
	if err != nil {
		return nil, err
	}

	outcome := &ProcessOutcome{EventID: stored.ID}
	if !created {
		outcome.Duplicate = true
		return outcome, nil
	}

	if !signatureValid {
		s.failEvent(stored.ID, errors.New("invalid webhook signature"))
		return outcome, nil
	}
	if parseErr != nil {
		s.failEvent(stored.ID, parseErr)
		return outcome, nil
	}

	s.processEvent(stored, payload, string(raw), outcome)
	return outcome, nil
}

// ReprocessEvent re-runs resolution for a ledger entry that previously
// failed, e.g. after a sweep created the missing status row or an employee
// was approved.
func (s *Service) ReprocessEvent(ctx context.Context, eventID uint) (*ProcessOutcome, error) {
	_ = ctx
	event, err := s.repo.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	if event.IsProcessed {
		return &ProcessOutcome{EventID: event.ID, Duplicate: true}, nil
	}

	outcome := &ProcessOutcome{EventID: event.ID}
	payload, parseErr := ParseWebhookPayload([]byte(event.PayloadJSON))
	if parseErr != nil {
		s.failEvent(event.ID, parseErr)
		return outcome, nil
	}
	s.processEvent(event, payload, event.PayloadJSON, outcome)
	return outcome, nil
}

// processEvent resolves the target row and applies the transition. Any
// failure leaves the status row untouched and is recorded on the ledger.
func (s *Service) processEvent(event *models.WebhookEvent, payload *WebhookPayload, raw string, outcome *ProcessOutcome) {
	user, err := s.repo.FindUserByEmail(payload.Data.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.failUnresolved(event.ID, fmt.Sprintf("no employee matches email %q", models.CanonicalEmail(payload.Data.Email)), outcome)
			return
		}
		s.failEvent(event.ID, err)
		return
	}

	providerTemplateID := payload.Data.ProviderTemplateID()
	if providerTemplateID == "" {
		s.failUnresolved(event.ID, "payload carries no template id", outcome)
		return
	}
	template, err := s.resolveTemplate(providerTemplateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.failUnresolved(event.ID, fmt.Sprintf("no active template linked to provider template %s", providerTemplateID), outcome)
			return
		}
		s.failEvent(event.ID, err)
		return
	}

	target, hasTransition := TargetStatus(payload.EventType)
	if !hasTransition {
		// submission.created and unrecognized types carry no progress.
		if err := s.repo.MarkEventProcessed(event.ID, &user.ID, &template.ID); err != nil {
			fiberlog.Errorf("[docseal] failed to mark event %d processed: %v", event.ID, err)
		}
		outcome.Ignored = true
		return
	}

	row, err := s.repo.FindStatusRow(user.ID, template.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The sync engine owns row creation; never create from the
			// webhook path. The event stays retryable on the ledger.
			s.failUnresolved(event.ID, fmt.Sprintf("no status row for employee %d and template %d", user.ID, template.ID), outcome)
			return
		}
		s.failEvent(event.ID, err)
		return
	}

	ts := eventTime(payload)
	updates := transitionUpdates(target, ts, payload, template, raw)

	advanced, err := s.repo.AdvanceStatus(row.ID, statusesBelow(target), updates)
	if err != nil {
		s.failEvent(event.ID, err)
		return
	}
	if !advanced {
		// Duplicate, stale or concurrently-beaten delivery: the stored
		// status stays put, but late detail is kept if the slot is empty.
		// Re-read the row first - a concurrent winner may have moved it
		// since we loaded it.
		current, err := s.repo.GetStatusRow(row.ID)
		if err != nil {
			s.failEvent(event.ID, err)
			return
		}
		// completed_at and declined_at are mutually exclusive terminal
		// markers: a late event for the opposing terminal backfills nothing.
		if !opposingTerminal(current.Status, target) {
			if err := s.repo.BackfillMilestone(row.ID, milestoneColumn(target), ts, raw); err != nil {
				s.failEvent(event.ID, err)
				return
			}
		}
	}
	outcome.Applied = advanced

	if err := s.repo.MarkEventProcessed(event.ID, &user.ID, &template.ID); err != nil {
		fiberlog.Errorf("[docseal] failed to mark event %d processed: %v", event.ID, err)
	}
}

// ManualComplete is the administrative override: it marks a row completed
// regardless of where the provider-side submission stands, short of a row
// that is already completed (then it is a no-op).
func (s *Service) ManualComplete(ctx context.Context, statusID, adminID uint) (*models.UserDocumentStatus, error) {
	_ = ctx
	row, err := s.repo.GetStatusRow(statusID)
	if err != nil {
		return nil, err
	}
	template, err := s.repo.GetTemplate(row.TemplateID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":                models.DocStatusCompleted,
		"completed_at":          now,
		"is_manually_completed": true,
		"manually_completed_by": adminID,
		"manually_completed_at": now,
	}
	if exp := docstatus.ExpiresAt(now, template.ExpiryDays); exp != nil {
		updates["expires_at"] = *exp
	}

	from := []string{
		models.DocStatusNotStarted,
		models.DocStatusViewed,
		models.DocStatusStarted,
		models.DocStatusDeclined,
	}
	if _, err := s.repo.AdvanceStatus(row.ID, from, updates); err != nil {
		return nil, err
	}
	return s.repo.GetStatusRow(statusID)
}

func (s *Service) resolveTemplate(providerTemplateID string) (*models.DocumentTemplate, error) {
	key := "docseal:template:" + providerTemplateID
	if s.cache != nil {
		if val, err := s.cache.Get(key); err == nil && val != "" {
			var cached models.DocumentTemplate
			if err := json.Unmarshal([]byte(val), &cached); err == nil && cached.ID != 0 {
				return &cached, nil
			}
		}
	}

	template, err := s.repo.FindTemplateByProviderID(providerTemplateID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if data, err := json.Marshal(template); err == nil {
			if err := s.cache.Set(key, string(data), templateCacheTTL); err != nil {
				fiberlog.Debugf("[docseal] template cache set failed: %v", err)
			}
		}
	}
	return template, nil
}

func (s *Service) failEvent(eventID uint, cause error) {
	if err := s.repo.MarkEventFailed(eventID, cause.Error()); err != nil {
		fiberlog.Errorf("[docseal] failed to record error on event %d: %v", eventID, err)
	}
}

func (s *Service) failUnresolved(eventID uint, msg string, outcome *ProcessOutcome) {
	outcome.Unresolved = true
	s.failEvent(eventID, fmt.Errorf("%w: %s", ErrUnresolvedReference, msg))
}

// eventTime picks the provider-side timestamp for milestone fields so the
// stored order reflects the provider's ordering, not our processing time.
func eventTime(payload *WebhookPayload) time.Time {
	if !payload.Timestamp.IsZero() {
		return payload.Timestamp
	}
	if payload.Data.UpdatedAt != nil && !payload.Data.UpdatedAt.IsZero() {
		return *payload.Data.UpdatedAt
	}
	if payload.Data.CreatedAt != nil && !payload.Data.CreatedAt.IsZero() {
		return *payload.Data.CreatedAt
	}
	return time.Now()
}

// statusesBelow lists the stored statuses a row may leave when moving to
// target - exactly those with a strictly lower rank.
func statusesBelow(target string) []string {
	all := []string{
		models.DocStatusNotStarted,
		models.DocStatusViewed,
		models.DocStatusStarted,
		models.DocStatusCompleted,
		models.DocStatusDeclined,
	}
	below := make([]string, 0, len(all))
	for _, status := range all {
		if docstatus.IsForward(status, target) {
			below = append(below, status)
		}
	}
	return below
}

// opposingTerminal reports whether stored and target are the two distinct
// terminal statuses (one completed, one declined).
func opposingTerminal(stored, target string) bool {
	return docstatus.IsTerminal(stored) && docstatus.IsTerminal(target) && stored != target
}

func milestoneColumn(target string) string {
	switch target {
	case models.DocStatusViewed:
		return "viewed_at"
	case models.DocStatusStarted:
		return "started_at"
	case models.DocStatusCompleted:
		return "completed_at"
	default:
		return "declined_at"
	}
}

// transitionUpdates builds the column set for a forward transition.
// Completions additionally derive expires_at from the template's expiry
// window and keep the provider's document artifacts.
func transitionUpdates(target string, ts time.Time, payload *WebhookPayload, template *models.DocumentTemplate, raw string) map[string]interface{} {
	updates := map[string]interface{}{
		"status":                 target,
		milestoneColumn(target):  ts,
		"provider_submission_id": payload.Data.SubmissionID(),
		"raw_payload_json":       raw,
	}
	if payload.Data.SubmissionURL != "" {
		updates["submission_url"] = payload.Data.SubmissionURL
	}

	if target == models.DocStatusCompleted {
		if exp := docstatus.ExpiresAt(ts, template.ExpiryDays); exp != nil {
			updates["expires_at"] = *exp
		}
		if name, url := payload.Data.FirstDocument(); url != "" {
			updates["document_url"] = url
			updates["document_name"] = name
		}
		if payload.Data.AuditLogURL != "" {
			updates["audit_log_url"] = payload.Data.AuditLogURL
		}
	}
	return updates
}
