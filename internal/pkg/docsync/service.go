// Package docsync keeps the user-document-status table complete as
// templates and employees change: every approved, non-admin employee gets
// exactly one not_started row per active template. All entry points are
// idempotent and chunk their writes, so any pass can be re-run after a
// partial failure without cleanup.
package docsync

import (
	"context"
	"errors"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/synergychantilly/cgresbox-backend/app/models"
)

// ChunkSize caps the rows per insert batch, below the store's write-batch
// limit of 500.
const ChunkSize = 500

// SweepResult counts what a synchronization pass did. A pass never reports
// all-or-nothing: failed chunks are counted and the pass carries on.
type SweepResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Service is the synchronization engine.
type Service struct {
	repo Repository
}

// NewService creates a synchronization service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a synchronization service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// SyncTemplate ensures a not_started row exists for every eligible employee
// for one template, typically right after the template is activated.
// A NotFound or deactivated template means nothing to reconcile.
func (s *Service) SyncTemplate(ctx context.Context, templateID uint) (*SweepResult, error) {
	_ = ctx
	result := &SweepResult{}

	template, err := s.repo.GetTemplate(templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, nil
		}
		return nil, err
	}
	if !template.IsActive {
		return result, nil
	}

	users, err := s.repo.GetApprovedNonAdmin()
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ExistingUserIDsForTemplate(template.ID)
	if err != nil {
		return nil, err
	}

	var missing []models.UserDocumentStatus
	for _, user := range users {
		if _, ok := existing[user.ID]; ok {
			result.Skipped++
			continue
		}
		missing = append(missing, newStatusRow(user, template.ID))
	}

	s.insertChunks(missing, result)
	return result, nil
}

// SyncUser ensures a not_started row exists for every active template for
// one employee, typically right after the employee is approved. Pending or
// admin accounts reconcile to nothing.
func (s *Service) SyncUser(ctx context.Context, userID uint) (*SweepResult, error) {
	_ = ctx
	result := &SweepResult{}

	user, err := s.repo.GetUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, nil
		}
		return nil, err
	}
	if !user.IsApproved() || user.IsAdmin() {
		return result, nil
	}

	templates, err := s.repo.GetActiveTemplates()
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ExistingTemplateIDsForUser(user.ID)
	if err != nil {
		return nil, err
	}

	var missing []models.UserDocumentStatus
	for _, template := range templates {
		if _, ok := existing[template.ID]; ok {
			result.Skipped++
			continue
		}
		missing = append(missing, newStatusRow(*user, template.ID))
	}

	s.insertChunks(missing, result)
	return result, nil
}

// FullSweep reconciles the complete cross-product of active templates and
// eligible employees, creating any missing rows. Safe to run arbitrarily
// often; a rerun after a partial failure picks up exactly what is missing.
func (s *Service) FullSweep(ctx context.Context) (*SweepResult, error) {
	_ = ctx
	result := &SweepResult{}

	templates, err := s.repo.GetActiveTemplates()
	if err != nil {
		return nil, err
	}
	users, err := s.repo.GetApprovedNonAdmin()
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ExistingPairs()
	if err != nil {
		return nil, err
	}

	var missing []models.UserDocumentStatus
	for _, user := range users {
		for _, template := range templates {
			if _, ok := existing[[2]uint{user.ID, template.ID}]; ok {
				result.Skipped++
				continue
			}
			missing = append(missing, newStatusRow(user, template.ID))
		}
	}

	s.insertChunks(missing, result)
	return result, nil
}

// insertChunks writes rows in ChunkSize batches, each committed on its
// own. A failed chunk is retried row by row so one bad row cannot sink
// its whole batch; remaining chunks still run either way.
func (s *Service) insertChunks(rows []models.UserDocumentStatus, result *SweepResult) {
	for start := 0; start < len(rows); start += ChunkSize {
		end := start + ChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		inserted, err := s.repo.CreateStatusRows(chunk)
		if err != nil {
			fiberlog.Errorf("[docsync] chunk of %d rows failed, retrying row by row: %v", len(chunk), err)
			s.insertRows(chunk, result)
			continue
		}
		result.Created += int(inserted)
		// Rows the conflict guard ate were created by a concurrent writer.
		result.Skipped += len(chunk) - int(inserted)
	}
}

// insertRows is the per-row fallback for a failed chunk, going through the
// guarded single-row insert. Only the rows that individually fail count
// as failed.
func (s *Service) insertRows(rows []models.UserDocumentStatus, result *SweepResult) {
	for i := range rows {
		created, err := s.repo.CreateStatusRow(&rows[i])
		if err != nil {
			result.Failed++
			continue
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}
}

func newStatusRow(user models.User, templateID uint) models.UserDocumentStatus {
	return models.UserDocumentStatus{
		UserID:     user.ID,
		UserName:   user.Name,
		TemplateID: templateID,
		Status:     models.DocStatusNotStarted,
	}
}
