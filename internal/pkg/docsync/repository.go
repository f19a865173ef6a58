package docsync

import (
	"github.com/synergychantilly/cgresbox-backend/app/models"
	"github.com/synergychantilly/cgresbox-backend/app/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the synchronization engine.
type Repository interface {
	GetTemplate(id uint) (*models.DocumentTemplate, error)
	GetActiveTemplates() ([]models.DocumentTemplate, error)
	GetUser(id uint) (*models.User, error)
	GetApprovedNonAdmin() ([]models.User, error)
	ExistingUserIDsForTemplate(templateID uint) (map[uint]struct{}, error)
	ExistingTemplateIDsForUser(userID uint) (map[uint]struct{}, error)
	ExistingPairs() (map[[2]uint]struct{}, error)
	CreateStatusRows(rows []models.UserDocumentStatus) (int64, error)
	CreateStatusRow(row *models.UserDocumentStatus) (bool, error)
}

type gormRepository struct {
	db    *gorm.DB
	store repository.DocumentStatusRepository
}

// NewRepository creates a synchronization repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db, store: repository.NewDocumentStatusRepository(db)}
}

func (r *gormRepository) GetTemplate(id uint) (*models.DocumentTemplate, error) {
	var template models.DocumentTemplate
	if err := r.db.First(&template, id).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *gormRepository) GetActiveTemplates() ([]models.DocumentTemplate, error) {
	var templates []models.DocumentTemplate
	err := r.db.Where("is_active = ?", true).Order("title").Find(&templates).Error
	return templates, err
}

func (r *gormRepository) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetApprovedNonAdmin() ([]models.User, error) {
	var users []models.User
	err := r.db.Where("status = ? AND role != ?", models.STATUS_APPROVED, models.ROLE_ADMIN).
		Order("name").Find(&users).Error
	return users, err
}

func (r *gormRepository) ExistingUserIDsForTemplate(templateID uint) (map[uint]struct{}, error) {
	var ids []uint
	err := r.db.Model(&models.UserDocumentStatus{}).
		Where("template_id = ?", templateID).Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (r *gormRepository) ExistingTemplateIDsForUser(userID uint) (map[uint]struct{}, error) {
	var ids []uint
	err := r.db.Model(&models.UserDocumentStatus{}).
		Where("user_id = ?", userID).Pluck("template_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (r *gormRepository) ExistingPairs() (map[[2]uint]struct{}, error) {
	var rows []struct {
		UserID     uint
		TemplateID uint
	}
	err := r.db.Model(&models.UserDocumentStatus{}).
		Select("user_id", "template_id").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	set := make(map[[2]uint]struct{}, len(rows))
	for _, row := range rows {
		set[[2]uint{row.UserID, row.TemplateID}] = struct{}{}
	}
	return set, nil
}

// CreateStatusRows inserts one chunk of rows. The OnConflict DoNothing
// clause on the (user_id, template_id) unique index makes races with
// concurrent sweeps or approvals lose quietly; the returned count reflects
// rows actually inserted.
func (r *gormRepository) CreateStatusRows(rows []models.UserDocumentStatus) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "template_id"},
		},
		DoNothing: true,
	}).Create(&rows)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return tx.RowsAffected, nil
}

// CreateStatusRow inserts a single row through the shared status store,
// whose conflict guard makes an existing pair a quiet no-op. Used to retry
// a failed chunk row by row.
func (r *gormRepository) CreateStatusRow(row *models.UserDocumentStatus) (bool, error) {
	return r.store.Create(row)
}
