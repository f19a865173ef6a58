package docsync

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/synergychantilly/cgresbox-backend/app/models"
)

// fakeRepo is an in-memory Repository with the same conflict semantics as
// the real one: inserting an existing (user, template) pair is a quiet
// no-op that does not count as created.
type fakeRepo struct {
	users     map[uint]*models.User
	templates map[uint]*models.DocumentTemplate
	pairs     map[[2]uint]struct{}

	chunkSizes []int
	// user ids whose rows fail: a batch containing one fails wholesale,
	// and the row itself fails on the single-row retry too.
	failRows map[uint]struct{}
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:     make(map[uint]*models.User),
		templates: make(map[uint]*models.DocumentTemplate),
		pairs:     make(map[[2]uint]struct{}),
	}
}

func (f *fakeRepo) addUser(id uint, status, role string) {
	f.users[id] = &models.User{ID: id, Name: fmt.Sprintf("User %d", id), Status: status, Role: role}
}

func (f *fakeRepo) addTemplate(id uint, active bool) {
	f.templates[id] = &models.DocumentTemplate{ID: id, Title: fmt.Sprintf("Template %d", id), IsActive: active}
}

func (f *fakeRepo) GetTemplate(id uint) (*models.DocumentTemplate, error) {
	if template, ok := f.templates[id]; ok {
		return template, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetActiveTemplates() ([]models.DocumentTemplate, error) {
	var templates []models.DocumentTemplate
	for _, template := range f.templates {
		if template.IsActive {
			templates = append(templates, *template)
		}
	}
	return templates, nil
}

func (f *fakeRepo) GetUser(id uint) (*models.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetApprovedNonAdmin() ([]models.User, error) {
	var users []models.User
	for _, user := range f.users {
		if user.IsApproved() && !user.IsAdmin() {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (f *fakeRepo) ExistingUserIDsForTemplate(templateID uint) (map[uint]struct{}, error) {
	set := make(map[uint]struct{})
	for pair := range f.pairs {
		if pair[1] == templateID {
			set[pair[0]] = struct{}{}
		}
	}
	return set, nil
}

func (f *fakeRepo) ExistingTemplateIDsForUser(userID uint) (map[uint]struct{}, error) {
	set := make(map[uint]struct{})
	for pair := range f.pairs {
		if pair[0] == userID {
			set[pair[1]] = struct{}{}
		}
	}
	return set, nil
}

func (f *fakeRepo) ExistingPairs() (map[[2]uint]struct{}, error) {
	set := make(map[[2]uint]struct{}, len(f.pairs))
	for pair := range f.pairs {
		set[pair] = struct{}{}
	}
	return set, nil
}

func (f *fakeRepo) CreateStatusRows(rows []models.UserDocumentStatus) (int64, error) {
	f.chunkSizes = append(f.chunkSizes, len(rows))
	for _, row := range rows {
		if _, ok := f.failRows[row.UserID]; ok {
			return 0, errors.New("deadlock")
		}
	}
	var inserted int64
	for _, row := range rows {
		key := [2]uint{row.UserID, row.TemplateID}
		if _, ok := f.pairs[key]; ok {
			continue
		}
		f.pairs[key] = struct{}{}
		inserted++
	}
	return inserted, nil
}

func (f *fakeRepo) CreateStatusRow(row *models.UserDocumentStatus) (bool, error) {
	if _, ok := f.failRows[row.UserID]; ok {
		return false, errors.New("lock wait timeout")
	}
	key := [2]uint{row.UserID, row.TemplateID}
	if _, ok := f.pairs[key]; ok {
		return false, nil
	}
	f.pairs[key] = struct{}{}
	return true, nil
}

func TestFullSweep_CreatesCrossProductOnce(t *testing.T) {
	repo := newFakeRepo()
	for i := uint(1); i <= 4; i++ {
		repo.addUser(i, models.STATUS_APPROVED, models.ROLE_USER)
	}
	repo.addUser(5, models.STATUS_PENDING, models.ROLE_USER)
	repo.addUser(6, models.STATUS_APPROVED, models.ROLE_ADMIN)
	for i := uint(1); i <= 3; i++ {
		repo.addTemplate(i, true)
	}
	repo.addTemplate(4, false)

	svc := NewService(repo)

	result, err := svc.FullSweep(context.Background())
	if err != nil {
		t.Fatalf("FullSweep returned error: %v", err)
	}
	// 4 eligible employees x 3 active templates; pending, admin and the
	// deactivated template contribute nothing.
	if result.Created != 12 || result.Skipped != 0 || result.Failed != 0 {
		t.Fatalf("first sweep = %+v, want 12 created", result)
	}
	if len(repo.pairs) != 12 {
		t.Fatalf("store holds %d pairs, want 12", len(repo.pairs))
	}

	rerun, err := svc.FullSweep(context.Background())
	if err != nil {
		t.Fatalf("rerun returned error: %v", err)
	}
	if rerun.Created != 0 || rerun.Skipped != 12 {
		t.Fatalf("rerun = %+v, want 0 created / 12 skipped", rerun)
	}
	if len(repo.pairs) != 12 {
		t.Fatalf("rerun changed the store: %d pairs", len(repo.pairs))
	}
}

func TestSyncTemplate_OnlyMissingRows(t *testing.T) {
	repo := newFakeRepo()
	for i := uint(1); i <= 50; i++ {
		repo.addUser(i, models.STATUS_APPROVED, models.ROLE_USER)
	}
	repo.addTemplate(1, true)
	// 10 employees already have a row from a previous pass.
	for i := uint(1); i <= 10; i++ {
		repo.pairs[[2]uint{i, 1}] = struct{}{}
	}

	svc := NewService(repo)

	result, err := svc.SyncTemplate(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncTemplate returned error: %v", err)
	}
	if result.Created != 40 || result.Skipped != 10 {
		t.Fatalf("result = %+v, want 40 created / 10 skipped", result)
	}
	if len(repo.pairs) != 50 {
		t.Fatalf("store holds %d pairs, want 50", len(repo.pairs))
	}
}

func TestSyncTemplate_MissingOrInactive(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(1, models.STATUS_APPROVED, models.ROLE_USER)
	repo.addTemplate(2, false)
	svc := NewService(repo)

	result, err := svc.SyncTemplate(context.Background(), 99)
	if err != nil {
		t.Fatalf("missing template: %v", err)
	}
	if result.Created != 0 {
		t.Fatalf("missing template created rows: %+v", result)
	}

	result, err = svc.SyncTemplate(context.Background(), 2)
	if err != nil {
		t.Fatalf("inactive template: %v", err)
	}
	if result.Created != 0 || len(repo.pairs) != 0 {
		t.Fatalf("inactive template created rows: %+v", result)
	}
}

func TestSyncUser(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(1, models.STATUS_APPROVED, models.ROLE_USER)
	for i := uint(1); i <= 5; i++ {
		repo.addTemplate(i, true)
	}
	repo.pairs[[2]uint{1, 3}] = struct{}{}

	svc := NewService(repo)

	result, err := svc.SyncUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncUser returned error: %v", err)
	}
	if result.Created != 4 || result.Skipped != 1 {
		t.Fatalf("result = %+v, want 4 created / 1 skipped", result)
	}
}

func TestSyncUser_IneligibleAccounts(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(1, models.STATUS_PENDING, models.ROLE_USER)
	repo.addUser(2, models.STATUS_APPROVED, models.ROLE_ADMIN)
	repo.addTemplate(1, true)
	svc := NewService(repo)

	for _, id := range []uint{1, 2, 99} {
		result, err := svc.SyncUser(context.Background(), id)
		if err != nil {
			t.Fatalf("SyncUser(%d) returned error: %v", id, err)
		}
		if result.Created != 0 || len(repo.pairs) != 0 {
			t.Fatalf("SyncUser(%d) created rows: %+v", id, result)
		}
	}
}

func TestInsertChunks_Batching(t *testing.T) {
	repo := newFakeRepo()
	for i := uint(1); i <= 1101; i++ {
		repo.addUser(i, models.STATUS_APPROVED, models.ROLE_USER)
	}
	repo.addTemplate(1, true)

	svc := NewService(repo)

	result, err := svc.SyncTemplate(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncTemplate returned error: %v", err)
	}
	if result.Created != 1101 {
		t.Fatalf("created = %d, want 1101", result.Created)
	}
	if len(repo.chunkSizes) != 3 {
		t.Fatalf("chunks = %v, want 3 batches", repo.chunkSizes)
	}
	for _, size := range repo.chunkSizes {
		if size > ChunkSize {
			t.Fatalf("chunk of %d rows exceeds limit %d", size, ChunkSize)
		}
	}
}

func TestInsertChunks_FailedChunkRetriesRowByRow(t *testing.T) {
	repo := newFakeRepo()
	for i := uint(1); i <= 1200; i++ {
		repo.addUser(i, models.STATUS_APPROVED, models.ROLE_USER)
	}
	repo.addTemplate(1, true)
	// Two poisoned rows: every batch containing one fails wholesale and
	// the rows themselves fail again on the single-row retry.
	repo.failRows = map[uint]struct{}{600: {}, 601: {}}

	svc := NewService(repo)

	result, err := svc.SyncTemplate(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncTemplate returned error: %v", err)
	}
	if result.Failed != 2 {
		t.Fatalf("failed = %d, want 2", result.Failed)
	}
	if result.Created != 1198 {
		t.Fatalf("created = %d, want 1198", result.Created)
	}
	if len(repo.pairs) != 1198 {
		t.Fatalf("store holds %d pairs, want 1198", len(repo.pairs))
	}

	// The rerun picks up exactly the rows that failed.
	repo.failRows = nil
	rerun, err := svc.SyncTemplate(context.Background(), 1)
	if err != nil {
		t.Fatalf("rerun returned error: %v", err)
	}
	if rerun.Created != 2 {
		t.Fatalf("rerun created = %d, want 2", rerun.Created)
	}
	if len(repo.pairs) != 1200 {
		t.Fatalf("store holds %d pairs, want 1200", len(repo.pairs))
	}
}
