package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/contentgate/contentgate/internal/bot/models"
	contentrepo "github.com/contentgate/contentgate/internal/bot/repositories/content"
	settingsrepo "github.com/contentgate/contentgate/internal/bot/repositories/settings"
	shortreqsrepo "github.com/contentgate/contentgate/internal/bot/repositories/shortreqs"
	tokensrepo "github.com/contentgate/contentgate/internal/bot/repositories/tokens"
	usersrepo "github.com/contentgate/contentgate/internal/bot/repositories/users"
	"github.com/contentgate/contentgate/internal/common"
	"github.com/contentgate/contentgate/internal/dbx"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// fakeUsersRepo keeps user rows in a map.
type fakeUsersRepo struct {
	mu    sync.Mutex
	users map[int64]*models.User

	getErr error
	setErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[int64]*models.User{}}
}

func (f *fakeUsersRepo) Get(ctx context.Context, userID int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) SetAuth(ctx context.Context, userID int64, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	u, ok := f.users[userID]
	if !ok {
		u = &models.User{ID: userID}
		f.users[userID] = u
	}
	t := ts
	u.LastAuthAt = &t
	return nil
}

func (f *fakeUsersRepo) SetVIP(ctx context.Context, userID int64, isVIP bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	u, ok := f.users[userID]
	if !ok {
		u = &models.User{ID: userID}
		f.users[userID] = u
	}
	u.IsVIP = isVIP
	return nil
}

// fakeSettingsRepo keeps settings in a map.
type fakeSettingsRepo struct {
	mu     sync.Mutex
	values map[string]string

	getErr error
	setErr error
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{values: map[string]string{}}
}

func (f *fakeSettingsRepo) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", common.ErrorNotFound
	}
	return v, nil
}

func (f *fakeSettingsRepo) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	return nil
}

// fakeTokensRepo mimics the conditional-update semantics of the real table,
// including the single-winner guarantee under concurrency.
type fakeTokensRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.AccessToken

	upsertErr error
	redeemErr error
}

func newFakeTokensRepo() *fakeTokensRepo {
	return &fakeTokensRepo{tokens: map[string]*models.AccessToken{}}
}

func (f *fakeTokensRepo) Upsert(ctx context.Context, t *models.AccessToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *t
	f.tokens[t.Token] = &cp
	return nil
}

func (f *fakeTokensRepo) Get(ctx context.Context, token string) (*models.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokensRepo) GetLatestForUserContent(ctx context.Context, userID, contentID int64) (*models.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.AccessToken
	for _, t := range f.tokens {
		if t.UserID != userID || t.ContentID != contentID {
			continue
		}
		if latest == nil || t.IssuedAt.After(latest.IssuedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, common.ErrorNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeTokensRepo) Redeem(ctx context.Context, token string, userID int64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.redeemErr != nil {
		return false, f.redeemErr
	}
	t, ok := f.tokens[token]
	if !ok || t.IsUsed || t.UserID != userID || !t.ExpiresAt.After(now) {
		return false, nil
	}
	t.IsUsed = true
	return true, nil
}

// fakeContentRepo keeps content and media in memory.
type fakeContentRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Content
	media  map[int64][]models.MediaItem

	createErr   error
	addMediaErr error
	announceErr error
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{nextID: 1, rows: map[int64]*models.Content{}, media: map[int64][]models.MediaItem{}}
}

func (f *fakeContentRepo) Create(ctx context.Context, c *models.Content) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	cp := *c
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	f.nextID++
	f.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeContentRepo) GetByID(ctx context.Context, contentID int64) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[contentID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContentRepo) UpdateDescription(ctx context.Context, contentID int64, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[contentID]
	if !ok {
		return common.ErrorNotFound
	}
	c.Description = description
	return nil
}

func (f *fakeContentRepo) SetAnnouncementMessageID(ctx context.Context, contentID, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.announceErr != nil {
		return f.announceErr
	}
	c, ok := f.rows[contentID]
	if !ok {
		return common.ErrorNotFound
	}
	c.AnnouncementMessageID = &messageID
	return nil
}

func (f *fakeContentRepo) AddMediaItem(ctx context.Context, m *models.MediaItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addMediaErr != nil {
		return f.addMediaErr
	}
	cp := *m
	cp.ID = int64(len(f.media[m.ContentID]) + 1)
	f.media[m.ContentID] = append(f.media[m.ContentID], cp)
	return nil
}

func (f *fakeContentRepo) ListMedia(ctx context.Context, contentID int64) ([]models.MediaItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.media[contentID]
	out := make([]models.MediaItem, len(items))
	copy(out, items)
	return out, nil
}

// fakeShortReqsRepo records calls only.
type fakeShortReqsRepo struct {
	mu      sync.Mutex
	created []models.ShortenerRequest
}

func (f *fakeShortReqsRepo) Create(ctx context.Context, req *models.ShortenerRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *req)
	return nil
}

func (f *fakeShortReqsRepo) UpdateStatusByToken(ctx context.Context, token, status string) error {
	return nil
}

// fakeRepoManager hands out the fakes regardless of the db handle.
type fakeRepoManager struct {
	u  *fakeUsersRepo
	c  *fakeContentRepo
	t  *fakeTokensRepo
	s  *fakeSettingsRepo
	sr *fakeShortReqsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u:  newFakeUsersRepo(),
		c:  newFakeContentRepo(),
		t:  newFakeTokensRepo(),
		s:  newFakeSettingsRepo(),
		sr: &fakeShortReqsRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) Content(db dbx.DBTX) contentrepo.Repository             { return m.c }
func (m *fakeRepoManager) Tokens(db dbx.DBTX) tokensrepo.Repository               { return m.t }
func (m *fakeRepoManager) Settings(db dbx.DBTX) settingsrepo.Repository           { return m.s }
func (m *fakeRepoManager) ShortenerRequests(db dbx.DBTX) shortreqsrepo.Repository { return m.sr }
