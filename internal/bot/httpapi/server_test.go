package httpapi

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentgate/contentgate/internal/bot/auth"
	"github.com/contentgate/contentgate/internal/bot/config"
	"github.com/contentgate/contentgate/internal/bot/models"
	contentrepo "github.com/contentgate/contentgate/internal/bot/repositories/content"
	settingsrepo "github.com/contentgate/contentgate/internal/bot/repositories/settings"
	shortreqsrepo "github.com/contentgate/contentgate/internal/bot/repositories/shortreqs"
	tokensrepo "github.com/contentgate/contentgate/internal/bot/repositories/tokens"
	usersrepo "github.com/contentgate/contentgate/internal/bot/repositories/users"
	"github.com/contentgate/contentgate/internal/dbx"
	"github.com/contentgate/contentgate/internal/logging"
)

type fakeShortReqsRepo struct {
	mu      sync.Mutex
	updates map[string]string
	err     error
}

func (f *fakeShortReqsRepo) Create(ctx context.Context, req *models.ShortenerRequest) error {
	return nil
}

func (f *fakeShortReqsRepo) UpdateStatusByToken(ctx context.Context, token, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.updates == nil {
		f.updates = map[string]string{}
	}
	f.updates[token] = status
	return nil
}

type fakeRepoManager struct {
	sr *fakeShortReqsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return nil }
func (m *fakeRepoManager) Content(db dbx.DBTX) contentrepo.Repository             { return nil }
func (m *fakeRepoManager) Tokens(db dbx.DBTX) tokensrepo.Repository               { return nil }
func (m *fakeRepoManager) Settings(db dbx.DBTX) settingsrepo.Repository           { return nil }
func (m *fakeRepoManager) ShortenerRequests(db dbx.DBTX) shortreqsrepo.Repository { return m.sr }

func newTestServer(t *testing.T, sr *fakeShortReqsRepo) *Server {
	t.Helper()
	cfg := &config.Config{
		ShortenerCallbackSecret: "cbsecret",
		EndpointAddrHTTP:        ":0",
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewServer(nil, &fakeRepoManager{sr: sr}, cfg, logger)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeShortReqsRepo{})
	router := s.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCallback_RedirectsAndMarksCompleted(t *testing.T) {
	sr := &fakeShortReqsRepo{}
	s := newTestServer(t, sr)
	router := s.Router()

	signed, err := auth.GenerateCallbackToken("tok1", "https://t.me/mybot?start=token_tok1", []byte("cbsecret"), time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cb/"+signed, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://t.me/mybot?start=token_tok1", w.Header().Get("Location"))
	assert.Equal(t, models.ShortenerStatusCompleted, sr.updates["tok1"])
}

func TestCallback_InvalidToken(t *testing.T) {
	s := newTestServer(t, &fakeShortReqsRepo{})
	router := s.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cb/garbage", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCallback_ExpiredToken(t *testing.T) {
	s := newTestServer(t, &fakeShortReqsRepo{})
	router := s.Router()

	signed, err := auth.GenerateCallbackToken("tok1", "https://t.me/x", []byte("cbsecret"), -time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cb/"+signed, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCallback_UpdateFailureStillRedirects(t *testing.T) {
	sr := &fakeShortReqsRepo{err: context.DeadlineExceeded}
	s := newTestServer(t, sr)
	router := s.Router()

	signed, err := auth.GenerateCallbackToken("tok1", "https://t.me/x", []byte("cbsecret"), time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cb/"+signed, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
}
