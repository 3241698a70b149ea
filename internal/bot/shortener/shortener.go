// Package shortener wraps an exe.io-style monetized link shortener. Gate
// links are routed through the shortener when an API key is configured;
// on any failure the untouched deep link is handed out instead, so the
// gate keeps working without the shortener.
package shortener

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/contentgate/contentgate/internal/bot/auth"
	"github.com/contentgate/contentgate/internal/bot/config"
	"github.com/contentgate/contentgate/internal/bot/models"
	"github.com/contentgate/contentgate/internal/bot/repositories/repomanager"
	"github.com/contentgate/contentgate/internal/logging"
)

// Gateway turns a redeemable deep link into the URL shown to the user.
type Gateway interface {
	// GateLink returns the URL to present for the given access token. The
	// returned URL is the shortened callback link when shortening succeeds,
	// or deepLink itself when the shortener is disabled or unavailable.
	GateLink(ctx context.Context, accessToken, deepLink string) (string, error)
}

type apiResponse struct {
	Status       string `json:"status"`
	ShortenedURL string `json:"shortenedUrl"`
	Message      string `json:"message"`
}

// ExeService is the exe.io implementation of Gateway.
type ExeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	client      *http.Client
	cfg         *config.Config
	logger      logging.Logger
}

// NewExeService constructs an ExeService with a bounded HTTP client.
func NewExeService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *ExeService {
	return &ExeService{
		db:          db,
		repomanager: m,
		client:      &http.Client{Timeout: cfg.ShortenerTimeout},
		cfg:         cfg,
		logger:      logger.With("module", "shortener"),
	}
}

// GateLink shortens a signed callback link that redirects to deepLink. Every
// successful shortening is recorded in the audit table.
func (s *ExeService) GateLink(ctx context.Context, accessToken, deepLink string) (string, error) {
	if s.cfg.ShortenerAPIKey == "" {
		return deepLink, nil
	}

	callbackURL, err := s.buildCallbackURL(accessToken, deepLink)
	if err != nil {
		s.logger.Warn(ctx, "error building callback url, using plain link", "error", err)
		return deepLink, nil
	}

	shortURL, err := s.shorten(ctx, callbackURL)
	if err != nil {
		s.logger.Warn(ctx, "shortener unavailable, using plain link", "error", err)
		return deepLink, nil
	}

	req := &models.ShortenerRequest{
		ID:       uuid.NewString(),
		ShortURL: shortURL,
		Token:    accessToken,
		Status:   models.ShortenerStatusCreated,
	}
	if err := s.repomanager.ShortenerRequests(s.db).Create(ctx, req); err != nil {
		s.logger.Warn(ctx, "error recording shortener request", "error", err)
	}
	return shortURL, nil
}

// buildCallbackURL signs a callback token and appends it to the configured
// base URL. The shortened link lands on our endpoint, which verifies the
// token and redirects to the deep link.
func (s *ExeService) buildCallbackURL(accessToken, deepLink string) (string, error) {
	signed, err := auth.GenerateCallbackToken(accessToken, deepLink, []byte(s.cfg.ShortenerCallbackSecret), s.cfg.TokenTTL)
	if err != nil {
		return "", err
	}
	return s.cfg.CallbackBaseURL + "/cb/" + signed, nil
}

func (s *ExeService) shorten(ctx context.Context, longURL string) (string, error) {
	u := fmt.Sprintf("%s?api=%s&url=%s", s.cfg.ShortenerEndpoint, url.QueryEscape(s.cfg.ShortenerAPIKey), url.QueryEscape(longURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shortener returned status %d", resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("error decoding shortener response: %w", err)
	}
	if parsed.Status != "success" || parsed.ShortenedURL == "" {
		return "", fmt.Errorf("shortener error: %s", parsed.Message)
	}
	return parsed.ShortenedURL, nil
}
