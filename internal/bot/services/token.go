package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/contentgate/contentgate/internal/bot/config"
	"github.com/contentgate/contentgate/internal/bot/models"
	"github.com/contentgate/contentgate/internal/bot/repositories/repomanager"
	"github.com/contentgate/contentgate/internal/common"
)

const tokenBytes = 16

// TokenService issues and redeems single-use access tokens. A token is
// bound to the (user, content) pair it was issued for and can be spent
// exactly once before its TTL elapses.
type TokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokenTTL    time.Duration
}

// NewTokenService constructs a TokenService using repositories and config.
func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *TokenService {
	return &TokenService{db: db, repomanager: m, tokenTTL: cfg.TokenTTL}
}

// Issue mints a fresh token for the user/content pair. Issuing again for
// the same pair is allowed; each token is independent and each is still
// single-use.
func (s *TokenService) Issue(ctx context.Context, userID, contentID int64) (*models.AccessToken, error) {
	value, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}
	now := time.Now()
	token := &models.AccessToken{
		Token:     value,
		UserID:    userID,
		ContentID: contentID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.tokenTTL),
	}
	repo := s.repomanager.Tokens(s.db)
	if err := repo.Upsert(ctx, token); err != nil {
		return nil, fmt.Errorf("error storing token: %w", err)
	}
	return token, nil
}

// Redeem atomically spends the token on behalf of userID and returns it.
// Exactly one caller can win a given token; everyone else gets an error:
//   - ErrTokenNotOwner when the token belongs to a different user
//   - ErrTokenExpiredOrUsed when it is unknown, already spent, or past TTL
func (s *TokenService) Redeem(ctx context.Context, tokenValue string, userID int64) (*models.AccessToken, error) {
	repo := s.repomanager.Tokens(s.db)

	won, err := repo.Redeem(ctx, tokenValue, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("error redeeming token: %w", err)
	}
	if won {
		token, err := repo.Get(ctx, tokenValue)
		if err != nil {
			return nil, fmt.Errorf("error reading redeemed token: %w", err)
		}
		return token, nil
	}

	// Lost the conditional update. Read the row to tell the caller why.
	token, err := repo.Get(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenExpiredOrUsed
		}
		return nil, fmt.Errorf("error reading token: %w", err)
	}
	if token.UserID != userID {
		return nil, common.ErrTokenNotOwner
	}
	return nil, common.ErrTokenExpiredOrUsed
}

// Validate reports whether the token could still be redeemed right now. It
// returns the row when the token exists, is unspent and within its TTL, and
// ErrTokenExpiredOrUsed otherwise. Ownership is not checked here; Redeem is
// the authority on that.
func (s *TokenService) Validate(ctx context.Context, tokenValue string) (*models.AccessToken, error) {
	token, err := s.repomanager.Tokens(s.db).Get(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenExpiredOrUsed
		}
		return nil, fmt.Errorf("error reading token: %w", err)
	}
	if token.IsUsed || !token.ExpiresAt.After(time.Now()) {
		return nil, common.ErrTokenExpiredOrUsed
	}
	return token, nil
}

// Latest returns the most recently issued token for the pair, if any.
func (s *TokenService) Latest(ctx context.Context, userID, contentID int64) (*models.AccessToken, error) {
	return s.repomanager.Tokens(s.db).GetLatestForUserContent(ctx, userID, contentID)
}
