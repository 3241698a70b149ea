package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/contentgate/contentgate/internal/bot/models"
	"github.com/contentgate/contentgate/internal/bot/repositories/repomanager"
	"github.com/contentgate/contentgate/internal/common"
)

// Decision is the outcome of resolving an access request.
type Decision int

const (
	// DecisionDeliver means the content may be sent right away.
	DecisionDeliver Decision = iota
	// DecisionRequireToken means the user must redeem an access token first.
	DecisionRequireToken
)

// AccessService decides whether a content request is delivered immediately
// or gated behind a token.
type AccessService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	identity    *IdentityService
	tokens      *TokenService
}

// NewAccessService constructs an AccessService.
func NewAccessService(db *sql.DB, m repomanager.RepositoryManager, identity *IdentityService, tokens *TokenService) *AccessService {
	return &AccessService{db: db, repomanager: m, identity: identity, tokens: tokens}
}

// Resolve looks up the content and decides the gate outcome for userID.
// Ungated content and VIPs get DecisionDeliver; an upload password session
// does not bypass the gate. For everyone else the user's newest token for
// this content is redeemed on the spot when it is still valid; only when
// that fails too does the caller have to offer token issuance. A missing
// content id surfaces as common.ErrorNotFound.
func (s *AccessService) Resolve(ctx context.Context, userID, contentID int64) (Decision, *models.Content, error) {
	content, err := s.repomanager.Content(s.db).GetByID(ctx, contentID)
	if err != nil {
		return DecisionRequireToken, nil, err
	}
	if !content.RequiresToken {
		return DecisionDeliver, content, nil
	}
	vip, err := s.identity.IsVIP(ctx, userID)
	if err != nil {
		return DecisionRequireToken, nil, err
	}
	if vip {
		return DecisionDeliver, content, nil
	}

	latest, err := s.tokens.Latest(ctx, userID, contentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return DecisionRequireToken, content, nil
		}
		return DecisionRequireToken, nil, err
	}
	if latest.IsUsed || !latest.ExpiresAt.After(time.Now()) {
		return DecisionRequireToken, content, nil
	}
	if _, err := s.tokens.Redeem(ctx, latest.Token, userID); err != nil {
		// Lost a concurrent redemption, or the token aged out in between.
		if errors.Is(err, common.ErrTokenExpiredOrUsed) || errors.Is(err, common.ErrTokenNotOwner) {
			return DecisionRequireToken, content, nil
		}
		return DecisionRequireToken, nil, err
	}
	return DecisionDeliver, content, nil
}

// Content returns the stored content row.
func (s *AccessService) Content(ctx context.Context, contentID int64) (*models.Content, error) {
	return s.repomanager.Content(s.db).GetByID(ctx, contentID)
}

// Media returns the content's media items in upload order.
func (s *AccessService) Media(ctx context.Context, contentID int64) ([]models.MediaItem, error) {
	return s.repomanager.Content(s.db).ListMedia(ctx, contentID)
}
