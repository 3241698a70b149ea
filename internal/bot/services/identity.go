// Package services contains the bot's business logic. This file implements
// IdentityService, which handles password sessions, VIP status, and the
// persisted upload password.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/contentgate/contentgate/internal/bot/config"
	"github.com/contentgate/contentgate/internal/bot/models"
	"github.com/contentgate/contentgate/internal/bot/repositories/repomanager"
	"github.com/contentgate/contentgate/internal/bot/repositories/settings"
	"github.com/contentgate/contentgate/internal/common"
)

// IdentityService provides user-facing authentication operations:
// - Authenticate: verify the upload password and open a timed session
// - IsAuthenticated: check VIP status or a still-valid session
// - SetVIP / ChangePassword: admin operations
type IdentityService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	passwordValidity time.Duration
	initialPassword  string
	adminIDs         []int64
}

// NewIdentityService constructs an IdentityService from repositories and config.
func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *IdentityService {
	return &IdentityService{
		db:               db,
		repomanager:      m,
		passwordValidity: cfg.PasswordValidity,
		initialPassword:  cfg.UploadPassword,
		adminIDs:         cfg.AdminIDs,
	}
}

// EnsurePassword stores a bcrypt hash of the configured initial password in
// settings unless one is already persisted. Called once on startup so that
// later /changepass updates survive restarts.
func (s *IdentityService) EnsurePassword(ctx context.Context) error {
	repo := s.repomanager.Settings(s.db)
	_, err := repo.Get(ctx, settings.KeyPasswordHash)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error reading password hash: %w", err)
	}
	return s.storePassword(ctx, s.initialPassword)
}

// CheckPassword reports whether candidate matches the persisted upload password.
func (s *IdentityService) CheckPassword(ctx context.Context, candidate string) (bool, error) {
	repo := s.repomanager.Settings(s.db)
	hash, err := repo.Get(ctx, settings.KeyPasswordHash)
	if err != nil {
		return false, fmt.Errorf("error reading password hash: %w", err)
	}
	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("error comparing password: %w", err)
	}
	return true, nil
}

// Authenticate verifies the password and, on success, opens a session valid
// for the configured duration. A wrong password yields ErrWrongPassword.
func (s *IdentityService) Authenticate(ctx context.Context, userID int64, candidate string) error {
	ok, err := s.CheckPassword(ctx, candidate)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrWrongPassword
	}
	repo := s.repomanager.Users(s.db)
	if err := repo.SetAuth(ctx, userID, time.Now()); err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether the user may start an upload without
// entering the password: VIPs always may, everyone else only within the
// password validity window.
func (s *IdentityService) IsAuthenticated(ctx context.Context, userID int64) (bool, error) {
	user, err := s.repomanager.Users(s.db).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	if user.IsVIP {
		return true, nil
	}
	if user.LastAuthAt == nil {
		return false, nil
	}
	return time.Since(*user.LastAuthAt) < s.passwordValidity, nil
}

// IsVIP reports whether the user holds the permanent bypass flag. Unknown
// users are simply not VIPs.
func (s *IdentityService) IsVIP(ctx context.Context, userID int64) (bool, error) {
	user, err := s.repomanager.Users(s.db).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsVIP, nil
}

// SetVIP grants or revokes permanent bypass for a user.
func (s *IdentityService) SetVIP(ctx context.Context, userID int64, vip bool) error {
	return s.repomanager.Users(s.db).SetVIP(ctx, userID, vip)
}

// ChangePassword replaces the persisted upload password. Existing sessions
// stay valid; only new password entries are checked against the new value.
func (s *IdentityService) ChangePassword(ctx context.Context, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: empty password", common.ErrValidation)
	}
	return s.storePassword(ctx, newPassword)
}

// Info returns the stored profile for a user, or a zero profile if the user
// has never interacted with the gate.
func (s *IdentityService) Info(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &models.User{ID: userID}, nil
		}
		return nil, err
	}
	return user, nil
}

// IsAdmin reports whether the user id is in the configured admin list.
func (s *IdentityService) IsAdmin(userID int64) bool {
	for _, id := range s.adminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (s *IdentityService) storePassword(ctx context.Context, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	repo := s.repomanager.Settings(s.db)
	if err := repo.Set(ctx, settings.KeyPasswordHash, string(hash)); err != nil {
		return fmt.Errorf("error storing password hash: %w", err)
	}
	return nil
}
