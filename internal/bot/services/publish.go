package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/contentgate/contentgate/internal/bot/models"
	"github.com/contentgate/contentgate/internal/bot/repositories/repomanager"
	"github.com/contentgate/contentgate/internal/common"
	"github.com/contentgate/contentgate/internal/dbx"
	"github.com/contentgate/contentgate/internal/logging"
)

// TextOnlyMarker prefixes descriptions of content that carries no media,
// so channel posts make clear there is only a link or text behind the gate.
const TextOnlyMarker = "[URL/TEXT]\n"

// Announcer posts a finished content item to the broadcast channel and
// returns the resulting message id.
type Announcer interface {
	Announce(ctx context.Context, content *models.Content) (int64, error)
}

// Draft is a completed upload ready to be persisted and announced.
// Text-only drafts carry their url/text body in Payload and no Items.
type Draft struct {
	UploaderID    int64
	ThumbFileID   string
	Description   string
	Payload       string
	IsTextOnly    bool
	RequiresToken bool
	Items         []models.MediaItem
}

// PublishService persists finished uploads and announces them to the channel.
type PublishService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	announcer   Announcer
	logger      logging.Logger
}

// NewPublishService constructs a PublishService.
func NewPublishService(db *sql.DB, m repomanager.RepositoryManager, announcer Announcer, logger logging.Logger) *PublishService {
	return &PublishService{db: db, repomanager: m, announcer: announcer, logger: logger.With("module", "publish")}
}

// Publish stores the draft's content row and media items in one transaction,
// then announces it to the channel. Announcement is best effort: the content
// stays persisted even if the channel post fails, and the failure is only
// logged. The returned Content always reflects the stored row.
func (s *PublishService) Publish(ctx context.Context, draft *Draft) (*models.Content, error) {
	if err := s.validate(draft); err != nil {
		return nil, err
	}

	content := &models.Content{
		UploaderID:    draft.UploaderID,
		ThumbFileID:   draft.ThumbFileID,
		Description:   draft.Description,
		IsTextOnly:    draft.IsTextOnly,
		RequiresToken: draft.RequiresToken,
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.Content(tx)
		created, err := repoTx.Create(ctx, content)
		if err != nil {
			return fmt.Errorf("error creating content: %w", err)
		}
		content = created
		if draft.IsTextOnly {
			full := textOnlyDescription(draft.Description, draft.Payload)
			if err := repoTx.UpdateDescription(ctx, content.ID, full); err != nil {
				return fmt.Errorf("error appending payload: %w", err)
			}
			content.Description = full
		}
		for i := range draft.Items {
			item := draft.Items[i]
			item.ContentID = content.ID
			if err := repoTx.AddMediaItem(ctx, &item); err != nil {
				return fmt.Errorf("error adding media item: %w", err)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	messageID, err := s.announcer.Announce(ctx, content)
	if err != nil {
		s.logger.Warn(ctx, "announcement failed, content kept", "content_id", content.ID, "error", err)
		return content, nil
	}

	if err := s.repomanager.Content(s.db).SetAnnouncementMessageID(ctx, content.ID, messageID); err != nil {
		s.logger.Warn(ctx, "error saving announcement message id", "content_id", content.ID, "error", err)
		return content, nil
	}
	content.AnnouncementMessageID = &messageID
	return content, nil
}

func (s *PublishService) validate(draft *Draft) error {
	if draft.IsTextOnly {
		if len(draft.Items) > 0 {
			return fmt.Errorf("%w: text-only draft with media items", common.ErrValidation)
		}
		if strings.TrimSpace(draft.Payload) == "" {
			return fmt.Errorf("%w: text-only draft without payload", common.ErrValidation)
		}
		return nil
	}
	if len(draft.Items) == 0 {
		return fmt.Errorf("%w: draft without media items", common.ErrValidation)
	}
	return nil
}

// textOnlyDescription builds the stored description of a text-only item:
// the marker line, the uploader's description if any, then the payload.
func textOnlyDescription(description, payload string) string {
	out := TextOnlyMarker
	if strings.TrimSpace(description) != "" {
		out += description + "\n"
	}
	return out + payload
}
