// Package upload implements the conversational state machine that walks an
// uploader from the upload command through thumbnail, description, and media
// collection to a published, announced content item.
package upload

import (
	"time"

	"github.com/contentgate/contentgate/internal/bot/models"
)

// State is the position of an upload conversation.
type State int

const (
	// StateAwaitingPassword waits for the upload password.
	StateAwaitingPassword State = iota
	// StateAwaitingThumbnail waits for the announcement image.
	StateAwaitingThumbnail
	// StateAwaitingDescription waits for the post description.
	StateAwaitingDescription
	// StateAwaitingOption waits for the source choice (device, forward,
	// url/text).
	StateAwaitingOption
	// StateAwaitingMediaOrText accepts media items, or the url/text payload
	// in text-only mode.
	StateAwaitingMediaOrText
	// StateAwaitingTokenDecision waits for the gate yes/no choice.
	StateAwaitingTokenDecision
)

// Mode is the upload source chosen at the option step.
type Mode int

const (
	ModeDevice Mode = iota
	ModeForward
	ModeURLText
)

// Session is the in-flight upload of one user. Sessions live in memory only;
// a restart drops them and the user starts over.
type Session struct {
	UserID      int64
	State       State
	Mode        Mode
	ThumbFileID string
	Description string
	Items       []models.MediaItem
	Payload     string
	IsTextOnly  bool
	StartedAt   time.Time
}

// HasFileUniqueID reports whether the session already collected the item,
// so re-sent or duplicated forwards are not stored twice.
func (s *Session) HasFileUniqueID(uid string) bool {
	if uid == "" {
		return false
	}
	for _, it := range s.Items {
		if it.FileUniqueID == uid {
			return true
		}
	}
	return false
}

// Store keeps active upload sessions keyed by user id.
type Store interface {
	// Get returns the user's session, or nil when none is active.
	Get(userID int64) *Session

	// Put stores or replaces the user's session.
	Put(s *Session)

	// Delete removes the user's session if present.
	Delete(userID int64)
}
