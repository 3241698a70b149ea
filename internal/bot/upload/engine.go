package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/contentgate/contentgate/internal/bot/models"
	"github.com/contentgate/contentgate/internal/bot/services"
	"github.com/contentgate/contentgate/internal/common"
	"github.com/contentgate/contentgate/internal/logging"
)

// EventKind classifies an incoming update for the state machine.
type EventKind int

const (
	EventUpload EventKind = iota
	EventDone
	EventCancel
	EventText
	EventMedia
	EventOption
	EventGateChoice
)

// Event is one normalized incoming update from the uploader's chat.
type Event struct {
	UserID       int64
	Kind         EventKind
	Text         string
	Media        *models.MediaItem
	Option       Mode // meaningful for EventOption only
	RequireToken bool // meaningful for EventGateChoice only
}

// MarkupKind tells the transport which keyboard, if any, to attach.
type MarkupKind int

const (
	MarkupNone MarkupKind = iota
	MarkupOptionChoice
	MarkupGateChoice
)

// Reply is the engine's answer to one event. Published is non-nil when the
// event completed the upload.
type Reply struct {
	Text      string
	Markup    MarkupKind
	Published *models.Content
}

// User-facing texts.
const (
	msgEnterPassword   = "This action requires the upload password. Please enter it."
	msgWrongPassword   = "Wrong password. Upload cancelled, send /upload to start over."
	msgAskThumbnail    = "Session opened. Send an image to use as the announcement thumbnail."
	msgThumbnailOnly   = "Please send an image to use as the thumbnail."
	msgAskDescription  = "Now send a description for the post."
	msgDescriptionOnly = "Please send the description as a plain text message."
	msgAskOption       = "How will you provide the content?"
	msgSendMedia       = "Send photos, videos or files. Send /done when finished."
	msgSendPayload     = "Send the link or text to publish."
	msgNothingYet      = "Nothing collected yet. Send some media first."
	msgAskGate         = "Should access to this content require a token?"
	msgCancelled       = "Upload cancelled."
	msgNoSession       = "No active upload. Send /upload to start one."
	msgUseButtons      = "Please use the buttons to choose."
	msgPublishFailed   = "Publishing failed, nothing was posted. Send /upload to start over."
	msgPublishedFmt    = "Published! Content id %d."
	msgNoAnnounceFmt   = "Published as content id %d, but the channel announcement failed. Post it manually or contact an admin."
	msgAddedFmt        = "Added. So far: %d photo(s), %d video(s), %d file(s)."
)

// Authenticator is the slice of identity behavior the engine needs.
type Authenticator interface {
	IsAuthenticated(ctx context.Context, userID int64) (bool, error)
	Authenticate(ctx context.Context, userID int64, password string) error
}

// Publisher persists and announces a finished draft.
type Publisher interface {
	Publish(ctx context.Context, draft *services.Draft) (*models.Content, error)
}

// Engine drives upload conversations. Events of the same user are handled
// strictly one at a time; different users proceed independently.
type Engine struct {
	auth      Authenticator
	publisher Publisher
	store     Store
	logger    logging.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewEngine constructs an Engine.
func NewEngine(auth Authenticator, publisher Publisher, store Store, logger logging.Logger) *Engine {
	return &Engine{
		auth:      auth,
		publisher: publisher,
		store:     store,
		logger:    logger.With("module", "upload"),
		locks:     map[int64]*sync.Mutex{},
	}
}

// Handle advances the user's conversation with one event and returns what to
// tell them. A nil reply means the event was irrelevant (e.g. stray media
// without a session).
func (e *Engine) Handle(ctx context.Context, ev Event) (*Reply, error) {
	lock := e.userLock(ev.UserID)
	lock.Lock()
	defer lock.Unlock()

	switch ev.Kind {
	case EventUpload:
		return e.handleUpload(ctx, ev)
	case EventCancel:
		return e.handleCancel(ev)
	}

	session := e.store.Get(ev.UserID)
	if session == nil {
		if ev.Kind == EventDone || ev.Kind == EventOption || ev.Kind == EventGateChoice {
			return &Reply{Text: msgNoSession}, nil
		}
		return nil, nil
	}

	switch session.State {
	case StateAwaitingPassword:
		return e.handlePassword(ctx, session, ev)
	case StateAwaitingThumbnail:
		return e.handleThumbnail(session, ev)
	case StateAwaitingDescription:
		return e.handleDescription(session, ev)
	case StateAwaitingOption:
		return e.handleOption(session, ev)
	case StateAwaitingMediaOrText:
		return e.handleMediaOrText(session, ev)
	case StateAwaitingTokenDecision:
		return e.handleGateChoice(ctx, session, ev)
	default:
		return nil, fmt.Errorf("unknown session state %d", session.State)
	}
}

// handleUpload starts (or restarts) a session. Authenticated users go
// straight to the thumbnail step, others must enter the password first.
func (e *Engine) handleUpload(ctx context.Context, ev Event) (*Reply, error) {
	ok, err := e.auth.IsAuthenticated(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}
	session := &Session{UserID: ev.UserID, StartedAt: time.Now()}
	if ok {
		session.State = StateAwaitingThumbnail
		e.store.Put(session)
		return &Reply{Text: msgAskThumbnail}, nil
	}
	session.State = StateAwaitingPassword
	e.store.Put(session)
	return &Reply{Text: msgEnterPassword}, nil
}

func (e *Engine) handleCancel(ev Event) (*Reply, error) {
	if e.store.Get(ev.UserID) == nil {
		return &Reply{Text: msgNoSession}, nil
	}
	e.store.Delete(ev.UserID)
	return &Reply{Text: msgCancelled}, nil
}

// handlePassword checks the entered password. A wrong password ends the
// session outright, there is no retry loop.
func (e *Engine) handlePassword(ctx context.Context, session *Session, ev Event) (*Reply, error) {
	if ev.Kind != EventText {
		return &Reply{Text: msgEnterPassword}, nil
	}
	err := e.auth.Authenticate(ctx, ev.UserID, ev.Text)
	if err != nil {
		if errors.Is(err, common.ErrWrongPassword) {
			e.store.Delete(ev.UserID)
			return &Reply{Text: msgWrongPassword}, nil
		}
		return nil, err
	}
	session.State = StateAwaitingThumbnail
	e.store.Put(session)
	return &Reply{Text: msgAskThumbnail}, nil
}

func (e *Engine) handleThumbnail(session *Session, ev Event) (*Reply, error) {
	if ev.Kind != EventMedia || ev.Media == nil || ev.Media.Type != models.MediaTypePhoto {
		return &Reply{Text: msgThumbnailOnly}, nil
	}
	session.ThumbFileID = ev.Media.FileID
	session.State = StateAwaitingDescription
	e.store.Put(session)
	return &Reply{Text: msgAskDescription}, nil
}

func (e *Engine) handleDescription(session *Session, ev Event) (*Reply, error) {
	if ev.Kind != EventText || strings.TrimSpace(ev.Text) == "" {
		return &Reply{Text: msgDescriptionOnly}, nil
	}
	session.Description = ev.Text
	session.State = StateAwaitingOption
	e.store.Put(session)
	return &Reply{Text: msgAskOption, Markup: MarkupOptionChoice}, nil
}

func (e *Engine) handleOption(session *Session, ev Event) (*Reply, error) {
	if ev.Kind != EventOption {
		return &Reply{Text: msgUseButtons, Markup: MarkupOptionChoice}, nil
	}
	session.Mode = ev.Option
	session.IsTextOnly = ev.Option == ModeURLText
	session.State = StateAwaitingMediaOrText
	e.store.Put(session)
	if session.IsTextOnly {
		return &Reply{Text: msgSendPayload}, nil
	}
	return &Reply{Text: msgSendMedia}, nil
}

func (e *Engine) handleMediaOrText(session *Session, ev Event) (*Reply, error) {
	switch ev.Kind {
	case EventMedia:
		if session.IsTextOnly {
			return &Reply{Text: msgSendPayload}, nil
		}
		if ev.Media != nil && !session.HasFileUniqueID(ev.Media.FileUniqueID) {
			session.Items = append(session.Items, *ev.Media)
			e.store.Put(session)
		}
		c := models.CountMedia(session.Items)
		return &Reply{Text: fmt.Sprintf(msgAddedFmt, c.Photos, c.Videos, c.Other)}, nil

	case EventText:
		if !session.IsTextOnly {
			return &Reply{Text: msgSendMedia}, nil
		}
		if strings.TrimSpace(ev.Text) == "" {
			return &Reply{Text: msgSendPayload}, nil
		}
		session.Payload = ev.Text
		session.State = StateAwaitingTokenDecision
		e.store.Put(session)
		return &Reply{Text: msgAskGate, Markup: MarkupGateChoice}, nil

	case EventDone:
		if session.IsTextOnly {
			return &Reply{Text: msgSendPayload}, nil
		}
		if len(session.Items) == 0 {
			return &Reply{Text: msgNothingYet}, nil
		}
		session.State = StateAwaitingTokenDecision
		e.store.Put(session)
		return &Reply{Text: msgAskGate, Markup: MarkupGateChoice}, nil

	default:
		return nil, nil
	}
}

// handleGateChoice publishes the draft with the chosen gating. The session
// ends here whether publishing succeeds or not.
func (e *Engine) handleGateChoice(ctx context.Context, session *Session, ev Event) (*Reply, error) {
	if ev.Kind != EventGateChoice {
		return &Reply{Text: msgUseButtons, Markup: MarkupGateChoice}, nil
	}

	draft := &services.Draft{
		UploaderID:    session.UserID,
		ThumbFileID:   session.ThumbFileID,
		Description:   session.Description,
		Payload:       session.Payload,
		IsTextOnly:    session.IsTextOnly,
		RequiresToken: ev.RequireToken,
		Items:         session.Items,
	}
	e.store.Delete(session.UserID)

	content, err := e.publisher.Publish(ctx, draft)
	if err != nil {
		e.logger.Error(ctx, "publish failed", "user_id", session.UserID, "error", err)
		return &Reply{Text: msgPublishFailed}, nil
	}

	text := fmt.Sprintf(msgPublishedFmt, content.ID)
	if content.AnnouncementMessageID == nil {
		text = fmt.Sprintf(msgNoAnnounceFmt, content.ID)
	}
	return &Reply{Text: text, Published: content}, nil
}

func (e *Engine) userLock(userID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[userID] = lock
	}
	return lock
}
