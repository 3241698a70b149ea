package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/contentgate/contentgate/internal/bot/deeplink"
	"github.com/contentgate/contentgate/internal/bot/models"
	"github.com/contentgate/contentgate/internal/bot/services"
	"github.com/contentgate/contentgate/internal/bot/shortener"
	"github.com/contentgate/contentgate/internal/bot/upload"
	"github.com/contentgate/contentgate/internal/common"
	"github.com/contentgate/contentgate/internal/logging"
)

// Callback data for the upload keyboards.
const (
	callbackOptDevice  = "opt_device"
	callbackOptForward = "opt_forward"
	callbackOptText    = "opt_text"
	callbackOptCancel  = "opt_cancel"
	callbackGateYes    = "gate_yes"
	callbackGateNo     = "gate_no"
	callbackGateCancel = "gate_cancel"
)

// User-facing texts of the gate flow.
const (
	msgWelcome        = "Hi! Open a post from the channel to get its content, or send /upload to publish."
	msgUnknownContent = "This content does not exist."
	msgGateLinkFmt    = "This content requires an access token. Follow the link below, it is valid for a limited time and can be used once:\n%s"
	msgTokenNotOwner  = "This access link was issued to a different user. Request your own from the post."
	msgTokenSpent     = "This access link has expired or was already used. Request a new one from the post."
	msgNotAdmin       = "You are not allowed to do that."
	msgUsageAddVIP    = "Usage: /addvip <user_id>"
	msgUsageDelVIP    = "Usage: /delvip <user_id>"
	msgUsageChangePwd = "Usage: /changepass <new_password>"
	msgVIPAddedFmt    = "User %d is now a VIP."
	msgVIPRemovedFmt  = "User %d is no longer a VIP."
	msgPasswordSet    = "Upload password changed."
	msgSomethingWrong = "Something went wrong. Please try again."
)

// uploadEngine is the upload conversation surface the handler drives.
type uploadEngine interface {
	Handle(ctx context.Context, ev upload.Event) (*upload.Reply, error)
}

// accessResolver decides gate outcomes and loads content for delivery.
type accessResolver interface {
	Resolve(ctx context.Context, userID, contentID int64) (services.Decision, *models.Content, error)
	Content(ctx context.Context, contentID int64) (*models.Content, error)
	Media(ctx context.Context, contentID int64) ([]models.MediaItem, error)
}

// tokenManager issues and redeems access tokens.
type tokenManager interface {
	Issue(ctx context.Context, userID, contentID int64) (*models.AccessToken, error)
	Redeem(ctx context.Context, token string, userID int64) (*models.AccessToken, error)
}

// adminIdentity is the admin-facing identity surface.
type adminIdentity interface {
	IsAdmin(userID int64) bool
	SetVIP(ctx context.Context, userID int64, vip bool) error
	ChangePassword(ctx context.Context, newPassword string) error
	Info(ctx context.Context, userID int64) (*models.User, error)
}

// deliverer sends content into a chat.
type deliverer interface {
	Deliver(ctx context.Context, chatID int64, content *models.Content, items []models.MediaItem) error
}

// Handler routes incoming updates to the upload engine, the gate services,
// and the admin commands.
type Handler struct {
	api         API
	engine      uploadEngine
	access      accessResolver
	tokens      tokenManager
	identity    adminIdentity
	gateway     shortener.Gateway
	dispatcher  deliverer
	botUsername string
	logger      logging.Logger
}

// NewHandler constructs a Handler.
func NewHandler(api API, engine uploadEngine, access accessResolver, tokens tokenManager,
	identity adminIdentity, gateway shortener.Gateway, dispatcher deliverer,
	botUsername string, logger logging.Logger) *Handler {
	return &Handler{
		api:         api,
		engine:      engine,
		access:      access,
		tokens:      tokens,
		identity:    identity,
		gateway:     gateway,
		dispatcher:  dispatcher,
		botUsername: botUsername,
		logger:      logger.With("module", "telegram"),
	}
}

// HandleUpdate processes one incoming update. Errors are logged and turned
// into a generic apology; the poll loop never stops because of one update.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *Handler) handleCallbackQuery(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// stop the button spinner regardless of the outcome
	if _, err := h.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		h.logger.Warn(ctx, "error answering callback query", "error", err)
	}
	if q.Message == nil || q.From == nil {
		return
	}

	ev := upload.Event{UserID: q.From.ID}
	switch q.Data {
	case callbackOptDevice:
		ev.Kind = upload.EventOption
		ev.Option = upload.ModeDevice
	case callbackOptForward:
		ev.Kind = upload.EventOption
		ev.Option = upload.ModeForward
	case callbackOptText:
		ev.Kind = upload.EventOption
		ev.Option = upload.ModeURLText
	case callbackGateYes:
		ev.Kind = upload.EventGateChoice
		ev.RequireToken = true
	case callbackGateNo:
		ev.Kind = upload.EventGateChoice
	case callbackOptCancel, callbackGateCancel:
		ev.Kind = upload.EventCancel
	default:
		return
	}

	reply, err := h.engine.Handle(ctx, ev)
	if err != nil {
		h.logger.Error(ctx, "error handling button choice", "user_id", q.From.ID, "error", err)
		h.reply(ctx, q.Message.Chat.ID, msgSomethingWrong, upload.MarkupNone)
		return
	}
	h.sendEngineReply(ctx, q.Message.Chat.ID, reply)
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		h.handleCommand(ctx, msg, userID, chatID)
		return
	}

	if item := extractMedia(msg); item != nil {
		reply, err := h.engine.Handle(ctx, upload.Event{
			UserID: userID,
			Kind:   upload.EventMedia,
			Media:  item,
		})
		if err != nil {
			h.logger.Error(ctx, "error handling media", "user_id", userID, "error", err)
			h.reply(ctx, chatID, msgSomethingWrong, upload.MarkupNone)
			return
		}
		h.sendEngineReply(ctx, chatID, reply)
		return
	}

	if msg.Text != "" {
		reply, err := h.engine.Handle(ctx, upload.Event{
			UserID: userID,
			Kind:   upload.EventText,
			Text:   msg.Text,
		})
		if err != nil {
			h.logger.Error(ctx, "error handling text", "user_id", userID, "error", err)
			h.reply(ctx, chatID, msgSomethingWrong, upload.MarkupNone)
			return
		}
		h.sendEngineReply(ctx, chatID, reply)
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message, userID, chatID int64) {
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, userID, chatID, msg.CommandArguments())
	case "upload":
		h.forwardToEngine(ctx, chatID, upload.Event{UserID: userID, Kind: upload.EventUpload})
	case "done":
		h.forwardToEngine(ctx, chatID, upload.Event{UserID: userID, Kind: upload.EventDone})
	case "cancel":
		h.forwardToEngine(ctx, chatID, upload.Event{UserID: userID, Kind: upload.EventCancel})
	case "addvip":
		h.handleSetVIP(ctx, userID, chatID, msg.CommandArguments(), true)
	case "delvip":
		h.handleSetVIP(ctx, userID, chatID, msg.CommandArguments(), false)
	case "changepass":
		h.handleChangePassword(ctx, userID, chatID, msg.CommandArguments())
	case "myinfo":
		h.handleMyInfo(ctx, userID, chatID)
	}
}

// handleStart serves plain greetings, content requests and token
// redemptions, depending on the deep-link payload.
func (h *Handler) handleStart(ctx context.Context, userID, chatID int64, payload string) {
	link := deeplink.Parse(strings.TrimSpace(payload))
	switch link.Kind {
	case deeplink.KindContent:
		h.handleContentRequest(ctx, userID, chatID, link.ContentID)
	case deeplink.KindToken:
		h.handleTokenRedemption(ctx, userID, chatID, link.Token)
	default:
		h.reply(ctx, chatID, msgWelcome, upload.MarkupNone)
	}
}

func (h *Handler) handleContentRequest(ctx context.Context, userID, chatID, contentID int64) {
	decision, content, err := h.access.Resolve(ctx, userID, contentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			h.reply(ctx, chatID, msgUnknownContent, upload.MarkupNone)
			return
		}
		h.logger.Error(ctx, "error resolving access", "user_id", userID, "content_id", contentID, "error", err)
		h.reply(ctx, chatID, msgSomethingWrong, upload.MarkupNone)
		return
	}

	if decision == services.DecisionDeliver {
		h.deliver(ctx, userID, chatID, content)
		return
	}

	token, err := h.tokens.Issue(ctx, userID, contentID)
	if err != nil {
		h.logger.Error(ctx, "error issuing token", "user_id", userID, "content_id", contentID, "error", err)
		h.reply(ctx, chatID, msgSomethingWrong, upload.MarkupNone)
		return
	}

	long := deeplink.StartURL(h.botUsername, deeplink.TokenPayload(token.Token))
	gateURL, err := h.gateway.GateLink(ctx, token.Token, long)
	if err != nil {
		// GateLink degrades internally; an error here is unexpected
		h.logger.Error(ctx, "error building gate link", "error", err)
		gateURL = long
	}
	h.reply(ctx, chatID, fmt.Sprintf(msgGateLinkFmt, gateURL), upload.MarkupNone)
}

func (h *Handler) handleTokenRedemption(ctx context.Context, userID, chatID int64, tokenValue string) {
	token, err := h.tokens.Redeem(ctx, tokenValue, userID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTokenNotOwner):
			h.reply(ctx, chatID, msgTokenNotOwner, upload.MarkupNone)
		case errors.Is(err, common.ErrTokenExpiredOrUsed):
			h.reply(ctx, chatID, msgTokenSpent, upload.MarkupNone)
		default:
			h.logger.Error(ctx, "error redeeming token", "user_id", userID, "error", err)
			h.reply(ctx, chatID, msgSomethingWrong, upload.MarkupNone)
		}
		return
	}

	content, err := h.access.Content(ctx, token.ContentID)
	if err != nil {
		h.logger.Error(ctx, "error loading redeemed content", "content_id", token.ContentID, "error", err)
		h.reply(ctx, chatID, msgSomethingWrong, upload.MarkupNone)
		return
	}
	h.deliver(ctx, userID, chatID, content)
}

func (h *Handler) deliver(ctx context.Context, userID, chatID int64, content *models.Content) {
	items, err := h.access.Media(ctx, content.ID)
	if err != nil {
		h.logger.Error(ctx, "error loading media", "content_id", content.ID, "error", err)
		h.reply(ctx, chatID, msgSomethingWrong, upload.MarkupNone)
		return
	}
	if err := h.dispatcher.Deliver(ctx, chatID, content, items); err != nil {
		h.logger.Error(ctx, "error delivering content", "user_id", userID, "content_id", content.ID, "error", err)
		h.reply(ctx, chatID, msgSomethingWrong, upload.MarkupNone)
	}
}

func (h *Handler) handleSetVIP(ctx context.Context, userID, chatID int64, args string, vip bool) {
	if !h.identity.IsAdmin(userID) {
		h.reply(ctx, chatID, msgNotAdmin, upload.MarkupNone)
		return
	}
	target, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		usage := msgUsageAddVIP
		if !vip {
			usage = msgUsageDelVIP
		}
		h.reply(ctx, chatID, usage, upload.MarkupNone)
		return
	}
	if err := h.identity.SetVIP(ctx, target, vip); err != nil {
		h.logger.Error(ctx, "error setting vip", "target", target, "error", err)
		h.reply(ctx, chatID, msgSomethingWrong, upload.MarkupNone)
		return
	}
	if vip {
		h.reply(ctx, chatID, fmt.Sprintf(msgVIPAddedFmt, target), upload.MarkupNone)
	} else {
		h.reply(ctx, chatID, fmt.Sprintf(msgVIPRemovedFmt, target), upload.MarkupNone)
	}
}

func (h *Handler) handleChangePassword(ctx context.Context, userID, chatID int64, args string) {
	if !h.identity.IsAdmin(userID) {
		h.reply(ctx, chatID, msgNotAdmin, upload.MarkupNone)
		return
	}
	newPassword := strings.TrimSpace(args)
	if newPassword == "" {
		h.reply(ctx, chatID, msgUsageChangePwd, upload.MarkupNone)
		return
	}
	if err := h.identity.ChangePassword(ctx, newPassword); err != nil {
		h.logger.Error(ctx, "error changing password", "error", err)
		h.reply(ctx, chatID, msgSomethingWrong, upload.MarkupNone)
		return
	}
	h.reply(ctx, chatID, msgPasswordSet, upload.MarkupNone)
}

func (h *Handler) handleMyInfo(ctx context.Context, userID, chatID int64) {
	user, err := h.identity.Info(ctx, userID)
	if err != nil {
		h.logger.Error(ctx, "error loading user info", "user_id", userID, "error", err)
		h.reply(ctx, chatID, msgSomethingWrong, upload.MarkupNone)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your id: %d\n", user.ID)
	fmt.Fprintf(&b, "VIP: %v\n", user.IsVIP)
	if user.LastAuthAt != nil {
		fmt.Fprintf(&b, "Last password entry: %s", user.LastAuthAt.Format("2006-01-02 15:04:05 MST"))
	} else {
		b.WriteString("Last password entry: never")
	}
	h.reply(ctx, chatID, b.String(), upload.MarkupNone)
}

func (h *Handler) forwardToEngine(ctx context.Context, chatID int64, ev upload.Event) {
	reply, err := h.engine.Handle(ctx, ev)
	if err != nil {
		h.logger.Error(ctx, "error handling event", "user_id", ev.UserID, "error", err)
		h.reply(ctx, chatID, msgSomethingWrong, upload.MarkupNone)
		return
	}
	h.sendEngineReply(ctx, chatID, reply)
}

func (h *Handler) sendEngineReply(ctx context.Context, chatID int64, reply *upload.Reply) {
	if reply == nil {
		return
	}
	h.reply(ctx, chatID, reply.Text, reply.Markup)
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string, markup upload.MarkupKind) {
	msg := tgbotapi.NewMessage(chatID, text)
	switch markup {
	case upload.MarkupOptionChoice:
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Upload from device", callbackOptDevice),
				tgbotapi.NewInlineKeyboardButtonData("Forward posts", callbackOptForward),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Link or text", callbackOptText),
				tgbotapi.NewInlineKeyboardButtonData("Cancel", callbackOptCancel),
			),
		)
	case upload.MarkupGateChoice:
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Yes, gate it", callbackGateYes),
				tgbotapi.NewInlineKeyboardButtonData("No, open to all", callbackGateNo),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Cancel", callbackGateCancel),
			),
		)
	}
	if _, err := h.api.Send(msg); err != nil {
		h.logger.Error(ctx, "error sending reply", "chat_id", chatID, "error", err)
	}
}

// extractMedia maps an incoming message to a media item, or nil when the
// message carries none.
func extractMedia(msg *tgbotapi.Message) *models.MediaItem {
	forwarded := msg.ForwardDate != 0

	switch {
	case len(msg.Photo) > 0:
		// the last size is the largest
		p := msg.Photo[len(msg.Photo)-1]
		return &models.MediaItem{
			FileID:       p.FileID,
			FileUniqueID: p.FileUniqueID,
			Type:         models.MediaTypePhoto,
			IsForwarded:  forwarded,
		}
	case msg.Video != nil:
		return &models.MediaItem{
			FileID:       msg.Video.FileID,
			FileUniqueID: msg.Video.FileUniqueID,
			Type:         models.MediaTypeVideo,
			IsForwarded:  forwarded,
		}
	case msg.Document != nil:
		return &models.MediaItem{
			FileID:       msg.Document.FileID,
			FileUniqueID: msg.Document.FileUniqueID,
			Type:         models.MediaTypeDocument,
			IsForwarded:  forwarded,
		}
	default:
		return nil
	}
}
