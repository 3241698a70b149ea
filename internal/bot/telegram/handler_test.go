package telegram

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentgate/contentgate/internal/bot/models"
	"github.com/contentgate/contentgate/internal/bot/services"
	"github.com/contentgate/contentgate/internal/bot/upload"
	"github.com/contentgate/contentgate/internal/common"
	"github.com/contentgate/contentgate/internal/logging"
)

type fakeEngine struct {
	events []upload.Event
	reply  *upload.Reply
	err    error
}

func (f *fakeEngine) Handle(ctx context.Context, ev upload.Event) (*upload.Reply, error) {
	f.events = append(f.events, ev)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

type fakeAccess struct {
	decision services.Decision
	content  *models.Content
	items    []models.MediaItem
	err      error
}

func (f *fakeAccess) Resolve(ctx context.Context, userID, contentID int64) (services.Decision, *models.Content, error) {
	if f.err != nil {
		return services.DecisionRequireToken, nil, f.err
	}
	return f.decision, f.content, nil
}

func (f *fakeAccess) Content(ctx context.Context, contentID int64) (*models.Content, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

func (f *fakeAccess) Media(ctx context.Context, contentID int64) ([]models.MediaItem, error) {
	return f.items, nil
}

type fakeTokens struct {
	issued    *models.AccessToken
	issueErr  error
	redeemed  *models.AccessToken
	redeemErr error
}

func (f *fakeTokens) Issue(ctx context.Context, userID, contentID int64) (*models.AccessToken, error) {
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	return f.issued, nil
}

func (f *fakeTokens) Redeem(ctx context.Context, token string, userID int64) (*models.AccessToken, error) {
	if f.redeemErr != nil {
		return nil, f.redeemErr
	}
	return f.redeemed, nil
}

type fakeIdentity struct {
	admins    map[int64]bool
	vipCalls  map[int64]bool
	newPwd    string
	info      *models.User
	setVIPErr error
	changeErr error
}

func (f *fakeIdentity) IsAdmin(userID int64) bool { return f.admins[userID] }

func (f *fakeIdentity) SetVIP(ctx context.Context, userID int64, vip bool) error {
	if f.setVIPErr != nil {
		return f.setVIPErr
	}
	if f.vipCalls == nil {
		f.vipCalls = map[int64]bool{}
	}
	f.vipCalls[userID] = vip
	return nil
}

func (f *fakeIdentity) ChangePassword(ctx context.Context, newPassword string) error {
	if f.changeErr != nil {
		return f.changeErr
	}
	f.newPwd = newPassword
	return nil
}

func (f *fakeIdentity) Info(ctx context.Context, userID int64) (*models.User, error) {
	return f.info, nil
}

type fakeGateway struct {
	url string
	err error
}

func (f *fakeGateway) GateLink(ctx context.Context, accessToken, deepLink string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.url != "" {
		return f.url, nil
	}
	return deepLink, nil
}

type fakeDeliverer struct {
	delivered []int64 // content ids
	err       error
}

func (f *fakeDeliverer) Deliver(ctx context.Context, chatID int64, content *models.Content, items []models.MediaItem) error {
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, content.ID)
	return nil
}

type handlerFixture struct {
	api       *fakeAPI
	engine    *fakeEngine
	access    *fakeAccess
	tokens    *fakeTokens
	identity  *fakeIdentity
	gateway   *fakeGateway
	deliverer *fakeDeliverer
	handler   *Handler
}

func newFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		api:       &fakeAPI{},
		engine:    &fakeEngine{},
		access:    &fakeAccess{},
		tokens:    &fakeTokens{},
		identity:  &fakeIdentity{admins: map[int64]bool{100: true}},
		gateway:   &fakeGateway{},
		deliverer: &fakeDeliverer{},
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.handler = NewHandler(f.api, f.engine, f.access, f.tokens, f.identity, f.gateway, f.deliverer, "mybot", logger)
	return f
}

// commandUpdate builds an update whose message text starts with a command.
func commandUpdate(userID int64, text string) tgbotapi.Update {
	cmdLen := len(text)
	if i := strings.Index(text, " "); i >= 0 {
		cmdLen = i
	}
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID},
			Chat: &tgbotapi.Chat{ID: userID},
			Text: text,
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: cmdLen},
			},
		},
	}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID},
			Chat: &tgbotapi.Chat{ID: userID},
			Text: text,
		},
	}
}

func (f *handlerFixture) lastMessageText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.api.sent)
	msg, ok := f.api.sent[len(f.api.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	return msg.Text
}

func TestStart_NoPayload(t *testing.T) {
	f := newFixture(t)
	f.handler.HandleUpdate(context.Background(), commandUpdate(1, "/start"))
	assert.Equal(t, msgWelcome, f.lastMessageText(t))
}

func TestStart_ContentDelivered(t *testing.T) {
	f := newFixture(t)
	f.access.decision = services.DecisionDeliver
	f.access.content = &models.Content{ID: 5}

	f.handler.HandleUpdate(context.Background(), commandUpdate(1, "/start content_5"))

	assert.Equal(t, []int64{5}, f.deliverer.delivered)
	assert.Empty(t, f.api.sent, "a successful delivery needs no extra reply")
}

func TestStart_ContentGated(t *testing.T) {
	f := newFixture(t)
	f.access.decision = services.DecisionRequireToken
	f.access.content = &models.Content{ID: 5, RequiresToken: true}
	f.tokens.issued = &models.AccessToken{Token: "tok123", UserID: 1, ContentID: 5}
	f.gateway.url = "https://exe.io/xyz"

	f.handler.HandleUpdate(context.Background(), commandUpdate(1, "/start content_5"))

	assert.Empty(t, f.deliverer.delivered)
	text := f.lastMessageText(t)
	assert.Contains(t, text, "https://exe.io/xyz")
}

func TestStart_ContentUnknown(t *testing.T) {
	f := newFixture(t)
	f.access.err = common.ErrorNotFound

	f.handler.HandleUpdate(context.Background(), commandUpdate(1, "/start content_999"))

	assert.Equal(t, msgUnknownContent, f.lastMessageText(t))
}

func TestStart_TokenRedeemed(t *testing.T) {
	f := newFixture(t)
	f.tokens.redeemed = &models.AccessToken{Token: "tok123", UserID: 1, ContentID: 5, IsUsed: true}
	f.access.content = &models.Content{ID: 5}

	f.handler.HandleUpdate(context.Background(), commandUpdate(1, "/start token_tok123"))

	assert.Equal(t, []int64{5}, f.deliverer.delivered)
}

func TestStart_TokenNotOwner(t *testing.T) {
	f := newFixture(t)
	f.tokens.redeemErr = common.ErrTokenNotOwner

	f.handler.HandleUpdate(context.Background(), commandUpdate(2, "/start token_tok123"))

	assert.Equal(t, msgTokenNotOwner, f.lastMessageText(t))
	assert.Empty(t, f.deliverer.delivered)
}

func TestStart_TokenSpent(t *testing.T) {
	f := newFixture(t)
	f.tokens.redeemErr = common.ErrTokenExpiredOrUsed

	f.handler.HandleUpdate(context.Background(), commandUpdate(1, "/start token_tok123"))

	assert.Equal(t, msgTokenSpent, f.lastMessageText(t))
}

func TestUploadCommandsForwardToEngine(t *testing.T) {
	f := newFixture(t)
	f.engine.reply = &upload.Reply{Text: "ok"}
	ctx := context.Background()

	f.handler.HandleUpdate(ctx, commandUpdate(1, "/upload"))
	f.handler.HandleUpdate(ctx, commandUpdate(1, "/done"))
	f.handler.HandleUpdate(ctx, commandUpdate(1, "/cancel"))

	require.Len(t, f.engine.events, 3)
	assert.Equal(t, upload.EventUpload, f.engine.events[0].Kind)
	assert.Equal(t, upload.EventDone, f.engine.events[1].Kind)
	assert.Equal(t, upload.EventCancel, f.engine.events[2].Kind)
}

func TestPlainTextForwardsToEngine(t *testing.T) {
	f := newFixture(t)
	f.engine.reply = &upload.Reply{Text: "noted"}

	f.handler.HandleUpdate(context.Background(), textUpdate(1, "hello"))

	require.Len(t, f.engine.events, 1)
	assert.Equal(t, upload.EventText, f.engine.events[0].Kind)
	assert.Equal(t, "hello", f.engine.events[0].Text)
	assert.Equal(t, "noted", f.lastMessageText(t))
}

func TestPhotoMessageForwardsMedia(t *testing.T) {
	f := newFixture(t)
	f.engine.reply = &upload.Reply{Text: "added"}

	update := tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 1},
			Chat: &tgbotapi.Chat{ID: 1},
			Photo: []tgbotapi.PhotoSize{
				{FileID: "small", FileUniqueID: "u1s"},
				{FileID: "large", FileUniqueID: "u1l"},
			},
			ForwardDate: 1700000000,
		},
	}
	f.handler.HandleUpdate(context.Background(), update)

	require.Len(t, f.engine.events, 1)
	ev := f.engine.events[0]
	assert.Equal(t, upload.EventMedia, ev.Kind)
	require.NotNil(t, ev.Media)
	assert.Equal(t, "large", ev.Media.FileID, "the largest size is kept")
	assert.Equal(t, models.MediaTypePhoto, ev.Media.Type)
	assert.True(t, ev.Media.IsForwarded)
}

func TestGateChoiceCallback(t *testing.T) {
	f := newFixture(t)
	f.engine.reply = &upload.Reply{Text: "published"}

	update := tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb1",
			From:    &tgbotapi.User{ID: 1},
			Data:    callbackGateYes,
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}},
		},
	}
	f.handler.HandleUpdate(context.Background(), update)

	require.Len(t, f.engine.events, 1)
	assert.Equal(t, upload.EventGateChoice, f.engine.events[0].Kind)
	assert.True(t, f.engine.events[0].RequireToken)
	require.Len(t, f.api.requests, 1, "the callback query must be answered")
}

func TestOptionChoiceCallbacks(t *testing.T) {
	f := newFixture(t)
	f.engine.reply = &upload.Reply{Text: "ok"}
	ctx := context.Background()

	callback := func(data string) tgbotapi.Update {
		return tgbotapi.Update{
			CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "cb",
				From:    &tgbotapi.User{ID: 1},
				Data:    data,
				Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}},
			},
		}
	}

	f.handler.HandleUpdate(ctx, callback(callbackOptText))
	f.handler.HandleUpdate(ctx, callback(callbackOptForward))
	f.handler.HandleUpdate(ctx, callback(callbackOptCancel))
	f.handler.HandleUpdate(ctx, callback("bogus"))

	require.Len(t, f.engine.events, 3, "unknown callback data is ignored")
	assert.Equal(t, upload.EventOption, f.engine.events[0].Kind)
	assert.Equal(t, upload.ModeURLText, f.engine.events[0].Option)
	assert.Equal(t, upload.EventOption, f.engine.events[1].Kind)
	assert.Equal(t, upload.ModeForward, f.engine.events[1].Option)
	assert.Equal(t, upload.EventCancel, f.engine.events[2].Kind)
}

func TestAdminCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// non-admin is rejected
	f.handler.HandleUpdate(ctx, commandUpdate(1, "/addvip 55"))
	assert.Equal(t, msgNotAdmin, f.lastMessageText(t))

	f.handler.HandleUpdate(ctx, commandUpdate(100, "/addvip 55"))
	assert.True(t, f.identity.vipCalls[55])

	f.handler.HandleUpdate(ctx, commandUpdate(100, "/delvip 55"))
	assert.False(t, f.identity.vipCalls[55])

	f.handler.HandleUpdate(ctx, commandUpdate(100, "/addvip notanumber"))
	assert.Equal(t, msgUsageAddVIP, f.lastMessageText(t))

	f.handler.HandleUpdate(ctx, commandUpdate(100, "/changepass s3cret"))
	assert.Equal(t, "s3cret", f.identity.newPwd)
	assert.Equal(t, msgPasswordSet, f.lastMessageText(t))

	f.handler.HandleUpdate(ctx, commandUpdate(100, "/changepass"))
	assert.Equal(t, msgUsageChangePwd, f.lastMessageText(t))
}

func TestMyInfo(t *testing.T) {
	f := newFixture(t)
	f.identity.info = &models.User{ID: 1, IsVIP: true}

	f.handler.HandleUpdate(context.Background(), commandUpdate(1, "/myinfo"))

	text := f.lastMessageText(t)
	assert.Contains(t, text, "Your id: 1")
	assert.Contains(t, text, "VIP: true")
	assert.Contains(t, text, "never")
}

func TestGateReplyCarriesChoiceKeyboard(t *testing.T) {
	f := newFixture(t)
	f.engine.reply = &upload.Reply{Text: "gate?", Markup: upload.MarkupGateChoice}

	f.handler.HandleUpdate(context.Background(), textUpdate(1, "desc"))

	require.NotEmpty(t, f.api.sent)
	msg := f.api.sent[len(f.api.sent)-1].(tgbotapi.MessageConfig)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, callbackGateYes, *markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, callbackGateNo, *markup.InlineKeyboard[0][1].CallbackData)
	require.Len(t, markup.InlineKeyboard[1], 1)
	assert.Equal(t, callbackGateCancel, *markup.InlineKeyboard[1][0].CallbackData)
}

func TestOptionReplyCarriesChoiceKeyboard(t *testing.T) {
	f := newFixture(t)
	f.engine.reply = &upload.Reply{Text: "how?", Markup: upload.MarkupOptionChoice}

	f.handler.HandleUpdate(context.Background(), textUpdate(1, "desc"))

	require.NotEmpty(t, f.api.sent)
	msg := f.api.sent[len(f.api.sent)-1].(tgbotapi.MessageConfig)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, callbackOptDevice, *markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, callbackOptForward, *markup.InlineKeyboard[0][1].CallbackData)
	assert.Equal(t, callbackOptText, *markup.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, callbackOptCancel, *markup.InlineKeyboard[1][1].CallbackData)
}
