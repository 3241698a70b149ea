package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/contentgate/contentgate/internal/bot/deeplink"
	"github.com/contentgate/contentgate/internal/bot/models"
	"github.com/contentgate/contentgate/internal/common"
)

// mediaGroupLimit is the Bot API cap on items per media group.
const mediaGroupLimit = 10

// Dispatcher renders outgoing messages: channel announcements and content
// deliveries.
type Dispatcher struct {
	api            API
	channelID      int64
	botUsername    string
	protectContent bool
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(api API, channelID int64, botUsername string, protectContent bool) *Dispatcher {
	return &Dispatcher{
		api:            api,
		channelID:      channelID,
		botUsername:    botUsername,
		protectContent: protectContent,
	}
}

// Announce posts the content to the broadcast channel: the thumbnail (or a
// plain text post) with the description and a deep-link button. Returns the
// channel message id.
func (d *Dispatcher) Announce(ctx context.Context, content *models.Content) (int64, error) {
	url := deeplink.StartURL(d.botUsername, deeplink.ContentPayload(content.ID))
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Open", url),
		),
	)

	var sent tgbotapi.Message
	var err error
	if content.ThumbFileID != "" {
		photo := tgbotapi.NewPhoto(d.channelID, tgbotapi.FileID(content.ThumbFileID))
		photo.Caption = content.Description
		photo.ReplyMarkup = markup
		sent, err = d.api.Send(photo)
	} else {
		msg := tgbotapi.NewMessage(d.channelID, content.Description)
		msg.ReplyMarkup = markup
		msg.DisableWebPagePreview = true
		sent, err = d.api.Send(msg)
	}
	if err != nil {
		return 0, fmt.Errorf("error sending announcement: %w", err)
	}
	return int64(sent.MessageID), nil
}

// Deliver sends the content into the user's chat. Media goes out in groups
// of up to ten items with the description as the caption of the very first
// item; text-only content is sent as a plain message. Deliveries go through
// raw request params because the typed send configs in tgbotapi v5 do not
// carry protect_content.
func (d *Dispatcher) Deliver(ctx context.Context, chatID int64, content *models.Content, items []models.MediaItem) error {
	if content.IsTextOnly || len(items) == 0 {
		params := tgbotapi.Params{}
		params.AddNonZero64("chat_id", chatID)
		params.AddNonEmpty("text", content.Description)
		params.AddBool("disable_web_page_preview", true)
		return d.send("sendMessage", params)
	}

	for start := 0; start < len(items); start += mediaGroupLimit {
		end := start + mediaGroupLimit
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		if len(chunk) == 1 {
			if err := d.sendSingle(chatID, content, chunk[0], start == 0); err != nil {
				return err
			}
			continue
		}

		media := make([]interface{}, 0, len(chunk))
		for i, item := range chunk {
			withCaption := start == 0 && i == 0
			media = append(media, inputMedia(item, content.Description, withCaption))
		}
		params := tgbotapi.Params{}
		params.AddNonZero64("chat_id", chatID)
		if err := params.AddInterface("media", media); err != nil {
			return fmt.Errorf("%w: %v", common.ErrDeliveryFailed, err)
		}
		if err := d.send("sendMediaGroup", params); err != nil {
			return err
		}
	}
	return nil
}

// sendSingle delivers a lone item; media groups need at least two entries.
func (d *Dispatcher) sendSingle(chatID int64, content *models.Content, item models.MediaItem, withCaption bool) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	if withCaption {
		params.AddNonEmpty("caption", content.Description)
	}

	switch item.Type {
	case models.MediaTypePhoto:
		params.AddNonEmpty("photo", item.FileID)
		return d.send("sendPhoto", params)
	case models.MediaTypeVideo:
		params.AddNonEmpty("video", item.FileID)
		return d.send("sendVideo", params)
	default:
		params.AddNonEmpty("document", item.FileID)
		return d.send("sendDocument", params)
	}
}

func (d *Dispatcher) send(method string, params tgbotapi.Params) error {
	params.AddBool("protect_content", d.protectContent)
	if _, err := d.api.MakeRequest(method, params); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDeliveryFailed, err)
	}
	return nil
}

func inputMedia(item models.MediaItem, description string, withCaption bool) interface{} {
	caption := ""
	if withCaption {
		caption = description
	}
	switch item.Type {
	case models.MediaTypePhoto:
		m := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(item.FileID))
		m.Caption = caption
		return m
	case models.MediaTypeVideo:
		m := tgbotapi.NewInputMediaVideo(tgbotapi.FileID(item.FileID))
		m.Caption = caption
		return m
	default:
		m := tgbotapi.NewInputMediaDocument(tgbotapi.FileID(item.FileID))
		m.Caption = caption
		return m
	}
}
