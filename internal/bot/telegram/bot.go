package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/contentgate/contentgate/internal/logging"
)

// Bot runs the long-poll loop and feeds updates into the Handler.
type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
	logger  logging.Logger
}

// NewBot constructs a Bot around a connected client.
func NewBot(api *tgbotapi.BotAPI, handler *Handler, logger logging.Logger) *Bot {
	return &Bot{api: api, handler: handler, logger: logger.With("module", "telegram")}
}

// Run polls for updates until ctx is cancelled. Updates are handled
// concurrently; per-user ordering is enforced by the upload engine's locks.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info(ctx, "bot started", "username", b.api.Self.UserName)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func(update tgbotapi.Update) {
				defer wg.Done()
				b.handler.HandleUpdate(ctx, update)
			}(update)
		}
	}
}
