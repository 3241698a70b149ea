// Package telegram is the transport layer: it turns Bot API updates into
// engine events, renders replies, announces published content to the
// channel, and delivers gated content to users.
package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the subset of the Bot API client we call. *tgbotapi.BotAPI
// satisfies it; tests substitute a recorder. MakeRequest is the raw call
// path used where the typed configs lack fields (protect_content).
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}
