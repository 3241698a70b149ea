package config

import (
	"encoding/json"
	"log"
	"os"

	"github.com/contentgate/contentgate/internal/flagx"
	"github.com/contentgate/contentgate/internal/timex"
)

type jsonConfig struct {
	BotToken                string         `json:"bot_token"`
	MainChannelID           int64          `json:"main_channel_id"`
	DatabaseDSN             string         `json:"database_dsn"`
	EndpointAddrHTTP        string         `json:"endpoint_addr_http"`
	UploadPassword          string         `json:"upload_password"`
	PasswordValidity        timex.Duration `json:"password_validity"`
	TokenTTL                timex.Duration `json:"token_ttl"`
	AdminIDs                []int64        `json:"admin_ids"`
	ShortenerAPIKey         string         `json:"shortener_api_key"`
	ShortenerEndpoint       string         `json:"shortener_endpoint"`
	ShortenerTimeout        timex.Duration `json:"shortener_timeout"`
	ShortenerCallbackSecret string         `json:"shortener_callback_secret"`
	CallbackBaseURL         string         `json:"callback_base_url"`
	ProtectContent          *bool          `json:"protect_content"`
}

// parseJson overlays settings from a JSON file if one was named with
// the -c/-config flag. Missing keys keep their current values.
func parseJson(config *Config) {
	fileName := flagx.JsonConfigFlags()
	if fileName == "" {
		return
	}

	data, err := os.ReadFile(fileName)
	if err != nil {
		log.Printf("error reading config file %s: %v", fileName, err)
		return
	}

	parsed := &jsonConfig{}
	if err := json.Unmarshal(data, parsed); err != nil {
		log.Printf("error parsing config file %s: %v", fileName, err)
		return
	}

	if parsed.BotToken != "" {
		config.BotToken = parsed.BotToken
	}
	if parsed.MainChannelID != 0 {
		config.MainChannelID = parsed.MainChannelID
	}
	if parsed.DatabaseDSN != "" {
		config.DatabaseDSN = parsed.DatabaseDSN
	}
	if parsed.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = parsed.EndpointAddrHTTP
	}
	if parsed.UploadPassword != "" {
		config.UploadPassword = parsed.UploadPassword
	}
	if parsed.PasswordValidity.Duration != 0 {
		config.PasswordValidity = parsed.PasswordValidity.Duration
	}
	if parsed.TokenTTL.Duration != 0 {
		config.TokenTTL = parsed.TokenTTL.Duration
	}
	if len(parsed.AdminIDs) > 0 {
		config.AdminIDs = parsed.AdminIDs
	}
	if parsed.ShortenerAPIKey != "" {
		config.ShortenerAPIKey = parsed.ShortenerAPIKey
	}
	if parsed.ShortenerEndpoint != "" {
		config.ShortenerEndpoint = parsed.ShortenerEndpoint
	}
	if parsed.ShortenerTimeout.Duration != 0 {
		config.ShortenerTimeout = parsed.ShortenerTimeout.Duration
	}
	if parsed.ShortenerCallbackSecret != "" {
		config.ShortenerCallbackSecret = parsed.ShortenerCallbackSecret
	}
	if parsed.CallbackBaseURL != "" {
		config.CallbackBaseURL = parsed.CallbackBaseURL
	}
	if parsed.ProtectContent != nil {
		config.ProtectContent = *parsed.ProtectContent
	}
}
