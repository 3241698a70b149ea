package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// parseEnv overlays settings from environment variables. Unset variables
// keep their current values.
func parseEnv(config *Config) {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		config.BotToken = v
	}
	if v := os.Getenv("MAIN_CHANNEL_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Printf("error parsing MAIN_CHANNEL_ID: %v", err)
		} else {
			config.MainChannelID = id
		}
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("ENDPOINT_ADDR_HTTP"); v != "" {
		config.EndpointAddrHTTP = v
	}
	if v := os.Getenv("UPLOAD_PASSWORD"); v != "" {
		config.UploadPassword = v
	}
	if v := os.Getenv("PASSWORD_VALID_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("error parsing PASSWORD_VALID_SECONDS: %v", err)
		} else {
			config.PasswordValidity = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("TOKEN_TTL_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("error parsing TOKEN_TTL_SECONDS: %v", err)
		} else {
			config.TokenTTL = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("ADMIN_IDS"); v != "" {
		ids, err := parseAdminIDs(v)
		if err != nil {
			log.Printf("error parsing ADMIN_IDS: %v", err)
		} else {
			config.AdminIDs = ids
		}
	}
	if v := os.Getenv("EXEIO_API_KEY"); v != "" {
		config.ShortenerAPIKey = v
	}
	if v := os.Getenv("EXEIO_API_ENDPOINT"); v != "" {
		config.ShortenerEndpoint = v
	}
	if v := os.Getenv("SHORTENER_CALLBACK_SECRET"); v != "" {
		config.ShortenerCallbackSecret = v
	}
	if v := os.Getenv("CALLBACK_BASE_URL"); v != "" {
		config.CallbackBaseURL = v
	}
}

// parseAdminIDs splits a comma-separated list of user ids.
func parseAdminIDs(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
