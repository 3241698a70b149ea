package config

import (
	"flag"
	"os"
	"time"

	"github.com/contentgate/contentgate/internal/flagx"
)

// parseFlags populates selected bot Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-t string   Telegram bot token
//	-m int      main channel id for announcements
//	-d string   PostgreSQL DSN
//	-a string   HTTP bind address (e.g., ":8080")
//	-p string   initial upload password
//	-v int      password validity, minutes
//	-l int      access token lifetime, minutes
//	-k string   link shortener API key
//	-e string   link shortener API endpoint
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-t", "-m", "-d", "-a", "-p", "-v", "-l", "-k", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.BotToken, "t", config.BotToken, "telegram bot token")
	fs.Int64Var(&config.MainChannelID, "m", config.MainChannelID, "main channel id")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port for the HTTP endpoint")
	fs.StringVar(&config.UploadPassword, "p", config.UploadPassword, "initial upload password")

	passwordValidity := fs.Int("v", int(config.PasswordValidity.Minutes()), "password_validity (in minutes)")
	tokenTTL := fs.Int("l", int(config.TokenTTL.Minutes()), "token_ttl (in minutes)")

	fs.StringVar(&config.ShortenerAPIKey, "k", config.ShortenerAPIKey, "link shortener API key")
	fs.StringVar(&config.ShortenerEndpoint, "e", config.ShortenerEndpoint, "link shortener API endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.PasswordValidity = time.Duration(*passwordValidity) * time.Minute
	config.TokenTTL = time.Duration(*tokenTTL) * time.Minute
}
