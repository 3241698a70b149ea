// Package deeplink parses the payloads carried by /start deep links.
//
// Two payload forms exist: "content_<id>" asks for access to a content
// item, "token_<token>" redeems a previously issued access token. Anything
// else is not a deep link and is treated as a plain /start.
package deeplink

import (
	"strconv"
	"strings"
)

// Kind identifies what a parsed payload refers to.
type Kind int

const (
	KindNone Kind = iota
	KindContent
	KindToken
)

const (
	contentPrefix = "content_"
	tokenPrefix   = "token_"
)

// Link is a parsed /start payload.
type Link struct {
	Kind      Kind
	ContentID int64  // set when Kind == KindContent
	Token     string // set when Kind == KindToken
}

// Parse interprets a /start payload. A malformed content id (non-decimal)
// or an empty token suffix yields KindNone, same as an empty payload.
func Parse(payload string) Link {
	switch {
	case strings.HasPrefix(payload, contentPrefix):
		id, err := strconv.ParseInt(payload[len(contentPrefix):], 10, 64)
		if err != nil {
			return Link{Kind: KindNone}
		}
		return Link{Kind: KindContent, ContentID: id}
	case strings.HasPrefix(payload, tokenPrefix):
		token := payload[len(tokenPrefix):]
		if token == "" {
			return Link{Kind: KindNone}
		}
		return Link{Kind: KindToken, Token: token}
	default:
		return Link{Kind: KindNone}
	}
}

// ContentPayload builds the deep-link payload for a content item.
func ContentPayload(contentID int64) string {
	return contentPrefix + strconv.FormatInt(contentID, 10)
}

// TokenPayload builds the deep-link payload for an access token.
func TokenPayload(token string) string {
	return tokenPrefix + token
}

// StartURL builds a full t.me deep link for the given bot username
// and payload.
func StartURL(botUsername, payload string) string {
	return "https://t.me/" + botUsername + "?start=" + payload
}
