package deeplink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Link
	}{
		{name: "content", payload: "content_42", want: Link{Kind: KindContent, ContentID: 42}},
		{name: "content large id", payload: "content_9007199254740993", want: Link{Kind: KindContent, ContentID: 9007199254740993}},
		{name: "content non-decimal", payload: "content_abc", want: Link{Kind: KindNone}},
		{name: "content empty id", payload: "content_", want: Link{Kind: KindNone}},
		{name: "token", payload: "token_deadbeef01", want: Link{Kind: KindToken, Token: "deadbeef01"}},
		{name: "token empty", payload: "token_", want: Link{Kind: KindNone}},
		{name: "empty payload", payload: "", want: Link{Kind: KindNone}},
		{name: "unknown prefix", payload: "ref_123", want: Link{Kind: KindNone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.payload))
		})
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	assert.Equal(t, Link{Kind: KindContent, ContentID: 7}, Parse(ContentPayload(7)))
	assert.Equal(t, Link{Kind: KindToken, Token: "a1b2"}, Parse(TokenPayload("a1b2")))
}

func TestStartURL(t *testing.T) {
	got := StartURL("mybot", ContentPayload(5))
	assert.Equal(t, "https://t.me/mybot?start=content_5", got)
}
