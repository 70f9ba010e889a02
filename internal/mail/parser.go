package mail

import (
	"bytes"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"

	"github.com/rahulpatani/smartinbox/pkg/types"
)

// ParseMessage converts a raw RFC822 message into a structured record. A
// missing Message-ID header yields an empty identifier; the pipeline rejects
// those.
func ParseMessage(raw []byte) (*types.ParsedMail, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	parsed := &types.ParsedMail{
		MessageID: canonicalMessageID(env.GetHeader("Message-Id")),
		Subject:   env.GetHeader("Subject"),
		From:      env.GetHeader("From"),
		To:        env.GetHeader("To"),
		Body:      env.Text,
	}

	if dateHeader := env.GetHeader("Date"); dateHeader != "" {
		if d, err := netmail.ParseDate(dateHeader); err == nil {
			parsed.Date = d
		}
	}
	if parsed.Date.IsZero() {
		parsed.Date = time.Now()
	}

	// HTML-only messages: derive a text body from the HTML part.
	if parsed.Body == "" && env.HTML != "" {
		text, err := html2text.FromString(env.HTML, html2text.Options{TextOnly: true})
		if err != nil {
			text = env.HTML
		}
		parsed.Body = text
	}

	return parsed, nil
}

// canonicalMessageID strips whitespace and the surrounding angle brackets
// from a Message-ID header value.
func canonicalMessageID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	return id
}
