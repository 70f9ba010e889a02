package mail

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawMessage(headers map[string]string, body string) []byte {
	var b strings.Builder
	for name, value := range headers {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func TestParseMessagePlainText(t *testing.T) {
	raw := rawMessage(map[string]string{
		"Message-Id":   "<abc123@mail.example>",
		"From":         "Alice <alice@example.com>",
		"To":           "bob@example.com",
		"Subject":      "Project kickoff",
		"Date":         "Tue, 10 Jun 2025 10:30:00 +0000",
		"Content-Type": "text/plain; charset=utf-8",
	}, "Let's start on Monday.\r\n")

	parsed, err := ParseMessage(raw)
	require.NoError(t, err)

	assert.Equal(t, "abc123@mail.example", parsed.MessageID)
	assert.Equal(t, "Project kickoff", parsed.Subject)
	assert.Contains(t, parsed.From, "alice@example.com")
	assert.Equal(t, "bob@example.com", parsed.To)
	assert.Contains(t, parsed.Body, "Let's start on Monday.")

	want := time.Date(2025, 6, 10, 10, 30, 0, 0, time.UTC)
	assert.True(t, parsed.Date.Equal(want), "got %v", parsed.Date)
}

func TestParseMessageHTMLOnlyFallsBackToText(t *testing.T) {
	raw := rawMessage(map[string]string{
		"Message-Id":   "<html1@mail.example>",
		"Subject":      "Newsletter",
		"Content-Type": "text/html; charset=utf-8",
	}, "<html><body><p>Hello <b>world</b></p></body></html>")

	parsed, err := ParseMessage(raw)
	require.NoError(t, err)

	assert.Contains(t, parsed.Body, "Hello")
	assert.Contains(t, parsed.Body, "world")
	assert.NotContains(t, parsed.Body, "<b>")
}

func TestParseMessageMissingIdentifier(t *testing.T) {
	raw := rawMessage(map[string]string{
		"Subject":      "No identifier",
		"Content-Type": "text/plain",
	}, "body")

	parsed, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Empty(t, parsed.MessageID)
}

func TestParseMessageUnparseableDateDefaultsToNow(t *testing.T) {
	raw := rawMessage(map[string]string{
		"Message-Id":   "<baddate@mail.example>",
		"Date":         "not a date",
		"Content-Type": "text/plain",
	}, "body")

	before := time.Now().Add(-time.Minute)
	parsed, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.True(t, parsed.Date.After(before))
}

func TestCanonicalMessageID(t *testing.T) {
	assert.Equal(t, "id@host", canonicalMessageID("  <id@host>  "))
	assert.Equal(t, "id@host", canonicalMessageID("id@host"))
	assert.Empty(t, canonicalMessageID(""))
}
