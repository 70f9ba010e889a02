// Package draft generates AI reply drafts for actionable messages and
// persists them. Generation is a degraded feature: with no API key
// configured it silently produces nothing.
package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rahulpatani/smartinbox/pkg/types"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Generator calls the Gemini generateContent endpoint.
type Generator struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewGenerator creates a generator. An empty apiKey disables generation:
// both reply methods return (nil, nil).
func NewGenerator(apiKey, model string, logger *logrus.Logger) *Generator {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Generator{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Enabled reports whether draft generation is configured.
func (g *Generator) Enabled() bool {
	return g.apiKey != ""
}

// DraftReply generates a reply draft for the message. Returns (nil, nil)
// when generation is disabled.
func (g *Generator) DraftReply(ctx context.Context, msg *types.Message) (*types.Draft, error) {
	if !g.Enabled() {
		g.logger.Debug("Gemini API key not configured, skipping draft generation")
		return nil, nil
	}

	prompt := fmt.Sprintf(`You are an AI assistant helping to generate professional email draft replies.

Given the following email details:
- Subject: %s
- From: %s
- Email Content: %s
- Category: %s

Please generate a professional, contextually appropriate draft reply. Match
the tone of the original email, keep it concise but complete, and include
appropriate greetings and closings.

Generate ONLY the email content without any additional explanations or metadata.`,
		orDefault(msg.Subject, "(no subject)"),
		orDefault(msg.From, "Unknown sender"),
		orDefault(msg.Body, "No content"),
		orDefault(msg.Label, "Unknown"))

	content, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return g.buildDraft(msg, content, ""), nil
}

// ContextualReply generates a reply draft personalized with user-supplied
// context text. Returns (nil, nil) when generation is disabled.
func (g *Generator) ContextualReply(ctx context.Context, msg *types.Message, userContext string) (*types.Draft, error) {
	if !g.Enabled() {
		g.logger.Debug("Gemini API key not configured, skipping contextual reply")
		return nil, nil
	}

	prompt := fmt.Sprintf(`You are an AI assistant generating personalized email replies based on user context.

User Context/Background: %s

Email to Reply to:
- Subject: %s
- From: %s
- Content: %s
- Category: %s

Generate a personalized, professional reply that references the user's
background when relevant, addresses the sender's specific points, and
includes clear next steps if applicable.

Generate ONLY the email reply content.`,
		userContext,
		orDefault(msg.Subject, "(no subject)"),
		orDefault(msg.From, "Unknown sender"),
		orDefault(msg.Body, "No content"),
		orDefault(msg.Label, "Unknown"))

	content, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return g.buildDraft(msg, content, userContext), nil
}

func (g *Generator) buildDraft(msg *types.Message, content, userContext string) *types.Draft {
	return &types.Draft{
		OriginalMessageID: msg.MessageID,
		OriginalSubject:   orDefault(msg.Subject, "(no subject)"),
		OriginalFrom:      msg.From,
		Subject:           "Re: " + orDefault(msg.Subject, "(no subject)"),
		Body:              strings.TrimSpace(content),
		AIModel:           g.model,
		Status:            types.DraftStatusDraft,
		Context:           userContext,
		Category:          msg.Label,
		AccountEmail:      msg.AccountEmail,
		GeneratedAt:       time.Now().UTC(),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Generator) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, g.model, url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation service returned status %d", resp.StatusCode)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generation response contained no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
