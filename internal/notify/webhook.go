package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rahulpatani/smartinbox/pkg/types"
)

// WebhookTrigger posts a structured event to an external webhook URL when an
// actionable message arrives.
type WebhookTrigger struct {
	url        string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewWebhookTrigger creates a trigger. An empty url disables it.
func NewWebhookTrigger(url string, logger *logrus.Logger) *WebhookTrigger {
	return &WebhookTrigger{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type webhookEmail struct {
	MessageID string    `json:"messageId"`
	Subject   string    `json:"subject"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Date      time.Time `json:"date"`
	Label     string    `json:"label"`
	Account   string    `json:"account"`
}

type webhookMetadata struct {
	Source  string `json:"source"`
	Version string `json:"version"`
	Trigger string `json:"trigger"`
}

type webhookPayload struct {
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Email     webhookEmail    `json:"email"`
	Metadata  webhookMetadata `json:"metadata"`
}

// Trigger posts the event payload. Returns nil without sending anything when
// the trigger is unconfigured.
func (w *WebhookTrigger) Trigger(ctx context.Context, msg *types.Message) error {
	if w.url == "" {
		w.logger.Debug("Webhook URL not configured, skipping trigger")
		return nil
	}

	payload := webhookPayload{
		Event:     "interested_email_received",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Email: webhookEmail{
			MessageID: msg.MessageID,
			Subject:   msg.Subject,
			From:      msg.From,
			To:        msg.To,
			Date:      msg.Date,
			Label:     msg.Label,
			Account:   msg.AccountEmail,
		},
		Metadata: webhookMetadata{
			Source:  "SmartInbox",
			Version: "1.0.0",
			Trigger: "ai_categorization",
		},
	}

	headers := map[string]string{"User-Agent": "SmartInbox-Webhook/1.0"}
	if err := postJSON(ctx, w.httpClient, w.url, payload, headers); err != nil {
		return fmt.Errorf("webhook trigger failed: %w", err)
	}

	w.logger.WithField("message_id", msg.MessageID).Info("Webhook triggered")
	return nil
}
