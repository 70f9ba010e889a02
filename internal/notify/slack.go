// Package notify holds the notification and webhook dispatchers invoked by
// the side-effect fan-out. Both are fire-and-forget HTTP POSTs with bounded
// timeouts, and both are no-ops when unconfigured.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rahulpatani/smartinbox/pkg/types"
)

// SlackNotifier posts a formatted summary of an actionable message to a
// Slack incoming-webhook endpoint.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewSlackNotifier creates a notifier. An empty webhookURL disables it.
func NewSlackNotifier(webhookURL string, logger *logrus.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	TS     int64        `json:"ts"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

// Notify posts the message summary. Returns nil without sending anything
// when the notifier is unconfigured.
func (n *SlackNotifier) Notify(ctx context.Context, msg *types.Message) error {
	if n.webhookURL == "" {
		n.logger.Debug("Slack webhook not configured, skipping notification")
		return nil
	}

	payload := slackMessage{
		Text: "New interested email received",
		Attachments: []slackAttachment{
			{
				Color: "good",
				Fields: []slackField{
					{Title: "Subject", Value: msg.Subject},
					{Title: "From", Value: msg.From, Short: true},
					{Title: "Date", Value: msg.Date.Format(time.RFC1123), Short: true},
					{Title: "Label", Value: msg.Label, Short: true},
					{Title: "Account", Value: msg.AccountEmail, Short: true},
				},
				Footer: "SmartInbox Email Aggregator",
				TS:     time.Now().Unix(),
			},
		},
	}

	if err := postJSON(ctx, n.httpClient, n.webhookURL, payload, nil); err != nil {
		return fmt.Errorf("slack notification failed: %w", err)
	}

	n.logger.WithField("message_id", msg.MessageID).Info("Slack notification sent")
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}, headers map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
