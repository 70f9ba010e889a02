// Package classify calls the external labeling service. The service is a
// narrow collaborator: subject and body in, a single label out. Any failure
// degrades to an empty label so ingestion can proceed.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Client is an HTTP client for the classifier service.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *logrus.Logger
}

// New creates a classifier client. An empty url disables classification:
// every call returns an empty label without error.
func New(url string, logger *logrus.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

type classifyRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type classifyResponse struct {
	Label string `json:"label"`
}

// Classify sends subject and body to the labeling service and returns the
// label. Returns ("", nil) when the service is unconfigured and ("", err)
// when the call fails.
func (c *Client) Classify(ctx context.Context, subject, body string) (string, error) {
	if c.url == "" {
		return "", nil
	}

	payload, err := json.Marshal(classifyRequest{Subject: subject, Body: body})
	if err != nil {
		return "", fmt.Errorf("failed to encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("classifier unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode classifier response: %w", err)
	}
	return out.Label, nil
}
