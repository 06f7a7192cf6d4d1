package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Panorama-Block/fairyring-monitor/internal/types"
)

// Sender posts alerts to a Slack-compatible incoming webhook.
type Sender struct {
	URL    string
	client *http.Client
	logger *logrus.Entry
}

func NewSender(url string, timeout time.Duration, logger *logrus.Entry) *Sender {
	return &Sender{
		URL:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (s *Sender) Name() string { return "webhook" }

// Notify makes a single delivery attempt. Non-2xx answers are logged and
// returned as errors.
func (s *Sender) Notify(ctx context.Context, alert types.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("http.NewRequest: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("client.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		s.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   strings.TrimSpace(string(body)),
		}).Error("webhook rejected alert")
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
