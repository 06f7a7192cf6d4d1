package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// StatusError is returned for any non-200 answer from the RPC endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	logger     *logrus.Entry
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Entry) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *Client) makeRequest(ctx context.Context, endpoint string) ([]byte, error) {
	fullURL := c.BaseURL + endpoint
	c.logger.WithField("url", fullURL).Debug("makeRequest")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequest: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPClient.Do: %w", err)
	}
	defer resp.Body.Close()

	c.logger.WithField("status", resp.StatusCode).Debug("makeRequest done")
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	return io.ReadAll(resp.Body)
}
