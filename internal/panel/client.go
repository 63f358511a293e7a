// Package panel talks to the external web panel. Every call is
// best-effort: a failure flips the connected flag and is reported to
// the caller, who is expected to swallow it.
package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	requestTimeout    = 8 * time.Second
	HeartbeatInterval = 30 * time.Second
)

type Client struct {
	baseURL   string
	apiKey    string
	http      *http.Client
	logger    *zap.Logger
	connected atomic.Bool
}

type envelope struct {
	APIKey string `json:"apiKey"`
	Action string `json:"action"`
	Data   any    `json:"data"`
}

func New(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// Send posts an action envelope to the panel's bot endpoint. A 5xx
// reply counts as unreachable; 4xx replies are the panel's business
// and count as delivered.
func (c *Client) Send(ctx context.Context, action string, data any) error {
	if c.baseURL == "" {
		return nil
	}

	body, err := json.Marshal(envelope{APIKey: c.apiKey, Action: action, Data: data})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/bot", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "FTY-Bot/4.0")

	resp, err := c.http.Do(req)
	if err != nil {
		c.connected.Store(false)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.connected.Store(false)
		return fmt.Errorf("panel returned %d", resp.StatusCode)
	}

	c.connected.Store(true)
	return nil
}

func (c *Client) Connected() bool {
	return c.connected.Load()
}

// SetConnected lets an inbound heartbeat from the panel mark the link
// as alive without an outbound round trip.
func (c *Client) SetConnected(up bool) {
	c.connected.Store(up)
}
