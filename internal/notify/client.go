package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SendResult is the gateway's answer to one message.
type SendResult struct {
	Accepted  bool
	MessageID string
	Response  string
}

// Client calls the SMS gateway.
type Client struct {
	BaseURL  string
	SenderID string
	HTTP     *http.Client
	Skip     bool
}

// New creates a client. With skip set no request leaves the process and every
// send is accepted.
func New(baseURL, senderID string, skip bool) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		SenderID: senderID,
		Skip:     skip,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Send delivers text to mobile.
func (c *Client) Send(ctx context.Context, mobile, text string) (*SendResult, error) {
	if c.Skip {
		return &SendResult{Accepted: true, MessageID: "skipped", Response: "SKIPPED"}, nil
	}
	if mobile == "" {
		return nil, fmt.Errorf("mobile number required")
	}

	body, _ := json.Marshal(map[string]string{
		"sender": c.SenderID,
		"to":     mobile,
		"text":   text,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sms gateway error %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var out struct {
		Status    string `json:"status"`
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &SendResult{
		Accepted:  strings.EqualFold(out.Status, "accepted") || strings.EqualFold(out.Status, "sent"),
		MessageID: out.MessageID,
		Response:  strings.TrimSpace(string(raw)),
	}, nil
}

// Health checks if the gateway is reachable.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway unhealthy: %s", resp.Status)
	}

	return nil
}
