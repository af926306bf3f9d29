// Package flomo forwards finished notes to a flomo incoming webhook.
package flomo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	maxRetries       = 3
	defaultBaseDelay = time.Second
	requestTimeout   = 30 * time.Second
)

// Sentinel errors for forwarding failures.
var (
	// ErrRequestFailed is a transport or HTTP-level failure; retried.
	ErrRequestFailed = errors.New("send note request failed")
	// ErrProUserRequired means the webhook rejected the note because it
	// needs a paid flomo account. Never retried.
	ErrProUserRequired = errors.New("flomo PRO membership required")
)

// APIError is a handled failure reported by the webhook; retried.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flomo api error: %s", e.Message)
}

type webhookResponse struct {
	Code    *int   `json:"code"`
	Message string `json:"message"`
}

// Client posts note payloads to a webhook URL with bounded retry.
type Client struct {
	url        string
	baseDelay  time.Duration
	httpClient *http.Client
}

// New builds a forwarder for the given webhook URL.
func New(url string) *Client {
	return &Client{
		url:        url,
		baseDelay:  defaultBaseDelay,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// SendNote forwards the full pipeline output as one note.
func (c *Client) SendNote(ctx context.Context, transcription, enhancedText string, tags []string) error {
	var b strings.Builder
	b.WriteString("原始转写：\n" + transcription + "\n\n")
	b.WriteString("润色后：\n" + enhancedText + "\n\n")
	if len(tags) > 0 {
		b.WriteString("标签：\n" + strings.Join(tags, " ") + "\n")
	}
	return c.Send(ctx, b.String())
}

// SendOriginal forwards just the raw transcription.
func (c *Client) SendOriginal(ctx context.Context, text string) error {
	return c.Send(ctx, "原始转写：\n"+text)
}

// SendEnhanced forwards the polished text with its tags.
func (c *Client) SendEnhanced(ctx context.Context, text string, tags []string) error {
	content := "润色后：\n" + text
	if len(tags) > 0 {
		content += "\n\n标签：\n" + strings.Join(tags, " ")
	}
	return c.Send(ctx, content)
}

// Send posts pre-formatted content, retrying transient failures with
// exponential backoff (base × 2^(attempt-1)). A PRO-requirement response
// fails immediately; exhausting retries returns the last error.
func (c *Client) Send(ctx context.Context, content string) error {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("encode note: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = c.post(ctx, payload)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrProUserRequired) {
			return lastErr
		}
		if attempt < maxRetries {
			delay := c.baseDelay * (1 << (attempt - 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	// The webhook reports errors in the body even on HTTP 200.
	var wr webhookResponse
	if json.Unmarshal(data, &wr) == nil && wr.Code != nil && *wr.Code != 0 {
		if strings.Contains(wr.Message, "PRO") {
			return ErrProUserRequired
		}
		return &APIError{Message: wr.Message}
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}
	return nil
}
