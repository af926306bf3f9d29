// Package enhance polishes transcript text through a chat-completion
// endpoint and extracts topic tags from the structured response.
package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors mirroring the transcription client's failure classes.
var (
	ErrNetwork         = errors.New("network error")
	ErrInvalidResponse = errors.New("invalid server response")
	ErrDecode          = errors.New("decode response failed")
)

// APIError is a handled failure reported by the remote endpoint.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s", e.Message)
}

const promptTemplate = `请对以下文本进行润色和优化，使其更加流畅自然，同时保持原意不变。同时，请为这段文本生成三个相关的标签（hashtag）。

原文：
%s

请按照以下格式输出：
优化后的文本：
[优化后的文本内容]

相关标签：
#标签1 #标签2 #标签3`

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string    `json:"model"`
	Messages         []message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	MaxTokens        int       `json:"max_tokens"`
	TopP             float64   `json:"top_p"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client calls the chat-completion endpoint. No retry policy here;
// the orchestrator owns retries.
type Client struct {
	apiKey     string
	url        string
	httpClient *http.Client
}

// New builds a client for the given endpoint.
func New(apiKey, url string) *Client {
	return &Client{
		apiKey:     apiKey,
		url:        url,
		httpClient: http.DefaultClient,
	}
}

// Enhance sends the transcript through the prompt template and returns
// the raw response text in the two-marker format (see Parse).
func (c *Client) Enhance(ctx context.Context, text string, model Model) (string, error) {
	reqBody := chatRequest{
		Model: string(model),
		Messages: []message{
			{Role: "user", Content: fmt.Sprintf(promptTemplate, text)},
		},
		Temperature:      0.7,
		MaxTokens:        1024,
		TopP:             0.7,
		FrequencyPenalty: 0.5,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error.Message != "" {
			return "", &APIError{Message: eb.Error.Message}
		}
		return "", fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrDecode)
	}
	return cr.Choices[0].Message.Content, nil
}
