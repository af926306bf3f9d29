// Package transcribe turns an audio file into text via a SiliconFlow-style
// speech-to-text endpoint (multipart upload, bearer auth).
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// DefaultModel is the fixed transcription model identifier.
const DefaultModel = "FunAudioLLM/SenseVoiceSmall"

// Sentinel errors for the failure classes callers dispatch on.
var (
	ErrInvalidFile     = errors.New("invalid audio file")
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

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client calls the transcription endpoint. It carries no retry policy;
// retries belong to the caller.
type Client struct {
	apiKey     string
	url        string
	model      string
	httpClient *http.Client
}

// New builds a client for the given endpoint. The API key is read once
// at construction, never from ambient state.
func New(apiKey, url string) *Client {
	return &Client{
		apiKey:     apiKey,
		url:        url,
		model:      DefaultModel,
		httpClient: http.DefaultClient,
	}
}

// Transcribe uploads the audio file at path and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if err := mw.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

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

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	field, ok := raw["text"]
	if !ok {
		return "", fmt.Errorf("%w: missing text field", ErrDecode)
	}
	var text string
	if err := json.Unmarshal(field, &text); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return text, nil
}
