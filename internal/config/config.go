// Package config loads the voxnote configuration from the environment.
// All keys and endpoints are resolved once at startup and passed into
// constructors; nothing reads the environment after Load returns.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Defaults for the SiliconFlow-compatible API endpoints.
const (
	DefaultTranscribeURL = "https://api.siliconflow.cn/v1/audio/transcriptions"
	DefaultChatURL       = "https://api.siliconflow.cn/v1/chat/completions"
)

// Config holds everything the application needs at construction time.
type Config struct {
	// APIKey authenticates against both the transcription and the
	// chat-completion endpoints.
	APIKey string

	// TranscribeURL is the speech-to-text endpoint.
	TranscribeURL string

	// ChatURL is the chat-completion endpoint used for enhancement.
	ChatURL string

	// FlomoURL is the incoming-webhook URL notes are forwarded to.
	// Forwarding is disabled when empty.
	FlomoURL string

	// DataDir is where the SQLite database and audio blobs live.
	DataDir string

	// Model is the default enhancement model identifier.
	Model string
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	cfg := Config{
		APIKey:        os.Getenv("VOXNOTE_API_KEY"),
		TranscribeURL: os.Getenv("VOXNOTE_TRANSCRIBE_URL"),
		ChatURL:       os.Getenv("VOXNOTE_CHAT_URL"),
		FlomoURL:      os.Getenv("VOXNOTE_FLOMO_URL"),
		DataDir:       os.Getenv("VOXNOTE_DATA_DIR"),
		Model:         os.Getenv("VOXNOTE_MODEL"),
	}

	if cfg.TranscribeURL == "" {
		cfg.TranscribeURL = DefaultTranscribeURL
	}
	if cfg.ChatURL == "" {
		cfg.ChatURL = DefaultChatURL
	}
	if cfg.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return Config{}, err
		}
		cfg.DataDir = dir
	}

	return cfg, nil
}

// AudioDir returns the directory audio blobs are written to.
func (c Config) AudioDir() string {
	return filepath.Join(c.DataDir, "audio")
}

// DBPath returns the SQLite database path.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "voxnote.sqlite")
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".voxnote"), nil
}
