package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VOXNOTE_API_KEY", "sk-test")
	t.Setenv("VOXNOTE_TRANSCRIBE_URL", "")
	t.Setenv("VOXNOTE_CHAT_URL", "")
	t.Setenv("VOXNOTE_FLOMO_URL", "")
	t.Setenv("VOXNOTE_DATA_DIR", t.TempDir())
	t.Setenv("VOXNOTE_MODEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.TranscribeURL != DefaultTranscribeURL {
		t.Errorf("TranscribeURL = %q, want default", cfg.TranscribeURL)
	}
	if cfg.ChatURL != DefaultChatURL {
		t.Errorf("ChatURL = %q, want default", cfg.ChatURL)
	}
	if cfg.FlomoURL != "" {
		t.Errorf("FlomoURL = %q, want empty", cfg.FlomoURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VOXNOTE_API_KEY", "sk-test")
	t.Setenv("VOXNOTE_TRANSCRIBE_URL", "http://localhost:9000/stt")
	t.Setenv("VOXNOTE_CHAT_URL", "http://localhost:9000/chat")
	t.Setenv("VOXNOTE_FLOMO_URL", "http://localhost:9000/flomo")
	t.Setenv("VOXNOTE_DATA_DIR", dir)
	t.Setenv("VOXNOTE_MODEL", "deepseek-ai/DeepSeek-V3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TranscribeURL != "http://localhost:9000/stt" {
		t.Errorf("TranscribeURL = %q", cfg.TranscribeURL)
	}
	if cfg.ChatURL != "http://localhost:9000/chat" {
		t.Errorf("ChatURL = %q", cfg.ChatURL)
	}
	if cfg.FlomoURL != "http://localhost:9000/flomo" {
		t.Errorf("FlomoURL = %q", cfg.FlomoURL)
	}
	if cfg.Model != "deepseek-ai/DeepSeek-V3" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.AudioDir() != filepath.Join(dir, "audio") {
		t.Errorf("AudioDir = %q", cfg.AudioDir())
	}
	if cfg.DBPath() != filepath.Join(dir, "voxnote.sqlite") {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
}
