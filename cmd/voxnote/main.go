package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/voxnote/voxnote/internal/app"
	"github.com/voxnote/voxnote/internal/audio"
	"github.com/voxnote/voxnote/internal/config"
	"github.com/voxnote/voxnote/internal/enhance"
	"github.com/voxnote/voxnote/internal/flomo"
	"github.com/voxnote/voxnote/internal/pipeline"
	"github.com/voxnote/voxnote/internal/store"
	"github.com/voxnote/voxnote/internal/transcribe"
)

// micRecorder adapts the PortAudio recorder to the pipeline's error
// contract, so permission failures surface as a single sentinel.
type micRecorder struct {
	*audio.Recorder
}

func (r micRecorder) Start(path string) error {
	err := r.Recorder.Start(path)
	if errors.Is(err, audio.ErrPermissionDenied) {
		return fmt.Errorf("%w: %v", pipeline.ErrPermissionDenied, err)
	}
	return err
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "VOXNOTE_API_KEY is not set")
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	transcriber := transcribe.New(cfg.APIKey, cfg.TranscribeURL)
	enhancer := enhance.New(cfg.APIKey, cfg.ChatURL)

	var forwarder *flomo.Client
	if cfg.FlomoURL != "" {
		forwarder = flomo.New(cfg.FlomoURL)
	}

	svc := pipeline.New(
		st,
		micRecorder{audio.NewRecorder()},
		audio.NewPlayer(),
		transcriber,
		enhancer,
		cfg.AudioDir(),
	)
	if cfg.Model != "" {
		svc.SetModel(enhance.Model(cfg.Model))
	}

	p := tea.NewProgram(app.New(svc, st, forwarder), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("run: %v", err)
	}
}
