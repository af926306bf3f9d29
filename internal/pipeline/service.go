// Package pipeline coordinates capture, transcription, enhancement and
// persistence. It owns all observable state; UIs subscribe to its event
// stream and never reach into the stages directly.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/voxnote/voxnote/internal/enhance"
	"github.com/voxnote/voxnote/internal/store"
)

// ErrPermissionDenied is returned by StartCapture when microphone access
// is not granted. Recorder implementations wrap their device errors with
// it at the composition root.
var ErrPermissionDenied = errors.New("需要麦克风权限")

// Recorder is the opaque capture capability: it yields a finished audio
// blob at the path given to Start.
type Recorder interface {
	Start(path string) error
	Stop() error
}

// Player is the playback capability. done fires only on natural
// completion, not on Stop.
type Player interface {
	Play(path string, done func()) error
	Pause() error
	Resume() error
	Stop() error
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Enhancer turns transcript text into the two-marker raw response.
type Enhancer interface {
	Enhance(ctx context.Context, text string, model enhance.Model) (string, error)
}

// Snapshot is a copy of the observable state. All flags settle only
// after their async operation settles.
type Snapshot struct {
	Recording    bool
	Transcribing bool
	Enhancing    bool
	Playing      bool
	Paused       bool

	Transcription string
	EnhancedText  string
	Tags          []string

	DurationSecs      int
	FormattedDuration string

	TranscriptionErr string
	EnhancementErr   string

	CurrentID string
	Model     enhance.Model
}

// Service is the pipeline orchestrator.
type Service struct {
	store       *store.Store
	recorder    Recorder
	player      Player
	transcriber Transcriber
	enhancer    Enhancer
	audioDir    string

	mu            sync.Mutex
	recording     bool
	transcribing  bool
	enhancing     bool
	playing       bool
	paused        bool
	capturePath   string
	currentID     string
	transcription string
	enhancedText  string
	tags          []string
	model         enhance.Model

	transcriptionErr string
	enhancementErr   string

	durationSecs int
	tickerStop   chan struct{}

	subs []chan Event
}

// New wires a service from its collaborators. audioDir is created lazily
// on first capture.
func New(st *store.Store, rec Recorder, pl Player, tr Transcriber, en Enhancer, audioDir string) *Service {
	return &Service{
		store:       st,
		recorder:    rec,
		player:      pl,
		transcriber: tr,
		enhancer:    en,
		audioDir:    audioDir,
		model:       enhance.DefaultModel,
	}
}

// Subscribe returns a channel of pipeline events. Slow subscribers drop
// events rather than block the pipeline.
func (s *Service) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, 64)
	s.subs = append(s.subs, ch)
	return ch
}

// State returns a snapshot of the observable state.
func (s *Service) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SetModel selects the enhancement model for subsequent runs.
func (s *Service) SetModel(m enhance.Model) {
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
}

// StartCapture begins recording and the 1-second duration counter.
// Calling it while already recording is a no-op.
func (s *Service) StartCapture() error {
	s.mu.Lock()
	if s.recording {
		s.mu.Unlock()
		return nil
	}

	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("create audio dir: %w", err)
	}
	path := filepath.Join(s.audioDir, fmt.Sprintf("%d.wav", time.Now().UnixMilli()))

	if err := s.recorder.Start(path); err != nil {
		s.mu.Unlock()
		return err
	}

	s.recording = true
	s.capturePath = path
	s.durationSecs = 0
	s.tickerStop = make(chan struct{})
	go s.tickDuration(s.tickerStop)
	s.mu.Unlock()

	s.emit(Event{Type: EventState})
	return nil
}

// StopCapture finalizes the blob, persists a provisional recording at the
// head of the store and kicks off transcription. A no-op when idle.
func (s *Service) StopCapture() error {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return nil
	}
	s.recording = false
	close(s.tickerStop)
	path := s.capturePath
	s.mu.Unlock()

	if err := s.recorder.Stop(); err != nil {
		s.emit(Event{Type: EventState})
		return fmt.Errorf("finalize capture: %w", err)
	}

	rec := store.NewRecording(path, time.Now())
	if err := s.store.InsertAtHead(rec); err != nil {
		s.emit(Event{Type: EventState})
		return err
	}

	s.mu.Lock()
	s.currentID = rec.ID
	s.transcription = ""
	s.enhancedText = ""
	s.tags = nil
	s.transcriptionErr = ""
	s.enhancementErr = ""
	s.mu.Unlock()

	s.emit(Event{Type: EventState})
	s.emit(Event{Type: EventRecordingSaved, RecordingID: rec.ID})

	go s.runTranscription(rec.ID, path)
	return nil
}

// runTranscription executes the transcription stage for one recording
// and chains into enhancement on success. The recording id travels with
// the chain so a late result never lands on a newer recording.
func (s *Service) runTranscription(id, path string) {
	s.mu.Lock()
	s.transcribing = true
	s.transcriptionErr = ""
	s.mu.Unlock()
	s.emit(Event{Type: EventState})

	text, err := s.transcriber.Transcribe(context.Background(), path)
	if err != nil {
		s.mu.Lock()
		s.transcribing = false
		s.transcriptionErr = err.Error()
		s.mu.Unlock()
		s.emit(Event{Type: EventState})
		s.emit(Event{Type: EventError, RecordingID: id, Stage: StageTranscription, Message: err.Error()})
		return
	}

	s.mu.Lock()
	s.transcribing = false
	model := s.model
	if s.currentID == id {
		s.transcription = text
	}
	s.mu.Unlock()

	updated, werr := s.store.SetTranscription(id, text)
	discarded := werr != nil || !updated

	s.emit(Event{Type: EventState})
	s.emit(Event{Type: EventTranscription, RecordingID: id, Text: text, Discarded: discarded})

	if discarded {
		// The recording was deleted mid-flight; enhancing its text
		// would have nowhere to go.
		return
	}
	s.runEnhancement(id, text, model)
}

// RetryEnhancement re-runs enhancement on the held transcript, optionally
// with a different model. A no-op when there is nothing to enhance.
func (s *Service) RetryEnhancement(model enhance.Model) {
	s.mu.Lock()
	if s.transcription == "" || s.enhancing {
		s.mu.Unlock()
		return
	}
	if model != "" {
		s.model = model
	}
	id := s.currentID
	text := s.transcription
	m := s.model
	s.mu.Unlock()

	go s.runEnhancement(id, text, m)
}

func (s *Service) runEnhancement(id, text string, model enhance.Model) {
	if text == "" {
		return
	}

	s.mu.Lock()
	s.enhancing = true
	s.enhancementErr = ""
	s.mu.Unlock()
	s.emit(Event{Type: EventState})

	raw, err := s.enhancer.Enhance(context.Background(), text, model)
	if err != nil {
		// The transcription already obtained stays visible.
		s.mu.Lock()
		s.enhancing = false
		s.enhancementErr = err.Error()
		s.mu.Unlock()
		s.emit(Event{Type: EventState})
		s.emit(Event{Type: EventError, RecordingID: id, Stage: StageEnhancement, Message: err.Error()})
		return
	}

	enhanced, tags := enhance.Parse(raw)

	s.mu.Lock()
	s.enhancing = false
	if s.currentID == id {
		s.enhancedText = enhanced
		s.tags = tags
	}
	s.mu.Unlock()

	updated, werr := s.store.SetEnhancement(id, enhanced, tags)
	discarded := werr != nil || !updated

	s.emit(Event{Type: EventState})
	s.emit(Event{Type: EventEnhancement, RecordingID: id, Text: enhanced, Tags: tags, Discarded: discarded})
}

// Play starts playback of a recording's blob, stopping any active
// playback first. The playback device is exclusive.
func (s *Service) Play(path string) error {
	s.mu.Lock()
	if s.playing {
		s.player.Stop()
	}
	// Set before starting so a done callback firing immediately (a very
	// short file) cannot be overwritten afterwards.
	s.playing = true
	s.paused = false
	s.mu.Unlock()

	err := s.player.Play(path, func() {
		s.mu.Lock()
		s.playing = false
		s.paused = false
		s.mu.Unlock()
		s.emit(Event{Type: EventState})
		s.emit(Event{Type: EventPlaybackDone})
	})
	if err != nil {
		s.mu.Lock()
		s.playing = false
		s.paused = false
		s.mu.Unlock()
		return fmt.Errorf("start playback: %w", err)
	}

	s.emit(Event{Type: EventState})
	return nil
}

// PausePlayback suspends the active playback.
func (s *Service) PausePlayback() {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	s.player.Pause()
	s.paused = true
	s.mu.Unlock()
	s.emit(Event{Type: EventState})
}

// ResumePlayback continues a paused playback.
func (s *Service) ResumePlayback() {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	s.player.Resume()
	s.paused = false
	s.mu.Unlock()
	s.emit(Event{Type: EventState})
}

// StopPlayback ends the active playback. Safe when idle.
func (s *Service) StopPlayback() {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	s.player.Stop()
	s.playing = false
	s.paused = false
	s.mu.Unlock()
	s.emit(Event{Type: EventState})
}

// Rename updates a recording's label.
func (s *Service) Rename(id, name string) error {
	return s.store.Rename(id, name)
}

// Delete removes a recording and its blob. Safe to call while that
// recording is mid-pipeline; the in-flight stage's write-back is
// discarded when it settles.
func (s *Service) Delete(id string) error {
	return s.store.Remove(id)
}

func (s *Service) tickDuration(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.durationSecs++
			secs := s.durationSecs
			s.mu.Unlock()
			s.emit(Event{Type: EventDuration, Seconds: secs, Duration: FormatDuration(secs)})
		}
	}
}

func (s *Service) snapshotLocked() Snapshot {
	return Snapshot{
		Recording:         s.recording,
		Transcribing:      s.transcribing,
		Enhancing:         s.enhancing,
		Playing:           s.playing,
		Paused:            s.paused,
		Transcription:     s.transcription,
		EnhancedText:      s.enhancedText,
		Tags:              append([]string(nil), s.tags...),
		DurationSecs:      s.durationSecs,
		FormattedDuration: FormatDuration(s.durationSecs),
		TranscriptionErr:  s.transcriptionErr,
		EnhancementErr:    s.enhancementErr,
		CurrentID:         s.currentID,
		Model:             s.model,
	}
}

func (s *Service) emit(ev Event) {
	s.mu.Lock()
	subs := append([]chan Event(nil), s.subs...)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// FormatDuration renders seconds as MM:SS.
func FormatDuration(secs int) string {
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
