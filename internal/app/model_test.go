package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/voxnote/voxnote/internal/pipeline"
	"github.com/voxnote/voxnote/internal/store"
)

func newTestModel() Model {
	m := New(nil, nil, nil)
	m.quiet = true
	m.width = 80
	m.height = 24
	return m
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestNewModel(t *testing.T) {
	m := New(nil, nil, nil)
	if m.snap.Recording {
		t.Error("new model should not be recording")
	}
	if m.duration != "00:00" {
		t.Errorf("duration = %q, want %q", m.duration, "00:00")
	}
	if m.renaming {
		t.Error("new model should not be in rename mode")
	}
}

func TestWindowSize(t *testing.T) {
	m := New(nil, nil, nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	model := updated.(Model)
	if model.width != 100 || model.height != 40 {
		t.Errorf("size = %dx%d, want 100x40", model.width, model.height)
	}
}

func TestDurationEvent(t *testing.T) {
	m := newTestModel()
	m.handleEvent(pipeline.Event{
		Type:     pipeline.EventDuration,
		Seconds:  75,
		Duration: "01:15",
	})
	if m.duration != "01:15" {
		t.Errorf("duration = %q, want %q", m.duration, "01:15")
	}
}

func TestTranscriptionEvent(t *testing.T) {
	m := newTestModel()
	m.handleEvent(pipeline.Event{
		Type:        pipeline.EventTranscription,
		RecordingID: "rec-1",
		Text:        "hello world",
	})
	if m.snap.Transcription != "hello world" {
		t.Errorf("transcription = %q", m.snap.Transcription)
	}
}

func TestEnhancementEvent(t *testing.T) {
	m := newTestModel()
	m.handleEvent(pipeline.Event{
		Type:        pipeline.EventEnhancement,
		RecordingID: "rec-1",
		Text:        "Hello, world!",
		Tags:        []string{"#greeting", "#demo"},
	})
	if m.snap.EnhancedText != "Hello, world!" {
		t.Errorf("enhancedText = %q", m.snap.EnhancedText)
	}
	if len(m.snap.Tags) != 2 || m.snap.Tags[0] != "#greeting" {
		t.Errorf("tags = %v", m.snap.Tags)
	}
}

func TestErrorEventSetsMessage(t *testing.T) {
	m := newTestModel()
	m.handleEvent(pipeline.Event{
		Type:    pipeline.EventError,
		Stage:   pipeline.StageTranscription,
		Message: "rate limited",
	})
	if m.errorMessage != "rate limited" {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
}

func TestRecordingSavedClearsError(t *testing.T) {
	m := newTestModel()
	m.errorMessage = "old failure"
	m.handleEvent(pipeline.Event{Type: pipeline.EventRecordingSaved, RecordingID: "rec-1"})
	if m.errorMessage != "" {
		t.Errorf("errorMessage = %q, want empty", m.errorMessage)
	}
}

func TestListNavigation(t *testing.T) {
	m := newTestModel()
	m.recordings = []store.Recording{
		{ID: "1", Name: "录音 A"},
		{ID: "2", Name: "录音 B"},
		{ID: "3", Name: "录音 C"},
	}

	updated, _ := m.Update(keyRune('j'))
	model := updated.(Model)
	if model.selected != 1 {
		t.Errorf("after j, selected = %d, want 1", model.selected)
	}

	updated, _ = model.Update(keyRune('j'))
	updated, _ = updated.(Model).Update(keyRune('j'))
	model = updated.(Model)
	if model.selected != 2 {
		t.Errorf("j past end, selected = %d, want 2", model.selected)
	}

	updated, _ = model.Update(keyRune('k'))
	model = updated.(Model)
	if model.selected != 1 {
		t.Errorf("after k, selected = %d, want 1", model.selected)
	}
}

func TestRecordingsLoadedClampsSelection(t *testing.T) {
	m := newTestModel()
	m.recordings = []store.Recording{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	m.selected = 2

	updated, _ := m.Update(RecordingsLoadedMsg{Recordings: []store.Recording{{ID: "1"}}})
	model := updated.(Model)
	if model.selected != 0 {
		t.Errorf("selected = %d, want 0", model.selected)
	}
}

func TestRenameMode(t *testing.T) {
	m := newTestModel()
	m.recordings = []store.Recording{{ID: "1", Name: "录音 A"}}

	updated, _ := m.Update(keyRune('r'))
	model := updated.(Model)
	if !model.renaming {
		t.Fatal("r should enter rename mode")
	}
	if model.renameBuf != "录音 A" {
		t.Errorf("renameBuf = %q, want current name", model.renameBuf)
	}

	updated, _ = model.Update(keyRune('!'))
	model = updated.(Model)
	if model.renameBuf != "录音 A!" {
		t.Errorf("after rune, renameBuf = %q", model.renameBuf)
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	model = updated.(Model)
	if model.renameBuf != "录音 A" {
		t.Errorf("after backspace, renameBuf = %q", model.renameBuf)
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	model = updated.(Model)
	if model.renaming {
		t.Error("esc should leave rename mode")
	}
}

func TestRenameModeSwallowsGlobalKeys(t *testing.T) {
	m := newTestModel()
	m.recordings = []store.Recording{{ID: "1", Name: "A"}}
	m.renaming = true
	m.renameBuf = "A"

	updated, cmd := m.Update(keyRune('q'))
	model := updated.(Model)
	if cmd != nil {
		t.Error("q while renaming should not quit")
	}
	if model.renameBuf != "Aq" {
		t.Errorf("renameBuf = %q, want %q", model.renameBuf, "Aq")
	}
}

func TestForwardWithoutWebhook(t *testing.T) {
	m := newTestModel()
	m.recordings = []store.Recording{{ID: "1", Transcription: "hello"}}

	updated, _ := m.Update(keyRune('f'))
	model := updated.(Model)
	if model.notice == "" {
		t.Error("forward without webhook should show a notice")
	}
}

func TestForwardResult(t *testing.T) {
	m := newTestModel()

	updated, cmd := m.Update(ForwardResultMsg{Err: nil})
	model := updated.(Model)
	if model.notice != "已发送到 flomo" {
		t.Errorf("notice = %q", model.notice)
	}
	if cmd == nil {
		t.Error("forward result should schedule a notice clear")
	}

	updated, _ = model.Update(ForwardResultMsg{Err: errors.New("boom")})
	model = updated.(Model)
	if !strings.Contains(model.notice, "boom") {
		t.Errorf("failure notice = %q", model.notice)
	}

	updated, _ = model.Update(ClearNoticeMsg{})
	model = updated.(Model)
	if model.notice != "" {
		t.Errorf("notice after clear = %q", model.notice)
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestModel()
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestViewRendersWithSize(t *testing.T) {
	m := newTestModel()
	m.recordings = []store.Recording{
		{ID: "1", Name: "录音 2025-03-01 10:00", CreatedAt: time.Now(), Tags: []string{"#想法"}},
	}
	m.snap.Transcription = "hello world"
	m.snap.EnhancedText = "Hello, world!"
	m.snap.Tags = []string{"#greeting", "#demo"}

	view := m.View()
	if view == "" {
		t.Fatal("view should not be empty")
	}
	if !strings.Contains(view, "Hello, world!") {
		t.Error("view should show the enhanced text")
	}
	if !strings.Contains(view, "录音 2025-03-01 10:00") {
		t.Error("view should list the recording")
	}
}

func TestFooterListsStopPlayback(t *testing.T) {
	m := newTestModel()
	if !strings.Contains(m.View(), "停播") {
		t.Error("footer missing the stop-playback binding")
	}
}

func TestViewWithoutSize(t *testing.T) {
	m := New(nil, nil, nil)
	view := m.View()
	if view != "Initializing..." {
		t.Errorf("view without size = %q, want 'Initializing...'", view)
	}
}
